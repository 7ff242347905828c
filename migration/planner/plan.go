package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
)

// ErrFileNameCollision is returned by Plan.Err when two scripts share a file name.
var ErrFileNameCollision = errors.New("file name collision")

// Collision lists the objects whose scripts were given the same file name.
type Collision struct {
	FileName string              `json:"file_name"`
	Objects  []dbtypes.ObjectKey `json:"objects"`
}

// Plan is the ordered list of scripts generated for a set of differences.
//
// Scripts keep every generated script, including ones whose file names collide, so
// nothing is lost; Collisions names the clashing files and writers must refuse a plan
// that has any.
type Plan struct {
	Scripts    []MigrationScript `json:"scripts"`
	Warnings   []dbtypes.Warning `json:"warnings,omitempty"`
	Collisions []Collision       `json:"collisions,omitempty"`
}

// HasCollisions reports whether two scripts share a file name.
func (p *Plan) HasCollisions() bool {
	return len(p.Collisions) > 0
}

// Err returns an error wrapping ErrFileNameCollision when the plan has collisions.
func (p *Plan) Err() error {
	if !p.HasCollisions() {
		return nil
	}
	names := make([]string, 0, len(p.Collisions))
	for _, c := range p.Collisions {
		names = append(names, c.FileName)
	}
	return fmt.Errorf("%w: %s", ErrFileNameCollision, strings.Join(names, ", "))
}

// FileNames returns the file names in execution order.
func (p *Plan) FileNames() []string {
	names := make([]string, 0, len(p.Scripts))
	for _, s := range p.Scripts {
		names = append(names, s.FileName)
	}
	return names
}

// sortScripts orders scripts by execution bucket and then by file name.
func (p *Plan) sortScripts() {
	sort.SliceStable(p.Scripts, func(i, j int) bool {
		a, b := p.Scripts[i], p.Scripts[j]
		if a.ExecutionOrder != b.ExecutionOrder {
			return a.ExecutionOrder < b.ExecutionOrder
		}
		return a.FileName < b.FileName
	})
}

// detectCollisions fills Collisions and raises one warning per clashing name.
func (p *Plan) detectCollisions() {
	owners := make(map[string][]dbtypes.ObjectKey)
	var order []string
	for _, s := range p.Scripts {
		if _, seen := owners[s.FileName]; !seen {
			order = append(order, s.FileName)
		}
		owners[s.FileName] = append(owners[s.FileName], s.Key())
	}

	for _, name := range order {
		keys := owners[name]
		if len(keys) < 2 {
			continue
		}
		p.Collisions = append(p.Collisions, Collision{FileName: name, Objects: keys})

		texts := make([]string, len(keys))
		for i, k := range keys {
			texts[i] = k.String()
		}
		p.Warnings = append(p.Warnings, dbtypes.NewWarning(dbtypes.WarningFileNameCollision, "",
			"%s is generated for %s", name, strings.Join(texts, ", ")))
	}
}
