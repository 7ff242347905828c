// Package types defines the result of a snapshot comparison.
package types

import (
	"fmt"
	"sort"

	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
)

// DifferenceType classifies a difference between two snapshots.
type DifferenceType string

const (
	// Added marks an object present in the target snapshot only.
	Added DifferenceType = "ADDED"
	// Removed marks an object present in the source snapshot only.
	Removed DifferenceType = "REMOVED"
	// Modified marks an object present in both snapshots whose canonical DDL differs.
	Modified DifferenceType = "MODIFIED"
)

// Difference describes one object that differs between the source and the target
// snapshot.
//
// # Invariants
//
//   - Added: SourceDDL is nil, TargetDDL is set
//   - Removed: SourceDDL is set, TargetDDL is nil
//   - Modified: both are set and their canonical forms differ
//
// A set DDL pointer may still point at an empty string when the snapshot recorded the
// object without DDL text.
//
// # Identity
//
// Two differences are the same difference when Type, ObjectType, ObjectName and
// ObjectOwner match (see Equal); the DDL payloads and Detail do not take part.
type Difference struct {
	Type        DifferenceType     `json:"type"`
	ObjectType  dbtypes.ObjectType `json:"object_type"`
	ObjectName  string             `json:"object_name"`
	ObjectOwner string             `json:"object_owner"`
	SourceDDL   *string            `json:"source_ddl,omitempty"`
	TargetDDL   *string            `json:"target_ddl,omitempty"`
	Detail      string             `json:"detail,omitempty"`
}

// NewAdded returns the difference for an object that exists in the target only.
func NewAdded(key dbtypes.ObjectKey, targetDDL string) Difference {
	return Difference{
		Type:        Added,
		ObjectType:  key.Type,
		ObjectName:  key.Name,
		ObjectOwner: key.Owner,
		TargetDDL:   &targetDDL,
		Detail:      "present in target only",
	}
}

// NewRemoved returns the difference for an object that exists in the source only.
func NewRemoved(key dbtypes.ObjectKey, sourceDDL string) Difference {
	return Difference{
		Type:        Removed,
		ObjectType:  key.Type,
		ObjectName:  key.Name,
		ObjectOwner: key.Owner,
		SourceDDL:   &sourceDDL,
		Detail:      "present in source only",
	}
}

// NewModified returns the difference for an object whose DDL changed.
func NewModified(key dbtypes.ObjectKey, sourceDDL, targetDDL, detail string) Difference {
	return Difference{
		Type:        Modified,
		ObjectType:  key.Type,
		ObjectName:  key.Name,
		ObjectOwner: key.Owner,
		SourceDDL:   &sourceDDL,
		TargetDDL:   &targetDDL,
		Detail:      detail,
	}
}

// Key returns the key of the object the difference is about.
func (d Difference) Key() dbtypes.ObjectKey {
	return dbtypes.NewObjectKey(d.ObjectType, d.ObjectOwner, d.ObjectName)
}

// Equal reports whether d and other describe the same difference.
func (d Difference) Equal(other Difference) bool {
	return d.Type == other.Type &&
		d.ObjectType == other.ObjectType &&
		d.ObjectName == other.ObjectName &&
		d.ObjectOwner == other.ObjectOwner
}

// Source returns the source DDL, or "" when there is none.
func (d Difference) Source() string {
	if d.SourceDDL == nil {
		return ""
	}
	return *d.SourceDDL
}

// Target returns the target DDL, or "" when there is none.
func (d Difference) Target() string {
	if d.TargetDDL == nil {
		return ""
	}
	return *d.TargetDDL
}

// Validate checks the DDL presence invariants of the difference type.
func (d Difference) Validate() error {
	switch d.Type {
	case Added:
		if d.SourceDDL != nil || d.TargetDDL == nil {
			return fmt.Errorf("added difference %s must carry target DDL only", d.Key())
		}
	case Removed:
		if d.SourceDDL == nil || d.TargetDDL != nil {
			return fmt.Errorf("removed difference %s must carry source DDL only", d.Key())
		}
	case Modified:
		if d.SourceDDL == nil || d.TargetDDL == nil {
			return fmt.Errorf("modified difference %s must carry both DDL texts", d.Key())
		}
	default:
		return fmt.Errorf("difference %s has unknown type %q", d.Key(), d.Type)
	}
	return nil
}

// Reverse returns the difference seen from the other direction: added becomes
// removed, removed becomes added, and a modification swaps its DDL texts.
func (d Difference) Reverse() Difference {
	r := d
	r.SourceDDL, r.TargetDDL = d.TargetDDL, d.SourceDDL
	switch d.Type {
	case Added:
		r.Type = Removed
		r.Detail = "present in source only"
	case Removed:
		r.Type = Added
		r.Detail = "present in target only"
	}
	return r
}

func (d Difference) String() string {
	return fmt.Sprintf("%s %s", d.Type, d.Key())
}

// SchemaDiff is the result of comparing a source snapshot with a target snapshot.
//
// Differences are sorted by object key so that repeated comparisons of the same
// snapshots produce identical output. Unchanged objects never appear.
//
// Warnings carries every data-quality problem recovered during the comparison (and
// the ones recorded on the snapshots themselves). Warnings never make the comparison
// fail.
//
// # Example Usage
//
//	diff, err := schemadiff.Compare(source, target)
//	if err != nil {
//		return err
//	}
//	if diff.HasChanges() {
//		summary := diff.Summary()
//		fmt.Printf("%d added, %d removed, %d modified\n", summary.Added, summary.Removed, summary.Modified)
//	}
type SchemaDiff struct {
	SourceID    string            `json:"source_id,omitempty"`
	TargetID    string            `json:"target_id,omitempty"`
	SourceOwner string            `json:"source_owner"`
	TargetOwner string            `json:"target_owner"`
	Differences []Difference      `json:"differences"`
	Warnings    []dbtypes.Warning `json:"warnings,omitempty"`
}

// HasChanges returns true if the diff contains any difference.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.Differences) > 0
}

// Warn records a warning.
func (d *SchemaDiff) Warn(w dbtypes.Warning) {
	d.Warnings = append(d.Warnings, w)
}

// OfType returns the differences of the given difference type, in diff order.
func (d *SchemaDiff) OfType(t DifferenceType) []Difference {
	var out []Difference
	for _, diff := range d.Differences {
		if diff.Type == t {
			out = append(out, diff)
		}
	}
	return out
}

// ForObjectType returns the differences concerning objects of the given type.
func (d *SchemaDiff) ForObjectType(t dbtypes.ObjectType) []Difference {
	var out []Difference
	for _, diff := range d.Differences {
		if diff.ObjectType == t {
			out = append(out, diff)
		}
	}
	return out
}

// Find returns the difference about key, if any.
func (d *SchemaDiff) Find(key dbtypes.ObjectKey) (Difference, bool) {
	for _, diff := range d.Differences {
		if diff.Key() == key {
			return diff, true
		}
	}
	return Difference{}, false
}

// Sort orders the differences by object key and then by difference type.
func (d *SchemaDiff) Sort() {
	sort.SliceStable(d.Differences, func(i, j int) bool {
		a, b := d.Differences[i], d.Differences[j]
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		return a.Type < b.Type
	})
}

// Reverse returns the diff that leads from the target back to the source. It is
// used to produce rollback scripts.
func (d *SchemaDiff) Reverse() *SchemaDiff {
	r := &SchemaDiff{
		SourceID:    d.TargetID,
		TargetID:    d.SourceID,
		SourceOwner: d.TargetOwner,
		TargetOwner: d.SourceOwner,
		Differences: make([]Difference, 0, len(d.Differences)),
		Warnings:    append([]dbtypes.Warning(nil), d.Warnings...),
	}
	for _, diff := range d.Differences {
		r.Differences = append(r.Differences, diff.Reverse())
	}
	r.Sort()
	return r
}

// Summary counts differences per difference type and per object type.
type Summary struct {
	Added    int                        `json:"added"`
	Removed  int                        `json:"removed"`
	Modified int                        `json:"modified"`
	ByType   map[dbtypes.ObjectType]int `json:"by_type"`
	Warnings int                        `json:"warnings"`
}

// Total returns the number of differences.
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Modified
}

// Summary returns the difference counts of the diff.
func (d *SchemaDiff) Summary() Summary {
	s := Summary{ByType: make(map[dbtypes.ObjectType]int), Warnings: len(d.Warnings)}
	for _, diff := range d.Differences {
		switch diff.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		}
		s.ByType[diff.ObjectType]++
	}
	return s
}
