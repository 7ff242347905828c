package store

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stokaro/ddldiff/dbschema/types"
)

// yamlSnapshot is the file layout of a YAML snapshot.
type yamlSnapshot struct {
	ID               string          `yaml:"id"`
	Owner            string          `yaml:"owner"`
	CapturedAt       time.Time       `yaml:"captured_at"`
	SourceConnection string          `yaml:"source_connection,omitempty"`
	Objects          []yamlObject    `yaml:"objects"`
	Warnings         []types.Warning `yaml:"warnings,omitempty"`
}

// yamlObject keeps the type as text so files naming types this version does not
// know still load, as OTHER with a warning.
type yamlObject struct {
	Type  string `yaml:"type"`
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
	DDL   string `yaml:"ddl"`
}

// WriteYAML encodes snap to w. Objects are written in key order.
func WriteYAML(w io.Writer, snap *types.Snapshot) error {
	doc := yamlSnapshot{
		ID:               snap.ID,
		Owner:            snap.Owner,
		CapturedAt:       snap.CapturedAt.UTC(),
		SourceConnection: snap.SourceConnection,
		Warnings:         snap.Warnings(),
	}
	snap.Each(func(key types.ObjectKey, ddl string) {
		doc.Objects = append(doc.Objects, yamlObject{
			Type:  string(key.Type),
			Owner: key.Owner,
			Name:  key.Name,
			DDL:   ddl,
		})
	})

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.ID, err)
	}
	return enc.Close()
}

// ReadYAML decodes a snapshot written by WriteYAML. A missing ID or capture time
// is filled in the way NewSnapshotBuilder does.
func ReadYAML(r io.Reader) (*types.Snapshot, error) {
	var doc yamlSnapshot
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if doc.Owner == "" {
		return nil, fmt.Errorf("snapshot has no owner")
	}

	b := types.NewSnapshotBuilder(doc.Owner).WithSourceConnection(doc.SourceConnection)
	if doc.ID != "" {
		b.WithID(doc.ID)
	}
	if !doc.CapturedAt.IsZero() {
		b.WithCapturedAt(doc.CapturedAt)
	}
	for _, w := range doc.Warnings {
		b.Warn(w)
	}
	for _, obj := range doc.Objects {
		b.AddEncoded(obj.Type+"/"+obj.Owner+"/"+obj.Name, obj.DDL)
	}
	return b.Build(), nil
}

// WriteYAMLFile writes snap to path.
func WriteYAMLFile(path string, snap *types.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating snapshot file: %w", err)
	}
	defer f.Close()

	if err := WriteYAML(f, snap); err != nil {
		return err
	}
	return f.Close()
}

// ReadYAMLFile reads a snapshot from path.
func ReadYAMLFile(path string) (*types.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening snapshot file: %w", err)
	}
	defer f.Close()

	return ReadYAML(f)
}
