package store

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stokaro/ddldiff/core/sqlutil"
	"github.com/stokaro/ddldiff/dbschema/types"
)

// scriptObject is one object collected from a DDL script, keyed by its encoded key.
type scriptObject struct {
	encoded string
	ddl     string
}

// ReadDDLScript builds a snapshot of owner from a DDL script such as a schema
// export.
//
// The script is split into statements and each CREATE (or ALTER TABLE ... ADD
// CONSTRAINT) statement becomes one object. Package and type bodies are appended to
// their specification, separated by a slash line. Statements that declare no object
// are skipped with a warning, and an object defined twice keeps its last definition.
func ReadDDLScript(r io.Reader, owner string) (*types.Snapshot, error) {
	if owner == "" {
		return nil, fmt.Errorf("a DDL script needs an owning schema")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading DDL script: %w", err)
	}

	b := types.NewSnapshotBuilder(owner)
	var (
		objects []scriptObject
		index   = make(map[string]int)
	)
	for i, stmt := range sqlutil.SplitSQLStatements(string(data)) {
		h, ok := sqlutil.ParseHeader(stmt)
		if !ok {
			b.Warn(types.NewWarning(types.WarningExtraction, "", "statement %d declares no object and was skipped: %s", i+1, firstLine(stmt)))
			continue
		}

		objectOwner := h.Owner
		if objectOwner == "" || (strings.EqualFold(objectOwner, owner) && !h.Public) {
			objectOwner = owner
		}
		encoded := h.Keyword + "/" + objectOwner + "/" + h.Name

		at, seen := index[encoded]
		switch {
		case h.Body && seen:
			objects[at].ddl += "\n/\n" + stmt
		case seen:
			b.Warn(types.NewWarning(types.WarningExtraction, encoded, "defined more than once; the last definition is kept"))
			objects[at].ddl = stmt
		default:
			index[encoded] = len(objects)
			objects = append(objects, scriptObject{encoded: encoded, ddl: stmt})
		}
	}

	for _, obj := range objects {
		b.AddEncoded(obj.encoded, obj.ddl)
	}
	return b.Build(), nil
}

// ReadDDLScriptFile reads a DDL script from path.
func ReadDDLScriptFile(path, owner string) (*types.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening DDL script: %w", err)
	}
	defer f.Close()

	snap, err := ReadDDLScript(f, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(sqlutil.StripComments(stmt)), "\n")
	return strings.TrimSpace(line)
}
