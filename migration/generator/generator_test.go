package generator_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"

	"github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/generator"
	"github.com/stokaro/ddldiff/migration/planner"
	"github.com/stokaro/ddldiff/migration/schemadiff"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func snapshots() (source, target *types.Snapshot) {
	sb := types.NewSnapshotBuilder("HR").WithID("source")
	sb.MustAdd(types.NewObjectKey(types.ObjectTypeTable, "HR", "EMP"), "CREATE TABLE EMP (ID NUMBER)")
	sb.MustAdd(types.NewObjectKey(types.ObjectTypeView, "HR", "V0"), "CREATE VIEW V0 AS SELECT 0 FROM DUAL")

	tb := types.NewSnapshotBuilder("HR").WithID("target")
	tb.MustAdd(types.NewObjectKey(types.ObjectTypeView, "HR", "V0"), "create view v0 as select 0 from dual;")
	tb.MustAdd(types.NewObjectKey(types.ObjectTypeView, "HR", "V1"), `CREATE VIEW "HR"."V1" AS SELECT 1 FROM DUAL`)

	return sb.Build(), tb.Build()
}

func readFile(path string) string {
	return string(must.Must(os.ReadFile(path)))
}

func TestGenerateMigration_WritesScripts(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	source, target := snapshots()

	result, err := generator.GenerateMigration(generator.GenerateOptions{
		Source:    source,
		Target:    target,
		OutputDir: dir,
		Logger:    quiet,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Diff.Summary().Total(), qt.Equals, 2)
	c.Assert(result.Warnings(), qt.HasLen, 0)

	c.Assert(result.Files, qt.DeepEquals, []string{
		filepath.Join(dir, "DROP_TABLE_EMP.sql"),
		filepath.Join(dir, "CREATE_VIEW_V1.sql"),
		filepath.Join(dir, generator.RunAllFileName),
	})
	c.Assert(readFile(filepath.Join(dir, "DROP_TABLE_EMP.sql")), qt.Equals, "DROP TABLE EMP\n/\n")
	c.Assert(readFile(filepath.Join(dir, "CREATE_VIEW_V1.sql")), qt.Equals, "CREATE VIEW \"V1\" AS SELECT 1 FROM DUAL\n/\n")
	c.Assert(readFile(filepath.Join(dir, generator.RunAllFileName)), qt.Equals,
		"-- Runs the migration scripts in execution order.\n@@DROP_TABLE_EMP.sql\n@@CREATE_VIEW_V1.sql\n")
}

func TestGenerateMigration_Reverse(t *testing.T) {
	c := qt.New(t)

	source, target := snapshots()
	result, err := generator.GenerateMigration(generator.GenerateOptions{
		Source:  source,
		Target:  target,
		Reverse: true,
		Logger:  quiet,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Files, qt.HasLen, 0, qt.Commentf("nothing is written without an output directory"))
	c.Assert(result.Plan.FileNames(), qt.DeepEquals, []string{"DROP_VIEW_V1.sql", "CREATE_TABLE_EMP.sql"})
	c.Assert(result.Plan.Scripts[1].Content, qt.Equals, "CREATE TABLE EMP (ID NUMBER)\n/")
}

func TestGenerateMigration_NoChanges(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	source, _ := snapshots()
	result, err := generator.GenerateMigration(generator.GenerateOptions{
		Source:    source,
		Target:    source,
		OutputDir: dir,
		Logger:    quiet,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Diff.HasChanges(), qt.IsFalse)
	c.Assert(result.Plan.Scripts, qt.HasLen, 0)
	c.Assert(result.Files, qt.HasLen, 0)

	entries := must.Must(os.ReadDir(dir))
	c.Assert(entries, qt.HasLen, 0)
}

func TestGenerateMigration_NilSnapshot(t *testing.T) {
	c := qt.New(t)

	_, target := snapshots()
	_, err := generator.GenerateMigration(generator.GenerateOptions{Target: target, Logger: quiet})
	c.Assert(errors.Is(err, schemadiff.ErrNilSnapshot), qt.IsTrue)
}

func TestPlannerFor(t *testing.T) {
	tests := []struct {
		dialect string
		wantErr string
	}{
		{dialect: ""},
		{dialect: "oracle"},
		{dialect: "postgresql"},
		{dialect: "mariadb"},
		{dialect: "sqlserver", wantErr: `unsupported dialect "sqlserver"`},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			c := qt.New(t)

			p, err := generator.PlannerFor(tt.dialect, quiet)
			if tt.wantErr != "" {
				c.Assert(err, qt.ErrorMatches, tt.wantErr)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(p, qt.IsNotNil)
		})
	}
}

func TestPlannerFor_AppliesDialectPolicies(t *testing.T) {
	c := qt.New(t)

	d := difftypes.NewModified(types.NewObjectKey(types.ObjectTypeProcedure, "shop", "p1"),
		`CREATE PROCEDURE "shop"."p1"() BEGIN SELECT 1; END`,
		`CREATE PROCEDURE "shop"."p1"() BEGIN SELECT 2; END`, "canonical DDL differs")

	oracle := must.Must(generator.PlannerFor("oracle", quiet)).GenerateScripts([]difftypes.Difference{d})
	c.Assert(oracle.FileNames(), qt.DeepEquals, []string{"MODIFY_OR_REPLACE_PROCEDURE_P1.sql"})

	mysql := must.Must(generator.PlannerFor("mysql", quiet)).GenerateScripts([]difftypes.Difference{d})
	c.Assert(mysql.FileNames(), qt.DeepEquals, []string{"DROP_MODIFIED_PROCEDURE_P1.sql", "CREATE_MODIFIED_PROCEDURE_P1.sql"})
}

func TestWriteScripts_RefusesCollisions(t *testing.T) {
	c := qt.New(t)

	dir := filepath.Join(t.TempDir(), "out")
	plan := planner.New(planner.WithLogger(quiet)).GenerateScripts([]difftypes.Difference{
		difftypes.NewRemoved(types.NewObjectKey(types.ObjectTypeSynonym, "HR", "EMP"), "CREATE SYNONYM EMP FOR SCOTT.EMP"),
		difftypes.NewRemoved(types.NewObjectKey(types.ObjectTypeSynonym, types.PublicOwner, "EMP"), "CREATE PUBLIC SYNONYM EMP FOR HR.EMP"),
	})

	files, err := generator.WriteScripts(dir, plan, generator.WriteOptions{})
	c.Assert(errors.Is(err, planner.ErrFileNameCollision), qt.IsTrue)
	c.Assert(files, qt.HasLen, 0)

	_, statErr := os.Stat(dir)
	c.Assert(errors.Is(statErr, os.ErrNotExist), qt.IsTrue, qt.Commentf("nothing may be written for a colliding plan"))
}

func TestWriteScripts_ExistingFiles(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	plan := planner.New(planner.WithLogger(quiet)).GenerateScripts([]difftypes.Difference{
		difftypes.NewRemoved(types.NewObjectKey(types.ObjectTypeTable, "HR", "EMP"), "CREATE TABLE EMP (ID NUMBER)"),
	})

	files, err := generator.WriteScripts(dir, plan, generator.WriteOptions{SkipRunAll: true})
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.DeepEquals, []string{filepath.Join(dir, "DROP_TABLE_EMP.sql")})

	_, err = generator.WriteScripts(dir, plan, generator.WriteOptions{SkipRunAll: true})
	c.Assert(errors.Is(err, generator.ErrScriptExists), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `script already exists in .*: DROP_TABLE_EMP\.sql`)

	c.Assert(os.WriteFile(filepath.Join(dir, "DROP_TABLE_EMP.sql"), []byte("stale"), 0644), qt.IsNil)
	_, err = generator.WriteScripts(dir, plan, generator.WriteOptions{SkipRunAll: true, Overwrite: true})
	c.Assert(err, qt.IsNil)
	c.Assert(readFile(filepath.Join(dir, "DROP_TABLE_EMP.sql")), qt.Equals, "DROP TABLE EMP\n/\n")
}

func TestRunAll(t *testing.T) {
	c := qt.New(t)

	plan := &planner.Plan{Scripts: []planner.MigrationScript{
		{FileName: "DROP_TABLE_EMP.sql"},
		{FileName: "REVIEW_TABLE_DEPT.sql"},
	}}
	c.Assert(generator.RunAll(plan), qt.Equals,
		"-- Runs the migration scripts in execution order.\n@@DROP_TABLE_EMP.sql\n@@REVIEW_TABLE_DEPT.sql\n")
}
