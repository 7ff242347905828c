package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"

	"github.com/stokaro/ddldiff/dbschema/store"
	"github.com/stokaro/ddldiff/dbschema/types"
)

func sampleSnapshot(id string, captured time.Time) *types.Snapshot {
	b := types.NewSnapshotBuilder("HR").
		WithID(id).
		WithCapturedAt(captured).
		WithSourceConnection("oracle://db.example.com:1521/XE")
	b.MustAdd(types.NewObjectKey(types.ObjectTypeTable, "HR", "EMP"), "CREATE TABLE HR.EMP (ID NUMBER)")
	b.MustAdd(types.NewObjectKey(types.ObjectTypeView, "HR", "V1"), "CREATE VIEW HR.V1 AS SELECT 1 FROM DUAL")
	b.MustAdd(types.NewObjectKey(types.ObjectTypeJavaSource, "HR", "com/acme/Util"), "")
	b.MustAdd(types.NewObjectKey(types.ObjectTypeSynonym, types.PublicOwner, "EMP"), "CREATE PUBLIC SYNONYM EMP FOR HR.EMP")
	b.Warn(types.NewWarning(types.WarningExtraction, "JAVA_SOURCE/HR/com/acme/Util", "fetching DDL: ORA-31603"))
	return b.Build()
}

func openStore(c *qt.C) (*store.SQLiteStore, string) {
	path := filepath.Join(c.TempDir(), "nested", "snapshots.db")
	s := must.Must(store.OpenSQLite(path))
	c.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, _ := openStore(c)

	captured := time.Date(2024, 5, 1, 12, 30, 0, 123, time.UTC)
	orig := sampleSnapshot("snap-1", captured)
	c.Assert(s.Save(ctx, orig), qt.IsNil)

	loaded, err := s.Load(ctx, "snap-1")
	c.Assert(err, qt.IsNil)
	c.Assert(loaded.ID, qt.Equals, "snap-1")
	c.Assert(loaded.Owner, qt.Equals, "HR")
	c.Assert(loaded.CapturedAt.Equal(captured), qt.IsTrue)
	c.Assert(loaded.SourceConnection, qt.Equals, orig.SourceConnection)
	c.Assert(loaded.Keys(), qt.DeepEquals, orig.Keys())
	for _, key := range orig.Keys() {
		want, _ := orig.DDL(key)
		got, ok := loaded.DDL(key)
		c.Assert(ok, qt.IsTrue, qt.Commentf("key %s", key))
		c.Assert(got, qt.Equals, want, qt.Commentf("key %s", key))
	}
	c.Assert(loaded.Warnings(), qt.DeepEquals, orig.Warnings())
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, _ := openStore(c)

	c.Assert(s.Save(ctx, sampleSnapshot("snap-1", time.Now())), qt.IsNil)

	smaller := types.NewSnapshotBuilder("HR").WithID("snap-1").
		MustAdd(types.NewObjectKey(types.ObjectTypeTable, "HR", "DEPT"), "CREATE TABLE DEPT (ID NUMBER)").
		Build()
	c.Assert(s.Save(ctx, smaller), qt.IsNil)

	loaded, err := s.Load(ctx, "snap-1")
	c.Assert(err, qt.IsNil)
	c.Assert(loaded.Keys(), qt.DeepEquals, []types.ObjectKey{types.NewObjectKey(types.ObjectTypeTable, "HR", "DEPT")})
	c.Assert(loaded.Warnings(), qt.HasLen, 0)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, _ := openStore(c)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c.Assert(s.Save(ctx, sampleSnapshot("old", older)), qt.IsNil)
	c.Assert(s.Save(ctx, sampleSnapshot("new", newer)), qt.IsNil)

	infos, err := s.List(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(infos, qt.HasLen, 2)
	c.Assert(infos[0].ID, qt.Equals, "new")
	c.Assert(infos[0].ObjectCount, qt.Equals, 4)
	c.Assert(infos[1].ID, qt.Equals, "old")
	c.Assert(infos[1].CapturedAt.Equal(older), qt.IsTrue)

	c.Assert(s.Delete(ctx, "old"), qt.IsNil)
	_, err = s.Load(ctx, "old")
	c.Assert(err, qt.ErrorIs, store.ErrSnapshotNotFound)
	c.Assert(s.Delete(ctx, "old"), qt.ErrorIs, store.ErrSnapshotNotFound)

	infos, err = s.List(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(infos, qt.HasLen, 1)
}

func TestSQLiteStore_LoadDecodesStoredKeys(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, path := openStore(c)

	empty := types.NewSnapshotBuilder("HR").WithID("snap-1").Build()
	c.Assert(s.Save(ctx, empty), qt.IsNil)

	raw := must.Must(sql.Open("sqlite", path))
	for _, key := range []string{"TABLE/HR/EMP", "CLUSTER/HR/C1", "TABLE/HR", "VIEW/SCOTT/V1"} {
		_, err := raw.ExecContext(ctx, `INSERT INTO snapshot_objects (snapshot_id, object_key, ddl) VALUES (?, ?, ?)`,
			"snap-1", key, "-- "+key)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(raw.Close(), qt.IsNil)

	loaded, err := s.Load(ctx, "snap-1")
	c.Assert(err, qt.IsNil)
	c.Assert(loaded.Keys(), qt.DeepEquals, []types.ObjectKey{
		types.NewObjectKey(types.ObjectTypeOther, "HR", "C1"),
		types.NewObjectKey(types.ObjectTypeTable, "HR", "EMP"),
	})

	kinds := make([]types.WarningKind, 0, 3)
	for _, w := range loaded.Warnings() {
		kinds = append(kinds, w.Kind)
	}
	c.Assert(kinds, qt.DeepEquals, []types.WarningKind{
		types.WarningUnknownObjectType,
		types.WarningMalformedKey,
		types.WarningMalformedKey,
	})
}

func TestSQLiteStore_SaveNil(t *testing.T) {
	c := qt.New(t)
	s, _ := openStore(c)

	c.Assert(s.Save(context.Background(), nil), qt.ErrorMatches, "cannot save a nil snapshot")
}
