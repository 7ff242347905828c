package types_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

var empKey = dbtypes.NewObjectKey(dbtypes.ObjectTypeTable, "HR", "EMP")

func TestDifference_Equal(t *testing.T) {
	c := qt.New(t)

	a := difftypes.NewModified(empKey, "CREATE TABLE EMP (ID NUMBER)", "CREATE TABLE EMP (ID NUMBER, X DATE)", "one")
	b := difftypes.NewModified(empKey, "x", "y", "two")
	c.Assert(a.Equal(b), qt.IsTrue, qt.Commentf("payloads do not take part in identity"))

	other := difftypes.NewRemoved(empKey, "CREATE TABLE EMP (ID NUMBER)")
	c.Assert(a.Equal(other), qt.IsFalse)

	renamed := b
	renamed.ObjectName = "DEPT"
	c.Assert(a.Equal(renamed), qt.IsFalse)
}

func TestDifference_Validate(t *testing.T) {
	c := qt.New(t)

	c.Assert(difftypes.NewAdded(empKey, "").Validate(), qt.IsNil)
	c.Assert(difftypes.NewRemoved(empKey, "").Validate(), qt.IsNil)
	c.Assert(difftypes.NewModified(empKey, "a", "b", "").Validate(), qt.IsNil)

	broken := difftypes.NewAdded(empKey, "x")
	broken.SourceDDL = broken.TargetDDL
	c.Assert(broken.Validate(), qt.ErrorMatches, `added difference TABLE/HR/EMP must carry target DDL only`)

	broken = difftypes.NewModified(empKey, "a", "b", "")
	broken.TargetDDL = nil
	c.Assert(broken.Validate(), qt.ErrorMatches, `modified difference TABLE/HR/EMP must carry both DDL texts`)

	broken.Type = "RENAMED"
	c.Assert(broken.Validate(), qt.ErrorMatches, `difference TABLE/HR/EMP has unknown type "RENAMED"`)
}

func TestDifference_Reverse(t *testing.T) {
	c := qt.New(t)

	added := difftypes.NewAdded(empKey, "CREATE TABLE EMP (ID NUMBER)")
	r := added.Reverse()
	c.Assert(r.Type, qt.Equals, difftypes.Removed)
	c.Assert(r.Source(), qt.Equals, "CREATE TABLE EMP (ID NUMBER)")
	c.Assert(r.TargetDDL, qt.IsNil)
	c.Assert(r.Validate(), qt.IsNil)

	modified := difftypes.NewModified(empKey, "old", "new", "canonical DDL differs")
	r = modified.Reverse()
	c.Assert(r.Type, qt.Equals, difftypes.Modified)
	c.Assert(r.Source(), qt.Equals, "new")
	c.Assert(r.Target(), qt.Equals, "old")
}

func TestSchemaDiff_Reverse(t *testing.T) {
	c := qt.New(t)

	diff := &difftypes.SchemaDiff{
		SourceID:    "a",
		TargetID:    "b",
		SourceOwner: "HR",
		TargetOwner: "HR",
		Differences: []difftypes.Difference{
			difftypes.NewAdded(dbtypes.NewObjectKey(dbtypes.ObjectTypeView, "HR", "V1"), "CREATE VIEW V1 AS SELECT 1 FROM DUAL"),
			difftypes.NewRemoved(empKey, "CREATE TABLE EMP (ID NUMBER)"),
		},
	}

	r := diff.Reverse()
	c.Assert(r.SourceID, qt.Equals, "b")
	c.Assert(r.TargetID, qt.Equals, "a")
	c.Assert(r.Differences, qt.HasLen, 2)
	c.Assert(r.Differences[0].Key(), qt.Equals, empKey)
	c.Assert(r.Differences[0].Type, qt.Equals, difftypes.Added)
	c.Assert(r.Differences[1].Type, qt.Equals, difftypes.Removed)

	// the original is untouched
	c.Assert(diff.Differences[0].Type, qt.Equals, difftypes.Added)
}

func TestSchemaDiff_Summary(t *testing.T) {
	c := qt.New(t)

	diff := &difftypes.SchemaDiff{
		Differences: []difftypes.Difference{
			difftypes.NewAdded(dbtypes.NewObjectKey(dbtypes.ObjectTypeView, "HR", "V1"), ""),
			difftypes.NewAdded(dbtypes.NewObjectKey(dbtypes.ObjectTypeView, "HR", "V2"), ""),
			difftypes.NewRemoved(empKey, ""),
			difftypes.NewModified(dbtypes.NewObjectKey(dbtypes.ObjectTypeIndex, "HR", "EMP_I"), "a", "b", ""),
		},
		Warnings: []dbtypes.Warning{
			dbtypes.NewWarning(dbtypes.WarningMissingDDL, "VIEW/HR/V1", "no DDL"),
		},
	}

	s := diff.Summary()
	c.Assert(s.Added, qt.Equals, 2)
	c.Assert(s.Removed, qt.Equals, 1)
	c.Assert(s.Modified, qt.Equals, 1)
	c.Assert(s.Total(), qt.Equals, 4)
	c.Assert(s.Warnings, qt.Equals, 1)
	c.Assert(s.ByType, qt.DeepEquals, map[dbtypes.ObjectType]int{
		dbtypes.ObjectTypeView:  2,
		dbtypes.ObjectTypeTable: 1,
		dbtypes.ObjectTypeIndex: 1,
	})

	c.Assert(diff.OfType(difftypes.Added), qt.HasLen, 2)
	c.Assert(diff.ForObjectType(dbtypes.ObjectTypeIndex), qt.HasLen, 1)
	c.Assert(diff.HasChanges(), qt.IsTrue)
}
