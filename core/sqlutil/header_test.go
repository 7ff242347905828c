package sqlutil_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/ddldiff/core/sqlutil"
	"github.com/stokaro/ddldiff/dbschema/types"
)

func TestStripSchemaFromCreateStatement(t *testing.T) {
	tests := []struct {
		name        string
		ddl         string
		objectType  types.ObjectType
		objectName  string
		expected    string
		wantMatched bool
	}{
		{
			name:        "quoted owner and name",
			ddl:         `CREATE TABLE "OWNER"."T1" (ID NUMBER)`,
			objectType:  types.ObjectTypeTable,
			objectName:  "T1",
			expected:    `CREATE TABLE "T1" (ID NUMBER)`,
			wantMatched: true,
		},
		{
			name:        "already unqualified",
			ddl:         `CREATE TABLE "T1" (ID NUMBER)`,
			objectType:  types.ObjectTypeTable,
			objectName:  "T1",
			expected:    `CREATE TABLE "T1" (ID NUMBER)`,
			wantMatched: true,
		},
		{
			name:        "modifiers and bare identifiers",
			ddl:         "CREATE OR REPLACE FORCE EDITIONABLE VIEW hr.v1 AS SELECT * FROM hr.emp",
			objectType:  types.ObjectTypeView,
			objectName:  "V1",
			expected:    "CREATE OR REPLACE FORCE EDITIONABLE VIEW v1 AS SELECT * FROM hr.emp",
			wantMatched: true,
		},
		{
			name:        "leading whitespace from metadata extraction",
			ddl:         "\n  CREATE UNIQUE INDEX \"HR\".\"EMP_IX\" ON \"HR\".\"EMP\" (\"ID\")",
			objectType:  types.ObjectTypeIndex,
			objectName:  "EMP_IX",
			expected:    "\n  CREATE UNIQUE INDEX \"EMP_IX\" ON \"HR\".\"EMP\" (\"ID\")",
			wantMatched: true,
		},
		{
			name:        "multi-word keyword",
			ddl:         `CREATE MATERIALIZED VIEW "HR"."MV" AS SELECT 1 FROM DUAL`,
			objectType:  types.ObjectTypeMaterializedView,
			objectName:  "MV",
			expected:    `CREATE MATERIALIZED VIEW "MV" AS SELECT 1 FROM DUAL`,
			wantMatched: true,
		},
		{
			name:        "package body",
			ddl:         `CREATE OR REPLACE PACKAGE BODY "HR"."PKG" AS END PKG;`,
			objectType:  types.ObjectTypePackage,
			objectName:  "PKG",
			expected:    `CREATE OR REPLACE PACKAGE BODY "PKG" AS END PKG;`,
			wantMatched: true,
		},
		{
			name:        "java source",
			ddl:         `CREATE OR REPLACE AND COMPILE JAVA SOURCE NAMED "HR"."com/acme/Util" AS public class Util {}`,
			objectType:  types.ObjectTypeJavaSource,
			objectName:  "com/acme/Util",
			expected:    `CREATE OR REPLACE AND COMPILE JAVA SOURCE NAMED "com/acme/Util" AS public class Util {}`,
			wantMatched: true,
		},
		{
			name:        "directory object",
			ddl:         `CREATE OR REPLACE DIRECTORY "DATA_DIR" AS '/u01/data'`,
			objectType:  types.ObjectTypeDirectory,
			objectName:  "DATA_DIR",
			expected:    `CREATE OR REPLACE DIRECTORY "DATA_DIR" AS '/u01/data'`,
			wantMatched: true,
		},
		{
			name:        "constraint header",
			ddl:         `ALTER TABLE "HR"."EMP" ADD CONSTRAINT "EMP_PK" PRIMARY KEY ("ID")`,
			objectType:  types.ObjectTypeConstraint,
			objectName:  "EMP_PK",
			expected:    `ALTER TABLE "EMP" ADD CONSTRAINT "EMP_PK" PRIMARY KEY ("ID")`,
			wantMatched: true,
		},
		{
			name:        "only the first header is rewritten",
			ddl:         "CREATE OR REPLACE PACKAGE HR.P AS END;\n/\nCREATE OR REPLACE PACKAGE BODY HR.P AS END;",
			objectType:  types.ObjectTypePackage,
			objectName:  "P",
			expected:    "CREATE OR REPLACE PACKAGE P AS END;\n/\nCREATE OR REPLACE PACKAGE BODY HR.P AS END;",
			wantMatched: true,
		},
		{
			name:       "type mismatch is a no-op",
			ddl:        `CREATE VIEW "HR"."V1" AS SELECT 1 FROM DUAL`,
			objectType: types.ObjectTypeTable,
			objectName: "V1",
			expected:   `CREATE VIEW "HR"."V1" AS SELECT 1 FROM DUAL`,
		},
		{
			name:       "name mismatch is a no-op",
			ddl:        `CREATE VIEW "HR"."V1" AS SELECT 1 FROM DUAL`,
			objectType: types.ObjectTypeView,
			objectName: "V2",
			expected:   `CREATE VIEW "HR"."V1" AS SELECT 1 FROM DUAL`,
		},
		{
			name:       "headers inside literals and comments are ignored",
			ddl:        "-- CREATE VIEW HR.V1\nSELECT 'CREATE VIEW HR.V1' FROM DUAL",
			objectType: types.ObjectTypeView,
			objectName: "V1",
			expected:   "-- CREATE VIEW HR.V1\nSELECT 'CREATE VIEW HR.V1' FROM DUAL",
		},
		{
			name:       "other type never matches",
			ddl:        "CREATE CLUSTER HR.C1 (ID NUMBER)",
			objectType: types.ObjectTypeOther,
			objectName: "C1",
			expected:   "CREATE CLUSTER HR.C1 (ID NUMBER)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			got, matched := sqlutil.StripSchemaFromCreateStatement(tt.ddl, tt.objectType, tt.objectName)
			c.Assert(got, qt.Equals, tt.expected)
			c.Assert(matched, qt.Equals, tt.wantMatched)
		})
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name      string
		stmt      string
		wantType  types.ObjectType
		wantOwner string
		wantName  string
		wantBody  bool
		wantOR    bool
	}{
		{
			name:      "public synonym",
			stmt:      `CREATE OR REPLACE PUBLIC SYNONYM "EMP" FOR "HR"."EMP"`,
			wantType:  types.ObjectTypeSynonym,
			wantOwner: types.PublicOwner,
			wantName:  "EMP",
			wantOR:    true,
		},
		{
			name:     "database link name keeps its dots",
			stmt:     "CREATE DATABASE LINK remote.example.com CONNECT TO scott IDENTIFIED BY tiger USING 'remote'",
			wantType: types.ObjectTypeDatabaseLink,
			wantName: "REMOTE.EXAMPLE.COM",
		},
		{
			name:      "type body",
			stmt:      "-- object type\ncreate or replace type body hr.point as end;",
			wantType:  types.ObjectTypeType,
			wantOwner: "HR",
			wantName:  "POINT",
			wantBody:  true,
			wantOR:    true,
		},
		{
			name:      "global temporary table",
			stmt:      `CREATE GLOBAL TEMPORARY TABLE "hr"."Tmp" (ID NUMBER)`,
			wantType:  types.ObjectTypeTable,
			wantOwner: "hr",
			wantName:  "Tmp",
		},
		{
			name:      "postgres if not exists",
			stmt:      "CREATE TABLE IF NOT EXISTS public.users (id int)",
			wantType:  types.ObjectTypeTable,
			wantOwner: "PUBLIC",
			wantName:  "USERS",
		},
		{
			name:      "unknown object type",
			stmt:      "CREATE CLUSTER hr.c1 (id NUMBER)",
			wantType:  types.ObjectTypeOther,
			wantOwner: "HR",
			wantName:  "C1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			h, ok := sqlutil.ParseHeader(tt.stmt)
			c.Assert(ok, qt.IsTrue)
			c.Assert(h.Type, qt.Equals, tt.wantType)
			c.Assert(h.Owner, qt.Equals, tt.wantOwner)
			c.Assert(h.Name, qt.Equals, tt.wantName)
			c.Assert(h.Body, qt.Equals, tt.wantBody)
			c.Assert(h.OrReplace, qt.Equals, tt.wantOR)
		})
	}
}

func TestParseHeader_NotAHeader(t *testing.T) {
	c := qt.New(t)

	for _, stmt := range []string{
		"",
		"SELECT 1 FROM DUAL",
		"CREATE MATERIALIZED VIEW LOG ON HR.EMP",
		"ALTER TABLE HR.EMP ADD (X NUMBER)",
		"CREATE TABLE",
	} {
		_, ok := sqlutil.ParseHeader(stmt)
		c.Assert(ok, qt.IsFalse, qt.Commentf("statement %q", stmt))
	}
}

func TestHeader_Key(t *testing.T) {
	c := qt.New(t)

	h, ok := sqlutil.ParseHeader("CREATE SEQUENCE S1 START WITH 1")
	c.Assert(ok, qt.IsTrue)
	c.Assert(h.Qualified(), qt.IsFalse)
	c.Assert(h.Key("HR"), qt.Equals, types.NewObjectKey(types.ObjectTypeSequence, "HR", "S1"))

	h, ok = sqlutil.ParseHeader(`ALTER TABLE "HR"."EMP" ADD CONSTRAINT "EMP_PK" PRIMARY KEY ("ID")`)
	c.Assert(ok, qt.IsTrue)
	c.Assert(h.Qualified(), qt.IsTrue)
	c.Assert(h.Table, qt.Equals, "EMP")
	c.Assert(h.Key("SCOTT"), qt.Equals, types.NewObjectKey(types.ObjectTypeConstraint, "HR", "EMP_PK"))
}

func TestEnsureOrReplace(t *testing.T) {
	tests := []struct {
		ddl      string
		expected string
	}{
		{ddl: "CREATE VIEW V1 AS SELECT 1 FROM DUAL", expected: "CREATE OR REPLACE VIEW V1 AS SELECT 1 FROM DUAL"},
		{ddl: "  create editionable trigger t before insert on emp begin null; end;", expected: "  create OR REPLACE editionable trigger t before insert on emp begin null; end;"},
		{ddl: "CREATE OR REPLACE VIEW V1 AS SELECT 1 FROM DUAL", expected: "CREATE OR REPLACE VIEW V1 AS SELECT 1 FROM DUAL"},
		{ddl: "BEGIN NULL; END;", expected: "BEGIN NULL; END;"},
	}

	for _, tt := range tests {
		t.Run(tt.ddl, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(sqlutil.EnsureOrReplace(tt.ddl), qt.Equals, tt.expected)
		})
	}
}

func TestConstraintTable(t *testing.T) {
	c := qt.New(t)

	owner, table, ok := sqlutil.ConstraintTable(`ALTER TABLE "HR"."EMP" ADD CONSTRAINT "EMP_PK" PRIMARY KEY ("ID")`, "EMP_PK")
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, "HR")
	c.Assert(table, qt.Equals, "EMP")

	_, _, ok = sqlutil.ConstraintTable(`ALTER TABLE "HR"."EMP" ADD CONSTRAINT "EMP_PK" PRIMARY KEY ("ID")`, "OTHER_PK")
	c.Assert(ok, qt.IsFalse)

	_, _, ok = sqlutil.ConstraintTable("", "EMP_PK")
	c.Assert(ok, qt.IsFalse)
}

func TestStripSchemaFromAllCreateStatements(t *testing.T) {
	c := qt.New(t)

	ddl := "CREATE OR REPLACE PACKAGE \"HR\".\"PKG\" AS\n  PROCEDURE run;\nEND;\n/\n" +
		"CREATE OR REPLACE PACKAGE BODY \"HR\".\"PKG\" AS\n  PROCEDURE run IS BEGIN NULL; END;\nEND;"
	got, n := sqlutil.StripSchemaFromAllCreateStatements(ddl, types.ObjectTypePackage, "PKG")
	c.Assert(n, qt.Equals, 2)
	c.Assert(got, qt.Equals, "CREATE OR REPLACE PACKAGE \"PKG\" AS\n  PROCEDURE run;\nEND;\n/\n"+
		"CREATE OR REPLACE PACKAGE BODY \"PKG\" AS\n  PROCEDURE run IS BEGIN NULL; END;\nEND;")

	got, n = sqlutil.StripSchemaFromAllCreateStatements("SELECT 1 FROM DUAL", types.ObjectTypeView, "V1")
	c.Assert(n, qt.Equals, 0)
	c.Assert(got, qt.Equals, "SELECT 1 FROM DUAL")
}

func TestEnsureOrReplaceAll(t *testing.T) {
	c := qt.New(t)

	ddl := "CREATE TYPE T1 AS OBJECT (A NUMBER);\n/\nCREATE TYPE BODY T1 AS END;"
	c.Assert(sqlutil.EnsureOrReplaceAll(ddl), qt.Equals,
		"CREATE OR REPLACE TYPE T1 AS OBJECT (A NUMBER);\n/\nCREATE OR REPLACE TYPE BODY T1 AS END;")
	c.Assert(sqlutil.EnsureOrReplaceAll("CREATE OR REPLACE VIEW V1 AS SELECT 1 FROM DUAL"), qt.Equals,
		"CREATE OR REPLACE VIEW V1 AS SELECT 1 FROM DUAL")
}

func TestObjectTable(t *testing.T) {
	tests := []struct {
		name       string
		ddl        string
		objectType types.ObjectType
		object     string
		expected   string
		wantOK     bool
	}{
		{name: "index", ddl: `CREATE UNIQUE INDEX "HR"."EMP_IX" ON "HR"."EMP" ("ID")`, objectType: types.ObjectTypeIndex, object: "EMP_IX", expected: "EMP", wantOK: true},
		{name: "postgres trigger", ddl: "CREATE TRIGGER audit_emp AFTER UPDATE OF salary ON public.emp FOR EACH ROW EXECUTE FUNCTION audit()", objectType: types.ObjectTypeTrigger, object: "AUDIT_EMP", expected: "EMP", wantOK: true},
		{name: "constraint", ddl: "ALTER TABLE HR.EMP ADD CONSTRAINT EMP_PK PRIMARY KEY (ID)", objectType: types.ObjectTypeConstraint, object: "EMP_PK", expected: "EMP", wantOK: true},
		{name: "database event trigger", ddl: "CREATE TRIGGER LOGON_T AFTER LOGON ON DATABASE BEGIN NULL; END;", objectType: types.ObjectTypeTrigger, object: "LOGON_T", expected: "DATABASE", wantOK: true},
		{name: "view has no table", ddl: "CREATE VIEW V1 AS SELECT 1 FROM DUAL", objectType: types.ObjectTypeView, object: "V1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			table, ok := sqlutil.ObjectTable(tt.ddl, tt.objectType, tt.object)
			c.Assert(ok, qt.Equals, tt.wantOK)
			c.Assert(table, qt.Equals, tt.expected)
		})
	}
}
