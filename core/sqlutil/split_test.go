package sqlutil_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/ddldiff/core/sqlutil"
)

func TestSplitSQLStatements(t *testing.T) {
	c := qt.New(t)

	script := `CREATE TABLE EMP (ID NUMBER);
-- just a comment
CREATE OR REPLACE PROCEDURE P AS
BEGIN
  NULL;
END;
/
CREATE VIEW V1 AS SELECT 'a;b' FROM DUAL;
`

	c.Assert(sqlutil.SplitSQLStatements(script), qt.DeepEquals, []string{
		"CREATE TABLE EMP (ID NUMBER)",
		"-- just a comment\nCREATE OR REPLACE PROCEDURE P AS\nBEGIN\n  NULL;\nEND;",
		"CREATE VIEW V1 AS SELECT 'a;b' FROM DUAL",
	})
}

func TestSplitSQLStatements_SlashTerminated(t *testing.T) {
	c := qt.New(t)

	script := "CREATE SEQUENCE S1\n/\nBEGIN\n  DBMS_OUTPUT.PUT_LINE('x');\nEND;\n/\n-- trailing comment\n"

	c.Assert(sqlutil.SplitSQLStatements(script), qt.DeepEquals, []string{
		"CREATE SEQUENCE S1",
		"BEGIN\n  DBMS_OUTPUT.PUT_LINE('x');\nEND;",
	})
}

func TestSplitSQLStatements_DivisionIsNotATerminator(t *testing.T) {
	c := qt.New(t)

	c.Assert(sqlutil.SplitSQLStatements("SELECT 4 / 2 FROM DUAL;"), qt.DeepEquals, []string{
		"SELECT 4 / 2 FROM DUAL",
	})
}

func TestSplitSQLStatements_Empty(t *testing.T) {
	c := qt.New(t)

	c.Assert(sqlutil.SplitSQLStatements(""), qt.HasLen, 0)
	c.Assert(sqlutil.SplitSQLStatements("-- nothing here\n"), qt.HasLen, 0)
}

func TestStripComments(t *testing.T) {
	c := qt.New(t)

	got := sqlutil.StripComments("SELECT 1 -- one\nFROM /* the */ DUAL WHERE x = '--not'")
	c.Assert(got, qt.Equals, "SELECT 1 \nFROM  DUAL WHERE x = '--not'")
}

func TestIsPLSQLText(t *testing.T) {
	tests := []struct {
		sql      string
		expected bool
	}{
		{sql: "BEGIN NULL; END;", expected: true},
		{sql: "declare x number; begin null; end;", expected: true},
		{sql: "create or replace editionable package body hr.p as end;", expected: true},
		{sql: "CREATE OR REPLACE AND COMPILE JAVA SOURCE NAMED X AS class X {}", expected: true},
		{sql: "-- header\nCREATE TRIGGER T BEFORE INSERT ON EMP BEGIN NULL; END;", expected: true},
		{sql: "CREATE TABLE T (ID NUMBER)", expected: false},
		{sql: "CREATE OR REPLACE VIEW V AS SELECT 1 FROM DUAL", expected: false},
		{sql: "DROP PROCEDURE P", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(sqlutil.IsPLSQLText(tt.sql), qt.Equals, tt.expected)
		})
	}
}
