package sqlutil_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/ddldiff/core/sqlutil"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		ident    string
		expected string
	}{
		{ident: "EMP", expected: "EMP"},
		{ident: "EMP$1#", expected: "EMP$1#"},
		{ident: "emp", expected: `"emp"`},
		{ident: "My Table", expected: `"My Table"`},
		{ident: "1ABC", expected: `"1ABC"`},
		{ident: `A"B`, expected: `"A""B"`},
		{ident: `"EMP"`, expected: `"EMP"`},
		{ident: `"mixed Case"`, expected: `"mixed Case"`},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(sqlutil.QuoteIdentifier(tt.ident), qt.Equals, tt.expected)
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	c := qt.New(t)

	c.Assert(sqlutil.SanitizeFileName("emp"), qt.Equals, "EMP")
	c.Assert(sqlutil.SanitizeFileName("com/acme/Util"), qt.Equals, "COM_ACME_UTIL")
	c.Assert(sqlutil.SanitizeFileName("my table.v1-x"), qt.Equals, "MY_TABLE.V1-X")
	c.Assert(sqlutil.SanitizeFileName(`"Q$1"`), qt.Equals, "_Q_1_")
}

func TestTerminateScript(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "bare statement", body: "DROP TABLE EMP", expected: "DROP TABLE EMP\n/"},
		{name: "trailing semicolon replaced", body: "DROP TABLE EMP;  \n", expected: "DROP TABLE EMP\n/"},
		{name: "plsql keeps END;", body: "CREATE OR REPLACE PROCEDURE P AS\nBEGIN\n  NULL;\nEND;\n", expected: "CREATE OR REPLACE PROCEDURE P AS\nBEGIN\n  NULL;\nEND;\n/"},
		{name: "existing slash not doubled", body: "CREATE VIEW V1 AS SELECT 1 FROM DUAL\n/\n", expected: "CREATE VIEW V1 AS SELECT 1 FROM DUAL\n/"},
		{name: "comment only", body: "-- nothing to do", expected: "-- nothing to do\n/"},
		{name: "semicolon inside trailing comment kept", body: "-- END;", expected: "-- END;\n/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(sqlutil.TerminateScript(tt.body), qt.Equals, tt.expected)
		})
	}
}

func TestTrimTerminator(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "plain statement", body: "CREATE TABLE EMP (ID NUMBER);\n", expected: "CREATE TABLE EMP (ID NUMBER)"},
		{name: "plain statement with slash", body: "CREATE TABLE EMP (ID NUMBER)\n/\n", expected: "CREATE TABLE EMP (ID NUMBER)"},
		{name: "plsql keeps end", body: "CREATE PROCEDURE P IS BEGIN NULL; END;\n/", expected: "CREATE PROCEDURE P IS BEGIN NULL; END;"},
		{
			name:     "inner slash kept",
			body:     "CREATE PACKAGE P AS END;\n/\nCREATE PACKAGE BODY P AS END;\n/\n",
			expected: "CREATE PACKAGE P AS END;\n/\nCREATE PACKAGE BODY P AS END;",
		},
		{name: "unterminated", body: "CREATE VIEW V AS SELECT 1 FROM DUAL", expected: "CREATE VIEW V AS SELECT 1 FROM DUAL"},
		{name: "slash only", body: "/", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(sqlutil.TrimTerminator(tt.body), qt.Equals, tt.expected)
		})
	}
}

func TestCommentLines(t *testing.T) {
	c := qt.New(t)

	c.Assert(sqlutil.CommentLines("CREATE TABLE EMP (\n\n  ID NUMBER\n)\n"), qt.Equals, "-- CREATE TABLE EMP (\n--\n--   ID NUMBER\n-- )")
}
