package postgres

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/ddldiff/dbschema/types"
)

func TestTableDDL(t *testing.T) {
	c := qt.New(t)

	ddl := tableDDL("public", "Orders", []column{
		{name: "id", dataType: "bigint", notNull: true, identity: "a"},
		{name: "code", dataType: "integer", notNull: true, identity: "d"},
		{name: "status", dataType: "text", defaultTo: "'new'::text"},
		{name: "total", dataType: "numeric(10,2)", defaultTo: "(qty * price)", generated: "s"},
	})
	c.Assert(ddl, qt.Equals, `CREATE TABLE "public"."Orders" (
  "id" bigint GENERATED ALWAYS AS IDENTITY NOT NULL,
  "code" integer GENERATED BY DEFAULT AS IDENTITY NOT NULL,
  "status" text DEFAULT 'new'::text,
  "total" numeric(10,2) GENERATED ALWAYS AS ((qty * price)) STORED
)`)
}

func TestViewDDL(t *testing.T) {
	tests := []struct {
		name       string
		objectType types.ObjectType
		definition string
		expected   string
	}{
		{
			name:       "view",
			objectType: types.ObjectTypeView,
			definition: " SELECT 1 AS one;",
			expected:   "CREATE OR REPLACE VIEW \"app\".\"v1\" AS\nSELECT 1 AS one",
		},
		{
			name:       "materialized view",
			objectType: types.ObjectTypeMaterializedView,
			definition: "SELECT 1 AS one",
			expected:   "CREATE MATERIALIZED VIEW \"app\".\"v1\" AS\nSELECT 1 AS one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(viewDDL(tt.objectType, "app", "v1", tt.definition), qt.Equals, tt.expected)
		})
	}
}

func TestSequenceDDL(t *testing.T) {
	c := qt.New(t)

	s := sequence{name: "order_seq", dataType: "bigint", start: 1, min: 1, max: 9223372036854775807, increment: 1, cache: 20}
	c.Assert(sequenceDDL("public", s), qt.Equals,
		`CREATE SEQUENCE "public"."order_seq" AS bigint INCREMENT BY 1 MINVALUE 1 MAXVALUE 9223372036854775807 START WITH 1 CACHE 20 NO CYCLE`)

	s.cycle = true
	c.Assert(sequenceDDL("public", s), qt.Matches, `.* CACHE 20 CYCLE`)
}

func TestEnumDDL(t *testing.T) {
	c := qt.New(t)

	c.Assert(enumDDL("public", "mood", []string{"sad", "it's ok", "happy"}), qt.Equals,
		`CREATE TYPE "public"."mood" AS ENUM ('sad', 'it''s ok', 'happy')`)
}
