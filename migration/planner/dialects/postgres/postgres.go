package postgres

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/stokaro/ddldiff/core/sqlutil"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/planner"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

const (
	// DialectName is the PostgreSQL dialect identifier
	DialectName = "postgres"
)

// RationaleType explains why changed PostgreSQL types are only reviewed.
const RationaleType = "PostgreSQL has no CREATE OR REPLACE TYPE.\n" +
	"Use ALTER TYPE to add attributes or enum values; dropping the type cascades to the columns using it."

// Policies returns the PostgreSQL overrides of the default policy table.
//
// PostgreSQL differs from the default in three places:
//
//   - materialized views cannot be replaced, so a changed one is dropped and created again
//   - types cannot be replaced either and are left for review
//   - DROP TRIGGER needs the table the trigger is attached to
//
// # Usage Example
//
//	p := planner.New(planner.WithPolicies(postgres.Policies()))
//	plan := p.GenerateScripts(diff.Differences)
func Policies() map[dbtypes.ObjectType]planner.Policy {
	return map[dbtypes.ObjectType]planner.Policy{
		dbtypes.ObjectTypeMaterializedView: {
			Create: planner.Create(true),
			Drop:   planner.Drop(planner.DropObject),
			Modify: planner.Recreate(planner.DropObject, true),
		},
		dbtypes.ObjectTypeType: {
			Create: planner.Create(true),
			Drop:   planner.Drop(planner.DropObject),
			Modify: planner.Review(RationaleType),
		},
		dbtypes.ObjectTypeTrigger: {
			Create: planner.Create(true),
			Drop:   planner.Drop(DropTrigger),
			Modify: planner.Replace(),
		},
	}
}

// DropTrigger renders DROP TRIGGER <name> ON <table>. The table is read from the
// captured source definition; the trigger name is the catalog name and is always
// quoted.
func DropTrigger(d difftypes.Difference) (string, bool) {
	table, ok := sqlutil.ObjectTable(d.Source(), dbtypes.ObjectTypeTrigger, d.ObjectName)
	if !ok {
		return fmt.Sprintf("Cannot drop trigger %s: its table is not named in the captured DDL.", d.ObjectName), false
	}
	return fmt.Sprintf("DROP TRIGGER %s ON %s", pq.QuoteIdentifier(d.ObjectName), sqlutil.QuoteIdentifier(table)), true
}
