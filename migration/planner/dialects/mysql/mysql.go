package mysql

import (
	"fmt"

	"github.com/stokaro/ddldiff/core/sqlutil"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/planner"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

const (
	// DialectName is the MySQL dialect identifier
	DialectName = "mysql"
)

// Policies returns the MySQL overrides of the default policy table.
//
// MySQL supports CREATE OR REPLACE for views only. Changed routines, triggers and
// events are therefore dropped and created again. Indexes are dropped with
// DROP INDEX ... ON <table>. Events are captured as JOB objects.
//
// Generated scripts quote identifiers with double quotes and expect the session to
// run with sql_mode ANSI_QUOTES.
//
// # Usage Example
//
//	p := planner.New(planner.WithPolicies(mysql.Policies()))
//	plan := p.GenerateScripts(diff.Differences)
func Policies() map[dbtypes.ObjectType]planner.Policy {
	recreate := planner.Policy{
		Create: planner.Create(true),
		Drop:   planner.Drop(planner.DropObject),
		Modify: planner.Recreate(planner.DropObject, true),
	}
	return map[dbtypes.ObjectType]planner.Policy{
		dbtypes.ObjectTypeProcedure: recreate,
		dbtypes.ObjectTypeFunction:  recreate,
		dbtypes.ObjectTypeTrigger:   recreate,
		dbtypes.ObjectTypeIndex: {
			Create: planner.Create(true),
			Drop:   planner.Drop(DropIndex),
			Modify: planner.Recreate(DropIndex, false),
		},
		dbtypes.ObjectTypeJob: {
			Create: planner.Create(false),
			Drop:   planner.Drop(DropEvent),
			Modify: planner.Recreate(DropEvent, false),
		},
	}
}

// DropIndex renders DROP INDEX <name> ON <table>.
func DropIndex(d difftypes.Difference) (string, bool) {
	table, ok := sqlutil.ObjectTable(d.Source(), dbtypes.ObjectTypeIndex, d.ObjectName)
	if !ok {
		return fmt.Sprintf("Cannot drop index %s: its table is not named in the captured DDL.", d.ObjectName), false
	}
	return fmt.Sprintf("DROP INDEX %s ON %s", sqlutil.QuoteIdentifier(d.ObjectName), sqlutil.QuoteIdentifier(table)), true
}

// DropEvent renders DROP EVENT IF EXISTS <name>.
func DropEvent(d difftypes.Difference) (string, bool) {
	return fmt.Sprintf("DROP EVENT IF EXISTS %s", sqlutil.QuoteIdentifier(d.ObjectName)), true
}
