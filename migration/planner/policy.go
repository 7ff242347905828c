package planner

import (
	"fmt"
	"strings"

	"github.com/stokaro/ddldiff/core/sqlutil"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// Policy holds the strategies applied to one object type.
type Policy struct {
	Create Strategy
	Drop   Strategy
	Modify Strategy
}

// Review rationales. They end up verbatim in the emitted review scripts.
const (
	RationaleTable = "Tables are not changed automatically because re-creating a table loses its data.\n" +
		"Write the ALTER TABLE statements that take the source definition to the target definition."
	RationaleSequence = "Sequences are not re-created automatically because re-creating a sequence resets its current value.\n" +
		"Use ALTER SEQUENCE to apply the changed attributes."
	RationaleNotReplaceable = "The target definition does not use CREATE OR REPLACE, so it cannot be applied in place.\n" +
		"Drop and re-create the object by hand or write the ALTER statements it needs."
)

// DefaultPolicies returns the policy table used when no dialect overrides apply.
// Every member of the closed object type set has an entry.
func DefaultPolicies() map[dbtypes.ObjectType]Policy {
	replace := Policy{Create: Create(true), Drop: Drop(DropObject), Modify: Replace()}

	policies := map[dbtypes.ObjectType]Policy{
		dbtypes.ObjectTypeTable: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: Review(RationaleTable),
		},
		dbtypes.ObjectTypeSequence: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: Review(RationaleSequence),
		},
		dbtypes.ObjectTypeIndex: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: Recreate(DropObject, false),
		},
		dbtypes.ObjectTypeView:       replace,
		dbtypes.ObjectTypeProcedure:  replace,
		dbtypes.ObjectTypeFunction:   replace,
		dbtypes.ObjectTypePackage:    replace,
		dbtypes.ObjectTypeType:       replace,
		dbtypes.ObjectTypeTrigger:    replace,
		dbtypes.ObjectTypeJavaSource: replace,
		dbtypes.ObjectTypeLibrary:    replace,
		dbtypes.ObjectTypeSynonym: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: replaceSynonym(),
		},
		dbtypes.ObjectTypeMaterializedView: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeDatabaseLink: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeDirectory: {
			Create: Create(true),
			Drop:   Drop(DropObject),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeConstraint: {
			Create: Create(true),
			Drop:   Drop(DropConstraint),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeJob: {
			Create: Create(false),
			Drop:   Drop(DropJob),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeQueue: {
			Create: Create(false),
			Drop:   Drop(DropQueue),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeXMLSchema: {
			Create: Create(false),
			Drop:   Drop(DropXMLSchema),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
		dbtypes.ObjectTypeScheduler: {
			Create: Create(false),
			Drop:   Drop(NoDrop),
			Modify: ReplaceIfMarked(RationaleNotReplaceable),
		},
	}
	policies[dbtypes.ObjectTypeOther] = FallbackPolicy()
	return policies
}

// FallbackPolicy applies to OTHER and to any type missing from a policy table.
func FallbackPolicy() Policy {
	return Policy{
		Create: Create(false),
		Drop:   Drop(NoDrop),
		Modify: ReplaceIfMarked(RationaleNotReplaceable),
	}
}

// replaceSynonym replaces private synonyms in place. A public synonym is replaced
// only when its target DDL already reads CREATE OR REPLACE.
func replaceSynonym() Strategy {
	private := Replace()
	public := ReplaceIfMarked(RationaleNotReplaceable)
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		if isPublic(d) {
			return public(d)
		}
		return private(d)
	}
}

// DropObject renders DROP <keyword> <name>. Public synonyms and public database
// links get the PUBLIC modifier.
func DropObject(d difftypes.Difference) (string, bool) {
	keyword := d.ObjectType.DDLKeyword()
	if isPublic(d) && (d.ObjectType == dbtypes.ObjectTypeSynonym || d.ObjectType == dbtypes.ObjectTypeDatabaseLink) {
		keyword = "PUBLIC " + keyword
	}
	return fmt.Sprintf("DROP %s %s", keyword, sqlutil.QuoteIdentifier(d.ObjectName)), true
}

// DropConstraint renders ALTER TABLE <table> DROP CONSTRAINT <name>. The table is
// read from the ADD CONSTRAINT statement captured in the source DDL.
func DropConstraint(d difftypes.Difference) (string, bool) {
	_, table, ok := sqlutil.ConstraintTable(d.Source(), d.ObjectName)
	if !ok {
		return fmt.Sprintf("Cannot drop constraint %s: its table is not named in the captured DDL.\n"+
			"ALTER TABLE <table> DROP CONSTRAINT %s", d.ObjectName, sqlutil.QuoteIdentifier(d.ObjectName)), false
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		sqlutil.QuoteIdentifier(table), sqlutil.QuoteIdentifier(d.ObjectName)), true
}

// DropJob drops a scheduler job.
func DropJob(d difftypes.Difference) (string, bool) {
	return fmt.Sprintf("BEGIN\n  DBMS_SCHEDULER.DROP_JOB(job_name => %s);\nEND;", literal(d.ObjectName)), true
}

// DropQueue stops and drops an advanced queue.
func DropQueue(d difftypes.Difference) (string, bool) {
	name := literal(d.ObjectName)
	return fmt.Sprintf("BEGIN\n  DBMS_AQADM.STOP_QUEUE(queue_name => %s);\n  DBMS_AQADM.DROP_QUEUE(queue_name => %s);\nEND;", name, name), true
}

// DropXMLSchema deletes a registered XML schema. The object name is the schema URL.
func DropXMLSchema(d difftypes.Difference) (string, bool) {
	return fmt.Sprintf("BEGIN\n  DBMS_XMLSCHEMA.DELETESCHEMA(schemaurl => %s, delete_option => DBMS_XMLSCHEMA.DELETE_CASCADE);\nEND;",
		stringLiteral(d.ObjectName)), true
}

// NoDrop is used for types without a known drop statement.
func NoDrop(d difftypes.Difference) (string, bool) {
	return fmt.Sprintf("Cannot drop %s automatically: no drop statement is known for this object type.", describe(d)), false
}

func isPublic(d difftypes.Difference) bool {
	return strings.EqualFold(d.ObjectOwner, dbtypes.PublicOwner)
}

// literal renders an object name as a string literal. Names that need quoting as
// identifiers are passed in quoted form so the called procedure keeps their case.
func literal(name string) string {
	return stringLiteral(sqlutil.QuoteIdentifier(name))
}

func stringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
