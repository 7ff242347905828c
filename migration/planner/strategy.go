package planner

import (
	"fmt"
	"strings"

	"github.com/stokaro/ddldiff/core/sqlutil"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// Strategy turns one difference into scripts. Problems that do not stop script
// generation come back as warnings.
type Strategy func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning)

// DropStatement renders the statement that removes the object of d. ok is false
// when the object cannot be dropped automatically; stmt then explains why.
type DropStatement func(d difftypes.Difference) (stmt string, ok bool)

// Create emits the target DDL at OrderCreate. With rewriteHeader the owner
// qualifier is removed from the CREATE header so the script runs in whatever schema
// it is deployed to.
func Create(rewriteHeader bool) Strategy {
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		body, warnings := targetBody(d, rewriteHeader, "create")
		return []MigrationScript{newScript(d, ActionCreate, OrderCreate, body)}, warnings
	}
}

// Drop emits the statement built by stmt at OrderDrop.
func Drop(stmt DropStatement) Strategy {
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		body, ok := stmt(d)
		var warnings []dbtypes.Warning
		if !ok {
			warnings = append(warnings, dbtypes.NewWarning(dbtypes.WarningMissingDDL, d.Key().String(),
				"no drop statement can be generated for %s; the script holds a placeholder", describe(d)))
			body = sqlutil.CommentLines(body)
		}
		return []MigrationScript{newScript(d, ActionDrop, OrderDrop, body)}, warnings
	}
}

// Replace re-creates the object in place with CREATE OR REPLACE at OrderReplace.
func Replace() Strategy {
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		body, warnings := targetBody(d, true, "replace")
		if !isPlaceholder(warnings) {
			body = sqlutil.EnsureOrReplaceAll(body)
		}
		return []MigrationScript{newScript(d, ActionModifyOrReplace, OrderReplace, body)}, warnings
	}
}

// Recreate drops the object at OrderDropBeforeRecreate and creates the target
// definition at OrderReplace. With rewriteHeader the owner qualifier is removed from
// the CREATE header; otherwise the target DDL is used as is.
func Recreate(stmt DropStatement, rewriteHeader bool) Strategy {
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		var warnings []dbtypes.Warning

		drop, ok := stmt(d)
		if !ok {
			warnings = append(warnings, dbtypes.NewWarning(dbtypes.WarningMissingDDL, d.Key().String(),
				"no drop statement can be generated for %s; the script holds a placeholder", describe(d)))
			drop = sqlutil.CommentLines(drop)
		}

		create, createWarnings := targetBody(d, rewriteHeader, "create")
		warnings = append(warnings, createWarnings...)

		return []MigrationScript{
			newScript(d, ActionDropModified, OrderDropBeforeRecreate, drop),
			newScript(d, ActionCreateModified, OrderReplace, create),
		}, warnings
	}
}

// Review emits a commented-out script at OrderReview holding both definitions and
// the rationale for not changing the object automatically.
func Review(rationale string) Strategy {
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		return []MigrationScript{newScript(d, ActionReview, OrderReview, reviewBody(d, rationale))}, nil
	}
}

// ReplaceIfMarked replaces the object when the target DDL already reads CREATE OR
// REPLACE and falls back to a review script otherwise.
func ReplaceIfMarked(rationale string) Strategy {
	review := Review(rationale)
	return func(d difftypes.Difference) ([]MigrationScript, []dbtypes.Warning) {
		if !strings.Contains(strings.ToUpper(d.Target()), "CREATE OR REPLACE") {
			return review(d)
		}
		body, warnings := targetBody(d, true, "replace")
		return []MigrationScript{newScript(d, ActionModifyOrReplace, OrderReplace, body)}, warnings
	}
}

// targetBody returns the target DDL of d ready to be emitted, or a placeholder when
// no DDL was captured.
func targetBody(d difftypes.Difference, rewriteHeader bool, verb string) (string, []dbtypes.Warning) {
	ddl := d.Target()
	if strings.TrimSpace(ddl) == "" {
		w := dbtypes.NewWarning(dbtypes.WarningMissingDDL, d.Key().String(),
			"no DDL captured; the %s script holds a placeholder", verb)
		return fmt.Sprintf("-- No DDL was captured for %s; nothing to %s.", describe(d), verb), []dbtypes.Warning{w}
	}
	if !rewriteHeader || !hasCreateHeader(d.ObjectType) {
		return ddl, nil
	}

	rewritten, n := sqlutil.StripSchemaFromAllCreateStatements(ddl, d.ObjectType, d.ObjectName)
	if n == 0 {
		w := dbtypes.NewWarning(dbtypes.WarningUnmatchedRewrite, d.Key().String(),
			"no %s header for %s found; DDL is emitted unchanged", d.ObjectType.DDLKeyword(), d.ObjectName)
		return ddl, []dbtypes.Warning{w}
	}
	return rewritten, nil
}

// hasCreateHeader reports whether DDL of the type starts with a recognizable header.
// Jobs, queues and the like are created by package calls.
func hasCreateHeader(t dbtypes.ObjectType) bool {
	switch t {
	case dbtypes.ObjectTypeJob, dbtypes.ObjectTypeQueue, dbtypes.ObjectTypeScheduler,
		dbtypes.ObjectTypeXMLSchema, dbtypes.ObjectTypeOther:
		return false
	}
	return true
}

func isPlaceholder(warnings []dbtypes.Warning) bool {
	for _, w := range warnings {
		if w.Kind == dbtypes.WarningMissingDDL {
			return true
		}
	}
	return false
}

func reviewBody(d difftypes.Difference, rationale string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- Manual review required for %s.\n", describe(d))
	sb.WriteString(sqlutil.CommentLines(rationale))
	sb.WriteString("\n--\n-- Source DDL:\n")
	sb.WriteString(commentedDDL(d.Source()))
	sb.WriteString("\n--\n-- Target DDL:\n")
	sb.WriteString(commentedDDL(d.Target()))
	return sb.String()
}

func commentedDDL(ddl string) string {
	if strings.TrimSpace(ddl) == "" {
		return "-- (none captured)"
	}
	return sqlutil.CommentLines(ddl)
}

// describe renders "TYPE OWNER.NAME" for messages and comments.
func describe(d difftypes.Difference) string {
	return fmt.Sprintf("%s %s.%s", d.ObjectType.DDLKeyword(), d.ObjectOwner, d.ObjectName)
}
