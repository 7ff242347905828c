package planner

import (
	"fmt"

	"github.com/stokaro/ddldiff/core/sqlutil"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// Execution order buckets. Scripts run in ascending bucket order; ties are broken by
// file name.
const (
	OrderDropBeforeRecreate = 10
	OrderDrop               = 20
	OrderCreate             = 30
	OrderReplace            = 40
	OrderReview             = 50
)

// Action is the leading token of a script's file name.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionDrop            Action = "DROP"
	ActionModifyOrReplace Action = "MODIFY_OR_REPLACE"
	ActionReview          Action = "REVIEW"
	ActionDropModified    Action = "DROP_MODIFIED"
	ActionCreateModified  Action = "CREATE_MODIFIED"
)

// MigrationScript is one generated SQL script.
type MigrationScript struct {
	ObjectType     dbtypes.ObjectType       `json:"object_type"`
	ObjectOwner    string                   `json:"object_owner"`
	ObjectName     string                   `json:"object_name"`
	DifferenceType difftypes.DifferenceType `json:"difference_type"`
	Action         Action                   `json:"action"`
	FileName       string                   `json:"file_name"`
	Content        string                   `json:"content"`
	ExecutionOrder int                      `json:"execution_order"`
}

// Key returns the key of the object the script is about.
func (s MigrationScript) Key() dbtypes.ObjectKey {
	return dbtypes.NewObjectKey(s.ObjectType, s.ObjectOwner, s.ObjectName)
}

// FileName builds <ACTION>_<OBJECT_TYPE>_<SANITIZED_NAME>.sql.
func FileName(action Action, objectType dbtypes.ObjectType, objectName string) string {
	return fmt.Sprintf("%s_%s_%s.sql", action, objectType, sqlutil.SanitizeFileName(objectName))
}

// newScript builds a script for d. The body is terminated with a slash line.
func newScript(d difftypes.Difference, action Action, order int, body string) MigrationScript {
	return MigrationScript{
		ObjectType:     d.ObjectType,
		ObjectOwner:    d.ObjectOwner,
		ObjectName:     d.ObjectName,
		DifferenceType: d.Type,
		Action:         action,
		FileName:       FileName(action, d.ObjectType, d.ObjectName),
		Content:        sqlutil.TerminateScript(body),
		ExecutionOrder: order,
	}
}
