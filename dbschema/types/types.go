package types

import (
	"fmt"
	"strings"
)

// ObjectType is the kind of a schema object captured in a snapshot.
//
// The set is closed: any value read from a database catalog or a stored snapshot
// that is not recognized maps to ObjectTypeOther (see ParseObjectType).
type ObjectType string

const (
	ObjectTypeTable            ObjectType = "TABLE"
	ObjectTypeView             ObjectType = "VIEW"
	ObjectTypeMaterializedView ObjectType = "MATERIALIZED_VIEW"
	ObjectTypeIndex            ObjectType = "INDEX"
	ObjectTypeConstraint       ObjectType = "CONSTRAINT"
	ObjectTypeTrigger          ObjectType = "TRIGGER"
	ObjectTypeProcedure        ObjectType = "PROCEDURE"
	ObjectTypeFunction         ObjectType = "FUNCTION"
	ObjectTypePackage          ObjectType = "PACKAGE"
	ObjectTypeSequence         ObjectType = "SEQUENCE"
	ObjectTypeSynonym          ObjectType = "SYNONYM"
	ObjectTypeDatabaseLink     ObjectType = "DATABASE_LINK"
	ObjectTypeDirectory        ObjectType = "DIRECTORY_OBJECT"
	ObjectTypeJob              ObjectType = "JOB"
	ObjectTypeQueue            ObjectType = "QUEUE"
	ObjectTypeType             ObjectType = "TYPE"
	ObjectTypeJavaSource       ObjectType = "JAVA_SOURCE"
	ObjectTypeLibrary          ObjectType = "LIBRARY"
	ObjectTypeScheduler        ObjectType = "SCHEDULER"
	ObjectTypeXMLSchema        ObjectType = "XML_SCHEMA"
	ObjectTypeOther            ObjectType = "OTHER"
)

// PublicOwner is the pseudo-owner of public synonyms.
const PublicOwner = "PUBLIC"

var allObjectTypes = []ObjectType{
	ObjectTypeTable,
	ObjectTypeView,
	ObjectTypeMaterializedView,
	ObjectTypeIndex,
	ObjectTypeConstraint,
	ObjectTypeTrigger,
	ObjectTypeProcedure,
	ObjectTypeFunction,
	ObjectTypePackage,
	ObjectTypeSequence,
	ObjectTypeSynonym,
	ObjectTypeDatabaseLink,
	ObjectTypeDirectory,
	ObjectTypeJob,
	ObjectTypeQueue,
	ObjectTypeType,
	ObjectTypeJavaSource,
	ObjectTypeLibrary,
	ObjectTypeScheduler,
	ObjectTypeXMLSchema,
	ObjectTypeOther,
}

var objectTypeByName = func() map[string]ObjectType {
	m := make(map[string]ObjectType, len(allObjectTypes)+1)
	for _, t := range allObjectTypes {
		m[string(t)] = t
	}
	// The catalog reports directories under their DDL keyword.
	m["DIRECTORY"] = ObjectTypeDirectory
	return m
}()

// AllObjectTypes returns every member of the closed ObjectType set, OTHER last.
func AllObjectTypes() []ObjectType {
	out := make([]ObjectType, len(allObjectTypes))
	copy(out, allObjectTypes)
	return out
}

// ParseObjectType maps a raw object type string to an ObjectType.
//
// Matching is case-insensitive and treats spaces and hyphens as the enumeration's
// underscore separator, so "materialized view" and "DATABASE-LINK" are recognized.
// The second return value is false when the input fell back to ObjectTypeOther.
func ParseObjectType(raw string) (ObjectType, bool) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")

	if t, ok := objectTypeByName[name]; ok {
		return t, t != ObjectTypeOther || name == string(ObjectTypeOther)
	}
	return ObjectTypeOther, false
}

// DDLKeyword returns the keyword sequence that introduces this object type in DDL,
// e.g. "MATERIALIZED VIEW" or "DIRECTORY".
func (t ObjectType) DDLKeyword() string {
	if t == ObjectTypeDirectory {
		return "DIRECTORY"
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

// IsKnown reports whether t is a member of the closed set other than OTHER.
func (t ObjectType) IsKnown() bool {
	if t == ObjectTypeOther {
		return false
	}
	for _, known := range allObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ObjectType) String() string {
	return string(t)
}

// ObjectKey is the identity of a schema object inside a snapshot.
type ObjectKey struct {
	Type  ObjectType `json:"type" yaml:"type"`
	Owner string     `json:"owner" yaml:"owner"`
	Name  string     `json:"name" yaml:"name"`
}

// NewObjectKey builds a key.
func NewObjectKey(objectType ObjectType, owner, name string) ObjectKey {
	return ObjectKey{Type: objectType, Owner: owner, Name: name}
}

// String renders the key as TYPE/OWNER/NAME.
func (k ObjectKey) String() string {
	return string(k.Type) + "/" + k.Owner + "/" + k.Name
}

// Validate reports a malformed key.
func (k ObjectKey) Validate() error {
	switch {
	case k.Type == "":
		return fmt.Errorf("object key %q has no object type", k.String())
	case strings.TrimSpace(k.Owner) == "":
		return fmt.Errorf("object key %q has no owner", k.String())
	case strings.TrimSpace(k.Name) == "":
		return fmt.Errorf("object key %q has no object name", k.String())
	}
	return nil
}

// Less orders keys by type, owner and name.
func (k ObjectKey) Less(other ObjectKey) bool {
	if k.Type != other.Type {
		return k.Type < other.Type
	}
	if k.Owner != other.Owner {
		return k.Owner < other.Owner
	}
	return k.Name < other.Name
}

// ParseObjectKey decomposes a TYPE/OWNER/NAME string.
//
// The name part may itself contain slashes (Java class names do); only the first two
// separators are significant. An unrecognized type is returned as ObjectTypeOther
// together with known == false so callers can raise a warning.
func ParseObjectKey(s string) (key ObjectKey, known bool, err error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 {
		return ObjectKey{}, false, fmt.Errorf("malformed object key %q: expected TYPE/OWNER/NAME", s)
	}
	if strings.TrimSpace(parts[0]) == "" {
		return ObjectKey{}, false, fmt.Errorf("malformed object key %q: empty object type", s)
	}

	objectType, known := ParseObjectType(parts[0])
	key = ObjectKey{Type: objectType, Owner: parts[1], Name: parts[2]}
	if err := key.Validate(); err != nil {
		return ObjectKey{}, false, fmt.Errorf("malformed object key: %w", err)
	}
	return key, known, nil
}
