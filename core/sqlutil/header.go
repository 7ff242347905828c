package sqlutil

import (
	"strings"

	"github.com/stokaro/ddldiff/dbschema/types"
)

// headerModifiers are the words that may sit between CREATE [OR REPLACE] and the
// object type keyword.
var headerModifiers = map[string]bool{
	"FORCE":          true,
	"NOFORCE":        true,
	"NO":             true,
	"EDITIONABLE":    true,
	"NONEDITIONABLE": true,
	"EDITIONING":     true,
	"UNIQUE":         true,
	"BITMAP":         true,
	"MULTIVALUE":     true,
	"GLOBAL":         true,
	"PRIVATE":        true,
	"TEMPORARY":      true,
	"SHARED":         true,
	"PUBLIC":         true,
	"AND":            true,
	"COMPILE":        true,
	"RESOLVE":        true,
	"NOCOMPILE":      true,
	"SHARDED":        true,
	"DUPLICATED":     true,
	"IMMUTABLE":      true,
	"BLOCKCHAIN":     true,
}

type typeKeyword struct {
	words      []string
	objectType types.ObjectType
}

// typeKeywords lists multi-word keywords before single words so the longest
// keyword wins.
var typeKeywords = []typeKeyword{
	{words: []string{"MATERIALIZED", "VIEW"}, objectType: types.ObjectTypeMaterializedView},
	{words: []string{"DATABASE", "LINK"}, objectType: types.ObjectTypeDatabaseLink},
	{words: []string{"JAVA", "SOURCE"}, objectType: types.ObjectTypeJavaSource},
	{words: []string{"TABLE"}, objectType: types.ObjectTypeTable},
	{words: []string{"VIEW"}, objectType: types.ObjectTypeView},
	{words: []string{"INDEX"}, objectType: types.ObjectTypeIndex},
	{words: []string{"TRIGGER"}, objectType: types.ObjectTypeTrigger},
	{words: []string{"PROCEDURE"}, objectType: types.ObjectTypeProcedure},
	{words: []string{"FUNCTION"}, objectType: types.ObjectTypeFunction},
	{words: []string{"PACKAGE"}, objectType: types.ObjectTypePackage},
	{words: []string{"SEQUENCE"}, objectType: types.ObjectTypeSequence},
	{words: []string{"SYNONYM"}, objectType: types.ObjectTypeSynonym},
	{words: []string{"DIRECTORY"}, objectType: types.ObjectTypeDirectory},
	{words: []string{"TYPE"}, objectType: types.ObjectTypeType},
	{words: []string{"LIBRARY"}, objectType: types.ObjectTypeLibrary},
}

// Header is a recognized statement header:
//
//	CREATE [OR REPLACE] [modifiers] <type keywords> [BODY] [owner.]name
//	ALTER TABLE [owner.]table ADD CONSTRAINT name
//
// Owner and Name hold the identifier values (quoted identifiers keep their case,
// bare identifiers are upper-cased).
type Header struct {
	Verb      string
	OrReplace bool
	Public    bool
	Type      types.ObjectType
	Keyword   string
	Body      bool
	Owner     string
	Name      string

	// Table is the table an ALTER TABLE ... ADD CONSTRAINT header alters (Owner is
	// then the table's owner), or the table named by the ON clause of an index or
	// trigger.
	Table string

	verbEnd    int
	ownerStart int
	nameStart  int
	nameEnd    int
}

// Qualified reports whether the header names an explicit owner.
func (h Header) Qualified() bool {
	return h.ownerStart >= 0
}

// Key returns the object key the header declares. Unqualified headers take
// defaultOwner.
func (h Header) Key(defaultOwner string) types.ObjectKey {
	owner := h.Owner
	if owner == "" {
		owner = defaultOwner
	}
	return types.NewObjectKey(h.Type, owner, h.Name)
}

// ParseHeader recognizes the header of a single statement. The statement must start
// with CREATE or ALTER TABLE ... ADD CONSTRAINT, after optional comments.
// CREATE statements of a type outside the closed set come back as ObjectTypeOther
// with the keyword in Keyword.
func ParseHeader(stmt string) (Header, bool) {
	tokens, _ := Tokenize(stmt)
	sig := significant(tokens)
	if len(sig) == 0 {
		return Header{}, false
	}
	return parseHeaderAt(sig, 0, true)
}

// FindCreateHeader returns the first header in ddl that declares an object of the
// given type and name. An empty name matches any name. Headers are recognized on
// token boundaries only, so text inside literals and comments never matches.
func FindCreateHeader(ddl string, objectType types.ObjectType, name string) (Header, bool) {
	headers := findCreateHeaders(ddl, objectType, name)
	if len(headers) == 0 {
		return Header{}, false
	}
	return headers[0], true
}

// StripSchemaFromCreateStatement removes the owner qualifier from the first header
// declaring objectType/name, keeping the quoting of the object name. The body of the
// statement is left untouched. When no such header exists ddl is returned unchanged
// and matched is false.
func StripSchemaFromCreateStatement(ddl string, objectType types.ObjectType, name string) (rewritten string, matched bool) {
	h, ok := FindCreateHeader(ddl, objectType, name)
	if !ok {
		return ddl, false
	}
	if !h.Qualified() {
		return ddl, true
	}
	return ddl[:h.ownerStart] + ddl[h.nameStart:], true
}

// StripSchemaFromAllCreateStatements strips the owner qualifier from every header
// declaring objectType/name, so a package specification and its body lose their
// qualifiers together. It returns the number of matching headers.
func StripSchemaFromAllCreateStatements(ddl string, objectType types.ObjectType, name string) (string, int) {
	headers := findCreateHeaders(ddl, objectType, name)
	for i := len(headers) - 1; i >= 0; i-- {
		h := headers[i]
		if h.Qualified() {
			ddl = ddl[:h.ownerStart] + ddl[h.nameStart:]
		}
	}
	return ddl, len(headers)
}

// EnsureOrReplaceAll is EnsureOrReplace applied to every CREATE header of ddl.
func EnsureOrReplaceAll(ddl string) string {
	tokens, _ := Tokenize(ddl)
	sig := significant(tokens)
	var inserts []int
	for i, t := range sig {
		if !t.IsWord("CREATE") {
			continue
		}
		if h, ok := parseHeaderAt(sig, i, true); ok && !h.OrReplace {
			inserts = append(inserts, h.verbEnd)
		}
	}
	for i := len(inserts) - 1; i >= 0; i-- {
		at := inserts[i]
		ddl = ddl[:at] + " OR REPLACE" + ddl[at:]
	}
	return ddl
}

func findCreateHeaders(ddl string, objectType types.ObjectType, name string) []Header {
	tokens, _ := Tokenize(ddl)
	sig := significant(tokens)
	var out []Header
	for i, t := range sig {
		if !t.IsWord("CREATE") && !(objectType == types.ObjectTypeConstraint && t.IsWord("ALTER")) {
			continue
		}
		h, ok := parseHeaderAt(sig, i, false)
		if !ok || h.Type != objectType {
			continue
		}
		if name != "" && !strings.EqualFold(h.Name, name) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// EnsureOrReplace turns the first CREATE header of ddl into CREATE OR REPLACE. Input
// without a CREATE header, or already carrying OR REPLACE, is returned unchanged.
func EnsureOrReplace(ddl string) string {
	tokens, _ := Tokenize(ddl)
	sig := significant(tokens)
	for i, t := range sig {
		if !t.IsWord("CREATE") {
			continue
		}
		h, ok := parseHeaderAt(sig, i, true)
		if !ok {
			continue
		}
		if h.OrReplace {
			return ddl
		}
		return ddl[:h.verbEnd] + " OR REPLACE" + ddl[h.verbEnd:]
	}
	return ddl
}

// ConstraintTable returns the table an ALTER TABLE ... ADD CONSTRAINT statement for
// the named constraint alters.
func ConstraintTable(ddl, constraint string) (owner, table string, ok bool) {
	h, found := FindCreateHeader(ddl, types.ObjectTypeConstraint, constraint)
	if !found {
		return "", "", false
	}
	return h.Owner, h.Table, true
}

// ObjectTable returns the table an index, trigger or constraint declared in ddl
// belongs to.
func ObjectTable(ddl string, objectType types.ObjectType, name string) (string, bool) {
	h, found := FindCreateHeader(ddl, objectType, name)
	if !found || h.Table == "" {
		return "", false
	}
	return h.Table, true
}

// parseHeaderAt parses the header starting at sig[i]. allowUnknown lets CREATE
// statements of unrecognized types through as ObjectTypeOther.
func parseHeaderAt(sig []Token, i int, allowUnknown bool) (Header, bool) {
	h := Header{ownerStart: -1}
	switch {
	case sig[i].IsWord("CREATE"):
		h.Verb = "CREATE"
	case sig[i].IsWord("ALTER"):
		return parseAlterTableAt(sig, i)
	default:
		return Header{}, false
	}
	h.verbEnd = sig[i].End()
	j := i + 1

	if j+1 < len(sig) && sig[j].IsWord("OR") && sig[j+1].IsWord("REPLACE") {
		h.OrReplace = true
		j += 2
	}
	for j < len(sig) && sig[j].Kind == TokenWord && headerModifiers[strings.ToUpper(sig[j].Text)] {
		if sig[j].IsWord("PUBLIC") {
			h.Public = true
		}
		j++
	}
	if j >= len(sig) || sig[j].Kind != TokenWord {
		return Header{}, false
	}

	matched := false
	for _, kw := range typeKeywords {
		if matchWords(sig, j, kw.words) {
			h.Type = kw.objectType
			h.Keyword = strings.Join(kw.words, " ")
			j += len(kw.words)
			matched = true
			break
		}
	}
	if !matched {
		if !allowUnknown {
			return Header{}, false
		}
		h.Type = types.ObjectTypeOther
		h.Keyword = strings.ToUpper(sig[j].Text)
		j++
	}
	if h.Type == types.ObjectTypeMaterializedView && j < len(sig) && sig[j].IsWord("LOG") {
		return Header{}, false
	}

	if j < len(sig) && sig[j].IsWord("BODY") {
		h.Body = true
		j++
	}
	if j < len(sig) && sig[j].IsWord("NAMED") {
		j++
	}
	if j < len(sig) && sig[j].IsWord("CONCURRENTLY") {
		j++
	}
	if matchWords(sig, j, []string{"IF", "NOT", "EXISTS"}) {
		j += 3
	}

	if h.Type == types.ObjectTypeDatabaseLink {
		// Link names are dotted global names, never owner-qualified.
		if !parseDottedName(sig, j, &h) {
			return Header{}, false
		}
	} else if !parseQualifiedName(sig, j, &h) {
		return Header{}, false
	}

	if h.Public && h.Owner == "" {
		h.Owner = types.PublicOwner
	}
	if h.Type == types.ObjectTypeIndex || h.Type == types.ObjectTypeTrigger {
		h.Table = onTable(sig, nextAfter(sig, h.nameEnd))
	}
	return h, true
}

// onTable returns the table of the first ON [owner.]table clause at or after sig[j],
// stopping at the end of the statement.
func onTable(sig []Token, j int) string {
	for ; j+1 < len(sig); j++ {
		if sig[j].IsPunct(";") || sig[j].IsWord("BEGIN") || sig[j].IsWord("DECLARE") {
			return ""
		}
		if !sig[j].IsWord("ON") || !sig[j+1].IsIdent() {
			continue
		}
		if j+3 < len(sig) && sig[j+2].IsPunct(".") && sig[j+3].IsIdent() {
			return identValue(sig[j+3])
		}
		return identValue(sig[j+1])
	}
	return ""
}

// parseAlterTableAt parses ALTER TABLE [owner.]table ADD CONSTRAINT name.
func parseAlterTableAt(sig []Token, i int) (Header, bool) {
	if !matchWords(sig, i, []string{"ALTER", "TABLE"}) {
		return Header{}, false
	}
	h := Header{Verb: "ALTER", Type: types.ObjectTypeConstraint, Keyword: "CONSTRAINT", ownerStart: -1}
	h.verbEnd = sig[i].End()
	j := i + 2
	if matchWords(sig, j, []string{"IF", "EXISTS"}) {
		j += 2
	}
	if j < len(sig) && sig[j].IsWord("ONLY") {
		j++
	}
	if !parseQualifiedName(sig, j, &h) {
		return Header{}, false
	}
	h.Table = h.Name
	h.Name = ""

	j = nextAfter(sig, h.nameEnd)
	if !matchWords(sig, j, []string{"ADD", "CONSTRAINT"}) {
		return Header{}, false
	}
	j += 2
	if j >= len(sig) || !sig[j].IsIdent() {
		return Header{}, false
	}
	h.Name = identValue(sig[j])
	return h, true
}

// parseQualifiedName reads [owner.]name at sig[j] into h.
func parseQualifiedName(sig []Token, j int, h *Header) bool {
	if j >= len(sig) || !sig[j].IsIdent() {
		return false
	}
	if j+2 < len(sig) && sig[j+1].IsPunct(".") && sig[j+2].IsIdent() {
		h.Owner = identValue(sig[j])
		h.ownerStart = sig[j].Pos
		h.Name = identValue(sig[j+2])
		h.nameStart = sig[j+2].Pos
		h.nameEnd = sig[j+2].End()
		return true
	}
	h.Name = identValue(sig[j])
	h.nameStart = sig[j].Pos
	h.nameEnd = sig[j].End()
	return true
}

// parseDottedName reads name(.name)* at sig[j] as a single name.
func parseDottedName(sig []Token, j int, h *Header) bool {
	if j >= len(sig) || !sig[j].IsIdent() {
		return false
	}
	parts := []string{identValue(sig[j])}
	h.nameStart = sig[j].Pos
	h.nameEnd = sig[j].End()
	for j+2 < len(sig) && sig[j+1].IsPunct(".") && sig[j+2].IsIdent() {
		parts = append(parts, identValue(sig[j+2]))
		h.nameEnd = sig[j+2].End()
		j += 2
	}
	h.Name = strings.Join(parts, ".")
	return true
}

// nextAfter returns the index of the first token in sig starting at or after offset.
func nextAfter(sig []Token, offset int) int {
	for i, t := range sig {
		if t.Pos >= offset {
			return i
		}
	}
	return len(sig)
}

func matchWords(sig []Token, j int, words []string) bool {
	if j+len(words) > len(sig) {
		return false
	}
	for k, w := range words {
		if !sig[j+k].IsWord(w) {
			return false
		}
	}
	return true
}
