package sqlutil

import (
	"strings"
)

// StripSchemaPrefixes removes every owner qualifier naming owner from ddl, in both
// the bare (OWNER.name) and quoted ("OWNER"."name") forms. Qualifiers inside string
// literals and comments are kept, and so are the middle parts of longer dotted
// paths such as a.OWNER.b. Input that cannot be tokenized, or an empty owner, leaves
// ddl unchanged.
func StripSchemaPrefixes(ddl, owner string) string {
	if owner == "" {
		return ddl
	}
	tokens, err := Tokenize(ddl)
	if err != nil {
		return ddl
	}

	var sb strings.Builder
	sb.Grow(len(ddl))
	prevSignificant := -1
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.IsIdent() && strings.EqualFold(identValue(t), owner) &&
			(prevSignificant < 0 || !tokens[prevSignificant].IsPunct(".")) {
			dot := nextSignificant(tokens, i+1)
			if dot >= 0 && tokens[dot].IsPunct(".") {
				name := nextSignificant(tokens, dot+1)
				if name >= 0 && tokens[name].IsIdent() {
					i = name - 1
					continue
				}
			}
		}
		sb.WriteString(t.Text)
		if t.Significant() {
			prevSignificant = i
		}
	}
	return sb.String()
}

func nextSignificant(tokens []Token, from int) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].Significant() {
			return i
		}
	}
	return -1
}
