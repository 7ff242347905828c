package formatter

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/stokaro/ddldiff/core/sqlutil"
)

var upperBareIdentifier = regexp.MustCompile(`^[A-Z][A-Z0-9_$#]*$`)

// Token canonicalizes DDL at the lexical level. It drops comments, collapses
// whitespace to single spaces, upper-cases unquoted words, unquotes quoted
// identifiers whose unquoted form would denote the same name, removes the
// statement terminator and applies Unicode NFC normalization. String literals are
// kept byte for byte.
type Token struct{}

func (Token) Format(ddl string) (string, error) {
	tokens, err := sqlutil.Tokenize(norm.NFC.String(ddl))
	if err != nil {
		return "", &FormatError{Formatter: NameToken, Err: err}
	}

	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch t.Kind {
		case sqlutil.TokenWhitespace, sqlutil.TokenComment:
			continue
		case sqlutil.TokenWord:
			parts = append(parts, strings.ToUpper(t.Text))
		case sqlutil.TokenQuotedIdent:
			if name := sqlutil.Unquote(t.Text); upperBareIdentifier.MatchString(name) {
				parts = append(parts, name)
				continue
			}
			parts = append(parts, t.Text)
		default:
			parts = append(parts, t.Text)
		}
	}

	for len(parts) > 0 && (parts[len(parts)-1] == ";" || parts[len(parts)-1] == "/") {
		parts = parts[:len(parts)-1]
	}

	var sb strings.Builder
	for i, p := range parts {
		if i > 0 && needsSpace(parts[i-1], p) {
			sb.WriteByte(' ')
		}
		sb.WriteString(p)
	}

	return strings.TrimSpace(norm.NFC.String(sb.String())), nil
}

func needsSpace(prev, next string) bool {
	switch next {
	case ",", ")", ";", ".":
		return false
	}
	switch prev {
	case "(", ".":
		return false
	}
	return true
}
