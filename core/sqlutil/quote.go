package sqlutil

import (
	"regexp"
	"strings"
)

var (
	bareIdentifier  = regexp.MustCompile(`^[A-Z][A-Z0-9_$#]*$`)
	unsafeFileRunes = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// QuoteIdentifier renders an identifier for generated DDL. Upper-case identifiers
// that satisfy the unquoted identifier grammar stay bare; anything else is wrapped
// in double quotes with embedded quotes doubled. Already quoted identifiers are
// returned unchanged.
func QuoteIdentifier(ident string) string {
	if len(ident) >= 2 && strings.HasPrefix(ident, `"`) && strings.HasSuffix(ident, `"`) {
		return ident
	}
	if bareIdentifier.MatchString(ident) {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// SanitizeFileName maps every character outside [A-Za-z0-9_.-] to an underscore and
// upper-cases the result.
func SanitizeFileName(s string) string {
	return strings.ToUpper(unsafeFileRunes.ReplaceAllString(s, "_"))
}

// TerminateScript ends a script body with a line holding a single slash.
//
// A trailing semicolon of a plain statement is replaced by the slash line. PL/SQL
// units keep their final semicolon since it belongs to the END of the block. A body
// that already ends with a slash line is returned without a second one.
func TerminateScript(body string) string {
	body = strings.TrimRight(body, " \t\r\n")
	if body == "/" || strings.HasSuffix(body, "\n/") {
		return body
	}
	if endsWithSemicolon(body) && !IsPLSQLText(body) {
		body = strings.TrimRight(strings.TrimSuffix(body, ";"), " \t\r\n")
	}
	return body + "\n/"
}

// TrimTerminator removes a final slash line and, for plain statements, a final
// semicolon. Slash lines separating units inside body are kept.
func TrimTerminator(body string) string {
	body = strings.TrimRight(body, " \t\r\n")
	if body == "/" {
		return ""
	}
	if strings.HasSuffix(body, "\n/") {
		body = strings.TrimRight(strings.TrimSuffix(body, "/"), " \t\r\n")
	}
	if endsWithSemicolon(body) && !IsPLSQLText(body) {
		body = strings.TrimRight(strings.TrimSuffix(body, ";"), " \t\r\n")
	}
	return body
}

// CommentLines prefixes every line of text with a SQL line comment marker.
func CommentLines(text string) string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = "--"
			continue
		}
		lines[i] = "-- " + line
	}
	return strings.Join(lines, "\n")
}

// endsWithSemicolon reports whether the last significant token of body is a
// semicolon, so a semicolon at the end of a trailing comment does not count.
func endsWithSemicolon(body string) bool {
	if !strings.HasSuffix(body, ";") {
		return false
	}
	tokens, err := Tokenize(body)
	if err != nil || len(tokens) == 0 {
		return false
	}
	return tokens[len(tokens)-1].IsPunct(";")
}
