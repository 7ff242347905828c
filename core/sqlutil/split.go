package sqlutil

import (
	"strings"
)

// StripComments removes line and block comments from sql, leaving literals intact.
// Input that cannot be tokenized is returned unchanged.
func StripComments(sql string) string {
	tokens, err := Tokenize(sql)
	if err != nil {
		return sql
	}

	var sb strings.Builder
	for _, t := range tokens {
		if t.Kind == TokenComment {
			continue
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// SplitSQLStatements splits a script into individual statements.
//
// Plain statements end at a top-level semicolon. PL/SQL units (CREATE PROCEDURE,
// FUNCTION, PACKAGE, TYPE, TRIGGER, LIBRARY, JAVA and anonymous BEGIN/DECLARE blocks)
// contain semicolons of their own and end only at a line holding a single slash.
// A slash line also ends a plain statement, so scripts written for SQL*Plus split the
// same way. Returned statements are trimmed and carry no terminator; comment-only
// fragments are dropped.
func SplitSQLStatements(sql string) []string {
	tokens, err := Tokenize(sql)
	if err != nil {
		trimmed := strings.TrimSpace(sql)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var (
		statements []string
		current    []Token
	)

	flush := func() {
		var sb strings.Builder
		for _, t := range current {
			sb.WriteString(t.Text)
		}
		current = current[:0]

		stmt := strings.TrimSpace(sb.String())
		if strings.TrimSpace(StripComments(stmt)) == "" {
			return
		}
		statements = append(statements, stmt)
	}

	for i, t := range tokens {
		if t.IsPunct("/") && slashOnOwnLine(tokens, i) {
			flush()
			continue
		}
		if t.IsPunct(";") && !IsPLSQL(current) {
			flush()
			continue
		}
		current = append(current, t)
	}
	flush()

	return statements
}

// slashOnOwnLine reports whether the slash at tokens[i] is the only significant
// token on its line.
func slashOnOwnLine(tokens []Token, i int) bool {
	if i > 0 {
		prev := tokens[i-1]
		if prev.Kind != TokenWhitespace {
			return false
		}
		if !strings.Contains(prev.Text, "\n") && i-1 != 0 {
			return false
		}
	}
	if i+1 < len(tokens) {
		next := tokens[i+1]
		if next.Kind != TokenWhitespace {
			return false
		}
		if !strings.Contains(next.Text, "\n") && i+2 < len(tokens) {
			return false
		}
	}
	return true
}

var plsqlUnits = map[string]bool{
	"PROCEDURE": true,
	"FUNCTION":  true,
	"PACKAGE":   true,
	"TYPE":      true,
	"TRIGGER":   true,
	"LIBRARY":   true,
	"JAVA":      true,
}

// IsPLSQL reports whether the statement formed by tokens is a PL/SQL unit or an
// anonymous block, judging by its first few significant words.
func IsPLSQL(tokens []Token) bool {
	seen := 0
	for _, t := range tokens {
		if !t.Significant() {
			continue
		}
		seen++
		if seen == 1 {
			if t.IsWord("BEGIN") || t.IsWord("DECLARE") {
				return true
			}
			if !t.IsWord("CREATE") {
				return false
			}
			continue
		}
		// CREATE [OR REPLACE] [modifiers...] <unit>
		if t.Kind != TokenWord {
			return false
		}
		word := strings.ToUpper(t.Text)
		if plsqlUnits[word] {
			return true
		}
		if word == "OR" || word == "REPLACE" || headerModifiers[word] {
			continue
		}
		return false
	}
	return false
}

// IsPLSQLText is IsPLSQL for raw text.
func IsPLSQLText(sql string) bool {
	tokens, _ := Tokenize(sql)
	return IsPLSQL(tokens)
}
