// Package sqlutil provides text-level SQL helpers shared by the diff engine and the
// script planner: a lexical tokenizer, comment stripping, statement splitting and
// recognition of statement headers.
//
// None of the helpers parse SQL semantically. They understand exactly enough lexical
// structure (string literals, quoted identifiers, comments) to avoid touching text
// that merely looks like SQL inside a literal or a comment.
package sqlutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenWhitespace TokenKind = iota
	TokenComment
	TokenString
	TokenQuotedIdent
	TokenWord
	TokenNumber
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenWhitespace:
		return "whitespace"
	case TokenComment:
		return "comment"
	case TokenString:
		return "string"
	case TokenQuotedIdent:
		return "quoted identifier"
	case TokenWord:
		return "word"
	case TokenNumber:
		return "number"
	case TokenPunct:
		return "punctuation"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a lexical token with its byte offset in the input.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Pos + len(t.Text)
}

// IsWord reports whether t is the unquoted word w, compared case-insensitively.
func (t Token) IsWord(w string) bool {
	return t.Kind == TokenWord && strings.EqualFold(t.Text, w)
}

// IsPunct reports whether t is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

// IsIdent reports whether t can name an object (bare word or quoted identifier).
func (t Token) IsIdent() bool {
	return t.Kind == TokenWord || t.Kind == TokenQuotedIdent
}

// Significant reports whether t carries meaning (neither whitespace nor a comment).
func (t Token) Significant() bool {
	return t.Kind != TokenWhitespace && t.Kind != TokenComment
}

// SyntaxError reports input the tokenizer cannot split into tokens.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sql syntax error at offset %d: %s", e.Pos, e.Msg)
}

// Tokenize splits sql into tokens. Concatenating the Text of all returned tokens
// reproduces the input exactly.
//
// On malformed input (an unterminated literal, quoted identifier or block comment)
// Tokenize returns the tokens recognized before the problem together with a
// *SyntaxError, so header-level callers can still inspect the start of a statement.
func Tokenize(sql string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(sql) {
		r, size := utf8.DecodeRuneInString(sql[i:])
		start := i

		switch {
		case unicode.IsSpace(r):
			for i < len(sql) {
				r, size = utf8.DecodeRuneInString(sql[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, Token{Kind: TokenWhitespace, Text: sql[start:i], Pos: start})

		case r == '-' && strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
			} else {
				i += end
			}
			tokens = append(tokens, Token{Kind: TokenComment, Text: sql[start:i], Pos: start})

		case r == '/' && strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return tokens, &SyntaxError{Pos: start, Msg: "unterminated block comment"}
			}
			i += 2 + end + 2
			tokens = append(tokens, Token{Kind: TokenComment, Text: sql[start:i], Pos: start})

		case r == '\'':
			end, err := scanQuoted(sql, i, '\'')
			if err != nil {
				return tokens, err
			}
			i = end
			tokens = append(tokens, Token{Kind: TokenString, Text: sql[start:i], Pos: start})

		case r == '"':
			end, err := scanQuoted(sql, i, '"')
			if err != nil {
				return tokens, err
			}
			i = end
			tokens = append(tokens, Token{Kind: TokenQuotedIdent, Text: sql[start:i], Pos: start})

		case (r == 'q' || r == 'Q') && i+2 < len(sql) && sql[i+1] == '\'':
			end, err := scanAlternativeQuote(sql, i)
			if err != nil {
				return tokens, err
			}
			i = end
			tokens = append(tokens, Token{Kind: TokenString, Text: sql[start:i], Pos: start})

		case (r == 'n' || r == 'N') && i+1 < len(sql) && sql[i+1] == '\'':
			end, err := scanQuoted(sql, i+1, '\'')
			if err != nil {
				return tokens, err
			}
			i = end
			tokens = append(tokens, Token{Kind: TokenString, Text: sql[start:i], Pos: start})

		case unicode.IsLetter(r) || r == '_':
			i += size
			for i < len(sql) {
				r, size = utf8.DecodeRuneInString(sql[i:])
				if !isWordRune(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, Token{Kind: TokenWord, Text: sql[start:i], Pos: start})

		case r >= '0' && r <= '9':
			i = scanNumber(sql, i)
			tokens = append(tokens, Token{Kind: TokenNumber, Text: sql[start:i], Pos: start})

		default:
			i += size
			tokens = append(tokens, Token{Kind: TokenPunct, Text: sql[start:i], Pos: start})
		}
	}
	return tokens, nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '#'
}

// scanQuoted scans a literal opened by quote at offset i. A doubled quote escapes
// itself. It returns the offset just past the closing quote.
func scanQuoted(sql string, i int, quote byte) (int, error) {
	j := i + 1
	for j < len(sql) {
		if sql[j] == quote {
			if j+1 < len(sql) && sql[j+1] == quote {
				j += 2
				continue
			}
			return j + 1, nil
		}
		j++
	}
	what := "string literal"
	if quote == '"' {
		what = "quoted identifier"
	}
	return 0, &SyntaxError{Pos: i, Msg: "unterminated " + what}
}

// scanAlternativeQuote scans an Oracle q'Xtext X' literal starting at offset i.
func scanAlternativeQuote(sql string, i int) (int, error) {
	open, size := utf8.DecodeRuneInString(sql[i+2:])
	closing := open
	switch open {
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	case '(':
		closing = ')'
	case '<':
		closing = '>'
	}
	terminator := string(closing) + "'"
	bodyStart := i + 2 + size
	end := strings.Index(sql[bodyStart:], terminator)
	if end < 0 {
		return 0, &SyntaxError{Pos: i, Msg: "unterminated q-quoted literal"}
	}
	return bodyStart + end + len(terminator), nil
}

func scanNumber(sql string, i int) int {
	for i < len(sql) && (isDigit(sql[i]) || sql[i] == '.') {
		i++
	}
	if i < len(sql) && (sql[i] == 'e' || sql[i] == 'E') {
		j := i + 1
		if j < len(sql) && (sql[j] == '+' || sql[j] == '-') {
			j++
		}
		if j < len(sql) && isDigit(sql[j]) {
			for j < len(sql) && isDigit(sql[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// significant returns the tokens that are neither whitespace nor comments.
func significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Significant() {
			out = append(out, t)
		}
	}
	return out
}

// Unquote returns the identifier text without surrounding double quotes, with doubled
// quotes collapsed. Bare identifiers are returned unchanged.
func Unquote(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return strings.ReplaceAll(ident[1:len(ident)-1], `""`, `"`)
	}
	return ident
}

// identValue returns the name an identifier token denotes: quoted identifiers keep
// their case, bare identifiers fold to upper case.
func identValue(t Token) string {
	if t.Kind == TokenQuotedIdent {
		return Unquote(t.Text)
	}
	return strings.ToUpper(t.Text)
}
