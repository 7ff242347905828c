// Package formatter provides the canonicalizers used to decide whether two DDL
// texts are equivalent.
//
// A Formatter must be deterministic and idempotent for input it accepts:
// Format(Format(x)) == Format(x). Input it cannot handle is rejected with a
// *FormatError, never with a partially formatted result.
package formatter

import (
	"fmt"
	"strings"
)

const (
	NameToken    = "token"
	NamePostgres = "postgres"
	NameRaw      = "raw"
)

// Formatter turns DDL text into its canonical form.
type Formatter interface {
	Format(ddl string) (string, error)
}

// FormatError reports DDL a formatter could not canonicalize.
type FormatError struct {
	Formatter string
	Err       error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s formatter: %v", e.Formatter, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Raw is the identity formatter. Comparisons made with it are exact text
// comparisons.
type Raw struct{}

func (Raw) Format(ddl string) (string, error) {
	return ddl, nil
}

// Default returns the formatter used when none is configured.
func Default() Formatter {
	return Token{}
}

// ByName returns the formatter registered under name. An empty name selects the
// default formatter.
func ByName(name string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameToken:
		return Token{}, nil
	case NamePostgres, "pg_query":
		return Postgres{}, nil
	case NameRaw:
		return Raw{}, nil
	default:
		return nil, fmt.Errorf("unknown formatter %q", name)
	}
}
