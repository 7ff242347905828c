package formatter

import (
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v2"
)

// Postgres canonicalizes DDL by parsing it with the PostgreSQL parser and
// deparsing the tree, so any two statements with the same parse tree compare
// equal. Statements the PostgreSQL grammar rejects yield a *FormatError.
type Postgres struct{}

func (Postgres) Format(ddl string) (string, error) {
	tree, err := pgquery.Parse(ddl)
	if err != nil {
		return "", &FormatError{Formatter: NamePostgres, Err: err}
	}
	out, err := pgquery.Deparse(tree)
	if err != nil {
		return "", &FormatError{Formatter: NamePostgres, Err: err}
	}
	return strings.TrimSpace(out), nil
}
