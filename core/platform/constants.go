package platform

import (
	"strings"
)

const (
	Oracle   = "oracle"
	Postgres = "postgres"
	MySQL    = "mysql"
)

// NormalizeDialect maps driver names and URL schemes to a dialect constant.
// It returns an empty string for unsupported dialects.
func NormalizeDialect(dialect string) string {
	switch strings.ToLower(dialect) {
	case "oracle", "ora", "go-ora":
		return Oracle
	case "pgx", "postgresql", "postgres":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	default:
		return ""
	}
}
