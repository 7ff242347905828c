// Package normalize prepares DDL text for equality comparison.
package normalize

import (
	"errors"
	"strings"

	"github.com/stokaro/ddldiff/core/formatter"
	"github.com/stokaro/ddldiff/core/sqlutil"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
)

// Result is the outcome of canonicalizing one DDL text.
type Result struct {
	// Text is the canonical form, or the raw input when formatting failed.
	Text string
	// Canonical is false when Text is the raw fallback.
	Canonical bool
	// Warning is set when formatting failed.
	Warning *dbtypes.Warning
}

// Canonicalize formats ddl with f. A formatter failure never propagates: the raw
// text comes back with Canonical set to false and a format-failure warning for key.
func Canonicalize(f formatter.Formatter, key dbtypes.ObjectKey, ddl string) Result {
	text, err := f.Format(ddl)
	if err == nil {
		return Result{Text: text, Canonical: true}
	}

	var formatErr *formatter.FormatError
	reason := err.Error()
	if errors.As(err, &formatErr) {
		reason = formatErr.Error()
	}
	w := dbtypes.NewWarning(dbtypes.WarningFormatFailure, key.String(), "comparing raw text: %s", reason)
	return Result{Text: ddl, Warning: &w}
}

// ForComparison applies the comparison-only rewrites to ddl before it is
// canonicalized. With ignoreQualifiers set, every qualifier naming owner is removed.
func ForComparison(ddl, owner string, ignoreQualifiers bool) string {
	if !ignoreQualifiers {
		return ddl
	}
	return sqlutil.StripSchemaPrefixes(ddl, owner)
}

// Equal reports whether two DDL texts are equivalent under f, returning any
// warnings raised. When either side cannot be formatted both sides are compared as
// raw text, trimmed of surrounding whitespace.
func Equal(f formatter.Formatter, key dbtypes.ObjectKey, source, target string) (equal bool, canonical bool, warnings []dbtypes.Warning) {
	a := Canonicalize(f, key, source)
	b := Canonicalize(f, key, target)
	for _, r := range []Result{a, b} {
		if r.Warning != nil {
			warnings = append(warnings, *r.Warning)
		}
	}

	if a.Canonical && b.Canonical {
		return a.Text == b.Text, true, warnings
	}
	return strings.TrimSpace(source) == strings.TrimSpace(target), false, warnings
}
