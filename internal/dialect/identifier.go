// Package dialect carries the downstream table service's wire-syntax
// escaping primitives. Every column name the compiler emits, whether as a
// bare query-string token or embedded inside an aggregate expression,
// routes through QuoteIdentifier so exotic profile headers survive the
// round trip as identifiers rather than expressions.
package dialect

import (
	"regexp"
	"strings"
)

// simpleIdentifierRe matches column names that need no quoting at all:
// alphanumeric plus underscore, not starting with a digit.
var simpleIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsSimpleIdentifier reports whether name is non-empty, contains only
// [A-Za-z0-9_], does not start with a digit, and so can be used bare in a
// query-string key or select expression.
func IsSimpleIdentifier(name string) bool {
	return simpleIdentifierRe.MatchString(name)
}

// QuoteIdentifier wraps name in double quotes, escaping embedded double
// quotes by doubling them, so the downstream dialect treats it as a single
// identifier regardless of the characters it contains. Always quotes
// unconditionally — callers that only need quoting for exotic names should
// check IsSimpleIdentifier first.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps value in single quotes, escaping embedded single
// quotes by doubling them, for the rare case a literal must be embedded
// directly in an expression rather than passed as a separate query param.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
