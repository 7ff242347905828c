// Package config provides configuration options for the ddldiff comparison and
// script generation engine.
//
// Library callers build options programmatically (CompareOptions and its
// constructors). The command line tool additionally loads Settings from an optional
// settings file and DDLDIFF_* environment variables.
package config

import (
	"log/slog"
	"slices"

	"github.com/stokaro/ddldiff/core/formatter"
	"github.com/stokaro/ddldiff/dbschema/types"
)

// CompareOptions contains configuration options for snapshot comparison.
type CompareOptions struct {
	// Formatter canonicalizes DDL before two texts are compared. Nil selects the
	// token formatter.
	Formatter formatter.Formatter

	// IgnoreSchemaQualifiers removes every qualifier naming the snapshot owner from
	// both DDL texts before canonicalization, so HR.EMP and EMP compare equal
	// anywhere in a statement, not only in its header. Off by default.
	IgnoreSchemaQualifiers bool

	// IgnoredObjectTypes lists object types that are excluded from the comparison.
	// Objects of these types never produce a difference, in either direction.
	IgnoredObjectTypes []types.ObjectType

	// Logger receives warnings as they are raised. Nil selects slog.Default().
	Logger *slog.Logger
}

// DefaultCompareOptions returns the default comparison options: token formatter,
// header-only schema handling and no ignored object types.
func DefaultCompareOptions() *CompareOptions {
	return &CompareOptions{
		Formatter:          formatter.Default(),
		IgnoredObjectTypes: []types.ObjectType{},
	}
}

// WithIgnoredObjectTypes returns a new CompareOptions ignoring exactly the given
// object types.
//
// Example:
//
//	opts := config.WithIgnoredObjectTypes(types.ObjectTypeJob, types.ObjectTypeQueue)
func WithIgnoredObjectTypes(objectTypes ...types.ObjectType) *CompareOptions {
	opts := DefaultCompareOptions()
	opts.IgnoredObjectTypes = objectTypes
	return opts
}

// WithAdditionalIgnoredObjectTypes returns a new CompareOptions that ignores the
// default ignored object types plus the given ones.
func WithAdditionalIgnoredObjectTypes(objectTypes ...types.ObjectType) *CompareOptions {
	opts := DefaultCompareOptions()
	all := make([]types.ObjectType, len(opts.IgnoredObjectTypes)+len(objectTypes))
	copy(all, opts.IgnoredObjectTypes)
	copy(all[len(opts.IgnoredObjectTypes):], objectTypes)
	opts.IgnoredObjectTypes = all
	return opts
}

// WithFormatter returns a copy of the options using f.
func (c *CompareOptions) WithFormatter(f formatter.Formatter) *CompareOptions {
	clone := *c
	clone.Formatter = f
	return &clone
}

// WithLogger returns a copy of the options logging to logger.
func (c *CompareOptions) WithLogger(logger *slog.Logger) *CompareOptions {
	clone := *c
	clone.Logger = logger
	return &clone
}

// FormatterOrDefault returns the configured formatter or the default one.
func (c *CompareOptions) FormatterOrDefault() formatter.Formatter {
	if c == nil || c.Formatter == nil {
		return formatter.Default()
	}
	return c.Formatter
}

// LoggerOrDefault returns the configured logger or slog.Default().
func (c *CompareOptions) LoggerOrDefault() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// IsObjectTypeIgnored checks if objects of the given type are excluded from the
// comparison.
func (c *CompareOptions) IsObjectTypeIgnored(objectType types.ObjectType) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.IgnoredObjectTypes, objectType)
}

// FilterIgnoredObjectTypes returns the object types of the given slice that are not
// ignored.
func (c *CompareOptions) FilterIgnoredObjectTypes(objectTypes []types.ObjectType) []types.ObjectType {
	filtered := make([]types.ObjectType, 0, len(objectTypes))
	for _, t := range objectTypes {
		if !c.IsObjectTypeIgnored(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
