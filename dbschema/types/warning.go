package types

import "fmt"

// WarningKind classifies a recoverable data-quality problem.
type WarningKind string

const (
	WarningMalformedKey      WarningKind = "malformed_key"
	WarningMissingDDL        WarningKind = "missing_ddl"
	WarningUnknownObjectType WarningKind = "unknown_object_type"
	WarningUnmatchedRewrite  WarningKind = "unmatched_rewrite"
	WarningFormatFailure     WarningKind = "format_failure"
	WarningFileNameCollision WarningKind = "file_name_collision"
	WarningExtraction        WarningKind = "extraction"
)

// Warning reports a problem that was recovered locally. Warnings never abort a run;
// they are returned next to the result so the caller can display or log them.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Key     string      `json:"key,omitempty" yaml:"key,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

// NewWarning builds a warning for an object key given as text.
func NewWarning(kind WarningKind, key string, format string, args ...any) Warning {
	return Warning{Kind: kind, Key: key, Message: fmt.Sprintf(format, args...)}
}

func (w Warning) String() string {
	if w.Key == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Key, w.Message)
}
