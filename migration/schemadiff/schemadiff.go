// Package schemadiff compares two schema snapshots.
//
// A snapshot is a keyed collection of DDL statements (see dbschema/types). The
// comparison classifies every object that differs between a source and a target
// snapshot as added, removed or modified; unchanged objects are left out. The result
// feeds the script planner (migration/planner), which turns each difference into
// executable migration scripts.
package schemadiff

import (
	"errors"

	"github.com/stokaro/ddldiff/config"
	"github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/schemadiff/internal/compare"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// ErrNilSnapshot is returned when the source or the target snapshot is missing.
var ErrNilSnapshot = errors.New("schemadiff: source and target snapshots are required")

// Compare performs snapshot comparison using default options (token formatter, no
// ignored object types). For custom configuration, use CompareWithOptions.
func Compare(source, target *types.Snapshot) (*difftypes.SchemaDiff, error) {
	return CompareWithOptions(source, target, nil)
}

// CompareWithOptions performs snapshot comparison with custom configuration options.
//
// Parameters:
//   - source: the snapshot the migration starts from
//   - target: the snapshot the migration should arrive at
//   - opts: configuration options for comparison (can be nil for defaults)
//
// A nil snapshot is a contract violation and fails immediately with ErrNilSnapshot;
// no partial result is produced. Every other problem (a DDL text the formatter
// cannot parse, an unknown object type, a stored key that could not be decoded) is
// recovered locally and reported in the returned diff's Warnings.
//
// The comparison reads nothing but its arguments, so it is safe to run concurrently
// for different snapshot pairs.
//
// Example usage:
//
//	// Default options
//	diff, err := schemadiff.CompareWithOptions(source, target, nil)
//
//	// Leave scheduler jobs and queues out of the comparison
//	opts := config.WithIgnoredObjectTypes(types.ObjectTypeJob, types.ObjectTypeQueue)
//	diff, err := schemadiff.CompareWithOptions(source, target, opts)
func CompareWithOptions(source, target *types.Snapshot, opts *config.CompareOptions) (*difftypes.SchemaDiff, error) {
	if source == nil || target == nil {
		return nil, ErrNilSnapshot
	}
	if opts == nil {
		opts = config.DefaultCompareOptions()
	}

	diff := &difftypes.SchemaDiff{
		SourceID:    source.ID,
		TargetID:    target.ID,
		SourceOwner: source.Owner,
		TargetOwner: target.Owner,
		Differences: []difftypes.Difference{},
	}

	// Problems recorded while the snapshots were loaded
	for _, w := range source.Warnings() {
		diff.Warn(w)
	}
	for _, w := range target.Warnings() {
		diff.Warn(w)
	}

	compare.Objects(source, target, opts, diff)

	return diff, nil
}
