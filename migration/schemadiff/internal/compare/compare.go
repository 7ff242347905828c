package compare

import (
	"github.com/stokaro/ddldiff/config"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/schemadiff/internal/normalize"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// Objects reconciles the object sets of two snapshots and appends the resulting
// differences to diff.
//
// # Comparison Process
//
//  1. Every key present in source only becomes a Removed difference carrying the
//     source DDL.
//  2. Every key present in target only becomes an Added difference carrying the
//     target DDL.
//  3. Every key present in both is canonicalized on both sides; a Modified
//     difference carrying both raw DDL texts is emitted when the canonical forms
//     differ. Unchanged objects produce nothing.
//
// Objects whose type is listed in opts.IgnoredObjectTypes are skipped on both sides.
//
// # Algorithm Complexity
//
// O(n + m) map lookups for n source and m target objects, plus one formatter call
// per side for every key present in both snapshots.
//
// # Warnings
//
// Data-quality problems never abort the comparison. Formatter failures fall back to
// raw-text equality for that object only; object types outside the closed set are
// reported as OTHER. Each problem is appended to diff.Warnings and logged.
//
// # Output Consistency
//
// Keys are visited in sorted order, so the differences come out sorted by key.
func Objects(source, target *dbtypes.Snapshot, opts *config.CompareOptions, diff *difftypes.SchemaDiff) {
	for _, key := range source.Keys() {
		if target.Has(key) || opts.IsObjectTypeIgnored(key.Type) {
			continue
		}
		ddl, _ := source.DDL(key)
		diff.Differences = append(diff.Differences, difftypes.NewRemoved(checkedKey(key, opts, diff), ddl))
	}

	for _, key := range target.Keys() {
		if opts.IsObjectTypeIgnored(key.Type) {
			continue
		}
		targetDDL, _ := target.DDL(key)
		sourceDDL, inSource := source.DDL(key)
		if !inSource {
			diff.Differences = append(diff.Differences, difftypes.NewAdded(checkedKey(key, opts, diff), targetDDL))
			continue
		}

		if d, changed := Object(key, sourceDDL, targetDDL, source.Owner, target.Owner, opts, diff); changed {
			d.ObjectType = checkedKey(key, opts, diff).Type
			diff.Differences = append(diff.Differences, d)
		}
	}

	diff.Sort()
}

// Object compares the two DDL texts of one object present in both snapshots. It
// returns the Modified difference and true when they are not equivalent.
func Object(key dbtypes.ObjectKey, sourceDDL, targetDDL, sourceOwner, targetOwner string, opts *config.CompareOptions, diff *difftypes.SchemaDiff) (difftypes.Difference, bool) {
	f := opts.FormatterOrDefault()
	a := normalize.ForComparison(sourceDDL, sourceOwner, opts != nil && opts.IgnoreSchemaQualifiers)
	b := normalize.ForComparison(targetDDL, targetOwner, opts != nil && opts.IgnoreSchemaQualifiers)

	equal, canonical, warnings := normalize.Equal(f, key, a, b)
	for _, w := range warnings {
		warn(opts, diff, w)
	}
	if equal {
		return difftypes.Difference{}, false
	}

	detail := "canonical DDL differs"
	if !canonical {
		detail = "raw DDL differs"
	}
	return difftypes.NewModified(key, sourceDDL, targetDDL, detail), true
}

// checkedKey maps object types outside the closed set to OTHER, with a warning.
func checkedKey(key dbtypes.ObjectKey, opts *config.CompareOptions, diff *difftypes.SchemaDiff) dbtypes.ObjectKey {
	if key.Type == dbtypes.ObjectTypeOther || key.Type.IsKnown() {
		return key
	}
	warn(opts, diff, dbtypes.NewWarning(dbtypes.WarningUnknownObjectType, key.String(), "object type %q reported as %s", key.Type, dbtypes.ObjectTypeOther))
	key.Type = dbtypes.ObjectTypeOther
	return key
}

func warn(opts *config.CompareOptions, diff *difftypes.SchemaDiff, w dbtypes.Warning) {
	diff.Warn(w)
	opts.LoggerOrDefault().Warn("schema comparison", "kind", string(w.Kind), "key", w.Key, "message", w.Message)
}
