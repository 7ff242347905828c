package types

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the DDL of one schema at one point in time.
//
// A Snapshot is immutable once built: the object map is unexported and only read
// accessors are provided, so a snapshot can be shared between goroutines and passed
// to the diff engine any number of times. Use SnapshotBuilder to assemble one.
type Snapshot struct {
	ID               string
	Owner            string
	CapturedAt       time.Time
	SourceConnection string

	objects  map[ObjectKey]string
	warnings []Warning
}

// DDL returns the DDL text stored under key.
func (s *Snapshot) DDL(key ObjectKey) (string, bool) {
	ddl, ok := s.objects[key]
	return ddl, ok
}

// Has reports whether key is present.
func (s *Snapshot) Has(key ObjectKey) bool {
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of objects in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.objects)
}

// Keys returns all object keys sorted by type, owner and name.
func (s *Snapshot) Keys() []ObjectKey {
	keys := make([]ObjectKey, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	return keys
}

// Each calls fn for every object in key order.
func (s *Snapshot) Each(fn func(key ObjectKey, ddl string)) {
	for _, k := range s.Keys() {
		fn(k, s.objects[k])
	}
}

// Warnings returns the problems recorded while the snapshot was assembled, such as
// stored keys that could not be decoded.
func (s *Snapshot) Warnings() []Warning {
	out := make([]Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// CountByType returns the number of objects per type.
func (s *Snapshot) CountByType() map[ObjectType]int {
	counts := make(map[ObjectType]int)
	for k := range s.objects {
		counts[k.Type]++
	}
	return counts
}

// SnapshotBuilder accumulates objects during extraction or loading and produces an
// immutable Snapshot.
type SnapshotBuilder struct {
	snapshot *Snapshot
}

// NewSnapshotBuilder starts a snapshot of the given owning schema. The snapshot gets a
// fresh ID and the current time as its capture time; both can be overridden.
func NewSnapshotBuilder(owner string) *SnapshotBuilder {
	return &SnapshotBuilder{
		snapshot: &Snapshot{
			ID:         uuid.NewString(),
			Owner:      owner,
			CapturedAt: time.Now().UTC(),
			objects:    make(map[ObjectKey]string),
		},
	}
}

// WithID overrides the generated snapshot ID.
func (b *SnapshotBuilder) WithID(id string) *SnapshotBuilder {
	b.snapshot.ID = id
	return b
}

// WithCapturedAt overrides the capture time.
func (b *SnapshotBuilder) WithCapturedAt(t time.Time) *SnapshotBuilder {
	b.snapshot.CapturedAt = t
	return b
}

// WithSourceConnection records a reference to the connection the snapshot was read
// from. It must not contain credentials.
func (b *SnapshotBuilder) WithSourceConnection(ref string) *SnapshotBuilder {
	b.snapshot.SourceConnection = ref
	return b
}

// Add records one object. The owner must match the snapshot owner, except for
// synonyms owned by PUBLIC. Adding the same key twice replaces the DDL.
func (b *SnapshotBuilder) Add(key ObjectKey, ddl string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if !strings.EqualFold(key.Owner, b.snapshot.Owner) &&
		!(key.Type == ObjectTypeSynonym && key.Owner == PublicOwner) {
		return fmt.Errorf("object %s is not owned by snapshot schema %s", key, b.snapshot.Owner)
	}
	b.snapshot.objects[key] = ddl
	return nil
}

// AddEncoded records an object stored under its TYPE/OWNER/NAME text form. A key that
// cannot be decomposed, or that Add rejects, is skipped and recorded as a warning. A
// type outside the closed set is kept as OTHER, also with a warning. It reports
// whether the object was added.
func (b *SnapshotBuilder) AddEncoded(encoded, ddl string) bool {
	key, known, err := ParseObjectKey(encoded)
	if err != nil {
		b.Warn(NewWarning(WarningMalformedKey, encoded, "skipped: %v", err))
		return false
	}
	if !known {
		b.Warn(NewWarning(WarningUnknownObjectType, encoded, "object type mapped to %s", ObjectTypeOther))
	}
	if err := b.Add(key, ddl); err != nil {
		b.Warn(NewWarning(WarningMalformedKey, encoded, "skipped: %v", err))
		return false
	}
	return true
}

// Warn records a problem found while assembling the snapshot.
func (b *SnapshotBuilder) Warn(w Warning) {
	b.snapshot.warnings = append(b.snapshot.warnings, w)
}

// MustAdd is Add for statically known input; it panics on error.
func (b *SnapshotBuilder) MustAdd(key ObjectKey, ddl string) *SnapshotBuilder {
	if err := b.Add(key, ddl); err != nil {
		panic(err)
	}
	return b
}

// Owner returns the owning schema of the snapshot being built.
func (b *SnapshotBuilder) Owner() string {
	return b.snapshot.Owner
}

// Has reports whether key was added.
func (b *SnapshotBuilder) Has(key ObjectKey) bool {
	_, ok := b.snapshot.objects[key]
	return ok
}

// Len returns the number of objects added so far.
func (b *SnapshotBuilder) Len() int {
	return len(b.snapshot.objects)
}

// Build returns the finished snapshot. The builder must not be used afterwards.
func (b *SnapshotBuilder) Build() *Snapshot {
	s := b.snapshot
	b.snapshot = nil
	return s
}
