// Package postgres extracts DDL snapshots from PostgreSQL databases.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/stokaro/ddldiff/dbschema/types"
)

// DefaultSchema is read when no owner is given.
const DefaultSchema = "public"

// Reader reads schema snapshots from PostgreSQL databases.
//
// PostgreSQL has no single DDL export function, so the reader asks the catalog for
// definitions where it can (pg_get_viewdef, pg_get_indexdef, pg_get_constraintdef,
// pg_get_triggerdef, pg_get_functiondef) and synthesizes CREATE statements for
// tables, sequences and enum types. Every statement names its object qualified with
// the schema. Object names are catalog names and keep their case.
type Reader struct {
	db     *sql.DB
	logger *slog.Logger
	source string
}

// column is a table column as read from pg_attribute.
type column struct {
	name      string
	dataType  string
	notNull   bool
	defaultTo string
	identity  string // pg_attribute.attidentity: "a", "d" or ""
	generated string // pg_attribute.attgenerated: "s" or ""
}

// sequence holds the attributes read from pg_sequences.
type sequence struct {
	name      string
	dataType  string
	start     int64
	min       int64
	max       int64
	increment int64
	cycle     bool
	cache     int64
}

type entry struct {
	key types.ObjectKey
	ddl string
}

// NewPostgreSQLReader creates a new PostgreSQL snapshot reader
func NewPostgreSQLReader(db *sql.DB) *Reader {
	return &Reader{db: db, logger: slog.Default()}
}

// WithLogger sets the logger used for extraction warnings.
func (r *Reader) WithLogger(logger *slog.Logger) *Reader {
	r.logger = logger
	return r
}

// WithSourceConnection sets the connection description recorded on snapshots.
func (r *Reader) WithSourceConnection(source string) *Reader {
	r.source = source
	return r
}

// ReadSnapshot reads every supported object of schema owner.
func (r *Reader) ReadSnapshot(ctx context.Context, owner string) (*types.Snapshot, error) {
	if owner == "" {
		owner = DefaultSchema
	}

	readers := []struct {
		what string
		read func(context.Context, string) ([]entry, error)
	}{
		{what: "tables", read: r.readTables},
		{what: "views", read: r.readViews},
		{what: "indexes", read: r.readIndexes},
		{what: "constraints", read: r.readConstraints},
		{what: "triggers", read: r.readTriggers},
		{what: "functions", read: r.readFunctions},
		{what: "sequences", read: r.readSequences},
		{what: "enums", read: r.readEnums},
	}

	b := types.NewSnapshotBuilder(owner).WithSourceConnection(r.source)
	for _, rd := range readers {
		entries, err := rd.read(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rd.what, err)
		}
		for _, e := range entries {
			// Constraint and trigger names are unique per table only and
			// functions may be overloaded; the first definition wins.
			if b.Has(e.key) {
				w := types.NewWarning(types.WarningExtraction, e.key.String(), "name is not unique in the schema; later definitions skipped")
				r.logger.Warn("PostgreSQL extraction", "key", w.Key, "message", w.Message)
				b.Warn(w)
				continue
			}
			if err := b.Add(e.key, e.ddl); err != nil {
				b.Warn(types.NewWarning(types.WarningMalformedKey, e.key.String(), "skipped: %v", err))
			}
		}
		r.logger.Debug("Read PostgreSQL objects", "kind", rd.what, "count", len(entries))
	}
	return b.Build(), nil
}

// readTables reads ordinary and partitioned tables with their columns.
func (r *Reader) readTables(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT c.relname, a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull,
		       COALESCE(pg_get_expr(d.adbin, d.adrelid), ''), a.attidentity::text, a.attgenerated::text
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum > 0 AND NOT a.attisdropped
		LEFT JOIN pg_attrdef d ON d.adrelid = c.oid AND d.adnum = a.attnum
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
		ORDER BY c.relname, a.attnum`

	rows, err := r.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var (
		entries []entry
		current string
		columns []column
	)
	flush := func() {
		if current == "" {
			return
		}
		entries = append(entries, entry{
			key: types.NewObjectKey(types.ObjectTypeTable, schema, current),
			ddl: tableDDL(schema, current, columns),
		})
		columns = nil
	}
	for rows.Next() {
		var table string
		var col column
		if err := rows.Scan(&table, &col.name, &col.dataType, &col.notNull, &col.defaultTo, &col.identity, &col.generated); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if table != current {
			flush()
			current = table
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	flush()
	return entries, nil
}

// readViews reads views and materialized views.
func (r *Reader) readViews(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT c.relname, c.relkind::text, pg_get_viewdef(c.oid, true)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('v', 'm')
		AND NOT EXISTS (
			SELECT 1 FROM pg_depend d
			WHERE d.objid = c.oid AND d.deptype = 'e'
		)
		ORDER BY c.relname`

	return r.collect(ctx, query, schema, func(rows *sql.Rows) (entry, error) {
		var name, kind, definition string
		if err := rows.Scan(&name, &kind, &definition); err != nil {
			return entry{}, err
		}
		objectType := types.ObjectTypeView
		if kind == "m" {
			objectType = types.ObjectTypeMaterializedView
		}
		return entry{
			key: types.NewObjectKey(objectType, schema, name),
			ddl: viewDDL(objectType, schema, name, definition),
		}, nil
	})
}

// readIndexes reads indexes that do not back a constraint.
func (r *Reader) readIndexes(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT i.relname, pg_get_indexdef(i.oid)
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1
		AND NOT EXISTS (
			SELECT 1 FROM pg_constraint con WHERE con.conindid = ix.indexrelid
		)
		ORDER BY i.relname`

	return r.collect(ctx, query, schema, func(rows *sql.Rows) (entry, error) {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return entry{}, err
		}
		return entry{key: types.NewObjectKey(types.ObjectTypeIndex, schema, name), ddl: definition}, nil
	})
}

// readConstraints reads table constraints as ALTER TABLE ... ADD CONSTRAINT statements.
func (r *Reader) readConstraints(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT c.conname, cl.relname, pg_get_constraintdef(c.oid)
		FROM pg_constraint c
		JOIN pg_class cl ON c.conrelid = cl.oid
		JOIN pg_namespace n ON cl.relnamespace = n.oid
		WHERE n.nspname = $1 AND c.contype IN ('p', 'u', 'f', 'c', 'x')
		ORDER BY c.conname, cl.relname`

	return r.collect(ctx, query, schema, func(rows *sql.Rows) (entry, error) {
		var name, table, definition string
		if err := rows.Scan(&name, &table, &definition); err != nil {
			return entry{}, err
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", qualified(schema, table), pq.QuoteIdentifier(name), definition)
		return entry{key: types.NewObjectKey(types.ObjectTypeConstraint, schema, name), ddl: ddl}, nil
	})
}

// readTriggers reads user triggers.
func (r *Reader) readTriggers(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT t.tgname, pg_get_triggerdef(t.oid, true)
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND NOT t.tgisinternal
		ORDER BY t.tgname, c.relname`

	return r.collect(ctx, query, schema, func(rows *sql.Rows) (entry, error) {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return entry{}, err
		}
		return entry{key: types.NewObjectKey(types.ObjectTypeTrigger, schema, name), ddl: definition}, nil
	})
}

// readFunctions reads functions and procedures that do not belong to an extension.
func (r *Reader) readFunctions(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT p.proname, p.prokind::text, pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1 AND p.prokind IN ('f', 'p')
		AND NOT EXISTS (
			SELECT 1 FROM pg_depend d
			JOIN pg_extension e ON e.oid = d.refobjid
			WHERE d.objid = p.oid AND d.deptype = 'e'
		)
		ORDER BY p.proname, p.oid`

	return r.collect(ctx, query, schema, func(rows *sql.Rows) (entry, error) {
		var name, kind, definition string
		if err := rows.Scan(&name, &kind, &definition); err != nil {
			return entry{}, err
		}
		objectType := types.ObjectTypeFunction
		if kind == "p" {
			objectType = types.ObjectTypeProcedure
		}
		return entry{key: types.NewObjectKey(objectType, schema, name), ddl: strings.TrimSpace(definition)}, nil
	})
}

// readSequences reads sequences other than the ones backing identity columns.
func (r *Reader) readSequences(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT s.sequencename, s.data_type::text, s.start_value, s.min_value, s.max_value,
		       s.increment_by, s.cycle, s.cache_size
		FROM pg_sequences s
		JOIN pg_namespace n ON n.nspname = s.schemaname
		JOIN pg_class c ON c.relnamespace = n.oid AND c.relname = s.sequencename
		WHERE s.schemaname = $1
		AND NOT EXISTS (
			SELECT 1 FROM pg_depend d WHERE d.objid = c.oid AND d.deptype = 'i'
		)
		ORDER BY s.sequencename`

	return r.collect(ctx, query, schema, func(rows *sql.Rows) (entry, error) {
		var s sequence
		if err := rows.Scan(&s.name, &s.dataType, &s.start, &s.min, &s.max, &s.increment, &s.cycle, &s.cache); err != nil {
			return entry{}, err
		}
		return entry{key: types.NewObjectKey(types.ObjectTypeSequence, schema, s.name), ddl: sequenceDDL(schema, s)}, nil
	})
}

// readEnums reads enum types with their labels in sort order.
func (r *Reader) readEnums(ctx context.Context, schema string) ([]entry, error) {
	query := `
		SELECT
			t.typname AS enum_name,
			e.enumlabel AS enum_value
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`

	rows, err := r.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query enums: %w", err)
	}
	defer rows.Close()

	var (
		entries []entry
		current string
		labels  []string
	)
	flush := func() {
		if current == "" {
			return
		}
		entries = append(entries, entry{
			key: types.NewObjectKey(types.ObjectTypeType, schema, current),
			ddl: enumDDL(schema, current, labels),
		})
		labels = nil
	}
	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return nil, fmt.Errorf("failed to scan enum: %w", err)
		}
		if name != current {
			flush()
			current = name
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	flush()
	return entries, nil
}

// collect runs query and maps every row with scan.
func (r *Reader) collect(ctx context.Context, query, schema string, scan func(*sql.Rows) (entry, error)) ([]entry, error) {
	rows, err := r.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func qualified(schema, name string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
}

func tableDDL(schema, table string, columns []column) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (", qualified(schema, table))
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "\n  %s %s", pq.QuoteIdentifier(col.name), col.dataType)
		switch {
		case col.generated == "s":
			fmt.Fprintf(&sb, " GENERATED ALWAYS AS (%s) STORED", col.defaultTo)
		case col.identity == "a":
			sb.WriteString(" GENERATED ALWAYS AS IDENTITY")
		case col.identity == "d":
			sb.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		case col.defaultTo != "":
			fmt.Fprintf(&sb, " DEFAULT %s", col.defaultTo)
		}
		if col.notNull {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString("\n)")
	return sb.String()
}

func viewDDL(objectType types.ObjectType, schema, name, definition string) string {
	definition = strings.TrimSuffix(strings.TrimSpace(definition), ";")
	verb := "CREATE OR REPLACE VIEW"
	if objectType == types.ObjectTypeMaterializedView {
		verb = "CREATE MATERIALIZED VIEW"
	}
	return fmt.Sprintf("%s %s AS\n%s", verb, qualified(schema, name), definition)
}

func sequenceDDL(schema string, s sequence) string {
	cycle := "NO CYCLE"
	if s.cycle {
		cycle = "CYCLE"
	}
	return fmt.Sprintf("CREATE SEQUENCE %s AS %s INCREMENT BY %d MINVALUE %d MAXVALUE %d START WITH %d CACHE %d %s",
		qualified(schema, s.name), s.dataType, s.increment, s.min, s.max, s.start, s.cache, cycle)
}

func enumDDL(schema, name string, labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = pq.QuoteLiteral(l)
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", qualified(schema, name), strings.Join(quoted, ", "))
}
