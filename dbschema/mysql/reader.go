// Package mysql extracts DDL snapshots from MySQL databases.
//
// The reader switches its session to ANSI_QUOTES so that every statement it returns
// quotes identifiers with double quotes, the way the rest of the engine expects.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/stokaro/ddldiff/dbschema/types"
)

const ansiQuotesSession = `SET SESSION sql_mode = TRIM(BOTH ',' FROM CONCAT(@@SESSION.sql_mode, ',ANSI_QUOTES'))`

var (
	// definerClause matches the DEFINER = user@host clause SHOW CREATE adds to
	// routines and events. The account differs between environments.
	definerClause = regexp.MustCompile("(?i)\\s+DEFINER\\s*=\\s*(?:CURRENT_USER(?:\\s*\\(\\s*\\))?|(?:\"(?:[^\"]|\"\")*\"|`[^`]*`|'[^']*'|[^\\s@]+)@(?:\"(?:[^\"]|\"\")*\"|`[^`]*`|'[^']*'|\\S+))")

	// autoIncrementOption matches the table option recording the next AUTO_INCREMENT
	// value, which changes with every insert.
	autoIncrementOption = regexp.MustCompile(`(?i)\s+AUTO_INCREMENT=\d+`)
)

// Reader reads schema snapshots from a MySQL database.
//
// Tables, routines and events come from SHOW CREATE statements. Views and triggers
// are assembled from information_schema, since their SHOW CREATE output carries
// session details that differ between servers. Indexes and constraints are part
// of the table definition and are not captured as objects of their own.
type Reader struct {
	db     *sql.DB
	logger *slog.Logger
	source string
}

// NewReader creates a reader on db.
func NewReader(db *sql.DB) *Reader {
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

// ReadSnapshot reads every supported object of database owner.
func (r *Reader) ReadSnapshot(ctx context.Context, owner string) (*types.Snapshot, error) {
	if owner == "" {
		return nil, fmt.Errorf("no MySQL database selected")
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, ansiQuotesSession); err != nil {
		return nil, fmt.Errorf("failed to enable ANSI_QUOTES: %w", err)
	}

	b := types.NewSnapshotBuilder(owner).WithSourceConnection(r.source)
	steps := []struct {
		what string
		read func(context.Context, *sql.Conn, *types.SnapshotBuilder) error
	}{
		{what: "tables", read: r.readTables},
		{what: "views", read: r.readViews},
		{what: "routines", read: r.readRoutines},
		{what: "triggers", read: r.readTriggers},
		{what: "events", read: r.readEvents},
	}
	for _, step := range steps {
		before := b.Len()
		if err := step.read(ctx, conn, b); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", step.what, err)
		}
		r.logger.Debug("Read MySQL objects", "kind", step.what, "count", b.Len()-before)
	}
	return b.Build(), nil
}

func (r *Reader) readTables(ctx context.Context, conn *sql.Conn, b *types.SnapshotBuilder) error {
	names, err := queryNames(ctx, conn, `
		SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, b)
	if err != nil {
		return err
	}
	for _, name := range names {
		key := types.NewObjectKey(types.ObjectTypeTable, owner(b), name)
		ddl, err := showCreate(ctx, conn, "TABLE", name, "Create Table")
		if err != nil {
			r.extractionFailed(b, key, err)
			continue
		}
		r.add(b, key, autoIncrementOption.ReplaceAllString(ddl, ""))
	}
	return nil
}

func (r *Reader) readViews(ctx context.Context, conn *sql.Conn, b *types.SnapshotBuilder) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT TABLE_NAME, VIEW_DEFINITION FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`, owner(b))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return err
		}
		r.add(b, types.NewObjectKey(types.ObjectTypeView, owner(b), name), viewDDL(name, definition))
	}
	return rows.Err()
}

func (r *Reader) readRoutines(ctx context.Context, conn *sql.Conn, b *types.SnapshotBuilder) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT ROUTINE_NAME, ROUTINE_TYPE FROM information_schema.ROUTINES
		WHERE ROUTINE_SCHEMA = ?
		ORDER BY ROUTINE_TYPE, ROUTINE_NAME`, owner(b))
	if err != nil {
		return err
	}
	type routine struct{ name, kind string }
	var routines []routine
	for rows.Next() {
		var rt routine
		if err := rows.Scan(&rt.name, &rt.kind); err != nil {
			rows.Close()
			return err
		}
		routines = append(routines, rt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, rt := range routines {
		objectType, column := types.ObjectTypeProcedure, "Create Procedure"
		if rt.kind == "FUNCTION" {
			objectType, column = types.ObjectTypeFunction, "Create Function"
		}
		key := types.NewObjectKey(objectType, owner(b), rt.name)
		ddl, err := showCreate(ctx, conn, rt.kind, rt.name, column)
		if err != nil {
			r.extractionFailed(b, key, err)
			continue
		}
		r.add(b, key, StripDefiner(ddl))
	}
	return nil
}

func (r *Reader) readTriggers(ctx context.Context, conn *sql.Conn, b *types.SnapshotBuilder) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT TRIGGER_NAME, ACTION_TIMING, EVENT_MANIPULATION, EVENT_OBJECT_TABLE, ACTION_STATEMENT
		FROM information_schema.TRIGGERS
		WHERE TRIGGER_SCHEMA = ?
		ORDER BY TRIGGER_NAME`, owner(b))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t trigger
		if err := rows.Scan(&t.name, &t.timing, &t.event, &t.table, &t.statement); err != nil {
			return err
		}
		r.add(b, types.NewObjectKey(types.ObjectTypeTrigger, owner(b), t.name), triggerDDL(t))
	}
	return rows.Err()
}

func (r *Reader) readEvents(ctx context.Context, conn *sql.Conn, b *types.SnapshotBuilder) error {
	names, err := queryNames(ctx, conn, `
		SELECT EVENT_NAME FROM information_schema.EVENTS
		WHERE EVENT_SCHEMA = ?
		ORDER BY EVENT_NAME`, b)
	if err != nil {
		return err
	}
	for _, name := range names {
		key := types.NewObjectKey(types.ObjectTypeJob, owner(b), name)
		ddl, err := showCreate(ctx, conn, "EVENT", name, "Create Event")
		if err != nil {
			r.extractionFailed(b, key, err)
			continue
		}
		r.add(b, key, StripDefiner(ddl))
	}
	return nil
}

func (r *Reader) add(b *types.SnapshotBuilder, key types.ObjectKey, ddl string) {
	if err := b.Add(key, strings.TrimSpace(ddl)); err != nil {
		b.Warn(types.NewWarning(types.WarningMalformedKey, key.String(), "skipped: %v", err))
	}
}

// extractionFailed keeps the object with empty DDL so the diff still sees it.
func (r *Reader) extractionFailed(b *types.SnapshotBuilder, key types.ObjectKey, err error) {
	w := types.NewWarning(types.WarningExtraction, key.String(), "failed to read DDL: %v", err)
	r.logger.Warn("MySQL extraction", "key", w.Key, "error", err)
	b.Warn(w)
	r.add(b, key, "")
}

type trigger struct {
	name      string
	timing    string
	event     string
	table     string
	statement string
}

func owner(b *types.SnapshotBuilder) string {
	return b.Owner()
}

func queryNames(ctx context.Context, conn *sql.Conn, query string, b *types.SnapshotBuilder) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, owner(b))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// showCreate runs SHOW CREATE <kind> and returns the named result column. The
// column layout differs per object kind and server version, so it is looked up
// by name.
func showCreate(ctx context.Context, conn *sql.Conn, kind, name, column string) (string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("SHOW CREATE %s %s", kind, quote(name)))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}
	idx := -1
	for i, col := range columns {
		if strings.EqualFold(col, column) {
			idx = i
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("SHOW CREATE %s returned no %q column", kind, column)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("SHOW CREATE %s %s returned no rows", kind, name)
	}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}
	if !values[idx].Valid {
		return "", fmt.Errorf("definition of %s %s is not visible to this account", kind, name)
	}
	return values[idx].String, nil
}

// StripDefiner removes the DEFINER clause from a CREATE statement.
func StripDefiner(ddl string) string {
	return definerClause.ReplaceAllString(ddl, "")
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func viewDDL(name, definition string) string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", quote(name), strings.TrimSpace(definition))
}

func triggerDDL(t trigger) string {
	return fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH ROW %s",
		quote(t.name), t.timing, t.event, quote(t.table), strings.TrimSpace(t.statement))
}
