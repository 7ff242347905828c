// Package oracle extracts DDL snapshots from Oracle databases with DBMS_METADATA.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stokaro/ddldiff/core/sqlutil"
	"github.com/stokaro/ddldiff/dbschema/types"
)

// DefaultConcurrency is the number of sessions fetching DDL in parallel.
const DefaultConcurrency = 4

// catalogClass maps an ALL_OBJECTS object type to the snapshot type and the
// DBMS_METADATA object type used to fetch its DDL.
type catalogClass struct {
	catalogType  string
	objectType   types.ObjectType
	metadataType string
}

var catalogClasses = []catalogClass{
	{catalogType: "TABLE", objectType: types.ObjectTypeTable, metadataType: "TABLE"},
	{catalogType: "VIEW", objectType: types.ObjectTypeView, metadataType: "VIEW"},
	{catalogType: "MATERIALIZED VIEW", objectType: types.ObjectTypeMaterializedView, metadataType: "MATERIALIZED_VIEW"},
	{catalogType: "INDEX", objectType: types.ObjectTypeIndex, metadataType: "INDEX"},
	{catalogType: "TRIGGER", objectType: types.ObjectTypeTrigger, metadataType: "TRIGGER"},
	{catalogType: "PROCEDURE", objectType: types.ObjectTypeProcedure, metadataType: "PROCEDURE"},
	{catalogType: "FUNCTION", objectType: types.ObjectTypeFunction, metadataType: "FUNCTION"},
	{catalogType: "PACKAGE", objectType: types.ObjectTypePackage, metadataType: "PACKAGE"},
	{catalogType: "SEQUENCE", objectType: types.ObjectTypeSequence, metadataType: "SEQUENCE"},
	{catalogType: "SYNONYM", objectType: types.ObjectTypeSynonym, metadataType: "SYNONYM"},
	{catalogType: "DATABASE LINK", objectType: types.ObjectTypeDatabaseLink, metadataType: "DB_LINK"},
	{catalogType: "TYPE", objectType: types.ObjectTypeType, metadataType: "TYPE"},
	{catalogType: "JAVA SOURCE", objectType: types.ObjectTypeJavaSource, metadataType: "JAVA_SOURCE"},
	{catalogType: "LIBRARY", objectType: types.ObjectTypeLibrary, metadataType: "LIBRARY"},
	{catalogType: "JOB", objectType: types.ObjectTypeJob, metadataType: "PROCOBJ"},
	{catalogType: "PROGRAM", objectType: types.ObjectTypeScheduler, metadataType: "PROCOBJ"},
	{catalogType: "SCHEDULE", objectType: types.ObjectTypeScheduler, metadataType: "PROCOBJ"},
	{catalogType: "CHAIN", objectType: types.ObjectTypeScheduler, metadataType: "PROCOBJ"},
	{catalogType: "QUEUE", objectType: types.ObjectTypeQueue, metadataType: "AQ_QUEUE"},
}

// sessionSetup makes DBMS_METADATA emit terminated statements without storage
// clauses and keep constraints out of table DDL, since they are captured on their own.
// Terminators matter for packages and types: spec and body come back as one text
// and only the slash line separates them. The final terminator is trimmed.
const sessionSetup = `
BEGIN
  DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'SQLTERMINATOR', TRUE);
  DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'PRETTY', TRUE);
  DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'SEGMENT_ATTRIBUTES', FALSE);
  DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'STORAGE', FALSE);
  DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'CONSTRAINTS', FALSE);
  DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'REF_CONSTRAINTS', FALSE);
END;`

// object is one catalog entry whose DDL is to be fetched.
type object struct {
	key          types.ObjectKey
	metadataType string
	// metadataOwner differs from key.Owner for public synonyms.
	metadataOwner string
}

// Reader reads schema snapshots from Oracle databases.
//
// DDL is fetched with DBMS_METADATA.GET_DDL. Transform parameters are session
// state, so every worker pins its own session and configures it before fetching.
// A failure to fetch one object is recorded as an extraction warning and the object
// is kept with empty DDL; only catalog queries and session failures abort the read.
type Reader struct {
	db          *sql.DB
	logger      *slog.Logger
	concurrency int
	source      string
}

// NewReader creates a new Oracle snapshot reader
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db, logger: slog.Default(), concurrency: DefaultConcurrency}
}

// WithLogger sets the logger used for extraction warnings.
func (r *Reader) WithLogger(logger *slog.Logger) *Reader {
	r.logger = logger
	return r
}

// WithConcurrency sets the number of parallel sessions. Values below one select one.
func (r *Reader) WithConcurrency(n int) *Reader {
	r.concurrency = max(n, 1)
	return r
}

// WithSourceConnection sets the connection description recorded on snapshots.
func (r *Reader) WithSourceConnection(source string) *Reader {
	r.source = source
	return r
}

// ReadSnapshot reads every supported object owned by owner, plus the public
// synonyms pointing into the schema.
func (r *Reader) ReadSnapshot(ctx context.Context, owner string) (*types.Snapshot, error) {
	owner = strings.ToUpper(owner)

	objects, err := r.listObjects(ctx, owner)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Listed catalog objects", "owner", owner, "count", len(objects))

	ddls, failures, err := r.fetchDDL(ctx, objects)
	if err != nil {
		return nil, err
	}

	b := types.NewSnapshotBuilder(owner).WithSourceConnection(r.source)
	for i, obj := range objects {
		if failures[i] != nil {
			w := types.NewWarning(types.WarningExtraction, obj.key.String(), "fetching DDL: %v", failures[i])
			r.logger.Warn("Oracle extraction", "key", w.Key, "error", failures[i])
			b.Warn(w)
		}
		if err := b.Add(obj.key, ddls[i]); err != nil {
			b.Warn(types.NewWarning(types.WarningMalformedKey, obj.key.String(), "skipped: %v", err))
		}
	}
	return b.Build(), nil
}

// listObjects returns the catalog objects of owner in a stable order.
func (r *Reader) listObjects(ctx context.Context, owner string) ([]object, error) {
	byCatalogType := make(map[string]catalogClass, len(catalogClasses))
	catalogTypes := make([]string, 0, len(catalogClasses))
	for _, cls := range catalogClasses {
		byCatalogType[cls.catalogType] = cls
		catalogTypes = append(catalogTypes, "'"+cls.catalogType+"'")
	}

	// Container tables of materialized views and recycle bin entries are skipped.
	query := fmt.Sprintf(`
		SELECT o.OBJECT_TYPE, o.OBJECT_NAME
		FROM ALL_OBJECTS o
		WHERE o.OWNER = :1
		  AND o.GENERATED = 'N'
		  AND o.OBJECT_NAME NOT LIKE 'BIN$%%'
		  AND o.OBJECT_TYPE IN (%s)
		  AND NOT (o.OBJECT_TYPE = 'TABLE' AND EXISTS (
		        SELECT 1 FROM ALL_MVIEWS m WHERE m.OWNER = o.OWNER AND m.MVIEW_NAME = o.OBJECT_NAME))
		ORDER BY o.OBJECT_TYPE, o.OBJECT_NAME`, strings.Join(catalogTypes, ", "))

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var objects []object
	for rows.Next() {
		var catalogType, name string
		if err := rows.Scan(&catalogType, &name); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		cls := byCatalogType[catalogType]
		objects = append(objects, object{
			key:           types.NewObjectKey(cls.objectType, owner, name),
			metadataType:  cls.metadataType,
			metadataOwner: owner,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read objects: %w", err)
	}

	constraints, err := r.listConstraints(ctx, owner)
	if err != nil {
		return nil, err
	}
	objects = append(objects, constraints...)

	synonyms, err := r.listPublicSynonyms(ctx, owner)
	if err != nil {
		return nil, err
	}
	return append(objects, synonyms...), nil
}

// listConstraints returns the named primary key, unique, foreign key and check
// constraints of owner's tables.
func (r *Reader) listConstraints(ctx context.Context, owner string) ([]object, error) {
	query := `
		SELECT c.CONSTRAINT_NAME, c.CONSTRAINT_TYPE
		FROM ALL_CONSTRAINTS c
		WHERE c.OWNER = :1
		  AND c.CONSTRAINT_TYPE IN ('P', 'U', 'R', 'C')
		  AND c.GENERATED = 'USER NAME'
		  AND c.TABLE_NAME NOT LIKE 'BIN$%'
		ORDER BY c.CONSTRAINT_NAME`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query constraints: %w", err)
	}
	defer rows.Close()

	var objects []object
	for rows.Next() {
		var name, constraintType string
		if err := rows.Scan(&name, &constraintType); err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		metadataType := "CONSTRAINT"
		if constraintType == "R" {
			metadataType = "REF_CONSTRAINT"
		}
		objects = append(objects, object{
			key:           types.NewObjectKey(types.ObjectTypeConstraint, owner, name),
			metadataType:  metadataType,
			metadataOwner: owner,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read constraints: %w", err)
	}
	return objects, nil
}

// listPublicSynonyms returns the public synonyms that point at owner's objects.
func (r *Reader) listPublicSynonyms(ctx context.Context, owner string) ([]object, error) {
	query := `
		SELECT s.SYNONYM_NAME
		FROM ALL_SYNONYMS s
		WHERE s.OWNER = 'PUBLIC' AND s.TABLE_OWNER = :1
		ORDER BY s.SYNONYM_NAME`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query public synonyms: %w", err)
	}
	defer rows.Close()

	var objects []object
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan public synonym: %w", err)
		}
		objects = append(objects, object{
			key:           types.NewObjectKey(types.ObjectTypeSynonym, types.PublicOwner, name),
			metadataType:  "SYNONYM",
			metadataOwner: types.PublicOwner,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read public synonyms: %w", err)
	}
	return objects, nil
}

// fetchDDL fetches the DDL of every object. ddls[i] and failures[i] belong to
// objects[i]; each worker writes its own indices only.
func (r *Reader) fetchDDL(ctx context.Context, objects []object) (ddls []string, failures []error, err error) {
	ddls = make([]string, len(objects))
	failures = make([]error, len(objects))
	if len(objects) == 0 {
		return ddls, failures, nil
	}

	workers := min(r.concurrency, len(objects))
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			conn, err := r.db.Conn(ctx)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer conn.Close()

			if _, err := conn.ExecContext(ctx, sessionSetup); err != nil {
				return fmt.Errorf("failed to configure DBMS_METADATA: %w", err)
			}

			for i := w; i < len(objects); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				ddls[i], failures[i] = getDDL(ctx, conn, objects[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ddls, failures, nil
}

func getDDL(ctx context.Context, conn *sql.Conn, obj object) (string, error) {
	var ddl sql.NullString
	err := conn.QueryRowContext(ctx, "SELECT DBMS_METADATA.GET_DDL(:1, :2, :3) FROM DUAL",
		obj.metadataType, obj.key.Name, obj.metadataOwner).Scan(&ddl)
	if err != nil {
		return "", err
	}
	return sqlutil.TrimTerminator(strings.TrimSpace(ddl.String)), nil
}
