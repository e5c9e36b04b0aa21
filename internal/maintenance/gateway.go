package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/openmunicipal/portal/internal/model"
)

// Fault categories returned by the gateway.
const (
	FaultUnavailable     = "unavailable"
	FaultInvalidArgument = "invalid_argument"
	FaultInternal        = "internal"
)

// Fault is a machine-categorized gateway error. The gateway returns faults,
// it never panics; callers log them into the audit trail.
type Fault struct {
	Category string
	Message  string
}

func (f *Fault) Error() string {
	return f.Category + ": " + f.Message
}

// AsFault unwraps err into a *Fault if it carries one.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Stable procedure names exposed by the backing store. These identifiers
// form the gateway's external contract and appear in logs and audit detail.
const (
	ProcOptimizeDatabase     = "optimize_database"
	ProcVacuumDatabase       = "vacuum_database"
	ProcReindexDatabase      = "reindex_database"
	ProcCreateSystemBackup   = "create_system_backup"
	ProcCompleteSystemBackup = "complete_system_backup"
	ProcGetBackupStats       = "get_backup_stats"
	ProcListSystemBackups    = "list_system_backups"
	ProcGetDatabaseStats     = "get_database_stats"
	ProcCopySnapshot         = "copy_snapshot"
)

// OrphanRelation names a child table whose foreign-key column should
// resolve to a row in the parent table.
type OrphanRelation struct {
	Child      string
	ForeignKey string
	Parent     string
	ParentKey  string
}

// TableSize is one table's on-disk footprint.
type TableSize struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// Gateway is the only component that performs I/O against the backing
// store. Every method maps to one named procedure; all procedures are
// idempotent from the caller's perspective except CreateBackupRecord,
// which allocates a new identifier per call. Every error returned wraps a
// *Fault.
type Gateway interface {
	OptimizeDatabase(ctx context.Context) error
	VacuumDatabase(ctx context.Context) error
	ReindexDatabase(ctx context.Context) error
	DatabaseStats(ctx context.Context) (*model.DatabaseStats, error)

	CreateBackupRecord(ctx context.Context, backupType string, tables []string, createdBy *string) (*model.BackupRecord, error)
	CompleteBackupRecord(ctx context.Context, id string, finalSizeBytes int64, storagePath *string, success bool) (bool, error)
	BackupStats(ctx context.Context) (*model.BackupStats, error)
	ListBackups(ctx context.Context, limit, offset int) ([]model.BackupRecord, error)
	CopySnapshot(ctx context.Context, w io.Writer, tables []string) (int64, error)

	CountOrphanedRows(ctx context.Context, rel OrphanRelation) (int64, error)
	CountDuplicates(ctx context.Context, table, column string) (int64, error)
	CountTimestampsBefore(ctx context.Context, table, column string, epoch time.Time) (int64, error)
	TableSizes(ctx context.Context) ([]TableSize, error)
	IndexExists(ctx context.Context, table, column string) (bool, error)
}

// snapshotTables is the fixed set of portal tables included in a full
// backup snapshot, in copy order.
var snapshotTables = []string{
	"service_requests",
	"service_request_notes",
	"news_articles",
	"events",
	"event_registrations",
	"city_services",
}

// PGGateway implements Gateway over a pgx connection pool.
type PGGateway struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPGGateway(pool *pgxpool.Pool, logger zerolog.Logger) *PGGateway {
	return &PGGateway{pool: pool, logger: logger}
}

func (g *PGGateway) OptimizeDatabase(ctx context.Context) error {
	// ANALYZE refreshes planner statistics across the database.
	if _, err := g.pool.Exec(ctx, "ANALYZE"); err != nil {
		return g.fault(ProcOptimizeDatabase, err)
	}
	if _, err := g.pool.Exec(ctx,
		"UPDATE maintenance_state SET last_optimized_at = now() WHERE id = 1"); err != nil {
		return g.fault(ProcOptimizeDatabase, err)
	}
	return nil
}

func (g *PGGateway) VacuumDatabase(ctx context.Context) error {
	// VACUUM cannot run inside a transaction block or a stored function,
	// so it is issued as a top-level statement here.
	if _, err := g.pool.Exec(ctx, "VACUUM (ANALYZE)"); err != nil {
		return g.fault(ProcVacuumDatabase, err)
	}
	return nil
}

func (g *PGGateway) ReindexDatabase(ctx context.Context) error {
	if _, err := g.pool.Exec(ctx, "REINDEX SCHEMA public"); err != nil {
		return g.fault(ProcReindexDatabase, err)
	}
	return nil
}

func (g *PGGateway) DatabaseStats(ctx context.Context) (*model.DatabaseStats, error) {
	const query = `
		SELECT pg_database_size(current_database()),
		       (SELECT count(*) FROM information_schema.tables
		        WHERE table_schema = 'public' AND table_type = 'BASE TABLE'),
		       (SELECT count(*) FROM pg_indexes WHERE schemaname = 'public'),
		       COALESCE((SELECT sum(n_dead_tup)::float8 * 100
		                        / NULLIF(sum(n_live_tup + n_dead_tup), 0)
		                 FROM pg_stat_user_tables), 0),
		       (SELECT last_optimized_at FROM maintenance_state WHERE id = 1)`

	stats := &model.DatabaseStats{}
	err := g.pool.QueryRow(ctx, query).Scan(
		&stats.SizeBytes,
		&stats.TableCount,
		&stats.IndexCount,
		&stats.FragmentationPct,
		&stats.LastOptimizedAt,
	)
	if err != nil {
		return nil, g.fault(ProcGetDatabaseStats, err)
	}
	return stats, nil
}

func (g *PGGateway) CreateBackupRecord(ctx context.Context, backupType string, tables []string, createdBy *string) (*model.BackupRecord, error) {
	var rec model.BackupRecord
	err := g.pool.QueryRow(ctx,
		`SELECT id, type, status, tables, size_bytes, storage_path, compressed, created_by, created_at, completed_at
		 FROM create_system_backup($1, $2, $3)`,
		backupType, tables, createdBy,
	).Scan(&rec.ID, &rec.Type, &rec.Status, &rec.Tables, &rec.SizeBytes,
		&rec.StoragePath, &rec.Compressed, &rec.CreatedBy, &rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		return nil, g.fault(ProcCreateSystemBackup, err)
	}
	return &rec, nil
}

func (g *PGGateway) CompleteBackupRecord(ctx context.Context, id string, finalSizeBytes int64, storagePath *string, success bool) (bool, error) {
	var completed bool
	err := g.pool.QueryRow(ctx,
		"SELECT complete_system_backup($1, $2, $3, $4)",
		id, finalSizeBytes, storagePath, success,
	).Scan(&completed)
	if err != nil {
		return false, g.fault(ProcCompleteSystemBackup, err)
	}
	return completed, nil
}

func (g *PGGateway) BackupStats(ctx context.Context) (*model.BackupStats, error) {
	stats := &model.BackupStats{}
	err := g.pool.QueryRow(ctx,
		`SELECT total, succeeded, failed, pending, total_size_bytes, average_size_bytes, latest_created_at, oldest_created_at
		 FROM get_backup_stats()`,
	).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.Pending,
		&stats.TotalSizeBytes, &stats.AverageSizeBytes, &stats.LatestCreatedAt, &stats.OldestCreatedAt)
	if err != nil {
		return nil, g.fault(ProcGetBackupStats, err)
	}
	return stats, nil
}

func (g *PGGateway) ListBackups(ctx context.Context, limit, offset int) ([]model.BackupRecord, error) {
	if limit <= 0 || offset < 0 {
		return nil, &Fault{Category: FaultInvalidArgument, Message: fmt.Sprintf("%s: invalid page limit=%d offset=%d", ProcListSystemBackups, limit, offset)}
	}

	rows, err := g.pool.Query(ctx,
		`SELECT id, type, status, tables, size_bytes, storage_path, compressed, created_by, created_at, completed_at
		 FROM list_system_backups($1, $2)`,
		limit, offset,
	)
	if err != nil {
		return nil, g.fault(ProcListSystemBackups, err)
	}
	defer rows.Close()

	var backups []model.BackupRecord
	for rows.Next() {
		var rec model.BackupRecord
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Status, &rec.Tables, &rec.SizeBytes,
			&rec.StoragePath, &rec.Compressed, &rec.CreatedBy, &rec.CreatedAt, &rec.CompletedAt); err != nil {
			return nil, g.fault(ProcListSystemBackups, err)
		}
		backups = append(backups, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, g.fault(ProcListSystemBackups, err)
	}
	return backups, nil
}

// CopySnapshot streams the contents of the given tables (all snapshot
// tables when nil) to w using COPY TO STDOUT, one section per table.
// Returns the number of bytes written.
func (g *PGGateway) CopySnapshot(ctx context.Context, w io.Writer, tables []string) (int64, error) {
	if tables == nil {
		tables = snapshotTables
	}
	for _, t := range tables {
		if !isSnapshotTable(t) {
			return 0, &Fault{Category: FaultInvalidArgument, Message: fmt.Sprintf("%s: table %q is not part of the snapshot set", ProcCopySnapshot, t)}
		}
	}

	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return 0, g.fault(ProcCopySnapshot, err)
	}
	defer conn.Release()

	cw := &countingWriter{w: w}
	for _, t := range tables {
		if _, err := fmt.Fprintf(cw, "-- COPY %s\n", t); err != nil {
			return cw.n, g.fault(ProcCopySnapshot, err)
		}
		stmt := fmt.Sprintf("COPY %s TO STDOUT", pgx.Identifier{t}.Sanitize())
		if _, err := conn.Conn().PgConn().CopyTo(ctx, cw, stmt); err != nil {
			return cw.n, g.fault(ProcCopySnapshot, err)
		}
	}
	return cw.n, nil
}

func (g *PGGateway) CountOrphanedRows(ctx context.Context, rel OrphanRelation) (int64, error) {
	// Relation identifiers come from the fixed in-code check list, never
	// from user input.
	query := fmt.Sprintf(
		`SELECT count(*) FROM %s c LEFT JOIN %s p ON c.%s = p.%s
		 WHERE c.%s IS NOT NULL AND p.%s IS NULL`,
		pgx.Identifier{rel.Child}.Sanitize(),
		pgx.Identifier{rel.Parent}.Sanitize(),
		pgx.Identifier{rel.ForeignKey}.Sanitize(),
		pgx.Identifier{rel.ParentKey}.Sanitize(),
		pgx.Identifier{rel.ForeignKey}.Sanitize(),
		pgx.Identifier{rel.ParentKey}.Sanitize(),
	)

	var count int64
	if err := g.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, g.fault("count_orphaned_rows", err)
	}
	return count, nil
}

func (g *PGGateway) CountDuplicates(ctx context.Context, table, column string) (int64, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(sum(c), 0) FROM (
		   SELECT count(*) AS c FROM %s GROUP BY %s HAVING count(*) > 1
		 ) dup`,
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
	)

	var count int64
	if err := g.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, g.fault("count_duplicates", err)
	}
	return count, nil
}

func (g *PGGateway) CountTimestampsBefore(ctx context.Context, table, column string, epoch time.Time) (int64, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s < $1",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
	)

	var count int64
	if err := g.pool.QueryRow(ctx, query, epoch).Scan(&count); err != nil {
		return 0, g.fault("count_timestamps_before", err)
	}
	return count, nil
}

func (g *PGGateway) TableSizes(ctx context.Context) ([]TableSize, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT relname, pg_total_relation_size(relid)
		 FROM pg_catalog.pg_statio_user_tables ORDER BY relname`)
	if err != nil {
		return nil, g.fault("table_sizes", err)
	}
	defer rows.Close()

	var sizes []TableSize
	for rows.Next() {
		var ts TableSize
		if err := rows.Scan(&ts.Name, &ts.SizeBytes); err != nil {
			return nil, g.fault("table_sizes", err)
		}
		sizes = append(sizes, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, g.fault("table_sizes", err)
	}
	return sizes, nil
}

func (g *PGGateway) IndexExists(ctx context.Context, table, column string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM pg_index i
			JOIN pg_class t ON t.oid = i.indrelid
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
			WHERE t.relname = $1 AND a.attname = $2
		)`

	var exists bool
	if err := g.pool.QueryRow(ctx, query, table, column).Scan(&exists); err != nil {
		return false, g.fault("index_exists", err)
	}
	return exists, nil
}

// fault categorizes a backing-store error and logs it at debug level.
func (g *PGGateway) fault(procedure string, err error) *Fault {
	f := categorize(err)
	f.Message = procedure + ": " + f.Message
	g.logger.Debug().Str("procedure", procedure).Str("category", f.Category).Msg(f.Message)
	return f
}

func categorize(err error) *Fault {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Fault{Category: FaultUnavailable, Message: err.Error()}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		// 08: connection exceptions, 53: insufficient resources,
		// 57: operator intervention (e.g. shutdown in progress).
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"):
			return &Fault{Category: FaultUnavailable, Message: err.Error()}
		// 22: data exceptions, 23: integrity constraint violations.
		case strings.HasPrefix(pgErr.Code, "22"),
			strings.HasPrefix(pgErr.Code, "23"):
			return &Fault{Category: FaultInvalidArgument, Message: err.Error()}
		default:
			return &Fault{Category: FaultInternal, Message: err.Error()}
		}
	}

	if pgconn.SafeToRetry(err) {
		return &Fault{Category: FaultUnavailable, Message: err.Error()}
	}
	return &Fault{Category: FaultInternal, Message: err.Error()}
}

func isSnapshotTable(name string) bool {
	for _, t := range snapshotTables {
		if t == name {
			return true
		}
	}
	return false
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
