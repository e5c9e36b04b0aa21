package maintenance

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/openmunicipal/portal/internal/cache"
	"github.com/openmunicipal/portal/internal/model"
)

// ---------- Fake gateway ----------

// fakeGateway is an in-memory Gateway with per-procedure failure injection.
type fakeGateway struct {
	mu sync.Mutex

	optimizeErr error
	vacuumErr   error
	reindexErr  error

	createErr   error
	completeErr error
	copyErr     error
	copyData    []byte

	records       []model.BackupRecord
	completeCalls []completeCall

	orphanCounts map[string]int64
	orphanErrs   map[string]error
	dupCounts    map[string]int64
	dupErrs      map[string]error
	tsCounts     map[string]int64
	tsErrs       map[string]error

	tableSizes    []TableSize
	tableSizesErr error
	indexes       map[string]bool
	indexErrs     map[string]error

	backupStats    *model.BackupStats
	backupStatsErr error
	dbStats        *model.DatabaseStats
	dbStatsErr     error
}

type completeCall struct {
	id      string
	size    int64
	success bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		copyData:     []byte("-- COPY service_requests\n1\tpothole\n"),
		orphanCounts: map[string]int64{},
		orphanErrs:   map[string]error{},
		dupCounts:    map[string]int64{},
		dupErrs:      map[string]error{},
		tsCounts:     map[string]int64{},
		tsErrs:       map[string]error{},
		indexes:      map[string]bool{},
		indexErrs:    map[string]error{},
	}
}

func (g *fakeGateway) OptimizeDatabase(context.Context) error { return g.optimizeErr }
func (g *fakeGateway) VacuumDatabase(context.Context) error   { return g.vacuumErr }
func (g *fakeGateway) ReindexDatabase(context.Context) error  { return g.reindexErr }

func (g *fakeGateway) DatabaseStats(context.Context) (*model.DatabaseStats, error) {
	if g.dbStatsErr != nil {
		return nil, g.dbStatsErr
	}
	if g.dbStats != nil {
		return g.dbStats, nil
	}
	return &model.DatabaseStats{}, nil
}

func (g *fakeGateway) CreateBackupRecord(_ context.Context, backupType string, tables []string, createdBy *string) (*model.BackupRecord, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rec := model.BackupRecord{
		ID:        fmt.Sprintf("backup-%d", len(g.records)+1),
		Type:      backupType,
		Status:    model.BackupPending,
		Tables:    tables,
		SizeBytes: 4096, // creation-time estimate
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	g.records = append(g.records, rec)
	out := rec
	return &out, nil
}

func (g *fakeGateway) CompleteBackupRecord(_ context.Context, id string, finalSizeBytes int64, storagePath *string, success bool) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.completeCalls = append(g.completeCalls, completeCall{id: id, size: finalSizeBytes, success: success})
	if g.completeErr != nil {
		return false, g.completeErr
	}

	for i := range g.records {
		if g.records[i].ID != id || g.records[i].Status != model.BackupPending {
			continue
		}
		now := time.Now()
		g.records[i].SizeBytes = finalSizeBytes
		g.records[i].StoragePath = storagePath
		g.records[i].CompletedAt = &now
		if success {
			g.records[i].Status = model.BackupCompleted
		} else {
			g.records[i].Status = model.BackupFailed
		}
		return true, nil
	}
	return false, nil
}

func (g *fakeGateway) BackupStats(context.Context) (*model.BackupStats, error) {
	if g.backupStatsErr != nil {
		return nil, g.backupStatsErr
	}
	if g.backupStats != nil {
		return g.backupStats, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	stats := &model.BackupStats{}
	for _, rec := range g.records {
		stats.Total++
		switch rec.Status {
		case model.BackupCompleted:
			stats.Succeeded++
		case model.BackupFailed:
			stats.Failed++
		case model.BackupPending:
			stats.Pending++
		}
		stats.TotalSizeBytes += rec.SizeBytes
	}
	if stats.Total > 0 {
		stats.AverageSizeBytes = stats.TotalSizeBytes / int64(stats.Total)
	}
	return stats, nil
}

func (g *fakeGateway) ListBackups(_ context.Context, limit, offset int) ([]model.BackupRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Newest first.
	var out []model.BackupRecord
	for i := len(g.records) - 1; i >= 0; i-- {
		out = append(out, g.records[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *fakeGateway) CopySnapshot(_ context.Context, w io.Writer, _ []string) (int64, error) {
	if g.copyErr != nil {
		return 0, g.copyErr
	}
	n, err := w.Write(g.copyData)
	return int64(n), err
}

func (g *fakeGateway) CountOrphanedRows(_ context.Context, rel OrphanRelation) (int64, error) {
	if err := g.orphanErrs[rel.Child]; err != nil {
		return 0, err
	}
	return g.orphanCounts[rel.Child], nil
}

func (g *fakeGateway) CountDuplicates(_ context.Context, table, column string) (int64, error) {
	key := table + "." + column
	if err := g.dupErrs[key]; err != nil {
		return 0, err
	}
	return g.dupCounts[key], nil
}

func (g *fakeGateway) CountTimestampsBefore(_ context.Context, table, _ string, _ time.Time) (int64, error) {
	if err := g.tsErrs[table]; err != nil {
		return 0, err
	}
	return g.tsCounts[table], nil
}

func (g *fakeGateway) TableSizes(context.Context) ([]TableSize, error) {
	if g.tableSizesErr != nil {
		return nil, g.tableSizesErr
	}
	return g.tableSizes, nil
}

func (g *fakeGateway) IndexExists(_ context.Context, table, column string) (bool, error) {
	key := table + "." + column
	if err := g.indexErrs[key]; err != nil {
		return false, err
	}
	exists, ok := g.indexes[key]
	if !ok {
		return true, nil // indexes present unless a test removes them
	}
	return exists, nil
}

// ---------- Fake sink ----------

type memorySink struct {
	mu      sync.Mutex
	actions []model.MaintenanceAction
	err     error
}

func (s *memorySink) Append(_ context.Context, action model.MaintenanceAction) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *memorySink) all() []model.MaintenanceAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.MaintenanceAction(nil), s.actions...)
}

func (s *memorySink) last() model.MaintenanceAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actions[len(s.actions)-1]
}

// ---------- Fake cache tier ----------

type fakeTier struct {
	name     string
	clearErr error
	stats    cache.TierStats
	statsErr error
	cleared  bool
}

func (t *fakeTier) Name() string { return t.name }

func (t *fakeTier) Stats(context.Context) (cache.TierStats, error) {
	if t.statsErr != nil {
		return cache.TierStats{}, t.statsErr
	}
	return t.stats, nil
}

func (t *fakeTier) Clear(context.Context) error {
	if t.clearErr != nil {
		return t.clearErr
	}
	t.cleared = true
	return nil
}

// ---------- Fake object store ----------

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	if s.putErr != nil {
		return 0, s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return int64(len(data)), nil
}

// ---------- Mock DB (for the recorder) ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// mockRows implements pgx.Rows for testing. It iterates through a list of
// scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                    { return m.err }
func (m *mockRows) Close()                                        {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription  { return nil }
func (m *mockRows) RawValues() [][]byte                           { return nil }
func (m *mockRows) Values() ([]any, error)                        { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                               { return nil }
