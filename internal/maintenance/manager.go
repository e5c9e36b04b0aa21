package maintenance

import (
	"context"

	"github.com/openmunicipal/portal/internal/model"
)

// Manager is the single entry point the administrative UI calls. It owns
// no logic beyond delegation; each delegated mutating call writes exactly
// one audit entry bracketing the call, success or failure. There is no
// mutual exclusion: two concurrent invocations of the same action proceed
// independently.
type Manager struct {
	cache     *CacheService
	database  *DatabaseService
	backup    *BackupService
	integrity *IntegrityService
	recorder  *Recorder
}

func NewManager(cache *CacheService, database *DatabaseService, backup *BackupService, integrity *IntegrityService, recorder *Recorder) *Manager {
	return &Manager{
		cache:     cache,
		database:  database,
		backup:    backup,
		integrity: integrity,
		recorder:  recorder,
	}
}

// Mutating actions. Each returns plain success/failure; the authoritative
// failure detail lives in the audit trail.

func (m *Manager) ClearCache(ctx context.Context, actor *string) bool {
	_, ok := m.cache.ClearCache(ctx, actor)
	return ok
}

func (m *Manager) OptimizeDatabase(ctx context.Context, actor *string) bool {
	return m.database.Optimize(ctx, actor)
}

func (m *Manager) VacuumDatabase(ctx context.Context, actor *string) bool {
	return m.database.Vacuum(ctx, actor)
}

func (m *Manager) ReindexDatabase(ctx context.Context, actor *string) bool {
	return m.database.Reindex(ctx, actor)
}

func (m *Manager) CreateManualBackup(ctx context.Context, actor *string) bool {
	return m.backup.CreateManualBackup(ctx, actor)
}

func (m *Manager) CheckIntegrity(ctx context.Context, actor *string) bool {
	result := m.integrity.CheckIntegrity(ctx, actor)
	return result.Status != model.IntegrityFail
}

// Read-only snapshots. Reads are not audited.

func (m *Manager) CacheStats(ctx context.Context) model.CacheStats {
	return m.cache.Stats(ctx)
}

func (m *Manager) DatabaseStats(ctx context.Context) (*model.DatabaseStats, error) {
	return m.database.Stats(ctx)
}

func (m *Manager) BackupStats(ctx context.Context) (*model.BackupStats, error) {
	return m.backup.Stats(ctx)
}

func (m *Manager) ListBackups(ctx context.Context, limit, offset int) ([]model.BackupRecord, error) {
	return m.backup.List(ctx, limit, offset)
}

func (m *Manager) AuditTrail(ctx context.Context, limit, offset int) ([]model.MaintenanceAction, error) {
	return m.recorder.List(ctx, limit, offset)
}

// SubscribeAudit exposes the recorder's live feed for the ops dashboard.
func (m *Manager) SubscribeAudit() (<-chan model.MaintenanceAction, func()) {
	return m.recorder.Subscribe()
}
