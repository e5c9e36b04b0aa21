package model

import "time"

// Maintenance action names. These are the only actions the operations
// facade exposes, and the only values that appear in the audit trail.
const (
	ActionClearCache         = "clear_cache"
	ActionOptimizeDatabase   = "optimize_database"
	ActionVacuumDatabase     = "vacuum_database"
	ActionReindexDatabase    = "reindex_database"
	ActionCreateManualBackup = "create_manual_backup"
	ActionCheckIntegrity     = "check_integrity"
)

// Maintenance action outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MaintenanceAction is one audited maintenance invocation. It is written
// exactly once and never mutated; a failure always carries a non-empty
// Detail["error"].
type MaintenanceAction struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Outcome    string         `json:"outcome"`
	Detail     map[string]any `json:"detail,omitempty"`
	ActorID    *string        `json:"actor_id,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Integrity check statuses, derived from issue and warning counts.
const (
	IntegrityPass    = "pass"
	IntegrityWarning = "warning"
	IntegrityFail    = "fail"
)

// IntegrityCheckResult is the merged outcome of the three check categories.
// It is not persisted beyond the audit trail.
type IntegrityCheckResult struct {
	TablesChecked []string      `json:"tables_checked"`
	Issues        []string      `json:"issues"`
	Warnings      []string      `json:"warnings"`
	Status        string        `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
	Duration      time.Duration `json:"duration_ms"`
}

// DeriveIntegrityStatus applies the aggregation rule: fail if any issue,
// else warning if any warning, else pass.
func DeriveIntegrityStatus(issues, warnings []string) string {
	switch {
	case len(issues) > 0:
		return IntegrityFail
	case len(warnings) > 0:
		return IntegrityWarning
	default:
		return IntegrityPass
	}
}

// CacheStats is an on-demand snapshot of all cache tiers combined.
type CacheStats struct {
	SizeBytes   int64      `json:"size_bytes"`
	ItemCount   int64      `json:"item_count"`
	HitRate     float64    `json:"hit_rate"`
	MissRate    float64    `json:"miss_rate"`
	LastCleared *time.Time `json:"last_cleared,omitempty"`
}

// CacheClearResult reports which tiers were cleared and the pre-clear snapshot.
type CacheClearResult struct {
	TiersCleared []string   `json:"tiers_cleared"`
	TiersFailed  []string   `json:"tiers_failed,omitempty"`
	Before       CacheStats `json:"before"`
}

// DatabaseStats is an on-demand snapshot of backing store health.
type DatabaseStats struct {
	SizeBytes        int64      `json:"size_bytes"`
	TableCount       int        `json:"table_count"`
	IndexCount       int        `json:"index_count"`
	FragmentationPct float64    `json:"fragmentation_pct"`
	LastOptimizedAt  *time.Time `json:"last_optimized_at,omitempty"`
}
