package model

import "time"

// BackupRecord tracks one backup attempt through its lifecycle:
// pending at creation, then exactly one transition to completed or failed.
type BackupRecord struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Tables      []string   `json:"tables,omitempty"` // nil means all tables
	SizeBytes   int64      `json:"size_bytes"`
	StoragePath *string    `json:"storage_path,omitempty"`
	Compressed  bool       `json:"compressed"`
	CreatedBy   *string    `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const BackupTypeManual = "manual"

// BackupStats is a server-side aggregation over all backup records,
// returned as one snapshot. The size fields sum and average over every
// record regardless of status, so pending and failed estimates count.
type BackupStats struct {
	Total            int        `json:"total"`
	Succeeded        int        `json:"succeeded"`
	Failed           int        `json:"failed"`
	Pending          int        `json:"pending"`
	TotalSizeBytes   int64      `json:"total_size_bytes"`
	AverageSizeBytes int64      `json:"average_size_bytes"`
	LatestCreatedAt  *time.Time `json:"latest_created_at,omitempty"`
	OldestCreatedAt  *time.Time `json:"oldest_created_at,omitempty"`
}
