package cache

import "context"

// TierStats is a point-in-time snapshot of one cache tier.
type TierStats struct {
	SizeBytes int64
	ItemCount int64
	Hits      int64
	Misses    int64
}

// Tier is one cache layer the maintenance subsystem can inspect and clear.
type Tier interface {
	Name() string
	Stats(ctx context.Context) (TierStats, error)
	Clear(ctx context.Context) error
}
