package maintenance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmunicipal/portal/internal/cache"
	"github.com/openmunicipal/portal/internal/model"
)

// CacheService clears and inspects the portal's cache tiers.
type CacheService struct {
	tiers  []cache.Tier
	sink   Sink
	logger zerolog.Logger

	mu          sync.Mutex
	lastCleared *time.Time
}

func NewCacheService(tiers []cache.Tier, sink Sink, logger zerolog.Logger) *CacheService {
	return &CacheService{tiers: tiers, sink: sink, logger: logger}
}

// ClearCache clears every tier, tier by tier. A failed tier becomes a
// warning in the audit detail; the action as a whole fails only when no
// tier could be cleared. Exactly one audit entry is written either way.
func (s *CacheService) ClearCache(ctx context.Context, actor *string) (*model.CacheClearResult, bool) {
	started := time.Now()
	before := s.snapshot(ctx)

	result := &model.CacheClearResult{Before: before}
	var warnings []string

	for _, tier := range s.tiers {
		if err := tier.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Str("tier", tier.Name()).Msg("cache tier clear failed")
			result.TiersFailed = append(result.TiersFailed, tier.Name())
			warnings = append(warnings, fmt.Sprintf("tier %s: %v", tier.Name(), err))
			continue
		}
		result.TiersCleared = append(result.TiersCleared, tier.Name())
	}

	var actionErr error
	if len(s.tiers) > 0 && len(result.TiersCleared) == 0 {
		actionErr = fmt.Errorf("no cache tier could be cleared: %s", strings.Join(warnings, "; "))
	} else {
		now := time.Now()
		s.mu.Lock()
		s.lastCleared = &now
		s.mu.Unlock()
	}

	detail := map[string]any{
		"tiers_cleared":     result.TiersCleared,
		"before_size_bytes": before.SizeBytes,
		"before_item_count": before.ItemCount,
	}
	if len(warnings) > 0 {
		detail["warnings"] = warnings
	}

	recordAction(ctx, s.sink, s.logger, model.ActionClearCache, actor, started, actionErr, detail)
	return result, actionErr == nil
}

// Stats is a pure read across all tiers; it writes no audit entry.
func (s *CacheService) Stats(ctx context.Context) model.CacheStats {
	return s.snapshot(ctx)
}

func (s *CacheService) snapshot(ctx context.Context) model.CacheStats {
	var stats model.CacheStats
	var hits, misses int64

	for _, tier := range s.tiers {
		ts, err := tier.Stats(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("tier", tier.Name()).Msg("cache tier stats unavailable")
			continue
		}
		stats.SizeBytes += ts.SizeBytes
		stats.ItemCount += ts.ItemCount
		hits += ts.Hits
		misses += ts.Misses
	}

	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
		stats.MissRate = float64(misses) / float64(total)
	}

	s.mu.Lock()
	stats.LastCleared = s.lastCleared
	s.mu.Unlock()

	return stats
}
