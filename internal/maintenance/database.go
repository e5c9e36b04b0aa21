package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmunicipal/portal/internal/model"
)

// DatabaseService runs the optimize/vacuum/reindex maintenance procedures.
// These operations can be expensive and take locks, so failures are never
// retried automatically; the operator decides when to run them again.
type DatabaseService struct {
	gw     Gateway
	sink   Sink
	logger zerolog.Logger
}

func NewDatabaseService(gw Gateway, sink Sink, logger zerolog.Logger) *DatabaseService {
	return &DatabaseService{gw: gw, sink: sink, logger: logger}
}

func (s *DatabaseService) Optimize(ctx context.Context, actor *string) bool {
	return s.run(ctx, model.ActionOptimizeDatabase, ProcOptimizeDatabase, actor, s.gw.OptimizeDatabase)
}

func (s *DatabaseService) Vacuum(ctx context.Context, actor *string) bool {
	return s.run(ctx, model.ActionVacuumDatabase, ProcVacuumDatabase, actor, s.gw.VacuumDatabase)
}

func (s *DatabaseService) Reindex(ctx context.Context, actor *string) bool {
	return s.run(ctx, model.ActionReindexDatabase, ProcReindexDatabase, actor, s.gw.ReindexDatabase)
}

func (s *DatabaseService) run(ctx context.Context, action, procedure string, actor *string, fn func(context.Context) error) bool {
	started := time.Now()
	err := fn(ctx)

	detail := map[string]any{"procedure": procedure}
	recordAction(ctx, s.sink, s.logger, action, actor, started, err, detail)

	if err != nil {
		s.logger.Error().Err(err).Str("procedure", procedure).Msg("database maintenance failed")
		return false
	}
	s.logger.Info().Str("procedure", procedure).Dur("took", time.Since(started)).Msg("database maintenance completed")
	return true
}

// Stats is a pure read; it writes no audit entry.
func (s *DatabaseService) Stats(ctx context.Context) (*model.DatabaseStats, error) {
	return s.gw.DatabaseStats(ctx)
}
