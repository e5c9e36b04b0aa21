package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/openmunicipal/portal/internal/metrics"
	"github.com/openmunicipal/portal/internal/model"
	"github.com/openmunicipal/portal/internal/platform"
)

// DB is the narrow database surface the audit recorder needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sink receives one entry per executed maintenance action. Appends are
// never read back or modified by the writer.
type Sink interface {
	Append(ctx context.Context, action model.MaintenanceAction) error
}

const metricMaintenanceAction = "maintenance_action"

// metricValue is the persisted shape of one maintenance action entry.
type metricValue struct {
	Action  string         `json:"action"`
	Details map[string]any `json:"details,omitempty"`
	// Timestamp is when the action finished; start and duration live in
	// the details.
	Timestamp time.Time `json:"timestamp"`
	UserID    *string   `json:"user_id"`
}

// Recorder is the durable, append-only audit sink. Each Append performs
// one synchronous insert so that every completed maintenance action is on
// disk before its result reaches the caller. Live subscribers receive a
// best-effort copy for the ops dashboard tail.
type Recorder struct {
	db     DB
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[chan model.MaintenanceAction]struct{}
}

func NewRecorder(db DB, logger zerolog.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger,
		subs:   make(map[chan model.MaintenanceAction]struct{}),
	}
}

func (r *Recorder) Append(ctx context.Context, action model.MaintenanceAction) error {
	details := make(map[string]any, len(action.Detail)+3)
	for k, v := range action.Detail {
		details[k] = v
	}
	details["outcome"] = action.Outcome
	details["started_at"] = action.StartedAt.UTC().Format(time.RFC3339Nano)
	details["duration_ms"] = action.FinishedAt.Sub(action.StartedAt).Milliseconds()

	value, err := json.Marshal(metricValue{
		Action:    action.Action,
		Details:   details,
		Timestamp: action.FinishedAt.UTC(),
		UserID:    action.ActorID,
	})
	if err != nil {
		return fmt.Errorf("encode maintenance action: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO system_metrics (id, metric_name, metric_value, created_at)
		 VALUES ($1, $2, $3, $4)`,
		action.ID, metricMaintenanceAction, value, action.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append maintenance action: %w", err)
	}

	r.broadcast(action)
	return nil
}

// List returns recorded maintenance actions, newest first.
func (r *Recorder) List(ctx context.Context, limit, offset int) ([]model.MaintenanceAction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, metric_value, created_at FROM system_metrics
		 WHERE metric_name = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		metricMaintenanceAction, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list maintenance actions: %w", err)
	}
	defer rows.Close()

	var actions []model.MaintenanceAction
	for rows.Next() {
		var (
			id      string
			raw     []byte
			created time.Time
		)
		if err := rows.Scan(&id, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan maintenance action: %w", err)
		}

		var value metricValue
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode maintenance action %s: %w", id, err)
		}

		action := model.MaintenanceAction{
			ID:         id,
			Action:     value.Action,
			Detail:     value.Details,
			ActorID:    value.UserID,
			FinishedAt: value.Timestamp,
		}
		if outcome, ok := value.Details["outcome"].(string); ok {
			action.Outcome = outcome
		}
		if started, ok := value.Details["started_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
				action.StartedAt = t
			}
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maintenance actions: %w", err)
	}
	return actions, nil
}

// Subscribe registers a live feed of appended actions. The channel is
// dropped from, not blocked on, when the subscriber falls behind. The
// returned func unsubscribes.
func (r *Recorder) Subscribe() (<-chan model.MaintenanceAction, func()) {
	ch := make(chan model.MaintenanceAction, 16)

	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Recorder) broadcast(action model.MaintenanceAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- action:
		default:
			r.logger.Warn().Str("action", action.Action).Msg("audit subscriber behind, dropping entry")
		}
	}
}

// recordAction builds the audit entry for one finished maintenance action
// and appends it to the sink. Failures always carry a non-empty error
// detail. A sink failure is logged but does not alter the action outcome.
func recordAction(ctx context.Context, sink Sink, logger zerolog.Logger, name string, actor *string, started time.Time, actionErr error, detail map[string]any) model.MaintenanceAction {
	finished := time.Now()

	if detail == nil {
		detail = make(map[string]any)
	}

	outcome := model.OutcomeSuccess
	if actionErr != nil {
		outcome = model.OutcomeFailure
		msg := actionErr.Error()
		if msg == "" {
			msg = "unknown error"
		}
		detail["error"] = msg
	}

	action := model.MaintenanceAction{
		ID:         platform.NewID(),
		Action:     name,
		Outcome:    outcome,
		Detail:     detail,
		ActorID:    actor,
		StartedAt:  started,
		FinishedAt: finished,
	}

	if err := sink.Append(ctx, action); err != nil {
		logger.Error().Err(err).Str("action", name).Msg("failed to append audit entry")
	}
	metrics.ObserveMaintenanceAction(name, outcome, finished.Sub(started))
	return action
}
