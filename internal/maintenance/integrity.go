package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openmunicipal/portal/internal/model"
)

// The fixed check battery. Every list is iterated in order so a given
// backing-store state always produces the same output.

var orphanRelations = []OrphanRelation{
	{Child: "service_request_notes", ForeignKey: "request_id", Parent: "service_requests", ParentKey: "id"},
	{Child: "event_registrations", ForeignKey: "event_id", Parent: "events", ParentKey: "id"},
}

var uniqueColumns = []struct {
	Table  string
	Column string
}{
	{"service_requests", "reference"},
	{"news_articles", "slug"},
	{"event_registrations", "attendee_email"},
}

var timestampColumns = []struct {
	Table  string
	Column string
}{
	{"service_requests", "created_at"},
	{"news_articles", "created_at"},
	{"events", "created_at"},
}

var recommendedIndexes = []struct {
	Table  string
	Column string
}{
	{"service_requests", "status"},
	{"service_requests", "category"},
	{"event_registrations", "event_id"},
}

// plausibleEpoch is the portal's go-live horizon; creation timestamps
// before it indicate a migration or clock defect.
var plausibleEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const largeTableThresholdBytes = 100 << 20 // 100 MiB

// IntegrityService runs the fixed battery of orphaned-record, consistency,
// and performance checks and merges them into one verdict.
type IntegrityService struct {
	gw     Gateway
	sink   Sink
	logger zerolog.Logger
}

func NewIntegrityService(gw Gateway, sink Sink, logger zerolog.Logger) *IntegrityService {
	return &IntegrityService{gw: gw, sink: sink, logger: logger}
}

type categoryResult struct {
	issues   []string
	warnings []string
}

// CheckIntegrity runs the three categories concurrently; none of them
// short-circuits the others. Results are merged in fixed category order
// (orphans, consistency, performance) so the output is deterministic for
// a given backing-store state. One audit entry is written; the action is
// recorded as a failure when the verdict is fail.
func (s *IntegrityService) CheckIntegrity(ctx context.Context, actor *string) *model.IntegrityCheckResult {
	started := time.Now()

	var orphans, consistency, performance categoryResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { orphans = s.checkOrphans(gctx); return nil })
	g.Go(func() error { consistency = s.checkConsistency(gctx); return nil })
	g.Go(func() error { performance = s.checkPerformance(gctx); return nil })
	_ = g.Wait()

	result := &model.IntegrityCheckResult{
		TablesChecked: checkedTables(),
		Timestamp:     time.Now(),
	}
	for _, cat := range []categoryResult{orphans, consistency, performance} {
		result.Issues = append(result.Issues, cat.issues...)
		result.Warnings = append(result.Warnings, cat.warnings...)
	}
	result.Status = model.DeriveIntegrityStatus(result.Issues, result.Warnings)
	result.Duration = time.Since(started)

	var actionErr error
	if result.Status == model.IntegrityFail {
		actionErr = errors.New(strings.Join(result.Issues, "; "))
	}

	detail := map[string]any{
		"status":         result.Status,
		"issue_count":    len(result.Issues),
		"warning_count":  len(result.Warnings),
		"tables_checked": result.TablesChecked,
	}
	recordAction(ctx, s.sink, s.logger, model.ActionCheckIntegrity, actor, started, actionErr, detail)

	s.logger.Info().Str("status", result.Status).
		Int("issues", len(result.Issues)).Int("warnings", len(result.Warnings)).
		Dur("took", result.Duration).Msg("integrity check completed")
	return result
}

// checkOrphans counts child rows whose foreign key does not resolve.
// Orphaned rows are a cleanup opportunity, not corruption, so a non-zero
// count is always a warning; only a failed query is an issue.
func (s *IntegrityService) checkOrphans(ctx context.Context) categoryResult {
	var res categoryResult
	for _, rel := range orphanRelations {
		count, err := s.gw.CountOrphanedRows(ctx, rel)
		if err != nil {
			res.issues = append(res.issues, fmt.Sprintf("orphan check %s -> %s failed: %v", rel.Child, rel.Parent, err))
			continue
		}
		if count > 0 {
			res.warnings = append(res.warnings, fmt.Sprintf("%d orphaned rows in %s referencing missing %s", count, rel.Child, rel.Parent))
		}
	}
	return res
}

// checkConsistency flags duplicate values in columns expected unique and
// creation timestamps before the plausible epoch.
func (s *IntegrityService) checkConsistency(ctx context.Context) categoryResult {
	var res categoryResult
	for _, uc := range uniqueColumns {
		count, err := s.gw.CountDuplicates(ctx, uc.Table, uc.Column)
		if err != nil {
			res.issues = append(res.issues, fmt.Sprintf("duplicate check %s.%s failed: %v", uc.Table, uc.Column, err))
			continue
		}
		if count > 0 {
			res.warnings = append(res.warnings, fmt.Sprintf("%d rows with duplicate %s in %s", count, uc.Column, uc.Table))
		}
	}
	for _, tc := range timestampColumns {
		count, err := s.gw.CountTimestampsBefore(ctx, tc.Table, tc.Column, plausibleEpoch)
		if err != nil {
			res.issues = append(res.issues, fmt.Sprintf("timestamp check %s.%s failed: %v", tc.Table, tc.Column, err))
			continue
		}
		if count > 0 {
			res.warnings = append(res.warnings, fmt.Sprintf("%d rows in %s with %s before %s", count, tc.Table, tc.Column, plausibleEpoch.Format("2006-01-02")))
		}
	}
	return res
}

// checkPerformance flags oversized tables and missing recommended indexes.
func (s *IntegrityService) checkPerformance(ctx context.Context) categoryResult {
	var res categoryResult

	sizes, err := s.gw.TableSizes(ctx)
	if err != nil {
		res.issues = append(res.issues, fmt.Sprintf("table size enumeration failed: %v", err))
	} else {
		for _, ts := range sizes {
			if ts.SizeBytes > largeTableThresholdBytes {
				res.warnings = append(res.warnings, fmt.Sprintf("table %s is %d bytes, exceeding the %d byte threshold", ts.Name, ts.SizeBytes, int64(largeTableThresholdBytes)))
			}
		}
	}

	for _, ri := range recommendedIndexes {
		exists, err := s.gw.IndexExists(ctx, ri.Table, ri.Column)
		if err != nil {
			res.issues = append(res.issues, fmt.Sprintf("index check %s.%s failed: %v", ri.Table, ri.Column, err))
			continue
		}
		if !exists {
			res.warnings = append(res.warnings, fmt.Sprintf("missing recommended index on %s.%s", ri.Table, ri.Column))
		}
	}
	return res
}

func checkedTables() []string {
	seen := make(map[string]struct{})
	var tables []string
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			tables = append(tables, name)
		}
	}
	for _, rel := range orphanRelations {
		add(rel.Child)
		add(rel.Parent)
	}
	for _, uc := range uniqueColumns {
		add(uc.Table)
	}
	for _, tc := range timestampColumns {
		add(tc.Table)
	}
	for _, ri := range recommendedIndexes {
		add(ri.Table)
	}
	return tables
}
