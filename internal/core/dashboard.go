package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// DashboardStats holds aggregate counts for the back-office landing page.
type DashboardStats struct {
	RequestsTotal      int           `json:"requests_total"`
	RequestsOpen       int           `json:"requests_open"`
	RequestsResolved   int           `json:"requests_resolved"`
	RequestsLast7Days  int           `json:"requests_last_7_days"`
	ArticlesPublished  int           `json:"articles_published"`
	EventsUpcoming     int           `json:"events_upcoming"`
	CityServices       int           `json:"city_services"`
	RequestsByStatus   []StatusCount `json:"requests_by_status"`
	RequestsByCategory []StatusCount `json:"requests_by_category"`
}

// StatusCount holds a count grouped by a label.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DashboardService queries aggregate stats from the portal database. The
// computed snapshot is held in the local cache; staleness is bounded by the
// tier's TTL, which is fine for landing-page counts.
type DashboardService struct {
	db    DB
	local LocalCache
}

func NewDashboardService(db DB, local LocalCache) *DashboardService {
	return &DashboardService{db: db, local: local}
}

const dashboardStatsKey = "dashboard:stats"

// Stats returns aggregate counts using a single query with CTEs, plus two
// grouped breakdowns.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if s.local != nil {
		if raw, ok := s.local.Get(dashboardStatsKey); ok {
			var cached DashboardStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
			s.local.Delete(dashboardStatsKey)
		}
	}

	const countsQuery = `
		WITH request_total AS (
			SELECT count(*) AS c FROM service_requests
		), request_open AS (
			SELECT count(*) AS c FROM service_requests WHERE status NOT IN ('resolved', 'rejected')
		), request_resolved AS (
			SELECT count(*) AS c FROM service_requests WHERE status = 'resolved'
		), request_recent AS (
			SELECT count(*) AS c FROM service_requests WHERE created_at > now() - interval '7 days'
		), article_published AS (
			SELECT count(*) AS c FROM news_articles WHERE published
		), event_upcoming AS (
			SELECT count(*) AS c FROM events WHERE published AND ends_at > now()
		), city_service_count AS (
			SELECT count(*) AS c FROM city_services
		)
		SELECT
			(SELECT c FROM request_total),
			(SELECT c FROM request_open),
			(SELECT c FROM request_resolved),
			(SELECT c FROM request_recent),
			(SELECT c FROM article_published),
			(SELECT c FROM event_upcoming),
			(SELECT c FROM city_service_count)`

	stats := &DashboardStats{}
	err := s.db.QueryRow(ctx, countsQuery).Scan(
		&stats.RequestsTotal,
		&stats.RequestsOpen,
		&stats.RequestsResolved,
		&stats.RequestsLast7Days,
		&stats.ArticlesPublished,
		&stats.EventsUpcoming,
		&stats.CityServices,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	stats.RequestsByStatus, err = s.grouped(ctx,
		`SELECT status, count(*) FROM service_requests GROUP BY status ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard requests by status: %w", err)
	}

	stats.RequestsByCategory, err = s.grouped(ctx,
		`SELECT category, count(*) FROM service_requests GROUP BY category ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard requests by category: %w", err)
	}

	if s.local != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.local.Set(dashboardStatsKey, raw)
		}
	}
	return stats, nil
}

func (s *DashboardService) grouped(ctx context.Context, query string) ([]StatusCount, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan grouped count: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grouped counts: %w", err)
	}
	return counts, nil
}
