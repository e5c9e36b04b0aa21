package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openmunicipal/portal/internal/model"
)

type NewsService struct {
	db      DB
	content ContentCache
}

func NewNewsService(db DB, content ContentCache) *NewsService {
	return &NewsService{db: db, content: content}
}

const newsColumns = `id, slug, title, summary, body, published, published_at, created_at, updated_at`

func (s *NewsService) Create(ctx context.Context, a *model.NewsArticle) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO news_articles (id, slug, title, summary, body, published, published_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Slug, a.Title, a.Summary, a.Body, a.Published, a.PublishedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert news article: %w", err)
	}
	return nil
}

// GetBySlug serves the public article page through the content cache:
// a hit skips the database, a miss populates the cache with the rendered
// article. Only published articles are cached; their keys are invalidated
// on update and on publish state changes.
func (s *NewsService) GetBySlug(ctx context.Context, slug string) (*model.NewsArticle, error) {
	key := newsCacheKey(slug)
	if s.content != nil {
		if raw, ok := s.content.Get(key); ok {
			var a model.NewsArticle
			if err := json.Unmarshal(raw, &a); err == nil {
				return &a, nil
			}
			s.invalidate(slug)
		}
	}

	var a model.NewsArticle
	err := s.db.QueryRow(ctx,
		"SELECT "+newsColumns+" FROM news_articles WHERE slug = $1", slug,
	).Scan(&a.ID, &a.Slug, &a.Title, &a.Summary, &a.Body, &a.Published, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get news article %s: %w", slug, err)
	}

	if s.content != nil && a.Published {
		if raw, err := json.Marshal(a); err == nil {
			if err := s.content.Set(key, raw); err != nil {
				log.Warn().Err(err).Str("slug", slug).Msg("content cache population failed")
			}
		}
	}
	return &a, nil
}

func (s *NewsService) Update(ctx context.Context, a *model.NewsArticle) error {
	err := s.db.QueryRow(ctx,
		`UPDATE news_articles SET title = $1, summary = $2, body = $3, updated_at = now()
		 WHERE id = $4 RETURNING slug`,
		a.Title, a.Summary, a.Body, a.ID,
	).Scan(&a.Slug)
	if err != nil {
		return fmt.Errorf("update news article %s: %w", a.ID, err)
	}
	s.invalidate(a.Slug)
	return nil
}

// SetPublished publishes or unpublishes an article and invalidates its
// cached rendering.
func (s *NewsService) SetPublished(ctx context.Context, id string, published bool) error {
	var slug string
	err := s.db.QueryRow(ctx,
		`UPDATE news_articles
		 SET published = $1,
		     published_at = CASE WHEN $1 THEN COALESCE(published_at, now()) ELSE published_at END,
		     updated_at = now()
		 WHERE id = $2 RETURNING slug`,
		published, id,
	).Scan(&slug)
	if err != nil {
		return fmt.Errorf("set news article %s published=%t: %w", id, published, err)
	}
	s.invalidate(slug)
	return nil
}

// ListPublished returns published articles, newest first, keyset-paginated
// on (published_at, id). The cursor is the last article's ID; its sort key
// is resolved server-side so the predicate matches the ordering even though
// IDs themselves are unordered.
func (s *NewsService) ListPublished(ctx context.Context, limit int, cursor string) ([]model.NewsArticle, bool, error) {
	query := "SELECT " + newsColumns + " FROM news_articles WHERE published"
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(
			" AND (published_at, id) < (SELECT published_at, id FROM news_articles WHERE id = $%d)", argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += " ORDER BY published_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit+1)

	return s.list(ctx, query, args, limit)
}

// List returns every article for the back office, newest first, with the
// same resolved-cursor pagination as ListPublished over (created_at, id).
func (s *NewsService) List(ctx context.Context, limit int, cursor string) ([]model.NewsArticle, bool, error) {
	query := "SELECT " + newsColumns + " FROM news_articles WHERE 1=1"
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(
			" AND (created_at, id) < (SELECT created_at, id FROM news_articles WHERE id = $%d)", argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit+1)

	return s.list(ctx, query, args, limit)
}

func (s *NewsService) list(ctx context.Context, query string, args []any, limit int) ([]model.NewsArticle, bool, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list news articles: %w", err)
	}
	defer rows.Close()

	var articles []model.NewsArticle
	for rows.Next() {
		var a model.NewsArticle
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Summary, &a.Body, &a.Published,
			&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan news article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate news articles: %w", err)
	}

	hasMore := len(articles) > limit
	if hasMore {
		articles = articles[:limit]
	}
	return articles, hasMore, nil
}

func newsCacheKey(slug string) string { return "news:" + slug }

func (s *NewsService) invalidate(slug string) {
	if s.content == nil {
		return
	}
	if err := s.content.Delete(newsCacheKey(slug)); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("content cache invalidation failed")
	}
}
