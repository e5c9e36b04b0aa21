package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openmunicipal/portal/internal/model"
)

func TestNewsService_Create_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewNewsService(db, nil)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	now := time.Now()
	err := svc.Create(ctx, &model.NewsArticle{
		ID:        "art-1",
		Slug:      "pool-reopening",
		Title:     "Community Pool Reopening",
		Summary:   "The pool reopens June 1.",
		Body:      "After renovations, the community pool reopens June 1.",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestNewsService_GetBySlug_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewNewsService(db, nil)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return errors.New("no rows in result set")
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	got, err := svc.GetBySlug(ctx, "missing")
	require.Error(t, err)
	assert.Nil(t, got)
	db.AssertExpectations(t)
}

func TestNewsService_SetPublished_InvalidatesCache(t *testing.T) {
	db := &mockDB{}
	content := &fakeContentCache{}
	svc := NewNewsService(db, content)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "pool-reopening"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.SetPublished(ctx, "art-1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"news:pool-reopening"}, content.deleted)
	db.AssertExpectations(t)
}

func TestNewsService_SetPublished_CacheErrorIgnored(t *testing.T) {
	db := &mockDB{}
	content := &fakeContentCache{deleteErr: errors.New("cache down")}
	svc := NewNewsService(db, content)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "pool-reopening"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.SetPublished(ctx, "art-1", false)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestNewsService_Update_InvalidatesCache(t *testing.T) {
	db := &mockDB{}
	content := &fakeContentCache{}
	svc := NewNewsService(db, content)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "pool-reopening"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.Update(ctx, &model.NewsArticle{ID: "art-1", Title: "Updated"})
	require.NoError(t, err)
	assert.Equal(t, []string{"news:pool-reopening"}, content.deleted)
	db.AssertExpectations(t)
}

func TestNewsService_ListPublished_Pagination(t *testing.T) {
	db := &mockDB{}
	svc := NewNewsService(db, nil)
	ctx := context.Background()

	now := time.Now()
	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "art-2"
			*(dest[1].(*string)) = "second"
			*(dest[2].(*string)) = "Second"
			*(dest[5].(*bool)) = true
			*(dest[6].(**time.Time)) = &now
			*(dest[7].(*time.Time)) = now
			*(dest[8].(*time.Time)) = now
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "art-1"
			*(dest[1].(*string)) = "first"
			*(dest[2].(*string)) = "First"
			*(dest[5].(*bool)) = true
			*(dest[6].(**time.Time)) = &now
			*(dest[7].(*time.Time)) = now
			*(dest[8].(*time.Time)) = now
			return nil
		},
	)

	var capturedArgs []any
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			capturedArgs = args.Get(2).([]any)
		}).
		Return(rows, nil)

	articles, hasMore, err := svc.ListPublished(ctx, 1, "")
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, articles, 1)
	assert.Equal(t, "art-2", articles[0].ID)

	require.Len(t, capturedArgs, 1)
	assert.Equal(t, 2, capturedArgs[0])
	db.AssertExpectations(t)
}

// The public feed orders by (published_at, id) while cursors carry only the
// last article's ID, which is a random UUID and unordered. The cursor
// predicate must compare the full sort key, resolved from the cursor row;
// filtering on the bare ID would skip or repeat articles whose UUIDs sort
// against publication order.
func TestNewsService_ListPublished_CursorFollowsPublishedOrder(t *testing.T) {
	db := &mockDB{}
	svc := NewNewsService(db, nil)
	ctx := context.Background()

	var capturedQuery string
	var capturedArgs []any
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			capturedQuery = args.Get(1).(string)
			capturedArgs = args.Get(2).([]any)
		}).
		Return(newEmptyMockRows(), nil)

	_, _, err := svc.ListPublished(ctx, 20, "art-cursor")
	require.NoError(t, err)

	assert.Contains(t, capturedQuery,
		"(published_at, id) < (SELECT published_at, id FROM news_articles WHERE id = $1)")
	assert.Contains(t, capturedQuery, "ORDER BY published_at DESC, id DESC")
	assert.NotContains(t, capturedQuery, "AND id <")
	require.Len(t, capturedArgs, 2)
	assert.Equal(t, "art-cursor", capturedArgs[0])
	assert.Equal(t, 21, capturedArgs[1])
	db.AssertExpectations(t)
}

func TestNewsService_List_CursorFollowsCreatedOrder(t *testing.T) {
	db := &mockDB{}
	svc := NewNewsService(db, nil)
	ctx := context.Background()

	var capturedQuery string
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			capturedQuery = args.Get(1).(string)
		}).
		Return(newEmptyMockRows(), nil)

	_, _, err := svc.List(ctx, 20, "art-cursor")
	require.NoError(t, err)

	assert.Contains(t, capturedQuery,
		"(created_at, id) < (SELECT created_at, id FROM news_articles WHERE id = $1)")
	assert.Contains(t, capturedQuery, "ORDER BY created_at DESC, id DESC")
	db.AssertExpectations(t)
}

func TestNewsService_GetBySlug_CacheHitSkipsDatabase(t *testing.T) {
	db := &mockDB{}
	content := newFakeContentCache()
	svc := NewNewsService(db, content)
	ctx := context.Background()

	cached, err := json.Marshal(model.NewsArticle{
		ID: "art-1", Slug: "pool-reopening", Title: "Community Pool Reopening", Published: true,
	})
	require.NoError(t, err)
	require.NoError(t, content.Set("news:pool-reopening", cached))

	got, err := svc.GetBySlug(ctx, "pool-reopening")
	require.NoError(t, err)
	assert.Equal(t, "art-1", got.ID)
	assert.Equal(t, "Community Pool Reopening", got.Title)
	// No DB expectations were set; a query would have failed the mock.
	db.AssertExpectations(t)
}

func TestNewsService_GetBySlug_MissPopulatesCache(t *testing.T) {
	db := &mockDB{}
	content := newFakeContentCache()
	svc := NewNewsService(db, content)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "art-1"
		*(dest[1].(*string)) = "pool-reopening"
		*(dest[2].(*string)) = "Community Pool Reopening"
		*(dest[5].(*bool)) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	got, err := svc.GetBySlug(ctx, "pool-reopening")
	require.NoError(t, err)
	assert.Equal(t, "art-1", got.ID)
	assert.Equal(t, []string{"news:pool-reopening"}, content.setKeys)

	raw, ok := content.Get("news:pool-reopening")
	require.True(t, ok)
	var cached model.NewsArticle
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, "art-1", cached.ID)
	db.AssertExpectations(t)
}

func TestNewsService_GetBySlug_UnpublishedNotCached(t *testing.T) {
	db := &mockDB{}
	content := newFakeContentCache()
	svc := NewNewsService(db, content)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "art-1"
		*(dest[1].(*string)) = "draft-article"
		*(dest[5].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := svc.GetBySlug(ctx, "draft-article")
	require.NoError(t, err)
	assert.Empty(t, content.setKeys)
	db.AssertExpectations(t)
}

func TestNewsService_List_QueryError(t *testing.T) {
	db := &mockDB{}
	svc := NewNewsService(db, nil)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("db error"))

	_, _, err := svc.List(ctx, 20, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list news articles")
	db.AssertExpectations(t)
}
