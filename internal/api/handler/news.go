package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openmunicipal/portal/internal/api/request"
	"github.com/openmunicipal/portal/internal/api/response"
	"github.com/openmunicipal/portal/internal/core"
	"github.com/openmunicipal/portal/internal/model"
	"github.com/openmunicipal/portal/internal/platform"
)

type News struct {
	svc *core.NewsService
}

func NewNews(svc *core.NewsService) *News {
	return &News{svc: svc}
}

// ListPublished serves the public news feed.
func (h *News) ListPublished(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	articles, hasMore, err := h.svc.ListPublished(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(articles) > 0 {
		nextCursor = articles[len(articles)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, articles, nextCursor, hasMore)
}

func (h *News) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug, err := request.RequireID(chi.URLParam(r, "slug"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	article, err := h.svc.GetBySlug(r.Context(), slug)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, article)
}

func (h *News) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	articles, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(articles) > 0 {
		nextCursor = articles[len(articles)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, articles, nextCursor, hasMore)
}

func (h *News) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateNewsArticle
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	article := &model.NewsArticle{
		ID:        platform.NewID(),
		Slug:      req.Slug,
		Title:     req.Title,
		Summary:   req.Summary,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.svc.Create(r.Context(), article); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, article)
}

func (h *News) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateNewsArticle
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	article := &model.NewsArticle{
		ID:      id,
		Title:   req.Title,
		Summary: req.Summary,
		Body:    req.Body,
	}
	if err := h.svc.Update(r.Context(), article); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, article)
}

func (h *News) SetPublished(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetNewsPublished
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetPublished(r.Context(), id, req.Published); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"published": req.Published})
}
