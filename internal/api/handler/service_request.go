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

type ServiceRequest struct {
	svc *core.ServiceRequestService
}

func NewServiceRequest(svc *core.ServiceRequestService) *ServiceRequest {
	return &ServiceRequest{svc: svc}
}

// Submit is the public intake endpoint. It assigns the reference the
// submitter uses to track the request.
func (h *ServiceRequest) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.CreateServiceRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	sr := &model.ServiceRequest{
		ID:             platform.NewID(),
		Reference:      platform.NewReference("REQ"),
		Category:       req.Category,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		SubmitterName:  req.SubmitterName,
		SubmitterEmail: req.SubmitterEmail,
		SubmitterPhone: req.SubmitterPhone,
		Status:         model.RequestSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.svc.Create(r.Context(), sr); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, sr)
}

// Track lets a submitter look up their request by reference, no auth.
func (h *ServiceRequest) Track(w http.ResponseWriter, r *http.Request) {
	reference, err := request.RequireID(chi.URLParam(r, "reference"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sr, err := h.svc.GetByReference(r.Context(), reference)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sr)
}

func (h *ServiceRequest) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	status := r.URL.Query().Get("status")
	category := r.URL.Query().Get("category")

	requests, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor, status, category)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(requests) > 0 {
		nextCursor = requests[len(requests)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, requests, nextCursor, hasMore)
}

func (h *ServiceRequest) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sr, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sr)
}

func (h *ServiceRequest) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateServiceRequestStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), id, req.Status, req.Department, req.ResolutionNote); err != nil {
		response.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	sr, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sr)
}

func (h *ServiceRequest) AddNote(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.AddServiceRequestNote
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	note := &model.ServiceRequestNote{
		ID:        platform.NewID(),
		RequestID: id,
		Author:    req.Author,
		Body:      req.Body,
		CreatedAt: time.Now(),
	}

	if err := h.svc.AddNote(r.Context(), note); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, note)
}

func (h *ServiceRequest) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	notes, err := h.svc.ListNotes(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, notes)
}
