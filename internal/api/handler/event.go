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

type Event struct {
	svc *core.EventService
}

func NewEvent(svc *core.EventService) *Event {
	return &Event{svc: svc}
}

// ListUpcoming serves the public events calendar.
func (h *Event) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	events, err := h.svc.ListUpcoming(r.Context(), p.Limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, events)
}

func (h *Event) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, event)
}

func (h *Event) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateEvent
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	event := &model.Event{
		ID:          platform.NewID(),
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Published:   req.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), event); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, event)
}

func (h *Event) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateEvent
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := &model.Event{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Published:   req.Published,
	}
	if err := h.svc.Update(r.Context(), event); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, event)
}

// Register is the public sign-up endpoint for a published event.
func (h *Event) Register(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RegisterAttendee
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg := &model.EventRegistration{
		ID:            platform.NewID(),
		EventID:       id,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		CreatedAt:     time.Now(),
	}

	if err := h.svc.Register(r.Context(), reg); err != nil {
		response.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Event) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	regs, err := h.svc.ListRegistrations(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, regs)
}
