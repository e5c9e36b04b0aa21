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

type CityService struct {
	svc *core.DirectoryService
}

func NewCityService(svc *core.DirectoryService) *CityService {
	return &CityService{svc: svc}
}

// List serves the public directory.
func (h *CityService) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, services)
}

func (h *CityService) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	service, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, service)
}

func (h *CityService) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateCityService
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	service := &model.CityService{
		ID:          platform.NewID(),
		Name:        req.Name,
		Department:  req.Department,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		OnlineURL:   req.OnlineURL,
		Hours:       req.Hours,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), service); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, service)
}

func (h *CityService) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateCityService
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	service := &model.CityService{
		ID:          id,
		Name:        req.Name,
		Department:  req.Department,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		OnlineURL:   req.OnlineURL,
		Hours:       req.Hours,
	}
	if err := h.svc.Update(r.Context(), service); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, service)
}

func (h *CityService) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
