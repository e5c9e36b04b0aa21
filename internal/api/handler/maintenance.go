package handler

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	mw "github.com/openmunicipal/portal/internal/api/middleware"
	"github.com/openmunicipal/portal/internal/api/request"
	"github.com/openmunicipal/portal/internal/api/response"
	"github.com/openmunicipal/portal/internal/maintenance"
)

// Maintenance exposes the ops endpoints. Mutating endpoints report a bare
// success flag; failure detail lives in the maintenance audit trail.
type Maintenance struct {
	mgr *maintenance.Manager
}

func NewMaintenance(mgr *maintenance.Manager) *Maintenance {
	return &Maintenance{mgr: mgr}
}

func (h *Maintenance) writeResult(w http.ResponseWriter, ok bool) {
	response.WriteJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *Maintenance) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.mgr.ClearCache(r.Context(), mw.ActorID(r.Context())))
}

func (h *Maintenance) OptimizeDatabase(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.mgr.OptimizeDatabase(r.Context(), mw.ActorID(r.Context())))
}

func (h *Maintenance) VacuumDatabase(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.mgr.VacuumDatabase(r.Context(), mw.ActorID(r.Context())))
}

func (h *Maintenance) ReindexDatabase(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.mgr.ReindexDatabase(r.Context(), mw.ActorID(r.Context())))
}

func (h *Maintenance) CreateBackup(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.mgr.CreateManualBackup(r.Context(), mw.ActorID(r.Context())))
}

func (h *Maintenance) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.mgr.CheckIntegrity(r.Context(), mw.ActorID(r.Context())))
}

func (h *Maintenance) CacheStats(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.mgr.CacheStats(r.Context()))
}

func (h *Maintenance) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.mgr.DatabaseStats(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Maintenance) BackupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.mgr.BackupStats(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Maintenance) ListBackups(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	offset := parseOffset(r)

	backups, err := h.mgr.ListBackups(r.Context(), p.Limit, offset)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, backups)
}

// AuditTrail returns maintenance actions, newest first.
func (h *Maintenance) AuditTrail(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	offset := parseOffset(r)

	actions, err := h.mgr.AuditTrail(r.Context(), p.Limit, offset)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, actions)
}

// StreamAudit upgrades to WebSocket and pushes maintenance actions as they
// are recorded. The poll-based AuditTrail endpoint stays authoritative; a
// slow consumer simply misses entries.
func (h *Maintenance) StreamAudit(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin differs from Host when proxied through the admin UI.
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	feed, unsubscribe := h.mgr.SubscribeAudit()
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusNormalClosure, "")
			return
		case action, ok := <-feed:
			if !ok {
				ws.Close(websocket.StatusNormalClosure, "")
				return
			}
			payload, err := json.Marshal(action)
			if err != nil {
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
