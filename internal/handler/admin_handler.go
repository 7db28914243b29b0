package handler

import (
	"net/http"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/model"
	"github.com/ticketgate/ticketgate/internal/service"

	"go.uber.org/zap"
)

// AdminHandler holds the HTTP handlers for bulk maintenance.
type AdminHandler struct {
	svc *service.AdminService
	log *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc *service.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

// ClearEvents handles DELETE /api/admin/clear-events
func (h *AdminHandler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	summary, err := h.svc.ClearAllEvents(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ClearUsers handles DELETE /api/admin/clear-users
func (h *AdminHandler) ClearUsers(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	summary, err := h.svc.ClearAllUsers(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ClearOrganizers handles DELETE /api/admin/clear-organizers
func (h *AdminHandler) ClearOrganizers(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	summary, err := h.svc.ClearAllOrganizers(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListUsers handles GET /api/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	users, err := h.svc.ListUsers(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
