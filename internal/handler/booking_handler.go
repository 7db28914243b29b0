package handler

import (
	"errors"
	"net/http"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/model"
	"github.com/ticketgate/ticketgate/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BookingHandler holds the HTTP handlers for booking and check-in flows.
type BookingHandler struct {
	bookings *service.BookingService
	verify   *service.VerificationService
	log      *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService, verify *service.VerificationService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, verify: verify, log: log}
}

// Create handles POST /api/bookings
// Performs a concurrency-safe self-registration for the given event.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// List handles GET /api/bookings
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	bookings, err := h.bookings.ListBookings(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if bookings == nil {
		bookings = []model.BookingWithEvent{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListAll handles GET /api/bookings/all (admin only)
func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	rows, err := h.bookings.ListAllBookings(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if rows == nil {
		rows = []model.AdminBookingRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// AddAttendee handles POST /api/bookings/manual (organizer/admin only)
func (h *BookingHandler) AddAttendee(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.bookings.AddAttendee(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Verify handles POST /api/bookings/verify (organizer/admin only)
// A cancelled ticket fails with 409 but the response still carries the
// booking so door staff can see who it belonged to.
func (h *BookingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req model.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TicketID == "" {
		writeError(w, http.StatusBadRequest, "ticket_id is required")
		return
	}

	result, err := h.verify.VerifyTicket(r.Context(), identity, req.TicketID)
	if err != nil {
		if errors.Is(err, model.ErrTicketCancelled) && result != nil {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   err.Error(),
				"details": result.Booking,
			})
			return
		}
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "valid ticket - marked as attended",
		"booking": result.Booking,
		"event":   result.Event,
	})
}

// Cancel handles DELETE /api/bookings/{id}
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	if err := h.bookings.CancelBooking(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "registration cancelled"})
}
