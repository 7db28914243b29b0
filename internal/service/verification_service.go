package service

import (
	"context"
	"errors"
	"time"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/clock"
	"github.com/ticketgate/ticketgate/internal/model"

	"go.uber.org/zap"
)

// TicketLookup is the ticket registry as seen by check-in.
type TicketLookup interface {
	GetByTicketID(ctx context.Context, ticketID string) (*model.Booking, error)
	MarkAttended(ctx context.Context, ticketID string, at time.Time) error
}

// EventLookup resolves the event a ticket belongs to.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// VerificationService validates tickets at check-in and marks attendance.
type VerificationService struct {
	bookings TicketLookup
	events   EventLookup
	clock    clock.Clock
	log      *zap.Logger
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(bookings TicketLookup, events EventLookup, clk clock.Clock, log *zap.Logger) *VerificationService {
	return &VerificationService{bookings: bookings, events: events, clock: clk, log: log}
}

// VerifyTicket checks a ticket in. Cancelled tickets fail with
// ErrTicketCancelled but still return the booking for audit display.
// Organizers may only verify tickets for their own events; admins bypass
// that check. Verification is idempotent: an already-attended ticket
// returns success without touching its verification time.
func (s *VerificationService) VerifyTicket(ctx context.Context, actor auth.Identity, ticketID string) (*model.VerifyResult, error) {
	if !actor.IsOrganizer() && !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}

	booking, err := s.bookings.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if booking.Status == model.StatusCancelled {
		return &model.VerifyResult{Booking: *booking}, model.ErrTicketCancelled
	}

	event, err := s.events.GetByID(ctx, booking.EventID)
	if err != nil && !errors.Is(err, model.ErrEventNotFound) {
		return nil, err
	}
	if actor.IsOrganizer() {
		// Without the event record, ownership cannot be established.
		if event == nil || event.OrganizerID != actor.UserID {
			return nil, model.ErrForbidden
		}
	}

	if !booking.Attended {
		now := s.clock.Now()
		if err := s.bookings.MarkAttended(ctx, booking.TicketID, now); err != nil {
			return nil, err
		}
		booking.Attended = true
		booking.VerifiedAt = &now

		s.log.Info("ticket verified",
			zap.String("ticket_id", booking.TicketID),
			zap.String("event_id", booking.EventID),
		)
	}

	return &model.VerifyResult{Booking: *booking, Event: event}, nil
}
