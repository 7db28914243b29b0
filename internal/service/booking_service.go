// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
//
// Repositories are consumed through narrow interfaces declared here, so the
// booking state machine can be exercised in tests with in-memory fakes.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/clock"
	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingStore is the ticket registry as seen by the booking service.
type BookingStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, b model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FindActiveByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Booking, error)
	FindActiveByEventAndContact(ctx context.Context, eventID, email, contact string) (*model.Booking, error)
	FindByEventAndContact(ctx context.Context, eventID, email, contact string) (*model.Booking, error)
	MarkCancelled(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]model.BookingWithEvent, error)
	ListForOrganizer(ctx context.Context, organizerID string) ([]model.BookingWithEvent, error)
	ListAll(ctx context.Context) ([]model.AdminBookingRow, error)
}

// SeatStore is the event store as seen by the booking service: the row lock
// plus the two counter mutations.
type SeatStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetForUpdate(ctx context.Context, id string) (*model.Event, error)
	DecrementSeats(ctx context.Context, id string) error
	IncrementSeats(ctx context.Context, id string, delta int) error
}

// AccountLookup resolves attendee emails to existing accounts.
type AccountLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// BookingService orchestrates seat allocation and the booking lifecycle.
type BookingService struct {
	bookings BookingStore
	events   SeatStore
	users    AccountLookup
	clock    clock.Clock
	validate *validator.Validate
	log      *zap.Logger
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(bookings BookingStore, events SeatStore, users AccountLookup, clk clock.Clock, log *zap.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		events:   events,
		users:    users,
		clock:    clk,
		validate: validator.New(),
		log:      log,
	}
}

func (s *BookingService) normalize(req *model.RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Contact = strings.TrimSpace(req.Contact)
	if err := s.validate.Struct(req); err != nil {
		return model.NewValidationError("name, email and contact are mandatory and the email must be valid")
	}
	return nil
}

// CreateBooking registers the requester for an event. The duplicate checks,
// the capacity check, the seat decrement, and the booking insert all run
// inside one transaction holding the event row lock, so two concurrent
// requests for the last seat yield exactly one booking and one ErrNoSeats.
func (s *BookingService) CreateBooking(ctx context.Context, requester auth.Identity, req model.RegisterRequest) (*model.Booking, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}

		existing, err := s.bookings.FindActiveByUserAndEvent(ctx, requester.UserID, event.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return model.ErrAlreadyRegistered
		}

		existing, err = s.bookings.FindActiveByEventAndContact(ctx, event.ID, req.Email, req.Contact)
		if err != nil {
			return err
		}
		if existing != nil {
			return model.ErrContactTaken
		}

		if event.Seats <= 0 {
			return model.ErrNoSeats
		}
		if err := s.events.DecrementSeats(ctx, event.ID); err != nil {
			return err
		}

		booking, err = s.newBooking(event.ID, requester.UserID, req)
		if err != nil {
			return err
		}
		return s.bookings.Create(ctx, *booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", booking.EventID),
		zap.String("ticket_id", booking.TicketID),
	)
	return booking, nil
}

// AddAttendee registers an attendee on behalf of an organizer or admin. The
// duplicate check matches cancelled bookings too: a cancelled attendee cannot
// be manually re-added under the same email or contact. The created record is
// linked to an existing account by email when one exists, else left as a
// guest booking.
func (s *BookingService) AddAttendee(ctx context.Context, actor auth.Identity, req model.RegisterRequest) (*model.Booking, error) {
	if !actor.IsOrganizer() && !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		if actor.IsOrganizer() && event.OrganizerID != actor.UserID {
			return model.ErrForbidden
		}

		existing, err := s.bookings.FindByEventAndContact(ctx, event.ID, req.Email, req.Contact)
		if err != nil {
			return err
		}
		if existing != nil {
			return model.ErrAttendeeExists
		}

		if event.Seats <= 0 {
			return model.ErrNoSeats
		}

		var userID string
		linked, err := s.users.FindByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if linked != nil {
			userID = linked.ID
		}

		if err := s.events.DecrementSeats(ctx, event.ID); err != nil {
			return err
		}

		booking, err = s.newBooking(event.ID, userID, req)
		if err != nil {
			return err
		}
		return s.bookings.Create(ctx, *booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("attendee added",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", booking.EventID),
		zap.Bool("guest", booking.UserID == ""),
	)
	return booking, nil
}

func (s *BookingService) newBooking(eventID, userID string, req model.RegisterRequest) (*model.Booking, error) {
	ticketID, err := model.NewTicketID()
	if err != nil {
		return nil, err
	}
	return &model.Booking{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventID:   eventID,
		TicketID:  ticketID,
		Name:      req.Name,
		Email:     req.Email,
		Contact:   req.Contact,
		Status:    model.StatusBooked,
		Attended:  false,
		CreatedAt: s.clock.Now(),
	}, nil
}

// CancelBooking flips a booking to CANCELLED and releases its seat. Both
// writes share one transaction: the system is never left with a released
// seat on a BOOKED record or a CANCELLED record that kept its seat. The seat
// release tolerates events that no longer exist.
func (s *BookingService) CancelBooking(ctx context.Context, actor auth.Identity, bookingID string) error {
	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}

		if err := s.authorizeCancel(ctx, actor, booking); err != nil {
			return err
		}
		if booking.Status == model.StatusCancelled {
			return model.ErrAlreadyCancelled
		}

		if err := s.events.IncrementSeats(ctx, booking.EventID, 1); err != nil {
			return err
		}
		return s.bookings.MarkCancelled(ctx, booking.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("booking cancelled", zap.String("booking_id", bookingID))
	return nil
}

func (s *BookingService) authorizeCancel(ctx context.Context, actor auth.Identity, booking *model.Booking) error {
	if actor.IsAdmin() {
		return nil
	}
	if booking.UserID != "" && booking.UserID == actor.UserID {
		return nil
	}
	if actor.IsOrganizer() {
		event, err := s.events.GetByID(ctx, booking.EventID)
		if err == nil && event.OrganizerID == actor.UserID {
			return nil
		}
		if err != nil && err != model.ErrEventNotFound {
			return err
		}
	}
	return model.ErrForbidden
}

// ListBookings returns the caller's view: organizers see their personal
// bookings plus every booking for events they own, everyone else sees their
// own bookings, each joined with its event.
func (s *BookingService) ListBookings(ctx context.Context, requester auth.Identity) ([]model.BookingWithEvent, error) {
	if requester.IsOrganizer() {
		return s.bookings.ListForOrganizer(ctx, requester.UserID)
	}
	return s.bookings.ListForUser(ctx, requester.UserID)
}

// ListAllBookings is the admin projection over every booking, with user and
// event display data joined in.
func (s *BookingService) ListAllBookings(ctx context.Context, actor auth.Identity) ([]model.AdminBookingRow, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	rows, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all bookings: %w", err)
	}
	return rows, nil
}
