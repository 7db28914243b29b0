package service

import (
	"context"
	"strings"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// EventStore is the event persistence as seen by event CRUD.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest, organizerID string) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error)
	DeleteCascade(ctx context.Context, id string) error
}

// EventService handles event CRUD. Seat-counter mutation lives in the
// booking service, not here.
type EventService struct {
	events   EventStore
	validate *validator.Validate
	log      *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(events EventStore, log *zap.Logger) *EventService {
	return &EventService{events: events, validate: validator.New(), log: log}
}

// CreateEvent creates an event owned by the acting organizer, with its
// remaining seats set to the requested capacity.
func (s *EventService) CreateEvent(ctx context.Context, actor auth.Identity, req model.CreateEventRequest) (*model.Event, error) {
	if !actor.IsOrganizer() {
		return nil, model.ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, model.NewValidationError("title and date are required and seats cannot be negative")
	}

	event, err := s.events.Create(ctx, req, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.log.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("organizer_id", event.OrganizerID),
		zap.Int("seats", event.Seats),
	)
	return event, nil
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, model.ErrEventNotFound
	}
	return s.events.GetByID(ctx, id)
}

// ListEvents returns all events, soonest first.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// UpdateEvent applies a partial update. Only the owning organizer or an
// admin may update; the seat counter cannot be changed through this path.
func (s *EventService) UpdateEvent(ctx context.Context, actor auth.Identity, id string, req model.UpdateEventRequest) (*model.Event, error) {
	if err := s.authorizeManage(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.events.Update(ctx, id, req)
}

// DeleteEvent removes an event and all bookings referencing it. Only the
// owning organizer or an admin may delete.
func (s *EventService) DeleteEvent(ctx context.Context, actor auth.Identity, id string) error {
	if err := s.authorizeManage(ctx, actor, id); err != nil {
		return err
	}
	if err := s.events.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.log.Info("event deleted", zap.String("event_id", id))
	return nil
}

func (s *EventService) authorizeManage(ctx context.Context, actor auth.Identity, id string) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsOrganizer() && event.OrganizerID == actor.UserID {
		return nil
	}
	return model.ErrForbidden
}
