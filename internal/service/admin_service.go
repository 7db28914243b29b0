package service

import (
	"context"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/model"

	"go.uber.org/zap"
)

// MaintenanceStore implements the bulk clears behind the admin endpoints.
type MaintenanceStore interface {
	ClearEvents(ctx context.Context) (events, bookings int64, err error)
	ClearUsers(ctx context.Context) (users int64, err error)
	ClearOrganizers(ctx context.Context) (organizers, events int64, err error)
}

// UserLister returns all account records.
type UserLister interface {
	List(ctx context.Context) ([]model.User, error)
}

// AdminService performs bulk maintenance. Every operation requires the
// ADMIN role.
type AdminService struct {
	store MaintenanceStore
	users UserLister
	log   *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(store MaintenanceStore, users UserLister, log *zap.Logger) *AdminService {
	return &AdminService{store: store, users: users, log: log}
}

// ClearSummary reports what a bulk clear removed.
type ClearSummary struct {
	Events     int64 `json:"events,omitempty"`
	Bookings   int64 `json:"bookings,omitempty"`
	Users      int64 `json:"users,omitempty"`
	Organizers int64 `json:"organizers,omitempty"`
}

// ClearAllEvents deletes every event together with every booking.
func (s *AdminService) ClearAllEvents(ctx context.Context, actor auth.Identity) (*ClearSummary, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	events, bookings, err := s.store.ClearEvents(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Warn("cleared all events and bookings",
		zap.Int64("events", events), zap.Int64("bookings", bookings))
	return &ClearSummary{Events: events, Bookings: bookings}, nil
}

// ClearAllUsers deletes every USER-role account and their bookings.
func (s *AdminService) ClearAllUsers(ctx context.Context, actor auth.Identity) (*ClearSummary, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	users, err := s.store.ClearUsers(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Warn("cleared all users", zap.Int64("users", users))
	return &ClearSummary{Users: users}, nil
}

// ClearAllOrganizers deletes every ORGANIZER account, their events, and
// those events' bookings.
func (s *AdminService) ClearAllOrganizers(ctx context.Context, actor auth.Identity) (*ClearSummary, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	organizers, events, err := s.store.ClearOrganizers(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Warn("cleared all organizers",
		zap.Int64("organizers", organizers), zap.Int64("events", events))
	return &ClearSummary{Organizers: organizers, Events: events}, nil
}

// ListUsers returns every account for the admin view.
func (s *AdminService) ListUsers(ctx context.Context, actor auth.Identity) ([]model.User, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	return s.users.List(ctx)
}
