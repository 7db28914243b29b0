package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, date, location, seats, organizer_id, created_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// WithTx runs fn inside a single transaction.
func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// Create inserts a new event with its remaining seats set to the requested
// capacity and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest, organizerID string) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Seats:       req.Seats,
		OrganizerID: organizerID,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := exec(ctx, r.pool,
		`INSERT INTO events (id, title, description, date, location, seats, organizer_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Title, event.Description, event.Date, event.Location,
		event.Seats, event.OrganizerID, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := queryRow(ctx, r.pool,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Seats, &e.OrganizerID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// List returns all events ordered by date ascending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := query(ctx, r.pool,
		`SELECT `+eventColumns+` FROM events ORDER BY date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Seats, &e.OrganizerID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update applies a partial field update and returns the updated event or
// ErrEventNotFound. The seat counter is not touched here.
func (r *EventRepository) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	var e model.Event
	err := queryRow(ctx, r.pool,
		`UPDATE events SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			date        = COALESCE($4, date),
			location    = COALESCE($5, location)
		 WHERE id = $1
		 RETURNING `+eventColumns,
		id, req.Title, req.Description, req.Date, req.Location,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Seats, &e.OrganizerID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &e, nil
}

// GetForUpdate acquires an exclusive row-level lock on the event inside the
// current transaction. Concurrent bookings for the same event serialize here,
// which is what keeps the capacity check, the seat decrement, and the booking
// insert atomic with respect to each other.
func (r *EventRepository) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := queryRow(ctx, r.pool,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Seats, &e.OrganizerID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return &e, nil
}

// DecrementSeats takes one seat, guarded so the counter never goes negative.
// Returns ErrNoSeats when no seat remained, including when a concurrent
// booking took the last one.
func (r *EventRepository) DecrementSeats(ctx context.Context, id string) error {
	tag, err := exec(ctx, r.pool,
		`UPDATE events SET seats = seats - 1 WHERE id = $1 AND seats > 0`, id,
	)
	if err != nil {
		return fmt.Errorf("decrement seats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNoSeats
	}
	return nil
}

// IncrementSeats applies seats += delta without reading or validating the
// rest of the record. A missing event makes the release a no-op so cancelling
// a booking whose event was deleted still succeeds.
func (r *EventRepository) IncrementSeats(ctx context.Context, id string, delta int) error {
	_, err := exec(ctx, r.pool,
		`UPDATE events SET seats = seats + $2 WHERE id = $1`, id, delta,
	)
	if err != nil {
		return fmt.Errorf("increment seats: %w", err)
	}
	return nil
}

// DeleteCascade removes the event's bookings and then the event itself in one
// transaction. The dependent delete is idempotent, so a retry after a partial
// failure is safe. Returns ErrEventNotFound when the event does not exist.
func (r *EventRepository) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := exec(ctx, r.pool, `DELETE FROM bookings WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("delete event bookings: %w", err)
		}
		tag, err := exec(ctx, r.pool, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrEventNotFound
		}
		return nil
	})
}
