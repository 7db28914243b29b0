package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, user_id, event_id, ticket_id, name, email, contact, status, attended, verified_at, created_at`

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// WithTx runs fn inside a single transaction.
func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var userID *string
	err := row.Scan(&b.ID, &userID, &b.EventID, &b.TicketID, &b.Name, &b.Email,
		&b.Contact, &b.Status, &b.Attended, &b.VerifiedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID != nil {
		b.UserID = *userID
	}
	return &b, nil
}

// Create persists a booking. The unique indexes on ticket_id and on active
// (event, user/email/contact) pairs back the service-level duplicate checks;
// a violation surfaces as ErrContactTaken.
func (r *BookingRepository) Create(ctx context.Context, b model.Booking) error {
	var userID *string
	if b.UserID != "" {
		userID = &b.UserID
	}
	_, err := exec(ctx, r.pool,
		`INSERT INTO bookings (id, user_id, event_id, ticket_id, name, email, contact, status, attended, verified_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, userID, b.EventID, b.TicketID, b.Name, b.Email, b.Contact,
		b.Status, b.Attended, b.VerifiedAt, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrContactTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns a booking or ErrBookingNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(queryRow(ctx, r.pool,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// GetByTicketID is the check-in lookup, keyed by the unique ticket id.
func (r *BookingRepository) GetByTicketID(ctx context.Context, ticketID string) (*model.Booking, error) {
	b, err := scanBooking(queryRow(ctx, r.pool,
		`SELECT `+bookingColumns+` FROM bookings WHERE ticket_id = $1`, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking by ticket: %w", err)
	}
	return b, nil
}

// FindActiveByUserAndEvent returns the requester's non-cancelled booking for
// the event, or nil.
func (r *BookingRepository) FindActiveByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Booking, error) {
	b, err := scanBooking(queryRow(ctx, r.pool,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = $1 AND event_id = $2 AND status <> 'CANCELLED'`,
		userID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active booking by user: %w", err)
	}
	return b, nil
}

// FindActiveByEventAndContact returns a non-cancelled booking for the event
// matching the email or the contact, or nil. Used by self-registration.
func (r *BookingRepository) FindActiveByEventAndContact(ctx context.Context, eventID, email, contact string) (*model.Booking, error) {
	b, err := scanBooking(queryRow(ctx, r.pool,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE event_id = $1 AND (email = $2 OR contact = $3) AND status <> 'CANCELLED'
		 LIMIT 1`,
		eventID, email, contact))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active booking by contact: %w", err)
	}
	return b, nil
}

// FindByEventAndContact is the manual-add variant of the duplicate lookup:
// it matches cancelled bookings too, so a cancelled attendee cannot be
// re-added under the same email or contact.
func (r *BookingRepository) FindByEventAndContact(ctx context.Context, eventID, email, contact string) (*model.Booking, error) {
	b, err := scanBooking(queryRow(ctx, r.pool,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE event_id = $1 AND (email = $2 OR contact = $3)
		 LIMIT 1`,
		eventID, email, contact))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking by contact: %w", err)
	}
	return b, nil
}

// MarkAttended sets attended and the verification time, once. Re-verifying
// an attended ticket matches no row and leaves verified_at untouched.
func (r *BookingRepository) MarkAttended(ctx context.Context, ticketID string, at time.Time) error {
	_, err := exec(ctx, r.pool,
		`UPDATE bookings SET attended = TRUE, verified_at = $2
		 WHERE ticket_id = $1 AND attended = FALSE`,
		ticketID, at,
	)
	if err != nil {
		return fmt.Errorf("mark attended: %w", err)
	}
	return nil
}

// MarkCancelled flips status to CANCELLED exactly once; a second attempt
// matches no row and returns ErrAlreadyCancelled.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id string) error {
	tag, err := exec(ctx, r.pool,
		`UPDATE bookings SET status = 'CANCELLED'
		 WHERE id = $1 AND status <> 'CANCELLED'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAlreadyCancelled
	}
	return nil
}

// ListForUser returns the user's bookings joined with their events, newest
// first. A deleted event leaves the Event field nil.
func (r *BookingRepository) ListForUser(ctx context.Context, userID string) ([]model.BookingWithEvent, error) {
	return r.listJoined(ctx,
		`SELECT b.id, b.user_id, b.event_id, b.ticket_id, b.name, b.email, b.contact,
		        b.status, b.attended, b.verified_at, b.created_at,
		        e.id, e.title, e.description, e.date, e.location, e.seats, e.organizer_id, e.created_at
		 FROM bookings b
		 LEFT JOIN events e ON e.id = b.event_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID)
}

// ListForOrganizer returns the organizer's personal bookings plus every
// booking for an event they own.
func (r *BookingRepository) ListForOrganizer(ctx context.Context, organizerID string) ([]model.BookingWithEvent, error) {
	return r.listJoined(ctx,
		`SELECT b.id, b.user_id, b.event_id, b.ticket_id, b.name, b.email, b.contact,
		        b.status, b.attended, b.verified_at, b.created_at,
		        e.id, e.title, e.description, e.date, e.location, e.seats, e.organizer_id, e.created_at
		 FROM bookings b
		 LEFT JOIN events e ON e.id = b.event_id
		 WHERE b.user_id = $1
		    OR b.event_id IN (SELECT id FROM events WHERE organizer_id = $1)
		 ORDER BY b.created_at DESC`,
		organizerID)
}

func (r *BookingRepository) listJoined(ctx context.Context, sql string, args ...any) ([]model.BookingWithEvent, error) {
	rows, err := query(ctx, r.pool, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []model.BookingWithEvent
	for rows.Next() {
		var item model.BookingWithEvent
		var userID *string
		var eID, eTitle, eDescription, eLocation, eOrganizerID *string
		var eDate, eCreatedAt *time.Time
		var eSeats *int
		if err := rows.Scan(
			&item.ID, &userID, &item.EventID, &item.TicketID, &item.Name, &item.Email,
			&item.Contact, &item.Status, &item.Attended, &item.VerifiedAt, &item.CreatedAt,
			&eID, &eTitle, &eDescription, &eDate, &eLocation, &eSeats, &eOrganizerID, &eCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		if userID != nil {
			item.UserID = *userID
		}
		if eID != nil {
			item.Event = &model.Event{
				ID:          *eID,
				Title:       *eTitle,
				Description: *eDescription,
				Date:        *eDate,
				Location:    *eLocation,
				Seats:       *eSeats,
				OrganizerID: *eOrganizerID,
				CreatedAt:   *eCreatedAt,
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListAll returns every booking for the admin view, joined with event and
// account data. Dangling references resolve to display fallbacks: the event
// name becomes "Unknown Event" and the user name falls back to the name
// captured on the booking.
func (r *BookingRepository) ListAll(ctx context.Context) ([]model.AdminBookingRow, error) {
	rows, err := query(ctx, r.pool,
		`SELECT b.id, b.user_id, b.event_id, b.ticket_id, b.name, b.email, b.contact,
		        b.status, b.attended, b.verified_at, b.created_at,
		        e.title, e.date, u.name, u.email
		 FROM bookings b
		 LEFT JOIN events e ON e.id = b.event_id
		 LEFT JOIN users u ON u.id = b.user_id
		 ORDER BY b.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all bookings: %w", err)
	}
	defer rows.Close()

	var out []model.AdminBookingRow
	for rows.Next() {
		var row model.AdminBookingRow
		var userID, eventTitle, userName, userEmail *string
		var eventDate *time.Time
		if err := rows.Scan(
			&row.ID, &userID, &row.EventID, &row.TicketID, &row.Name, &row.Email,
			&row.Contact, &row.Status, &row.Attended, &row.VerifiedAt, &row.CreatedAt,
			&eventTitle, &eventDate, &userName, &userEmail,
		); err != nil {
			return nil, fmt.Errorf("scan admin booking row: %w", err)
		}
		if userID != nil {
			row.UserID = *userID
		}
		row.EventName = "Unknown Event"
		if eventTitle != nil {
			row.EventName = *eventTitle
			row.EventDate = eventDate
		}
		row.UserName = row.Name
		if userName != nil {
			row.UserName = *userName
		}
		if userEmail != nil {
			row.UserEmail = *userEmail
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
