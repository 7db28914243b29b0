package repository

import (
	"context"
	"fmt"

	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRepository implements bulk maintenance deletes. Each clear runs in a
// transaction with dependents removed before their parents.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// ClearEvents deletes every event and every booking.
func (r *AdminRepository) ClearEvents(ctx context.Context) (events, bookings int64, err error) {
	err = withTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := exec(ctx, r.pool, `DELETE FROM bookings`)
		if err != nil {
			return fmt.Errorf("clear bookings: %w", err)
		}
		bookings = tag.RowsAffected()

		tag, err = exec(ctx, r.pool, `DELETE FROM events`)
		if err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		events = tag.RowsAffected()
		return nil
	})
	return events, bookings, err
}

// ClearUsers deletes every USER-role account along with their bookings.
func (r *AdminRepository) ClearUsers(ctx context.Context) (users int64, err error) {
	err = withTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := exec(ctx, r.pool,
			`DELETE FROM bookings WHERE user_id IN (SELECT id FROM users WHERE role = $1)`,
			model.RoleUser,
		); err != nil {
			return fmt.Errorf("clear user bookings: %w", err)
		}

		tag, err := exec(ctx, r.pool, `DELETE FROM users WHERE role = $1`, model.RoleUser)
		if err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		users = tag.RowsAffected()
		return nil
	})
	return users, err
}

// ClearOrganizers deletes every ORGANIZER account, their events, and those
// events' bookings.
func (r *AdminRepository) ClearOrganizers(ctx context.Context) (organizers, events int64, err error) {
	err = withTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := exec(ctx, r.pool,
			`DELETE FROM bookings WHERE event_id IN (
				SELECT id FROM events WHERE organizer_id IN (SELECT id FROM users WHERE role = $1)
			)`,
			model.RoleOrganizer,
		); err != nil {
			return fmt.Errorf("clear organizer bookings: %w", err)
		}

		tag, err := exec(ctx, r.pool,
			`DELETE FROM events WHERE organizer_id IN (SELECT id FROM users WHERE role = $1)`,
			model.RoleOrganizer,
		)
		if err != nil {
			return fmt.Errorf("clear organizer events: %w", err)
		}
		events = tag.RowsAffected()

		tag, err = exec(ctx, r.pool, `DELETE FROM users WHERE role = $1`, model.RoleOrganizer)
		if err != nil {
			return fmt.Errorf("clear organizers: %w", err)
		}
		organizers = tag.RowsAffected()
		return nil
	})
	return organizers, events, err
}
