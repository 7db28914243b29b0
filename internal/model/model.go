// Package model defines the core domain types for the event booking system.
package model

import "time"

// Role is the caller's role as resolved by the identity layer.
type Role string

const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// BookingStatus is the lifecycle state of a booking. The only legal
// transition is Booked -> Cancelled.
type BookingStatus string

const (
	StatusBooked    BookingStatus = "BOOKED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// Event represents a bookable event created by an organizer.
// Seats is remaining capacity, not total capacity.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Seats       int       `json:"seats"`
	OrganizerID string    `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Booking represents a ticket held by an attendee for one event.
// UserID is empty for guest registrations added manually by an organizer.
type Booking struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id,omitempty"`
	EventID    string        `json:"event_id"`
	TicketID   string        `json:"ticket_id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Contact    string        `json:"contact"`
	Status     BookingStatus `json:"status"`
	Attended   bool          `json:"attended"`
	VerifiedAt *time.Time    `json:"verified_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Active reports whether the booking still holds a seat.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

// User is an account record. Referenced weakly by Booking.UserID and
// Event.OrganizerID; a dangling reference is tolerated.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	OrganizationName string    `json:"organization_name,omitempty"`
	Address          string    `json:"address,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// BookingWithEvent is the listing projection for users and organizers.
// Event is nil when the referenced event no longer exists.
type BookingWithEvent struct {
	Booking
	Event *Event `json:"event"`
}

// AdminBookingRow is the admin listing projection with display fallbacks
// resolved: EventName falls back to "Unknown Event", UserName to the name
// captured on the booking itself.
type AdminBookingRow struct {
	Booking
	EventName string     `json:"event_name"`
	EventDate *time.Time `json:"event_date,omitempty"`
	UserName  string     `json:"user_name"`
	UserEmail string     `json:"user_email,omitempty"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location"`
	Seats       int       `json:"seats" validate:"gte=0"`
}

// UpdateEventRequest is a partial update; nil fields are left untouched.
// Seats is deliberately absent: the counter is mutated only by the
// booking and cancellation flows.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
}

// RegisterRequest is the attendee-facing payload for booking a seat,
// also used for organizer-assisted manual adds.
type RegisterRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Contact string `json:"contact" validate:"required"`
}

// VerifyRequest carries the ticket identifier scanned at check-in.
type VerifyRequest struct {
	TicketID string `json:"ticket_id" validate:"required"`
}

// VerifyResult is the check-in outcome: the (possibly just-attended)
// booking plus its event for display at the door.
type VerifyResult struct {
	Booking Booking `json:"booking"`
	Event   *Event  `json:"event"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
