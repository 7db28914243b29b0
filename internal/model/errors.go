package model

import "errors"

// Sentinel errors shared across repository, service, and handler layers.
// Handlers map these to HTTP status codes; anything else is a store error
// and surfaces as a 500.
var (
	// ErrEventNotFound is returned when a requested event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrBookingNotFound is returned when a booking or ticket lookup misses.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrUserNotFound is returned when a user lookup by id misses.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoSeats is returned when an event has no remaining capacity,
	// including when a concurrent booking took the last seat.
	ErrNoSeats = errors.New("no seats available")

	// ErrAlreadyRegistered is returned when the requester already holds an
	// active booking for the event.
	ErrAlreadyRegistered = errors.New("you are already registered for this event")

	// ErrContactTaken is returned when the email or contact already holds an
	// active booking for the event.
	ErrContactTaken = errors.New("this email or contact is already registered for this event")

	// ErrAttendeeExists is returned by the manual-add path when any booking,
	// cancelled or not, matches the email or contact for the event.
	ErrAttendeeExists = errors.New("attendee already registered")

	// ErrAlreadyCancelled is returned when cancelling a booking twice.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrTicketCancelled is returned when verifying a cancelled ticket.
	ErrTicketCancelled = errors.New("ticket cancelled")

	// ErrForbidden is returned on any authorization failure.
	ErrForbidden = errors.New("not authorized")
)

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
