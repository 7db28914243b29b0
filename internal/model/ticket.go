package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TicketIDBytes is the number of random bytes in a ticket identifier.
// Hex encoding yields a 12-character lowercase string (48 bits of entropy).
const TicketIDBytes = 6

// NewTicketID generates an opaque ticket identifier from a cryptographically
// secure random source. Safe for concurrent use.
func NewTicketID() (string, error) {
	b := make([]byte, TicketIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate ticket id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
