// Package auth adapts the external identity service's bearer tokens into a
// caller identity. It validates and decodes tokens; it never issues them.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
)

// Identity is the authenticated caller: who they are and what they may do.
type Identity struct {
	UserID string
	Role   model.Role
}

// IsAdmin reports whether the caller has the ADMIN role.
func (id Identity) IsAdmin() bool {
	return id.Role == model.RoleAdmin
}

// IsOrganizer reports whether the caller has the ORGANIZER role.
func (id Identity) IsOrganizer() bool {
	return id.Role == model.RoleOrganizer
}

type contextKey struct{}

// WithIdentity attaches the caller identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the caller identity set by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// TokenParser validates HMAC-signed bearer tokens from the auth service.
type TokenParser struct {
	secret []byte
}

// NewTokenParser constructs a TokenParser with the shared HMAC secret.
func NewTokenParser(secret string) *TokenParser {
	return &TokenParser{secret: []byte(secret)}
}

// ParseHeader extracts and validates the token from an Authorization header
// value and returns the caller identity.
func (p *TokenParser) ParseHeader(header string) (Identity, error) {
	if header == "" {
		return Identity{}, ErrMissingAuthHeader
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return Identity{}, ErrInvalidAuthFormat
	}
	return p.Parse(header[len(bearerPrefix):])
}

// Parse validates a raw token string and returns the caller identity.
func (p *TokenParser) Parse(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(model.RoleUser)
	}

	return Identity{UserID: userID, Role: model.Role(role)}, nil
}
