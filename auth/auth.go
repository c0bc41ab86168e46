// Package auth defines the pluggable authentication contract for the HTTP
// transport. Deployments without an identity provider run unauthenticated;
// see internal/jwtauth for the static JWKS-backed implementation.
package auth

import (
	"context"
	"errors"
)

// ErrUnauthorized indicates the presented credential was missing, invalid,
// or expired.
var ErrUnauthorized = errors.New("unauthorized")

// UserInfo describes an authenticated caller.
type UserInfo interface {
	// UserID returns a stable identifier for the caller.
	UserID() string
	// Claims unmarshals the raw claim set into ref.
	Claims(ref any) error
}

// Authenticator validates a bearer token and resolves the caller.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, token string) (UserInfo, error)
}
