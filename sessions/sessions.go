// Package sessions defines the session registry contract shared by the HTTP
// transport: a Session record, a pluggable Host store holding session state
// and per-session ordered message streams, and a Manager that owns id
// allocation and lifecycle.
//
// A session identifier, once issued, maps to exactly one live session until
// it is deleted or its transport closes. Sessions carry no TTL; every close
// path must remove the registry entry or the map grows without bound.
package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown to the host.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose id is
	// already registered. First create wins.
	ErrSessionExists = errors.New("session already exists")
)

// Session is the state record for one logical client connection.
type Session struct {
	ID              string    `json:"id"`
	ProtocolVersion string    `json:"protocolVersion"`
	ClientName      string    `json:"clientName,omitempty"`
	ClientVersion   string    `json:"clientVersion,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// MessageHandlerFunc receives one ordered message from a session stream.
// Returning an error terminates the subscription.
type MessageHandlerFunc func(ctx context.Context, eventID string, data []byte) error

// Host is the injected session store. The in-memory implementation backs
// single-process deployments; the Redis implementation allows the registry
// to outlive a process or span several.
type Host interface {
	// State.
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Messaging: ordered per session with resume via lastEventID.
	PublishSession(ctx context.Context, sessionID string, data []byte) (eventID string, err error)
	SubscribeSession(ctx context.Context, sessionID string, lastEventID string, handler MessageHandlerFunc) error

	// CleanupSession releases stream resources. Safe to call for ids that
	// were never created or are already gone.
	CleanupSession(ctx context.Context, sessionID string) error
}
