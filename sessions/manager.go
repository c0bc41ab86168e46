package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Manager allocates session identifiers and mediates all registry access for
// the transports. It owns the Session records; nothing else mutates them.
type Manager struct {
	host Host
	log  *slog.Logger
	now  func() time.Time
}

// ManagerOption configures NewManager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for lifecycle events. Defaults to discard.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager constructs a Manager over the given host.
func NewManager(host Host, opts ...ManagerOption) *Manager {
	m := &Manager{
		host: host,
		log:  slog.New(slog.DiscardHandler),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new session for a client that completed the initialize
// exchange. The id is a random UUID; the host enforces that the first create
// for an id wins.
func (m *Manager) Create(ctx context.Context, protocolVersion, clientName, clientVersion string) (*Session, error) {
	sess := &Session{
		ID:              uuid.NewString(),
		ProtocolVersion: protocolVersion,
		ClientName:      clientName,
		ClientVersion:   clientVersion,
		CreatedAt:       m.now().UTC(),
	}
	if err := m.host.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.log.InfoContext(ctx, "session.create", slog.String("session_id", sess.ID))
	return sess, nil
}

// Load resolves an existing session by id.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	return m.host.GetSession(ctx, sessionID)
}

// Delete tears a session down: state first, then stream resources. It is
// called on every close path — explicit DELETE, transport close, shutdown —
// so it tolerates already-deleted sessions on the cleanup side.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.host.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if err := m.host.CleanupSession(ctx, sessionID); err != nil {
		m.log.WarnContext(ctx, "session.cleanup.fail", slog.String("session_id", sessionID), slog.String("err", err.Error()))
	}
	m.log.InfoContext(ctx, "session.delete", slog.String("session_id", sessionID))
	return nil
}

// Publish appends a message to the session's ordered stream for delivery to
// a server-push subscriber.
func (m *Manager) Publish(ctx context.Context, sessionID string, data []byte) (string, error) {
	return m.host.PublishSession(ctx, sessionID, data)
}

// Subscribe streams the session's messages to handler until the context ends
// or the handler errors.
func (m *Manager) Subscribe(ctx context.Context, sessionID, lastEventID string, handler MessageHandlerFunc) error {
	return m.host.SubscribeSession(ctx, sessionID, lastEventID, handler)
}
