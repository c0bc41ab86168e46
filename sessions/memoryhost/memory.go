// Package memoryhost provides an in-memory sessions.Host suitable for
// tests, development, and single-process servers. All state is ephemeral and
// discarded on process exit. Message streams use monotonic decimal event ids
// per host and support replay from a last-seen id.
package memoryhost

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/acuteworks/stripe-mcp/sessions"
)

// Host is an in-memory implementation of sessions.Host.
type Host struct {
	mu      sync.RWMutex
	state   map[string]*sessions.Session
	streams map[string]*stream
	counter atomic.Int64
}

type stream struct {
	mu       sync.Mutex
	messages []message
	// notify is closed and replaced on every publish; waiters re-arm by
	// re-reading it under the lock.
	notify chan struct{}
	closed bool
}

type message struct {
	id   string
	data []byte
}

// New constructs an empty Host.
func New() *Host {
	return &Host{
		state:   make(map[string]*sessions.Session),
		streams: make(map[string]*stream),
	}
}

func (h *Host) CreateSession(ctx context.Context, sess *sessions.Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.state[sess.ID]; exists {
		return sessions.ErrSessionExists
	}
	cp := *sess
	h.state[sess.ID] = &cp
	return nil
}

func (h *Host) GetSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	h.mu.RLock()
	sess, ok := h.state[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (h *Host) DeleteSession(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	_, ok := h.state[sessionID]
	delete(h.state, sessionID)
	h.mu.Unlock()
	if !ok {
		return sessions.ErrSessionNotFound
	}
	return nil
}

func (h *Host) PublishSession(ctx context.Context, sessionID string, data []byte) (string, error) {
	st := h.ensureStream(sessionID)
	evID := strconv.FormatInt(h.counter.Add(1), 10)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return "", fmt.Errorf("session stream closed: %s", sessionID)
	}
	st.messages = append(st.messages, message{id: evID, data: append([]byte(nil), data...)})
	close(st.notify)
	st.notify = make(chan struct{})
	return evID, nil
}

func (h *Host) SubscribeSession(ctx context.Context, sessionID string, lastEventID string, handler sessions.MessageHandlerFunc) error {
	st := h.ensureStream(sessionID)

	st.mu.Lock()
	idx := len(st.messages)
	if lastEventID != "" {
		found := false
		for i := range st.messages {
			if st.messages[i].id == lastEventID {
				idx = i + 1
				found = true
				break
			}
		}
		if !found {
			st.mu.Unlock()
			return fmt.Errorf("last event id %s not found", lastEventID)
		}
	}
	st.mu.Unlock()

	for {
		st.mu.Lock()
		if st.closed {
			st.mu.Unlock()
			return nil
		}
		var pending []message
		if idx < len(st.messages) {
			pending = make([]message, len(st.messages)-idx)
			copy(pending, st.messages[idx:])
			idx = len(st.messages)
		}
		notify := st.notify
		st.mu.Unlock()

		for _, m := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := handler(ctx, m.id, m.data); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notify:
		}
	}
}

func (h *Host) CleanupSession(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	st, ok := h.streams[sessionID]
	delete(h.streams, sessionID)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	st.mu.Lock()
	if !st.closed {
		st.closed = true
		close(st.notify)
	}
	st.mu.Unlock()
	return nil
}

func (h *Host) ensureStream(sessionID string) *stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[sessionID]
	if !ok {
		st = &stream{notify: make(chan struct{})}
		h.streams[sessionID] = st
	}
	return st
}

var _ sessions.Host = (*Host)(nil)
