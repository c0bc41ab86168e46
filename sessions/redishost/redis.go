// Package redishost provides a Redis-backed sessions.Host. Session state is
// stored as JSON values under prefixed keys; per-session message streams use
// Redis Streams, whose entry ids double as SSE event ids so clients can
// resume with Last-Event-ID. Suitable when the registry must survive a
// process restart or be shared across instances.
package redishost

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/acuteworks/stripe-mcp/sessions"
)

// Config for the Redis-backed host. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=stripemcp:sessions:"`
}

// Host implements sessions.Host on Redis.
type Host struct {
	client    *redis.Client
	keyPrefix string
}

// New constructs a Host and verifies connectivity with a ping.
func New(cfg Config) (*Host, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "stripemcp:sessions:"
	}
	return &Host{client: cl, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Host using envdecode to populate Config.
func NewFromEnv() (*Host, error) {
	var cfg Config
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client.
func (h *Host) Close() error { return h.client.Close() }

func (h *Host) stateKey(sessionID string) string  { return h.keyPrefix + "state:" + sessionID }
func (h *Host) streamKey(sessionID string) string { return h.keyPrefix + "stream:" + sessionID }

func (h *Host) CreateSession(ctx context.Context, sess *sessions.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := h.client.SetNX(ctx, h.stateKey(sess.ID), b, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sessions.ErrSessionExists
	}
	return nil
}

func (h *Host) GetSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	b, err := h.client.Get(ctx, h.stateKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, err
	}
	var sess sessions.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (h *Host) DeleteSession(ctx context.Context, sessionID string) error {
	n, err := h.client.Del(context.WithoutCancel(ctx), h.stateKey(sessionID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return sessions.ErrSessionNotFound
	}
	return nil
}

func (h *Host) PublishSession(ctx context.Context, sessionID string, data []byte) (string, error) {
	return h.client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.streamKey(sessionID),
		Values: map[string]interface{}{"d": data},
	}).Result()
}

func (h *Host) SubscribeSession(ctx context.Context, sessionID string, lastEventID string, handler sessions.MessageHandlerFunc) error {
	key := h.streamKey(sessionID)
	start := lastEventID
	if start == "" {
		start = "$"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		res, err := h.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, start},
			Count:   1,
			Block:   500 * time.Millisecond,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return err
		}
		if len(res) == 0 || len(res[0].Messages) == 0 {
			continue
		}
		for _, m := range res[0].Messages {
			start = m.ID
			var payload []byte
			switch v := m.Values["d"].(type) {
			case string:
				payload = []byte(v)
			case []byte:
				payload = v
			default:
				payload = []byte(fmt.Sprintf("%v", v))
			}
			if err := handler(ctx, m.ID, payload); err != nil {
				return err
			}
		}
	}
}

func (h *Host) CleanupSession(ctx context.Context, sessionID string) error {
	// Best-effort; the stream may never have existed.
	_, _ = h.client.Del(context.WithoutCancel(ctx), h.streamKey(sessionID)).Result()
	return nil
}

var _ sessions.Host = (*Host)(nil)
