package sessions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/acuteworks/stripe-mcp/sessions"
	"github.com/acuteworks/stripe-mcp/sessions/memoryhost"
)

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	mgr := sessions.NewManager(memoryhost.New())

	sess, err := mgr.Create(ctx, "2025-06-18", "client", "1.0")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("empty session id")
	}
	if sess.ProtocolVersion != "2025-06-18" {
		t.Fatalf("protocol version = %q", sess.ProtocolVersion)
	}

	got, err := mgr.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != sess.ID || got.ClientName != "client" {
		t.Fatalf("loaded session = %+v", got)
	}

	if err := mgr.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mgr.Load(ctx, sess.ID); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("load after delete = %v, want ErrSessionNotFound", err)
	}
	if err := mgr.Delete(ctx, sess.ID); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("second delete = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerLoadEmptyID(t *testing.T) {
	mgr := sessions.NewManager(memoryhost.New())
	if _, err := mgr.Load(context.Background(), ""); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("load empty id = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerUniqueIDs(t *testing.T) {
	ctx := context.Background()
	mgr := sessions.NewManager(memoryhost.New())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess, err := mgr.Create(ctx, "2025-06-18", "c", "1")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[sess.ID] {
			t.Fatalf("duplicate session id %s", sess.ID)
		}
		seen[sess.ID] = true
	}
}
