package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseRef(t *testing.T) {
	ok := map[string][2]string{
		"vault:secret/leadsite#db_password": {"secret/leadsite", "db_password"},
		"vault:kv/prod/site#redis.password": {"kv/prod/site", "redis.password"},
	}
	for ref, want := range ok {
		p, k, err := ParseRef(ref)
		if err != nil || p != want[0] || k != want[1] {
			t.Errorf("ParseRef(%q) = %q, %q, %v", ref, p, k, err)
		}
	}

	for _, ref := range []string{"secret/leadsite#k", "vault:secret#k", "vault:secret/x#", "vault:#k"} {
		if _, _, err := ParseRef(ref); !errors.Is(err, ErrBadRef) {
			t.Errorf("ParseRef(%q) err = %v, want ErrBadRef", ref, err)
		}
	}
}

func TestResolve_Caches(t *testing.T) {
	c := newClient(zap.NewNop().Sugar())
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	calls := 0
	c.fetch = func(_ context.Context, mount, rel string) (map[string]any, error) {
		calls++
		if mount != "secret" || rel != "leadsite" {
			t.Fatalf("fetch(%q, %q)", mount, rel)
		}
		return map[string]any{"db_password": "s3cr3t", "port": 5432}, nil
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		v, err := c.Resolve(ctx, "vault:secret/leadsite#db_password")
		if err != nil || v != "s3cr3t" {
			t.Fatalf("Resolve = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}

	now = now.Add(6 * time.Minute)
	_, _ = c.Resolve(ctx, "vault:secret/leadsite#db_password")
	if calls != 2 {
		t.Errorf("cache did not expire, calls = %d", calls)
	}

	if _, err := c.Resolve(ctx, "vault:secret/leadsite#missing"); err == nil {
		t.Error("expected missing-key error")
	}
	if _, err := c.Resolve(ctx, "vault:secret/leadsite#port"); err == nil {
		t.Error("expected non-string error")
	}
}
