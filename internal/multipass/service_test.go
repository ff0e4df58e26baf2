package multipass

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockSecretStore struct {
	secrets map[string]string
	err     error
}

func (m *mockSecretStore) GetSecret(_ context.Context, shop string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.secrets[shop], nil
}

type mockReplayGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	ttl  time.Duration
	err  error
}

func (m *mockReplayGuard) MarkUsed(_ context.Context, digest string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	m.ttl = ttl
	if m.seen[digest] {
		return false, nil
	}
	m.seen[digest] = true
	return true, nil
}

// expiringReplayGuard forgets digests once their ttl has passed on clock.
type expiringReplayGuard struct {
	mu      sync.Mutex
	clock   func() time.Time
	expires map[string]time.Time
	ttls    []time.Duration
}

func (g *expiringReplayGuard) MarkUsed(_ context.Context, digest string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expires == nil {
		g.expires = make(map[string]time.Time)
	}
	g.ttls = append(g.ttls, ttl)
	now := g.clock()
	if exp, ok := g.expires[digest]; ok && now.Before(exp) {
		return false, nil
	}
	g.expires[digest] = now.Add(ttl)
	return true, nil
}

func TestService_ReplayWindowCoversMaxAge(t *testing.T) {
	t.Parallel()

	const maxAge = 5 * time.Minute
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &mockSecretStore{secrets: map[string]string{"a.myshopify.com": "shhh"}}

	tests := []struct {
		name      string
		createdAt time.Time
		replayAt  time.Duration // offset from start of the second verification
		wantTTL   time.Duration
	}{
		{"stamped ahead of our clock", start.Add(50 * time.Second), maxAge + 20*time.Second, maxAge + 50*time.Second},
		{"stamped now", start, maxAge - time.Second, maxAge},
		{"stamped in the past", start.Add(-4 * time.Minute), 59 * time.Second, time.Minute},
		{"about to expire", start.Add(-maxAge), 0, minReplayTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			now := start
			clock := func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				return now
			}
			guard := &expiringReplayGuard{clock: clock}
			svc := NewService(store, WithClock(clock), WithMaxAge(maxAge), WithReplayGuard(guard))

			token, err := Issue(Claims{ClaimEmail: "a@b.c", ClaimCreatedAt: tt.createdAt.Format(time.RFC3339)}, "shhh")
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if _, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", token); err != nil {
				t.Fatalf("first VerifyForShop() error = %v", err)
			}
			if got := guard.ttls[0]; got != tt.wantTTL {
				t.Errorf("replay ttl = %v, want %v", got, tt.wantTTL)
			}

			mu.Lock()
			now = start.Add(tt.replayAt)
			mu.Unlock()

			_, err = svc.VerifyForShop(context.Background(), "a.myshopify.com", token)
			if !errors.Is(err, ErrTokenReplayed) {
				t.Fatalf("second VerifyForShop() error = %v, want ErrTokenReplayed", err)
			}
		})
	}
}

func TestService_IssueForShop(t *testing.T) {
	t.Parallel()

	store := &mockSecretStore{secrets: map[string]string{"a.myshopify.com": "shhh"}}
	svc := NewService(store)

	token, err := svc.IssueForShop(context.Background(), "a.myshopify.com", scenarioClaims)
	if err != nil {
		t.Fatalf("IssueForShop() error = %v", err)
	}
	claims, err := Verify(token, "shhh")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.String(ClaimEmail) != "test@example.com" {
		t.Errorf("email = %q", claims.String(ClaimEmail))
	}
}

func TestService_IssueForShop_FailsClosed(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	tests := []struct {
		name  string
		store *mockSecretStore
		shop  string
	}{
		{"unknown shop", &mockSecretStore{secrets: map[string]string{}}, "missing.myshopify.com"},
		{"empty secret", &mockSecretStore{secrets: map[string]string{"a.myshopify.com": ""}}, "a.myshopify.com"},
		{"store error", &mockSecretStore{err: storeErr}, "a.myshopify.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			token, err := NewService(tt.store).IssueForShop(context.Background(), tt.shop, scenarioClaims)
			if !errors.Is(err, ErrSecretUnavailable) {
				t.Fatalf("IssueForShop() error = %v, want ErrSecretUnavailable", err)
			}
			if token != "" {
				t.Errorf("IssueForShop() token = %q, want empty", token)
			}
			if tt.store.err != nil && !errors.Is(err, storeErr) {
				t.Errorf("IssueForShop() error = %v does not wrap the store error", err)
			}
		})
	}
}

func TestService_VerifyForShop(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := &mockSecretStore{secrets: map[string]string{"a.myshopify.com": "shhh", "b.myshopify.com": "other"}}

	issue := func(t *testing.T, claims Claims) string {
		t.Helper()
		token, err := Issue(claims, "shhh")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return token
	}

	t.Run("valid without options", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock))
		claims, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", issue(t, scenarioClaims))
		if err != nil {
			t.Fatalf("VerifyForShop() error = %v", err)
		}
		if claims.String(ClaimEmail) != "test@example.com" {
			t.Errorf("email = %q", claims.String(ClaimEmail))
		}
	})

	t.Run("other shop secret", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock))
		_, err := svc.VerifyForShop(context.Background(), "b.myshopify.com", issue(t, scenarioClaims))
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("VerifyForShop() error = %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("within max age", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock), WithMaxAge(10*time.Minute))
		if _, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", issue(t, scenarioClaims)); err != nil {
			t.Fatalf("VerifyForShop() error = %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock), WithMaxAge(time.Minute))
		_, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", issue(t, scenarioClaims))
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("VerifyForShop() error = %v, want ErrTokenExpired", err)
		}
	})

	t.Run("from the future", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock), WithMaxAge(time.Hour))
		future := Claims{ClaimEmail: "a@b.c", ClaimCreatedAt: now.Add(time.Hour).Format(time.RFC3339)}
		_, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", issue(t, future))
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("VerifyForShop() error = %v, want ErrTokenExpired", err)
		}
	})

	t.Run("missing created_at with max age", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock), WithMaxAge(time.Hour))
		_, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", issue(t, Claims{ClaimEmail: "a@b.c"}))
		if !errors.Is(err, ErrMalformedClaims) {
			t.Fatalf("VerifyForShop() error = %v, want ErrMalformedClaims", err)
		}
	})

	t.Run("replayed", func(t *testing.T) {
		t.Parallel()
		guard := &mockReplayGuard{}
		svc := NewService(store, WithClock(clock), WithReplayGuard(guard))
		token := issue(t, scenarioClaims)
		if _, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", token); err != nil {
			t.Fatalf("first VerifyForShop() error = %v", err)
		}
		_, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", token)
		if !errors.Is(err, ErrTokenReplayed) {
			t.Fatalf("second VerifyForShop() error = %v, want ErrTokenReplayed", err)
		}
		if guard.ttl != DefaultReplayWindow {
			t.Errorf("replay ttl = %v, want %v", guard.ttl, DefaultReplayWindow)
		}
	})

	t.Run("replay guard unavailable", func(t *testing.T) {
		t.Parallel()
		guard := &mockReplayGuard{err: errors.New("redis down")}
		svc := NewService(store, WithClock(clock), WithReplayGuard(guard))
		_, err := svc.VerifyForShop(context.Background(), "a.myshopify.com", issue(t, scenarioClaims))
		if err == nil || errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("VerifyForShop() error = %v, want infrastructure error", err)
		}
	})

	t.Run("secret missing", func(t *testing.T) {
		t.Parallel()
		svc := NewService(store, WithClock(clock))
		_, err := svc.VerifyForShop(context.Background(), "c.myshopify.com", issue(t, scenarioClaims))
		if !errors.Is(err, ErrSecretUnavailable) {
			t.Fatalf("VerifyForShop() error = %v, want ErrSecretUnavailable", err)
		}
	})
}

func TestLoginURL(t *testing.T) {
	t.Parallel()

	got := LoginURL("a.myshopify.com", "abc-_=")
	want := "https://a.myshopify.com/account/login/multipass/abc-_="
	if got != want {
		t.Errorf("LoginURL() = %q, want %q", got, want)
	}
}
