package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/request"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

type mockRatelimitSource struct {
	cfg *models.RatelimitConfig
	err error
}

func (m *mockRatelimitSource) Get(context.Context, models.RatelimitScope) (*models.RatelimitConfig, error) {
	return m.cfg, m.err
}

type mockCorsSource struct {
	cfg *models.CorsConfig
	err error
}

func (m *mockCorsSource) Get(context.Context) (*models.CorsConfig, error) {
	return m.cfg, m.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimitReloader_LimitsByClientIP(t *testing.T) {
	t.Parallel()

	src := &mockRatelimitSource{cfg: &models.RatelimitConfig{Scope: models.RatelimitScopeLogin, Rate: "2-M"}}
	rl := NewRateLimitReloader(memory.NewStore(), src, models.RatelimitScopeLogin, zap.NewNop(), 0)
	h := rl.Middleware()(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/multipass", nil)
		req.RemoteAddr = ip
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if send("198.51.100.1:1000") != http.StatusOK || send("198.51.100.1:1000") != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if code := send("198.51.100.1:1000"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", code)
	}
	if code := send("198.51.100.2:1000"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}

func TestRateLimitReloader_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  *mockRatelimitSource
	}{
		{"nothing stored", &mockRatelimitSource{}},
		{"load error", &mockRatelimitSource{err: errors.New("db down")}},
		{"invalid rate", &mockRatelimitSource{cfg: &models.RatelimitConfig{Rate: "lots"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rl := NewRateLimitReloader(memory.NewStore(), tt.src, models.RatelimitScopeLogin, zap.NewNop(), 0)
			rl.Middleware()(okHandler())
			if rl.rate != DefaultLoginRate {
				t.Errorf("rate = %q, want %q", rl.rate, DefaultLoginRate)
			}
		})
	}
}

func TestShopKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:1"
	if got := ShopKey(req); got != "ip:203.0.113.5:1" {
		t.Errorf("ShopKey without shop = %q", got)
	}
	req = req.WithContext(request.WithShop(req.Context(), "demo.myshopify.com"))
	if got := ShopKey(req); got != "shop:demo.myshopify.com" {
		t.Errorf("ShopKey with shop = %q", got)
	}
	if DefaultRate(models.RatelimitScopeAdmin) != DefaultAdminRate {
		t.Error("admin scope should use admin default")
	}
}

func TestCORSReloader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src       *mockCorsSource
		origin    string
		wantAllow bool
	}{
		{"fallback allows admin", &mockCorsSource{}, "https://admin.shopify.com", true},
		{"fallback rejects others", &mockCorsSource{}, "https://evil.example.com", false},
		{"stored config", &mockCorsSource{cfg: &models.CorsConfig{AllowedOrigins: "https://app.example.com", MaxAge: 60}}, "https://app.example.com", true},
		{"stored config replaces fallback", &mockCorsSource{cfg: &models.CorsConfig{AllowedOrigins: "https://app.example.com"}}, "https://admin.shopify.com", false},
		{"load error uses fallback", &mockCorsSource{err: errors.New("db down")}, "https://admin.shopify.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewCORSReloader(tt.src, "https://admin.shopify.com", zap.NewNop(), 0)
			h := r.Middleware()(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/multipass/secret", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get("Access-Control-Allow-Origin") == tt.origin
			if got != tt.wantAllow {
				t.Errorf("allowed = %v, want %v", got, tt.wantAllow)
			}
		})
	}
}

func TestRateLimitReloader_SharedAcrossRoutes(t *testing.T) {
	t.Parallel()

	src := &mockRatelimitSource{cfg: &models.RatelimitConfig{Scope: models.RatelimitScopeLogin, Rate: "2-M"}}
	mw := NewRateLimitReloader(memory.NewStore(), src, models.RatelimitScopeLogin, zap.NewNop(), 0).Middleware()

	get := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	post := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusSeeOther) }))

	send := func(h http.Handler) int {
		req := httptest.NewRequest(http.MethodPost, "/multipass", nil)
		req.RemoteAddr = "198.51.100.9:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(get); code != http.StatusOK {
		t.Errorf("get status = %d, want 200", code)
	}
	if code := send(post); code != http.StatusSeeOther {
		t.Errorf("post status = %d, want 303", code)
	}
	if code := send(post); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429 across routes", code)
	}
}
