package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestOAuth_AuthCodeURL(t *testing.T) {
	t.Parallel()

	o := NewOAuth(testAPIKey, testAPISecret, "read_customers,write_customers", "https://app.example.com/auth/callback")
	raw := o.AuthCodeURL("demo.myshopify.com", "nonce-1")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "demo.myshopify.com" || u.Path != "/admin/oauth/authorize" {
		t.Errorf("unexpected authorize URL %q", raw)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":    testAPIKey,
		"scope":        "read_customers,write_customers",
		"redirect_uri": "https://app.example.com/auth/callback",
		"state":        "nonce-1",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestOAuth_Exchange(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/oauth/access_token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("code") != "the-code" || r.PostForm.Get("client_secret") != testAPISecret {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"shpat_123","scope":"read_customers,write_customers"}`))
	}))
	defer srv.Close()

	o := NewOAuth(testAPIKey, testAPISecret, "read_customers", "https://app.example.com/auth/callback")
	o.shopURL = func(string) string { return srv.URL }

	token, scope, err := o.Exchange(context.Background(), "demo.myshopify.com", "the-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token != "shpat_123" || scope != "read_customers,write_customers" {
		t.Errorf("Exchange() = %q, %q", token, scope)
	}

	if _, _, err := o.Exchange(context.Background(), "demo.myshopify.com", "wrong"); err == nil {
		t.Error("Exchange() with bad code should fail")
	}
}

func TestValidateQueryHMAC(t *testing.T) {
	t.Parallel()

	base := url.Values{
		"code":      {"abc"},
		"shop":      {"demo.myshopify.com"},
		"state":     {"nonce-1"},
		"timestamp": {"1700000000"},
	}
	signed := func(v url.Values) url.Values {
		out := url.Values{}
		for k, vals := range v {
			out[k] = append([]string(nil), vals...)
		}
		out.Set("hmac", QueryHMAC(v, testAPISecret))
		return out
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		if err := ValidateQueryHMAC(signed(base), testAPISecret); err != nil {
			t.Errorf("ValidateQueryHMAC() error = %v", err)
		}
	})

	t.Run("upper-case hex accepted", func(t *testing.T) {
		t.Parallel()
		q := signed(base)
		q.Set("hmac", strings.ToUpper(q.Get("hmac")))
		if err := ValidateQueryHMAC(q, testAPISecret); err != nil {
			t.Errorf("ValidateQueryHMAC() error = %v", err)
		}
	})

	t.Run("tampered param", func(t *testing.T) {
		t.Parallel()
		q := signed(base)
		q.Set("shop", "other.myshopify.com")
		if err := ValidateQueryHMAC(q, testAPISecret); !errors.Is(err, ErrInvalidCallback) {
			t.Errorf("error = %v, want ErrInvalidCallback", err)
		}
	})

	t.Run("missing hmac", func(t *testing.T) {
		t.Parallel()
		if err := ValidateQueryHMAC(base, testAPISecret); !errors.Is(err, ErrInvalidCallback) {
			t.Errorf("error = %v, want ErrInvalidCallback", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		if err := ValidateQueryHMAC(signed(base), "other"); !errors.Is(err, ErrInvalidCallback) {
			t.Errorf("error = %v, want ErrInvalidCallback", err)
		}
	})

	t.Run("signature param ignored", func(t *testing.T) {
		t.Parallel()
		q := signed(base)
		q.Set("signature", "whatever")
		if err := ValidateQueryHMAC(q, testAPISecret); err != nil {
			t.Errorf("ValidateQueryHMAC() error = %v", err)
		}
	})
}

func TestQueryHMAC_KnownMessage(t *testing.T) {
	t.Parallel()

	// The signed message is the sorted pairs joined by '&'.
	q := url.Values{"b": {"2"}, "a": {"1"}, "hmac": {"ignored"}}
	other := url.Values{"a": {"1"}, "b": {"2"}}
	if QueryHMAC(q, "k") != QueryHMAC(other, "k") {
		t.Error("hmac parameter must not affect the signature")
	}
	if len(QueryHMAC(q, "k")) != 64 {
		t.Error("signature should be 64 hex characters")
	}
}
