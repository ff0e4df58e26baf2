package shopify

import (
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
)

func signSessionToken(t *testing.T, secret string, edit func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()
	now := time.Now()
	b := jwt.NewBuilder().
		Issuer("https://demo.myshopify.com/admin").
		Audience([]string{testAPIKey}).
		Subject("42").
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute)).
		Claim("dest", "https://demo.myshopify.com").
		Claim("sid", "session-1")
	if edit != nil {
		b = edit(b)
	}
	tok, err := b.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func signWithoutIssuer(t *testing.T) string {
	t.Helper()
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Audience([]string{testAPIKey}).
		Subject("42").
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Claim("dest", "https://demo.myshopify.com").
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testAPISecret)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestSessionTokenVerifier_Verify(t *testing.T) {
	t.Parallel()

	v := NewSessionTokenVerifier(testAPIKey, testAPISecret)

	claims, err := v.Verify(signSessionToken(t, testAPISecret, nil))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Shop != "demo.myshopify.com" {
		t.Errorf("Shop = %q, want demo.myshopify.com", claims.Shop)
	}
	if claims.UserID != "42" || claims.SessionID != "session-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestSessionTokenVerifier_Rejects(t *testing.T) {
	t.Parallel()

	v := NewSessionTokenVerifier(testAPIKey, testAPISecret)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong secret", token: signSessionToken(t, "other-secret", nil)},
		{
			name: "expired",
			token: signSessionToken(t, testAPISecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Expiration(time.Now().Add(-time.Hour)).IssuedAt(time.Now().Add(-2 * time.Hour)).NotBefore(time.Now().Add(-2 * time.Hour))
			}),
		},
		{
			name: "wrong audience",
			token: signSessionToken(t, testAPISecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Audience([]string{"another-app"})
			}),
		},
		{
			name: "dest not a shop",
			token: signSessionToken(t, testAPISecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Claim("dest", "https://evil.example.com")
			}),
		},
		{name: "missing issuer", token: signWithoutIssuer(t)},
		{
			name: "empty issuer",
			token: signSessionToken(t, testAPISecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Issuer("")
			}),
		},
		{
			name: "issuer without admin path",
			token: signSessionToken(t, testAPISecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Issuer("https://demo.myshopify.com")
			}),
		},
		{
			name: "issuer mismatch",
			token: signSessionToken(t, testAPISecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Issuer("https://other.myshopify.com/admin")
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Verify(tt.token)
			if !errors.Is(err, ErrInvalidSessionToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidSessionToken", err)
			}
		})
	}
}

func TestSessionTokenVerifier_NoSecret(t *testing.T) {
	t.Parallel()

	v := NewSessionTokenVerifier(testAPIKey, "")
	if _, err := v.Verify(signSessionToken(t, testAPISecret, nil)); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidSessionToken", err)
	}
}

func TestValidShopDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shop string
		want bool
	}{
		{"demo.myshopify.com", true},
		{"my-shop-2.myshopify.com", true},
		{"Demo.myshopify.com", false},
		{"demo.myshopify.com.evil.com", false},
		{"-demo.myshopify.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidShopDomain(tt.shop); got != tt.want {
			t.Errorf("ValidShopDomain(%q) = %v, want %v", tt.shop, got, tt.want)
		}
	}
}
