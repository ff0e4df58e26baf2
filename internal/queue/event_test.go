package queue

import (
	"context"
	"strings"
	"testing"

	"github.com/homula/shop-multipass/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHashEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"case insensitive", "Jane@Example.com", "jane@example.com", true},
		{"trims whitespace", "  jane@example.com ", "jane@example.com", true},
		{"different emails", "jane@example.com", "john@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HashEmail(tt.a) == HashEmail(tt.b); got != tt.equal {
				t.Errorf("HashEmail(%q) == HashEmail(%q) is %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}

	if HashEmail("") != "" {
		t.Error("HashEmail(\"\") should be empty")
	}
	if got := HashEmail("a@b.co"); len(got) != 64 {
		t.Errorf("HashEmail length = %d, want 64", len(got))
	}
}

func TestNewLoginEvent(t *testing.T) {
	t.Parallel()

	e := NewLoginEvent(models.LoginEventTokenIssued, "demo.myshopify.com", "jane@example.com", "203.0.113.9", "")
	if e.ID.String() == "" || e.OccurredAt.IsZero() {
		t.Fatal("event should carry an ID and timestamp")
	}
	if strings.Contains(e.EmailHash, "jane") {
		t.Error("event must not carry the plain email")
	}
	if e.Type != models.LoginEventTokenIssued || e.Shop != "demo.myshopify.com" || e.RemoteIP != "203.0.113.9" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestLogPublisher_Publish(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	e := NewLoginEvent(models.LoginEventVerificationFailed, "demo.myshopify.com", "jane@example.com", "", "authentication failed")
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	entries := logs.FilterMessage("login_event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != string(models.LoginEventVerificationFailed) {
		t.Errorf("type field = %v", fields["type"])
	}
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "jane@") {
			t.Error("log entry leaked the plain email")
		}
	}
}
