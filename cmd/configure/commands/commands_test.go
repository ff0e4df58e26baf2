package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/multipass"
	"github.com/spf13/cobra"
)

func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "configure", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(NewSecretCmd(), NewTokenCmd(), NewRatelimitCmd(), NewCorsCmd())
	return root
}

func TestReadSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "trailing newline", input: "super-secret\n", want: "super-secret"},
		{name: "crlf", input: "super-secret\r\n", want: "super-secret"},
		{name: "no newline", input: "super-secret", want: "super-secret"},
		{name: "only first line", input: "super-secret\nignored\n", want: "super-secret"},
		{name: "too short", input: "short\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readSecret(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readSecret() = %q, want %q", got, tt.want)
			}
		})
	}
}

// These cases fail on argument validation, before configuration or the database are touched.
func TestCommandArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		stdin   string
		wantErr string
	}{
		{name: "secret set bad shop", args: []string{"secret", "set", "--shop", "example.com"}, wantErr: "invalid shop domain"},
		{name: "secret set short secret", args: []string{"secret", "set", "--shop", "demo.myshopify.com"}, stdin: "abc\n", wantErr: "at least"},
		{name: "token issue without email", args: []string{"token", "issue", "--shop", "demo.myshopify.com"}, wantErr: "invalid customer"},
		{name: "token issue bad remote ip", args: []string{"token", "issue", "--shop", "demo.myshopify.com", "--email", "a@example.com", "--remote-ip", "nope"}, wantErr: "remoteip: ip"},
		{name: "token verify without token", args: []string{"token", "verify", "--shop", "demo.myshopify.com"}, wantErr: "--token is required"},
		{name: "ratelimit bad scope", args: []string{"ratelimit", "set", "--rate", "10-M", "--scope", "global"}, wantErr: "--scope must be"},
		{name: "ratelimit missing rate", args: []string{"ratelimit", "set"}, wantErr: "--rate is required"},
		{name: "cors missing origins", args: []string{"cors", "set"}, wantErr: "--origins is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := newTestRoot()
			root.SetArgs(tt.args)
			root.SetIn(strings.NewReader(tt.stdin))
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})

			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestPrintSecretStatus(t *testing.T) {
	t.Parallel()

	updated := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printSecretStatus(&buf, &models.SecretStatus{Shop: "a.myshopify.com"})
	printSecretStatus(&buf, &models.SecretStatus{Shop: "b.myshopify.com", Configured: true, UpdatedAt: &updated})

	want := "a.myshopify.com: not configured\nb.myshopify.com: configured (updated 2026-05-01T08:00:00Z)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

type staticSecretStore string

func (s staticSecretStore) GetSecret(context.Context, string) (string, error) {
	return string(s), nil
}

func TestVerifyOptions(t *testing.T) {
	t.Parallel()

	const secret = "cli-test-secret"
	old := multipass.Claims{
		multipass.ClaimEmail:     "a@example.com",
		multipass.ClaimCreatedAt: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}
	token, err := multipass.Issue(old, secret)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name    string
		maxAge  time.Duration
		wantErr error
	}{
		{"max age off", 0, nil},
		{"max age covers token", 2 * time.Hour, nil},
		{"token older than max age", 10 * time.Minute, multipass.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{MultipassMaxAge: tt.maxAge}
			svc := multipass.NewService(staticSecretStore(secret), verifyOptions(cfg)...)
			for i := 0; i < 2; i++ {
				_, err := svc.VerifyForShop(context.Background(), "demo.myshopify.com", token)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("VerifyForShop() #%d error = %v, want %v", i+1, err, tt.wantErr)
				}
			}
		})
	}
}
