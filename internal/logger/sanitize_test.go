package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "/multipass", "/multipass"},
		{"control chars", "/multi\x00pass\x1b", "/multipass"},
		{"invalid utf8", "/a\xffb", "/ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizePath(tt.in); got != tt.want {
				t.Errorf("SanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := "/" + strings.Repeat("a", MaxPathLength+10)
	if got := SanitizePath(long); len(got) != MaxPathLength+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("SanitizePath(long) length = %d", len(got))
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()
	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q", got)
	}
	if got := SanitizeError(errors.New("bad\x07 thing")); got != "bad thing" {
		t.Errorf("SanitizeError() = %q", got)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	token := "c2VjcmV0LXRva2Vu"
	fp := Fingerprint(token)
	if len(fp) != 12 {
		t.Fatalf("Fingerprint() length = %d, want 12", len(fp))
	}
	if strings.Contains(token, fp) || strings.Contains(fp, token) {
		t.Error("Fingerprint() leaks the credential")
	}
	if Fingerprint(token) != fp {
		t.Error("Fingerprint() is not stable")
	}
	if Fingerprint("") != "" {
		t.Error("Fingerprint(\"\") should be empty")
	}
}

func TestSanitizeIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"203.0.113.7", "203.0.113.7"},
		{"203.0.113.7:5123", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"evil\nvalue", "invalid"},
		{"not-an-ip", "invalid"},
	}
	for _, tt := range tests {
		if got := SanitizeIP(tt.in); got != tt.want {
			t.Errorf("SanitizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeShop(t *testing.T) {
	t.Parallel()
	if got := SanitizeShop("Demo.MyShopify.com\n"); got != "demo.myshopify.com" {
		t.Errorf("SanitizeShop() = %q", got)
	}
	long := strings.Repeat("a", MaxShopLength+5)
	if got := SanitizeShop(long); len(got) != MaxShopLength+3 {
		t.Errorf("SanitizeShop(long) length = %d", len(got))
	}
}
