package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxShopLength is the maximum length for shop domains in logs
	MaxShopLength = 255
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs
	MaxGeneralStringLength = 2000

	fingerprintLength = 12
)

// SanitizePath prepares a request path for logging. Query strings never reach here.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString drops invalid UTF-8 and control characters and truncates to maxLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizeError sanitizes an error message for safe logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeShop sanitizes a shop domain for safe logging
func SanitizeShop(shop string) string {
	return SanitizeString(strings.ToLower(shop), MaxShopLength)
}

// SanitizeIP returns ip unchanged when it parses, "invalid" otherwise.
// Client-supplied forwarding headers end up here.
func SanitizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	host := ip
	if h, _, err := net.SplitHostPort(ip); err == nil {
		host = h
	}
	if net.ParseIP(host) == nil {
		return "invalid"
	}
	return host
}

// Fingerprint returns a short, non-reversible handle for a credential such as a
// multipass token, so log lines can be correlated without recording the value.
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}
