package multipass

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Claim keys understood by Shopify's multipass endpoint.
const (
	ClaimEmail      = "email"
	ClaimCreatedAt  = "created_at"
	ClaimIdentifier = "identifier"
	ClaimFirstName  = "first_name"
	ClaimLastName   = "last_name"
	ClaimTagString  = "tag_string"
	ClaimRemoteIP   = "remote_ip"
	ClaimReturnTo   = "return_to"
)

// Claims is the identity payload carried by a token.
type Claims map[string]any

// Canonical returns the compact JSON form of c with keys in lexicographic order.
// time.Time values are written as RFC 3339 in UTC.
func (c Claims) Canonical() ([]byte, error) {
	normalized := make(map[string]any, len(c))
	for k, v := range c {
		switch tv := v.(type) {
		case time.Time:
			normalized[k] = tv.UTC().Format(time.RFC3339)
		case *time.Time:
			if tv == nil {
				normalized[k] = nil
				continue
			}
			normalized[k] = tv.UTC().Format(time.RFC3339)
		default:
			normalized[k] = v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("encode claims: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseClaims decodes a canonical claims document. Anything other than a JSON object is rejected.
func ParseClaims(data []byte) (Claims, error) {
	var c Claims
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, ErrMalformedClaims
	}
	if c == nil {
		return nil, ErrMalformedClaims
	}
	return c, nil
}

// String returns the string value of key, or "" when absent or not a string.
func (c Claims) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// CreatedAt parses the created_at claim.
func (c Claims) CreatedAt() (time.Time, bool) {
	switch v := c[ClaimCreatedAt].(type) {
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case time.Time:
		return v, true
	default:
		return time.Time{}, false
	}
}

// Customer is the login form submitted by a storefront visitor.
type Customer struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Identifier string `json:"identifier,omitempty" validate:"omitempty,max=255"`
	FirstName  string `json:"first_name,omitempty" validate:"omitempty,max=255"`
	LastName   string `json:"last_name,omitempty" validate:"omitempty,max=255"`
	TagString  string `json:"tag_string,omitempty" validate:"omitempty,max=1000"`
	RemoteIP   string `json:"remote_ip,omitempty" validate:"omitempty,ip"`
	ReturnTo   string `json:"return_to,omitempty" validate:"omitempty,url,max=2048"`
}

// Claims builds the multipass payload for the customer, stamped with now.
// Empty optional fields are left out.
func (c Customer) Claims(now time.Time) Claims {
	claims := Claims{
		ClaimEmail:     strings.TrimSpace(c.Email),
		ClaimCreatedAt: now.UTC().Format(time.RFC3339),
	}
	optional := map[string]string{
		ClaimIdentifier: c.Identifier,
		ClaimFirstName:  c.FirstName,
		ClaimLastName:   c.LastName,
		ClaimTagString:  c.TagString,
		ClaimRemoteIP:   c.RemoteIP,
		ClaimReturnTo:   c.ReturnTo,
	}
	for k, v := range optional {
		if v = strings.TrimSpace(v); v != "" {
			claims[k] = v
		}
	}
	return claims
}
