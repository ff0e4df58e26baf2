package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

// ErrInvalidCallback is returned when an OAuth callback fails HMAC validation.
var ErrInvalidCallback = errors.New("invalid oauth callback")

// OAuth runs the offline-token install flow for a shop.
type OAuth struct {
	apiKey      string
	apiSecret   string
	scopes      string
	redirectURL string
	shopURL     func(shop string) string
}

// NewOAuth creates the install flow client. scopes is Shopify's comma-separated scope list.
func NewOAuth(apiKey, apiSecret, scopes, redirectURL string) *OAuth {
	return &OAuth{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		scopes:      scopes,
		redirectURL: redirectURL,
		shopURL:     httpsURL,
	}
}

func httpsURL(shop string) string {
	return "https://" + shop
}

func (o *OAuth) config(shop string) *oauth2.Config {
	base := o.shopURL(shop)
	return &oauth2.Config{
		ClientID:     o.apiKey,
		ClientSecret: o.apiSecret,
		RedirectURL:  o.redirectURL,
		Scopes:       []string{o.scopes},
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/admin/oauth/authorize",
			TokenURL:  base + "/admin/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL returns the consent URL for shop.
func (o *OAuth) AuthCodeURL(shop, state string) string {
	return o.config(shop).AuthCodeURL(state)
}

// Exchange trades an authorization code for an offline access token and its granted scope.
func (o *OAuth) Exchange(ctx context.Context, shop, code string) (accessToken, scope string, err error) {
	token, err := o.config(shop).Exchange(ctx, code)
	if err != nil {
		return "", "", fmt.Errorf("exchange code: %w", err)
	}
	if s, ok := token.Extra("scope").(string); ok {
		scope = s
	}
	return token.AccessToken, scope, nil
}

// ValidateCallback checks the hmac parameter Shopify adds to callback and launch URLs.
func (o *OAuth) ValidateCallback(query url.Values) error {
	return ValidateQueryHMAC(query, o.apiSecret)
}

// ValidateQueryHMAC verifies the hex HMAC-SHA256 over the sorted k=v pairs of query,
// excluding hmac and signature, joined by &.
func ValidateQueryHMAC(query url.Values, secret string) error {
	given := query.Get("hmac")
	if given == "" || secret == "" {
		return ErrInvalidCallback
	}
	expected := QueryHMAC(query, secret)
	if !hmac.Equal([]byte(strings.ToLower(given)), []byte(expected)) {
		return ErrInvalidCallback
	}
	return nil
}

// QueryHMAC computes the callback signature for query.
func QueryHMAC(query url.Values, secret string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(query[k], ","))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
