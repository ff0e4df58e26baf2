package multipass

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed is the umbrella for every verification failure.
// Callers facing clients should report only this, never the specific cause.
var ErrAuthenticationFailed = errors.New("multipass: authentication failed")

var (
	// ErrSecretUnavailable means no usable secret exists for the shop. Issuance aborts.
	ErrSecretUnavailable = errors.New("multipass: secret unavailable")

	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrAuthenticationFailed)
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrAuthenticationFailed)
	ErrDecryption       = fmt.Errorf("%w: decryption failed", ErrAuthenticationFailed)
	ErrMalformedClaims  = fmt.Errorf("%w: malformed claims", ErrAuthenticationFailed)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrAuthenticationFailed)
	ErrTokenReplayed    = fmt.Errorf("%w: token already used", ErrAuthenticationFailed)
)
