package models

import "errors"

var (
	// ErrSecretNotFound is returned when a shop has no multipass secret.
	ErrSecretNotFound = errors.New("multipass secret not found")
	// ErrSessionNotFound is returned when a shop has no stored offline session.
	ErrSessionNotFound = errors.New("shop session not found")
)
