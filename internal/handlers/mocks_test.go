package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/homula/shop-multipass/internal/models"
)

type mockSecrets struct {
	mu      sync.Mutex
	secrets map[string]string
	err     error
}

func newMockSecrets(pairs ...string) *mockSecrets {
	m := &mockSecrets{secrets: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.secrets[pairs[i]] = pairs[i+1]
	}
	return m
}

func (m *mockSecrets) GetSecret(_ context.Context, shop string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	secret, ok := m.secrets[shop]
	if !ok {
		return "", models.ErrSecretNotFound
	}
	return secret, nil
}

func (m *mockSecrets) SetSecret(_ context.Context, shop, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.secrets[shop] = secret
	return nil
}

func (m *mockSecrets) Status(_ context.Context, shop string) (*models.SecretStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	_, ok := m.secrets[shop]
	status := &models.SecretStatus{Shop: shop, Configured: ok}
	if ok {
		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		status.UpdatedAt = &ts
	}
	return status, nil
}

type mockEvents struct {
	mu     sync.Mutex
	events []*models.LoginEvent
	err    error
}

func (m *mockEvents) Publish(_ context.Context, e *models.LoginEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockEvents) published() []*models.LoginEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.LoginEvent(nil), m.events...)
}

type mockMetrics struct {
	mu            sync.Mutex
	issued        int
	verifications map[string]int
}

func (m *mockMetrics) RecordTokenIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
}

func (m *mockMetrics) RecordVerification(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verifications == nil {
		m.verifications = map[string]int{}
	}
	m.verifications[result]++
}

func (m *mockMetrics) RecordSecretLookup(time.Duration) {}

var errStoreDown = errors.New("connection refused")
