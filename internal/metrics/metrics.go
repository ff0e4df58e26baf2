// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/homula/shop-multipass/internal/multipass"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification outcomes used as the result label.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// MetricsCollector is what the handlers and stores record into.
type MetricsCollector interface {
	RecordTokenIssued()
	RecordVerification(result string)
	RecordSecretLookup(duration time.Duration)
}

// Collector is the Prometheus implementation of MetricsCollector.
type Collector struct {
	tokensIssued  prometheus.Counter
	verifications *prometheus.CounterVec
	secretLookup  prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multipass_tokens_issued_total",
			Help: "Multipass tokens issued.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multipass_verifications_total",
			Help: "Multipass token verifications by result.",
		}, []string{"result"}),
		secretLookup: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "multipass_secret_lookup_seconds",
			Help:    "Secret store lookup latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.tokensIssued, c.verifications, c.secretLookup)
	return c
}

// RecordTokenIssued counts an issued token.
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordVerification counts a verification outcome.
func (c *Collector) RecordVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

// RecordSecretLookup observes a secret store lookup.
func (c *Collector) RecordSecretLookup(duration time.Duration) {
	c.secretLookup.Observe(duration.Seconds())
}

// NopCollector discards everything.
type NopCollector struct{}

func (NopCollector) RecordTokenIssued()               {}
func (NopCollector) RecordVerification(string)        {}
func (NopCollector) RecordSecretLookup(time.Duration) {}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// InstrumentedStore times every secret lookup.
type InstrumentedStore struct {
	store     multipass.SecretStore
	collector MetricsCollector
}

// InstrumentStore wraps store so lookups are recorded in collector.
func InstrumentStore(store multipass.SecretStore, collector MetricsCollector) *InstrumentedStore {
	return &InstrumentedStore{store: store, collector: collector}
}

// GetSecret implements multipass.SecretStore.
func (s *InstrumentedStore) GetSecret(ctx context.Context, shop string) (string, error) {
	start := time.Now()
	secret, err := s.store.GetSecret(ctx, shop)
	s.collector.RecordSecretLookup(time.Since(start))
	return secret, err
}
