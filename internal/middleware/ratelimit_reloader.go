package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/homula/shop-multipass/internal/models"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"
)

// RatelimitConfigSource loads the stored rate for a scope; nil means none is stored.
type RatelimitConfigSource interface {
	Get(ctx context.Context, scope models.RatelimitScope) (*models.RatelimitConfig, error)
}

// RateLimitReloader wraps ulule/limiter and periodically reloads the scope's rate from the database.
type RateLimitReloader struct {
	store    limiter.Store
	repo     RatelimitConfigSource
	scope    models.RatelimitScope
	keyFn    KeyGetter
	log      *zap.Logger
	interval time.Duration
	mu       sync.RWMutex
	current  *stdlibmw.Middleware
	rate     string
}

// NewRateLimitReloader creates a rate limit middleware for scope backed by store
// (the Redis store in production).
func NewRateLimitReloader(store limiter.Store, repo RatelimitConfigSource, scope models.RatelimitScope, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	return &RateLimitReloader{
		store:    store,
		repo:     repo,
		scope:    scope,
		keyFn:    KeyGetterFor(scope),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware loads the current rate and returns a middleware that always applies
// the most recently loaded one.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	r.load(context.Background())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			mw := r.current
			r.mu.RUnlock()
			if mw == nil {
				next.ServeHTTP(w, req)
				return
			}
			mw.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start runs the reload loop until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.load(ctx)
		}
	}
}

func (r *RateLimitReloader) load(ctx context.Context) {
	rateStr := DefaultRate(r.scope)
	cfg, err := r.repo.Get(ctx, r.scope)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_using_default",
			zap.Error(err),
			zap.String("scope", string(r.scope)),
		)
	} else if cfg != nil && cfg.Rate != "" {
		rateStr = cfg.Rate
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("invalid_ratelimit_config_using_default",
			zap.Error(err),
			zap.String("scope", string(r.scope)),
			zap.String("rate", rateStr),
		)
		rateStr = DefaultRate(r.scope)
		if rate, err = limiter.NewRateFromFormatted(rateStr); err != nil {
			return
		}
	}

	r.mu.RLock()
	unchanged := r.current != nil && r.rate == rateStr
	r.mu.RUnlock()
	if unchanged {
		return
	}

	instance := limiter.New(r.store, rate, limiter.WithTrustForwardHeader(false))
	keyFn := r.keyFn
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(func(req *http.Request) string {
		return string(r.scope) + ":" + keyFn(req)
	}))

	r.mu.Lock()
	r.current = mw
	r.rate = rateStr
	r.mu.Unlock()

	r.log.Info("ratelimit_loaded", zap.String("scope", string(r.scope)), zap.String("rate", rateStr))
}
