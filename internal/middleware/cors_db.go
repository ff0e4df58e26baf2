package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/homula/shop-multipass/internal/database"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CorsConfigSource loads the stored CORS config; nil means none is stored.
type CorsConfigSource interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader wraps rs/cors and periodically reloads CORS config from the database.
type CORSReloader struct {
	repo     CorsConfigSource
	fallback string
	log      *zap.Logger
	interval time.Duration
	mu       sync.RWMutex
	current  *cors.Cors
}

// NewCORSReloader creates a CORS middleware that loads config from repo and hot-reloads it.
// fallbackOrigins (comma-separated, e.g. the Shopify admin URL) applies while nothing is stored.
func NewCORSReloader(repo CorsConfigSource, fallbackOrigins string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(fallbackOrigins),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware loads the current config and returns a middleware that always applies
// the most recently loaded one.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	r.load(context.Background())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			c := r.current
			r.mu.RUnlock()
			c.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start runs the reload loop until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
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

func (r *CORSReloader) load(ctx context.Context) {
	origins := database.AllowedOriginsSlice(r.fallback)
	allowCreds := false
	maxAge := models.DefaultCorsMaxAge

	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_config_using_fallback", zap.Error(err))
	} else if cfg != nil {
		origins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
		allowCreds = cfg.AllowCredentials
		maxAge = cfg.MaxAge
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})

	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
}
