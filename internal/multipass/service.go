package multipass

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/homula/shop-multipass/internal/multipass")

const (
	// DefaultReplayWindow bounds how long a used token is remembered when no max age is set.
	// Without a max age, single use only holds within this window.
	DefaultReplayWindow = 24 * time.Hour
	// clockSkew tolerates created_at stamps slightly ahead of our clock.
	clockSkew = time.Minute
	// minReplayTTL keeps a digest around even when the token is about to expire.
	minReplayTTL = time.Second
)

// SecretStore looks up the multipass secret for a shop.
type SecretStore interface {
	GetSecret(ctx context.Context, shop string) (string, error)
}

// SecretWriter stores the multipass secret for a shop, replacing any previous one.
type SecretWriter interface {
	SetSecret(ctx context.Context, shop, secret string) error
}

// ReplayGuard remembers token digests. MarkUsed reports whether this is the first use.
type ReplayGuard interface {
	MarkUsed(ctx context.Context, digest string, ttl time.Duration) (bool, error)
}

// Service binds the token protocol to per-shop secrets.
type Service struct {
	store  SecretStore
	guard  ReplayGuard
	maxAge time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithReplayGuard rejects tokens that were already verified once.
func WithReplayGuard(g ReplayGuard) Option {
	return func(s *Service) { s.guard = g }
}

// WithMaxAge rejects tokens whose created_at is older than d. Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) { s.maxAge = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a token service backed by store.
func NewService(store SecretStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// IssueForShop issues a token for claims under the shop's secret.
// A store failure or a missing secret aborts issuance.
func (s *Service) IssueForShop(ctx context.Context, shop string, claims Claims) (string, error) {
	ctx, span := tracer.Start(ctx, "multipass.issue")
	defer span.End()
	span.SetAttributes(attribute.String("shop", shop))

	secret, err := s.secret(ctx, shop)
	if err != nil {
		span.SetStatus(codes.Error, "secret unavailable")
		return "", err
	}
	token, err := Issue(claims, secret)
	if err != nil {
		span.SetStatus(codes.Error, "issue failed")
		return "", err
	}
	s.log.Debug("multipass_token_issued",
		zap.String("shop", shop),
		zap.String("token_digest", Digest(token)[:12]),
	)
	return token, nil
}

// VerifyForShop authenticates token under the shop's secret and, when configured,
// enforces max age and single use.
func (s *Service) VerifyForShop(ctx context.Context, shop, token string) (Claims, error) {
	ctx, span := tracer.Start(ctx, "multipass.verify")
	defer span.End()
	span.SetAttributes(attribute.String("shop", shop))

	claims, err := s.verify(ctx, shop, token)
	if err != nil {
		span.SetStatus(codes.Error, "verification failed")
	}
	return claims, err
}

func (s *Service) verify(ctx context.Context, shop, token string) (Claims, error) {
	secret, err := s.secret(ctx, shop)
	if err != nil {
		return nil, err
	}
	claims, err := Verify(token, secret)
	if err != nil {
		return nil, err
	}

	ttl := DefaultReplayWindow
	if s.maxAge > 0 {
		createdAt, ok := claims.CreatedAt()
		if !ok {
			return nil, ErrMalformedClaims
		}
		now := s.now()
		if now.Sub(createdAt) > s.maxAge || createdAt.Sub(now) > clockSkew {
			return nil, ErrTokenExpired
		}
		// the digest must outlive the last instant the age check still accepts
		ttl = createdAt.Add(s.maxAge).Sub(now)
		if ttl < minReplayTTL {
			ttl = minReplayTTL
		}
	}

	if s.guard != nil {
		first, err := s.guard.MarkUsed(ctx, Digest(token), ttl)
		if err != nil {
			return nil, fmt.Errorf("check replay: %w", err)
		}
		if !first {
			return nil, ErrTokenReplayed
		}
	}

	return claims, nil
}

func (s *Service) secret(ctx context.Context, shop string) (string, error) {
	secret, err := s.store.GetSecret(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}
	if secret == "" {
		return "", ErrSecretUnavailable
	}
	return secret, nil
}

// LoginURL is the storefront endpoint that redeems token.
func LoginURL(shopDomain, token string) string {
	return fmt.Sprintf("https://%s/account/login/multipass/%s", shopDomain, token)
}
