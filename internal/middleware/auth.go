package middleware

import (
	"net/http"
	"strings"

	logpkg "github.com/homula/shop-multipass/internal/logger"
	"github.com/homula/shop-multipass/internal/request"
	"github.com/homula/shop-multipass/internal/shopify"
	"go.uber.org/zap"
)

// SessionVerifier verifies an App Bridge session token.
type SessionVerifier interface {
	Verify(token string) (*shopify.SessionClaims, error)
}

// SessionAuth requires a valid App Bridge session token and puts its shop in the request context.
func SessionAuth(verifier SessionVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respondErrorJSON(w, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("session_token_rejected",
					zap.String("error", logpkg.SanitizeError(err)),
					zap.String("token_fingerprint", logpkg.Fingerprint(token)),
				)
				respondErrorJSON(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired session token", logger)
				return
			}

			ctx := request.WithShop(r.Context(), claims.Shop)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
