package middleware

import (
	"net/http"

	logpkg "github.com/homula/shop-multipass/internal/logger"
	"github.com/homula/shop-multipass/internal/request"
	"go.uber.org/zap"
)

// Audit logs rejected and throttled requests.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			var event string
			switch wrapped.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				event = "security_event"
			case http.StatusTooManyRequests:
				event = "rate_limit_violation"
			default:
				return
			}

			fields := []zap.Field{
				zap.Int("status_code", wrapped.statusCode),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeIP(request.ClientIP(r))),
			}
			// the shop is only known after session auth ran
			if shop := request.ShopFromContext(r); shop != "" {
				fields = append(fields, zap.String("shop", logpkg.SanitizeShop(shop)))
			}
			logger.Warn(event, fields...)
		})
	}
}
