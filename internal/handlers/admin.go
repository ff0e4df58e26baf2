package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	logpkg "github.com/homula/shop-multipass/internal/logger"
	"github.com/homula/shop-multipass/internal/metrics"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/multipass"
	"github.com/homula/shop-multipass/internal/queue"
	"github.com/homula/shop-multipass/internal/request"
	"github.com/homula/shop-multipass/internal/validation"
	"go.uber.org/zap"
)

// SecretManager reads and writes a shop's multipass secret.
type SecretManager interface {
	SetSecret(ctx context.Context, shop, secret string) error
	Status(ctx context.Context, shop string) (*models.SecretStatus, error)
}

// TokenService issues and verifies tokens for a shop.
type TokenService interface {
	TokenIssuer
	VerifyForShop(ctx context.Context, shop, token string) (multipass.Claims, error)
}

// AdminHandler serves the embedded admin API. Routes require session auth.
type AdminHandler struct {
	secrets SecretManager
	tokens  TokenService
	events  queue.EventPublisher
	metrics metrics.MetricsCollector
	log     *zap.Logger
}

// NewAdminHandler creates an admin handler. events and collector may be nil.
func NewAdminHandler(secrets SecretManager, tokens TokenService, events queue.EventPublisher, collector metrics.MetricsCollector, log *zap.Logger) *AdminHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{secrets: secrets, tokens: tokens, events: events, metrics: collector, log: log}
}

// RegisterRoutes registers admin routes on a router already prefixed with /api/v1/multipass.
func (h *AdminHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/secret", h.GetSecretStatus).Methods(http.MethodGet)
	r.HandleFunc("/secret", h.PutSecret).Methods(http.MethodPut)
	r.HandleFunc("/verify", h.VerifyToken).Methods(http.MethodPost)
	r.HandleFunc("/token", h.IssueToken).Methods(http.MethodPost)
}

// SetSecretRequest is the body of PUT /secret.
type SetSecretRequest struct {
	Secret string `json:"secret"`
}

// VerifyTokenRequest is the body of POST /verify.
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required,max=8192"`
}

// VerifyTokenResponse carries the authenticated claims.
type VerifyTokenResponse struct {
	Claims multipass.Claims `json:"claims"`
}

// IssueTokenRequest is the body of POST /token.
type IssueTokenRequest struct {
	Customer multipass.Customer `json:"customer"`
}

// IssueTokenResponse carries a freshly issued token and its login URL.
type IssueTokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (h *AdminHandler) shop(w http.ResponseWriter, r *http.Request) (string, bool) {
	shop := request.ShopFromContext(r)
	if shop == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "shop not found in session")
		return "", false
	}
	return shop, true
}

// GetSecretStatus reports whether a secret is configured. The secret itself is never returned.
func (h *AdminHandler) GetSecretStatus(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shop(w, r)
	if !ok {
		return
	}
	status, err := h.secrets.Status(r.Context(), shop)
	if err != nil {
		h.log.Error("secret_status_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to read secret status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// PutSecret stores a new secret for the session's shop.
func (h *AdminHandler) PutSecret(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shop(w, r)
	if !ok {
		return
	}

	var req SetSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.ValidateSecret(req.Secret); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Validation Error", err.Error())
		return
	}

	ctx := r.Context()
	if err := h.secrets.SetSecret(ctx, shop, req.Secret); err != nil {
		h.log.Error("secret_update_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to store secret")
		return
	}
	h.log.Info("multipass_secret_updated", zap.String("shop", logpkg.SanitizeShop(shop)))

	status, err := h.secrets.Status(ctx, shop)
	if err != nil {
		status = &models.SecretStatus{Shop: shop, Configured: true}
	}
	respondJSON(w, http.StatusOK, status)
}

// VerifyToken authenticates a token under the session shop's secret.
// Every verification failure gets the same 401.
func (h *AdminHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shop(w, r)
	if !ok {
		return
	}

	var req VerifyTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Validation Error", validation.FieldErrors(err))
		return
	}

	ctx := r.Context()
	claims, err := h.tokens.VerifyForShop(ctx, shop, req.Token)
	switch {
	case err == nil:
		h.metrics.RecordVerification(metrics.ResultValid)
		respondJSON(w, http.StatusOK, VerifyTokenResponse{Claims: claims})
	case errors.Is(err, multipass.ErrAuthenticationFailed):
		h.metrics.RecordVerification(metrics.ResultInvalid)
		h.log.Info("multipass_verification_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("reason", err.Error()),
			zap.String("token_fingerprint", logpkg.Fingerprint(req.Token)),
		)
		publishEvent(ctx, h.events, h.log,
			queue.NewLoginEvent(models.LoginEventVerificationFailed, shop, "", request.ClientIP(r), err.Error()))
		respondAuthFailed(w)
	case errors.Is(err, multipass.ErrSecretUnavailable):
		h.metrics.RecordVerification(metrics.ResultError)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "multipass secret is not configured")
	default:
		h.metrics.RecordVerification(metrics.ResultError)
		h.log.Error("multipass_verification_error",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to verify token")
	}
}

// IssueToken issues a token for a test customer, for checking the storefront setup.
func (h *AdminHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shop(w, r)
	if !ok {
		return
	}

	var req IssueTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.Validate.Struct(req.Customer); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Validation Error", validation.FieldErrors(err))
		return
	}

	ctx := r.Context()
	token, err := h.tokens.IssueForShop(ctx, shop, req.Customer.Claims(h.tokens.Now()))
	if err != nil {
		if errors.Is(err, multipass.ErrSecretUnavailable) {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "multipass secret is not configured")
			return
		}
		h.log.Error("multipass_issue_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to issue token")
		return
	}

	h.metrics.RecordTokenIssued()
	publishEvent(ctx, h.events, h.log,
		queue.NewLoginEvent(models.LoginEventTokenIssued, shop, req.Customer.Email, request.ClientIP(r), "admin_test"))

	respondJSON(w, http.StatusOK, IssueTokenResponse{Token: token, URL: multipass.LoginURL(shop, token)})
}
