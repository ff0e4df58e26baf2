package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	logpkg "github.com/homula/shop-multipass/internal/logger"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/request"
	"github.com/homula/shop-multipass/internal/validation"
	"go.uber.org/zap"
)

// InstallFlow is the Shopify OAuth client used during install.
type InstallFlow interface {
	AuthCodeURL(shop, state string) string
	Exchange(ctx context.Context, shop, code string) (accessToken, scope string, err error)
	ValidateCallback(query url.Values) error
}

// StateStore keeps OAuth state nonces.
type StateStore interface {
	Create(ctx context.Context, shop string) (string, error)
	Consume(ctx context.Context, nonce string) (string, error)
}

// SessionStore persists offline access tokens.
type SessionStore interface {
	Save(ctx context.Context, s *models.ShopSession) error
}

// InstallHandler runs the app install flow.
type InstallHandler struct {
	flow     InstallFlow
	states   StateStore
	sessions SessionStore
	apiKey   string
	log      *zap.Logger
}

// NewInstallHandler creates an install handler.
func NewInstallHandler(flow InstallFlow, states StateStore, sessions SessionStore, apiKey string, log *zap.Logger) *InstallHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InstallHandler{flow: flow, states: states, sessions: sessions, apiKey: apiKey, log: log}
}

// RegisterRoutes registers /auth/install and /auth/callback.
func (h *InstallHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/install", h.Install).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", h.Callback).Methods(http.MethodGet)
}

// Install redirects the merchant to the shop's consent screen.
func (h *InstallHandler) Install(w http.ResponseWriter, r *http.Request) {
	shop, err := validation.NormalizeShopDomain(r.URL.Query().Get("shop"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "shop must be a <name>.myshopify.com domain")
		return
	}

	state, err := h.states.Create(r.Context(), shop)
	if err != nil {
		h.log.Error("oauth_state_create_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "install is temporarily unavailable")
		return
	}

	http.Redirect(w, r, h.flow.AuthCodeURL(shop, state), http.StatusFound)
}

// Callback validates Shopify's redirect, exchanges the code and stores the offline token.
func (h *InstallHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := h.flow.ValidateCallback(query); err != nil {
		h.log.Warn("oauth_callback_rejected",
			zap.String("reason", "hmac"),
			zap.String("ip", request.ClientIP(r)),
		)
		respondAuthFailed(w)
		return
	}

	shop, err := validation.NormalizeShopDomain(query.Get("shop"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "shop must be a <name>.myshopify.com domain")
		return
	}

	ctx := r.Context()
	stateShop, err := h.states.Consume(ctx, query.Get("state"))
	if err != nil || stateShop != shop {
		h.log.Warn("oauth_callback_rejected",
			zap.String("reason", "state"),
			zap.String("shop", logpkg.SanitizeShop(shop)),
		)
		respondAuthFailed(w)
		return
	}

	code := query.Get("code")
	if code == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "code is required")
		return
	}

	accessToken, scope, err := h.flow.Exchange(ctx, shop, code)
	if err != nil {
		h.log.Error("oauth_exchange_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "failed to complete install")
		return
	}

	now := time.Now().UTC()
	if err := h.sessions.Save(ctx, &models.ShopSession{
		Shop:        shop,
		AccessToken: accessToken,
		Scope:       scope,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		h.log.Error("shop_session_save_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to complete install")
		return
	}

	h.log.Info("app_installed", zap.String("shop", logpkg.SanitizeShop(shop)), zap.String("scope", scope))
	http.Redirect(w, r, "https://"+shop+"/admin/apps/"+h.apiKey, http.StatusFound)
}
