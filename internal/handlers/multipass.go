package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

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

// TokenIssuer issues multipass tokens for a shop.
type TokenIssuer interface {
	IssueForShop(ctx context.Context, shop string, claims multipass.Claims) (string, error)
	Now() time.Time
}

// LoginHandler serves the storefront login form endpoints.
type LoginHandler struct {
	issuer  TokenIssuer
	events  queue.EventPublisher
	metrics metrics.MetricsCollector
	log     *zap.Logger
}

// NewLoginHandler creates a login handler. events and collector may be nil.
func NewLoginHandler(issuer TokenIssuer, events queue.EventPublisher, collector metrics.MetricsCollector, log *zap.Logger) *LoginHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginHandler{issuer: issuer, events: events, metrics: collector, log: log}
}

// RegisterRoutes registers the login routes. r should carry the login rate limiter.
func (h *LoginHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/multipass", h.GetLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/multipass", h.PostLogin).Methods(http.MethodPost)
}

// LoginFormResponse carries the hidden form fields for the login page.
type LoginFormResponse struct {
	Shop   string `json:"shop"`
	ShopID string `json:"shop_id,omitempty"`
}

// GetLoginForm echoes the shop the login form posts back for.
func (h *LoginHandler) GetLoginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shop, err := validation.NormalizeShopDomain(q.Get("shop"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "shop must be a <name>.myshopify.com domain")
		return
	}
	respondJSON(w, http.StatusOK, LoginFormResponse{
		Shop:   shop,
		ShopID: validation.SanitizeText(q.Get("shop_id")),
	})
}

// customerFromForm reads the customer fields the login form may post.
func customerFromForm(r *http.Request) multipass.Customer {
	field := func(name string) string { return strings.TrimSpace(r.PostForm.Get(name)) }
	return multipass.Customer{
		Email:      field("email"),
		Identifier: field("identifier"),
		FirstName:  field("first_name"),
		LastName:   field("last_name"),
		TagString:  field("tag_string"),
		RemoteIP:   field("remote_ip"),
		ReturnTo:   field("return_to"),
	}
}

// PostLogin issues a token for the submitted customer and redirects to the shop's multipass URL.
func (h *LoginHandler) PostLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid form body")
		return
	}

	shop, err := validation.NormalizeShopDomain(r.PostForm.Get("shop"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "shop must be a <name>.myshopify.com domain")
		return
	}

	customer := customerFromForm(r)
	if err := validation.Validate.Struct(customer); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Validation Error", validation.FieldErrors(err))
		return
	}

	ctx := r.Context()
	token, err := h.issuer.IssueForShop(ctx, shop, customer.Claims(h.issuer.Now()))
	if err != nil {
		if errors.Is(err, multipass.ErrSecretUnavailable) {
			h.log.Warn("multipass_secret_unavailable",
				zap.String("shop", logpkg.SanitizeShop(shop)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "multipass login is not available for this shop")
			return
		}
		h.log.Error("multipass_issue_failed",
			zap.String("shop", logpkg.SanitizeShop(shop)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to start login")
		return
	}

	h.metrics.RecordTokenIssued()
	publishEvent(ctx, h.events, h.log,
		queue.NewLoginEvent(models.LoginEventTokenIssued, shop, customer.Email, request.ClientIP(r), ""))

	http.Redirect(w, r, multipass.LoginURL(shop, token), http.StatusSeeOther)
}

// publishEvent records a login event without failing the request.
func publishEvent(ctx context.Context, events queue.EventPublisher, log *zap.Logger, event *models.LoginEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		log.Warn("login_event_publish_failed",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
