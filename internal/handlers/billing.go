package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/saasforge/saasforge/internal/auth"
	"github.com/saasforge/saasforge/internal/models"
	"github.com/saasforge/saasforge/internal/services"
	pkghttp "github.com/saasforge/saasforge/pkg/http"
)

// Webhook payloads are small; this bound protects against oversized bodies
const maxWebhookBodyBytes = 64 * 1024

// BillingServiceInterface defines the interface for billing business logic
type BillingServiceInterface interface {
	CreateCheckoutSession(ctx context.Context, userID, plan string) (*services.CheckoutSessionResponse, error)
	CreateBillingPortalSession(ctx context.Context, userID string) (*services.CheckoutSessionResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// BillingHandler handles billing-related HTTP requests
type BillingHandler struct {
	service BillingServiceInterface
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(service BillingServiceInterface) *BillingHandler {
	return &BillingHandler{service: service}
}

// CreateCheckoutSessionRequest represents the request body for checkout
type CreateCheckoutSessionRequest struct {
	Plan string `json:"plan" validate:"required,oneof=pro business"`
}

// CreateCheckoutSession starts a hosted checkout for a paid plan
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req CreateCheckoutSessionRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.CreateCheckoutSession(r.Context(), claims.UserID, req.Plan)
	if err != nil {
		writeBillingError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// CreateBillingPortalSession opens the customer portal
func (h *BillingHandler) CreateBillingPortalSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	resp, err := h.service.CreateBillingPortalSession(r.Context(), claims.UserID)
	if err != nil {
		writeBillingError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Webhook receives provider events. Signature verification happens in the
// service against the raw body; failures return 400 so the provider retries.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid plan")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
