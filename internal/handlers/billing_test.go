package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saasforge/saasforge/internal/models"
	"github.com/saasforge/saasforge/internal/services"
)

func TestBillingHandler_CreateCheckoutSession(t *testing.T) {
	var gotPlan string
	svc := &MockBillingService{
		CreateCheckoutSessionFunc: func(ctx context.Context, userID, plan string) (*services.CheckoutSessionResponse, error) {
			gotPlan = plan
			return &services.CheckoutSessionResponse{URL: "https://checkout.example.com/s/1"}, nil
		},
	}
	handler := NewBillingHandler(svc)

	req := withClaims(
		httptest.NewRequest(http.MethodPost, "/stripe/create-checkout-session", strings.NewReader(`{"plan":"pro"}`)),
		"user_1", "jane@example.com", models.TokenTypeAccess)
	rec := httptest.NewRecorder()

	handler.CreateCheckoutSession(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pro", gotPlan)
	assert.Contains(t, rec.Body.String(), "checkout.example.com")
}

func TestBillingHandler_CreateCheckoutSession_InvalidPlan(t *testing.T) {
	handler := NewBillingHandler(&MockBillingService{})

	req := withClaims(
		httptest.NewRequest(http.MethodPost, "/stripe/create-checkout-session", strings.NewReader(`{"plan":"enterprise"}`)),
		"user_1", "jane@example.com", models.TokenTypeAccess)
	rec := httptest.NewRecorder()

	handler.CreateCheckoutSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingHandler_CreateCheckoutSession_NoClaims(t *testing.T) {
	handler := NewBillingHandler(&MockBillingService{})

	req := httptest.NewRequest(http.MethodPost, "/stripe/create-checkout-session", strings.NewReader(`{"plan":"pro"}`))
	rec := httptest.NewRecorder()

	handler.CreateCheckoutSession(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBillingHandler_CreateBillingPortalSession(t *testing.T) {
	handler := NewBillingHandler(&MockBillingService{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/stripe/billing-portal", nil),
		"user_1", "jane@example.com", models.TokenTypeAccess)
	rec := httptest.NewRecorder()

	handler.CreateBillingPortalSession(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal.example.com")
}

func TestBillingHandler_Webhook_Success(t *testing.T) {
	var gotPayload []byte
	var gotSignature string
	svc := &MockBillingService{
		HandleWebhookFunc: func(ctx context.Context, payload []byte, signature string) error {
			gotPayload = payload
			gotSignature = signature
			return nil
		},
	}
	handler := NewBillingHandler(svc)

	body := `{"type":"invoice.paid"}`
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "received")
	assert.Equal(t, body, string(gotPayload))
	assert.Equal(t, "t=1,v1=sig", gotSignature)
}

func TestBillingHandler_Webhook_ServiceErrorReturns400(t *testing.T) {
	svc := &MockBillingService{
		HandleWebhookFunc: func(ctx context.Context, payload []byte, signature string) error {
			return fmt.Errorf("invalid webhook signature")
		},
	}
	handler := NewBillingHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid webhook signature")
}
