package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v79"

	"github.com/saasforge/saasforge/internal/models"
	pkglogger "github.com/saasforge/saasforge/pkg/logger"
)

const (
	testProPriceID      = "price_pro_123"
	testBusinessPriceID = "price_business_456"
)

func newTestBillingService(repo *MockUserRepository) *BillingService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBillingService(repo, "sk_test_key", "whsec_test",
		testProPriceID, testBusinessPriceID, "http://localhost:3000",
		logger, pkglogger.NewAuditLogger(logger))
}

func newStripeEvent(t *testing.T, eventType string, payload interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func invoicePayload(customerID, priceID string) map[string]interface{} {
	return map[string]interface{}{
		"customer": customerID,
		"lines": map[string]interface{}{
			"data": []map[string]interface{}{
				{"price": map[string]interface{}{"id": priceID}},
			},
		},
	}
}

func TestBillingService_ProcessEvent_SubscriptionDeleted(t *testing.T) {
	var gotCustomer, gotPlan string
	repo := &MockUserRepository{
		UpdatePlanFunc: func(ctx context.Context, stripeCustomerID, plan string) error {
			gotCustomer, gotPlan = stripeCustomerID, plan
			return nil
		},
	}
	svc := newTestBillingService(repo)

	event := newStripeEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"customer": "cus_1",
	})

	err := svc.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", gotCustomer)
	assert.Equal(t, models.PlanFree, gotPlan)
}

func TestBillingService_ProcessEvent_InvoicePaid(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		priceID   string
		wantPlan  string
	}{
		{"invoice.paid pro", "invoice.paid", testProPriceID, models.PlanPro},
		{"invoice.paid business", "invoice.paid", testBusinessPriceID, models.PlanBusiness},
		{"invoice.payment_succeeded pro", "invoice.payment_succeeded", testProPriceID, models.PlanPro},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPlan string
			repo := &MockUserRepository{
				UpdatePlanFunc: func(ctx context.Context, stripeCustomerID, plan string) error {
					gotPlan = plan
					return nil
				},
			}
			svc := newTestBillingService(repo)

			event := newStripeEvent(t, tt.eventType, invoicePayload("cus_1", tt.priceID))

			err := svc.ProcessEvent(context.Background(), event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, gotPlan)
		})
	}
}

func TestBillingService_ProcessEvent_UnknownPriceID(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	event := newStripeEvent(t, "invoice.paid", invoicePayload("cus_1", "price_unknown"))

	err := svc.ProcessEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown price id")
}

func TestBillingService_ProcessEvent_InvoiceWithoutLines(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	event := newStripeEvent(t, "invoice.paid", map[string]interface{}{
		"customer": "cus_1",
	})

	err := svc.ProcessEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no line items")
}

func TestBillingService_ProcessEvent_CheckoutCompletedIsAcknowledged(t *testing.T) {
	updatePlanCalled := false
	repo := &MockUserRepository{
		UpdatePlanFunc: func(ctx context.Context, stripeCustomerID, plan string) error {
			updatePlanCalled = true
			return nil
		},
	}
	svc := newTestBillingService(repo)

	event := newStripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id": "cs_test",
	})

	err := svc.ProcessEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.False(t, updatePlanCalled)
}

func TestBillingService_ProcessEvent_UnhandledType(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	event := newStripeEvent(t, "customer.created", map[string]interface{}{})

	err := svc.ProcessEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhandled event type")
}

func TestBillingService_ProcessEvent_UnknownCustomer(t *testing.T) {
	repo := &MockUserRepository{
		UpdatePlanFunc: func(ctx context.Context, stripeCustomerID, plan string) error {
			return models.ErrNotFound
		},
	}
	svc := newTestBillingService(repo)

	event := newStripeEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"customer": "cus_unknown",
	})

	err := svc.ProcessEvent(context.Background(), event)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBillingService_HandleWebhook_BadSignature(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	payload := []byte(`{"type":"invoice.paid"}`)
	err := svc.HandleWebhook(context.Background(), payload, "t=1,v1=bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webhook signature")
}

func TestBillingService_CreateCheckoutSession_InvalidPlan(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	_, err := svc.CreateCheckoutSession(context.Background(), "user_1", "enterprise")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestBillingService_CreateCheckoutSession_UserNotFound(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	_, err := svc.CreateCheckoutSession(context.Background(), "missing", CheckoutPlanPro)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBillingService_PlanForPriceID(t *testing.T) {
	svc := newTestBillingService(&MockUserRepository{})

	plan, err := svc.planForPriceID(testProPriceID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, plan)

	plan, err = svc.planForPriceID(testBusinessPriceID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanBusiness, plan)

	_, err = svc.planForPriceID("price_other")
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("unknown price id: %s", "price_other"), err.Error())
}
