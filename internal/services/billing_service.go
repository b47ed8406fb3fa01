package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saasforge/saasforge/internal/models"
	pkglogger "github.com/saasforge/saasforge/pkg/logger"
	stripe "github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Checkout plan identifiers accepted by CreateCheckoutSession
const (
	CheckoutPlanPro      = "pro"
	CheckoutPlanBusiness = "business"
)

// BillingService handles subscription checkout, the customer portal and
// webhook-driven plan transitions.
type BillingService struct {
	repo            UserRepository
	webhookSecret   string
	proPriceID      string
	businessPriceID string
	appURL          string
	logger          *slog.Logger
	auditLogger     *pkglogger.AuditLogger
}

// NewBillingService creates a new BillingService and configures the Stripe
// client key globally.
func NewBillingService(
	repo UserRepository,
	secretKey, webhookSecret, proPriceID, businessPriceID, appURL string,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *BillingService {
	stripe.Key = secretKey

	return &BillingService{
		repo:            repo,
		webhookSecret:   webhookSecret,
		proPriceID:      proPriceID,
		businessPriceID: businessPriceID,
		appURL:          appURL,
		logger:          logger,
		auditLogger:     auditLogger,
	}
}

// CheckoutSessionResponse carries the hosted checkout URL
type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

// CreateCheckoutSession starts a hosted subscription checkout for the given
// plan. The Stripe customer is created lazily on first use.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID, plan string) (*CheckoutSessionResponse, error) {
	var priceID string
	switch plan {
	case CheckoutPlanPro:
		priceID = s.proPriceID
	case CheckoutPlanBusiness:
		priceID = s.businessPriceID
	default:
		return nil, models.ErrBadRequest
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.appURL + "/dashboard?checkout=success"),
		CancelURL:  stripe.String(s.appURL + "/dashboard?checkout=cancelled"),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error("failed to create checkout session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("checkout_session_created", user.ID, map[string]string{
		"plan": plan,
	})

	return &CheckoutSessionResponse{URL: sess.URL}, nil
}

// CreateBillingPortalSession opens the Stripe customer portal for the user
func (s *BillingService) CreateBillingPortalSession(ctx context.Context, userID string) (*CheckoutSessionResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.appURL + "/dashboard"),
	}

	sess, err := portalsession.New(params)
	if err != nil {
		s.logger.Error("failed to create billing portal session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &CheckoutSessionResponse{URL: sess.URL}, nil
}

// ensureCustomer returns the user's Stripe customer id, creating and
// persisting the customer record on first use.
func (s *BillingService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.FullName()),
	}

	c, err := customer.New(params)
	if err != nil {
		s.logger.Error("failed to create stripe customer",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.repo.SetStripeCustomerID(ctx, user.ID, c.ID); err != nil {
		s.logger.Error("failed to persist stripe customer id",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("stripe customer created",
		slog.String("user_id", user.ID),
		slog.String("customer_id", c.ID))

	return c.ID, nil
}

// HandleWebhook verifies the webhook signature and processes the event
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.Warn("webhook signature verification failed", slog.Any("error", err))
		return fmt.Errorf("invalid webhook signature: %w", err)
	}

	return s.ProcessEvent(ctx, event)
}

// ProcessEvent applies the plan transition an event implies. The provider
// retries on non-2xx responses, so persistent failures surface as errors.
func (s *BillingService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription event: %w", err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return fmt.Errorf("subscription event missing customer")
		}
		return s.applyPlan(ctx, sub.Customer.ID, models.PlanFree)

	case "invoice.paid", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to parse invoice event: %w", err)
		}
		if inv.Customer == nil || inv.Customer.ID == "" {
			return fmt.Errorf("invoice event missing customer")
		}

		priceID, err := invoicePriceID(&inv)
		if err != nil {
			return err
		}

		plan, err := s.planForPriceID(priceID)
		if err != nil {
			return err
		}
		return s.applyPlan(ctx, inv.Customer.ID, plan)

	case "checkout.session.completed":
		// Acknowledged without action; the plan moves on invoice payment
		s.logger.Info("checkout session completed", slog.String("event_id", event.ID))
		return nil

	default:
		return fmt.Errorf("unhandled event type: %s", event.Type)
	}
}

// applyPlan moves the user identified by a Stripe customer id onto a plan
func (s *BillingService) applyPlan(ctx context.Context, customerID, plan string) error {
	if err := s.repo.UpdatePlan(ctx, customerID, plan); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("webhook for unknown customer", slog.String("customer_id", customerID))
			return models.ErrNotFound
		}
		s.logger.Error("failed to update plan",
			slog.String("customer_id", customerID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	user, err := s.repo.GetByStripeCustomerID(ctx, customerID)
	if err == nil {
		s.auditLogger.LogAccountAction("plan_changed", user.ID, map[string]string{
			"plan": plan,
		})
	}

	s.logger.Info("plan updated",
		slog.String("customer_id", customerID),
		slog.String("plan", plan))
	return nil
}

// invoicePriceID extracts the subscription price from an invoice's first
// line item.
func invoicePriceID(inv *stripe.Invoice) (string, error) {
	if inv.Lines == nil || len(inv.Lines.Data) == 0 {
		return "", fmt.Errorf("invoice has no line items")
	}
	line := inv.Lines.Data[0]
	if line.Price == nil || line.Price.ID == "" {
		return "", fmt.Errorf("invoice line has no price")
	}
	return line.Price.ID, nil
}

// planForPriceID maps a configured Stripe price id onto a plan
func (s *BillingService) planForPriceID(priceID string) (string, error) {
	switch priceID {
	case s.proPriceID:
		return models.PlanPro, nil
	case s.businessPriceID:
		return models.PlanBusiness, nil
	default:
		return "", fmt.Errorf("unknown price id: %s", priceID)
	}
}
