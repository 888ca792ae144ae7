package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"stillpoint_backend/internal/logger"
	"stillpoint_backend/pkg/apperrors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

// checkoutSessionTTL bounds how long a hosted checkout page stays payable.
// Abandoned sessions past this window are expired by the provider and the
// matching pending ledger rows are failed by the cleanup worker.
const checkoutSessionTTL = 30 * time.Minute

type CheckoutInput struct {
	SessionID string
	Title     string
	Email     string
	Name      string
	Amount    float64
	Currency  string
}

type CheckoutResult struct {
	CheckoutSessionID string
	URL               string
}

// PaymentDetails is the settled view of a payment intent, fetched after the
// provider reports success. NetAmount is the gross amount minus the processor
// fee, taken from the balance transaction when the provider exposes it.
type PaymentDetails struct {
	PaymentIntentID string
	Amount          float64
	NetAmount       float64
	Currency        string
	PaidAt          time.Time
}

// PaymentProvider abstracts the payment processor so services and tests never
// touch the Stripe client directly.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
	GetPaymentDetails(ctx context.Context, paymentIntentID string) (*PaymentDetails, error)
}

type StripeProvider struct {
	webhookSecret string
	siteURL       string
}

func NewStripeProvider(secretKey, webhookSecret, siteURL string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{
		webhookSecret: webhookSecret,
		siteURL:       strings.TrimRight(siteURL, "/"),
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(input.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(input.Currency)),
					UnitAmount: stripe.Int64(toMinorUnits(input.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(input.Title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.siteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.siteURL + "/checkout/cancelled"),
		ExpiresAt:  stripe.Int64(time.Now().Add(checkoutSessionTTL).Unix()),
		// Payment-intent events only carry the intent, not the checkout
		// session. Stamping the same metadata on the intent lets the
		// reconciler attribute those events on their own.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"session_id":     input.SessionID,
				"customer_email": input.Email,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("session_id", input.SessionID)
	params.AddMetadata("session_title", input.Title)
	params.AddMetadata("customer_email", input.Email)
	if input.Name != "" {
		params.AddMetadata("customer_name", input.Name)
	}

	s, err := session.New(params)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to create checkout session", err,
			"session_id", input.SessionID)
		return nil, classifyStripeError(err)
	}

	return &CheckoutResult{
		CheckoutSessionID: s.ID,
		URL:               s.URL,
	}, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return stripe.Event{}, apperrors.ErrWebhookSignature.WithError(err)
	}
	return event, nil
}

func (p *StripeProvider) GetPaymentDetails(ctx context.Context, paymentIntentID string) (*PaymentDetails, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge.balance_transaction")

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	details := &PaymentDetails{
		PaymentIntentID: pi.ID,
		Amount:          fromMinorUnits(pi.Amount),
		NetAmount:       fromMinorUnits(pi.Amount),
		Currency:        strings.ToUpper(string(pi.Currency)),
		PaidAt:          time.Unix(pi.Created, 0),
	}

	// The balance transaction carries the processor fee. It may not be
	// expanded for every account type, so fall back to the gross amount.
	if pi.LatestCharge != nil {
		if pi.LatestCharge.Created > 0 {
			details.PaidAt = time.Unix(pi.LatestCharge.Created, 0)
		}
		if bt := pi.LatestCharge.BalanceTransaction; bt != nil && bt.Net > 0 {
			details.NetAmount = fromMinorUnits(bt.Net)
		}
	}

	return details, nil
}

// classifyStripeError maps provider failures onto the application error
// vocabulary so handlers can pick the right status code.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return apperrors.ErrPaymentProvider.WithError(err)
	}

	if stripeErr.HTTPStatusCode == http.StatusTooManyRequests {
		return apperrors.ErrPaymentRateLimited.WithError(err)
	}

	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		declined := apperrors.ErrPaymentDeclined.WithError(err)
		if stripeErr.DeclineCode != "" {
			return declined.WithDetails(map[string]interface{}{
				"decline_code": string(stripeErr.DeclineCode),
			})
		}
		return declined
	case stripe.ErrorTypeInvalidRequest:
		return apperrors.ErrPaymentInvalidRequest.WithError(err)
	default:
		return apperrors.ErrPaymentProvider.WithError(
			fmt.Errorf("stripe %s error: %w", stripeErr.Type, err))
	}
}

// toMinorUnits converts a decimal amount to the processor's integer minor
// units (fils for AED, cents for USD).
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
