package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stillpoint_backend/internal/email"
	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/payment"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/pkg/apperrors"

	"github.com/stripe/stripe-go/v79"
)

// ReconcileService settles ledger rows from provider webhook events. Webhook
// delivery is at-least-once and unordered, so every handler here is
// idempotent: duplicate events collapse onto the unique checkout-session row
// and a completed purchase never regresses.
type ReconcileService interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type ReconcileServiceImpl struct {
	purchaseRepo  repositories.PurchaseRepository
	sessionRepo   repositories.SessionRepository
	provider      payment.PaymentProvider
	emailProvider email.Provider
	siteURL       string
}

func NewReconcileService(
	purchaseRepo repositories.PurchaseRepository,
	sessionRepo repositories.SessionRepository,
	provider payment.PaymentProvider,
	emailProvider email.Provider,
	siteURL string,
) ReconcileService {
	return &ReconcileServiceImpl{
		purchaseRepo:  purchaseRepo,
		sessionRepo:   sessionRepo,
		provider:      provider,
		emailProvider: emailProvider,
		siteURL:       siteURL,
	}
}

func (s *ReconcileServiceImpl) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "payment_intent.succeeded":
		return s.handlePaymentSucceeded(ctx, event)
	case "payment_intent.payment_failed":
		return s.handlePaymentFailed(ctx, event)
	default:
		// Unhandled event types are acknowledged so the provider stops
		// retrying them.
		logger.CtxDebug(ctx, "Ignoring webhook event", "type", string(event.Type))
		return nil
	}
}

func (s *ReconcileServiceImpl) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return apperrors.NewBadRequestError("malformed checkout.session.completed payload").WithError(err)
	}

	sessionID := cs.Metadata["session_id"]
	customerEmail := cs.Metadata["customer_email"]
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		customerEmail = cs.CustomerDetails.Email
	}

	purchase, err := s.purchaseRepo.FindByCheckoutSessionID(cs.ID)
	if err != nil {
		if !apperrors.Is(err, repositories.ErrPurchaseNotFound) {
			return apperrors.InternalError(err)
		}

		// The webhook can outrun the checkout endpoint's own insert. Create
		// the row from event data; if the insert raced and lost, re-read.
		if sessionID == "" || customerEmail == "" {
			logger.CtxWarn(ctx, "Checkout completed event without usable metadata",
				"checkout_session_id", cs.ID)
			return nil
		}

		purchase = &models.Purchase{
			SessionID:         sessionID,
			Email:             customerEmail,
			Amount:            float64(cs.AmountTotal) / 100,
			Currency:          currencyCode(string(cs.Currency)),
			Status:            models.PurchaseStatusPending,
			CheckoutSessionID: cs.ID,
		}
		if err := s.purchaseRepo.CreateIfAbsent(purchase); err != nil {
			if !apperrors.Is(err, repositories.ErrPurchaseExists) {
				return apperrors.InternalError(err)
			}
			purchase, err = s.purchaseRepo.FindByCheckoutSessionID(cs.ID)
			if err != nil {
				return apperrors.InternalError(err)
			}
		}
	}

	if purchase.Status == models.PurchaseStatusCompleted {
		logger.CtxDebug(ctx, "Duplicate checkout completion ignored",
			"checkout_session_id", cs.ID)
		return nil
	}

	if cs.PaymentIntent == nil || cs.PaymentIntent.ID == "" {
		logger.CtxWarn(ctx, "Checkout completed without payment intent",
			"checkout_session_id", cs.ID)
		return nil
	}

	return s.completePurchase(ctx, purchase, cs.PaymentIntent.ID)
}

func (s *ReconcileServiceImpl) handlePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return apperrors.NewBadRequestError("malformed payment_intent.succeeded payload").WithError(err)
	}

	purchase, err := s.purchaseRepo.FindByPaymentIntentID(pi.ID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPurchaseNotFound) {
			// The checkout.session.completed event carries the linkage
			// between intent and ledger row; until it lands there is nothing
			// to settle here.
			logger.CtxDebug(ctx, "Payment succeeded for unknown intent",
				"payment_intent_id", pi.ID)
			return nil
		}
		return apperrors.InternalError(err)
	}

	if purchase.Status == models.PurchaseStatusCompleted {
		return nil
	}

	return s.completePurchase(ctx, purchase, pi.ID)
}

func (s *ReconcileServiceImpl) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return apperrors.NewBadRequestError("malformed payment_intent.payment_failed payload").WithError(err)
	}

	reason := "payment_failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}

	purchase, err := s.purchaseRepo.FindByPaymentIntentID(pi.ID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPurchaseNotFound) {
			return s.recordUnmatchedFailure(ctx, &pi, reason)
		}
		return apperrors.InternalError(err)
	}

	if err := s.purchaseRepo.MarkFailed(purchase.ID, reason); err != nil {
		if apperrors.Is(err, repositories.ErrPurchaseNotFound) {
			// Already completed; a late failure event never revokes access.
			logger.CtxWarn(ctx, "Failure event for completed purchase ignored",
				"purchase_id", purchase.ID,
				"payment_intent_id", pi.ID)
			return nil
		}
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Purchase marked failed",
		"purchase_id", purchase.ID,
		"reason", reason)
	return nil
}

// recordUnmatchedFailure writes a failed row for an intent no ledger row
// knows yet. The failure can outrun the checkout endpoint's own insert, or
// land after the cleanup worker already expired the pending row; the spec
// for failures is write-or-update, so the event still leaves a trace. The
// intent id doubles as the ledger key because intent events never carry the
// checkout session id.
func (s *ReconcileServiceImpl) recordUnmatchedFailure(ctx context.Context, pi *stripe.PaymentIntent, reason string) error {
	sessionID := pi.Metadata["session_id"]
	customerEmail := pi.Metadata["customer_email"]
	if customerEmail == "" && pi.ReceiptEmail != "" {
		customerEmail = pi.ReceiptEmail
	}

	// Intents our checkout created always carry the metadata; anything else
	// cannot be attributed to a session and is acknowledged without a write.
	if sessionID == "" || customerEmail == "" {
		logger.CtxWarn(ctx, "Payment failed for unattributable intent",
			"payment_intent_id", pi.ID)
		return nil
	}

	intentID := pi.ID
	purchase := &models.Purchase{
		SessionID:         sessionID,
		Email:             customerEmail,
		Amount:            float64(pi.Amount) / 100,
		Currency:          currencyCode(string(pi.Currency)),
		Status:            models.PurchaseStatusFailed,
		FailureReason:     reason,
		CheckoutSessionID: intentID,
		PaymentIntentID:   &intentID,
	}
	if err := s.purchaseRepo.CreateIfAbsent(purchase); err != nil {
		if apperrors.Is(err, repositories.ErrPurchaseExists) {
			return nil
		}
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Recorded failure for unmatched payment intent",
		"payment_intent_id", pi.ID,
		"session_id", sessionID,
		"reason", reason)
	return nil
}

// completePurchase fetches the settled amounts and flips the row to
// completed, then sends the receipt.
func (s *ReconcileServiceImpl) completePurchase(ctx context.Context, purchase *models.Purchase, paymentIntentID string) error {
	details, err := s.provider.GetPaymentDetails(ctx, paymentIntentID)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to fetch payment details, using gross amount", err,
			"payment_intent_id", paymentIntentID)
		details = &payment.PaymentDetails{
			PaymentIntentID: paymentIntentID,
			NetAmount:       purchase.Amount,
			PaidAt:          time.Now(),
		}
	}

	if err := s.purchaseRepo.MarkCompleted(purchase.ID, paymentIntentID, details.NetAmount, details.PaidAt); err != nil {
		if apperrors.Is(err, repositories.ErrPurchaseNotFound) {
			// Lost the race against another delivery of the same event.
			return nil
		}
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Purchase completed",
		"purchase_id", purchase.ID,
		"session_id", purchase.SessionID,
		"payment_intent_id", paymentIntentID,
		"net_amount", details.NetAmount)

	s.sendReceipt(ctx, purchase)
	return nil
}

func (s *ReconcileServiceImpl) sendReceipt(ctx context.Context, purchase *models.Purchase) {
	title := purchase.SessionID
	if session, err := s.sessionRepo.FindByID(purchase.SessionID); err == nil {
		title = session.Title
	}

	body, err := email.Render("purchase_receipt", email.TemplateData{
		"SessionTitle": title,
		"Amount":       fmt.Sprintf("%.2f", purchase.Amount),
		"Currency":     purchase.Currency,
		"DashboardURL": s.siteURL + "/dashboard",
	})
	if err != nil {
		logger.CtxWithError(ctx, "Failed to render receipt email", err)
		return
	}

	if err := s.emailProvider.Send(&email.Message{
		To:       purchase.Email,
		Subject:  "Your purchase receipt",
		HTMLBody: body,
	}); err != nil {
		logger.CtxWithError(ctx, "Failed to send receipt email", err, "to", purchase.Email)
	}
}

// currencyCode normalizes the provider's lowercase ISO code.
func currencyCode(c string) string {
	if c == "" {
		return "AED"
	}
	return strings.ToUpper(c)
}
