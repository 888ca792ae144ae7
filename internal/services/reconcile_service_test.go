package services

import (
	"context"
	"encoding/json"
	"testing"

	"stillpoint_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func checkoutCompletedEvent(t *testing.T, checkoutSessionID, sessionID, customerEmail, paymentIntentID string, amountTotal int64) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":           checkoutSessionID,
		"amount_total": amountTotal,
		"currency":     "aed",
		"metadata": map[string]string{
			"session_id":     sessionID,
			"customer_email": customerEmail,
		},
		"customer_details": map[string]interface{}{"email": customerEmail},
		"payment_intent":   paymentIntentID,
	})
	require.NoError(t, err)
	return stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func paymentIntentEvent(t *testing.T, eventType, paymentIntentID, failureMessage string) stripe.Event {
	t.Helper()
	payload := map[string]interface{}{"id": paymentIntentID}
	if failureMessage != "" {
		payload["last_payment_error"] = map[string]interface{}{"message": failureMessage}
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func newReconcileFixture() (ReconcileService, *fakePurchaseRepo, *fakePaymentProvider, *fakeEmailProvider) {
	purchaseRepo := newFakePurchaseRepo()
	provider := &fakePaymentProvider{}
	mailer := &fakeEmailProvider{}
	sessionRepo := newFakeSessionRepo(&models.Session{
		BaseModel: models.BaseModel{ID: "sess-paid"},
		Title:     "Deep Rest",
		Published: true,
		Price:     99,
		Currency:  "AED",
	})
	svc := NewReconcileService(purchaseRepo, sessionRepo, provider, mailer, "https://stillpoint.example")
	return svc, purchaseRepo, provider, mailer
}

func TestHandleEvent_CheckoutCompletedSettlesPendingRow(t *testing.T) {
	svc, purchaseRepo, _, mailer := newReconcileFixture()
	pending := purchaseRepo.add(&models.Purchase{
		SessionID:         "sess-paid",
		Email:             "buyer@example.com",
		Amount:            99,
		Currency:          "AED",
		Status:            models.PurchaseStatusPending,
		CheckoutSessionID: "cs_1",
	})

	event := checkoutCompletedEvent(t, "cs_1", "sess-paid", "buyer@example.com", "pi_1", 9900)
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	got := purchaseRepo.get(pending.ID)
	assert.Equal(t, models.PurchaseStatusCompleted, got.Status)
	assert.True(t, got.AccessGranted)
	require.NotNil(t, got.PaymentIntentID)
	assert.Equal(t, "pi_1", *got.PaymentIntentID)
	assert.Equal(t, 95.5, got.NetAmount)
	assert.NotNil(t, got.PaidAt)

	receipts := mailer.sentTo("buyer@example.com")
	require.Len(t, receipts, 1)
	assert.Contains(t, receipts[0].HTMLBody, "Deep Rest")
}

func TestHandleEvent_CheckoutCompletedBeforeCheckoutInsert(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()

	// The webhook can outrun the checkout endpoint's own insert; the row is
	// created from event metadata.
	event := checkoutCompletedEvent(t, "cs_race", "sess-paid", "buyer@example.com", "pi_race", 9900)
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	purchase, err := purchaseRepo.FindByCheckoutSessionID("cs_race")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, purchase.Status)
	assert.Equal(t, "sess-paid", purchase.SessionID)
	assert.Equal(t, "buyer@example.com", purchase.Email)
	assert.Equal(t, 99.0, purchase.Amount)
	assert.Equal(t, "AED", purchase.Currency)
}

func TestHandleEvent_DuplicateCompletionCollapsesToOneRow(t *testing.T) {
	svc, purchaseRepo, _, mailer := newReconcileFixture()

	event := checkoutCompletedEvent(t, "cs_dup", "sess-paid", "buyer@example.com", "pi_dup", 9900)
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, 1, purchaseRepo.count())
	assert.Len(t, mailer.sentTo("buyer@example.com"), 1, "duplicate deliveries must not resend the receipt")
}

func TestHandleEvent_PaymentSucceededCompletesByIntent(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()
	intentID := "pi_2"
	pending := purchaseRepo.add(&models.Purchase{
		SessionID:         "sess-paid",
		Email:             "buyer@example.com",
		Amount:            99,
		Currency:          "AED",
		Status:            models.PurchaseStatusPending,
		CheckoutSessionID: "cs_2",
		PaymentIntentID:   &intentID,
	})

	event := paymentIntentEvent(t, "payment_intent.succeeded", "pi_2", "")
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	got := purchaseRepo.get(pending.ID)
	assert.Equal(t, models.PurchaseStatusCompleted, got.Status)
	assert.True(t, got.AccessGranted)
}

func TestHandleEvent_PaymentSucceededUnknownIntentIsAcked(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()

	event := paymentIntentEvent(t, "payment_intent.succeeded", "pi_unknown", "")
	assert.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Zero(t, purchaseRepo.count())
}

func TestHandleEvent_PaymentFailedRecordsReason(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()
	intentID := "pi_3"
	pending := purchaseRepo.add(&models.Purchase{
		SessionID:         "sess-paid",
		Email:             "buyer@example.com",
		Status:            models.PurchaseStatusPending,
		CheckoutSessionID: "cs_3",
		PaymentIntentID:   &intentID,
	})

	event := paymentIntentEvent(t, "payment_intent.payment_failed", "pi_3", "Your card was declined.")
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	got := purchaseRepo.get(pending.ID)
	assert.Equal(t, models.PurchaseStatusFailed, got.Status)
	assert.False(t, got.AccessGranted)
	assert.Equal(t, "Your card was declined.", got.FailureReason)
}

func TestHandleEvent_PaymentFailedUnknownIntentCreatesFailedRow(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()

	// No ledger row knows this intent; the metadata stamped onto the intent
	// at checkout creation still attributes the failure.
	raw, err := json.Marshal(map[string]interface{}{
		"id":       "pi_orphan",
		"amount":   9900,
		"currency": "aed",
		"metadata": map[string]string{
			"session_id":     "sess-paid",
			"customer_email": "buyer@example.com",
		},
		"last_payment_error": map[string]interface{}{"message": "Your card was declined."},
	})
	require.NoError(t, err)
	event := stripe.Event{Type: "payment_intent.payment_failed", Data: &stripe.EventData{Raw: raw}}

	require.NoError(t, svc.HandleEvent(context.Background(), event))

	require.Equal(t, 1, purchaseRepo.count())
	got, err := purchaseRepo.FindByPaymentIntentID("pi_orphan")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusFailed, got.Status)
	assert.Equal(t, "sess-paid", got.SessionID)
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.Equal(t, 99.0, got.Amount)
	assert.Equal(t, "AED", got.Currency)
	assert.False(t, got.AccessGranted)
	assert.Equal(t, "Your card was declined.", got.FailureReason)

	// Redelivery collapses onto the same row.
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, 1, purchaseRepo.count())
}

func TestHandleEvent_PaymentFailedUnattributableIntentIsAcked(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()

	// An intent with no checkout metadata cannot be tied to a session.
	event := paymentIntentEvent(t, "payment_intent.payment_failed", "pi_foreign", "declined")
	assert.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Zero(t, purchaseRepo.count())
}

func TestHandleEvent_LateFailureNeverRevokesCompletedPurchase(t *testing.T) {
	svc, purchaseRepo, _, _ := newReconcileFixture()
	intentID := "pi_4"
	completed := purchaseRepo.add(&models.Purchase{
		SessionID:         "sess-paid",
		Email:             "buyer@example.com",
		Status:            models.PurchaseStatusCompleted,
		AccessGranted:     true,
		CheckoutSessionID: "cs_4",
		PaymentIntentID:   &intentID,
	})

	event := paymentIntentEvent(t, "payment_intent.payment_failed", "pi_4", "stale failure")
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	got := purchaseRepo.get(completed.ID)
	assert.Equal(t, models.PurchaseStatusCompleted, got.Status)
	assert.True(t, got.AccessGranted)
	assert.Empty(t, got.FailureReason)
}

func TestHandleEvent_UnhandledTypeIsAcked(t *testing.T) {
	svc, _, _, _ := newReconcileFixture()

	event := stripe.Event{Type: "invoice.paid", Data: &stripe.EventData{Raw: []byte(`{}`)}}
	assert.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEvent_DetailsFailureFallsBackToGrossAmount(t *testing.T) {
	svc, purchaseRepo, provider, _ := newReconcileFixture()
	provider.detailsErr = assert.AnError

	pending := purchaseRepo.add(&models.Purchase{
		SessionID:         "sess-paid",
		Email:             "buyer@example.com",
		Amount:            99,
		Currency:          "AED",
		Status:            models.PurchaseStatusPending,
		CheckoutSessionID: "cs_5",
	})

	event := checkoutCompletedEvent(t, "cs_5", "sess-paid", "buyer@example.com", "pi_5", 9900)
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	got := purchaseRepo.get(pending.ID)
	assert.Equal(t, models.PurchaseStatusCompleted, got.Status)
	assert.Equal(t, 99.0, got.NetAmount)
}
