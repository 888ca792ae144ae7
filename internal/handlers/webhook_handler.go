package handlers

import (
	"io"
	"net/http"

	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/payment"
	"stillpoint_backend/internal/services"
	"stillpoint_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds the payload we are willing to read from the payment
// provider.
const maxWebhookBody = 1 << 20 // 1 MiB

type WebhookHandler struct {
	*BaseHandler
	provider         payment.PaymentProvider
	reconcileService services.ReconcileService
}

func NewWebhookHandler(
	base *BaseHandler,
	provider payment.PaymentProvider,
	reconcileService services.ReconcileService,
) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:      base,
		provider:         provider,
		reconcileService: reconcileService,
	}
}

func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// No auth middleware: the signature check is the authentication.
	rg.POST("/webhooks/stripe", h.HandleStripeWebhook)
}

func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to read webhook body", err)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Unable to read request body"))
		return
	}

	event, err := h.provider.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.CtxWithError(ctx, "Webhook signature rejected", err, "ip", c.ClientIP())
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(ctx, "Webhook received", "type", string(event.Type), "event_id", event.ID)

	if err := h.reconcileService.HandleEvent(ctx, event); err != nil {
		// Non-2xx makes the provider redeliver, which is safe because every
		// reconciliation path is idempotent.
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
