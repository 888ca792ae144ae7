package handlers

import (
	"net/http"

	"stillpoint_backend/internal/middleware"
	"stillpoint_backend/internal/services"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	*BaseHandler
	checkoutService services.CheckoutService
	purchaseService services.PurchaseService
	userService     services.UserService
}

func NewCheckoutHandler(
	base *BaseHandler,
	checkoutService services.CheckoutService,
	purchaseService services.PurchaseService,
	userService services.UserService,
) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler:     base,
		checkoutService: checkoutService,
		purchaseService: purchaseService,
		userService:     userService,
	}
}

func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.AuthMiddleware())
	{
		checkout.POST("", h.Begin)
		// Polled by the success page until the webhook settles the row.
		checkout.GET("/:checkout_session_id", h.Status)
	}
}

func (h *CheckoutHandler) Begin(c *gin.Context) {
	var req dto.CheckoutRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	req.Email = middleware.GetUserEmail(c)
	if user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c)); err == nil {
		req.Name = user.DisplayName
	}

	resp, err := h.checkoutService.BeginCheckout(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CheckoutHandler) Status(c *gin.Context) {
	id, ok := h.RequireParam(c, "checkout_session_id")
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetByCheckoutSessionID(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	// The row carries the purchaser's email; only its owner may poll it.
	if purchase.Email != middleware.GetUserEmail(c) {
		h.HandleServiceError(c, apperrors.ErrInsufficientPermissions)
		return
	}

	c.JSON(http.StatusOK, purchase)
}
