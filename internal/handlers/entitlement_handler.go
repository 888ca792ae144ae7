package handlers

import (
	"net/http"

	"stillpoint_backend/internal/middleware"
	"stillpoint_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type EntitlementHandler struct {
	*BaseHandler
	entitlementService services.EntitlementService
}

func NewEntitlementHandler(base *BaseHandler, entitlementService services.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{
		BaseHandler:        base,
		entitlementService: entitlementService,
	}
}

func (h *EntitlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Optional auth: anonymous users can still reach free content.
	rg.GET("/sessions/:id/access", middleware.OptionalAuthMiddleware(), h.CheckAccess)
	rg.GET("/sessions/:id/media", middleware.AuthMiddleware(), h.Media)
}

func (h *EntitlementHandler) CheckAccess(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.entitlementService.CheckAccess(c.Request.Context(), id, middleware.GetUserEmail(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Media hands out a playable link for a single language.
func (h *EntitlementHandler) Media(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.entitlementService.MediaURL(c.Request.Context(), id, middleware.GetUserEmail(c), c.Query("lang"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
