package routes

import (
	"net/http"

	"stillpoint_backend/internal/handlers"
	"stillpoint_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SetupRoutes mounts the whole API under /api/v1. Each handler owns its own
// subtree and applies auth and role middleware per group.
func SetupRoutes(r *gin.Engine, h *handlers.AppHandlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	// Auth endpoints are rate limited per IP against brute forcing.
	authGroup := v1.Group("")
	authGroup.Use(middleware.RateLimitMiddleware(rate.Limit(5), 10))
	h.AuthHandler.RegisterRoutes(authGroup)

	h.CatalogHandler.RegisterRoutes(v1)
	h.CheckoutHandler.RegisterRoutes(v1)
	h.WebhookHandler.RegisterRoutes(v1)
	h.EntitlementHandler.RegisterRoutes(v1)
	h.PurchaseHandler.RegisterRoutes(v1)
	h.BookingHandler.RegisterRoutes(v1)
	h.PostHandler.RegisterRoutes(v1)
	h.UploadHandler.RegisterRoutes(v1)
	h.UserHandler.RegisterRoutes(v1)
}
