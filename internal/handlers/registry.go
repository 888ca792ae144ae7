package handlers

// AppHandlers holds every HTTP handler in the application.
type AppHandlers struct {
	AuthHandler        *AuthHandler
	CatalogHandler     *CatalogHandler
	CheckoutHandler    *CheckoutHandler
	WebhookHandler     *WebhookHandler
	EntitlementHandler *EntitlementHandler
	PurchaseHandler    *PurchaseHandler
	BookingHandler     *BookingHandler
	PostHandler        *PostHandler
	UploadHandler      *UploadHandler
	UserHandler        *UserHandler
}
