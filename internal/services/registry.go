package services

// ServiceContainer holds every application service. Built once at startup
// and handed to the handler layer.
type ServiceContainer struct {
	AuthService        AuthService
	CatalogService     CatalogService
	CheckoutService    CheckoutService
	ReconcileService   ReconcileService
	EntitlementService EntitlementService
	PurchaseService    PurchaseService
	BookingService     BookingService
	PostService        PostService
	UploadService      UploadService
	UserService        UserService
}
