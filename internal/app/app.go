package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stillpoint_backend/internal/auth"
	"stillpoint_backend/internal/config"
	"stillpoint_backend/internal/email"
	"stillpoint_backend/internal/handlers"
	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/middleware"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/oauth"
	"stillpoint_backend/internal/payment"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/routes"
	"stillpoint_backend/internal/services"
	"stillpoint_backend/internal/storage"
	"stillpoint_backend/internal/validator"
	"stillpoint_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	auth.InitJWT(cfg.JWT.Secret, cfg.JWT.TTL)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := migrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router, cleanupWorker := SetupRouter(cfg, gormDB)
	cleanupWorker.Start(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    address,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}

// SetupRouter builds the gin engine with all routes mounted. Split from Run
// so tests can spin up the full router.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *workers.CleanupWorker) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	// Repositories
	userRepo := repositories.NewUserRepository(gormDB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(gormDB)
	passwordResetRepo := repositories.NewPasswordResetRepository(gormDB)
	sessionRepo := repositories.NewSessionRepository(gormDB)
	purchaseRepo := repositories.NewPurchaseRepository(gormDB)
	bookingRepo := repositories.NewBookingRepository(gormDB)
	postRepo := repositories.NewPostRepository(gormDB)

	// External providers
	emailProvider := email.NewSMTPProvider(&email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	})
	stripeProvider := payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.PublicSiteURL)
	googleVerifier := oauth.NewGoogleVerifier(cfg.Google.ClientID)

	// Services
	svc := &services.ServiceContainer{
		AuthService: services.NewAuthService(
			userRepo, refreshTokenRepo, passwordResetRepo, emailProvider, googleVerifier, cfg.PublicSiteURL),
		CatalogService:  services.NewCatalogService(sessionRepo),
		CheckoutService: services.NewCheckoutService(sessionRepo, purchaseRepo, stripeProvider),
		ReconcileService: services.NewReconcileService(
			purchaseRepo, sessionRepo, stripeProvider, emailProvider, cfg.PublicSiteURL),
		EntitlementService: services.NewEntitlementService(sessionRepo, purchaseRepo, store),
		PurchaseService:    services.NewPurchaseService(purchaseRepo),
		BookingService:     services.NewBookingService(bookingRepo, sessionRepo, emailProvider),
		PostService:        services.NewPostService(postRepo),
		UploadService:      services.NewUploadService(store, cfg.Upload.MaxSize, cfg.Upload.AllowedTypes),
		UserService:        services.NewUserService(userRepo, purchaseRepo, bookingRepo),
	}

	// Handlers
	baseHandler := handlers.NewBaseHandler(validator.New())
	appHandlers := &handlers.AppHandlers{
		AuthHandler:        handlers.NewAuthHandler(baseHandler, svc.AuthService),
		CatalogHandler:     handlers.NewCatalogHandler(baseHandler, svc.CatalogService),
		CheckoutHandler:    handlers.NewCheckoutHandler(baseHandler, svc.CheckoutService, svc.PurchaseService, svc.UserService),
		WebhookHandler:     handlers.NewWebhookHandler(baseHandler, stripeProvider, svc.ReconcileService),
		EntitlementHandler: handlers.NewEntitlementHandler(baseHandler, svc.EntitlementService),
		PurchaseHandler:    handlers.NewPurchaseHandler(baseHandler, svc.PurchaseService),
		BookingHandler:     handlers.NewBookingHandler(baseHandler, svc.BookingService),
		PostHandler:        handlers.NewPostHandler(baseHandler, svc.PostService),
		UploadHandler:      handlers.NewUploadHandler(baseHandler, svc.UploadService),
		UserHandler:        handlers.NewUserHandler(baseHandler, svc.UserService, svc.AuthService),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.PublicSiteURL))

	routes.SetupRoutes(router, appHandlers)

	worker := workers.NewCleanupWorker(refreshTokenRepo, passwordResetRepo, purchaseRepo)

	return router, worker
}

func migrate(db *gorm.DB) error {
	// uuid_generate_v4 defaults on primary keys need the extension.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.PasswordResetToken{},
		&models.Session{},
		&models.Purchase{},
		&models.SessionBooking{},
		&models.Post{},
	)
}

// seedFirstAdmin creates the bootstrap admin account if it does not exist
// yet. Without it there is no way to reach the admin endpoints on a fresh
// deployment.
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.FirstAdminEmail == "" || cfg.FirstAdminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	var existing models.User
	result := db.Where("email = ?", cfg.FirstAdminEmail).First(&existing)
	if result.Error == nil {
		logger.Info("Admin user already exists, skipping creation", "email", cfg.FirstAdminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	hash, err := auth.HashPassword(cfg.FirstAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        cfg.FirstAdminEmail,
		DisplayName:  "Admin",
		PasswordHash: hash,
		Provider:     models.ProviderCredentials,
		Role:         models.UserRoleAdmin,
		IsVerified:   true,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("First admin user created", "email", cfg.FirstAdminEmail)
	return nil
}
