package main

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/app"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/controllers"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	internal_utils "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/utils"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-seeding"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	proxies, err := utils.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		utils.Logger.WithError(err).Fatal("TRUSTED_PROXIES invalid")
	}
	utils.SetTrustedProxies(proxies)

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize rentals-service:", err)
	}
	defer application.Close()

	profileRepo := repositories.NewProfileRepository(application.DB)
	propRepo := repositories.NewPropertyRepository(application.DB)
	appRepo := repositories.NewApplicationRepository(application.DB, cfg.DBEncryptionKey)
	paymentRepo := repositories.NewPaymentRepository(application.DB)
	eventRepo := repositories.NewStripeEventRepository(application.DB)
	leaseRepo := repositories.NewLeaseRepository(application.DB)
	maintRepo := repositories.NewMaintenanceRequestRepository(application.DB)
	messageRepo := repositories.NewMessageRepository(application.DB)
	savedRepo := repositories.NewSavedPropertyRepository(application.DB)
	docRepo := repositories.NewDocumentRepository(application.DB)
	inquiryRepo := repositories.NewInquiryRepository(application.DB)
	onboardingRepo := repositories.NewOnboardingRepository(application.DB)
	errorLogRepo := repositories.NewErrorLogRepository(application.DB)
	auditRepo := repositories.NewAuditLogRepository(application.DB)

	if cfg.LDFlag_SeedDbWithTestData {
		if err := seeding.SeedAll(context.Background(), profileRepo, propRepo); err != nil {
			utils.Logger.WithError(err).Fatal("Failed to seed test data")
		} else {
			utils.Logger.Info("Seeded test data successfully")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := internal_utils.NewMetrics(registry)

	var geocoder internal_utils.Geocoder
	if cfg.LDFlag_GeocodeProperties && cfg.GMapsAPIKey != "" {
		g, gErr := internal_utils.NewGMapsGeocoder(cfg.GMapsAPIKey)
		if gErr != nil {
			utils.Logger.WithError(gErr).Warn("Geocoding disabled: failed to create Google Maps client")
		} else {
			geocoder = g
		}
	}

	supabase := services.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.StorageBucket)
	hub := services.NewHub()

	notifier := services.NewNotificationService(cfg, services.NewSendGridMailer(cfg), services.NewTwilioSender(cfg), metrics)
	profileService := services.NewProfileService(profileRepo, supabase)
	propertyService := services.NewPropertyService(propRepo, geocoder, services.NewPropertyCache(application.Redis, cfg.PropertyCacheTTL()))
	applicationService := services.NewApplicationService(cfg, appRepo, propRepo, profileRepo, auditRepo, propertyService, notifier, metrics)
	paymentService := services.NewPaymentService(
		cfg,
		paymentRepo,
		appRepo,
		leaseRepo,
		propRepo,
		eventRepo,
		applicationService,
		services.NewStripeGateway(cfg.StripeSecretKey),
		notifier,
		metrics,
	)
	applicationService.SetPaymentCanceler(paymentService)
	leaseService := services.NewLeaseService(cfg, leaseRepo, appRepo, propRepo, profileRepo, paymentRepo, propertyService, notifier)
	maintenanceService := services.NewMaintenanceService(
		cfg,
		maintRepo,
		leaseRepo,
		propRepo,
		profileRepo,
		services.NewOpenAITriager(cfg.OpenAIAPIKey, cfg.LDFlag_AIMaintenanceTriage),
		notifier,
	)
	messagingService := services.NewMessagingService(cfg, messageRepo, propRepo, profileRepo, hub, notifier)
	savedService := services.NewSavedPropertyService(savedRepo, propertyService)
	documentService := services.NewDocumentService(docRepo, appRepo, leaseRepo, propRepo, supabase)
	inquiryService := services.NewInquiryService(cfg, inquiryRepo, propRepo, profileRepo, notifier, nil)
	onboardingService := services.NewOnboardingService(onboardingRepo)
	errorLogService := services.NewErrorLogService(errorLogRepo)
	adminService := services.NewAdminService(appRepo, propRepo, paymentRepo, maintRepo, auditRepo, notifier)

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	inquiryLimiter := middleware.NewRateLimiter(constants.InquiriesPerMinute, time.Minute)
	errorLogLimiter := middleware.NewRateLimiter(constants.ErrorLogsPerMinute, time.Minute)

	router := controllers.NewRouter(controllers.RouterOptions{
		JWTSecret:       cfg.SupabaseJWTSecret,
		Gatherer:        registry,
		HTTPMetrics:     middleware.NewHTTPMetrics(registry, "rentals"),
		ErrorRecorder:   errorLogService,
		InquiryLimiter:  inquiryLimiter,
		ErrorLogLimiter: errorLogLimiter,
	}, controllers.Controllers{
		Health:       controllers.NewHealthController(application),
		Profiles:     controllers.NewProfileController(profileService),
		Properties:   controllers.NewPropertyController(propertyService),
		Applications: controllers.NewApplicationController(applicationService),
		Payments:     controllers.NewPaymentController(paymentService),
		Leases:       controllers.NewLeaseController(leaseService),
		Maintenance:  controllers.NewMaintenanceController(maintenanceService),
		Messaging:    controllers.NewMessagingController(messagingService, hub, allowedOrigins),
		Saved:        controllers.NewSavedPropertyController(savedService),
		Documents:    controllers.NewDocumentController(documentService),
		Inquiries:    controllers.NewInquiryController(inquiryService),
		Onboarding:   controllers.NewOnboardingController(onboardingService),
		ErrorLogs:    controllers.NewErrorLogController(errorLogService),
		Admin:        controllers.NewAdminController(adminService),
	})

	c := cron.New(cron.WithLocation(time.UTC))
	_, expiryErr := c.AddFunc(constants.PaymentExpiryCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.PaymentExpiryJobTimeout)
		defer cancel()
		n, e := applicationService.ExpireOverduePayments(ctx, time.Now().UTC())
		if e != nil {
			utils.Logger.WithError(e).Error("Scheduled payment expiry failed")
			return
		}
		if n > 0 {
			utils.Logger.Infof("Rejected %d applications with expired payment windows", n)
		}
	})
	if expiryErr != nil {
		utils.Logger.WithError(expiryErr).Fatal("Failed to schedule payment expiry cron")
	}

	_, reminderErr := c.AddFunc(constants.LeaseRemindersCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.LeaseReminderJobTimeout)
		defer cancel()
		rent, expiring, e := leaseService.SendReminders(ctx, time.Now().UTC())
		if e != nil {
			utils.Logger.WithError(e).Error("Scheduled lease reminders failed")
			return
		}
		utils.Logger.Infof("Sent %d rent reminders and %d lease expiry notices", rent, expiring)
	})
	if reminderErr != nil {
		utils.Logger.WithError(reminderErr).Fatal("Failed to schedule lease reminder cron")
	}

	_, pruneErr := c.AddFunc(constants.ErrorLogPruneCronSpec, func() {
		if _, e := errorLogService.Prune(context.Background(), time.Now().UTC(), constants.ErrorLogRetention); e != nil {
			utils.Logger.WithError(e).Error("Scheduled error log prune failed")
		}
	})
	if pruneErr != nil {
		utils.Logger.WithError(pruneErr).Fatal("Failed to schedule error log prune cron")
	}

	_, cleanupErr := c.AddFunc(constants.RateLimiterCleanupSpec, func() {
		dropped := inquiryLimiter.Cleanup() + errorLogLimiter.Cleanup()
		utils.Logger.Debugf("Rate limiter cleanup dropped %d idle clients", dropped)
	})
	if cleanupErr != nil {
		utils.Logger.WithError(cleanupErr).Fatal("Failed to schedule rate limiter cleanup cron")
	}
	c.Start()
	defer c.Stop()

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-Match", "Stripe-Signature"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("rentals-service failed to start:", err)
	}
}
