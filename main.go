package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rivalQuestAPI/config"
	"rivalQuestAPI/handlers"
	"rivalQuestAPI/internal/notification"
	"rivalQuestAPI/internal/paystack"
	"rivalQuestAPI/internal/persona"
	"rivalQuestAPI/middleware"
	"rivalQuestAPI/services"
)

var (
	cfg                 *config.Config
	dbPool              *pgxpool.Pool
	subscriptionService *services.SubscriptionService
	paymentService      *services.PaymentService
	questService        *services.QuestService
	rivalService        *services.RivalService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	paystackClient := paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL)
	personaGenerator := persona.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)

	notificationService = services.NewNotificationService(dbPool)
	subscriptionService = services.NewSubscriptionService(dbPool)
	paymentService = services.NewPaymentService(dbPool, paystackClient, subscriptionService)
	questService = services.NewQuestService(dbPool, subscriptionService, notificationService)
	rivalService = services.NewRivalService(dbPool, subscriptionService, questService, personaGenerator, notificationService)

	fcmService, err = notification.NewFCMService(cfg.FCMServiceAccountJSON, cfg.FCMKeyFilePath)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	questHandler := handlers.NewQuestHandler(questService)
	rivalHandler := handlers.NewRivalHandler(rivalService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, subscriptionService, questService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(paymentService, cfg.PaystackSecretKey)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass, promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "rivalQuest-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/paystack", webhookHandler.HandlePaystackWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/quests", questHandler.GetQuests).Methods("GET")
	protected.HandleFunc("/quests", questHandler.CreateQuest).Methods("POST")
	protected.HandleFunc("/quests/complete-today", questHandler.CompleteQuest).Methods("POST")
	protected.HandleFunc("/quests/{id}", questHandler.DeleteQuest).Methods("DELETE")

	protected.HandleFunc("/rivals", rivalHandler.GetActiveRival).Methods("GET")
	protected.HandleFunc("/rivals/list", rivalHandler.GetRivals).Methods("GET")
	protected.HandleFunc("/rivals/generate", rivalHandler.GenerateRival).Methods("POST")

	protected.HandleFunc("/payments/initialize", paymentHandler.InitializePayment).Methods("POST")
	protected.HandleFunc("/payments/verify/{reference}", paymentHandler.VerifyPayment).Methods("GET")
	protected.HandleFunc("/payments/subscription-status", paymentHandler.GetSubscriptionStatus).Methods("GET")
	protected.HandleFunc("/payments/quota-status", paymentHandler.GetQuotaStatus).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
