package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/payquick/backend/docs"
	"github.com/payquick/backend/internal/audit"
	"github.com/payquick/backend/internal/config"
	"github.com/payquick/backend/internal/database"
	mW "github.com/payquick/backend/internal/middleware"
	"github.com/payquick/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title PayQuick Backend API
// @version 1.0
// @description Payment gateway wallet and transaction API
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "PayQuick Backend API"
	docs.SwaggerInfo.Description = "Payment gateway wallet and transaction API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	gamificationConfig := config.LoadGamificationConfig()
	auditLogger := audit.NewAuditLogger()

	authService := services.NewAuthService(db, redisClient)
	walletService := services.NewWalletService(db)
	transferService := services.NewTransferService(db, redisClient)
	transactionService := services.NewTransactionService(db)
	infractionService := services.NewInfractionService(db)
	credentialService := services.NewCredentialService(db)
	webhookService := services.NewWebhookService(db)
	dashboardService := services.NewDashboardService(db)
	gamificationService := services.NewGamificationService(db, redisClient, gamificationConfig)
	adminService := services.NewAdminService(db, gamificationService, auditLogger)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Level recalculation worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go gamificationService.StartWorker(workerCtx)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for platform branding assets
	r.Handle("/static/platform/*", http.StripPrefix("/static/platform/",
		mW.StaticFileServer("./static/platform")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/platform", adminService.GetPlatform)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/me", authService.Me)

			r.Get("/wallet", walletService.GetBalance)
			r.Get("/dashboard/stats", dashboardService.Stats)

			r.Get("/transactions", transactionService.ListTransactions)
			r.Post("/transactions/transfer", transferService.Transfer)

			// Credential endpoints
			r.Get("/credentials", credentialService.ListCredentials)
			r.Post("/credentials", credentialService.CreateCredential)
			r.Delete("/credentials/{id}", credentialService.RevokeCredential)

			// Webhook endpoints
			r.Get("/webhooks", webhookService.ListWebhooks)
			r.Post("/webhooks", webhookService.CreateWebhook)
			r.Delete("/webhooks/{id}", webhookService.DeleteWebhook)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.AdminMiddleware(db))

				r.Get("/admin/users", adminService.ListUsers)
				r.Patch("/admin/users/{id}/status", adminService.SetUserStatus)
				r.Post("/admin/users/{id}/recalculate", adminService.RecalculateUserLevel)
				r.Get("/admin/stats", adminService.Stats)

				r.Get("/admin/transactions", transactionService.AdminListTransactions)
				r.Put("/admin/transactions/{id}/status", transactionService.SetTransactionStatus)
				r.Post("/admin/transactions/{id}/flag", infractionService.FlagTransaction)
				r.Post("/admin/transactions/{id}/review", infractionService.ReviewTransaction)

				r.Put("/admin/platform", adminService.UpdatePlatform)
				r.Get("/admin/adquirentes", adminService.ListAdquirentes)
				r.Put("/admin/adquirentes/{id}", adminService.UpdateAdquirente)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
