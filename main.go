package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/reconhub/backend/src/config"
	"github.com/username/reconhub/backend/src/database"
	"github.com/username/reconhub/backend/src/handlers"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "X-Batch-Id, Content-Disposition")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("ReconHub backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid: must be at least 32 characters.")
		stdlog.Fatal("invalid JWT_SECRET")
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	reconcileService := services.NewReconcileService(database.DB, summaryCache)
	productService := services.NewProductService(database.DB)
	authService := services.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AdminPasswordHash, config.Cfg.AdminTokenExpiry)

	uploadHandler := handlers.NewUploadHandler(reconcileService)
	productHandler := handlers.NewProductHandler(productService)
	auditHandler := handlers.NewAuditHandler(database.DB)
	authHandler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)
	r.Use(handlers.ContextualLoggerMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Post("/upload", uploadHandler.HandleUpload)
		r.Get("/reconciliations/latest", uploadHandler.HandleLatestSummary)
		r.Get("/reconciliations/{batchID}", uploadHandler.HandleBatchSummary)

		r.Get("/products", productHandler.HandleList)
		r.Get("/audit", auditHandler.HandleList)

		// Catalog mutations require the admin token.
		r.Group(func(r chi.Router) {
			r.Use(handlers.AdminAuthMiddleware(authService))
			r.Post("/products", productHandler.HandleSave)
			r.Delete("/products/{productCode}", productHandler.HandleDelete)
		})
	})

	server := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.L.Info("Server listening", "port", config.Cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Server failed", "error", err)
		stdlog.Fatalf("server failed: %v", err)
	}
}
