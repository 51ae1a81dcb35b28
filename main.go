package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/carteraclaro/backend/src/config"
	"github.com/username/carteraclaro/backend/src/database"
	"github.com/username/carteraclaro/backend/src/handlers"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/security"
	"github.com/username/carteraclaro/backend/src/services"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

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
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
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
	logger.InitLogger(config.Cfg.LogLevel, config.Cfg.LogFormat)

	logger.L.Info("CarteraClaro backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()

	ctx := context.Background()
	brokerService, err := services.NewBrokerService(ctx, services.BrokerConfig{
		BaseURL:      config.Cfg.BrokerBaseURL,
		Email:        config.Cfg.BrokerEmail,
		Password:     config.Cfg.BrokerPassword,
		PriceTerm:    config.Cfg.BrokerPriceTerm,
		PriceTTL:     config.Cfg.PriceCacheTTL,
		RequestDelay: config.Cfg.BrokerRequestDelay,
	}, services.NewStaticCodeProvider(config.Cfg.BrokerTwoFACode))
	if err != nil {
		stdlog.Fatalf("Failed to open broker session: %v", err)
	}

	sheetService, err := services.NewSheetService(ctx, config.Cfg.GoogleCredentialsFile, config.Cfg.SpreadsheetID)
	if err != nil {
		stdlog.Fatalf("Failed to initialize sheet service: %v", err)
	}

	syncService := services.NewSyncService(brokerService, sheetService, emailService,
		config.Cfg.PositionsTab, config.Cfg.DailyTotalsTab)

	authHandler := handlers.NewAuthHandler(authService)
	syncHandler := handlers.NewSyncHandler(syncService)
	positionHandler := handlers.NewPositionHandler(syncService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "CarteraClaro Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authHandler.AuthMiddleware)

			r.Post("/sync", syncHandler.HandleRunSync)
			r.Post("/sync/daily-total", syncHandler.HandleRecordDailyTotal)
			r.Get("/runs", syncHandler.HandleListRuns)
			r.Get("/runs/{runID}", syncHandler.HandleGetRun)
			r.Get("/positions", positionHandler.HandleGetPositions)
		})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
