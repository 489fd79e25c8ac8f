package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/handlers"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/processors"
	"github.com/username/runefolio/backend/src/security"
	"github.com/username/runefolio/backend/src/services"
)

// Shared limiter across all clients, sized from config in main. Per-IP
// limiting is left to the reverse proxy in front of this service.
var limiter *rate.Limiter

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// proxyHeadersMiddleware restores the client address from X-Forwarded-For
// when running behind a proxy.
func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			r.RemoteAddr = forwarded
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", config.Cfg.FrontendBaseURL)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET must be at least 32 characters")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 characters")
		os.Exit(1)
	}

	limiter = rate.NewLimiter(rate.Limit(config.Cfg.RateLimitRPS), config.Cfg.RateLimitBurst)

	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	mfaService := services.NewMFAService()
	priceService := services.NewPriceService()
	portfolioService := services.NewPortfolioService(priceService, processors.DefaultTaxRegime(), reportCache)

	userHandler := handlers.NewUserHandler(authService, mfaService, portfolioService, reportCache)
	investmentHandler := handlers.NewInvestmentHandler(priceService, portfolioService)
	watchlistHandler := handlers.NewWatchlistHandler(priceService)
	alertHandler := handlers.NewAlertHandler(priceService)
	itemHandler := handlers.NewItemHandler(priceService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)

	// Expired sessions are pruned in the background so the table does not
	// grow without bound.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if deleted, err := model.DeleteExpiredSessions(database.DB); err != nil {
				logger.L.Error("Failed to delete expired sessions", "error", err)
			} else if deleted > 0 {
				logger.L.Info("Deleted expired sessions", "count", deleted)
			}
		}
	}()

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(proxyHeadersMiddleware)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)
	r.Use(enableCORS)
	r.Use(handlers.CSRFMiddleware)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/api/auth/csrf", handlers.GetCSRFToken)

	// Public auth endpoints. Logout reads the bearer token itself so an
	// expired access token can still revoke its session.
	r.Post("/api/auth/register", userHandler.Register)
	r.Post("/api/auth/login", userHandler.Login)
	r.Post("/api/auth/refresh", userHandler.RefreshToken)
	r.Post("/api/auth/logout", userHandler.Logout)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(userHandler.AuthMiddleware)

		r.Get("/api/auth/me", userHandler.Me)
		r.Post("/api/auth/change-password", userHandler.ChangePassword)
		r.Delete("/api/auth/account", userHandler.DeleteAccount)

		r.Get("/api/items", itemHandler.ListItems)
		r.Get("/api/items/{itemID}", itemHandler.GetItem)
		r.Get("/api/items/{itemID}/timeseries", itemHandler.Timeseries)
		r.Get("/api/prices/latest", itemHandler.LatestPrices)

		r.Get("/api/investments", investmentHandler.ListInvestments)
		r.Post("/api/investments", investmentHandler.CreateInvestment)
		r.Post("/api/investments/{id}/sell", investmentHandler.SellInvestment)
		r.Delete("/api/investments/{id}", investmentHandler.DeleteInvestment)
		r.Delete("/api/investments", investmentHandler.DeleteAllInvestments)

		r.Get("/api/portfolio/summary", portfolioHandler.GetSummary)
		r.Get("/api/portfolio/history", portfolioHandler.GetHistory)

		r.Get("/api/watchlist", watchlistHandler.ListWatchlist)
		r.Post("/api/watchlist", watchlistHandler.AddToWatchlist)
		r.Delete("/api/watchlist/{itemID}", watchlistHandler.RemoveFromWatchlist)
		r.Get("/api/watchlist/prices", watchlistHandler.WatchlistPrices)

		r.Get("/api/alerts", alertHandler.ListAlerts)
		r.Put("/api/alerts", alertHandler.UpsertAlert)
		r.Delete("/api/alerts/{itemID}", alertHandler.DeleteAlert)

		r.Group(func(r chi.Router) {
			r.Use(userHandler.AdminMiddleware)
			r.Get("/api/admin/stats", userHandler.AdminStats)
			r.Post("/api/admin/mfa/setup", userHandler.SetupMFA)
			r.Post("/api/admin/mfa/enable", userHandler.EnableMFA)
		})
	})

	server := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "port", config.Cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		logger.L.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
