package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/cobranzas/backend/src/config"
	"github.com/username/cobranzas/backend/src/database"
	"github.com/username/cobranzas/backend/src/handlers"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/parsers"
	"github.com/username/cobranzas/backend/src/processors"
	"github.com/username/cobranzas/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
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
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Cobranzas backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	logger.L.Info("Report cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	emailService := services.NewEmailService()
	currencyService := services.NewCurrencyService(reportCache)

	workbookParser := parsers.NewWorkbookParser()
	mergeProcessor := processors.NewMergeProcessor()
	reconciliationProcessor := processors.NewReconciliationProcessor()
	kpiProcessor := processors.NewKPIProcessor()
	unificationProcessor := processors.NewUnificationProcessor()

	ingestionService := services.NewIngestionService(
		workbookParser, mergeProcessor, reconciliationProcessor,
		kpiProcessor, unificationProcessor, currencyService,
		reportCache,
	)

	uploadHandler := handlers.NewUploadHandler(ingestionService)
	unificationHandler := handlers.NewUnificationHandler(ingestionService)
	contactHandler := handlers.NewContactHandler()
	notificationHandler := handlers.NewNotificationHandler(ingestionService, emailService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/upload", uploadHandler.HandleUpload)
	apiRouter.HandleFunc("GET /api/dataset", uploadHandler.HandleGetDataset)
	apiRouter.HandleFunc("GET /api/kpis", uploadHandler.HandleGetKPIs)

	apiRouter.HandleFunc("GET /api/unification/suggestions", unificationHandler.HandleGetSuggestions)
	apiRouter.HandleFunc("GET /api/unification/rules", unificationHandler.HandleGetRules)
	apiRouter.HandleFunc("POST /api/unification/rules", unificationHandler.HandleSaveRules)
	apiRouter.HandleFunc("DELETE /api/unification/rules/{id}", unificationHandler.HandleDeleteRule)

	apiRouter.HandleFunc("GET /api/contacts", contactHandler.HandleGetContacts)
	apiRouter.HandleFunc("GET /api/contacts/{client}", contactHandler.HandleGetContact)
	apiRouter.HandleFunc("PUT /api/contacts/{client}", contactHandler.HandleUpsertContact)

	apiRouter.HandleFunc("POST /api/notify", notificationHandler.HandleSendReminder)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Cobranzas backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
