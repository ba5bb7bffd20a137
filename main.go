package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/config"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/handlers"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/parsers/fonplata"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/services"
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
	allowedOrigins := make(map[string]bool, len(config.Cfg.AllowedOrigins))
	for _, origin := range config.Cfg.AllowedOrigins {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")
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
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Disbursement curve backend server starting...")

	datasetCache := cache.New(config.Cfg.DatasetCacheExpiration, services.CacheCleanupInterval)
	httpClient := &http.Client{Timeout: config.Cfg.HTTPClientTimeout}

	parser := fonplata.NewParser()
	datasetService := services.NewDatasetService(
		parser,
		httpClient,
		config.Cfg.DatasetPath,
		config.Cfg.DatasetURL,
		datasetCache,
		config.Cfg.DatasetCacheExpiration,
	)
	curveService := services.NewCurveService(datasetService)

	curveHandler := handlers.NewCurveHandler(curveService, datasetService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Disbursement curve backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/curves", curveHandler.HandleGetCurves)
		r.Get("/filters", curveHandler.HandleGetFilterMetadata)
		r.Post("/dataset/reload", curveHandler.HandleReloadDataset)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
