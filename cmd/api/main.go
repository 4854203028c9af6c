package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"covermsg/internal/config"
	"covermsg/internal/handler"
	"covermsg/internal/middleware"
	"covermsg/internal/repository"
	"covermsg/internal/service"
	"covermsg/internal/settings"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg)

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping database")
	}
	logger.Info().Msg("connected to database")

	// Repositories
	deliveryRepo := repository.NewDeliveryRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	attachmentTemplateRepo := repository.NewAttachmentTemplateRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Services
	settingsCache := settings.NewCache(settingsRepo, logger)
	deliveryService := service.NewDeliveryService(
		deliveryRepo, attachmentRepo, customerRepo, routeRepo, settingsCache, logger,
	)

	// Handlers
	deliveryHandler := handler.NewDeliveryHandler(deliveryService)
	settingsHandler := handler.NewSettingsHandler(settingsCache, settingsRepo)
	templateHandler := handler.NewTemplateHandler(templateRepo)
	routeHandler := handler.NewRouteHandler(routeRepo)
	attachmentTemplateHandler := handler.NewAttachmentTemplateHandler(attachmentTemplateRepo)
	healthHandler := handler.NewHealthHandler(db)

	// Router
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging(logger))

	router.HandleFunc("/health", healthHandler.Check).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/deliveries", deliveryHandler.Enqueue).Methods("POST")
	api.HandleFunc("/deliveries", deliveryHandler.List).Methods("GET")
	api.HandleFunc("/deliveries/{id}", deliveryHandler.GetByID).Methods("GET")
	api.HandleFunc("/deliveries/{id}/resend", deliveryHandler.Resend).Methods("POST")

	api.HandleFunc("/settings", settingsHandler.List).Methods("GET")
	api.HandleFunc("/settings", settingsHandler.Update).Methods("PATCH")

	api.HandleFunc("/templates", templateHandler.Create).Methods("POST")
	api.HandleFunc("/templates", templateHandler.List).Methods("GET")
	api.HandleFunc("/templates/{id}", templateHandler.GetByID).Methods("GET")
	api.HandleFunc("/templates/{id}", templateHandler.Update).Methods("PUT")

	api.HandleFunc("/routes", routeHandler.Create).Methods("POST")
	api.HandleFunc("/routes", routeHandler.List).Methods("GET")
	api.HandleFunc("/routes/{id}", routeHandler.GetByID).Methods("GET")
	api.HandleFunc("/routes/{id}", routeHandler.Update).Methods("PUT")

	api.HandleFunc("/attachment-templates", attachmentTemplateHandler.Create).Methods("POST")
	api.HandleFunc("/attachment-templates", attachmentTemplateHandler.List).Methods("GET")
	api.HandleFunc("/attachment-templates/{id}", attachmentTemplateHandler.GetByID).Methods("GET")
	api.HandleFunc("/attachment-templates/{id}", attachmentTemplateHandler.Update).Methods("PUT")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Str("env", cfg.Env).
			Msg("api server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	logger.Info().Msg("api server stopped")
}

// newLogger builds the process logger: human-readable console output in
// development, JSON elsewhere
func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
