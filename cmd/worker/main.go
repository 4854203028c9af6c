package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"covermsg/internal/attachment"
	"covermsg/internal/config"
	"covermsg/internal/provider"
	"covermsg/internal/repository"
	"covermsg/internal/service"
	"covermsg/internal/settings"
	"covermsg/internal/telemetry"
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
	attachmentTemplateRepo := repository.NewAttachmentTemplateRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	policyMemberRepo := repository.NewPolicyMemberRepository(db)

	settingsCache := settings.NewCache(settingsRepo, logger)
	templateService := service.NewTemplateService(templateRepo)
	generator := attachment.NewGenerator(policyMemberRepo)

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize attachment store")
	}
	logger.Info().Str("bucket", store.Bucket()).Msg("attachment store ready")

	smsProvider, emailProvider := newProviders(cfg, logger)
	reporter := newReporter(cfg, logger)

	worker := service.NewWorker(
		deliveryRepo,
		attachmentRepo,
		attachmentTemplateRepo,
		templateService,
		settingsCache,
		smsProvider,
		emailProvider,
		generator,
		store,
		reporter,
		logger,
	)

	if err := worker.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to start worker")
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	worker.Stop()
}

// newStore selects the attachment storage backend from configuration
func newStore(cfg *config.Config) (attachment.Store, error) {
	if cfg.Storage.Backend == "s3" {
		return attachment.NewS3Store(attachment.S3Config{
			Region:    cfg.Storage.S3Region,
			Bucket:    cfg.Storage.S3Bucket,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Endpoint:  cfg.Storage.S3Endpoint,
			PathStyle: cfg.Storage.S3PathStyle,
		})
	}
	return attachment.NewFSStore(cfg.Storage.LocalDir)
}

// newProviders selects real providers when credentials are configured, mock
// providers otherwise
func newProviders(cfg *config.Config, logger zerolog.Logger) (provider.SMSProvider, provider.EmailProvider) {
	var sms provider.SMSProvider
	if cfg.SMSGateway.APIKey != "" {
		sms = provider.NewSMSGateway(provider.SMSGatewayConfig{
			BaseURL:  cfg.SMSGateway.BaseURL,
			APIKey:   cfg.SMSGateway.APIKey,
			SenderID: cfg.SMSGateway.SenderID,
		})
	} else {
		logger.Warn().Msg("no sms gateway credentials, using mock sms provider")
		sms = provider.NewMockSMSProvider(0.95)
	}

	var email provider.EmailProvider
	if cfg.Resend.APIKey != "" {
		email = provider.NewResendProvider(provider.ResendConfig{
			APIKey:      cfg.Resend.APIKey,
			SenderEmail: cfg.Resend.FromEmail,
			SenderName:  cfg.Resend.FromName,
		})
	} else {
		logger.Warn().Msg("no resend credentials, using mock email provider")
		email = provider.NewMockEmailProvider(0.95)
	}

	return sms, email
}

// newReporter connects failure telemetry when enabled. A broker that is down
// at startup disables telemetry rather than blocking the worker.
func newReporter(cfg *config.Config, logger zerolog.Logger) telemetry.Reporter {
	if !cfg.RabbitMQ.Enabled {
		return telemetry.NoopReporter{}
	}

	conn, err := telemetry.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to connect to rabbitmq, telemetry disabled")
		return telemetry.NoopReporter{}
	}

	reporter, err := telemetry.NewAMQPReporter(conn, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set up telemetry reporter, telemetry disabled")
		return telemetry.NoopReporter{}
	}

	logger.Info().Msg("failure telemetry enabled")
	return reporter
}

// newLogger builds the process logger: human-readable console output in
// development, JSON elsewhere
func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
