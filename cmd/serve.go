package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/wibookly/mailcore/internal/auth"
	"github.com/wibookly/mailcore/internal/cleanup"
	"github.com/wibookly/mailcore/internal/gmail"
	"github.com/wibookly/mailcore/internal/instrumentation"
	"github.com/wibookly/mailcore/internal/jobs"
	"github.com/wibookly/mailcore/internal/notify"
	"github.com/wibookly/mailcore/internal/outlook"
	"github.com/wibookly/mailcore/internal/provider"
	"github.com/wibookly/mailcore/internal/server"
	"github.com/wibookly/mailcore/internal/tokens"
	"github.com/wibookly/mailcore/internal/vault"
)

// serveConfig holds everything the serve command needs. Secrets arrive via
// flags or environment and are handed to constructors without being logged.
type serveConfig struct {
	Debug    bool
	HTTPAddr string

	DatabaseURL   string
	EncryptionKey string
	JWTSecret     string
	AMQPURL       string

	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
}

func newServeCmd() *cobra.Command {
	var cfg serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mailcore HTTP server",
		Long: `Start the HTTP server exposing the rule cleanup and sync job API.

Configuration:
  Required (flag or env var):
    --database-url    / DATABASE_URL          Postgres connection string
    --encryption-key  / TOKEN_ENCRYPTION_KEY  Secret for token encryption at rest
    --jwt-secret      / JWT_SECRET            HS256 secret for bearer tokens

  Provider credentials (env var fallback):
    --google-client-id     / GOOGLE_CLIENT_ID
    --google-client-secret / GOOGLE_CLIENT_SECRET
    --microsoft-client-id     / MICROSOFT_CLIENT_ID
    --microsoft-client-secret / MICROSOFT_CLIENT_SECRET
    Without a provider's credentials its expired tokens cannot be refreshed.

  Optional:
    --amqp-url / AMQP_URL   RabbitMQ URL for job completion events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.applyEnv()
			if err := cfg.validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8080", "HTTP server address")
	cmd.Flags().StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres connection string. Can also use DATABASE_URL env var.")
	cmd.Flags().StringVar(&cfg.EncryptionKey, "encryption-key", "", "Secret used to derive the AES-256 token encryption key. Can also use TOKEN_ENCRYPTION_KEY env var.")
	cmd.Flags().StringVar(&cfg.JWTSecret, "jwt-secret", "", "HS256 secret for verifying bearer tokens. Can also use JWT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.AMQPURL, "amqp-url", "", "RabbitMQ URL for job completion events. Can also use AMQP_URL env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth client id for token refresh. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth client secret for token refresh. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.MicrosoftClientID, "microsoft-client-id", "", "Microsoft OAuth client id for token refresh. Can also use MICROSOFT_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.MicrosoftClientSecret, "microsoft-client-secret", "", "Microsoft OAuth client secret for token refresh. Can also use MICROSOFT_CLIENT_SECRET env var.")

	return cmd
}

// applyEnv fills unset fields from environment variables.
func (c *serveConfig) applyEnv() {
	fallback := func(target *string, key string) {
		if *target == "" {
			*target = os.Getenv(key)
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.EncryptionKey, "TOKEN_ENCRYPTION_KEY")
	fallback(&c.JWTSecret, "JWT_SECRET")
	fallback(&c.AMQPURL, "AMQP_URL")
	fallback(&c.GoogleClientID, "GOOGLE_CLIENT_ID")
	fallback(&c.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	fallback(&c.MicrosoftClientID, "MICROSOFT_CLIENT_ID")
	fallback(&c.MicrosoftClientSecret, "MICROSOFT_CLIENT_SECRET")
}

func (c *serveConfig) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (--database-url or DATABASE_URL)")
	}
	if c.EncryptionKey == "" {
		return fmt.Errorf("encryption key is required (--encryption-key or TOKEN_ENCRYPTION_KEY)")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (--jwt-secret or JWT_SECRET)")
	}
	return nil
}

func runServe(cfg serveConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instr, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := instr.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", slog.String("error", err.Error()))
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	vaultStore := vault.NewPostgresStore(pool)
	if err := vaultStore.EnsureSchema(ctx); err != nil {
		return err
	}
	jobsStore := jobs.NewPostgresStore(pool)
	if err := jobsStore.EnsureSchema(ctx); err != nil {
		return err
	}

	cipher := vault.NewCipher(cfg.EncryptionKey)
	refresher := tokens.NewRefresher(vaultStore, cipher, tokens.Config{
		Google:    tokens.ClientCredentials{ID: cfg.GoogleClientID, Secret: cfg.GoogleClientSecret},
		Microsoft: tokens.ClientCredentials{ID: cfg.MicrosoftClientID, Secret: cfg.MicrosoftClientSecret},
	}, logger)

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		logger.Warn("google client credentials not configured, expired google tokens cannot be refreshed")
	}
	if cfg.MicrosoftClientID == "" || cfg.MicrosoftClientSecret == "" {
		logger.Warn("microsoft client credentials not configured, expired microsoft tokens cannot be refreshed")
	}

	adapters := []provider.Adapter{
		gmail.NewAdapter(logger),
		outlook.NewAdapter(outlook.NewClient(), logger),
	}
	orchestrator := cleanup.NewOrchestrator(vaultStore, refresher, adapters, logger, instr.Metrics())

	var notifier notify.Notifier
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		defer conn.Close()

		publisher, err := notify.NewAMQPPublisher(conn, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		notifier = publisher
	}

	runner := jobs.NewRunner(jobsStore, vaultStore, refresher, nil, notifier, logger)
	resolver := auth.NewJWTResolver(cfg.JWTSecret)

	srv := server.New(resolver, orchestrator, runner, instr.Registry(), logger)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	return nil
}
