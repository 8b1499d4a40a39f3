package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"catalog/internal/app"
	"catalog/internal/config"
	"catalog/internal/logger"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/services"
	"catalog/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:          "catalog",
		Short:        "Product catalog REST service",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newSeedCmd(), newEventsCmd(), newTokenCmd())
	return root
}

// loadRuntime reads the configuration and builds the logger for a command.
func loadRuntime() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Store ---
	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("error closing product store")
		}
	}()

	deps := app.Deps{Config: cfg, Log: log, Repo: store.Repo}
	if store.Collector != nil {
		deps.Collectors = append(deps.Collectors, store.Collector)
	}

	// --- Events ---
	if cfg.EventsEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			return err
		}
		defer mqClient.Close()
		deps.Events = mqClient
	} else {
		log.Info().Msg("RABBITMQ_URL not set; product events are disabled")
	}

	// --- Rate limiting ---
	if cfg.RateLimitRPS > 0 {
		deps.Limiter = middleware.NewRateLimitStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
		deps.Limiter.StartJanitor(ctx)
	}

	fiberApp := app.New(deps)

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("store", cfg.StoreDriver).Msg("starting server")
		listenErr <- fiberApp.Listen(cfg.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	if err := fiberApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
		return err
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo products into the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			service := services.NewProductService(store.Repo, nil, log)
			n, err := seedProducts(cmd.Context(), service, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// demoProducts are inserted by the seed command.
var demoProducts = []models.CreateProductRequest{
	{Name: strPtr("Laptop"), Price: floatPtr(1200.00), Stock: intPtr(10), Tags: []string{"electronics", "computers"}},
	{Name: strPtr("Mechanical Keyboard"), Price: floatPtr(75.00), Stock: intPtr(25), Tags: []string{"electronics", "accessories"}},
	{Name: strPtr("Wireless Mouse"), Price: floatPtr(25.00), Stock: intPtr(50), Tags: []string{"electronics", "accessories"}},
	{Name: strPtr("Standing Desk"), Price: floatPtr(540.00), Stock: intPtr(4), Tags: []string{"furniture"}},
	{Name: strPtr("Coffee Mug"), Price: floatPtr(9.50), Tags: []string{"kitchen"}},
}

func seedProducts(ctx context.Context, service *services.ProductService, log zerolog.Logger) (int, error) {
	seeded := 0
	for _, req := range demoProducts {
		product, err := service.CreateProduct(ctx, req)
		if err != nil {
			return seeded, fmt.Errorf("failed to seed product %s: %w", *req.Name, err)
		}
		log.Info().Str("product_id", product.ID).Str("name", product.Name).Msg("seeded product")
		seeded++
	}
	return seeded, nil
}

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Consume and log product events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			if !cfg.EventsEnabled() {
				return errors.New("RABBITMQ_URL is required")
			}

			mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
			if err != nil {
				return err
			}
			defer mqClient.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return mqClient.ConsumeProductEvents(ctx, logEvent(log))
		},
	}
}

// logEvent returns a handler that decodes and logs one product event.
// Undecodable messages are rejected.
func logEvent(log zerolog.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.ProductEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("failed to decode product event: %w", err)
		}
		log.Info().
			Str("routing_key", msg.RoutingKey).
			Str("type", event.Type).
			Str("product_id", event.ProductID).
			Time("occurred_at", event.OccurredAt).
			Msg("product event")
		return nil
	}
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the write routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return errors.New("JWT_SECRET is required")
			}
			token, err := services.NewAuthService(cfg.JWTSecret, ttl).IssueToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", services.DefaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
