package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"

	"github.com/dukerupert/skein/internal"
	"github.com/dukerupert/skein/internal/address"
	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/cookie"
	"github.com/dukerupert/skein/internal/crypto"
	"github.com/dukerupert/skein/internal/email"
	"github.com/dukerupert/skein/internal/events"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/handler/admin"
	"github.com/dukerupert/skein/internal/handler/storefront"
	"github.com/dukerupert/skein/internal/handler/webhook"
	"github.com/dukerupert/skein/internal/jobs"
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/router"
	"github.com/dukerupert/skein/internal/routes"
	"github.com/dukerupert/skein/internal/service"
	"github.com/dukerupert/skein/internal/telemetry"
	"github.com/dukerupert/skein/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	telemetry.InitBusinessMetrics("skein")

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	// ==========================================================================
	// Payments
	// ==========================================================================

	var payments billing.Provider
	if cfg.Stripe.UseMock {
		logger.Warn("Using mock payment provider")
		payments = billing.NewMockProvider()
	} else {
		stripeConfig := billing.StripeConfig{APIKey: cfg.Stripe.SecretKey, MaxRetries: 3, TimeoutSeconds: 30}
		stripeProvider, err := billing.NewStripeProvider(stripeConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())
		payments = stripeProvider
	}

	// ==========================================================================
	// Notifications: email outbox and optional NATS events
	// ==========================================================================

	notifiers := service.Notifiers{
		jobs.NewEmailNotifier(store, jobs.EnqueueOptions{MaxRetries: cfg.Worker.MaxRetries}),
	}
	var stockEvents service.StockEvents
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("skein"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("NATS disconnected", "error", err)
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("NATS reconnected", "url", c.ConnectedUrl())
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Drain()

		publisher := events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		notifiers = append(notifiers, publisher)
		stockEvents = publisher
		logger.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	numbers, err := service.NewSnowflakeNumbers(cfg.SnowflakeNode)
	if err != nil {
		return fmt.Errorf("failed to initialize order numbers: %w", err)
	}

	inventoryService := service.NewInventoryService(store, stockEvents, logger)
	checkoutService := service.NewCheckoutService(store, numbers, notifiers, logger)
	orderService := service.NewOrderService(store, notifiers, payments, logger)
	reviewService := service.NewReviewService(store, logger)

	// ==========================================================================
	// Cart cookie
	// ==========================================================================

	cartKey, err := cartKey(cfg, logger)
	if err != nil {
		return err
	}
	encryptor, err := crypto.NewAESEncryptor(cartKey)
	if err != nil {
		return fmt.Errorf("failed to initialize cart encryption: %w", err)
	}
	cookieConfig := cookie.NewConfig(cfg.Cart.CookieDomain, cfg.Cart.CookieSecure)
	cookieConfig.SameSite = cfg.Cart.SameSite
	carts := storefront.NewCartStore(cookie.NewSealer(cookieConfig, encryptor), int(cfg.Cart.MaxAge/time.Second))

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var workerDone chan error
	if cfg.Worker.Enabled {
		sender, err := email.NewSenderFromConfig(ctx, email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, cfg.Env == "prod", logger)
		if err != nil {
			return fmt.Errorf("failed to initialize email sender: %w", err)
		}
		emailService, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}

		w := worker.NewWorker(store, emailService, worker.Config{
			PollInterval:    cfg.Worker.PollInterval,
			MaxConcurrency:  cfg.Worker.MaxConcurrency,
			Queue:           jobs.EmailQueue,
			ShutdownTimeout: cfg.Worker.ShutdownTimeout,
		}, logger)

		workerDone = make(chan error, 1)
		go func() { workerDone <- w.Start(ctx) }()
	}

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	onLimited := func(name string, r *http.Request) {
		telemetry.Business.RecordRateLimited(name)
		middleware.GetLogger(r.Context()).Warn("rate limited", "limiter", name, "client_ip", middleware.GetClientIP(r))
	}
	cartLimitCfg := middleware.DefaultRateLimiterConfig()
	cartLimitCfg.OnLimited = onLimited
	cartLimiter := middleware.NewRateLimiter(cartLimitCfg)
	defer cartLimiter.Stop()
	strictLimitCfg := middleware.StrictRateLimiterConfig()
	strictLimitCfg.OnLimited = onLimited
	strictLimiter := middleware.NewRateLimiter(strictLimitCfg)
	defer strictLimiter.Stop()

	storefrontDeps := routes.StorefrontDeps{
		CartHandler:     storefront.NewCartHandler(inventoryService, carts),
		StockHandler:    storefront.NewStockHandler(inventoryService),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService, inventoryService, payments, carts, address.NewBasicValidator(), cfg.Stripe.Currency),
		OrderHandler:    storefront.NewOrderLookupHandler(orderService),
		ReviewHandler:   storefront.NewReviewHandler(reviewService),
		CartLimiter:     cartLimiter,
		StrictLimiter:   strictLimiter,
	}

	adminDeps := routes.AdminDeps{
		Auth:             middleware.AuthConfig{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.JWTIssuer},
		OrderHandler:     admin.NewOrderHandler(orderService),
		InventoryHandler: admin.NewInventoryHandler(inventoryService),
		ReviewHandler:    admin.NewReviewHandler(reviewService),
	}

	var webhookDeps routes.WebhookDeps
	if cfg.Stripe.WebhookSecret != "" {
		webhookDeps.StripeHandler = webhook.NewStripeHandler(orderService, cfg.Stripe.WebhookSecret)
	} else {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, refund webhooks disabled")
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	metrics := middleware.NewMetrics("skein", nil)

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0 // Disable HSTS in development
	}

	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		router.Logger(),
		router.Recovery(),
		middleware.SecurityHeaders(securityConfig),
		telemetry.SentryMiddleware(),
		metrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  health(pool),
		Metrics: metrics.Handler(),
	})
	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterAdminRoutes(r, adminDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.CORS(cfg.AllowedOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if workerDone != nil {
		stop()
		if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped with error", "error", err)
		}
	}
	logger.Info("Shutdown complete")
	return nil
}

// cartKey decodes the configured cart key. In dev a missing key is replaced
// by a random one, which invalidates carts on every restart.
func cartKey(cfg *internal.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Cart.Key != "" {
		key, err := crypto.DecodeKeyBase64(cfg.Cart.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid CART_COOKIE_KEY: %w", err)
		}
		return key, nil
	}
	logger.Warn("CART_COOKIE_KEY not set, using an ephemeral key")
	return crypto.GenerateKey()
}

func health(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			middleware.GetLogger(r.Context()).Error("health check failed", "error", err)
			handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
