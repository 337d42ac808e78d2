// Package app wires the storefront API together: configuration, storage,
// domain services, HTTP transport, background workers, and graceful
// shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
	"github.com/kstorelabs/kstore-cart/internal/domain/order"
	"github.com/kstorelabs/kstore-cart/internal/domain/session"
	"github.com/kstorelabs/kstore-cart/internal/email"
	"github.com/kstorelabs/kstore-cart/internal/handler"
	"github.com/kstorelabs/kstore-cart/internal/notify"
	"github.com/kstorelabs/kstore-cart/internal/payment"
	"github.com/kstorelabs/kstore-cart/internal/storage/postgres"
	"github.com/kstorelabs/kstore-cart/internal/storage/redis"
	"github.com/kstorelabs/kstore-cart/pkg/health"
	"github.com/kstorelabs/kstore-cart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the
// notification worker, and handles graceful shutdown. It is the single
// wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis client for cart storage.
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "create redis client")
	}
	defer func() { _ = redisClient.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)

	// Domain services.
	cartLedger := cart.NewLedger(redis.NewCartStore(redisClient, cfg.CartTTL))
	couponValidator := coupon.NewRepoValidator(couponRepo)
	verifier := session.NewHMACVerifier(sessionRepo, []byte(cfg.SessionPepper))

	providers := map[string]payment.Provider{
		payment.MethodCOD: payment.NewCOD(),
	}
	if cfg.StripeKey != "" {
		providers[payment.MethodCard] = payment.NewStripe(cfg.StripeKey)
	}
	registry := payment.NewRegistry(providers)

	notifyQueue := notify.NewQueue(jobRepo)
	orderService := order.NewService(
		cartLedger, productRepo, couponValidator, orderRepo, registry, notifyQueue, cfg.Currency)

	// HTTP routes.
	h := handler.NewHandler(cartLedger, productRepo, couponValidator, couponRepo, orderService, verifier)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(mux, "kstore-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Session-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithEviction(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Notification worker; skipped when no SMTP host is configured.
	if cfg.SMTP.Host != "" {
		worker := notify.NewWorker(notify.WorkerConfig{
			PollInterval: cfg.Notify.PollInterval,
			BatchSize:    cfg.Notify.BatchSize,
			MaxAttempts:  cfg.Notify.MaxAttempts,
		}, jobRepo, email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}))
		g.Go(func() error {
			if err := worker.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "notification worker")
			}
			return nil
		})
	} else {
		lg.Info("Email notifications disabled: no SMTP host configured")
	}

	// Graceful shutdown: drop readiness, drain, then stop the server.
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
