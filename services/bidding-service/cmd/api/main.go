package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/rentrover/rentrover/pkg/auth"
	pkgdb "github.com/rentrover/rentrover/pkg/database"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/api"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/database"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/notify"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/queue"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/realtime"
	"github.com/rentrover/rentrover/services/bidding-service/internal/config"
	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Open the bid queue
	var amqpConn *amqp.Connection
	if cfg.Queue.Driver == config.QueueDriverRabbitMQ {
		amqpConn, err = amqp.Dial(cfg.Queue.RabbitMQURL)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpConn.Close()
		logger.Info("RabbitMQ Connected")
	}

	bidQueue, closeQueue, err := queue.Open(cfg.Queue, cfg.AWS, amqpConn)
	if err != nil {
		logger.Error("Failed to open bid queue", "error", err)
		os.Exit(1)
	}
	defer closeQueue()
	logger.Info("Bid queue ready", "driver", cfg.Queue.Driver)

	// 3. Real-time push: Redis fan-out when configured, local hub otherwise
	hub := realtime.NewHub(logger)
	var pusher bids.Pusher = hub
	if cfg.Redis.URL != "" {
		rdb, err := realtime.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		logger.Info("Redis Connected")

		pusher = realtime.NewRedisPusher(rdb)
		relay := realtime.NewRedisRelay(rdb, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("Push relay stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, push events reach this process only")
	}

	// 4. Identity
	publicKey, err := os.ReadFile(cfg.JWT.PublicKeyPath)
	if err != nil {
		logger.Error("Failed to read JWT public key", "path", cfg.JWT.PublicKeyPath, "error", err)
		os.Exit(1)
	}
	signer, err := auth.NewSignerFromPublicKey(publicKey, cfg.JWT.Issuer)
	if err != nil {
		logger.Error("Failed to parse JWT public key", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.Database.LockTimeout)

	// 6. Initialize Service (Domain Layer)
	service := bids.NewService(bids.Dependencies{
		TxManager: txManager,
		Bids:      database.NewPostgresBidRepository(pool),
		Bookings:  database.NewPostgresBookingRepository(pool),
		Outbox:    database.NewPostgresOutboxRepository(pool),
		Catalog:   database.NewPostgresVehicleRepository(pool),
		Queue:     bidQueue,
		Notifier:  newNotifier(cfg.SMTP, logger),
		Pusher:    pusher,
		Logger:    logger,
	}, bids.Config{
		NotifyConcurrency: cfg.Notify.Concurrency,
		NotifyTimeout:     cfg.Notify.Timeout,
	})

	// 7. HTTP surface
	gin.SetMode(gin.ReleaseMode)
	var middleware []gin.HandlerFunc
	if len(cfg.HTTP.CORSAllowedOrigins) > 0 {
		middleware = append(middleware, cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router := api.NewRouter(api.RouterOptions{
		Bids:       api.NewBidHandler(service, logger),
		Signer:     signer,
		WebSocket:  realtime.NewHandler(hub, originChecker(cfg.HTTP.CORSAllowedOrigins), logger).ServeWS,
		Middleware: middleware,
	})

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting Bidding Service API", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// Let in-flight notifications finish before closing their dependencies
	service.Drain()
	logger.Info("API stopped")
}

func newNotifier(cfg config.SMTPConfig, logger *slog.Logger) bids.Notifier {
	if !cfg.Enabled() {
		logger.Warn("SMTP_HOST not set, emails are logged only")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSMTPMailer(notify.SMTPOptions{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	}, nil, logger)
}

// originChecker allows WebSocket upgrades from the CORS origins, or any
// origin when none are configured
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
