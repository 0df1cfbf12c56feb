package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	pkgdb "github.com/rentrover/rentrover/pkg/database"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/database"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/events"
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
	if cfg.Queue.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is not set")
		os.Exit(1)
	}

	// Handle graceful shutdown
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

	// 2. Connect to RabbitMQ (outbox events, and the bid queue for the rabbitmq driver)
	amqpConn, err := amqp.Dial(cfg.Queue.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	bidQueue, closeQueue, err := queue.Open(cfg.Queue, cfg.AWS, amqpConn)
	if err != nil {
		logger.Error("Failed to open bid queue", "error", err)
		os.Exit(1)
	}
	defer closeQueue()

	// 3. Push events go through Redis to whichever API process holds the session
	var pusher bids.Pusher = realtime.NewLogPusher(logger)
	if cfg.Redis.URL != "" {
		rdb, err := realtime.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		pusher = realtime.NewRedisPusher(rdb)
		logger.Info("Redis Connected")
	}

	var notifier bids.Notifier = notify.NewLogNotifier(logger)
	if cfg.SMTP.Enabled() {
		notifier = notify.NewSMTPMailer(notify.SMTPOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, nil, logger)
	}

	// 4. Initialize Service
	service := bids.NewService(bids.Dependencies{
		TxManager: pkgdb.NewPostgresTransactionManager(pool, cfg.Database.LockTimeout),
		Bids:      database.NewPostgresBidRepository(pool),
		Bookings:  database.NewPostgresBookingRepository(pool),
		Outbox:    database.NewPostgresOutboxRepository(pool),
		Catalog:   database.NewPostgresVehicleRepository(pool),
		Queue:     bidQueue,
		Notifier:  notifier,
		Pusher:    pusher,
		Logger:    logger,
	}, bids.Config{
		NotifyConcurrency: cfg.Notify.Concurrency,
		NotifyTimeout:     cfg.Notify.Timeout,
	})

	// 5. Initialize Consumer and Producer
	consumer := events.NewBidQueueConsumer(bidQueue, service, cfg.Queue.PollInterval, cfg.Queue.BatchSize, logger)

	producer, err := events.NewBidEventsProducer(pool, amqpConn, events.ProducerOptions{
		Exchange:    cfg.Outbox.Exchange,
		BatchSize:   cfg.Outbox.BatchSize,
		Interval:    cfg.Outbox.Interval,
		LockTimeout: cfg.Database.LockTimeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to create producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if backlog, err := producer.Backlog(ctx); err != nil {
		logger.Warn("Failed to read outbox backlog", "error", err)
	} else {
		logger.Info("Outbox backlog", "pending", backlog)
	}

	// Both loops return nil on context cancel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Bid Queue Consumer...")
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Bid Events Producer...")
		return producer.Run(gctx)
	})

	runErr := g.Wait()
	service.Drain()
	if runErr != nil {
		logger.Error("Worker failed", "error", runErr)
		os.Exit(1)
	}

	logger.Info("Worker stopped")
}
