package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/danielhkuo/predictroom/cliparse"
	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/db"
	"github.com/danielhkuo/predictroom/middleware"
	"github.com/danielhkuo/predictroom/oracle"
	"github.com/danielhkuo/predictroom/router"
	"github.com/danielhkuo/predictroom/store"
	"github.com/danielhkuo/predictroom/store/redisstore"
	"github.com/danielhkuo/predictroom/store/sqlstore"
	"github.com/danielhkuo/predictroom/worker"
)

const janitorInterval = time.Hour

func main() {
	var err error

	// Parse configuration
	if err := cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the configured store
	var backend store.Backend
	switch cfg.StoreBackend {
	case cliparse.BackendRedis:
		client, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		backend = redisstore.New(client, redisstore.WithTTL(cfg.RoomTTL)).Backend()
		slog.Info("Redis store ready")
	default:
		dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer dbConn.Close()

		// Create schema (tables)
		if err := db.CreateSchema(dbConn); err != nil {
			slog.Error("schema creation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database schema ready", "type", cfg.DatabaseType)

		sqlStore := sqlstore.New(dbConn, cfg.DatabaseType, sqlstore.WithTTL(cfg.RoomTTL))
		go sqlStore.RunJanitor(ctx, janitorInterval)
		backend = sqlStore.Backend()
	}

	// Failed credits are logged, or queued for retry when enabled
	var opts []coordinator.Option
	var redisOpt asynq.RedisConnOpt
	if cfg.CreditQueue {
		redisOpt, err = worker.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			slog.Error("credit queue setup failed", "error", err)
			os.Exit(1)
		}
		queue := asynq.NewClient(redisOpt)
		defer queue.Close()
		opts = append(opts, coordinator.WithCreditSink(worker.NewEnqueuer(queue)))
	}

	coord := coordinator.New(backend, opts...)

	if cfg.CreditQueue {
		creditWorker := worker.NewServer(redisOpt, worker.NewCreditHandler(coord))
		if err := creditWorker.Start(); err != nil {
			slog.Error("credit worker failed", "error", err)
			os.Exit(1)
		}
		defer creditWorker.Shutdown()
	}

	// Create router
	mux := router.NewRouter(coord, oracle.NewClient(cfg.OracleURL, nil, oracle.WithQuerySuffix(cfg.OracleSuffix)), cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "store", cfg.StoreBackend, "credit_queue", cfg.CreditQueue)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
