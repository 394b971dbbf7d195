package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/authgate/session-auth/internal/api"
	"github.com/authgate/session-auth/internal/api/cookie"
	"github.com/authgate/session-auth/internal/api/handler"
	"github.com/authgate/session-auth/internal/core/service"
	mongodb "github.com/authgate/session-auth/internal/infrastructure/db/mongo"
	redisdb "github.com/authgate/session-auth/internal/infrastructure/db/redis"
	"github.com/authgate/session-auth/internal/infrastructure/queue"
	"github.com/authgate/session-auth/internal/pkg/config"
	"github.com/authgate/session-auth/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "session-auth",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("config loaded, connecting to MongoDB and Redis...")

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "session-auth",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	hasher := queue.NewDispatcher(cfg.Hashing.Workers, service.NewBcryptHasher(cfg.Hashing.Cost), log)
	hasher.Start(workerCtx)

	router := api.NewRouter(api.Deps{
		Users:    users,
		Sessions: redisdb.NewSessionStore(rdb, cfg.Session.TTL),
		Hasher:   hasher,
		Events:   mongodb.NewEventRepository(db),
		Cookies:  cookie.NewCodec(cfg.Session.Secret, !cfg.IsDevelopment()),
		Timeouts: service.Timeouts{
			Hash:  cfg.Hashing.Timeout,
			Store: cfg.StoreTimeout,
		},
		Checks: map[string]handler.Pinger{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	stopWorkers()
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect failed")
	}
}
