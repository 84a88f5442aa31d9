package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/api"
	"github.com/chattyapp/chatty-server/internal/cache"
	"github.com/chattyapp/chatty-server/internal/config"
	"github.com/chattyapp/chatty-server/internal/images"
	"github.com/chattyapp/chatty-server/internal/queue"
	"github.com/chattyapp/chatty-server/internal/realtime"
	"github.com/chattyapp/chatty-server/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := r.NewClient(&r.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis unreachable", zap.Error(err))
	}

	db, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo unreachable", zap.Error(err))
	}

	userStore := storage.NewUserStore(db)
	queueOpts := queue.Options{
		MaxAttempts: cfg.QueueMaxAttempts,
		Backoff:     time.Duration(cfg.QueueBackoffSec) * time.Second,
	}

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	server := api.NewServer(cfg, logger, api.Deps{
		UserCache:     cache.NewUserCache(rdb, logger),
		PostCache:     cache.NewPostCache(rdb, logger),
		AuthStore:     storage.NewAuthStore(db),
		UserStore:     userStore,
		PostStore:     storage.NewPostStore(db, userStore),
		AuthQueue:     queue.New("auth", rdb, logger, queueOpts),
		UserQueue:     queue.New("user", rdb, logger, queueOpts),
		PostQueue:     queue.New("post", rdb, logger, queueOpts),
		EmailQueue:    queue.New("email", rdb, logger, queueOpts),
		Emitter:       hub,
		Uploader:      images.NewHTTPUploader(cfg.CloudAPIURL),
		SocketHandler: hub,
	})

	srv := &http.Server{Addr: cfg.APIAddr, Handler: server.Router()}

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
