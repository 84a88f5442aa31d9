package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chattyapp/chatty-server/internal/config"
	"github.com/chattyapp/chatty-server/internal/mail"
	"github.com/chattyapp/chatty-server/internal/queue"
	"github.com/chattyapp/chatty-server/internal/storage"
	"github.com/chattyapp/chatty-server/internal/workers"
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

	workerOpts := queue.WorkerOptions{
		MoveInterval: time.Duration(cfg.MoveDueIntervalSec) * time.Second,
	}
	authW := queue.NewWorker(queue.New("auth", rdb, logger, queueOpts), logger, workerOpts)
	userW := queue.NewWorker(queue.New("user", rdb, logger, queueOpts), logger, workerOpts)
	postW := queue.NewWorker(queue.New("post", rdb, logger, queueOpts), logger, workerOpts)
	emailW := queue.NewWorker(queue.New("email", rdb, logger, queueOpts), logger, workerOpts)

	workers.RegisterAll(authW, userW, postW, emailW, workers.Deps{
		AuthStore:   storage.NewAuthStore(db),
		UserStore:   userStore,
		PostStore:   storage.NewPostStore(db, userStore),
		Sender:      mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, logger),
		Concurrency: cfg.WorkerConcurrency,
		Log:         logger,
	})

	logger.Info("workers running")
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range []*queue.Worker{authW, userW, postW, emailW} {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		logger.Error("worker stopped", zap.Error(err))
	}
	logger.Info("workers stopped")
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
