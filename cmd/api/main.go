package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pos/internal/config"
	"pos/internal/domain/receipt"
	"pos/internal/handler"
	"pos/internal/infra/cache"
	"pos/internal/infra/db"
	infraRepo "pos/internal/infra/repository"
	"pos/internal/observability"
	repo "pos/internal/repository"
	"pos/internal/server"
	"pos/internal/usecase"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは任意（本番は環境変数で渡す）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := observability.NewLogger(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint, cfg.OtelAuthHeader)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//冪等キーの同時実行ガード（REDIS_ADDRが空なら無効）
	var guard repo.IdempotencyGuard = cache.NoopIdempotencyGuard{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		guard = cache.NewRedisIdempotencyGuard(rdb)
	}

	clock := &realClock{}
	receipts, err := receipt.NewGenerator(cfg.ReceiptPrefix, clock)
	if err != nil {
		return err
	}

	//Repository（GORM実装）
	txm := infraRepo.NewTxManagerGorm(gormDB)
	tracer := observability.Tracer()

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(txm, guard, receipts, clock, log, tracer, usecase.CheckoutOptions{
		MaxReceiptAttempts: cfg.ReceiptMaxAttempts,
		TxTimeout:          cfg.TxTimeout,
		IdempotencyTTL:     cfg.IdempotencyTTL,
	})
	statusUC := usecase.NewTransactionStatusUsecase(txm, clock, log, tracer, cfg.TxTimeout)
	queryUC := usecase.NewTransactionQueryUsecase(txm, cfg.TxTimeout)
	inventoryUC := usecase.NewInventoryUsecase(txm, clock, log, cfg.TxTimeout)
	auditUC := usecase.NewAuditLogUsecase(txm, cfg.TxTimeout)

	//Handler生成
	srv := server.New(":"+cfg.Port, cfg.JWTSecret, log, server.Handlers{
		Transactions: handler.NewTransactionHandler(checkoutUC, statusUC, queryUC),
		Inventory:    handler.NewInventoryHandler(inventoryUC),
		AuditLogs:    handler.NewAuditLogHandler(auditUC),
		Health: handler.NewHealthHandler(func(ctx context.Context) error {
			return db.Ping(ctx, gormDB)
		}),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
