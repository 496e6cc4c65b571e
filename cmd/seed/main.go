package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos/internal/config"
	"pos/internal/domain/model"
	"pos/internal/infra/db"
	infraRepo "pos/internal/infra/repository"
	"pos/internal/observability"
	repo "pos/internal/repository"
)

// 開発用の商品と在庫。カタログ本体は外部サービスが持つ
var demoCatalog = []struct {
	sku      string
	name     string
	category string
	price    string
	qty      int64
	minLevel int64
}{
	{"DRIP-ESP-001", "Espresso", "coffee", "3.50", 200, 20},
	{"DRIP-LAT-001", "Caffe Latte", "coffee", "4.75", 150, 20},
	{"DRIP-CRO-001", "Butter Croissant", "bakery", "3.25", 40, 10},
	{"DRIP-BEA-250", "House Blend Beans 250g", "retail", "14.00", 25, 5},
	{"DRIP-MUG-001", "Ceramic Mug", "retail", "12.00", 8, 3},
}

func main() {
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

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	ctx := context.Background()
	txm := infraRepo.NewTxManagerGorm(gormDB)
	err = txm.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, item := range demoCatalog {
			p, err := r.Products().Create(ctx, model.Product{
				SKU:      item.sku,
				Name:     item.name,
				Category: item.category,
				Price:    decimal.RequireFromString(item.price),
				IsActive: true,
			})
			if errors.Is(err, repo.ErrDuplicate) {
				log.Info("product already seeded", zap.String("sku", item.sku))
				continue
			}
			if err != nil {
				return err
			}

			if _, err := r.Inventory().Create(ctx, model.InventoryRecord{
				ProductID:     p.ID,
				Quantity:      item.qty,
				MinStockLevel: item.minLevel,
			}); err != nil {
				return err
			}
			log.Info("seeded product", zap.Int64("product_id", p.ID), zap.String("sku", item.sku), zap.Int64("quantity", item.qty))
		}
		return nil
	})
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}
