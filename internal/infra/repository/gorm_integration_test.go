package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pos/internal/config"
	"pos/internal/domain/model"
	"pos/internal/domain/receipt"
	infradb "pos/internal/infra/db"
	"pos/internal/infra/cache"
	gormrepo "pos/internal/infra/repository"
	repo "pos/internal/repository"
	"pos/internal/usecase"
)

// TEST_DATABASE_URL（postgres）があるときだけ動く
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	gdb, err := infradb.Connect(config.Config{
		DBDriver:       config.DriverPostgres,
		DatabaseURL:    dsn,
		GoEnv:          "prod",
		DBMaxOpenConns: 20,
		DBMaxIdleConns: 5,
	})
	require.NoError(t, err)
	require.NoError(t, infradb.Migrate(gdb))
	require.NoError(t, gdb.Exec(
		"TRUNCATE audit_logs, transaction_lines, transactions, inventory_adjustments, inventory_records, products RESTART IDENTITY CASCADE",
	).Error)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, sku, price string, qty, minLevel int64) model.Product {
	t.Helper()
	ctx := context.Background()

	p, err := gormrepo.NewProductGormRepository(gdb).Create(ctx, model.Product{
		Name:     sku,
		SKU:      sku,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	})
	require.NoError(t, err)

	_, err = gormrepo.NewInventoryGormRepository(gdb).Create(ctx, model.InventoryRecord{
		ProductID:     p.ID,
		Quantity:      qty,
		MinStockLevel: minLevel,
	})
	require.NoError(t, err)
	return p
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func newCheckoutUsecase(t *testing.T, gdb *gorm.DB) *usecase.CheckoutUsecase {
	t.Helper()
	gen, err := receipt.NewGenerator("DRIP", wallClock{})
	require.NoError(t, err)
	return usecase.NewCheckoutUsecase(gormrepo.NewTxManagerGorm(gdb), cache.NoopIdempotencyGuard{}, gen, wallClock{},
		zap.NewNop(), noop.NewTracerProvider().Tracer("test"), usecase.CheckoutOptions{TxTimeout: 5 * time.Second})
}

func TestInventoryGorm_CheckAndReserve(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, gdb, "SKU-RES", "1.00", 3, 0)
	inv := gormrepo.NewInventoryGormRepository(gdb)

	ok, err := inv.CheckAndReserve(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inv.CheckAndReserve(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = inv.CheckAndReserve(ctx, p.ID+1000, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	//0以下の数量で在庫が増えない
	_, err = inv.CheckAndReserve(ctx, p.ID, -2)
	assert.ErrorIs(t, err, repo.ErrInvalidQuantity)
	assert.ErrorIs(t, inv.Restore(ctx, p.ID, 0), repo.ErrInvalidQuantity)

	rec, err := inv.FindByProductID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Quantity)
}

// 同じ行への同時減算で在庫がマイナスにならない
func TestInventoryGorm_CheckAndReserve_Concurrent(t *testing.T) {
	gdb := openTestDB(t)
	p := seedProduct(t, gdb, "SKU-RACE", "1.00", 10, 0)
	inv := gormrepo.NewInventoryGormRepository(gdb)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := inv.CheckAndReserve(context.Background(), p.ID, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rec, err := inv.FindByProductID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, won)
	assert.Equal(t, int64(0), rec.Quantity)
}

func TestInventoryGorm_CreateDuplicate_Restock_LowStock(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, gdb, "SKU-LOW", "1.00", 2, 5)
	inv := gormrepo.NewInventoryGormRepository(gdb)

	_, err := inv.Create(ctx, model.InventoryRecord{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	low, err := inv.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ProductID)

	rec, err := inv.Restock(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), rec.Quantity)
	assert.NotNil(t, rec.LastRestockAt)

	isLow, err := inv.IsLowStock(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, isLow)
}

// 会計から返品までを実DBで通す
func TestCheckoutAndRefund_Postgres(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	a := seedProduct(t, gdb, "SKU-A", "100.00", 10, 8)
	b := seedProduct(t, gdb, "SKU-B", "50.00", 5, 0)

	out, err := newCheckoutUsecase(t, gdb).Checkout(ctx, 7, usecase.CheckoutInput{
		Items: []usecase.CheckoutItemInput{
			{ProductID: a.ID, Quantity: 2, DiscountPercent: decimal.NewFromInt(10)},
			{ProductID: b.ID, Quantity: 1},
		},
		Payment:        model.NewCashPayment(decimal.NewFromInt(300)),
		IdempotencyKey: "till-1-0001",
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("230").Equal(out.Transaction.TotalAmount))
	assert.Equal(t, []int64{a.ID}, out.LowStockProductIDs)

	replay, err := newCheckoutUsecase(t, gdb).Checkout(ctx, 7, usecase.CheckoutInput{
		Items:          []usecase.CheckoutItemInput{{ProductID: b.ID, Quantity: 1}},
		Payment:        model.NewCashPayment(decimal.NewFromInt(50)),
		IdempotencyKey: "till-1-0001",
	})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, out.Transaction.ID, replay.Transaction.ID)

	inv := gormrepo.NewInventoryGormRepository(gdb)
	recA, err := inv.FindByProductID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), recA.Quantity)

	status := usecase.NewTransactionStatusUsecase(gormrepo.NewTxManagerGorm(gdb), wallClock{}, zap.NewNop(),
		noop.NewTracerProvider().Tracer("test"), 5*time.Second)
	refunded, err := status.Refund(ctx, 42, out.Transaction.ID, "damaged")
	require.NoError(t, err)
	assert.Equal(t, "refunded", refunded.Status)

	_, err = status.Cancel(ctx, 42, out.Transaction.ID, "")
	assert.True(t, usecase.IsKind(err, usecase.KindInvalidStateTransition))

	recA, err = inv.FindByProductID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), recA.Quantity)

	logs, err := gormrepo.NewAuditLogGormRepository(gdb).List(ctx, repo.AuditLogFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateTransactionStatus, logs[0].Action)

	summary, err := gormrepo.NewTransactionGormRepository(gdb).Summarize(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalTransactions)
}
