package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

const maxReasonLen = 255

type InventoryUsecase struct {
	tx        repo.TransactionManager
	clock     Clock
	log       *zap.Logger
	txTimeout time.Duration
}

func NewInventoryUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger, txTimeout time.Duration) *InventoryUsecase {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &InventoryUsecase{tx: tx, clock: clock, log: log, txTimeout: txTimeout}
}

type InventoryOutput struct {
	ProductID     int64      `json:"product_id"`
	Quantity      int64      `json:"quantity"`
	MinStockLevel int64      `json:"min_stock_level"`
	IsLowStock    bool       `json:"is_low_stock"`
	LastRestockAt *time.Time `json:"last_restock_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type InventoryListOutput struct {
	Items []InventoryOutput `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type LowStockOutput struct {
	Count int               `json:"count"`
	Items []InventoryOutput `json:"items"`
}

type CreateInventoryInput struct {
	ProductID     int64
	Quantity      int64
	MinStockLevel int64
}

type RestockInput struct {
	Quantity int64
	Reason   string
}

// 監査ログ用
func toInventoryOutput(rec model.InventoryRecord) InventoryOutput {
	return InventoryOutput{
		ProductID:     rec.ProductID,
		Quantity:      rec.Quantity,
		MinStockLevel: rec.MinStockLevel,
		IsLowStock:    rec.IsLowStock(),
		LastRestockAt: rec.LastRestockAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// 数値だけなので文字列で組み立てる
func snapshotJSON(rec model.InventoryRecord) string {
	return `{"quantity":` + strconv.FormatInt(rec.Quantity, 10) +
		`,"min_stock_level":` + strconv.FormatInt(rec.MinStockLevel, 10) + `}`
}

func (u *InventoryUsecase) within(ctx context.Context, fn func(r repo.TxRepos) error) error {
	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()
	return u.tx.WithinTx(ctx, fn)
}

func (u *InventoryUsecase) Get(ctx context.Context, productID int64) (InventoryOutput, error) {
	if productID <= 0 {
		return InventoryOutput{}, validationError("invalid product id")
	}

	var out InventoryOutput
	err := u.within(ctx, func(r repo.TxRepos) error {
		rec, err := r.Inventory().FindByProductID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("inventory record for product %d not found", productID)
		}
		if err != nil {
			return internalError("db error", err)
		}
		out = toInventoryOutput(rec)
		return nil
	})
	if err != nil {
		return InventoryOutput{}, wrapTxError(err, "get inventory failed")
	}
	return out, nil
}

// IsLowStock は発注点以下かだけを返す
func (u *InventoryUsecase) IsLowStock(ctx context.Context, productID int64) (bool, error) {
	if productID <= 0 {
		return false, validationError("invalid product id")
	}

	var low bool
	err := u.within(ctx, func(r repo.TxRepos) error {
		v, err := r.Inventory().IsLowStock(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("inventory record for product %d not found", productID)
		}
		if err != nil {
			return internalError("db error", err)
		}
		low = v
		return nil
	})
	if err != nil {
		return false, wrapTxError(err, "low stock check failed")
	}
	return low, nil
}

func (u *InventoryUsecase) List(ctx context.Context, page, limit int) (InventoryListOutput, error) {
	page, limit = normalizePage(page, limit)

	var out InventoryListOutput
	err := u.within(ctx, func(r repo.TxRepos) error {
		recs, total, err := r.Inventory().List(ctx, page, limit)
		if err != nil {
			return internalError("db error", err)
		}
		items := make([]InventoryOutput, 0, len(recs))
		for _, rec := range recs {
			items = append(items, toInventoryOutput(rec))
		}
		out = InventoryListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return InventoryListOutput{}, wrapTxError(err, "list inventory failed")
	}
	return out, nil
}

func (u *InventoryUsecase) ListLowStock(ctx context.Context) (LowStockOutput, error) {
	var out LowStockOutput
	err := u.within(ctx, func(r repo.TxRepos) error {
		recs, err := r.Inventory().ListLowStock(ctx)
		if err != nil {
			return internalError("db error", err)
		}
		items := make([]InventoryOutput, 0, len(recs))
		for _, rec := range recs {
			items = append(items, toInventoryOutput(rec))
		}
		out = LowStockOutput{Count: len(items), Items: items}
		return nil
	})
	if err != nil {
		return LowStockOutput{}, wrapTxError(err, "list low stock failed")
	}
	return out, nil
}

// Create は商品の在庫レコードを登録する（1商品1件）
func (u *InventoryUsecase) Create(ctx context.Context, actorUserID int64, in CreateInventoryInput) (InventoryOutput, error) {
	if actorUserID <= 0 {
		return InventoryOutput{}, newError(KindUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return InventoryOutput{}, validationError("invalid product_id")
	}
	if in.Quantity < 0 {
		return InventoryOutput{}, validationError("quantity must be >= 0")
	}
	if in.MinStockLevel < 0 {
		return InventoryOutput{}, validationError("min_stock_level must be >= 0")
	}

	var out InventoryOutput
	err := u.within(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, in.ProductID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundError("product %d not found", in.ProductID)
			}
			return internalError("db error", err)
		}

		now := u.clock.Now().UTC()
		rec, err := r.Inventory().Create(ctx, model.InventoryRecord{
			ProductID:     in.ProductID,
			Quantity:      in.Quantity,
			MinStockLevel: in.MinStockLevel,
			LastRestockAt: &now,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return newError(KindConflict, "inventory record for product %d already exists", in.ProductID)
		}
		if err != nil {
			return internalError("db error", err)
		}

		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:     in.ProductID,
			ActorUserID:   actorUserID,
			Kind:          model.AdjustmentKindInitial,
			Delta:         in.Quantity,
			QuantityAfter: rec.Quantity,
			Reason:        "initial stock",
		}); err != nil {
			return internalError("db error", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionCreateInventory,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   in.ProductID,
			AfterJSON:    snapshotJSON(rec),
			CreatedAt:    now,
		}); err != nil {
			return internalError("db error", err)
		}

		out = toInventoryOutput(rec)
		return nil
	})
	if err != nil {
		return InventoryOutput{}, wrapTxError(err, "create inventory failed")
	}

	u.log.Info("inventory record created", zap.Int64("product_id", in.ProductID), zap.Int64("quantity", in.Quantity))
	return out, nil
}

// Restock は入荷分を足す。調整履歴と監査ログを同じトランザクションで残す
func (u *InventoryUsecase) Restock(ctx context.Context, actorUserID, productID int64, in RestockInput) (InventoryOutput, error) {
	if actorUserID <= 0 {
		return InventoryOutput{}, newError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, validationError("invalid product id")
	}
	if in.Quantity < 1 {
		return InventoryOutput{}, validationError("quantity must be >= 1")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "restock"
	}
	if len(reason) > maxReasonLen {
		return InventoryOutput{}, validationError("reason must be at most %d characters", maxReasonLen)
	}

	var out InventoryOutput
	err := u.within(ctx, func(r repo.TxRepos) error {
		before, err := r.Inventory().FindByProductID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("inventory record for product %d not found", productID)
		}
		if err != nil {
			return internalError("db error", err)
		}

		after, err := r.Inventory().Restock(ctx, productID, in.Quantity)
		if err != nil {
			return internalError("db error", err)
		}

		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:     productID,
			ActorUserID:   actorUserID,
			Kind:          model.AdjustmentKindRestock,
			Delta:         in.Quantity,
			QuantityAfter: after.Quantity,
			Reason:        reason,
		}); err != nil {
			return internalError("db error", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   productID,
			BeforeJSON:   snapshotJSON(before),
			AfterJSON:    snapshotJSON(after),
			CreatedAt:    u.clock.Now().UTC(),
		}); err != nil {
			return internalError("db error", err)
		}

		out = toInventoryOutput(after)
		return nil
	})
	if err != nil {
		return InventoryOutput{}, wrapTxError(err, "restock failed")
	}

	u.log.Info("inventory restocked", zap.Int64("product_id", productID), zap.Int64("quantity", in.Quantity))
	return out, nil
}

func (u *InventoryUsecase) UpdateMinStockLevel(ctx context.Context, actorUserID, productID, level int64) (InventoryOutput, error) {
	if actorUserID <= 0 {
		return InventoryOutput{}, newError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return InventoryOutput{}, validationError("invalid product id")
	}
	if level < 0 {
		return InventoryOutput{}, validationError("min_stock_level must be >= 0")
	}

	var out InventoryOutput
	err := u.within(ctx, func(r repo.TxRepos) error {
		before, err := r.Inventory().FindByProductID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("inventory record for product %d not found", productID)
		}
		if err != nil {
			return internalError("db error", err)
		}

		if err := r.Inventory().UpdateMinStockLevel(ctx, productID, level); err != nil {
			return internalError("db error", err)
		}
		after := before
		after.MinStockLevel = level
		after.UpdatedAt = u.clock.Now().UTC()

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   productID,
			BeforeJSON:   snapshotJSON(before),
			AfterJSON:    snapshotJSON(after),
			CreatedAt:    after.UpdatedAt,
		}); err != nil {
			return internalError("db error", err)
		}

		out = toInventoryOutput(after)
		return nil
	})
	if err != nil {
		return InventoryOutput{}, wrapTxError(err, "update min stock level failed")
	}
	return out, nil
}
