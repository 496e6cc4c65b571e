package repository

import (
	"context"

	"pos/internal/domain/model"
)

// 在庫台帳。在庫数を変えるのはこのインターフェースだけ
type InventoryRepository interface {
	// 在庫が足りるときだけ1文で減算する。足りなければfalseで在庫は変えない
	// レコードが無ければErrNotFound
	CheckAndReserve(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（取消・返品）
	Restore(ctx context.Context, productID int64, qty int64) error

	// 発注点以下か（販売は止めない）
	IsLowStock(ctx context.Context, productID int64) (bool, error)

	FindByProductID(ctx context.Context, productID int64) (model.InventoryRecord, error)
	FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]model.InventoryRecord, error)
	List(ctx context.Context, page int, limit int) ([]model.InventoryRecord, int64, error)
	ListLowStock(ctx context.Context) ([]model.InventoryRecord, error)

	// 既にあればErrDuplicate
	Create(ctx context.Context, rec model.InventoryRecord) (model.InventoryRecord, error)

	// 入荷。数量を足してlast_restock_atを更新
	Restock(ctx context.Context, productID int64, qty int64) (model.InventoryRecord, error)

	UpdateMinStockLevel(ctx context.Context, productID int64, level int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
