package model

import "time"

// 商品ごとの在庫カウンタ（Productと1:1）
// quantityは在庫台帳（InventoryRepository）経由でしか更新しない
type InventoryRecord struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID     int64      `gorm:"not null;uniqueIndex" json:"product_id"`
	Quantity      int64      `gorm:"not null;check:chk_inventory_quantity_non_negative,quantity >= 0" json:"quantity"`
	MinStockLevel int64      `gorm:"not null;default:0" json:"min_stock_level"`
	LastRestockAt *time.Time `json:"last_restock_at"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 発注点以下なら要補充。販売は止めない
func (r InventoryRecord) IsLowStock() bool {
	return r.Quantity <= r.MinStockLevel
}
