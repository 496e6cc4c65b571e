package model

import "time"

// AdjustmentKind は販売・取消以外で在庫が動いた理由の区分。
type AdjustmentKind string

const (
	// 在庫レコードの新規登録
	AdjustmentKindInitial AdjustmentKind = "initial"
	// 入荷
	AdjustmentKindRestock AdjustmentKind = "restock"
)

// InventoryAdjustment は管理者による在庫の手動変更1回分。
// 販売と取消・返品は取引明細から追えるのでここには残さない
type InventoryAdjustment struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64          `gorm:"not null;index" json:"product_id"`
	ActorUserID int64          `gorm:"not null;index" json:"actor_user_id"`
	Kind        AdjustmentKind `gorm:"type:varchar(16);not null" json:"kind"`
	Delta       int64          `gorm:"not null" json:"delta"`
	// 調整後の在庫数（棚卸しの突き合わせ用）
	QuantityAfter int64     `gorm:"not null" json:"quantity_after"`
	Reason        string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
