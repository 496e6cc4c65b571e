package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 販売明細。親と同じトランザクションで作成し、その後は変更しない
// 単価・商品名・値引率は販売時点のスナップショット
type TransactionLine struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID   int64           `gorm:"not null;index" json:"transaction_id"`
	ProductID       int64           `gorm:"not null;index" json:"product_id"`
	ProductName     string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity        int64           `gorm:"not null;check:chk_transaction_lines_quantity_positive,quantity >= 1" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"`
	LineSubtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_subtotal"`
	LineTotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
