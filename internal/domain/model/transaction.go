package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// 許可される遷移はここに書いたものだけ。cancelled / refunded は終端
var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusCompleted: {TransactionStatusCancelled, TransactionStatusRefunded},
}

// ParseTransactionStatus は外部入力を閉じた列挙に変換する。
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(s); st {
	case TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusRefunded:
		return st, nil
	default:
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
}

func (s TransactionStatus) IsTerminal() bool {
	return len(transactionTransitions[s]) == 0
}

// CanTransitionTo は遷移表に from→to があるかだけを見る（自己遷移も不可）。
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	for _, next := range transactionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// 販売1件。作成はCheckoutだけ、statusの変更は状態遷移だけが行う。物理削除しない
type Transaction struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	CashierID      int64             `gorm:"not null;index;uniqueIndex:idx_transactions_cashier_idempotency,priority:1" json:"cashier_id"`
	ReceiptNumber  string            `gorm:"type:varchar(32);not null;uniqueIndex" json:"receipt_number"`
	Subtotal       decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	TotalAmount    decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Payment        Payment           `gorm:"type:text;serializer:json;not null" json:"payment"`
	CustomerEmail  *string           `gorm:"type:varchar(255)" json:"customer_email"`
	Status         TransactionStatus `gorm:"type:varchar(20);not null;index;default:'completed'" json:"status"`
	Notes          string            `gorm:"type:text" json:"notes"`
	IdempotencyKey *string           `gorm:"type:varchar(255);uniqueIndex:idx_transactions_cashier_idempotency,priority:2" json:"-"`
	CreatedAt      time.Time         `gorm:"not null;index;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Lines []TransactionLine `gorm:"foreignKey:TransactionID" json:"lines"`
}
