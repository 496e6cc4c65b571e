package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pos/internal/domain/model"
)

type TransactionListFilter struct {
	Page      int
	Limit     int
	Status    *model.TransactionStatus
	CashierID *int64
	From      *time.Time
	To        *time.Time
}

// 期間集計（completedのみ）
type SalesSummary struct {
	TotalSales        decimal.Decimal
	TotalDiscount     decimal.Decimal
	TotalTransactions int64
}

type TransactionRepository interface {
	// 明細ごと1件作成する。レシート番号・冪等キーの重複はErrDuplicate
	Create(ctx context.Context, txn *model.Transaction) error

	FindByID(ctx context.Context, id int64) (model.Transaction, error)

	// 行ロック付きで取得（状態遷移用）
	FindByIDForUpdate(ctx context.Context, id int64) (model.Transaction, error)

	// 同じキーなら同じ結果を返すための検索
	FindByIdempotencyKey(ctx context.Context, cashierID int64, key string) (model.Transaction, bool, error)

	ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error)

	// fromの状態のときだけ更新する。0件ならErrConflict
	UpdateStatus(ctx context.Context, id int64, from, to model.TransactionStatus, notes string) error

	List(ctx context.Context, f TransactionListFilter) ([]model.Transaction, int64, error)

	Summarize(ctx context.Context, from, to time.Time) (SalesSummary, error)
}
