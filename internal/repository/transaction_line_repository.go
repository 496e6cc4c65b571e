package repository

import (
	"context"

	"pos/internal/domain/model"
)

type TransactionLineRepository interface {
	ListByTransactionID(ctx context.Context, transactionID int64) ([]model.TransactionLine, error)
	ListByTransactionIDs(ctx context.Context, transactionIDs []int64) (map[int64][]model.TransactionLine, error)
}
