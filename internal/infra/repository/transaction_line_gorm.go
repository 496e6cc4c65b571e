package repository

import (
	"context"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
)

type TransactionLineGormRepository struct {
	db *gorm.DB
}

func NewTransactionLineGormRepository(db *gorm.DB) *TransactionLineGormRepository {
	return &TransactionLineGormRepository{db: db}
}

func (r *TransactionLineGormRepository) ListByTransactionID(ctx context.Context, transactionID int64) ([]model.TransactionLine, error) {
	var lines []model.TransactionLine
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Order("id asc").Find(&lines).Error
	if err != nil {
		return []model.TransactionLine{}, err
	}
	return lines, nil
}

// 一覧表示用。N+1を避けて1クエリで取る
func (r *TransactionLineGormRepository) ListByTransactionIDs(ctx context.Context, transactionIDs []int64) (map[int64][]model.TransactionLine, error) {
	out := make(map[int64][]model.TransactionLine, len(transactionIDs))
	if len(transactionIDs) == 0 {
		return out, nil
	}

	var lines []model.TransactionLine
	err := r.db.WithContext(ctx).
		Where("transaction_id IN ?", transactionIDs).
		Order("transaction_id asc").
		Order("id asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		out[l.TransactionID] = append(out[l.TransactionID], l)
	}
	return out, nil
}

var _ repo.TransactionLineRepository = (*TransactionLineGormRepository)(nil)
