package repository

import (
	"context"
	"errors"
	"time"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionGormRepository struct {
	db *gorm.DB
}

func NewTransactionGormRepository(db *gorm.DB) *TransactionGormRepository {
	return &TransactionGormRepository{db: db}
}

// 取引と明細を一緒にINSERTする（gormのassociation）
func (r *TransactionGormRepository) Create(ctx context.Context, txn *model.Transaction) error {
	err := r.db.WithContext(ctx).Create(txn).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrDuplicate
	}
	return err
}

func (r *TransactionGormRepository) FindByID(ctx context.Context, id int64) (model.Transaction, error) {
	return r.find(ctx, r.db.WithContext(ctx), id)
}

func (r *TransactionGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Transaction, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.find(ctx, q, id)
}

func (r *TransactionGormRepository) find(ctx context.Context, q *gorm.DB, id int64) (model.Transaction, error) {
	var t model.Transaction
	err := q.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Transaction{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}

	//明細はロックしない（作成後は不変）
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", id).Order("id asc").Find(&t.Lines).Error; err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

func (r *TransactionGormRepository) FindByIdempotencyKey(ctx context.Context, cashierID int64, key string) (model.Transaction, bool, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("cashier_id = ? AND idempotency_key = ?", cashierID, key).
		First(&t).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Transaction{}, false, nil
	}
	if err != nil {
		return model.Transaction{}, false, err
	}
	return t, true, nil
}

func (r *TransactionGormRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("receipt_number = ?", receiptNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// fromのときだけ更新（compare-and-set）
func (r *TransactionGormRepository) UpdateStatus(ctx context.Context, id int64, from, to model.TransactionStatus, notes string) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if notes != "" {
		updates["notes"] = notes
	}

	res := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}

func (r *TransactionGormRepository) List(ctx context.Context, f repo.TransactionListFilter) ([]model.Transaction, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Transaction{})

	//status 絞り込み
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	if f.CashierID != nil {
		q = q.Where("cashier_id = ?", *f.CashierID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Transaction{}, 0, err
	}

	var items []model.Transaction
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Transaction{}, 0, err
	}

	return items, total, nil
}

// 期間内のcompletedだけを集計
func (r *TransactionGormRepository) Summarize(ctx context.Context, from, to time.Time) (repo.SalesSummary, error) {
	var row struct {
		TotalSales        decimal.NullDecimal
		TotalDiscount     decimal.NullDecimal
		TotalTransactions int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("SUM(total_amount) AS total_sales, SUM(discount_amount) AS total_discount, COUNT(*) AS total_transactions").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.TransactionStatusCompleted, from, to).
		Scan(&row).Error
	if err != nil {
		return repo.SalesSummary{}, err
	}

	out := repo.SalesSummary{
		TotalSales:        decimal.Zero,
		TotalDiscount:     decimal.Zero,
		TotalTransactions: row.TotalTransactions,
	}
	if row.TotalSales.Valid {
		out.TotalSales = row.TotalSales.Decimal
	}
	if row.TotalDiscount.Valid {
		out.TotalDiscount = row.TotalDiscount.Decimal
	}
	return out, nil
}

var _ repo.TransactionRepository = (*TransactionGormRepository)(nil)
