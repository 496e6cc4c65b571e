package repository

import (
	"context"

	repo "pos/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products         repo.ProductRepository
	inventory        repo.InventoryRepository
	transactions     repo.TransactionRepository
	transactionLines repo.TransactionLineRepository
	auditLogs        repo.AuditLogRepository
}

func (r *txReposGorm) Products() repo.ProductRepository                 { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository              { return r.inventory }
func (r *txReposGorm) Transactions() repo.TransactionRepository         { return r.transactions }
func (r *txReposGorm) TransactionLines() repo.TransactionLineRepository { return r.transactionLines }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository               { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:         NewProductGormRepository(tx),
			inventory:        NewInventoryGormRepository(tx),
			transactions:     NewTransactionGormRepository(tx),
			transactionLines: NewTransactionLineGormRepository(tx),
			auditLogs:        NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}

var _ repo.TransactionManager = (*TxManagerGorm)(nil)
