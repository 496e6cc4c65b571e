package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	products     repo.ProductRepository
	inventory    repo.InventoryRepository
	transactions repo.TransactionRepository
	lines        repo.TransactionLineRepository
	audit        repo.AuditLogRepository
}

func (r *TxReposMock) Products() repo.ProductRepository                 { return r.products }
func (r *TxReposMock) Inventory() repo.InventoryRepository              { return r.inventory }
func (r *TxReposMock) Transactions() repo.TransactionRepository         { return r.transactions }
func (r *TxReposMock) TransactionLines() repo.TransactionLineRepository { return r.lines }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository               { return r.audit }

// =====================
// Repository mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).(map[int64]model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in usecase tests")
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) CheckAndReserve(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) Restore(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) IsLowStock(ctx context.Context, productID int64) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) FindByProductID(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	args := m.Called(ctx, productID)
	rec, _ := args.Get(0).(model.InventoryRecord)
	return rec, args.Error(1)
}

func (m *InventoryRepoMock) FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]model.InventoryRecord, error) {
	args := m.Called(ctx, productIDs)
	out, _ := args.Get(0).(map[int64]model.InventoryRecord)
	return out, args.Error(1)
}

func (m *InventoryRepoMock) List(ctx context.Context, page int, limit int) ([]model.InventoryRecord, int64, error) {
	args := m.Called(ctx, page, limit)
	items, _ := args.Get(0).([]model.InventoryRecord)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *InventoryRepoMock) ListLowStock(ctx context.Context) ([]model.InventoryRecord, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.InventoryRecord)
	return items, args.Error(1)
}

func (m *InventoryRepoMock) Create(ctx context.Context, rec model.InventoryRecord) (model.InventoryRecord, error) {
	args := m.Called(ctx, rec)
	created, _ := args.Get(0).(model.InventoryRecord)
	return created, args.Error(1)
}

func (m *InventoryRepoMock) Restock(ctx context.Context, productID int64, qty int64) (model.InventoryRecord, error) {
	args := m.Called(ctx, productID, qty)
	rec, _ := args.Get(0).(model.InventoryRecord)
	return rec, args.Error(1)
}

func (m *InventoryRepoMock) UpdateMinStockLevel(ctx context.Context, productID int64, level int64) error {
	args := m.Called(ctx, productID, level)
	return args.Error(0)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	args := m.Called(ctx, adj)
	return args.Error(0)
}

type TransactionRepoMock struct{ mock.Mock }

func (m *TransactionRepoMock) Create(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *TransactionRepoMock) FindByID(ctx context.Context, id int64) (model.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(model.Transaction)
	return t, args.Error(1)
}

func (m *TransactionRepoMock) FindByIDForUpdate(ctx context.Context, id int64) (model.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(model.Transaction)
	return t, args.Error(1)
}

func (m *TransactionRepoMock) FindByIdempotencyKey(ctx context.Context, cashierID int64, key string) (model.Transaction, bool, error) {
	args := m.Called(ctx, cashierID, key)
	t, _ := args.Get(0).(model.Transaction)
	return t, args.Bool(1), args.Error(2)
}

func (m *TransactionRepoMock) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	args := m.Called(ctx, receiptNumber)
	return args.Bool(0), args.Error(1)
}

func (m *TransactionRepoMock) UpdateStatus(ctx context.Context, id int64, from, to model.TransactionStatus, notes string) error {
	args := m.Called(ctx, id, from, to, notes)
	return args.Error(0)
}

func (m *TransactionRepoMock) List(ctx context.Context, f repo.TransactionListFilter) ([]model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]model.Transaction)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *TransactionRepoMock) Summarize(ctx context.Context, from, to time.Time) (repo.SalesSummary, error) {
	args := m.Called(ctx, from, to)
	s, _ := args.Get(0).(repo.SalesSummary)
	return s, args.Error(1)
}

type TransactionLineRepoMock struct{ mock.Mock }

func (m *TransactionLineRepoMock) ListByTransactionID(ctx context.Context, transactionID int64) ([]model.TransactionLine, error) {
	args := m.Called(ctx, transactionID)
	lines, _ := args.Get(0).([]model.TransactionLine)
	return lines, args.Error(1)
}

func (m *TransactionLineRepoMock) ListByTransactionIDs(ctx context.Context, transactionIDs []int64) (map[int64][]model.TransactionLine, error) {
	args := m.Called(ctx, transactionIDs)
	out, _ := args.Get(0).(map[int64][]model.TransactionLine)
	return out, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

var (
	_ repo.TransactionManager        = (*TxManagerMock)(nil)
	_ repo.ProductRepository         = (*ProductRepoMock)(nil)
	_ repo.InventoryRepository       = (*InventoryRepoMock)(nil)
	_ repo.TransactionRepository     = (*TransactionRepoMock)(nil)
	_ repo.TransactionLineRepository = (*TransactionLineRepoMock)(nil)
	_ repo.AuditLogRepository        = (*AuditRepoMock)(nil)
)
