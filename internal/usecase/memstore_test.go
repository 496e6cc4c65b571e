package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

// =====================
// in-memory store（WithinTxを直列化し、失敗したらスナップショットに戻す）
// =====================

type memStore struct {
	mu sync.Mutex

	products    map[int64]model.Product
	inventory   map[int64]model.InventoryRecord
	adjustments []model.InventoryAdjustment
	txns        map[int64]model.Transaction
	audit       []model.AuditLog

	nextTxnID   int64
	nextLineID  int64
	nextAuditID int64

	// 既存のレシート番号（ExistsByReceiptNumberで使用済み扱い）
	takenReceipts map[string]bool
	// Createを指定回数だけErrDuplicateで失敗させる
	failCreateDuplicate int
	// 呼ばれた回数
	withinTxCalls int
}

type memSnapshot struct {
	inventory     map[int64]model.InventoryRecord
	txns          map[int64]model.Transaction
	adjustments   int
	audit         int
	nextTxnID     int64
	nextLineID    int64
	nextAuditID   int64
	takenReceipts map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		products:      map[int64]model.Product{},
		inventory:     map[int64]model.InventoryRecord{},
		txns:          map[int64]model.Transaction{},
		takenReceipts: map[string]bool{},
	}
}

func (s *memStore) addProduct(id int64, name string, price string, stock int64, minLevel int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = model.Product{ID: id, Name: name, SKU: name, Price: decimal.RequireFromString(price), IsActive: true}
	s.inventory[id] = model.InventoryRecord{ID: id, ProductID: id, Quantity: stock, MinStockLevel: minLevel}
}

func (s *memStore) stock(productID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[productID].Quantity
}

func (s *memStore) txnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

func (s *memStore) transaction(id int64) model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txns[id]
}

func (s *memStore) auditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.audit...)
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		inventory:     make(map[int64]model.InventoryRecord, len(s.inventory)),
		txns:          make(map[int64]model.Transaction, len(s.txns)),
		adjustments:   len(s.adjustments),
		audit:         len(s.audit),
		nextTxnID:     s.nextTxnID,
		nextLineID:    s.nextLineID,
		nextAuditID:   s.nextAuditID,
		takenReceipts: make(map[string]bool, len(s.takenReceipts)),
	}
	for k, v := range s.inventory {
		snap.inventory[k] = v
	}
	for k, v := range s.txns {
		snap.txns[k] = v
	}
	for k, v := range s.takenReceipts {
		snap.takenReceipts[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.inventory = snap.inventory
	s.txns = snap.txns
	s.adjustments = s.adjustments[:snap.adjustments]
	s.audit = s.audit[:snap.audit]
	s.nextTxnID = snap.nextTxnID
	s.nextLineID = snap.nextLineID
	s.nextAuditID = snap.nextAuditID
	s.takenReceipts = snap.takenReceipts
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withinTxCalls++

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(memRepos{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memRepos struct{ s *memStore }

func (r memRepos) Products() repo.ProductRepository                 { return memProducts(r) }
func (r memRepos) Inventory() repo.InventoryRepository              { return memInventory(r) }
func (r memRepos) Transactions() repo.TransactionRepository         { return memTransactions(r) }
func (r memRepos) TransactionLines() repo.TransactionLineRepository { return memLines(r) }
func (r memRepos) AuditLogs() repo.AuditLogRepository               { return memAudit(r) }

// ---- products

type memProducts struct{ s *memStore }

func (m memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := m.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m memProducts) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	out := map[int64]model.Product{}
	for _, id := range ids {
		if p, ok := m.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	m.s.products[p.ID] = p
	return p, nil
}

// ---- inventory

type memInventory struct{ s *memStore }

func (m memInventory) CheckAndReserve(ctx context.Context, productID int64, qty int64) (bool, error) {
	if qty < 1 {
		return false, repo.ErrInvalidQuantity
	}
	rec, ok := m.s.inventory[productID]
	if !ok {
		return false, repo.ErrNotFound
	}
	if rec.Quantity < qty {
		return false, nil
	}
	rec.Quantity -= qty
	m.s.inventory[productID] = rec
	return true, nil
}

func (m memInventory) Restore(ctx context.Context, productID int64, qty int64) error {
	if qty < 1 {
		return repo.ErrInvalidQuantity
	}
	rec, ok := m.s.inventory[productID]
	if !ok {
		return repo.ErrNotFound
	}
	rec.Quantity += qty
	m.s.inventory[productID] = rec
	return nil
}

func (m memInventory) IsLowStock(ctx context.Context, productID int64) (bool, error) {
	rec, ok := m.s.inventory[productID]
	if !ok {
		return false, repo.ErrNotFound
	}
	return rec.IsLowStock(), nil
}

func (m memInventory) FindByProductID(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	rec, ok := m.s.inventory[productID]
	if !ok {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	return rec, nil
}

func (m memInventory) FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]model.InventoryRecord, error) {
	out := map[int64]model.InventoryRecord{}
	for _, id := range productIDs {
		if rec, ok := m.s.inventory[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (m memInventory) List(ctx context.Context, page int, limit int) ([]model.InventoryRecord, int64, error) {
	all := m.sorted()
	return all, int64(len(all)), nil
}

func (m memInventory) ListLowStock(ctx context.Context) ([]model.InventoryRecord, error) {
	var out []model.InventoryRecord
	for _, rec := range m.sorted() {
		if rec.IsLowStock() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m memInventory) sorted() []model.InventoryRecord {
	out := make([]model.InventoryRecord, 0, len(m.s.inventory))
	for _, rec := range m.s.inventory {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (m memInventory) Create(ctx context.Context, rec model.InventoryRecord) (model.InventoryRecord, error) {
	if _, ok := m.s.inventory[rec.ProductID]; ok {
		return model.InventoryRecord{}, repo.ErrDuplicate
	}
	rec.ID = rec.ProductID
	m.s.inventory[rec.ProductID] = rec
	return rec, nil
}

func (m memInventory) Restock(ctx context.Context, productID int64, qty int64) (model.InventoryRecord, error) {
	rec, ok := m.s.inventory[productID]
	if !ok {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	now := time.Now()
	rec.Quantity += qty
	rec.LastRestockAt = &now
	m.s.inventory[productID] = rec
	return rec, nil
}

func (m memInventory) UpdateMinStockLevel(ctx context.Context, productID int64, level int64) error {
	rec, ok := m.s.inventory[productID]
	if !ok {
		return repo.ErrNotFound
	}
	rec.MinStockLevel = level
	m.s.inventory[productID] = rec
	return nil
}

func (m memInventory) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	m.s.adjustments = append(m.s.adjustments, adj)
	return nil
}

// ---- transactions

type memTransactions struct{ s *memStore }

func (m memTransactions) Create(ctx context.Context, txn *model.Transaction) error {
	if m.s.failCreateDuplicate > 0 {
		m.s.failCreateDuplicate--
		return repo.ErrDuplicate
	}
	if m.s.takenReceipts[txn.ReceiptNumber] {
		return repo.ErrDuplicate
	}
	for _, t := range m.s.txns {
		if t.ReceiptNumber == txn.ReceiptNumber {
			return repo.ErrDuplicate
		}
		if txn.IdempotencyKey != nil && t.IdempotencyKey != nil &&
			t.CashierID == txn.CashierID && *t.IdempotencyKey == *txn.IdempotencyKey {
			return repo.ErrDuplicate
		}
	}

	m.s.nextTxnID++
	txn.ID = m.s.nextTxnID
	lines := make([]model.TransactionLine, len(txn.Lines))
	for i, l := range txn.Lines {
		m.s.nextLineID++
		l.ID = m.s.nextLineID
		l.TransactionID = txn.ID
		lines[i] = l
	}
	txn.Lines = lines
	m.s.txns[txn.ID] = *txn
	return nil
}

func (m memTransactions) FindByID(ctx context.Context, id int64) (model.Transaction, error) {
	t, ok := m.s.txns[id]
	if !ok {
		return model.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (m memTransactions) FindByIDForUpdate(ctx context.Context, id int64) (model.Transaction, error) {
	return m.FindByID(ctx, id)
}

func (m memTransactions) FindByIdempotencyKey(ctx context.Context, cashierID int64, key string) (model.Transaction, bool, error) {
	for _, t := range m.s.txns {
		if t.CashierID == cashierID && t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return t, true, nil
		}
	}
	return model.Transaction{}, false, nil
}

func (m memTransactions) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	if m.s.takenReceipts[receiptNumber] {
		return true, nil
	}
	for _, t := range m.s.txns {
		if t.ReceiptNumber == receiptNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m memTransactions) UpdateStatus(ctx context.Context, id int64, from, to model.TransactionStatus, notes string) error {
	t, ok := m.s.txns[id]
	if !ok || t.Status != from {
		return repo.ErrConflict
	}
	t.Status = to
	if notes != "" {
		t.Notes = notes
	}
	m.s.txns[id] = t
	return nil
}

func (m memTransactions) List(ctx context.Context, f repo.TransactionListFilter) ([]model.Transaction, int64, error) {
	var out []model.Transaction
	for _, t := range m.s.txns {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.CashierID != nil && t.CashierID != *f.CashierID {
			continue
		}
		t.Lines = nil
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (m memTransactions) Summarize(ctx context.Context, from, to time.Time) (repo.SalesSummary, error) {
	s := repo.SalesSummary{TotalSales: decimal.Zero, TotalDiscount: decimal.Zero}
	for _, t := range m.s.txns {
		if t.Status != model.TransactionStatusCompleted || t.CreatedAt.Before(from) || t.CreatedAt.After(to) {
			continue
		}
		s.TotalSales = s.TotalSales.Add(t.TotalAmount)
		s.TotalDiscount = s.TotalDiscount.Add(t.DiscountAmount)
		s.TotalTransactions++
	}
	return s, nil
}

// ---- lines

type memLines struct{ s *memStore }

func (m memLines) ListByTransactionID(ctx context.Context, transactionID int64) ([]model.TransactionLine, error) {
	return m.s.txns[transactionID].Lines, nil
}

func (m memLines) ListByTransactionIDs(ctx context.Context, transactionIDs []int64) (map[int64][]model.TransactionLine, error) {
	out := map[int64][]model.TransactionLine{}
	for _, id := range transactionIDs {
		out[id] = m.s.txns[id].Lines
	}
	return out, nil
}

// ---- audit

type memAudit struct{ s *memStore }

func (m memAudit) Create(ctx context.Context, log model.AuditLog) error {
	m.s.nextAuditID++
	log.ID = m.s.nextAuditID
	m.s.audit = append(m.s.audit, log)
	return nil
}

func (m memAudit) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	for _, l := range m.s.audit {
		if filter.Action != nil && l.Action != *filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// =====================
// 冪等ガード（プロセス内）
// =====================

type memGuard struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newMemGuard() *memGuard { return &memGuard{held: map[string]bool{}} }

func (g *memGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if g.err != nil {
		return nil, false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, false, nil
	}
	g.held[key] = true
	return func(context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.held, key)
		return nil
	}, true, nil
}

func (g *memGuard) hold(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held[key] = true
}

// =====================
// clock / receipts
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)

// 指定した番号を順に返し、尽きたら最後の番号を返し続ける
type seqReceipts struct {
	mu      sync.Mutex
	numbers []string
	i       int
}

func (g *seqReceipts) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.numbers) == 0 {
		return "", errors.New("no numbers")
	}
	n := g.numbers[len(g.numbers)-1]
	if g.i < len(g.numbers) {
		n = g.numbers[g.i]
	}
	g.i++
	return n, nil
}

func (g *seqReceipts) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.i
}
