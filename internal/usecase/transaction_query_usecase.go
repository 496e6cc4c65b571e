package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

type TransactionQueryUsecase struct {
	tx        repo.TransactionManager
	txTimeout time.Duration
}

func NewTransactionQueryUsecase(tx repo.TransactionManager, txTimeout time.Duration) *TransactionQueryUsecase {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &TransactionQueryUsecase{tx: tx, txTimeout: txTimeout}
}

type ListTransactionsInput struct {
	Page      int
	Limit     int
	Status    string
	CashierID int64
	From      *time.Time
	To        *time.Time
}

type TransactionListOutput struct {
	Items []TransactionOutput `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

type SalesReportOutput struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	TotalTransactions int64           `json:"total_transactions"`
}

// 完了した取引だけがフィードバック依頼の対象
type FeedbackContactOutput struct {
	TransactionID int64  `json:"transaction_id"`
	ReceiptNumber string `json:"receipt_number"`
	CustomerEmail string `json:"customer_email"`
}

func (u *TransactionQueryUsecase) List(ctx context.Context, in ListTransactionsInput) (TransactionListOutput, error) {
	page, limit := normalizePage(in.Page, in.Limit)
	f := repo.TransactionListFilter{Page: page, Limit: limit, From: in.From, To: in.To}

	if s := strings.TrimSpace(in.Status); s != "" {
		st, err := model.ParseTransactionStatus(s)
		if err != nil {
			return TransactionListOutput{}, validationError("invalid status")
		}
		f.Status = &st
	}
	if in.CashierID < 0 {
		return TransactionListOutput{}, validationError("invalid cashier_id")
	}
	if in.CashierID > 0 {
		id := in.CashierID
		f.CashierID = &id
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return TransactionListOutput{}, validationError("from must be before to")
	}

	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	var out TransactionListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Transactions().List(ctx, f)
		if err != nil {
			return internalError("db error", err)
		}

		ids := make([]int64, 0, len(items))
		for _, t := range items {
			ids = append(ids, t.ID)
		}
		lines, err := r.TransactionLines().ListByTransactionIDs(ctx, ids)
		if err != nil {
			return internalError("db error", err)
		}

		outItems := make([]TransactionOutput, 0, len(items))
		for _, t := range items {
			t.Lines = lines[t.ID]
			outItems = append(outItems, toTransactionOutput(t))
		}
		out = TransactionListOutput{Items: outItems, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return TransactionListOutput{}, wrapTxError(err, "list transactions failed")
	}
	return out, nil
}

func (u *TransactionQueryUsecase) Get(ctx context.Context, id int64) (TransactionOutput, error) {
	if id <= 0 {
		return TransactionOutput{}, validationError("invalid transaction id")
	}

	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	var out TransactionOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		t, err := r.Transactions().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("transaction %d not found", id)
		}
		if err != nil {
			return internalError("db error", err)
		}
		out = toTransactionOutput(t)
		return nil
	})
	if err != nil {
		return TransactionOutput{}, wrapTxError(err, "get transaction failed")
	}
	return out, nil
}

// SalesReport は期間内のcompletedの売上を集計する。取消・返品は含めない
func (u *TransactionQueryUsecase) SalesReport(ctx context.Context, from, to time.Time) (SalesReportOutput, error) {
	if from.IsZero() || to.IsZero() {
		return SalesReportOutput{}, validationError("from and to are required")
	}
	if from.After(to) {
		return SalesReportOutput{}, validationError("from must be before to")
	}

	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	var out SalesReportOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Transactions().Summarize(ctx, from, to)
		if err != nil {
			return internalError("db error", err)
		}
		out = SalesReportOutput{
			From:              from,
			To:                to,
			TotalSales:        s.TotalSales,
			TotalDiscount:     s.TotalDiscount,
			TotalTransactions: s.TotalTransactions,
		}
		return nil
	})
	if err != nil {
		return SalesReportOutput{}, wrapTxError(err, "sales report failed")
	}
	return out, nil
}

func (u *TransactionQueryUsecase) FeedbackContact(ctx context.Context, id int64) (FeedbackContactOutput, error) {
	t, err := u.Get(ctx, id)
	if err != nil {
		return FeedbackContactOutput{}, err
	}
	if t.Status != string(model.TransactionStatusCompleted) {
		return FeedbackContactOutput{}, newError(KindConflict, "transaction %d is not completed", id)
	}
	if t.CustomerEmail == nil || *t.CustomerEmail == "" {
		return FeedbackContactOutput{}, notFoundError("transaction %d has no customer email", id)
	}
	return FeedbackContactOutput{TransactionID: t.ID, ReceiptNumber: t.ReceiptNumber, CustomerEmail: *t.CustomerEmail}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
