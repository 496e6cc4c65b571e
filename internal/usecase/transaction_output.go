package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"pos/internal/domain/model"
)

type TransactionLineOutput struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	LineSubtotal    decimal.Decimal `json:"line_subtotal"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type TransactionOutput struct {
	ID             int64                   `json:"id"`
	CashierID      int64                   `json:"cashier_id"`
	ReceiptNumber  string                  `json:"receipt_number"`
	Status         string                  `json:"status"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	DiscountAmount decimal.Decimal         `json:"discount_amount"`
	TotalAmount    decimal.Decimal         `json:"total_amount"`
	Payment        model.Payment           `json:"payment"`
	CustomerEmail  *string                 `json:"customer_email,omitempty"`
	Notes          string                  `json:"notes,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Lines          []TransactionLineOutput `json:"lines"`
}

func toTransactionOutput(t model.Transaction) TransactionOutput {
	lines := make([]TransactionLineOutput, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, TransactionLineOutput{
			ID:              l.ID,
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			LineSubtotal:    l.LineSubtotal,
			LineTotal:       l.LineTotal,
		})
	}
	return TransactionOutput{
		ID:             t.ID,
		CashierID:      t.CashierID,
		ReceiptNumber:  t.ReceiptNumber,
		Status:         string(t.Status),
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		TotalAmount:    t.TotalAmount,
		Payment:        t.Payment,
		CustomerEmail:  t.CustomerEmail,
		Notes:          t.Notes,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		Lines:          lines,
	}
}
