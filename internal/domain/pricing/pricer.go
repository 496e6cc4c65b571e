// Package pricing はカートの金額計算（明細合計・小計・値引額・合計）を行う。
// 副作用はなく、同じ入力には常に同じ結果を返す。
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// 金額は小数2桁（セント）に丸める
	moneyPlaces = 2
	// 値引率は保存列 numeric(5,2) と同じ桁までしか受け付けない
	discountPlaces = 2

	// 1明細（同じ商品の合計）で売れる最大数量
	MaxQuantity int64 = 1_000_000
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidLine = errors.New("invalid cart line")

	hundred = decimal.NewFromInt(100)
)

// ValidationError はどの明細が不正かを持つ。
type ValidationError struct {
	Index     int
	ProductID int64
	Reason    string
	err       error
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("line %d (product %d): %s", e.Index, e.ProductID, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.err }

type Line struct {
	ProductID       int64
	UnitPrice       decimal.Decimal
	Quantity        int64
	DiscountPercent decimal.Decimal
}

type LineResult struct {
	ProductID      int64
	LineSubtotal   decimal.Decimal
	LineTotal      decimal.Decimal
	DiscountAmount decimal.Decimal
}

type Result struct {
	Lines          []LineResult
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// ValidateLine は価格以外も含めて1明細の形をチェックする。
func ValidateLine(i int, l Line) error {
	if l.Quantity < 1 {
		return &ValidationError{Index: i, ProductID: l.ProductID, Reason: "quantity must be >= 1", err: ErrInvalidLine}
	}
	if l.Quantity > MaxQuantity {
		return &ValidationError{Index: i, ProductID: l.ProductID, Reason: fmt.Sprintf("quantity must be <= %d", MaxQuantity), err: ErrInvalidLine}
	}
	if l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(hundred) {
		return &ValidationError{Index: i, ProductID: l.ProductID, Reason: "discount_percent must be between 0 and 100", err: ErrInvalidLine}
	}
	// 保存時に丸められると再読込で金額が合わなくなる
	if !l.DiscountPercent.Equal(l.DiscountPercent.Round(discountPlaces)) {
		return &ValidationError{Index: i, ProductID: l.ProductID, Reason: "discount_percent must have at most 2 decimal places", err: ErrInvalidLine}
	}
	if l.UnitPrice.IsNegative() {
		return &ValidationError{Index: i, ProductID: l.ProductID, Reason: "unit price must be >= 0", err: ErrInvalidLine}
	}
	return nil
}

// Price は明細ごとの金額と合計を計算する。
//
//	lineSubtotal = unitPrice * quantity
//	lineTotal    = lineSubtotal * (1 - discountPercent/100)
//	subtotal     = Σ lineSubtotal
//	total        = Σ lineTotal
//	discount     = subtotal - total
func Price(lines []Line) (Result, error) {
	if len(lines) == 0 {
		return Result{}, &ValidationError{Index: -1, Reason: ErrEmptyCart.Error(), err: ErrEmptyCart}
	}

	res := Result{
		Lines:    make([]LineResult, 0, len(lines)),
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
	}
	for i, l := range lines {
		if err := ValidateLine(i, l); err != nil {
			return Result{}, err
		}

		lineSubtotal := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)).Round(moneyPlaces)
		factor := hundred.Sub(l.DiscountPercent).Div(hundred)
		lineTotal := lineSubtotal.Mul(factor).Round(moneyPlaces)

		res.Lines = append(res.Lines, LineResult{
			ProductID:      l.ProductID,
			LineSubtotal:   lineSubtotal,
			LineTotal:      lineTotal,
			DiscountAmount: lineSubtotal.Sub(lineTotal),
		})
		res.Subtotal = res.Subtotal.Add(lineSubtotal)
		res.Total = res.Total.Add(lineTotal)
	}
	res.DiscountAmount = res.Subtotal.Sub(res.Total)

	return res, nil
}
