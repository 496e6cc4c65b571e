package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodOther PaymentMethod = "other"
)

var ErrInvalidPayment = errors.New("invalid payment")

type CashPayment struct {
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Change     decimal.Decimal `json:"change"`
}

type CardPayment struct {
	Last4    string `json:"last4"`
	CardType string `json:"card_type"`
	AuthCode string `json:"auth_code"`
}

type OtherPayment struct {
	Reference string `json:"reference,omitempty"`
}

// Payment は支払い内容のタグ付きバリアント。
// Methodが指すバリアントだけが埋まっている状態を正とする。
type Payment struct {
	Method PaymentMethod `json:"method"`
	Cash   *CashPayment  `json:"cash,omitempty"`
	Card   *CardPayment  `json:"card,omitempty"`
	Other  *OtherPayment `json:"other,omitempty"`
}

func NewCashPayment(amountPaid decimal.Decimal) Payment {
	return Payment{Method: PaymentMethodCash, Cash: &CashPayment{AmountPaid: amountPaid}}
}

func NewCardPayment(last4, cardType, authCode string) Payment {
	return Payment{Method: PaymentMethodCard, Card: &CardPayment{Last4: last4, CardType: cardType, AuthCode: authCode}}
}

func NewOtherPayment(reference string) Payment {
	return Payment{Method: PaymentMethodOther, Other: &OtherPayment{Reference: reference}}
}

// Validate は合計に依存しない形のチェック。
func (p Payment) Validate() error {
	switch p.Method {
	case PaymentMethodCash:
		if p.Cash == nil || p.Card != nil || p.Other != nil {
			return fmt.Errorf("%w: cash payment requires only cash details", ErrInvalidPayment)
		}
		if p.Cash.AmountPaid.IsNegative() {
			return fmt.Errorf("%w: amount_paid must be >= 0", ErrInvalidPayment)
		}
	case PaymentMethodCard:
		if p.Card == nil || p.Cash != nil || p.Other != nil {
			return fmt.Errorf("%w: card payment requires only card details", ErrInvalidPayment)
		}
		if !isLast4(p.Card.Last4) {
			return fmt.Errorf("%w: last4 must be 4 digits", ErrInvalidPayment)
		}
		if strings.TrimSpace(p.Card.CardType) == "" {
			return fmt.Errorf("%w: card_type required", ErrInvalidPayment)
		}
		if strings.TrimSpace(p.Card.AuthCode) == "" {
			return fmt.Errorf("%w: auth_code required", ErrInvalidPayment)
		}
	case PaymentMethodOther:
		if p.Cash != nil || p.Card != nil {
			return fmt.Errorf("%w: other payment must not carry cash or card details", ErrInvalidPayment)
		}
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, p.Method)
	}
	return nil
}

// Settle は合計額に対して支払いを確定させる（現金ならお釣りを計算）。
func (p Payment) Settle(total decimal.Decimal) (Payment, error) {
	if err := p.Validate(); err != nil {
		return Payment{}, err
	}
	if p.Method != PaymentMethodCash {
		return p, nil
	}
	if p.Cash.AmountPaid.LessThan(total) {
		return Payment{}, fmt.Errorf("%w: amount_paid %s is less than total %s",
			ErrInvalidPayment, p.Cash.AmountPaid.StringFixed(2), total.StringFixed(2))
	}
	settled := p
	settled.Cash = &CashPayment{
		AmountPaid: p.Cash.AmountPaid,
		Change:     p.Cash.AmountPaid.Sub(total),
	}
	return settled, nil
}

func isLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
