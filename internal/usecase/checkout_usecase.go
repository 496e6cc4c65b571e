package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pos/internal/domain/model"
	"pos/internal/domain/pricing"
	repo "pos/internal/repository"
)

const (
	maxCartLines         = 200
	maxIdempotencyKeyLen = 255
)

// レシート番号が作成時に衝突した（ロールバック済み、やり直してよい）
var errReceiptTaken = errors.New("receipt number taken")

type Clock interface {
	Now() time.Time
}

type ReceiptGenerator interface {
	Next() (string, error)
}

type CheckoutOptions struct {
	MaxReceiptAttempts int
	TxTimeout          time.Duration
	IdempotencyTTL     time.Duration
}

type CheckoutUsecase struct {
	tx       repo.TransactionManager
	guard    repo.IdempotencyGuard
	receipts ReceiptGenerator
	clock    Clock
	log      *zap.Logger
	tracer   trace.Tracer
	opts     CheckoutOptions
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	guard repo.IdempotencyGuard,
	receipts ReceiptGenerator,
	clock Clock,
	log *zap.Logger,
	tracer trace.Tracer,
	opts CheckoutOptions,
) *CheckoutUsecase {
	if opts.MaxReceiptAttempts < 1 {
		opts.MaxReceiptAttempts = 5
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 5 * time.Second
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 30 * time.Second
	}
	return &CheckoutUsecase{
		tx:       tx,
		guard:    guard,
		receipts: receipts,
		clock:    clock,
		log:      log,
		tracer:   tracer,
		opts:     opts,
	}
}

type CheckoutItemInput struct {
	ProductID       int64
	Quantity        int64
	DiscountPercent decimal.Decimal
}

type CheckoutInput struct {
	Items          []CheckoutItemInput
	Payment        model.Payment
	CustomerEmail  string
	IdempotencyKey string
}

type CheckoutOutput struct {
	Transaction TransactionOutput `json:"transaction"`
	// 販売後に発注点以下になった商品（販売は成立している）
	LowStockProductIDs []int64 `json:"low_stock_product_ids"`
	// 同じ冪等キーの既存取引を返した
	Replayed bool `json:"replayed"`
}

// Checkout はカートを1つの販売として確定する。
// 在庫の引当・レシート採番・取引と明細の作成は1つのDBトランザクションで行い、
// どこかで失敗すれば何も残らない。
func (u *CheckoutUsecase) Checkout(ctx context.Context, cashierID int64, in CheckoutInput) (CheckoutOutput, error) {
	ctx, span := u.tracer.Start(ctx, "checkout", trace.WithAttributes(
		attribute.Int64("pos.cashier_id", cashierID),
		attribute.Int("pos.cart.lines", len(in.Items)),
		attribute.String("pos.payment.method", string(in.Payment.Method)),
	))
	defer span.End()

	out, err := u.checkout(ctx, cashierID, in)
	if err != nil {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if kind == KindInternal {
			u.log.Error("checkout failed", zap.Int64("cashier_id", cashierID), zap.Error(err))
		} else {
			u.log.Info("checkout rejected", zap.Int64("cashier_id", cashierID), zap.String("kind", string(kind)), zap.Error(err))
		}
		return CheckoutOutput{}, err
	}

	span.SetAttributes(
		attribute.String("pos.receipt_number", out.Transaction.ReceiptNumber),
		attribute.Bool("pos.replayed", out.Replayed),
	)
	u.log.Info("checkout completed",
		zap.Int64("transaction_id", out.Transaction.ID),
		zap.String("receipt_number", out.Transaction.ReceiptNumber),
		zap.String("total", out.Transaction.TotalAmount.StringFixed(2)),
		zap.Bool("replayed", out.Replayed),
	)
	for _, id := range out.LowStockProductIDs {
		u.log.Warn("inventory at or below min stock level", zap.Int64("product_id", id))
	}
	return out, nil
}

func (u *CheckoutUsecase) checkout(ctx context.Context, cashierID int64, in CheckoutInput) (CheckoutOutput, error) {
	if cashierID <= 0 {
		return CheckoutOutput{}, newError(KindUnauthorized, "unauthorized")
	}
	if err := validateCheckoutInput(in); err != nil {
		return CheckoutOutput{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)

	//同じキーの同時実行はここで弾く（永続の一意性はDBの一意インデックス）
	if key != "" {
		release, ok, err := u.guard.Acquire(ctx, fmt.Sprintf("%d:%s", cashierID, key), u.opts.IdempotencyTTL)
		if err != nil {
			//ガードが落ちていても一意インデックスで二重作成は防げる
			u.log.Warn("idempotency guard unavailable", zap.Error(err))
		} else if !ok {
			return CheckoutOutput{}, newError(KindDuplicateRequest, "a request with the same idempotency key is in progress")
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					u.log.Warn("idempotency guard release failed", zap.Error(err))
				}
			}()
		}
	}

	attemptsLeft := u.opts.MaxReceiptAttempts
	for {
		out, err := u.placeOnce(ctx, cashierID, key, in, &attemptsLeft)
		if !errors.Is(err, errReceiptTaken) {
			return out, err
		}

		//一意制約で弾かれたのが冪等キーなら、先に確定した取引を返す
		if key != "" {
			existing, found, err := u.findByIdempotencyKey(ctx, cashierID, key)
			if err != nil {
				return CheckoutOutput{}, err
			}
			if found {
				return existing, nil
			}
		}
		if attemptsLeft <= 0 {
			return CheckoutOutput{}, newError(KindReceiptGenerationFailed, "could not generate a unique receipt number")
		}
		u.log.Debug("receipt number collided on insert, retrying", zap.Int("attempts_left", attemptsLeft))
	}
}

func validateCheckoutInput(in CheckoutInput) error {
	if len(in.Items) == 0 {
		return validationError("cart is empty")
	}
	if len(in.Items) > maxCartLines {
		return validationError("cart has too many lines (max %d)", maxCartLines)
	}
	for i, it := range in.Items {
		if it.ProductID <= 0 {
			return validationError("line %d: invalid product_id", i)
		}
		if err := pricing.ValidateLine(i, pricing.Line{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			DiscountPercent: it.DiscountPercent,
		}); err != nil {
			return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
		}
	}
	//同じ商品の合計も上限内に収める
	if _, err := reservationsOf(in.Items); err != nil {
		return err
	}
	if err := in.Payment.Validate(); err != nil {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	if email := strings.TrimSpace(in.CustomerEmail); email != "" {
		if _, err := mail.ParseAddress(email); err != nil || len(email) > 255 {
			return validationError("invalid customer_email")
		}
	}
	if len(strings.TrimSpace(in.IdempotencyKey)) > maxIdempotencyKeyLen {
		return validationError("idempotency key is too long")
	}
	return nil
}

func (u *CheckoutUsecase) placeOnce(ctx context.Context, cashierID int64, key string, in CheckoutInput, attemptsLeft *int) (CheckoutOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, u.opts.TxTimeout)
	defer cancel()

	var out CheckoutOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Transactions().FindByIdempotencyKey(ctx, cashierID, key)
			if err != nil {
				return internalError("db error", err)
			}
			if found {
				out = CheckoutOutput{Transaction: toTransactionOutput(existing), LowStockProductIDs: []int64{}, Replayed: true}
				return nil
			}
		}

		reservations, err := reservationsOf(in.Items)
		if err != nil {
			return err
		}
		productIDs := make([]int64, 0, len(reservations))
		for _, rv := range reservations {
			productIDs = append(productIDs, rv.productID)
		}

		products, err := r.Products().FindByIDs(ctx, productIDs)
		if err != nil {
			return internalError("db error", err)
		}

		//価格は必ずDBの商品から取る（クライアントの価格は使わない）
		priceLines := make([]pricing.Line, 0, len(in.Items))
		for _, it := range in.Items {
			p, ok := products[it.ProductID]
			if !ok {
				return &Error{Kind: KindNotFound, Message: fmt.Sprintf("product %d not found", it.ProductID), ProductID: it.ProductID}
			}
			if !p.IsActive {
				return &Error{Kind: KindValidation, Message: fmt.Sprintf("product %d is not for sale", it.ProductID), ProductID: it.ProductID}
			}
			priceLines = append(priceLines, pricing.Line{
				ProductID:       it.ProductID,
				UnitPrice:       p.Price,
				Quantity:        it.Quantity,
				DiscountPercent: it.DiscountPercent,
			})
		}

		priced, err := pricing.Price(priceLines)
		if err != nil {
			return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
		}
		payment, err := in.Payment.Settle(priced.Total)
		if err != nil {
			return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
		}

		//在庫引当（条件付き減算。足りなければ全体をロールバック）
		for _, rv := range reservations {
			ok, err := r.Inventory().CheckAndReserve(ctx, rv.productID, rv.qty)
			if errors.Is(err, repo.ErrNotFound) {
				//在庫レコードが無い商品は在庫0として扱う
				return insufficientInventoryError(rv.productID, rv.qty, 0)
			}
			if err != nil {
				return internalError("db error", err)
			}
			if !ok {
				var available int64
				if rec, err := r.Inventory().FindByProductID(ctx, rv.productID); err == nil {
					available = rec.Quantity
				}
				return insufficientInventoryError(rv.productID, rv.qty, available)
			}
		}

		receiptNumber, err := u.nextReceiptNumber(ctx, r, attemptsLeft)
		if err != nil {
			return err
		}

		now := u.clock.Now().UTC()
		lines := make([]model.TransactionLine, 0, len(in.Items))
		for i, it := range in.Items {
			lines = append(lines, model.TransactionLine{
				ProductID:       it.ProductID,
				ProductName:     products[it.ProductID].Name,
				Quantity:        it.Quantity,
				UnitPrice:       priceLines[i].UnitPrice,
				DiscountPercent: it.DiscountPercent,
				LineSubtotal:    priced.Lines[i].LineSubtotal,
				LineTotal:       priced.Lines[i].LineTotal,
				CreatedAt:       now,
			})
		}

		txn := model.Transaction{
			CashierID:      cashierID,
			ReceiptNumber:  receiptNumber,
			Subtotal:       priced.Subtotal,
			DiscountAmount: priced.DiscountAmount,
			TotalAmount:    priced.Total,
			Payment:        payment,
			Status:         model.TransactionStatusCompleted,
			CreatedAt:      now,
			UpdatedAt:      now,
			Lines:          lines,
		}
		if email := strings.TrimSpace(in.CustomerEmail); email != "" {
			txn.CustomerEmail = &email
		}
		if key != "" {
			k := key
			txn.IdempotencyKey = &k
		}

		if err := r.Transactions().Create(ctx, &txn); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return errReceiptTaken
			}
			return internalError("db error", err)
		}

		//発注点チェック（販売は止めない）
		records, err := r.Inventory().FindByProductIDs(ctx, productIDs)
		if err != nil {
			return internalError("db error", err)
		}
		lowStock := make([]int64, 0)
		for _, id := range productIDs {
			if rec, ok := records[id]; ok && rec.IsLowStock() {
				lowStock = append(lowStock, id)
			}
		}

		out = CheckoutOutput{Transaction: toTransactionOutput(txn), LowStockProductIDs: lowStock}
		return nil
	})
	if errors.Is(err, errReceiptTaken) {
		return CheckoutOutput{}, err
	}
	if err != nil {
		return CheckoutOutput{}, wrapTxError(err, "checkout failed")
	}
	return out, nil
}

// 既に使われている番号を避けて採番する。試行回数は1回のCheckout全体で共有
func (u *CheckoutUsecase) nextReceiptNumber(ctx context.Context, r repo.TxRepos, attemptsLeft *int) (string, error) {
	for *attemptsLeft > 0 {
		*attemptsLeft--
		candidate, err := u.receipts.Next()
		if err != nil {
			return "", internalError("receipt generation failed", err)
		}
		exists, err := r.Transactions().ExistsByReceiptNumber(ctx, candidate)
		if err != nil {
			return "", internalError("db error", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", newError(KindReceiptGenerationFailed, "could not generate a unique receipt number")
}

func (u *CheckoutUsecase) findByIdempotencyKey(ctx context.Context, cashierID int64, key string) (CheckoutOutput, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, u.opts.TxTimeout)
	defer cancel()

	var (
		out   CheckoutOutput
		found bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, ok, err := r.Transactions().FindByIdempotencyKey(ctx, cashierID, key)
		if err != nil {
			return internalError("db error", err)
		}
		if ok {
			found = true
			out = CheckoutOutput{Transaction: toTransactionOutput(existing), LowStockProductIDs: []int64{}, Replayed: true}
		}
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, false, wrapTxError(err, "checkout failed")
	}
	return out, found, nil
}
