package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

const maxNotesLen = 1000

type TransactionStatusUsecase struct {
	tx        repo.TransactionManager
	clock     Clock
	log       *zap.Logger
	tracer    trace.Tracer
	txTimeout time.Duration
}

func NewTransactionStatusUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger, tracer trace.Tracer, txTimeout time.Duration) *TransactionStatusUsecase {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &TransactionStatusUsecase{tx: tx, clock: clock, log: log, tracer: tracer, txTimeout: txTimeout}
}

type ChangeStatusInput struct {
	Status string
	Notes  string
}

// 監査ログに残すステータスのスナップショット
type statusSnapshot struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (u *TransactionStatusUsecase) Cancel(ctx context.Context, actorUserID, transactionID int64, notes string) (TransactionOutput, error) {
	return u.ChangeStatus(ctx, actorUserID, transactionID, ChangeStatusInput{Status: string(model.TransactionStatusCancelled), Notes: notes})
}

func (u *TransactionStatusUsecase) Refund(ctx context.Context, actorUserID, transactionID int64, notes string) (TransactionOutput, error) {
	return u.ChangeStatus(ctx, actorUserID, transactionID, ChangeStatusInput{Status: string(model.TransactionStatusRefunded), Notes: notes})
}

// ChangeStatus は遷移表に従ってステータスを変える。
// completedから抜けるときは販売した数量を在庫に戻す。戻しとステータス更新と監査ログは同じトランザクション
func (u *TransactionStatusUsecase) ChangeStatus(ctx context.Context, actorUserID, transactionID int64, in ChangeStatusInput) (TransactionOutput, error) {
	ctx, span := u.tracer.Start(ctx, "transaction.change_status", trace.WithAttributes(
		attribute.Int64("pos.transaction_id", transactionID),
		attribute.String("pos.status.to", in.Status),
	))
	defer span.End()

	out, err := u.changeStatus(ctx, actorUserID, transactionID, in)
	if err != nil {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if kind == KindInternal {
			u.log.Error("status change failed", zap.Int64("transaction_id", transactionID), zap.Error(err))
		} else {
			u.log.Info("status change rejected", zap.Int64("transaction_id", transactionID), zap.String("kind", string(kind)), zap.Error(err))
		}
		return TransactionOutput{}, err
	}

	u.log.Info("transaction status changed",
		zap.Int64("transaction_id", out.ID),
		zap.String("status", out.Status),
		zap.Int64("actor_user_id", actorUserID),
	)
	return out, nil
}

func (u *TransactionStatusUsecase) changeStatus(ctx context.Context, actorUserID, transactionID int64, in ChangeStatusInput) (TransactionOutput, error) {
	if actorUserID <= 0 {
		return TransactionOutput{}, newError(KindUnauthorized, "unauthorized")
	}
	if transactionID <= 0 {
		return TransactionOutput{}, validationError("invalid transaction id")
	}
	target, err := model.ParseTransactionStatus(strings.TrimSpace(in.Status))
	if err != nil {
		return TransactionOutput{}, validationError("invalid status")
	}
	notes := strings.TrimSpace(in.Notes)
	if len(notes) > maxNotesLen {
		return TransactionOutput{}, validationError("notes must be at most %d characters", maxNotesLen)
	}

	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	var out TransactionOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//行ロックを取ってから遷移を判定する（同じ取引への並行した取消・返品は直列になる）
		t, err := r.Transactions().FindByIDForUpdate(ctx, transactionID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("transaction %d not found", transactionID)
		}
		if err != nil {
			return internalError("db error", err)
		}

		from := t.Status
		if !from.CanTransitionTo(target) {
			return newError(KindInvalidStateTransition, "cannot change a %s transaction to %s", from, target)
		}

		//completedから抜けるときだけ在庫を戻す（終端からは抜けないので二重に戻らない）
		if from == model.TransactionStatusCompleted {
			restorations, err := restorationsOf(t.Lines)
			if err != nil {
				return internalError("stored line quantity out of range", err)
			}
			for _, rv := range restorations {
				if err := r.Inventory().Restore(ctx, rv.productID, rv.qty); err != nil {
					if errors.Is(err, repo.ErrNotFound) {
						return &Error{Kind: KindNotFound, Message: fmt.Sprintf("inventory record for product %d not found", rv.productID), ProductID: rv.productID}
					}
					return internalError("db error", err)
				}
			}
		}

		if err := r.Transactions().UpdateStatus(ctx, t.ID, from, target, notes); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return newError(KindInvalidStateTransition, "transaction %d was changed concurrently", t.ID)
			}
			return internalError("db error", err)
		}

		before, err := json.Marshal(statusSnapshot{Status: string(from), Notes: t.Notes})
		if err != nil {
			return internalError("audit snapshot failed", err)
		}
		t.Status = target
		if notes != "" {
			t.Notes = notes
		}
		t.UpdatedAt = u.clock.Now().UTC()
		after, err := json.Marshal(statusSnapshot{Status: string(t.Status), Notes: t.Notes})
		if err != nil {
			return internalError("audit snapshot failed", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateTransactionStatus,
			ResourceType: model.AuditResourceTransaction,
			ResourceID:   t.ID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    t.UpdatedAt,
		}); err != nil {
			return internalError("db error", err)
		}

		out = toTransactionOutput(t)
		return nil
	})
	if err != nil {
		return TransactionOutput{}, wrapTxError(err, "status change failed")
	}
	return out, nil
}
