package usecase

import (
	"context"
	"strings"
	"time"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

type AuditLogUsecase struct {
	tx        repo.TransactionManager
	txTimeout time.Duration
}

func NewAuditLogUsecase(tx repo.TransactionManager, txTimeout time.Duration) *AuditLogUsecase {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &AuditLogUsecase{tx: tx, txTimeout: txTimeout}
}

type ListAuditLogsInput struct {
	ActorUserID  int64
	Action       string
	ResourceType string
	ResourceID   int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

type AuditLogListOutput struct {
	Items  []model.AuditLog `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (u *AuditLogUsecase) List(ctx context.Context, in ListAuditLogsInput) (AuditLogListOutput, error) {
	if in.Offset < 0 {
		return AuditLogListOutput{}, validationError("invalid offset")
	}
	if in.Limit < 0 || in.Limit > 200 {
		return AuditLogListOutput{}, validationError("invalid limit")
	}
	if in.Limit == 0 {
		in.Limit = 50
	}

	f := repo.AuditLogFilter{CreatedFrom: in.From, CreatedTo: in.To, Limit: in.Limit, Offset: in.Offset}
	if in.ActorUserID > 0 {
		id := in.ActorUserID
		f.ActorUserID = &id
	}
	if in.ResourceID > 0 {
		id := in.ResourceID
		f.ResourceID = &id
	}
	switch a := model.AuditAction(strings.TrimSpace(in.Action)); a {
	case "":
	case model.AuditActionUpdateStock, model.AuditActionCreateInventory, model.AuditActionUpdateTransactionStatus:
		f.Action = &a
	default:
		return AuditLogListOutput{}, validationError("invalid action")
	}
	switch rt := model.AuditResourceType(strings.TrimSpace(in.ResourceType)); rt {
	case "":
	case model.AuditResourceInventory, model.AuditResourceTransaction:
		f.ResourceType = &rt
	default:
		return AuditLogListOutput{}, validationError("invalid resource_type")
	}

	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	var out AuditLogListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return internalError("db error", err)
		}
		if logs == nil {
			logs = []model.AuditLog{}
		}
		out = AuditLogListOutput{Items: logs, Limit: in.Limit, Offset: in.Offset}
		return nil
	})
	if err != nil {
		return AuditLogListOutput{}, wrapTxError(err, "list audit logs failed")
	}
	return out, nil
}
