package repository

import (
	"context"
	"time"

	"pos/internal/domain/model"
)

// AuditLogRepository は在庫変更・取消・返品の監査記録を扱う。
// 記録は書き換えも削除もしない。
type AuditLogRepository interface {
	// 変更と同じtxで呼ぶ（変更がrollbackされたら記録も残らない）
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順。Limitが0か上限超えなら既定件数
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}

// AuditLogFilter のnilの項目は絞り込まない。
// CreatedFrom/CreatedTo は両端を含む
type AuditLogFilter struct {
	// 誰が（取消・返品した店長、入荷した管理者）
	ActorUserID *int64
	Action      *model.AuditAction
	// 取引か在庫か
	ResourceType *model.AuditResourceType
	// 取引IDまたは商品ID
	ResourceID  *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}
