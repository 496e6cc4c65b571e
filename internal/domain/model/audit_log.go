package model

import "time"

// 在庫更新、取引ステータス更新など。
type AuditAction string

const (
	//在庫を更新した操作（入荷・発注点変更）。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//在庫レコードを登録した操作。
	AuditActionCreateInventory AuditAction = "CREATE_INVENTORY"
	//取引ステータスを更新した操作（取消・返品）。
	AuditActionUpdateTransactionStatus AuditAction = "UPDATE_TRANSACTION_STATUS"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceInventory   AuditResourceType = "inventory"
	AuditResourceTransaction AuditResourceType = "transaction"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。変更と同じトランザクションで書く
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（店長・管理者）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
