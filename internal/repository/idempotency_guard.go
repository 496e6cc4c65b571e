package repository

import (
	"context"
	"time"
)

// 同じ冪等キーの同時実行を弾くためのロック。
// 永続的な一意性はtransactionsの一意インデックスが持つ
type IdempotencyGuard interface {
	// 取れなければfalse（他のリクエストが処理中）
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
