package repository

import (
	"context"

	"pos/internal/domain/model"
)

// 商品の読み取り。カタログ管理は外部なので作成はシード・テスト用
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	//見つかったものだけをIDをキーにして返す
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
}
