package repository

import (
	"context"
	"errors"
	"time"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫が足りるときだけ減らす。
// 読んでから書くのではなく条件付きUPDATE1文なので、同じ行への同時更新はDBの行ロックで直列化される
func (r *InventoryGormRepository) CheckAndReserve(ctx context.Context, productID int64, qty int64) (bool, error) {
	//0や負の数だと条件が常に真になり在庫が増えてしまう
	if qty < 1 {
		return false, repo.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ? AND quantity >= ?", productID, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	//0件：レコードが無いのか在庫不足なのかを区別する
	exists, err := r.exists(ctx, productID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, repo.ErrNotFound
	}
	return false, nil
}

// 在庫戻し（取消・返品）
func (r *InventoryGormRepository) Restore(ctx context.Context, productID int64, qty int64) error {
	if qty < 1 {
		return repo.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *InventoryGormRepository) IsLowStock(ctx context.Context, productID int64) (bool, error) {
	rec, err := r.FindByProductID(ctx, productID)
	if err != nil {
		return false, err
	}
	return rec.IsLowStock(), nil
}

func (r *InventoryGormRepository) FindByProductID(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	if err != nil {
		return model.InventoryRecord{}, err
	}
	return rec, nil
}

func (r *InventoryGormRepository) FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]model.InventoryRecord, error) {
	out := make(map[int64]model.InventoryRecord, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var recs []model.InventoryRecord
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&recs).Error; err != nil {
		return nil, err
	}
	for _, rec := range recs {
		out[rec.ProductID] = rec
	}
	return out, nil
}

func (r *InventoryGormRepository) List(ctx context.Context, page int, limit int) ([]model.InventoryRecord, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.InventoryRecord{}).Count(&total).Error; err != nil {
		return []model.InventoryRecord{}, 0, err
	}

	var recs []model.InventoryRecord
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Order("product_id asc").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return []model.InventoryRecord{}, 0, err
	}
	return recs, total, nil
}

// quantity <= min_stock_level のもの
func (r *InventoryGormRepository) ListLowStock(ctx context.Context) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("quantity <= min_stock_level").
		Order("quantity asc").
		Order("product_id asc").
		Find(&recs).Error
	if err != nil {
		return []model.InventoryRecord{}, err
	}
	return recs, nil
}

func (r *InventoryGormRepository) Create(ctx context.Context, rec model.InventoryRecord) (model.InventoryRecord, error) {
	err := r.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.InventoryRecord{}, repo.ErrDuplicate
	}
	if err != nil {
		return model.InventoryRecord{}, err
	}
	return rec, nil
}

// 入荷。加算と同時に最終入荷日時を更新し、更新後の行を返す
func (r *InventoryGormRepository) Restock(ctx context.Context, productID int64, qty int64) (model.InventoryRecord, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"quantity":        gorm.Expr("quantity + ?", qty),
			"last_restock_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return model.InventoryRecord{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	return r.FindByProductID(ctx, productID)
}

func (r *InventoryGormRepository) UpdateMinStockLevel(ctx context.Context, productID int64, level int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Update("min_stock_level", level)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}

func (r *InventoryGormRepository) exists(ctx context.Context, productID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ repo.InventoryRepository = (*InventoryGormRepository)(nil)
