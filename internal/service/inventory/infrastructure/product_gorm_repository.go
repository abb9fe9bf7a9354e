// internal/service/inventory/infrastructure/product_gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"luzimarket/internal/service/inventory/domain"
)

// GormProductRepository 是 domain.ProductRepository 的 GORM 实现。
//
// 两条写路径都不在应用代码里做读-改-写：
//   - 扣减在一个事务里先 SELECT ... FOR UPDATE 拿行锁判断是否超卖，
//     再用 GREATEST(stock - ?, 0) 让数据库原子地完成钳制；
//   - 回补是一条 stock = stock + ? 的加法更新，天然无竞态。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindActiveByID 查找在售商品。
func (r *GormProductRepository) FindActiveByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return ToDomainProduct(&model), nil
}

// FindByID 查找商品，不过滤上下架状态。
func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return ToDomainProduct(&model), nil
}

// ReduceStockClamped 原子地扣减库存并钳制在 0 以上。
func (r *GormProductRepository) ReduceStockClamped(ctx context.Context, id string, quantity int) (bool, error) {
	oversold := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ProductModel
		// 行锁保证"判断是否超卖"和"扣减"之间没有并发写入插队
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock").
			Where("id = ?", id).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProductNotFound
			}
			return err
		}

		oversold = quantity > model.Stock

		return tx.Model(&ProductModel{}).
			Where("id = ?", id).
			UpdateColumn("stock", gorm.Expr("GREATEST(stock - ?, 0)", quantity)).Error
	})
	return oversold, err
}

// IncreaseStock 原子地回补库存。
func (r *GormProductRepository) IncreaseStock(ctx context.Context, id string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// FindLowStock 返回库存不高于阈值的在售商品，按库存升序。
// 使用 Preload 来预加载商家和品类名称供告警展示。
func (r *GormProductRepository) FindLowStock(ctx context.Context, threshold int) ([]*domain.LowStockEntry, error) {
	var models []*ProductModel
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Category").
		Where("is_active = ? AND stock <= ?", true, threshold).
		Order("stock ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LowStockEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, &domain.LowStockEntry{
			Product:      ToDomainProduct(m),
			VendorName:   m.Vendor.Name,
			CategoryName: m.Category.Name,
		})
	}
	return entries, nil
}
