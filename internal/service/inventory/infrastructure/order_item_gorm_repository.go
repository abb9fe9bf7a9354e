// internal/service/inventory/infrastructure/order_item_gorm_repository.go
package infrastructure

import (
	"context"

	"gorm.io/gorm"

	"luzimarket/internal/service/inventory/domain"
)

// GormOrderItemRepository 只读访问 order_items 表。
type GormOrderItemRepository struct {
	db *gorm.DB
}

func NewGormOrderItemRepository(db *gorm.DB) *GormOrderItemRepository {
	return &GormOrderItemRepository{db: db}
}

func (r *GormOrderItemRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	var models []*OrderItemModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]*domain.OrderItem, 0, len(models))
	for _, m := range models {
		items = append(items, ToDomainOrderItem(m))
	}
	return items, nil
}
