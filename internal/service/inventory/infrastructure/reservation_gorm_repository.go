// internal/service/inventory/infrastructure/reservation_gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"gorm.io/gorm"

	"luzimarket/internal/service/inventory/domain"
)

// GormReservationRepository 是 domain.ReservationRepository 的 GORM 实现。
// "生效"的判定 (released_at IS NULL AND expires_at > now) 直接写进查询条件，
// 过期预占即使还没被清扫也不会影响可用库存的计算。
type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// CreateBatch 在一个事务里插入一批预占：要么全部生效，要么一条不留。
func (r *GormReservationRepository) CreateBatch(ctx context.Context, reservations []*domain.StockReservation) error {
	if len(reservations) == 0 {
		return domain.ErrInvalidReservation
	}

	models := make([]*StockReservationModel, 0, len(reservations))
	for _, res := range reservations {
		models = append(models, FromDomainReservation(res))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
}

// Release 释放某个会话下所有未释放的预占。
func (r *GormReservationRepository) Release(ctx context.Context, sessionID, userID string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&StockReservationModel{}).
		Where("session_id = ? AND released_at IS NULL", sessionID)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	result := query.Update("released_at", time.Now())
	return result.RowsAffected, result.Error
}

// ReleaseExpired 把已过期且未释放的预占标记为已释放。
func (r *GormReservationRepository) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&StockReservationModel{}).
		Where("released_at IS NULL AND expires_at <= ?", now).
		Update("released_at", now)
	return result.RowsAffected, result.Error
}

// ActiveQuantity 返回某个商品当前生效预占的数量总和。
func (r *GormReservationRepository) ActiveQuantity(ctx context.Context, productID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&StockReservationModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND released_at IS NULL AND expires_at > ?", productID, time.Now()).
		Scan(&total).Error
	return int(total), err
}
