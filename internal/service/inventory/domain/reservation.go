// internal/service/inventory/domain/reservation.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationType 区分预占的来源场景
type ReservationType string

const (
	ReservationTypeCart     ReservationType = "cart"     // 购物车软预占
	ReservationTypeCheckout ReservationType = "checkout" // 结算流程中的预占
)

// DefaultCheckoutTTL 是 checkout 预占的默认有效期。
// 超过这个时间仍未释放的预占视为购物者放弃结算。
const DefaultCheckoutTTL = 15 * time.Minute

// StockReservation 表示对某个商品可用库存的临时占用。
// 它不扣减台账库存，只在计算可用库存时被扣除：
// available = ledger stock - Σ active reservations。
// SessionID 标识一次结算会话；UserID 可为空（游客结算）。
type StockReservation struct {
	ID         string
	ProductID  string
	Quantity   int
	UserID     string
	SessionID  string
	Type       ReservationType
	ExpiresAt  time.Time
	ReleasedAt *time.Time
	CreatedAt  time.Time
}

// 工厂函数: NewStockReservation 创建一条新的预占记录
func NewStockReservation(productID string, quantity int, userID, sessionID string, typ ReservationType, ttl time.Duration) (*StockReservation, error) {
	if productID == "" || sessionID == "" {
		return nil, ErrInvalidReservation
	}
	if quantity <= 0 {
		return nil, ErrInvalidReservation
	}
	if ttl <= 0 {
		ttl = DefaultCheckoutTTL
	}

	now := time.Now()
	return &StockReservation{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  quantity,
		UserID:    userID,
		SessionID: sessionID,
		Type:      typ,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// Active 判断预占在给定时刻是否仍然生效：
// 未被显式释放，且尚未过期。
func (r *StockReservation) Active(now time.Time) bool {
	return r.ReleasedAt == nil && r.ExpiresAt.After(now)
}

// Release 将预占标记为已释放。重复释放是幂等的。
func (r *StockReservation) Release(now time.Time) {
	if r.ReleasedAt != nil {
		return
	}
	released := now
	r.ReleasedAt = &released
}
