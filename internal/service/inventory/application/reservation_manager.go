// internal/service/inventory/application/reservation_manager.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/service/inventory/domain"
	"luzimarket/internal/service/inventory/domain/port"
)

// SweepLock 是过期清扫使用的互斥原语（多实例部署时由 ZooKeeper 实现）。
type SweepLock interface {
	Lock() error
	Unlock() error
}

// ReserveResult 是一次预占请求的业务结果。
// OK 为 false 时 Shortfalls 列出每个条目的缺口，基础设施错误不走这里。
type ReserveResult struct {
	OK             bool
	SessionID      string
	ReservationIDs []string
	Shortfalls     []domain.StockShortfall
	ExpiresAt      time.Time
}

// ReservationManager 管理库存预占的完整生命周期：
// 创建（带前置校验）、显式释放、惰性过期回收、可用库存查询。
// 预占永远不碰台账库存。
type ReservationManager struct {
	validator    *CartStockValidator
	reservations domain.ReservationRepository
	products     domain.ProductRepository
	hotGuard     port.HotStockGuard // 可为 nil
	sweepLock    SweepLock          // 可为 nil，此时清扫不做跨实例互斥
	defaultTTL   time.Duration
	tracer       trace.Tracer
}

func NewReservationManager(
	validator *CartStockValidator,
	reservations domain.ReservationRepository,
	products domain.ProductRepository,
	hotGuard port.HotStockGuard,
	sweepLock SweepLock,
	defaultTTL time.Duration,
	tracer trace.Tracer,
) *ReservationManager {
	if defaultTTL <= 0 {
		defaultTTL = domain.DefaultCheckoutTTL
	}
	return &ReservationManager{
		validator:    validator,
		reservations: reservations,
		products:     products,
		hotGuard:     hotGuard,
		sweepLock:    sweepLock,
		defaultTTL:   defaultTTL,
		tracer:       tracer,
	}
}

// Reserve 为一次结算会话批量创建预占。
//
// 流程：过期清扫 → 重新校验可用库存 → （热点商品先过原子防护）→
// 在一个事务里插入全部预占行。任何一步失败都不会留下部分预占。
// 缺货返回 OK=false 的结果；存储失败返回 error，由调用方转换成
// "暂时无法锁定库存，请重试"。
func (m *ReservationManager) Reserve(ctx context.Context, items []domain.CartItem, userID, sessionID string, typ domain.ReservationType, ttl time.Duration) (*ReserveResult, error) {
	ctx, span := m.tracer.Start(ctx, "inventory.ReserveStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("reservation.session_id", sessionID),
		attribute.String("reservation.type", string(typ)),
		attribute.Int("reservation.items", len(items)),
	)

	if sessionID == "" {
		return nil, domain.ErrInvalidReservation
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	// 预占创建前重新校验，防止对"幻影库存"建立预占。
	// Validate 内部已经做了过期清扫。
	validation, err := m.validator.Validate(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pre-reservation validation failed")
		return nil, err
	}
	if !validation.IsValid {
		span.AddEvent("reservation rejected: insufficient stock")
		return &ReserveResult{OK: false, SessionID: sessionID, Shortfalls: validation.Shortfalls}, nil
	}

	// 热点商品走 Redis 原子防护，关掉普通路径"查-插"之间的竞态窗口。
	held, hotResult, err := m.tryHotHolds(ctx, items)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if hotResult != nil {
		// 防护层判定额度不足
		return hotResult, nil
	}

	reservations := make([]*domain.StockReservation, 0, len(items))
	for _, item := range items {
		r, err := domain.NewStockReservation(item.ProductID, item.Quantity, userID, sessionID, typ, ttl)
		if err != nil {
			m.creditBack(ctx, held)
			return nil, err
		}
		reservations = append(reservations, r)
	}

	if err := m.reservations.CreateBatch(ctx, reservations); err != nil {
		// 批量插入是事务性的，数据库侧不会留下部分预占；
		// 这里只需要把热点额度还回去。
		m.creditBack(ctx, held)
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation insert failed")
		return nil, errors.Wrap(err, "failed to create stock reservations")
	}

	reservationsCreated.Add(float64(len(reservations)))
	result := &ReserveResult{
		OK:        true,
		SessionID: sessionID,
		ExpiresAt: reservations[0].ExpiresAt,
	}
	for _, r := range reservations {
		result.ReservationIDs = append(result.ReservationIDs, r.ID)
	}

	logger.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Int("items", len(reservations)).
		Time("expires_at", result.ExpiresAt).
		Msg("stock reserved")
	return result, nil
}

// tryHotHolds 对热点商品逐个尝试原子占用额度。
// 某个条目被拒时，把已占到的额度全部还回去，并返回缺货结果。
func (m *ReservationManager) tryHotHolds(ctx context.Context, items []domain.CartItem) ([]domain.CartItem, *ReserveResult, error) {
	if m.hotGuard == nil {
		return nil, nil, nil
	}

	var held []domain.CartItem
	for _, item := range items {
		result, err := m.hotGuard.TryHold(ctx, item.ProductID, item.Quantity)
		if err != nil {
			m.creditBack(ctx, held)
			return nil, nil, errors.Wrapf(err, "hot stock guard failed for product %s", item.ProductID)
		}
		switch result {
		case port.HoldGranted:
			held = append(held, item)
		case port.HoldSoldOut:
			m.creditBack(ctx, held)
			available, err := m.GetAvailableStock(ctx, item.ProductID)
			if err != nil {
				available = 0
			}
			return nil, &ReserveResult{
				OK: false,
				Shortfalls: []domain.StockShortfall{{
					ProductID:         item.ProductID,
					ProductName:       item.DisplayName,
					RequestedQuantity: item.Quantity,
					AvailableStock:    available,
				}},
			}, nil
		}
	}
	return held, nil, nil
}

func (m *ReservationManager) creditBack(ctx context.Context, held []domain.CartItem) {
	for _, item := range held {
		if err := m.hotGuard.CreditBack(ctx, item.ProductID, item.Quantity); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("product_id", item.ProductID).
				Msg("failed to credit hot stock back, counter will self-heal on re-prime")
		}
	}
}

// Release 释放某个会话下的全部预占。幂等：没有可释放的预占不算错误。
func (m *ReservationManager) Release(ctx context.Context, sessionID, userID string) error {
	ctx, span := m.tracer.Start(ctx, "inventory.ReleaseReservations")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.session_id", sessionID))

	released, err := m.reservations.Release(ctx, sessionID, userID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "failed to release reservations for session %s", sessionID)
	}
	if released > 0 {
		reservationsReleased.Add(float64(released))
		if m.hotGuard != nil {
			// 热点额度的回补走台账重置（Prime），这里只记日志。
			logger.Ctx(ctx).Debug().Int64("released", released).Msg("released reservations for hot products")
		}
	}
	logger.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Int64("released", released).
		Msg("reservations released")
	return nil
}

// CleanupExpired 回收已过期且未释放的预占。
// 这是垃圾回收而不是正确性关键的锁：可用库存查询自身也带过期过滤，
// 清扫迟到最多造成良性的重复扫描，不会污染台账。
func (m *ReservationManager) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, span := m.tracer.Start(ctx, "inventory.CleanupExpiredReservations")
	defer span.End()

	if m.sweepLock != nil {
		if err := m.sweepLock.Lock(); err != nil {
			// 抢不到锁说明别的实例正在清扫，跳过即可
			logger.Ctx(ctx).Debug().Err(err).Msg("skipping expiry sweep, another instance holds the lock")
			return 0, nil
		}
		defer func() {
			if err := m.sweepLock.Unlock(); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	expired, err := m.reservations.ReleaseExpired(ctx, time.Now())
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, "failed to release expired reservations")
	}
	if expired > 0 {
		reservationsExpired.Add(float64(expired))
		logger.Ctx(ctx).Info().Int64("expired", expired).Msg("expired reservations collected")
	}
	return expired, nil
}

// GetAvailableStock 返回 台账库存 - 生效预占总量，最低为 0。
// 商品不存在或已下架时返回 0（数据结果，不是错误）。
func (m *ReservationManager) GetAvailableStock(ctx context.Context, productID string) (int, error) {
	ctx, span := m.tracer.Start(ctx, "inventory.GetAvailableStock")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	product, err := m.products.FindActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "failed to load product %s", productID)
	}

	reserved, err := m.reservations.ActiveQuantity(ctx, productID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to sum reservations for product %s", productID)
	}

	available := product.Stock - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}
