// internal/service/inventory/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ProductRepository 定义了库存台账的持久化接口。
// 它位于领域层，但由基础设施层实现。
//
// 扣减/回补必须由存储层以单条原子表达式完成
// （stock = GREATEST(stock - ?, 0) / stock = stock + ?），
// 不允许在应用代码里做读-改-写。
type ProductRepository interface {
	// FindActiveByID 查找在售商品；不存在或已下架返回 ErrProductNotFound。
	FindActiveByID(ctx context.Context, id string) (*Product, error)

	// FindByID 查找商品，不过滤上下架状态（调整器和结算后记账需要）。
	FindByID(ctx context.Context, id string) (*Product, error)

	// ReduceStockClamped 原子地扣减库存并把结果钳制在 0 以上。
	// 返回值 oversold 表示请求数量超过了扣减前的库存。
	ReduceStockClamped(ctx context.Context, id string, quantity int) (oversold bool, err error)

	// IncreaseStock 原子地增加库存（stock = stock + quantity）。
	IncreaseStock(ctx context.Context, id string, quantity int) error

	// FindLowStock 返回库存不高于阈值的在售商品，按库存升序，
	// 附带商家和品类名称。
	FindLowStock(ctx context.Context, threshold int) ([]*LowStockEntry, error)
}

// ReservationRepository 定义了库存预占的持久化接口。
type ReservationRepository interface {
	// CreateBatch 在一个事务里插入一批预占记录：要么全部生效，要么一条不留。
	CreateBatch(ctx context.Context, reservations []*StockReservation) error

	// Release 释放某个会话下所有未释放的预占，userID 可为空。
	// 返回释放的行数；对不存在/已释放的预占是幂等的。
	Release(ctx context.Context, sessionID, userID string) (int64, error)

	// ReleaseExpired 把已过期且未释放的预占标记为已释放（惰性垃圾回收）。
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)

	// ActiveQuantity 返回某个商品当前生效预占的数量总和。
	// 查询自身用 released_at IS NULL AND expires_at > now 过滤，
	// 因此即使清扫尚未执行，过期预占也不会被计入。
	ActiveQuantity(ctx context.Context, productID string) (int, error)
}

// OrderItemRepository 是订单行项目的只读接口。
type OrderItemRepository interface {
	FindByOrderID(ctx context.Context, orderID string) ([]*OrderItem, error)
}
