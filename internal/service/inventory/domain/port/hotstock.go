// internal/service/inventory/domain/port/hotstock.go
package port

import "context"

// HoldResult 是热点商品防护的判定结果
type HoldResult int

const (
	// HoldUnguarded 表示该商品没有开启热点防护，走普通预占路径。
	HoldUnguarded HoldResult = iota
	// HoldGranted 表示防护层原子地扣到了额度。
	HoldGranted
	// HoldSoldOut 表示防护层判定额度不足。
	HoldSoldOut
)

// HotStockGuard 是热点（秒杀类）商品的前置防护。
// 普通预占的"先查可用、再插入"之间存在先检查后使用的竞态窗口，
// 对高并发的热点商品，防护层用一次原子的条件扣减把窗口关掉；
// 数据库里的预占记录仍然是唯一的持久事实。
type HotStockGuard interface {
	// TryHold 尝试为一次结算原子地占用额度。
	TryHold(ctx context.Context, productID string, quantity int) (HoldResult, error)

	// CreditBack 把额度还回去（预占失败回滚、预占释放）。
	CreditBack(ctx context.Context, productID string, quantity int) error

	// Prime 把某个商品标记为热点并设置初始额度（运营/管理操作）。
	Prime(ctx context.Context, productID string, available int) error
}
