// internal/service/inventory/domain/port/ledger.go
package port

import "context"

// VendorLedger 是商家余额账本的出站端口。
// 库存子系统只在扣减成功后调用一次记账，账本的其余语义在别处。
type VendorLedger interface {
	// CreditBalance 给商家余额增加一笔销售所得。
	CreditBalance(ctx context.Context, vendorID string, amount float64) error
}
