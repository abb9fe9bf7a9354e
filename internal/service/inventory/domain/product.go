// internal/service/inventory/domain/product.go
package domain

import "time"

// Product 是库存台账的聚合根。
// Stock 字段是商品可售数量的唯一权威记录，任何提交成功的操作之后
// 它都不允许为负；预占（StockReservation）只在读取可用库存时参与计算，
// 永远不会直接写入这里。
type Product struct {
	ID         string
	Name       string
	VendorID   string
	CategoryID string
	Stock      int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LowStockEntry 是低库存报表的一行，附带告警需要的商家和品类信息。
type LowStockEntry struct {
	Product      *Product
	VendorName   string
	CategoryName string
}
