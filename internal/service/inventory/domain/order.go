// internal/service/inventory/domain/order.go
package domain

// OrderItem 是订单行项目的只读投影。
// 订单一旦成立，行项目不可变；库存调整器把一个订单的全部行项目
// 作为一个工作单元来处理（逐项尝试、逐项记录结果）。
type OrderItem struct {
	OrderID   string
	ProductID string
	Quantity  int
	Price     float64
}
