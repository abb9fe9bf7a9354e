// internal/service/inventory/domain/validation.go
package domain

// CartItem 是校验和预占请求的一个条目。
// DisplayName 用于在商品已不存在时仍能向用户展示可读的名字。
type CartItem struct {
	ProductID   string
	Quantity    int
	DisplayName string
}

// StockShortfall 描述单个条目的缺口：请求了多少、实际可用多少。
// 缺货是业务结果而不是错误，调用方一次拿到全部缺口以便整体展示。
type StockShortfall struct {
	ProductID         string
	ProductName       string
	RequestedQuantity int
	AvailableStock    int
}

// ValidationResult 是一次购物车库存校验的完整结果。
type ValidationResult struct {
	IsValid    bool
	Shortfalls []StockShortfall
}
