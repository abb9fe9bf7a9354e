// internal/service/inventory/application/dto.go
package application

import "luzimarket/internal/service/inventory/domain"

// CartItemRequest 是 HTTP 层传入的单个购物车条目。
type CartItemRequest struct {
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	DisplayName string `json:"displayName,omitempty"`
}

// ValidateCartRequest 是库存校验接口的请求体。
type ValidateCartRequest struct {
	Items []CartItemRequest `json:"items"`
}

// ReserveStockRequest 是预占接口的请求体。
type ReserveStockRequest struct {
	Items      []CartItemRequest `json:"items"`
	UserID     string            `json:"userId,omitempty"`
	SessionID  string            `json:"sessionId"`
	Type       string            `json:"type,omitempty"` // cart | checkout，默认 checkout
	TTLMinutes int               `json:"ttlMinutes,omitempty"`
}

// ReleaseStockRequest 是释放接口的请求体。
type ReleaseStockRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

// ShortfallResponse 是返回给前端渲染的单条缺口。
type ShortfallResponse struct {
	ProductID         string `json:"productId"`
	ProductName       string `json:"productName"`
	RequestedQuantity int    `json:"requestedQuantity"`
	AvailableStock    int    `json:"availableStock"`
}

// ValidationResponse 是校验/预占接口共用的业务结果。
type ValidationResponse struct {
	IsValid    bool                `json:"isValid"`
	Shortfalls []ShortfallResponse `json:"shortfalls,omitempty"`
}

// ReserveStockResponse 是预占成功时的响应体。
type ReserveStockResponse struct {
	SessionID      string   `json:"sessionId"`
	ReservationIDs []string `json:"reservationIds"`
	ExpiresAt      string   `json:"expiresAt"`
}

// LowStockItemResponse 是低库存报表的一行。
type LowStockItemResponse struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	Stock        int    `json:"stock"`
	VendorID     string `json:"vendorId"`
	VendorName   string `json:"vendorName"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

// ToCartItems 把 HTTP 条目转换为领域条目。
func ToCartItems(items []CartItemRequest) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.CartItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			DisplayName: item.DisplayName,
		})
	}
	return out
}

// ToShortfallResponses 把领域缺口转换为响应条目。
func ToShortfallResponses(shortfalls []domain.StockShortfall) []ShortfallResponse {
	out := make([]ShortfallResponse, 0, len(shortfalls))
	for _, s := range shortfalls {
		out = append(out, ShortfallResponse{
			ProductID:         s.ProductID,
			ProductName:       s.ProductName,
			RequestedQuantity: s.RequestedQuantity,
			AvailableStock:    s.AvailableStock,
		})
	}
	return out
}
