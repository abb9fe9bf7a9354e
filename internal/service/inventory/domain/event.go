// internal/service/inventory/domain/event.go
package domain

import "time"

// PaymentEventType 是支付编排器收到的上游事件类型
type PaymentEventType string

const (
	PaymentSucceeded PaymentEventType = "payment.succeeded"
	PaymentFailed    PaymentEventType = "payment.failed"
	OrderCancelled   PaymentEventType = "order.cancelled"
)

// PaymentEvent 是支付网关 webhook 转发进来的事件载体。
// SessionID 用于在支付完成时释放对应结算会话的预占。
type PaymentEvent struct {
	EventID    string           `json:"eventId"`
	Type       PaymentEventType `json:"type"`
	OrderID    string           `json:"orderId"`
	SessionID  string           `json:"sessionId,omitempty"`
	UserID     string           `json:"userId,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// StockEventType 是库存子系统对外发布的事件类型
type StockEventType string

const (
	// StockOversellClamped 表示一次扣减被钳制到 0，需要人工对账。
	StockOversellClamped StockEventType = "stock.oversell_clamped"
	// StockLow 表示商品库存达到了告警规则的条件。
	StockLow StockEventType = "stock.low"
	// StockAdjustmentFailed 表示某个行项目的库存调整失败。
	StockAdjustmentFailed StockEventType = "stock.adjustment_failed"
)

// StockEvent 是发布到 stock-events 主题的事件载体，
// 供对账任务和管理后台的实时推送网关消费。
type StockEvent struct {
	EventID    string         `json:"eventId"`
	Type       StockEventType `json:"type"`
	ProductID  string         `json:"productId"`
	OrderID    string         `json:"orderId,omitempty"`
	VendorID   string         `json:"vendorId,omitempty"`
	Quantity   int            `json:"quantity,omitempty"`
	Stock      int            `json:"stock,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
