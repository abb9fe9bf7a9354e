// internal/service/inventory/domain/port/notifier.go
package port

import "context"

// Notifier 是买家通知的出站端口（邮件模板渲染在下游服务完成）。
type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, orderID, userID string) error
	NotifyOrderCancelled(ctx context.Context, orderID, userID, reason string) error
}
