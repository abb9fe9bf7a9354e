// internal/service/inventory/infrastructure/kafka_producer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"luzimarket/internal/pkg/mq"
	"luzimarket/internal/service/inventory/domain"
)

// StockEventKafkaPublisher 实现了 port.StockEventPublisher。
// 以 productID 作为消息 key，同一个商品的事件保持分区内有序。
type StockEventKafkaPublisher struct {
	writer *kafka.Writer
}

func NewStockEventKafkaPublisher(writer *kafka.Writer) *StockEventKafkaPublisher {
	return &StockEventKafkaPublisher{writer: writer}
}

func (p *StockEventKafkaPublisher) Publish(ctx context.Context, event *domain.StockEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stock event: %w", err)
	}
	// mq.ProduceMessage 会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, p.writer, []byte(event.ProductID), eventBytes)
}

// Close 关闭底层的Kafka writer。
func (p *StockEventKafkaPublisher) Close() error {
	return p.writer.Close()
}

// notificationEvent 是通知服务消费的载体，邮件模板在下游渲染。
type notificationEvent struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// NotificationKafkaAdapter 实现了 port.Notifier 接口。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// NotifyPaymentConfirmed 发送支付确认通知。
func (a *NotificationKafkaAdapter) NotifyPaymentConfirmed(ctx context.Context, orderID, userID string) error {
	return a.send(ctx, notificationEvent{
		UserID:  userID,
		OrderID: orderID,
		Kind:    "payment_confirmed",
	})
}

// NotifyOrderCancelled 发送订单取消通知。
func (a *NotificationKafkaAdapter) NotifyOrderCancelled(ctx context.Context, orderID, userID, reason string) error {
	return a.send(ctx, notificationEvent{
		UserID:  userID,
		OrderID: orderID,
		Kind:    "order_cancelled",
		Message: reason,
	})
}

func (a *NotificationKafkaAdapter) send(ctx context.Context, event notificationEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.UserID), eventBytes)
}

// Close 关闭底层的Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
