// internal/service/inventory/infrastructure/kafka_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/pkg/mq"
	"luzimarket/internal/service/inventory/application"
	"luzimarket/internal/service/inventory/domain"
)

// PaymentEventConsumer 是一个驱动适配器，监听支付事件并驱动支付编排器。
// 它是支付网关 webhook 的异步入口；HTTP 的 /internal/payment-webhook
// 是同一条逻辑的同步入口。
type PaymentEventConsumer struct {
	reader       *kafka.Reader
	orchestrator *application.PaymentOrchestrator
	tracer       trace.Tracer
	wg           sync.WaitGroup
}

// NewPaymentEventConsumer 创建一个新的Kafka消费者适配器。
func NewPaymentEventConsumer(reader *kafka.Reader, orchestrator *application.PaymentOrchestrator, tracer trace.Tracer) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		reader:       reader,
		orchestrator: orchestrator,
		tracer:       tracer,
	}
}

// Run 开始消费支付事件，直到 ctx 被取消。
func (c *PaymentEventConsumer) Run(ctx context.Context) error {
	c.wg.Add(1)
	defer c.wg.Done()

	logger.Logger().Info().Str("topic", c.reader.Config().Topic).Msg("payment event consumer started")
	for {
		// 用 FetchMessage 而不是 ReadMessage，以便控制提交时机
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Logger().Info().Msg("payment event consumer shutting down")
				return nil
			}
			logger.Logger().Error().Err(err).Msg("could not read message, retrying")
			time.Sleep(time.Second) // 避免快速失败循环
			continue
		}

		c.processMessage(ctx, msg)

		// 事件处理是幂等之外靠人工对账兜底的，处理完即提交，
		// 避免一条坏消息反复毒化整个分区
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Logger().Error().Err(err).Msg("failed to commit messages")
		}
	}
}

// Stop 优雅地停止消费者。
func (c *PaymentEventConsumer) Stop() {
	c.reader.Close()
	c.wg.Wait()
}

// processMessage 反序列化消息、恢复追踪上下文并调用编排器。
func (c *PaymentEventConsumer) processMessage(parentCtx context.Context, msg kafka.Message) {
	var event domain.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 在生产环境中，应将消息移至死信队列（DLQ）
		logger.Logger().Error().Err(err).Msg("failed to unmarshal payment event, message skipped")
		return
	}

	ctx := mq.ExtractTraceContext(parentCtx, &msg)
	ctx, span := c.tracer.Start(ctx, "inventory.ConsumePaymentEvent", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	if err := c.orchestrator.Handle(ctx, &event); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", event.OrderID).
			Str("type", string(event.Type)).
			Msg("payment event handling failed")
	}
}
