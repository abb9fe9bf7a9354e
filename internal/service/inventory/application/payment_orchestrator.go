// internal/service/inventory/application/payment_orchestrator.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/service/inventory/domain"
	"luzimarket/internal/service/inventory/domain/port"
)

// PaymentOrchestrator 处理支付管道发来的事件，串起库存收尾工作：
// 支付成功 → 扣减台账、释放预占、给商家记账、通知买家；
// 支付失败/订单取消 → 回补台账、释放预占。
//
// 库存记账的内部故障不反过来惩罚买家：扣减部分失败只告警，
// 支付确认照常进行，订单留给人工对账。
type PaymentOrchestrator struct {
	adjuster     *StockAdjuster
	reservations *ReservationManager
	orderItems   domain.OrderItemRepository
	products     domain.ProductRepository
	ledger       port.VendorLedger // 可为 nil
	notifier     port.Notifier     // 可为 nil
	tracer       trace.Tracer
}

func NewPaymentOrchestrator(
	adjuster *StockAdjuster,
	reservations *ReservationManager,
	orderItems domain.OrderItemRepository,
	products domain.ProductRepository,
	ledger port.VendorLedger,
	notifier port.Notifier,
	tracer trace.Tracer,
) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		adjuster:     adjuster,
		reservations: reservations,
		orderItems:   orderItems,
		products:     products,
		ledger:       ledger,
		notifier:     notifier,
		tracer:       tracer,
	}
}

// Handle 按事件类型分发。未知类型只记日志，不算错误（上游可能先行扩展）。
func (o *PaymentOrchestrator) Handle(ctx context.Context, event *domain.PaymentEvent) error {
	switch event.Type {
	case domain.PaymentSucceeded:
		return o.HandlePaymentSucceeded(ctx, event)
	case domain.PaymentFailed:
		return o.HandlePaymentFailed(ctx, event)
	case domain.OrderCancelled:
		return o.HandleOrderCancelled(ctx, event)
	default:
		logger.Ctx(ctx).Warn().Str("type", string(event.Type)).Msg("ignoring unknown payment event type")
		return nil
	}
}

// HandlePaymentSucceeded 在订单被标记为已支付之后执行库存收尾。
func (o *PaymentOrchestrator) HandlePaymentSucceeded(ctx context.Context, event *domain.PaymentEvent) error {
	ctx, span := o.tracer.Start(ctx, "inventory.HandlePaymentSucceeded")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", event.OrderID))

	report, err := o.adjuster.ReduceStock(ctx, event.OrderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reduction could not start")
		return err
	}
	if !report.OK() {
		// 部分失败不阻断支付确认，留给人工库存对账
		logger.Ctx(ctx).Warn().
			Str("order_id", event.OrderID).
			Int("failed_items", len(report.Failed())).
			Msg("stock reduction partially failed, order flagged for manual reconciliation")
	}

	// 扣减提交后立刻释放本次结算的预占，避免预占和扣减
	// 同时压低可用库存的双重计数窗口。
	if event.SessionID != "" {
		if err := o.reservations.Release(ctx, event.SessionID, event.UserID); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("session_id", event.SessionID).
				Msg("failed to release checkout reservations, they will lapse by TTL")
		}
	}

	o.creditVendors(ctx, event.OrderID, report)

	if o.notifier != nil {
		if err := o.notifier.NotifyPaymentConfirmed(ctx, event.OrderID, event.UserID); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", event.OrderID).Msg("failed to send payment confirmation")
		}
	}
	return nil
}

// HandlePaymentFailed 回补库存并释放预占。
func (o *PaymentOrchestrator) HandlePaymentFailed(ctx context.Context, event *domain.PaymentEvent) error {
	return o.restoreAndRelease(ctx, event, "payment failed")
}

// HandleOrderCancelled 与支付失败走同一条回补路径。
func (o *PaymentOrchestrator) HandleOrderCancelled(ctx context.Context, event *domain.PaymentEvent) error {
	return o.restoreAndRelease(ctx, event, "order cancelled")
}

func (o *PaymentOrchestrator) restoreAndRelease(ctx context.Context, event *domain.PaymentEvent, reason string) error {
	ctx, span := o.tracer.Start(ctx, "inventory.RestoreStockFlow")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("restore.reason", reason),
	)

	report, err := o.adjuster.RestoreStock(ctx, event.OrderID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !report.OK() {
		logger.Ctx(ctx).Warn().
			Str("order_id", event.OrderID).
			Int("failed_items", len(report.Failed())).
			Msg("stock restore partially failed, order flagged for manual reconciliation")
	}

	if event.SessionID != "" {
		if err := o.reservations.Release(ctx, event.SessionID, event.UserID); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("session_id", event.SessionID).
				Msg("failed to release checkout reservations, they will lapse by TTL")
		}
	}

	if o.notifier != nil {
		if err := o.notifier.NotifyOrderCancelled(ctx, event.OrderID, event.UserID, reason); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", event.OrderID).Msg("failed to send cancellation notice")
		}
	}
	return nil
}

// creditVendors 为每个扣减成功的行项目给对应商家记一笔销售所得。
// 行项目和调整结果按下标一一对应（调整器按加载顺序逐项追加结果），
// 同一个商品出现在多个行项目里时各记各的金额。
// 记账失败只记日志：余额账本有自己的对账机制。
func (o *PaymentOrchestrator) creditVendors(ctx context.Context, orderID string, report *domain.AdjustmentReport) {
	if o.ledger == nil {
		return
	}

	items, err := o.orderItems.FindByOrderID(ctx, orderID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", orderID).Msg("failed to reload items for vendor crediting")
		return
	}
	if len(items) != len(report.Items) {
		// 行项目是不可变的，数量对不上说明读到了别的订单状态，放弃记账
		logger.Ctx(ctx).Error().
			Str("order_id", orderID).
			Int("items", len(items)).
			Int("outcomes", len(report.Items)).
			Msg("order items and adjustment outcomes diverged, skipping vendor crediting")
		return
	}

	for i, outcome := range report.Items {
		if outcome.Err != nil {
			continue
		}
		item := items[i]
		if item.ProductID != outcome.ProductID {
			logger.Ctx(ctx).Error().
				Str("order_id", orderID).
				Str("item_product", item.ProductID).
				Str("outcome_product", outcome.ProductID).
				Msg("order item and adjustment outcome out of step, skipping this credit")
			continue
		}
		product, err := o.products.FindByID(ctx, outcome.ProductID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("product_id", outcome.ProductID).
				Msg("failed to resolve vendor for crediting")
			continue
		}
		if err := o.ledger.CreditBalance(ctx, product.VendorID, item.Price*float64(item.Quantity)); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("vendor_id", product.VendorID).
				Str("order_id", orderID).
				Msg("failed to credit vendor balance")
		}
	}
}
