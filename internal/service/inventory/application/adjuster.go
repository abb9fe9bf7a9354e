// internal/service/inventory/application/adjuster.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/service/inventory/domain"
	"luzimarket/internal/service/inventory/domain/port"
)

// StockAdjuster 把一个订单的全部行项目作为一个工作单元，
// 执行持久化的库存扣减（支付成功）和回补（取消/退款）。
//
// 每个行项目独立提交：一个行项目的商品被删除、或行锁被后台编辑占住，
// 不应卡死整个订单的其余调整。因此失败逐项收集，已生效的调整不回滚，
// 整体是否完全成功由 AdjustmentReport.OK() 表达。
type StockAdjuster struct {
	products   domain.ProductRepository
	orderItems domain.OrderItemRepository
	publisher  port.StockEventPublisher // 可为 nil
	tracer     trace.Tracer
}

func NewStockAdjuster(products domain.ProductRepository, orderItems domain.OrderItemRepository, publisher port.StockEventPublisher, tracer trace.Tracer) *StockAdjuster {
	return &StockAdjuster{
		products:   products,
		orderItems: orderItems,
		publisher:  publisher,
		tracer:     tracer,
	}
}

// ReduceStock 在支付成功后扣减订单内每个商品的台账库存。
//
// 扣减由存储层钳制在 0 以上。请求数量超过当时库存（超卖）不视为失败：
// 记一条告警日志并发布对账事件，继续处理。只有存储层写失败才算行项目失败。
// 返回 error 仅当订单行项目本身加载失败（此时什么都没动）。
func (a *StockAdjuster) ReduceStock(ctx context.Context, orderID string) (*domain.AdjustmentReport, error) {
	ctx, span := a.tracer.Start(ctx, "inventory.ReduceStock")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	items, err := a.orderItems.FindByOrderID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order items")
		return nil, errors.Wrapf(err, "failed to load items for order %s", orderID)
	}

	report := &domain.AdjustmentReport{OrderID: orderID}
	for _, item := range items {
		outcome := domain.AdjustmentOutcome{ProductID: item.ProductID, Quantity: item.Quantity}

		oversold, err := a.products.ReduceStockClamped(ctx, item.ProductID, item.Quantity)
		if err != nil {
			outcome.Err = err
			adjustmentFailures.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", orderID).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock decrement failed, continuing with remaining items")
			a.publish(ctx, &domain.StockEvent{
				Type:      domain.StockAdjustmentFailed,
				ProductID: item.ProductID,
				OrderID:   orderID,
				Quantity:  item.Quantity,
				Detail:    err.Error(),
			})
		} else if oversold {
			outcome.Oversold = true
			oversellClamps.Inc()
			logger.Ctx(ctx).Warn().
				Str("order_id", orderID).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("requested quantity exceeded current stock, clamped to zero for reconciliation")
			a.publish(ctx, &domain.StockEvent{
				Type:      domain.StockOversellClamped,
				ProductID: item.ProductID,
				OrderID:   orderID,
				Quantity:  item.Quantity,
			})
		}

		report.Items = append(report.Items, outcome)
	}

	if !report.OK() {
		span.SetStatus(codes.Error, "stock reduction partially failed")
		span.SetAttributes(attribute.Int("adjustment.failed_items", len(report.Failed())))
	}
	return report, nil
}

// RestoreStock 在订单取消/退款后把每个行项目的数量加回台账。
// 回补是单条加法表达式（stock = stock + q），无条件且天然无竞态。
// 失败处理策略与 ReduceStock 一致：逐项收集，互不阻塞。
func (a *StockAdjuster) RestoreStock(ctx context.Context, orderID string) (*domain.AdjustmentReport, error) {
	ctx, span := a.tracer.Start(ctx, "inventory.RestoreStock")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	items, err := a.orderItems.FindByOrderID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order items")
		return nil, errors.Wrapf(err, "failed to load items for order %s", orderID)
	}

	report := &domain.AdjustmentReport{OrderID: orderID}
	for _, item := range items {
		outcome := domain.AdjustmentOutcome{ProductID: item.ProductID, Quantity: item.Quantity}

		if err := a.products.IncreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			outcome.Err = err
			adjustmentFailures.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", orderID).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock restore failed, continuing with remaining items")
			a.publish(ctx, &domain.StockEvent{
				Type:      domain.StockAdjustmentFailed,
				ProductID: item.ProductID,
				OrderID:   orderID,
				Quantity:  item.Quantity,
				Detail:    err.Error(),
			})
		}

		report.Items = append(report.Items, outcome)
	}

	if !report.OK() {
		span.SetStatus(codes.Error, "stock restore partially failed")
	}
	return report, nil
}

func (a *StockAdjuster) publish(ctx context.Context, event *domain.StockEvent) {
	if a.publisher == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.OccurredAt = time.Now()
	if err := a.publisher.Publish(ctx, event); err != nil {
		// 事件丢失只影响对账的及时性，不影响台账正确性
		logger.Ctx(ctx).Error().Err(err).Str("type", string(event.Type)).Msg("failed to publish stock event")
	}
}
