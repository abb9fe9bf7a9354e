// internal/service/inventory/application/lowstock.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/service/inventory/domain"
	"luzimarket/internal/service/inventory/domain/port"
)

// DefaultLowStockThreshold 是低库存报表的默认阈值。
const DefaultLowStockThreshold = 5

// LowStockReporter 提供管理后台的低库存读路径，并按告警规则发布事件。
type LowStockReporter struct {
	products  domain.ProductRepository
	rules     port.AlertRuleEngine     // 可为 nil，此时 EmitAlerts 对报表全量告警
	publisher port.StockEventPublisher // 可为 nil
	alertRule string
	threshold int
	tracer    trace.Tracer
}

func NewLowStockReporter(products domain.ProductRepository, rules port.AlertRuleEngine, publisher port.StockEventPublisher, alertRule string, threshold int, tracer trace.Tracer) *LowStockReporter {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &LowStockReporter{
		products:  products,
		rules:     rules,
		publisher: publisher,
		alertRule: alertRule,
		threshold: threshold,
		tracer:    tracer,
	}
}

// Report 返回库存不高于阈值的在售商品，按库存升序，附带商家/品类信息。
// threshold <= 0 时使用配置的默认阈值。纯读，无副作用。
func (r *LowStockReporter) Report(ctx context.Context, threshold int) ([]*domain.LowStockEntry, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.LowStockReport")
	defer span.End()

	if threshold <= 0 {
		threshold = r.threshold
	}
	span.SetAttributes(attribute.Int("lowstock.threshold", threshold))

	entries, err := r.products.FindLowStock(ctx, threshold)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to query low stock products")
	}
	return entries, nil
}

// EmitAlerts 把满足告警规则的低库存商品发布为 stock.low 事件。
// 规则是一个 CEL 表达式，例如 "is_active && stock <= threshold"，
// 运营可以按商家或品类收紧告警而不用改代码。
func (r *LowStockReporter) EmitAlerts(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.EmitLowStockAlerts")
	defer span.End()

	entries, err := r.Report(ctx, r.threshold)
	if err != nil {
		return 0, err
	}

	emitted := 0
	for _, entry := range entries {
		matched := true
		if r.rules != nil && r.alertRule != "" {
			matched, err = r.rules.Evaluate(r.alertRule, map[string]interface{}{
				"stock":       int64(entry.Product.Stock),
				"threshold":   int64(r.threshold),
				"is_active":   entry.Product.IsActive,
				"vendor_id":   entry.Product.VendorID,
				"category_id": entry.Product.CategoryID,
			})
			if err != nil {
				span.RecordError(err)
				return emitted, errors.Wrap(err, "failed to evaluate low stock alert rule")
			}
		}
		if !matched {
			continue
		}

		if r.publisher != nil {
			event := &domain.StockEvent{
				EventID:    uuid.New().String(),
				Type:       domain.StockLow,
				ProductID:  entry.Product.ID,
				VendorID:   entry.Product.VendorID,
				Stock:      entry.Product.Stock,
				OccurredAt: time.Now(),
			}
			if err := r.publisher.Publish(ctx, event); err != nil {
				logger.Ctx(ctx).Error().Err(err).
					Str("product_id", entry.Product.ID).
					Msg("failed to publish low stock alert")
				continue
			}
		}
		lowStockAlerts.Inc()
		emitted++
	}

	logger.Ctx(ctx).Info().Int("alerts", emitted).Msg("low stock alerts emitted")
	return emitted, nil
}
