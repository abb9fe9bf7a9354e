// internal/service/inventory/application/validator.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/service/inventory/domain"
)

// CartStockValidator 对一组 (商品, 数量) 请求做只读的库存校验。
//
// 区分两类"不可用"：
//   - 商品不存在/已下架、可用库存不足 —— 业务结果，以缺口列表的形式返回；
//   - 存储层读失败 —— 基础设施错误，整次校验失败并向上抛出。
//
// 把数据库错误静默当成"全部缺货"会错误地拦下合法的结算，所以后者必须硬失败。
type CartStockValidator struct {
	products     domain.ProductRepository
	reservations domain.ReservationRepository
	tracer       trace.Tracer
}

func NewCartStockValidator(products domain.ProductRepository, reservations domain.ReservationRepository, tracer trace.Tracer) *CartStockValidator {
	return &CartStockValidator{
		products:     products,
		reservations: reservations,
		tracer:       tracer,
	}
}

// Validate 校验每个条目的可用库存（台账 - 生效预占）是否满足请求数量。
// 校验前先执行一次过期清扫，保证陈旧预占不会压低可用数字。
//
// 空购物车返回 ErrEmptyCart 而不是"空集全部满足"的通过结果：
// 结算入口不会合法地带着零个条目走到这里，一旦出现说明调用方有 bug，
// 放行会让它继续走到预占和支付。
func (v *CartStockValidator) Validate(ctx context.Context, items []domain.CartItem) (*domain.ValidationResult, error) {
	ctx, span := v.tracer.Start(ctx, "inventory.ValidateCartStock")
	defer span.End()
	span.SetAttributes(attribute.Int("cart.items", len(items)))

	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// 过期预占先回收，这是每个可用库存计算入口的前置条件。
	// 这条惰性清扫不走 ZooKeeper 锁：更新是幂等的，并发执行无害，
	// 锁只用来挡掉多实例后台清扫的重复扫描（见 CleanupExpired）。
	if expired, err := v.reservations.ReleaseExpired(ctx, time.Now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "expiry sweep failed")
		return nil, errors.Wrap(err, "failed to sweep expired reservations")
	} else if expired > 0 {
		reservationsExpired.Add(float64(expired))
	}

	result := &domain.ValidationResult{IsValid: true}
	for _, item := range items {
		available, name, err := v.availability(ctx, item)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "availability lookup failed")
			return nil, err
		}

		if available < item.Quantity {
			result.IsValid = false
			result.Shortfalls = append(result.Shortfalls, domain.StockShortfall{
				ProductID:         item.ProductID,
				ProductName:       name,
				RequestedQuantity: item.Quantity,
				AvailableStock:    available,
			})
		}
	}

	if !result.IsValid {
		logger.Ctx(ctx).Info().
			Int("shortfalls", len(result.Shortfalls)).
			Msg("cart stock validation failed")
	}
	return result, nil
}

// availability 计算单个条目的可用库存和展示名。
// 商品缺失/下架是合法的"可用为 0"，不是错误。
func (v *CartStockValidator) availability(ctx context.Context, item domain.CartItem) (int, string, error) {
	product, err := v.products.FindActiveByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return 0, item.DisplayName, nil
		}
		return 0, "", errors.Wrapf(err, "failed to load product %s", item.ProductID)
	}

	reserved, err := v.reservations.ActiveQuantity(ctx, item.ProductID)
	if err != nil {
		return 0, "", errors.Wrapf(err, "failed to sum reservations for product %s", item.ProductID)
	}

	available := product.Stock - reserved
	if available < 0 {
		available = 0
	}
	return available, product.Name, nil
}
