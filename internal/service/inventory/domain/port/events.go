// internal/service/inventory/domain/port/events.go
package port

import (
	"context"

	"luzimarket/internal/service/inventory/domain"
)

// StockEventPublisher 把库存事件发布给下游（对账任务、推送网关）。
type StockEventPublisher interface {
	Publish(ctx context.Context, event *domain.StockEvent) error
}
