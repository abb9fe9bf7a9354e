// internal/service/inventory/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luzimarket_stock_reservations_created_total",
		Help: "Number of stock reservation rows created.",
	})
	reservationsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luzimarket_stock_reservations_released_total",
		Help: "Number of stock reservations explicitly released.",
	})
	reservationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luzimarket_stock_reservations_expired_total",
		Help: "Number of stale reservations collected by the expiry sweep.",
	})
	oversellClamps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luzimarket_stock_oversell_clamps_total",
		Help: "Number of stock decrements clamped to zero (oversell).",
	})
	adjustmentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luzimarket_stock_adjustment_failures_total",
		Help: "Number of per-item stock adjustments that failed.",
	})
	lowStockAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luzimarket_low_stock_alerts_total",
		Help: "Number of low-stock alert events emitted.",
	})
)
