// cmd/inventory-service/main.go
package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"luzimarket/internal/pkg/bootstrap"
	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/pkg/mq"
	redispkg "luzimarket/internal/pkg/redis"
	"luzimarket/internal/service/inventory/application"
	"luzimarket/internal/service/inventory/domain/port"
	"luzimarket/internal/service/inventory/infrastructure"
	"luzimarket/internal/service/inventory/infrastructure/rule"
	"luzimarket/internal/service/inventory/interfaces"
	"luzimarket/internal/zookeeper"
)

const serviceName = "inventory-service"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	tracer := otel.Tracer(serviceName)

	// --- 持久化 ---
	db, err := infrastructure.NewDB(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
	}
	productRepo := infrastructure.NewGormProductRepository(db)
	reservationRepo := infrastructure.NewGormReservationRepository(db)
	orderItemRepo := infrastructure.NewGormOrderItemRepository(db)
	vendorLedger := infrastructure.NewGormVendorLedger(db)

	// --- 热点商品防护（可选）---
	var hotGuard port.HotStockGuard
	var redisClient *redispkg.Client
	if cfg.Infra.Redis.Addr != "" {
		redisClient, err = redispkg.NewClient(context.Background(), cfg.Infra.Redis.Addr)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to redis")
		}
		hotGuard, err = infrastructure.NewHotStockRedisAdapter(redisClient)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to initialize hot stock guard")
		}
	}

	// --- 过期清扫的跨实例互斥（可选）---
	var sweepLock application.SweepLock
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 10*time.Second)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		sweepLock, err = zookeeper.NewDistributedLock(zkConn, "reservation-sweep")
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to create sweep lock")
		}
	}

	// --- 消息 ---
	stockEventWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StockEventsTopic)
	publisher := infrastructure.NewStockEventKafkaPublisher(stockEventWriter)
	notifWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationsTopic)
	notifier := infrastructure.NewNotificationKafkaAdapter(notifWriter)

	// --- 告警规则 ---
	ruleEngine, err := rule.NewCELRuleEngineAdapter()
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize alert rule engine")
	}

	// --- 应用服务 ---
	validator := application.NewCartStockValidator(productRepo, reservationRepo, tracer)
	reservations := application.NewReservationManager(
		validator, reservationRepo, productRepo, hotGuard, sweepLock,
		time.Duration(cfg.App.ReservationTTLMinutes)*time.Minute, tracer,
	)
	adjuster := application.NewStockAdjuster(productRepo, orderItemRepo, publisher, tracer)
	reporter := application.NewLowStockReporter(
		productRepo, ruleEngine, publisher,
		cfg.App.LowStockAlertRule, cfg.App.LowStockThreshold, tracer,
	)
	orchestrator := application.NewPaymentOrchestrator(
		adjuster, reservations, orderItemRepo, productRepo, vendorLedger, notifier, tracer,
	)

	// --- 驱动适配器 ---
	paymentReader := mq.NewReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.ConsumerGroup, cfg.Infra.Kafka.PaymentEventsTopic)
	consumer := infrastructure.NewPaymentEventConsumer(paymentReader, orchestrator, tracer)
	handler := interfaces.NewInventoryHandler(validator, reservations, orchestrator, reporter)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8083,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		BackgroundRunners: []func(ctx context.Context) error{
			consumer.Run,
			sweepLoop(reservations, reporter),
		},
		OnShutdown: func(ctx context.Context) {
			consumer.Stop()
			stockEventWriter.Close()
			notifWriter.Close()
			if redisClient != nil {
				redisClient.Close()
			}
		},
	})
}

// sweepLoop 周期性地回收过期预占并发布低库存告警。
// 过期本身是惰性处理的（每次可用库存计算前都会清理），
// 这个循环只是兜底，保证完全没有流量时状态也会收敛。
func sweepLoop(reservations *application.ReservationManager, reporter *application.LowStockReporter) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		alertTicker := time.NewTicker(5 * time.Minute)
		defer alertTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := reservations.CleanupExpired(ctx); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("reservation sweep failed")
				}
			case <-alertTicker.C:
				if _, err := reporter.EmitAlerts(ctx); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("low stock alert emission failed")
				}
			}
		}
	}
}
