// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/pkg/nacos"
	"luzimarket/internal/pkg/utils"
	"luzimarket/internal/tracing"
)

type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) // 一个函数，允许每个服务注册自己独特的 HTTP 路由

	// BackgroundRunners 是与 HTTP 服务并行运行的长任务（例如 Kafka 消费者）。
	// 任意一个 runner 返回错误都会触发整体关停。
	BackgroundRunners []func(ctx context.Context) error

	// OnShutdown 在优雅关停时执行（关闭消费者、连接池等）。
	OnShutdown func(ctx context.Context)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)
	cfg := GetCurrentConfig()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 服务注册（Nacos 地址未配置时跳过，便于本地开发）
	var namingClient *nacos.Client
	var registeredIP string
	if cfg.Infra.Nacos.ServerAddrs != "" {
		namingClient, err = nacos.NewClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to initialize nacos client")
		}

		registeredIP, err = utils.GetOutboundIP()
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to get outbound IP address")
		}

		if err := namingClient.RegisterServiceInstance(info.ServiceName, registeredIP, info.Port); err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to register service with nacos")
		}
	} else {
		logger.Logger().Warn().Msg("NACOS_SERVER_ADDRS not set, skipping service registration")
	}

	// 3. 创建并启动 HTTP Server
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Logger().Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	for _, runner := range info.BackgroundRunners {
		r := runner
		g.Go(func() error { return r(gCtx) })
	}

	// 阻塞主 goroutine，直到接收到退出信号或某个后台任务失败
	<-gCtx.Done()
	logger.Logger().Info().Msgf("shutting down service %s...", info.ServiceName)

	// 创建一个有超时的 context，用于关停流程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 4. 在关停流程中，按顺序执行清理操作 (后进先出)
	// a. 从 Nacos 注销服务
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, registeredIP, info.Port); err != nil {
			logger.Logger().Error().Err(err).Msg("error deregistering from nacos")
		}
	}

	// b. 服务自身的清理
	if info.OnShutdown != nil {
		info.OnShutdown(shutdownCtx)
	}

	// c. 关闭 HTTP 服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger().Error().Err(err).Msg("error shutting down http server")
	}

	// d. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Logger().Error().Err(err).Msg("error shutting down tracer provider")
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Logger().Error().Err(err).Msg("background task exited with error")
	}

	logger.Logger().Info().Msgf("service %s gracefully shut down", info.ServiceName)
}
