// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"luzimarket/internal/pkg/logger"
)

// Config 是所有服务共享的配置结构。
// 配置来源优先级: 环境变量 > 配置文件 > 默认值。
type Config struct {
	App struct {
		// ReservationTTLMinutes 是 checkout 类型预占的默认有效期（分钟）。
		ReservationTTLMinutes int `yaml:"reservationTTLMinutes"`
		// LowStockThreshold 是低库存报表的默认阈值。
		LowStockThreshold int `yaml:"lowStockThreshold"`
		// LowStockAlertRule 是低库存告警的 CEL 规则表达式。
		LowStockAlertRule string `yaml:"lowStockAlertRule"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"` // 为空时禁用热点商品防护
		} `yaml:"redis"`
		Kafka struct {
			Brokers            []string `yaml:"brokers"`
			PaymentEventsTopic string   `yaml:"paymentEventsTopic"`
			StockEventsTopic   string   `yaml:"stockEventsTopic"`
			NotificationsTopic string   `yaml:"notificationsTopic"`
			ConsumerGroup      string   `yaml:"consumerGroup"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			ServerAddrs string `yaml:"serverAddrs"` // 为空时跳过服务注册
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
		Zookeeper struct {
			Servers []string `yaml:"servers"` // 为空时清理任务退化为本地执行
		} `yaml:"zookeeper"`
	} `yaml:"infra"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// Init 加载配置。必须在 StartService 之前调用。
func Init() {
	configOnce.Do(func() {
		currentConfig = defaultConfig()

		path := getEnv("CONFIG_PATH", "")
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Logger().Fatal().Err(err).Str("path", path).Msg("failed to read config file")
			}
			if err := yaml.Unmarshal(data, &currentConfig); err != nil {
				logger.Logger().Fatal().Err(err).Str("path", path).Msg("failed to parse config file")
			}
		}

		applyEnvOverrides(&currentConfig)
	})
}

// GetCurrentConfig 返回当前生效的全局配置。
func GetCurrentConfig() Config {
	return currentConfig
}

func defaultConfig() Config {
	var c Config
	c.App.ReservationTTLMinutes = 15
	c.App.LowStockThreshold = 5
	c.App.LowStockAlertRule = "is_active && stock <= threshold"
	c.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/luzimarket?charset=utf8mb4&parseTime=True&loc=Local"
	c.Infra.Kafka.Brokers = []string{"localhost:9092"}
	c.Infra.Kafka.PaymentEventsTopic = "payment-events"
	c.Infra.Kafka.StockEventsTopic = "stock-events"
	c.Infra.Kafka.NotificationsTopic = "notifications"
	c.Infra.Kafka.ConsumerGroup = "inventory-service"
	c.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	c.Infra.Nacos.Group = "DEFAULT_GROUP"
	return c
}

// applyEnvOverrides 允许在容器环境下用环境变量覆盖关键地址。
func applyEnvOverrides(c *Config) {
	if v := getEnv("MYSQL_DSN", ""); v != "" {
		c.Infra.Mysql.DSN = v
	}
	if v := getEnv("REDIS_ADDR", ""); v != "" {
		c.Infra.Redis.Addr = v
	}
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getEnv("JAEGER_ENDPOINT", ""); v != "" {
		c.Infra.Jaeger.Endpoint = v
	}
	if v := getEnv("NACOS_SERVER_ADDRS", ""); v != "" {
		c.Infra.Nacos.ServerAddrs = v
	}
	if v := getEnv("NACOS_NAMESPACE", ""); v != "" {
		c.Infra.Nacos.Namespace = v
	}
	if v := getEnv("NACOS_GROUP", ""); v != "" {
		c.Infra.Nacos.Group = v
	}
	if v := getEnv("ZK_SERVERS", ""); v != "" {
		c.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
