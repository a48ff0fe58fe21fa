// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// API Key 鉴权配置
	Auth AuthConfig `mapstructure:"auth"`
	// 交易时段配置
	Market MarketConfig `mapstructure:"market"`
	// 行情模拟配置
	Simulation SimulationConfig `mapstructure:"simulation"`
	// 熔断器配置
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	// 缓存 TTL 配置
	Cache CacheConfig `mapstructure:"cache"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql, postgres, sqlite
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
	// 启动时自动迁移表结构
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用，关闭时缓存与分布式限流退化为进程内实现
	Enabled bool `mapstructure:"enabled"`
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表，为空时事件仅记录日志
	Brokers []string `mapstructure:"brokers"`
	// 价格变动事件 topic
	PriceTopic string `mapstructure:"price_topic"`
	// 交易记录事件 topic
	TransactionTopic string `mapstructure:"transaction_topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式
	Format string `mapstructure:"format"`
	// 输出目标
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
	// 是否输出调用者信息
	WithCaller bool `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 每个周期允许的请求数
	Requests int `mapstructure:"requests"`
	// 周期
	Period time.Duration `mapstructure:"period"`
	Burst  int           `mapstructure:"burst"`
}

// AuthConfig API Key 鉴权配置
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// MarketConfig 交易时段配置，周一至周五 [OpenHour, CloseHour)
type MarketConfig struct {
	Timezone  string `mapstructure:"timezone"`
	OpenHour  int    `mapstructure:"open_hour"`
	CloseHour int    `mapstructure:"close_hour"`
}

// SimulationConfig 行情模拟配置
type SimulationConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 定时 tick 间隔
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// 首次启动延迟
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	// 历史回填天数
	BackfillDays int `mapstructure:"backfill_days"`
	// 是否在资产表为空时写入默认资产
	SeedDefaults bool `mapstructure:"seed_defaults"`
	// 随机种子，0 表示使用当前时间
	RandomSeed int64 `mapstructure:"random_seed"`
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	// 滑动窗口大小（调用次数）
	WindowSize int `mapstructure:"window_size"`
	// 计算失败率所需的最少调用数
	MinimumCalls int `mapstructure:"minimum_calls"`
	// 失败率阈值（0-1）
	FailureRateThreshold float64 `mapstructure:"failure_rate_threshold"`
	// 连续失败阈值
	ConsecutiveFailures int `mapstructure:"consecutive_failures"`
	// 熔断冷却时间
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// CacheConfig 缓存 TTL 配置
type CacheConfig struct {
	QuoteTTL      time.Duration `mapstructure:"quote_ttl"`
	IndicatorTTL  time.Duration `mapstructure:"indicator_ttl"`
	VolatilityTTL time.Duration `mapstructure:"volatility_ttl"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖。configPath 为空时仅使用默认值与环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 设置环境变量前缀，使用 _ 替代 .
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Market.OpenHour < 0 || c.Market.CloseHour > 24 || c.Market.OpenHour >= c.Market.CloseHour {
		return fmt.Errorf("invalid market hours: %d-%d", c.Market.OpenHour, c.Market.CloseHour)
	}
	if c.CircuitBreaker.WindowSize <= 0 || c.CircuitBreaker.MinimumCalls <= 0 {
		return fmt.Errorf("circuit breaker window_size and minimum_calls must be positive")
	}
	if c.CircuitBreaker.FailureRateThreshold <= 0 || c.CircuitBreaker.FailureRateThreshold > 1 {
		return fmt.Errorf("invalid circuit breaker failure_rate_threshold: %v", c.CircuitBreaker.FailureRateThreshold)
	}
	if c.Simulation.Enabled && c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation tick_interval must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Period <= 0) {
		return fmt.Errorf("rate_limit requests and period must be positive")
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth is enabled but no api_keys are configured")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "marketledger")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "marketledger.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.price_topic", "marketdata.price.ticked")
	v.SetDefault("kafka.transaction_topic", "ledger.transaction.recorded")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/marketledger.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.period", time.Minute)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.api_keys", []string{"demo-api-key-12345"})

	v.SetDefault("market.timezone", "America/Sao_Paulo")
	v.SetDefault("market.open_hour", 9)
	v.SetDefault("market.close_hour", 18)

	v.SetDefault("simulation.enabled", true)
	v.SetDefault("simulation.tick_interval", 30*time.Second)
	v.SetDefault("simulation.startup_delay", 5*time.Second)
	v.SetDefault("simulation.backfill_days", 90)
	v.SetDefault("simulation.seed_defaults", true)
	v.SetDefault("simulation.random_seed", 0)

	v.SetDefault("circuit_breaker.window_size", 10)
	v.SetDefault("circuit_breaker.minimum_calls", 5)
	v.SetDefault("circuit_breaker.failure_rate_threshold", 0.5)
	v.SetDefault("circuit_breaker.consecutive_failures", 3)
	v.SetDefault("circuit_breaker.open_timeout", 30*time.Second)

	v.SetDefault("cache.quote_ttl", 30*time.Second)
	v.SetDefault("cache.indicator_ttl", 5*time.Minute)
	v.SetDefault("cache.volatility_ttl", 10*time.Minute)
}
