package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	ledgerapp "github.com/wyfcoding/marketledger/internal/ledger/application"
	"github.com/wyfcoding/marketledger/internal/ledger/infrastructure/adapter"
	ledgerdb "github.com/wyfcoding/marketledger/internal/ledger/infrastructure/persistence/gormdb"
	"github.com/wyfcoding/marketledger/internal/marketdata/application"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	marketdb "github.com/wyfcoding/marketledger/internal/marketdata/infrastructure/persistence/gormdb"
	"github.com/wyfcoding/marketledger/pkg/cache"
	"github.com/wyfcoding/marketledger/pkg/config"
	"github.com/wyfcoding/marketledger/pkg/db"
	"github.com/wyfcoding/marketledger/pkg/logger"
	"github.com/wyfcoding/marketledger/pkg/metrics"
	"github.com/wyfcoding/marketledger/pkg/mq"
	"github.com/wyfcoding/marketledger/pkg/ratelimit"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// kvCache 同时满足行情缓存与调度锁
type kvCache interface {
	domain.Cache
	application.Locker
}

// App 进程内所有组件
type App struct {
	cfg        *config.Config
	db         *db.DB
	redis      *cache.RedisCache
	cache      kvCache
	limiter    ratelimit.RateLimiter
	publisher  mq.Publisher
	metrics    *metrics.Metrics
	simulation *application.SimulationService
	quotes     *application.QuoteService
	indicators *application.IndicatorService
	ledger     *ledgerapp.LedgerService
	job        *application.SimulationJob
}

func newApp(cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg, metrics: metrics.New(cfg.ServiceName)}

	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return nil, err
	}
	app.db = database

	if cfg.Database.AutoMigrate {
		models := append(marketdb.Models(), ledgerdb.Models()...)
		if err := database.AutoMigrate(models...); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	app.cache, app.limiter = cache.NewMemoryCache(), ratelimit.NewLocalRateLimiter()
	if cfg.Redis.Enabled {
		rc, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Prefix:       cfg.ServiceName + ":",
		})
		if err != nil {
			// Redis 不可用不阻止启动，缓存与限流退化为进程内实现
			slog.Warn("redis unavailable, falling back to in-process cache", "error", err)
		} else {
			app.redis = rc
			app.cache = rc
			app.limiter = ratelimit.NewRedisRateLimiter(rc.GetClient())
		}
	}

	publisher, err := mq.NewPublisher(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.publisher = publisher

	hours, err := domain.NewMarketHours(cfg.Market.Timezone, cfg.Market.OpenHour, cfg.Market.CloseHour)
	if err != nil {
		app.Close()
		return nil, err
	}

	instance := instanceID()
	seed := cfg.Simulation.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	assets := marketdb.NewAssetRepository(database)
	history := marketdb.NewPriceHistoryRepository(database)

	app.simulation = application.NewSimulationService(assets, history,
		domain.NewMarketSimulator(rand.New(rand.NewSource(seed))),
		publisher, app.metrics,
		application.SimulationConfig{
			BackfillDays: cfg.Simulation.BackfillDays,
			PriceTopic:   cfg.Kafka.PriceTopic,
		})

	breaker := application.NewQuoteBreaker(domain.BreakerPolicy{
		WindowSize:           cfg.CircuitBreaker.WindowSize,
		MinimumCalls:         cfg.CircuitBreaker.MinimumCalls,
		FailureRateThreshold: cfg.CircuitBreaker.FailureRateThreshold,
		ConsecutiveFailures:  cfg.CircuitBreaker.ConsecutiveFailures,
		OpenTimeout:          cfg.CircuitBreaker.OpenTimeout,
	}, app.metrics)

	app.quotes = application.NewQuoteService(assets, history, app.simulation, app.cache, breaker, hours, app.metrics, cfg.Cache.QuoteTTL)
	app.indicators = application.NewIndicatorService(history, app.cache, app.metrics, application.IndicatorTTL{
		Default:    cfg.Cache.IndicatorTTL,
		Volatility: cfg.Cache.VolatilityTTL,
	})

	app.ledger = ledgerapp.NewLedgerService(
		ledgerdb.NewTransactionRepository(database),
		adapter.NewAssetLookup(assets),
		publisher, app.metrics,
		utils.NewSnowflakeID(nodeID(instance)),
		cfg.Kafka.TransactionTopic,
	)

	app.job = application.NewSimulationJob(app.simulation, app.cache, logger.Get(), application.SimulationJobConfig{
		Interval:     cfg.Simulation.TickInterval,
		StartupDelay: cfg.Simulation.StartupDelay,
		SeedDefaults: cfg.Simulation.SeedDefaults,
		InstanceID:   instance,
	})
	return app, nil
}

// Close 释放外部连接
func (a *App) Close() {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error(context.Background(), "failed to close resources", "error", err)
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}

// nodeID 取实例 ID 的哈希作为雪花节点号
func nodeID(instance string) int64 {
	var h int64
	for _, c := range instance {
		h = (h*31 + int64(c)) & 0x3FF
	}
	return h
}
