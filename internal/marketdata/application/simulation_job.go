package application

import (
	"context"
	"log/slog"
	"time"
)

// TickLockKey 多实例部署时保证同一周期只有一个实例执行 tick
const TickLockKey = "simulation:tick"

// Locker 分布式互斥，cache.RedisCache 与 cache.MemoryCache 均满足
type Locker interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// SimulationJobConfig 后台模拟任务配置
type SimulationJobConfig struct {
	Interval     time.Duration
	StartupDelay time.Duration
	SeedDefaults bool
	InstanceID   string
}

// SimulationJob 后台驱动：启动延迟后执行初始化，然后按固定间隔对所有活跃资产 tick
type SimulationJob struct {
	sim    *SimulationService
	locker Locker
	logger *slog.Logger
	cfg    SimulationJobConfig
}

func NewSimulationJob(sim *SimulationService, locker Locker, logger *slog.Logger, cfg SimulationJobConfig) *SimulationJob {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = "local"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationJob{sim: sim, locker: locker, logger: logger, cfg: cfg}
}

// Start 阻塞运行直到 ctx 取消
func (j *SimulationJob) Start(ctx context.Context) error {
	if j.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(j.cfg.StartupDelay):
		}
	}

	if err := j.sim.Bootstrap(ctx, j.cfg.SeedDefaults); err != nil {
		j.logger.Error("simulation bootstrap finished with errors", "error", err)
	}

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	j.logger.Info("Simulation job started", "interval", j.cfg.Interval, "instance", j.cfg.InstanceID)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Simulation job stopped")
			return nil
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

// lockTTL 锁只持有半个周期：本实例下一轮时锁必然已过期，
// 而相位落在半周期内的其他实例会被挡住，多实例稳定后每个周期只有一个实例执行
func (j *SimulationJob) lockTTL() time.Duration {
	return j.cfg.Interval / 2
}

// run 执行一轮 tick，返回是否真正执行。锁不主动释放
func (j *SimulationJob) run(ctx context.Context) bool {
	if j.locker != nil {
		acquired, err := j.locker.SetNX(ctx, TickLockKey, []byte(j.cfg.InstanceID), j.lockTTL())
		if err != nil {
			// 锁服务不可用时退化为本实例独立执行
			j.logger.Warn("failed to acquire tick lock", "error", err)
		} else if !acquired {
			j.logger.Debug("tick lock held by another instance, skipping")
			return false
		}
	}

	start := time.Now()
	n, err := j.sim.TickAll(ctx)
	if err != nil {
		j.logger.Error("simulation tick finished with errors", "ticked", n, "error", err)
	}
	j.logger.Debug("simulation tick completed", "ticked", n, "duration", time.Since(start))
	return true
}
