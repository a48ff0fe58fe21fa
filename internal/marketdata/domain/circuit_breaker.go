package domain

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// CircuitBreakerState 熔断器状态
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // 正常 Closed (Allow requests)
	StateOpen                                // 熔断 Open (Block requests)
	StateHalfOpen                            // 半开 HalfOpen (Probe)
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// ErrCircuitOpen 熔断期间拒绝调用
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerPolicy 熔断策略：连续失败次数或滑动窗口失败率，任一达到即熔断
type BreakerPolicy struct {
	// 滑动窗口大小（最近 N 次调用）
	WindowSize int
	// 窗口内至少多少次调用后才计算失败率
	MinimumCalls int
	// 失败率阈值（0-1），达到即熔断
	FailureRateThreshold float64
	// 连续失败阈值，<= 0 表示不启用
	ConsecutiveFailures int
	// 熔断冷却时间
	OpenTimeout time.Duration
	// IsSuccessful 判定错误是否计为成功（例如资源不存在属于业务结果）
	IsSuccessful func(err error) bool
}

// CircuitBreaker 调用级熔断器。时钟可注入，便于测试
type CircuitBreaker struct {
	name   string
	policy BreakerPolicy

	mu          sync.Mutex
	state       CircuitBreakerState
	openUntil   time.Time
	generation  uint64
	window      []bool // true 表示失败
	windowIdx   int
	windowCount int
	failures    int
	consecutive int
	probing     bool

	now           func() time.Time
	logger        *slog.Logger
	onStateChange func(name string, from, to CircuitBreakerState)
}

// BreakerOption 熔断器可选项
type BreakerOption func(*CircuitBreaker)

// WithClock 注入时钟
func WithClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithStateChangeHook 状态迁移回调，在锁内调用，不应阻塞
func WithStateChangeHook(fn func(name string, from, to CircuitBreakerState)) BreakerOption {
	return func(cb *CircuitBreaker) { cb.onStateChange = fn }
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, policy BreakerPolicy, logger *slog.Logger, opts ...BreakerOption) *CircuitBreaker {
	if policy.WindowSize <= 0 {
		policy.WindowSize = 10
	}
	if policy.MinimumCalls <= 0 {
		policy.MinimumCalls = policy.WindowSize
	}
	if policy.FailureRateThreshold <= 0 {
		policy.FailureRateThreshold = 0.5
	}
	if policy.OpenTimeout <= 0 {
		policy.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	cb := &CircuitBreaker{
		name:   name,
		policy: policy,
		state:  StateClosed,
		window: make([]bool, policy.WindowSize),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// State 返回当前状态（会处理冷却到期）
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && !cb.now().Before(cb.openUntil) {
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

// Execute 在熔断器保护下执行 fn。熔断期间直接返回 ErrCircuitOpen，不调用 fn
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.before()
	if err != nil {
		return err
	}

	// fn panic 计为失败并继续上抛
	defer func() {
		if r := recover(); r != nil {
			cb.after(gen, false)
			panic(r)
		}
	}()

	err = fn()
	cb.after(gen, err == nil || (cb.policy.IsSuccessful != nil && cb.policy.IsSuccessful(err)))
	return err
}

// Reset 手动重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.logger.Info("circuit breaker manually reset", "name", cb.name)
}

func (cb *CircuitBreaker) before() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		// 冷却时间已过，进入半开状态，允许一次试探调用
		if cb.now().Before(cb.openUntil) {
			return 0, ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.logger.Info("circuit breaker entering half-open state", "name", cb.name)
		cb.probing = true
		return cb.generation, nil

	case StateHalfOpen:
		if cb.probing {
			return 0, ErrCircuitOpen
		}
		cb.probing = true
		return cb.generation, nil
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) after(gen uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// 状态已切换，过期调用的结果不再计入
	if gen != cb.generation {
		return
	}

	switch cb.state {
	case StateHalfOpen:
		if success {
			cb.setState(StateClosed)
			cb.logger.Info("circuit breaker closed (recovered)", "name", cb.name)
			return
		}
		cb.trip()
		cb.logger.Warn("circuit breaker reopened (probe failed)", "name", cb.name)

	case StateClosed:
		cb.record(!success)
		if success {
			cb.consecutive = 0
			return
		}
		cb.consecutive++
		if cb.shouldTrip() {
			cb.trip()
			cb.logger.Warn("circuit breaker triggered",
				"name", cb.name,
				"consecutive_failures", cb.consecutive,
				"window_failures", cb.failures,
				"window_calls", cb.windowCount,
			)
		}
	}
}

func (cb *CircuitBreaker) record(failed bool) {
	if cb.windowCount == len(cb.window) {
		if cb.window[cb.windowIdx] {
			cb.failures--
		}
	} else {
		cb.windowCount++
	}
	cb.window[cb.windowIdx] = failed
	if failed {
		cb.failures++
	}
	cb.windowIdx = (cb.windowIdx + 1) % len(cb.window)
}

func (cb *CircuitBreaker) shouldTrip() bool {
	if cb.policy.ConsecutiveFailures > 0 && cb.consecutive >= cb.policy.ConsecutiveFailures {
		return true
	}
	if cb.windowCount < cb.policy.MinimumCalls {
		return false
	}
	return float64(cb.failures)/float64(cb.windowCount) >= cb.policy.FailureRateThreshold
}

func (cb *CircuitBreaker) trip() {
	cb.setState(StateOpen)
	cb.openUntil = cb.now().Add(cb.policy.OpenTimeout)
}

// setState 切换状态并清空统计窗口，调用方需持有锁
func (cb *CircuitBreaker) setState(to CircuitBreakerState) {
	from := cb.state
	cb.state = to
	cb.generation++
	cb.probing = false
	cb.consecutive = 0
	cb.failures = 0
	cb.windowCount = 0
	cb.windowIdx = 0
	for i := range cb.window {
		cb.window[i] = false
	}
	if from != to && cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}
