// Package metrics 提供 Prometheus helper，包含服务用到的 counter/histogram 模板
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/marketledger/pkg/logger"
)

// Metrics 指标集合。nil 接收者上的记录方法均为空操作
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 报价按来源计数（STORE/FALLBACK/CACHE）
	QuotesTotal *prometheus.CounterVec
	// 缓存访问结果（hit/miss/error）
	CacheRequestsTotal *prometheus.CounterVec
	// 熔断器状态迁移
	CircuitBreakerTransitions *prometheus.CounterVec
	// 模拟 tick 次数
	SimulatedTicksTotal *prometheus.CounterVec
	// 交易记录数
	TransactionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New 创建指标实例并注册到独立的 registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "quotes_total",
			Help:      "Quotes served by source",
		}, []string{"source"}),
		CacheRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by kind and result",
		}, []string{"kind", "result"}),
		CircuitBreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"name", "to"}),
		SimulatedTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "simulated_ticks_total",
			Help:      "Simulated price ticks by trigger",
		}, []string{"trigger"}),
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "transactions_total",
			Help:      "Transactions recorded by type",
		}, []string{"type"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotesTotal,
		m.CacheRequestsTotal,
		m.CircuitBreakerTransitions,
		m.SimulatedTicksTotal,
		m.TransactionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordQuote 记录报价来源
func (m *Metrics) RecordQuote(source string) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(source).Inc()
}

// RecordCache 记录缓存访问结果
func (m *Metrics) RecordCache(kind, result string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(kind, result).Inc()
}

// RecordBreakerTransition 记录熔断器状态迁移
func (m *Metrics) RecordBreakerTransition(name, to string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTransitions.WithLabelValues(name, to).Inc()
}

// RecordTick 记录模拟 tick
func (m *Metrics) RecordTick(trigger string) {
	if m == nil {
		return
	}
	m.SimulatedTicksTotal.WithLabelValues(trigger).Inc()
}

// RecordTransaction 记录交易
func (m *Metrics) RecordTransaction(txType string) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(txType).Inc()
}

// Serve 启动独立的 Prometheus HTTP 服务器，ctx 取消时优雅关闭
func (m *Metrics) Serve(ctx context.Context, port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info(ctx, "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
