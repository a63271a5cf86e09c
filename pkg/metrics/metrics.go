// Package metrics 提供 Prometheus helper，覆盖 HTTP 层与模拟引擎的核心指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/equitysim/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 已提交的模拟批次数
	RunsTotal prometheus.Counter
	// 正在运行的模拟批次数
	RunsActive prometheus.Gauge
	// 失败的模拟批次数
	RunsFailed prometheus.Counter
	// 已执行的场景总数
	ScenariosTotal prometheus.Counter
	// 因数值退化被剔除的场景数
	ScenariosExcluded prometheus.Counter
	// 单个批次的执行耗时
	RunDuration prometheus.Histogram
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "runs_total",
			Help:      "Total simulation runs submitted",
		}),
		RunsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "runs_active",
			Help:      "Number of simulation runs currently executing",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "runs_failed_total",
			Help:      "Total simulation runs that failed",
		}),
		ScenariosTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "scenarios_total",
			Help:      "Total scenarios executed",
		}),
		ScenariosExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "scenarios_excluded_total",
			Help:      "Scenarios excluded due to numeric degeneracy",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "run_duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RunsTotal,
		m.RunsActive,
		m.RunsFailed,
		m.ScenariosTotal,
		m.ScenariosExcluded,
		m.RunDuration,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "metrics registered")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
