// Package observe 暴露策略执行的运行指标：按分类/来源计数的取数总量、
// 缓存命中、兜底次数与耗时分布，经 Prometheus reader 在诊断端输出。
package observe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "recipe-edge"

// Observer 聚合 meter 上创建的各项指标，并持有 /-/metrics 的 HTTP handler。
type Observer struct {
	fetchTotal   metric.Int64Counter
	cacheHits    metric.Int64Counter
	fallbacks    metric.Int64Counter
	durationHist metric.Float64Histogram

	handler http.Handler
}

// New 构建带 Prometheus exporter 的 Observer，指标通过独立 registry 输出，
// 避免污染默认全局 registry。
func New() (*Observer, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	observer, err := newObserver(provider.Meter(meterName))
	if err != nil {
		return nil, err
	}
	observer.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return observer, nil
}

// Disabled 返回全空实现，配置关闭指标或测试时使用。
func Disabled() *Observer {
	observer, _ := newObserver(noop.NewMeterProvider().Meter(meterName))
	observer.handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return observer
}

func newObserver(meter metric.Meter) (*Observer, error) {
	fetchTotal, err := meter.Int64Counter(
		"edge.fetch.total",
		metric.WithDescription("Total number of intercepted fetches"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"edge.cache.hits",
		metric.WithDescription("Responses served from a cache generation"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"edge.fallback.total",
		metric.WithDescription("Responses served from a precached fallback asset"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"edge.fetch.duration_ms",
		metric.WithDescription("Fetch resolution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observer{
		fetchTotal:   fetchTotal,
		cacheHits:    cacheHits,
		fallbacks:    fallbacks,
		durationHist: durationHist,
	}, nil
}

// RecordFetch 记录一次被拦截请求的最终归宿。source 取 network/cache/fallback。
func (o *Observer) RecordFetch(ctx context.Context, class, strategy, source string, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("class", class),
		attribute.String("strategy", strategy),
		attribute.String("source", source),
	)

	o.fetchTotal.Add(ctx, 1, opt)
	switch source {
	case "cache":
		o.cacheHits.Add(ctx, 1, opt)
	case "fallback":
		o.fallbacks.Add(ctx, 1, opt)
	}
	o.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// Handler 返回 /-/metrics 使用的 HTTP handler。
func (o *Observer) Handler() http.Handler {
	return o.handler
}
