package observability

import (
	"context"
	"time"

	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/BaSui01/chatgate/llm"

// Metrics 网关指标收集器，实现 gateway.Observer。
type Metrics struct {
	meter metric.Meter
	// 计数器
	callTotal    metric.Int64Counter
	errorTotal   metric.Int64Counter
	listingTotal metric.Int64Counter
	// 直方图
	callDuration metric.Float64Histogram
	// 进行中
	activeCalls metric.Int64UpDownCounter
}

var _ gateway.Observer = (*Metrics)(nil)

// NewMetrics 创建指标收集器。mp 为 nil 时使用全局 MeterProvider。
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	m := &Metrics{meter: meter}

	var err error

	m.callTotal, err = meter.Int64Counter("chatgate.gateway.calls",
		metric.WithDescription("Total number of gateway calls"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = meter.Int64Counter("chatgate.gateway.errors",
		metric.WithDescription("Total number of failed gateway calls"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.listingTotal, err = meter.Int64Counter("chatgate.catalog.listings",
		metric.WithDescription("Model listings served by source"),
		metric.WithUnit("{listing}"))
	if err != nil {
		return nil, err
	}

	// 覆盖到 60 秒超时
	m.callDuration, err = meter.Float64Histogram("chatgate.gateway.duration",
		metric.WithDescription("Gateway call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	m.activeCalls, err = meter.Int64UpDownCounter("chatgate.gateway.active",
		metric.WithDescription("Number of in-flight gateway calls"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// OnPhase 在调用开始时增加进行中计数。
func (m *Metrics) OnPhase(ctx context.Context, call gateway.Call) {
	if call.Phase != gateway.PhaseIdle {
		return
	}
	m.activeCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", call.Provider.String()),
		attribute.String("operation", string(call.Operation))))
}

// OnFinish 记录调用结果与耗时。
func (m *Metrics) OnFinish(ctx context.Context, call gateway.Call, duration time.Duration, err error) {
	base := []attribute.KeyValue{
		attribute.String("provider", call.Provider.String()),
		attribute.String("operation", string(call.Operation)),
	}
	m.activeCalls.Add(ctx, -1, metric.WithAttributes(base...))

	outcome := "success"
	if err != nil {
		outcome = "error"
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(append(base,
			attribute.String("error_code", string(types.GetErrorCode(err))),
			attribute.String("phase", string(call.FailedIn)))...))
	}
	attrs := append(base, attribute.String("outcome", outcome))
	m.callTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordListing 记录模型列表的来源（live / cache / fallback）。
func (m *Metrics) RecordListing(ctx context.Context, provider, source string) {
	m.listingTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("source", source)))
}
