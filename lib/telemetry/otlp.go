package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type otlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

type otlpConfig struct {
	Traces  otlpConnConfig `json:"traces"`
	Metrics otlpConnConfig `json:"metrics"`
}

type config struct {
	Otlp otlpConfig `json:"otlp"`
	// MetricIntervalSeconds defaults to 5 seconds.
	MetricIntervalSeconds int `json:"metric_interval_seconds"`
}

func (c config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return time.Second * 5
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceNamespace("ecourts"),
		),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, cfg config) (*trace.TracerProvider, error) {
	exporter, err := otlpTraceExporter(ctx, cfg.Otlp.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func otlpTraceExporter(ctx context.Context, c otlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if c.GrpcEndpoint != "" {
		slog.Info("tracer export initialized", "type", "grpc", "endpoint", c.GrpcEndpoint)
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}

	slog.Info("tracer export initialized", "type", "http", "endpoint", c.HttpEndpoint)
	opts := []otlptracehttp.Option{otlptracehttp.WithHeaders(c.Headers)}
	if c.HttpEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(c.HttpEndpoint))
	}
	return otlptracehttp.New(ctx, opts...)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, cfg config) (*metric.MeterProvider, error) {
	exporter, err := otlpMetricExporter(ctx, cfg.Otlp.Metrics)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.metricInterval()))),
		metric.WithResource(r),
	), nil
}

func otlpMetricExporter(ctx context.Context, c otlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if c.GrpcEndpoint != "" {
		slog.Info("metric exporter initialized", "type", "grpc", "endpoint", c.GrpcEndpoint)
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}

	slog.Info("metric exporter initialized", "type", "http", "endpoint", c.HttpEndpoint)
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithHeaders(c.Headers)}
	if c.HttpEndpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(c.HttpEndpoint))
	}
	return otlpmetrichttp.New(ctx, opts...)
}
