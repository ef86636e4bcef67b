package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"ecourts-backend/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// Shutdown flushes and stops both providers, it is safe to call on the
// zero value (telemetry that was never configured).
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errlist []error
	if t.TracerProvider != nil {
		errlist = append(errlist, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errlist = append(errlist, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errlist...)
}

func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

var testSetup sync.Once

// SetupForTesting sets up telemetry for tests at most once per process,
// a missing telemetry.json5 leaves the no-op providers in place.
func SetupForTesting(serviceName string) func() {
	tel := Telemetry{}
	testSetup.Do(func() {
		InitSlog(true)
		var err error
		tel, err = SetupFromEnv(context.Background(), serviceName)
		if err != nil {
			slog.Warn("telemetry disabled for tests", "err", err)
		}
	})
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}
}

// SetupFromEnv searches up the filesystem from the cwd for a file called
// telemetry.json5 and uses it to set up telemetry. When no file exists the
// global no-op providers are kept and the zero Telemetry is returned.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	cfg, err := configutil.ReadRecursively[config]("telemetry.json5")
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no telemetry.json5 found, telemetry export disabled", "service", serviceName)
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, cfg)
}

func Setup(ctx context.Context, serviceName string, cfg config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return Telemetry{}, err
	}

	tracerProvider, err := newTraceProvider(ctx, r, cfg)
	if err != nil {
		return Telemetry{}, err
	}
	otel.SetTracerProvider(tracerProvider)

	meterProvider, err := newMetricProvider(ctx, r, cfg)
	if err != nil {
		return Telemetry{}, errors.Join(err, tracerProvider.Shutdown(ctx))
	}
	otel.SetMeterProvider(meterProvider)

	return Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
	}, nil
}
