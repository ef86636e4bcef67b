package chrono

import (
	"fmt"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/timezone"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface that anything depending on things to happen on a cron job should use.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron is the standard implementation of CronAPI using `github.com/robfig/cron/v3`,
// schedules are interpreted in IST.
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron is the constructor of StandardCron, the scheduler runs
// until Stop is called.
func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(timezone.Location),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	cronner.Start()

	return StandardCron{
		cron: cronner,
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop stops scheduling new runs, it does not wait for running ones.
func (s StandardCron) Stop() {
	s.cron.Stop()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i < len(keysAndValues)/2; i++ {
		idx := i * 2
		key := keysAndValues[idx]
		value := keysAndValues[idx+1]
		params = append(params, fmt.Sprintf("%v: %v", key, value))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(
		fmt.Sprintf("cron: %s", msg),
		l.formatParams(keysAndValues)...,
	)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		"job",
		fmt.Errorf("%s: %w", msg, err),
		l.formatParams(keysAndValues),
	)
}
