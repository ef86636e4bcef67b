// Package ecourts wires the portal session, reference data, case status and
// order download components into one scraper that shares a single session.
package ecourts

import (
	"context"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/casestatus"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/directory"
	"ecourts-backend/lib/scrapers/ecourts/orders"
)

const (
	report_scraper_warm      = "scraper.warm"
	report_scraper_keepalive = "scraper.keepalive"
)

type Scraper struct {
	Client    *core.Client
	Directory *directory.Cache
	Workflow  *casestatus.Workflow
	Orders    *orders.Retriever

	tel telemetry.API
}

func New(opts core.Options) (*Scraper, error) {
	client, err := core.NewClient(opts)
	if err != nil {
		return nil, err
	}
	dir, err := directory.NewCache(client, opts.Telemetry)
	if err != nil {
		return nil, err
	}
	workflow := casestatus.NewWorkflow(client, opts.Telemetry)

	return &Scraper{
		Client:    client,
		Directory: dir,
		Workflow:  workflow,
		Orders:    orders.NewRetriever(client, workflow, opts.Telemetry),
		tel:       telemetry.NewScopedAPI("ecourts", opts.Telemetry),
	}, nil
}

// Warm establishes the session and loads the state list so the first real
// request does not pay for either.
func (s *Scraper) Warm(ctx context.Context) bool {
	if !s.Client.EnsureInitialized(ctx) {
		s.tel.ReportWarning(report_scraper_warm, core.ErrNotInitialized)
		return false
	}
	s.Directory.States(ctx)
	return true
}

// KeepAlive touches the portal so an idle session does not expire, a
// session that was never established is warmed instead.
func (s *Scraper) KeepAlive(ctx context.Context) bool {
	if !s.Client.Status().Initialized {
		return s.Warm(ctx)
	}
	if !s.Client.Refresh(ctx) {
		s.tel.ReportWarning(report_scraper_keepalive, core.ErrSessionExpired)
		return false
	}
	return true
}

// Reset clears every cache and starts over with a new session.
func (s *Scraper) Reset() error {
	s.Directory.Clear()
	return s.Client.Reset()
}

// CaptchaImage fetches a captcha within the scraper's session, an answer
// to it is only accepted on a submission made through the same session.
func (s *Scraper) CaptchaImage(ctx context.Context) ([]byte, string, error) {
	return s.Client.CaptchaImage(ctx)
}
