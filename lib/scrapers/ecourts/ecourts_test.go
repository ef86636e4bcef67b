package ecourts

import (
	"context"
	"net/http"
	"testing"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func newTestScraper(t *testing.T, portal *testutil.FakePortal) *Scraper {
	t.Helper()
	scraper, err := New(core.Options{
		BaseUrl:           portal.URL(),
		RetryDelayMs:      1,
		RequestsPerSecond: 1000,
		Telemetry:         &telemetry.Recorder{},
	})
	require.NoError(t, err)
	return scraper
}

func TestWarmAndReset(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	scraper := newTestScraper(t, portal)

	require.True(t, scraper.Warm(ctx))
	require.True(t, scraper.Client.Status().Initialized)
	scraper.Directory.States(ctx)
	require.Equal(t, 2, portal.Hits("GET casestatus/index"))

	require.NoError(t, scraper.Reset())
	require.False(t, scraper.Client.Status().Initialized)

	scraper.Directory.States(ctx)
	require.Equal(t, 4, portal.Hits("GET casestatus/index"))
	require.Equal(t, 2, portal.Sessions())
}

func TestWarmFailure(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.Handle("GET casestatus/index", testutil.Status(http.StatusForbidden))
	scraper := newTestScraper(t, portal)

	require.False(t, scraper.Warm(context.Background()))
}

func TestCaptchaImageSharesSession(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	scraper := newTestScraper(t, portal)

	image, contentType, err := scraper.CaptchaImage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, []byte("\x89PNG\r\n\x1a\ncaptcha"), image)
	require.Equal(t, 1, portal.Sessions())
}

func TestKeepAlive(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	scraper := newTestScraper(t, portal)

	// nothing to keep alive yet, so the session is established
	require.True(t, scraper.KeepAlive(ctx))
	require.True(t, scraper.Client.Status().Initialized)
	require.Zero(t, portal.Hits("GET /ecourtindia_v6/"))

	require.True(t, scraper.KeepAlive(ctx))
	require.Equal(t, 1, portal.Hits("GET /ecourtindia_v6/"))
	require.Equal(t, 1, portal.Sessions())
}
