package core

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	"ecourts-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, portal *testutil.FakePortal) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseUrl:           portal.URL(),
		RetryDelayMs:      1,
		RequestsPerSecond: 1000,
		Telemetry:         &telemetry.Recorder{},
	})
	require.NoError(t, err)
	return client
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.False(t, client.Status().Initialized)
	require.True(t, client.EnsureInitialized(ctx))
	require.True(t, client.EnsureInitialized(ctx))

	require.Equal(t, 1, portal.Hits("GET casestatus/index"))
	require.Equal(t, portal.Token, client.Token())

	status := client.Status()
	require.True(t, status.Initialized)
	require.True(t, status.TokenAvailable)
	require.NotEmpty(t, status.InitializedAt)
}

func TestEnsureInitializedConcurrent(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	client := newTestClient(t, portal)

	results := make([]bool, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = client.EnsureInitialized(context.Background())
		}()
	}
	wg.Wait()

	for _, ok := range results {
		require.True(t, ok)
	}

	require.Equal(t, 1, portal.Hits("GET casestatus/index"))
}

func TestEnsureInitializedFailure(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.Handle("GET casestatus/index", testutil.Status(http.StatusForbidden))
	client := newTestClient(t, portal)

	require.False(t, client.EnsureInitialized(context.Background()))
	require.False(t, client.Status().Initialized)
	// 403 is not retried
	require.Equal(t, 1, portal.Hits("GET casestatus/index"))
}

func TestTransportRetries(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.HandleSequence(
		"GET /reports/a.pdf",
		testutil.Status(http.StatusServiceUnavailable),
		testutil.Status(http.StatusBadGateway),
		testutil.Raw("application/pdf", []byte("%PDF-1.4")),
	)
	client := newTestClient(t, portal)

	res, err := client.Get(context.Background(), "reports/a.pdf")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(res.Body()))
	require.Equal(t, 3, portal.Hits("GET /reports/a.pdf"))

	portal.Handle("GET /reports/b.pdf", testutil.Status(http.StatusInternalServerError))
	_, err = client.Get(context.Background(), "reports/b.pdf")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	require.Equal(t, "HTTP 500", transportErr.Message())
	// the first attempt plus 3 retries
	require.Equal(t, 4, portal.Hits("GET /reports/b.pdf"))
}

func TestRetryCount(t *testing.T) {
	testCases := []struct {
		name       string
		retryCount int
		hits       int
	}{
		{name: "default", retryCount: 0, hits: 4},
		{name: "explicit", retryCount: 1, hits: 2},
		{name: "disabled", retryCount: -1, hits: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			portal := testutil.NewFakePortal(t)
			portal.Handle("GET /reports/a.pdf", testutil.Status(http.StatusServiceUnavailable))
			client, err := NewClient(Options{
				BaseUrl:           portal.URL(),
				RetryCount:        tc.retryCount,
				RetryDelayMs:      1,
				RequestsPerSecond: 1000,
				Telemetry:         &telemetry.Recorder{},
			})
			require.NoError(t, err)

			_, err = client.Get(context.Background(), "reports/a.pdf")
			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
			require.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
			require.Equal(t, tc.hits, portal.Hits("GET /reports/a.pdf"))
		})
	}
}

func TestPostAjaxRotatesToken(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.HandleJSON("POST casestatus/fillDistrict", map[string]any{
		"status":    1,
		"dist_list": `<option value="20">Bengaluru</option>`,
		"app_token": "rotated",
	})
	client := newTestClient(t, portal)
	ctx := context.Background()
	require.True(t, client.EnsureInitialized(ctx))

	res, err := client.PostAjax(ctx, "ecourtindia_v6/?p=casestatus/fillDistrict", map[string]string{"state_code": "3"})
	require.NoError(t, err)
	require.True(t, markup.StatusOK(res.Envelope))

	form := portal.LastForm("POST casestatus/fillDistrict")
	require.Equal(t, "3", form.Get("state_code"))
	require.Equal(t, "true", form.Get("ajax_req"))
	require.Equal(t, portal.Token, form.Get("app_token"))
	require.Equal(t, "rotated", client.Token())
}

func TestRetryCarriesTokenOfCurrentSession(t *testing.T) {
	const route = "POST casestatus/submitCaseNo"
	const rotated = "ffffffffffffffffffffffffffffffff"
	portal := testutil.NewFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()
	require.True(t, client.EnsureInitialized(ctx))
	first := portal.Token

	var mu sync.Mutex
	var sessions []string
	record := func(r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		sessions = append(sessions, testutil.SessionOf(r))
	}
	reinitialized := false
	portal.HandleSequence(
		route,
		func(w http.ResponseWriter, r *http.Request) {
			record(r)
			// another caller replaces the session during the backoff
			client.Reset()
			portal.SetToken(rotated)
			ok := client.EnsureInitialized(ctx)
			mu.Lock()
			reinitialized = ok
			mu.Unlock()
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		func(w http.ResponseWriter, r *http.Request) {
			record(r)
			testutil.JSON(map[string]any{"status": 1, "case_data": "<table></table>"})(w, r)
		},
	)

	_, err := client.PostAjax(ctx, "ecourtindia_v6/?p=casestatus/submitCaseNo", map[string]string{"case_no": "133"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, reinitialized)
	forms := portal.Forms(route)
	require.Len(t, forms, 2)
	require.Equal(t, first, forms[0].Get("app_token"))
	require.Equal(t, rotated, forms[1].Get("app_token"))
	require.Equal(t, "133", forms[1].Get("case_no"))
	require.Equal(t, []string{"1", "2"}, sessions)
}

func TestAjaxSessionTimeout(t *testing.T) {
	const route = "POST casestatus/submitCaseNo"
	path := "ecourtindia_v6/?p=casestatus/submitCaseNo"
	timeout := testutil.JSON(map[string]any{"status": 0, "errormsg": "Session Timeout"})

	t.Run("one refresh then one retry", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		portal.HandleSequence(route, timeout, testutil.JSON(map[string]any{"status": 1, "case_data": "<table></table>"}))
		client := newTestClient(t, portal)
		ctx := context.Background()
		require.True(t, client.EnsureInitialized(ctx))

		res, err := client.Ajax(ctx, path, nil)
		require.NoError(t, err)
		require.True(t, markup.StatusOK(res.Envelope))
		require.Equal(t, 2, portal.Hits(route))
		require.Equal(t, 1, portal.Hits("GET /ecourtindia_v6/"))
	})

	t.Run("persistent timeout is not retried again", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		portal.Handle(route, timeout)
		client := newTestClient(t, portal)
		ctx := context.Background()
		require.True(t, client.EnsureInitialized(ctx))

		_, err := client.Ajax(ctx, path, nil)
		require.True(t, errors.Is(err, ErrSessionExpired))
		require.Equal(t, 2, portal.Hits(route))
		require.Equal(t, 1, portal.Hits("GET /ecourtindia_v6/"))
	})
}

func TestRefreshFallsBackToNewSession(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.Handle("GET /ecourtindia_v6/", testutil.Raw("text/html", []byte("<html>maintenance</html>")))
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.True(t, client.EnsureInitialized(ctx))
	client.SetLastCase(LastCaseContext{CaseNo: "133"})
	require.Equal(t, 1, portal.Sessions())

	require.True(t, client.Refresh(ctx))
	require.Equal(t, 2, portal.Hits("GET casestatus/index"))
	// the new transport has an empty cookie jar
	require.Equal(t, 2, portal.Sessions())
	require.Equal(t, portal.Token, client.Token())

	_, ok := client.LastCase()
	require.True(t, ok, "refresh keeps the last case context")
}

func TestResetAndLastCase(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()
	require.True(t, client.EnsureInitialized(ctx))

	_, ok := client.LastCase()
	require.False(t, ok)

	client.SetLastCase(LastCaseContext{
		StateCode: "3",
		CaseNo:    "133",
		Chain:     markup.ChainKey{CaseNo: "200100001332025", Cino: "KAHC010012342025", CourtCode: "1"},
	})
	last, ok := client.LastCase()
	require.True(t, ok)
	last.CaseNo = "changed"
	again, _ := client.LastCase()
	require.Equal(t, "133", again.CaseNo)

	require.NoError(t, client.Reset())
	_, ok = client.LastCase()
	require.False(t, ok)
	require.Empty(t, client.Token())
	require.False(t, client.Status().Initialized)

	require.True(t, client.EnsureInitialized(ctx))
	require.Equal(t, 2, portal.Hits("GET casestatus/index"))
}

func TestCaptcha(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	client := newTestClient(t, portal)

	url := client.CaptchaURL()
	require.Regexp(t, `^`+portal.URL()+`ecourtindia_v6/vendor/securimage/securimage_show\.php\?\w{32}$`, url)
	require.NotEqual(t, url, client.CaptchaURL())

	image, contentType, err := client.CaptchaImage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)
	require.Contains(t, string(image), "PNG")
}
