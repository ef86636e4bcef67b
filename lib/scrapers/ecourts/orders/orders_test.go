package orders

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/casestatus"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	"ecourts-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

const (
	actionRoute  = "POST home/display_pdf"
	actionGet    = "GET home/display_pdf"
	homeRoute    = "GET /ecourtindia_v6/"
	submitRoute  = "POST casestatus/submitCaseNo"
	historyRoute = "POST home/viewHistory"
)

var pdf = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

const reference = "home/display_pdf&normal_v=1&case_val=CS/0000133/2025&filename=/orders/2025/foo.pdf&court_code=1&appFlag="

func newTestRetriever(t *testing.T, portal *testutil.FakePortal) (*Retriever, *core.Client) {
	t.Helper()
	tel := &telemetry.Recorder{}
	client, err := core.NewClient(core.Options{
		BaseUrl:           portal.URL(),
		RetryDelayMs:      1,
		RequestsPerSecond: 1000,
		Telemetry:         tel,
	})
	require.NoError(t, err)
	workflow := casestatus.NewWorkflow(client, tel)
	workflow.Delay = func() time.Duration { return 0 }
	return NewRetriever(client, workflow, tel), client
}

var lastCase = core.LastCaseContext{
	StateCode:        "3",
	DistCode:         "20",
	CourtComplexCode: "1010101",
	EstCode:          "null",
	CaseType:         "Civil",
	CaseNo:           "133",
	Year:             "2025",
	Chain: markup.ChainKey{
		CaseNo:    "200100001332025",
		Cino:      "KAHC010012342025",
		CourtCode: "1",
	},
}

func TestFetchFilenameParameter(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.Handle("GET /orders/2025/foo.pdf", testutil.Raw("application/pdf", pdf))
	retriever, _ := newTestRetriever(t, portal)

	doc, err := retriever.Fetch(context.Background(), reference)
	require.NoError(t, err)
	require.Equal(t, pdf, doc.Data)
	require.Equal(t, "foo.pdf", doc.Filename)

	require.Equal(t, 0, portal.Hits(actionRoute))
	require.Equal(t, 0, portal.Hits(actionGet))
}

func TestFetchDocumentPath(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.Handle("GET /reports/abc.pdf", testutil.Raw("application/octet-stream", pdf))
	portal.Handle("GET /reports/html.pdf", testutil.Raw("application/pdf", []byte("<html>expired</html>")))
	retriever, _ := newTestRetriever(t, portal)

	doc, err := retriever.Fetch(context.Background(), "/reports/abc.pdf")
	require.NoError(t, err)
	require.Equal(t, "abc.pdf", doc.Filename)

	_, err = retriever.Fetch(context.Background(), "reports/html.pdf")
	require.True(t, errors.Is(err, ErrNotAvailable))

	_, err = retriever.Fetch(context.Background(), "  ")
	require.True(t, errors.Is(err, ErrNotAvailable))
}

func TestFetchSessionTimeout(t *testing.T) {
	timeout := testutil.JSON(map[string]any{"errormsg": "session timeout"})

	t.Run("retry succeeds", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		portal.HandleSequence(actionRoute, timeout, testutil.JSON(map[string]any{"order": "reports/abc123.pdf"}))
		portal.Handle("GET /reports/abc123.pdf", testutil.Raw("application/pdf", pdf))
		retriever, _ := newTestRetriever(t, portal)

		doc, err := retriever.Fetch(context.Background(), reference)
		require.NoError(t, err)
		require.Equal(t, "abc123.pdf", doc.Filename)

		require.Equal(t, 1, portal.Hits(homeRoute), "exactly one refresh")
		require.Equal(t, 2, portal.Hits(actionRoute))
		// the filename parameter was tried first and missed
		require.Equal(t, 1, portal.Hits("GET /orders/2025/foo.pdf"))

		form := portal.LastForm(actionRoute)
		require.Equal(t, "CS/0000133/2025", form.Get("case_val"))
		require.Equal(t, "1", form.Get("court_code"))
		require.Equal(t, "true", form.Get("ajax_req"))
	})

	t.Run("never a third attempt", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		portal.Handle(actionRoute, timeout)
		retriever, _ := newTestRetriever(t, portal)

		_, err := retriever.Fetch(context.Background(), reference)
		require.True(t, errors.Is(err, ErrNotAvailable))

		require.Equal(t, 1, portal.Hits(homeRoute))
		require.Equal(t, 2, portal.Hits(actionRoute))
		require.Equal(t, 1, portal.Hits(actionGet))
	})
}

func TestFetchActionCarriesLandingPageToken(t *testing.T) {
	const rotated = "ffffffffffffffffffffffffffffffff"
	portal := testutil.NewFakePortal(t)
	portal.HandleJSON(actionRoute, map[string]any{"order": "reports/abc123.pdf"})
	portal.Handle("GET /reports/abc123.pdf", testutil.Raw("application/pdf", pdf))
	retriever, client := newTestRetriever(t, portal)
	ctx := context.Background()
	require.True(t, client.EnsureInitialized(ctx))

	portal.SetToken(rotated)
	doc, err := retriever.Fetch(ctx, reference)
	require.NoError(t, err)
	require.Equal(t, "abc123.pdf", doc.Filename)

	require.Equal(t, 2, portal.Hits("GET casestatus/index"))
	require.Equal(t, rotated, portal.LastForm(actionRoute).Get("app_token"))
}

func TestFetchReplaysLastCase(t *testing.T) {
	portal := testutil.NewFakePortal(t)
	portal.HandleSequence(
		actionRoute,
		testutil.JSON(map[string]any{"errormsg": "Invalid Request"}),
		testutil.JSON(map[string]any{"order": "/reports/def.pdf"}),
	)
	portal.HandleJSON(submitRoute, map[string]any{"status": 1})
	portal.HandleJSON(historyRoute, map[string]any{"data_list": "<table></table>"})
	// only served below the application directory
	portal.Handle("GET /ecourtindia_v6/reports/def.pdf", testutil.Raw("application/pdf", pdf))
	retriever, client := newTestRetriever(t, portal)
	client.SetLastCase(lastCase)

	doc, err := retriever.Fetch(context.Background(), "home/display_pdf&normal_v=1&court_code=1")
	require.NoError(t, err)
	require.Equal(t, "def.pdf", doc.Filename)

	require.Equal(t, 1, portal.Hits(historyRoute), "preflight")
	require.Equal(t, "KAHC010012342025", portal.LastForm(historyRoute).Get("cino"))
	require.Equal(t, 1, portal.Hits(submitRoute), "replay")
	require.Equal(t, "", portal.LastForm(submitRoute).Get("case_captcha_code"))
	require.Equal(t, 0, portal.Hits(homeRoute), "invalid request does not refresh")
	require.Equal(t, 2, portal.Hits(actionRoute))
	require.Equal(t, 1, portal.Hits("GET /reports/def.pdf"))
}

func TestFetchActionGetFallback(t *testing.T) {
	cases := []struct {
		name     string
		get      http.HandlerFunc
		filename string
	}{
		{
			name:     "raw pdf",
			get:      testutil.Raw("application/pdf", pdf),
			filename: "order.pdf",
		},
		{
			name:     "json order path",
			get:      testutil.JSON(map[string]any{"order": "reports/ghi.pdf"}),
			filename: "ghi.pdf",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := testutil.NewFakePortal(t)
			portal.HandleJSON(actionRoute, map[string]any{"status": 0})
			portal.Handle(actionGet, test.get)
			portal.Handle("GET /reports/ghi.pdf", testutil.Raw("application/pdf", pdf))
			retriever, _ := newTestRetriever(t, portal)

			doc, err := retriever.Fetch(context.Background(), "home/display_pdf&normal_v=1")
			require.NoError(t, err)
			require.Equal(t, test.filename, doc.Filename)
			require.Equal(t, pdf, doc.Data)
			// an unrecognized answer is not retried
			require.Equal(t, 1, portal.Hits(actionRoute))
		})
	}
}

func TestIsPDF(t *testing.T) {
	require.True(t, IsPDF(pdf, ""))
	require.True(t, IsPDF([]byte("binary"), "application/pdf; charset=binary"))
	require.False(t, IsPDF([]byte("<html></html>"), "text/html"))
	require.False(t, IsPDF(nil, "application/pdf"))
}
