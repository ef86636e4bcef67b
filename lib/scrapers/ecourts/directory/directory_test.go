package directory

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	"ecourts-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, portal *testutil.FakePortal) *Cache {
	t.Helper()
	tel := &telemetry.Recorder{}
	client, err := core.NewClient(core.Options{
		BaseUrl:           portal.URL(),
		RetryDelayMs:      1,
		RequestsPerSecond: 1000,
		Telemetry:         tel,
	})
	require.NoError(t, err)
	cache, err := NewCache(client, tel)
	require.NoError(t, err)
	return cache
}

func TestStates(t *testing.T) {
	ctx := context.Background()

	t.Run("landing page select", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		cache := newTestCache(t, portal)

		expected := []markup.Option{
			{Value: "3", Text: "Karnataka"},
			{Value: "1", Text: "Maharashtra"},
		}
		require.Equal(t, expected, cache.States(ctx))
		require.Equal(t, expected, cache.States(ctx))
		// one request to initialize, one to scrape the select
		require.Equal(t, 2, portal.Hits("GET casestatus/index"))
		require.Equal(t, 0, portal.Hits("POST casestatus/getStates"))
	})

	t.Run("getStates endpoint", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		portal.Handle("GET casestatus/index", testutil.Raw("text/html", []byte(
			`<input name="app_token" value="abc"><p>no select here</p>`,
		)))
		portal.HandleJSON("POST casestatus/getStates", map[string]any{
			"status":     1,
			"state_list": `<option value="0">Select</option><option value="29">Telangana</option>`,
		})
		cache := newTestCache(t, portal)

		require.Equal(t, []markup.Option{{Value: "29", Text: "Telangana"}}, cache.States(ctx))
	})

	t.Run("fallback list is not cached", func(t *testing.T) {
		portal := testutil.NewFakePortal(t)
		portal.Handle("GET casestatus/index", testutil.Status(http.StatusNotFound))
		cache := newTestCache(t, portal)

		states := cache.States(ctx)
		require.Len(t, states, 36)
		require.Equal(t, FallbackStates(), states)

		cache.States(ctx)
		require.Equal(t, 2, portal.Hits("GET casestatus/index"))
	})
}

func TestDistricts(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	portal.HandleSequence(
		"POST casestatus/fillDistrict",
		testutil.JSON(map[string]any{"status": 0}),
		testutil.JSON(map[string]any{
			"status":    "1",
			"dist_list": `<option value="">Select District</option><option value="20">Bengaluru</option>`,
			"app_token": "next",
		}),
	)
	cache := newTestCache(t, portal)

	require.Equal(t, []markup.Option{}, cache.Districts(ctx, "3"))
	require.Equal(t, []markup.Option{{Value: "20", Text: "Bengaluru"}}, cache.Districts(ctx, "3"))
	require.Equal(t, []markup.Option{{Value: "20", Text: "Bengaluru"}}, cache.Districts(ctx, "3"))

	// the empty answer was not cached, the good one was
	require.Equal(t, 2, portal.Hits("POST casestatus/fillDistrict"))
	require.Equal(t, "3", portal.LastForm("POST casestatus/fillDistrict").Get("state_code"))
}

func TestDistrictsAreKeptPerState(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	portal.HandleJSON("POST casestatus/fillDistrict", map[string]any{
		"status":    1,
		"dist_list": `<option value="20">Bengaluru</option>`,
	})
	cache := newTestCache(t, portal)

	const states = 300
	for i := range states {
		require.Len(t, cache.Districts(ctx, fmt.Sprint(i)), 1)
	}
	for i := range states {
		require.Len(t, cache.Districts(ctx, fmt.Sprint(i)), 1)
	}
	require.Equal(t, states, portal.Hits("POST casestatus/fillDistrict"))
}

func TestComplexes(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	portal.HandleJSON("POST casestatus/fillcomplex", map[string]any{
		"status": true,
		"complex_list": `<option value="0">Select Court Complex</option>` +
			`<option value="1010101@2,3@N">City Civil Court Complex</option>` +
			`<option value="1010102">Mayo Hall</option>`,
	})
	cache := newTestCache(t, portal)

	expected := []markup.Option{
		{Value: "1010101", Text: "City Civil Court Complex", RawValue: "1010101@2,3@N", EstList: "2,3", Flag: "N"},
		{Value: "1010102", Text: "Mayo Hall", RawValue: "1010102"},
	}
	if diff := cmp.Diff(expected, cache.Complexes(ctx, "3", "20")); diff != "" {
		t.Fatal("(-want +got):\n" + diff)
	}
	cache.Complexes(ctx, "3", "20")
	require.Equal(t, 1, portal.Hits("POST casestatus/fillcomplex"))

	form := portal.LastForm("POST casestatus/fillcomplex")
	require.Equal(t, "20", form.Get("dist_code"))
}

func TestCaseTypesEviction(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	portal.HandleJSON("POST casestatus/fillCaseType", map[string]any{
		"status":        1,
		"casetype_list": `<option value="0">Select case type</option><option value="12">CS - Civil Suit</option>`,
	})
	cache := newTestCache(t, portal)

	query := func(i int) CaseTypeQuery {
		return CaseTypeQuery{StateCode: "3", DistCode: "20", CourtComplexCode: fmt.Sprint(i)}
	}

	for i := range 11 {
		require.Equal(t, []markup.Option{{Value: "12", Text: "CS - Civil Suit"}}, cache.CaseTypes(ctx, query(i)))
	}
	require.Equal(t, 11, portal.Hits("POST casestatus/fillCaseType"))
	require.Equal(t, "c_no", portal.LastForm("POST casestatus/fillCaseType").Get("search_type"))

	// the most recent entry is still cached, the oldest was evicted
	cache.CaseTypes(ctx, query(10))
	require.Equal(t, 11, portal.Hits("POST casestatus/fillCaseType"))
	cache.CaseTypes(ctx, query(0))
	require.Equal(t, 12, portal.Hits("POST casestatus/fillCaseType"))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	portal := testutil.NewFakePortal(t)
	portal.HandleJSON("POST casestatus/fillDistrict", map[string]any{
		"status":    1,
		"dist_list": `<option value="20">Bengaluru</option>`,
	})
	cache := newTestCache(t, portal)

	cache.States(ctx)
	cache.Districts(ctx, "3")
	cache.Clear()
	cache.States(ctx)
	cache.Districts(ctx, "3")

	require.Equal(t, 2, portal.Hits("POST casestatus/fillDistrict"))
	require.Equal(t, 3, portal.Hits("GET casestatus/index"))
}

func TestLookup(t *testing.T) {
	text, ok := Lookup(FallbackStates(), "3")
	require.True(t, ok)
	require.Equal(t, "Karnataka", text)

	_, ok = Lookup(FallbackStates(), "999")
	require.False(t, ok)
}
