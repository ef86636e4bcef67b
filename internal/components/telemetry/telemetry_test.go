package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("ecourts_core", rec)

	scoped.ReportBroken("client.initialize", "boom")
	scoped.ReportWarning("client.refresh")
	scoped.ReportCount("client.refresh", 2)

	require.Equal(t, 1, rec.Count("broken", "ecourts_core: client.initialize"))
	require.Equal(t, 1, rec.Count("warning", "ecourts_core: client.refresh"))
	require.Equal(t, 1, rec.Count("count", "ecourts_core: client.refresh"))
	require.Equal(t, []any{"boom"}, rec.Reports()[0].Params)
}

func TestOrSlog(t *testing.T) {
	require.Equal(t, SlogAPI{}, OrSlog(nil))
	rec := &Recorder{}
	require.Same(t, rec, OrSlog(rec))
}
