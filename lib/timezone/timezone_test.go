package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsIST(t *testing.T) {
	_, offset := Now().Zone()
	require.Equal(t, 19800, offset)
}

func TestFormat(t *testing.T) {
	utc := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2025-01-01 05:30:00 IST", Format(utc))
}
