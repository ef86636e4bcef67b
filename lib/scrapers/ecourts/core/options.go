package core

import (
	"time"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/restyutil"
)

const DefaultBaseUrl = "https://services.ecourts.gov.in/"

// Options configures a Client. The zero value of every field means "use the
// default", so a zero Options talks to the live portal.
type Options struct {
	BaseUrl        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RetryCount is the number of retries after the first attempt for
	// requests that fail at the transport level or with 429/5xx. Zero means
	// 3, a negative count disables retries.
	RetryCount   int `json:"retry_count"`
	RetryDelayMs int `json:"retry_delay_ms"`
	// RequestsPerSecond caps the rate of upstream requests across every
	// caller sharing the client.
	RequestsPerSecond float64 `json:"requests_per_second"`

	Telemetry telemetry.API              `json:"-"`
	Dump      restyutil.InstrumentOutput `json:"-"`
}

func (o Options) withDefaults() Options {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 15
	}
	switch {
	case o.RetryCount == 0:
		o.RetryCount = 3
	case o.RetryCount < 0:
		o.RetryCount = 0
	}
	if o.RetryDelayMs <= 0 {
		o.RetryDelayMs = 1000
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	return o
}

func (o Options) timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (o Options) retryDelay() time.Duration {
	return time.Duration(o.RetryDelayMs) * time.Millisecond
}
