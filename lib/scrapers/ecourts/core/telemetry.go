package core

import (
	libtelemetry "ecourts-backend/lib/telemetry"
)

var tracer = libtelemetry.Tracer("ecourts.lib.scrapers.ecourts.core")

const (
	report_client_initialize = "client.initialize"
	report_client_refresh    = "client.refresh"
	report_client_ajax       = "client.ajax"
	report_client_captcha    = "client.captcha"
)
