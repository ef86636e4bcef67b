package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type instrumentResty struct {
	tel       API
	idcounter *uint64
}

// InstrumentResty reports every request made by `client` along with its
// status and duration.
func InstrumentResty(client *resty.Client, tel API) {
	var idcounter uint64
	i := instrumentResty{tel: OrSlog(tel), idcounter: &idcounter}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id uint64
	// only differences are taken so the wall clock is fine here
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	id := atomic.AddUint64(i.idcounter, 1)
	ctx := context.WithValue(req.Context(), reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func requestTiming(ctx context.Context) (uint64, time.Duration) {
	rc, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return 0, 0
	}
	return rc.id, time.Since(rc.startTime)
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	id, duration := requestTiming(res.Request.Context())
	i.tel.ReportDebug(
		report_resty_response,
		id,
		duration.String(),
		res.Status(),
	)
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	id, duration := requestTiming(req.Context())
	i.tel.ReportWarning(
		report_resty_response,
		err,
		id,
		req.Method,
		req.URL,
		duration.String(),
	)
}
