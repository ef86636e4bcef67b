package restyutil

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives the fully rendered request/response exchange
// of every instrumented call.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	tracer    trace.Tracer
	idcounter *uint64
}

// InstrumentClient wraps every request in a span, and if `output` is not
// nil, writes each exchange to it.
//
// `tracer` can be nil, it will default to a library name of "resty".
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type messageIdKeyType int

var messageIdKey messageIdKeyType

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), req.Method)
	messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	req.SetContext(context.WithValue(ctx, messageIdKey, messageId))
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// request attributes are set here since res.Request.RawRequest is nil in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	if i.output != nil {
		messageId, _ := ctx.Value(messageIdKey).(string)
		i.output.Write(messageId, formatHttpMessage(res))
	}
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	span.SetName(fmt.Sprintf("http %s", req.Method))
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}

	if i.output != nil {
		messageId, _ := req.Context().Value(messageIdKey).(string)
		i.output.Write(messageId+".err", fmt.Sprintf("%s %s\n\n%s", req.Method, req.URL, err.Error()))
	}
}
