package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/casestatus"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	libtelemetry "ecourts-backend/lib/telemetry"

	"github.com/h2non/filetype"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/codes"
)

var tracer = libtelemetry.Tracer("ecourts.lib.scrapers.ecourts.orders")

const (
	report_retriever_fetch    = "retriever.fetch"
	report_retriever_action   = "retriever.action"
	report_retriever_document = "retriever.document"
)

// ErrNotAvailable is returned when no strategy produced a PDF.
var ErrNotAvailable = errors.New("order pdf not available")

const maxActionAttempts = 2

// fallbackFilename names PDFs served straight from the action url.
const fallbackFilename = "order.pdf"

// Document is a downloaded order.
type Document struct {
	Data     []byte
	Filename string
}

// Retriever turns the reference captured from an interim order into the
// order's PDF.
type Retriever struct {
	client   *core.Client
	workflow *casestatus.Workflow
	tel      telemetry.API
}

func NewRetriever(client *core.Client, workflow *casestatus.Workflow, tel telemetry.API) *Retriever {
	return &Retriever{
		client:   client,
		workflow: workflow,
		tel:      telemetry.NewScopedAPI("ecourts_orders", tel),
	}
}

// IsPDF reports whether `body` is a PDF, by its signature or, failing
// that, by the declared content type.
func IsPDF(body []byte, contentType string) bool {
	if len(body) == 0 {
		return false
	}
	if bytes.HasPrefix(body, []byte("%PDF")) {
		return true
	}
	if kind, err := filetype.Match(body); err == nil && kind.Extension == "pdf" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}

func orderPath(env gjson.Result) string {
	path := markup.FirstString(env, markup.OrderPathKeys)
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return path
	}
	return ""
}

// Fetch resolves `reference` to a PDF. Strategies are tried cheapest
// first: a reference that already is a document path, the reference's
// filename parameter, the portal's display action (POST, then GET).
func (r *Retriever) Fetch(ctx context.Context, reference string) (Document, error) {
	ctx, span := tracer.Start(ctx, "retriever:Fetch")
	defer span.End()

	doc, err := r.fetch(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order not available")
		r.tel.ReportWarning(report_retriever_fetch, err, reference)
	}
	return doc, err
}

func (r *Retriever) fetch(ctx context.Context, reference string) (Document, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Document{}, fmt.Errorf("%w: empty reference", ErrNotAvailable)
	}
	if !r.client.EnsureInitialized(ctx) {
		return Document{}, core.ErrNotInitialized
	}

	ref := markup.ParseOrderReference(reference)
	if ref.DocumentPath != "" {
		doc, ok := r.fetchDirect(ctx, ref.DocumentPath)
		if !ok {
			return Document{}, fmt.Errorf("%w: %s", ErrNotAvailable, ref.DocumentPath)
		}
		return doc, nil
	}

	if ref.Filename != "" {
		if doc, ok := r.fetchDirect(ctx, ref.Filename); ok {
			return doc, nil
		}
		r.tel.ReportDebug(report_retriever_document+": filename parameter did not resolve", ref.Filename)
	}

	path := r.invokeAction(ctx, ref)
	if path == "" {
		doc, getPath, ok := r.actionGet(ctx, ref)
		if ok {
			return doc, nil
		}
		path = getPath
	}
	if path == "" {
		return Document{}, fmt.Errorf("%w: no order path from %s", ErrNotAvailable, ref.ActionPath)
	}
	return r.fetchCandidates(ctx, path)
}

// fetchDirect fetches a known document path, only a real PDF is accepted.
func (r *Retriever) fetchDirect(ctx context.Context, path string) (Document, bool) {
	res, err := r.client.Get(ctx, strings.TrimLeft(path, "/"))
	if err != nil || !IsPDF(res.Body(), "") {
		return Document{}, false
	}
	return Document{Data: res.Body(), Filename: markup.DocumentName(path)}, true
}

func actionForm(ref markup.OrderReference) map[string]string {
	form := make(map[string]string, len(ref.Params))
	for _, p := range ref.Params {
		form[p.Key] = p.Value
	}
	return form
}

// invokeAction posts the reference's parameters to its action, which
// answers with the path of a freshly generated PDF. The portal only honors
// this for a case the session has recently looked at, so the last case is
// viewed again first and, when the portal rejects the request, submitted
// again before the single retry.
func (r *Retriever) invokeAction(ctx context.Context, ref markup.OrderReference) string {
	last, hasLast := r.client.LastCase()
	if hasLast {
		r.workflow.Preflight(ctx, last)
	}

	for attempt := 1; attempt <= maxActionAttempts; attempt++ {
		// keeps the session cookies warm and picks up the page's token,
		// failures are not fatal
		if page, err := r.client.Get(ctx, core.IndexPath); err == nil {
			r.client.RotateToken(markup.ExtractToken(page.Body()))
		}

		res, err := r.client.PostAjax(ctx, ref.ActionURL(), actionForm(ref))
		if err != nil {
			r.tel.ReportWarning(report_retriever_action, err, attempt)
			return ""
		}
		if path := orderPath(res.Envelope); path != "" {
			return path
		}
		if attempt == maxActionAttempts {
			break
		}

		sessionTimeout := markup.IsSessionTimeout(res.Envelope)
		invalidRequest := markup.IsInvalidRequest(res.Envelope)
		retry := false
		if (sessionTimeout || invalidRequest) && hasLast {
			r.tel.ReportDebug(report_retriever_action+": replaying last case", markup.ErrorMessage(res.Envelope))
			r.workflow.Replay(ctx, last)
			retry = true
		}
		if sessionTimeout {
			retry = r.client.Refresh(ctx)
		}
		if !retry {
			break
		}
	}
	return ""
}

// actionGet is the last resort for deployments that serve the action over
// GET, answering with either the usual JSON or the PDF itself.
func (r *Retriever) actionGet(ctx context.Context, ref markup.OrderReference) (Document, string, bool) {
	res, err := r.client.Get(ctx, ref.ActionURL())
	if err != nil {
		return Document{}, "", false
	}
	body := res.Body()
	if gjson.ValidBytes(bytes.TrimSpace(body)) {
		return Document{}, orderPath(gjson.ParseBytes(body)), false
	}
	if bytes.HasPrefix(body, []byte("%PDF")) {
		return Document{Data: body, Filename: fallbackFilename}, "", true
	}
	return Document{}, "", false
}

// fetchCandidates fetches a resolved order path, some deployments serve it
// below the application directory instead of the site root.
func (r *Retriever) fetchCandidates(ctx context.Context, orderPath string) (Document, error) {
	clean := strings.TrimLeft(orderPath, "/")
	candidates := []string{clean}
	if !strings.HasPrefix(clean, "ecourtindia_v6/") {
		candidates = append(candidates, "ecourtindia_v6/"+clean)
	}

	var tried []string
	for _, candidate := range candidates {
		res, err := r.client.Get(ctx, candidate)
		if err == nil && IsPDF(res.Body(), res.Header().Get("Content-Type")) {
			return Document{Data: res.Body(), Filename: markup.DocumentName(orderPath)}, nil
		}
		status := "error"
		if res != nil {
			status = res.Status()
		}
		tried = append(tried, fmt.Sprintf("%s -> %s", candidate, status))
	}
	r.tel.ReportWarning(report_retriever_document, errors.New("no candidate served a pdf"), strings.Join(tried, "; "))
	return Document{}, fmt.Errorf("%w: %s", ErrNotAvailable, clean)
}
