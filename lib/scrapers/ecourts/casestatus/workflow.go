package casestatus

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	libtelemetry "ecourts-backend/lib/telemetry"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = libtelemetry.Tracer("ecourts.lib.scrapers.ecourts.casestatus")

const (
	report_workflow_submit  = "workflow.submit"
	report_workflow_details = "workflow.details"
	report_workflow_replay  = "workflow.replay"
)

const (
	submitCaseNoPath = "ecourtindia_v6/?p=casestatus/submitCaseNo"
	viewHistoryPath  = "ecourtindia_v6/?p=home/viewHistory"
)

const (
	msgCaseFound        = "Case found"
	msgRecordNotFound   = "Record not found"
	msgEmptyListing     = "Empty case listing"
	msgNoChainKey       = "viewHistory parameters not found in listing"
	msgDetailsRetrieved = "Case details retrieved successfully"
	msgNoDetails        = "No case details found in response"
	msgDetailsNotJson   = "Failed to parse response JSON"
	msgSessionExpired   = "Session expired"
	msgNotInitialized   = "Failed to initialize session"
)

const snippetLength = 500

// Workflow drives a case number search from submission to consolidated
// case record.
type Workflow struct {
	client *core.Client
	tel    telemetry.API

	// Delay is waited between the listing and the details request, it
	// defaults to a random 400-900ms.
	Delay func() time.Duration
}

func NewWorkflow(client *core.Client, tel telemetry.API) *Workflow {
	return &Workflow{
		client: client,
		tel:    telemetry.NewScopedAPI("ecourts_casestatus", tel),
		Delay:  courtesyDelay,
	}
}

func courtesyDelay() time.Duration {
	return 400*time.Millisecond + rand.N(500*time.Millisecond)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func snippet(body []byte) string {
	if len(body) > snippetLength {
		body = body[:snippetLength]
	}
	return string(body)
}

func transportMessage(err error) string {
	if errors.Is(err, core.ErrSessionExpired) {
		return msgSessionExpired
	}
	var transportErr *core.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Message()
	}
	return err.Error()
}

func (req SubmitRequest) estCode() string {
	if req.EstCode == "" {
		return "null"
	}
	return req.EstCode
}

func (w *Workflow) submitForm(req SubmitRequest) map[string]string {
	return map[string]string{
		"case_type":          req.CaseType,
		"search_case_no":     req.CaseNo,
		"rgyear":             req.Year,
		"case_captcha_code":  req.Captcha,
		"state_code":         req.StateCode,
		"dist_code":          req.DistCode,
		"court_complex_code": req.CourtComplexCode,
		"est_code":           req.estCode(),
		"case_no":            req.CaseNo,
	}
}

// Submit searches for a case by type, number and year. A found case is
// followed through to its details when the listing allows it. The outcome
// is always a result value, never an error.
func (w *Workflow) Submit(ctx context.Context, req SubmitRequest) SubmitResult {
	ctx, span := tracer.Start(ctx, "workflow:Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("case_type", req.CaseType),
		attribute.String("case_no", req.CaseNo),
		attribute.String("year", req.Year),
	)

	result := w.submit(ctx, req)
	result.AppToken = w.client.Token()
	span.SetAttributes(attribute.String("kind", string(result.Kind)))
	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
	}
	return result
}

func (w *Workflow) submit(ctx context.Context, req SubmitRequest) SubmitResult {
	failed := func(kind Kind, message string) SubmitResult {
		return SubmitResult{Kind: kind, Message: message}
	}

	if !w.client.EnsureInitialized(ctx) {
		return failed(KindTransportError, msgNotInitialized)
	}

	res, err := w.client.Ajax(ctx, submitCaseNoPath, w.submitForm(req))
	if err != nil {
		w.tel.ReportWarning(report_workflow_submit, err)
		return failed(KindTransportError, transportMessage(err))
	}

	listingMarkup := markup.ListingMarkup(res.Envelope)
	captchaMarkup := markup.FirstString(res.Envelope, markup.CaptchaMarkupKeys)
	if listingMarkup == "" {
		result := failed(KindTransportError, msgEmptyListing)
		result.CaptchaHtml = captchaMarkup
		result.RawSnippet = snippet(res.Body)
		return result
	}

	if markup.IsNotFound(listingMarkup) {
		result := failed(KindNotFound, msgRecordNotFound)
		result.RawHtml = listingMarkup
		result.CaptchaHtml = captchaMarkup
		return result
	}

	listing := markup.ParseListing(listingMarkup)
	w.client.SetLastCase(core.LastCaseContext{
		StateCode:        req.StateCode,
		DistCode:         req.DistCode,
		CourtComplexCode: req.CourtComplexCode,
		EstCode:          req.estCode(),
		CaseType:         req.CaseType,
		CaseNo:           req.CaseNo,
		Year:             req.Year,
		Chain:            listing.Chain,
	})

	result := SubmitResult{
		Success:        true,
		Kind:           KindPartial,
		Message:        msgCaseFound,
		CaseStatusData: fromListing(listing),
		RawHtml:        listingMarkup,
		CaptchaHtml:    captchaMarkup,
	}

	if !listing.Chain.Complete() {
		result.CaseDetailsError = msgNoChainKey
		return result
	}

	if err := sleep(ctx, w.Delay()); err != nil {
		result.CaseDetailsError = err.Error()
		return result
	}
	details := w.Details(ctx, DetailsRequest{
		CourtCode:        listing.Chain.CourtCode,
		StateCode:        req.StateCode,
		DistCode:         req.DistCode,
		CourtComplexCode: req.CourtComplexCode,
		CaseNo:           listing.Chain.CaseNo,
		Cino:             listing.Chain.Cino,
	})
	if !details.Success || details.CaseDetails == nil {
		result.CaseDetailsError = details.Message
		return result
	}

	result.Kind = KindSuccess
	result.CaseDetails = details.CaseDetails
	result.CaseDetailsRaw = details.RawHtml
	result.CaseStatusData = merge(listing, *details.CaseDetails)
	return result
}

func fromListing(listing markup.Listing) *CaseStatus {
	status := &CaseStatus{
		CaseDetail: markup.NewCaseDetail(),
		Petitioner: listing.Petitioner,
		Respondent: listing.Respondent,
	}
	status.CaseNumber = listing.CaseNumber
	status.CaseType = listing.CaseType
	status.CourtName = listing.CourtName
	return status
}

// merge lets every non-empty detail field win over the listing's summary.
func merge(listing markup.Listing, detail markup.CaseDetail) *CaseStatus {
	status := &CaseStatus{
		CaseDetail: detail,
		Petitioner: listing.Petitioner,
		Respondent: listing.Respondent,
	}
	if status.CaseNumber == "" {
		status.CaseNumber = listing.CaseNumber
	}
	if status.CaseType == "" {
		status.CaseType = listing.CaseType
	}
	if status.CourtName == "" {
		status.CourtName = listing.CourtName
	}
	if len(detail.Petitioners) > 0 {
		status.Petitioner = detail.Petitioners[0].Name
	}
	if len(detail.Respondents) > 0 {
		status.Respondent = detail.Respondents[0].Name
	}
	return status
}

// Details fetches and parses the case history for a chain key.
func (w *Workflow) Details(ctx context.Context, req DetailsRequest) DetailsResult {
	ctx, span := tracer.Start(ctx, "workflow:Details")
	defer span.End()
	span.SetAttributes(attribute.String("cino", req.Cino))

	result := w.details(ctx, req)
	result.AppToken = w.client.Token()
	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
	}
	return result
}

func (w *Workflow) details(ctx context.Context, req DetailsRequest) DetailsResult {
	if req.SearchFlag == "" {
		req.SearchFlag = "CScaseNumber"
	}
	if req.SearchBy == "" {
		req.SearchBy = "CScaseNumber"
	}

	if !w.client.EnsureInitialized(ctx) {
		return DetailsResult{Kind: KindTransportError, Message: msgNotInitialized}
	}

	res, err := w.client.Ajax(ctx, viewHistoryPath, map[string]string{
		"court_code":         req.CourtCode,
		"state_code":         req.StateCode,
		"dist_code":          req.DistCode,
		"court_complex_code": req.CourtComplexCode,
		"case_no":            req.CaseNo,
		"cino":               req.Cino,
		"hideparty":          "",
		"search_flag":        req.SearchFlag,
		"search_by":          req.SearchBy,
	})
	if err != nil {
		w.tel.ReportWarning(report_workflow_details, err, req.Cino)
		return DetailsResult{Kind: KindTransportError, Message: transportMessage(err)}
	}

	if !gjson.Valid(strings.TrimSpace(string(res.Body))) {
		w.tel.ReportWarning(report_workflow_details, fmt.Errorf("response is not json"), req.Cino)
		return DetailsResult{
			Kind:       KindTransportError,
			Message:    msgDetailsNotJson,
			RawSnippet: snippet(res.Body),
		}
	}

	dataList := markup.FirstString(res.Envelope, markup.DetailKeys)
	if dataList == "" {
		return DetailsResult{Kind: KindNotFound, Message: msgNoDetails}
	}

	detail := markup.ParseDetail(dataList)
	if detail.Error != "" {
		w.tel.ReportBroken(report_workflow_details, errors.New(detail.Error), req.Cino)
	}
	return DetailsResult{
		Success:     true,
		Kind:        KindSuccess,
		Message:     msgDetailsRetrieved,
		CaseDetails: &detail,
		RawHtml:     dataList,
	}
}

// Replay submits the last case again with an empty captcha. The portal
// correlates order downloads with a recently viewed case and usually
// accepts the replay while the session cookies are still valid.
func (w *Workflow) Replay(ctx context.Context, last core.LastCaseContext) error {
	ctx, span := tracer.Start(ctx, "workflow:Replay")
	defer span.End()

	_, err := w.client.PostAjax(ctx, submitCaseNoPath, w.submitForm(SubmitRequest{
		StateCode:        last.StateCode,
		DistCode:         last.DistCode,
		CourtComplexCode: last.CourtComplexCode,
		EstCode:          last.EstCode,
		CaseType:         last.CaseType,
		CaseNo:           last.CaseNo,
		Year:             last.Year,
	}))
	if err != nil {
		span.RecordError(err)
		w.tel.ReportWarning(report_workflow_replay, err)
	}
	return err
}

// Preflight requests the last case's details again so the portal's server
// side state points at it.
func (w *Workflow) Preflight(ctx context.Context, last core.LastCaseContext) {
	if !last.Chain.Complete() {
		return
	}
	w.Details(ctx, DetailsRequest{
		CourtCode:        last.Chain.CourtCode,
		StateCode:        last.StateCode,
		DistCode:         last.DistCode,
		CourtComplexCode: last.CourtComplexCode,
		CaseNo:           last.Chain.CaseNo,
		Cino:             last.Chain.Cino,
	})
}
