package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/scrapers/ecourts/casestatus"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/directory"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	"ecourts-backend/lib/scrapers/ecourts/orders"
	"ecourts-backend/lib/timezone"

	random "github.com/mazen160/go-random"
)

const referenceSnippetLength = 120

type StateRequest struct {
	StateCode string `json:"state_code" validate:"required"`
}

type DistrictRequest struct {
	StateCode string `json:"state_code" validate:"required"`
	DistCode  string `json:"dist_code" validate:"required"`
}

type CaseTypeRequest struct {
	StateCode        string `json:"state_code" validate:"required"`
	DistCode         string `json:"dist_code" validate:"required"`
	CourtComplexCode string `json:"court_complex_code" validate:"required"`
	EstCode          string `json:"est_code"`
	SearchType       string `json:"search_type"`
}

type OrderPdfRequest struct {
	PdfRequest string `json:"pdf_request" validate:"required"`
}

type StatesResponse struct {
	States   []markup.Option `json:"states"`
	AppToken string          `json:"app_token"`
}

type DistrictsResponse struct {
	Districts []markup.Option `json:"districts"`
	AppToken  string          `json:"app_token"`
}

type ComplexesResponse struct {
	Complexes []markup.Option `json:"complexes"`
	AppToken  string          `json:"app_token"`
}

type CaseTypesResponse struct {
	CaseTypes []markup.Option `json:"case_types"`
	AppToken  string          `json:"app_token"`
}

type HealthResponse struct {
	Status             string `json:"status"`
	SessionInitialized bool   `json:"session_initialized"`
	AppTokenAvailable  bool   `json:"app_token_available"`
	InitializedAt      string `json:"initialized_at,omitempty"`
	Timestamp          string `json:"timestamp"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type WarmResponse struct {
	Success  bool   `json:"success"`
	AppToken string `json:"app_token"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) error {
	sendJson(w, http.StatusOK, map[string]string{
		"message": "eCourts case status API",
		"status":  "ready",
	})
	return nil
}

func (s *Server) getStates(w http.ResponseWriter, r *http.Request) error {
	states := s.scraper.Directory.States(r.Context())
	sendJson(w, http.StatusOK, StatesResponse{
		States:   states,
		AppToken: s.scraper.Client.Token(),
	})
	return nil
}

func (s *Server) getDistricts(w http.ResponseWriter, r *http.Request) error {
	var req StateRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	districts := s.scraper.Directory.Districts(r.Context(), req.StateCode)
	sendJson(w, http.StatusOK, DistrictsResponse{
		Districts: nonNil(districts),
		AppToken:  s.scraper.Client.Token(),
	})
	return nil
}

func (s *Server) getCourtComplexes(w http.ResponseWriter, r *http.Request) error {
	var req DistrictRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	complexes := s.scraper.Directory.Complexes(r.Context(), req.StateCode, req.DistCode)
	sendJson(w, http.StatusOK, ComplexesResponse{
		Complexes: nonNil(complexes),
		AppToken:  s.scraper.Client.Token(),
	})
	return nil
}

func (s *Server) getCaseTypes(w http.ResponseWriter, r *http.Request) error {
	var req CaseTypeRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	caseTypes := s.scraper.Directory.CaseTypes(r.Context(), directory.CaseTypeQuery{
		StateCode:        req.StateCode,
		DistCode:         req.DistCode,
		CourtComplexCode: req.CourtComplexCode,
		EstCode:          req.EstCode,
		SearchType:       req.SearchType,
	})
	sendJson(w, http.StatusOK, CaseTypesResponse{
		CaseTypes: nonNil(caseTypes),
		AppToken:  s.scraper.Client.Token(),
	})
	return nil
}

func nonNil(options []markup.Option) []markup.Option {
	if options == nil {
		return []markup.Option{}
	}
	return options
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) error {
	status := s.scraper.Client.Status()
	sendJson(w, http.StatusOK, HealthResponse{
		Status:             "healthy",
		SessionInitialized: status.Initialized,
		AppTokenAvailable:  status.TokenAvailable,
		InitializedAt:      status.InitializedAt,
		Timestamp:          timezone.Now().Format(time.RFC3339),
	})
	return nil
}

func (s *Server) captchaUrl(w http.ResponseWriter, r *http.Request) error {
	buster, err := random.String(16)
	if err != nil {
		return err
	}
	sendJson(w, http.StatusOK, map[string]string{
		"captcha_url": "/api/captcha-image?rand=" + buster,
	})
	return nil
}

// captchaImage proxies the image through the scraper's own session, the
// answer is only valid for the session that fetched it.
func (s *Server) captchaImage(w http.ResponseWriter, r *http.Request) error {
	image, contentType, err := s.scraper.CaptchaImage(r.Context())
	var transportErr *core.TransportError
	switch {
	case errors.As(err, &transportErr):
		return errorf(http.StatusBadGateway, "Upstream CAPTCHA %s", transportErr.Message())
	case err != nil:
		return errorf(http.StatusInternalServerError, "Error fetching CAPTCHA: %v", err)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(image)
	return nil
}

func (s *Server) submitCase(w http.ResponseWriter, r *http.Request) error {
	var req casestatus.SubmitRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	result := s.scraper.Workflow.Submit(r.Context(), req)
	s.metrics.submissions.WithLabelValues(string(result.Kind)).Inc()
	s.audit(r.Context(), result.Audit(req))

	sendJson(w, http.StatusOK, result)
	return nil
}

// audit records a submission, failures are reported but never surface to
// the client.
func (s *Server) audit(ctx context.Context, record casestatus.AuditRecord) {
	_, err := s.logs.Log(ctx, querylog.Entry{
		State:      s.stateName(ctx, record.StateCode),
		District:   s.districtName(ctx, record.StateCode, record.DistCode),
		CaseNumber: record.CaseNumber,
		Success:    record.Success,
		Raw:        record.Raw,
	})
	if err != nil {
		s.tel.ReportWarning(report_server_audit, err)
	}
}

func (s *Server) stateName(ctx context.Context, code string) string {
	if name, ok := directory.Lookup(s.scraper.Directory.States(ctx), code); ok {
		return name
	}
	return code
}

func (s *Server) districtName(ctx context.Context, stateCode, distCode string) string {
	if name, ok := directory.Lookup(s.scraper.Directory.Districts(ctx, stateCode), distCode); ok {
		return name
	}
	return distCode
}

func (s *Server) getCaseDetails(w http.ResponseWriter, r *http.Request) error {
	var req casestatus.DetailsRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	sendJson(w, http.StatusOK, s.scraper.Workflow.Details(r.Context(), req))
	return nil
}

func referenceSnippet(reference string) string {
	if len(reference) <= referenceSnippetLength {
		return reference
	}
	return reference[:referenceSnippetLength] + "..."
}

func (s *Server) getOrderPdf(w http.ResponseWriter, r *http.Request) error {
	var req OrderPdfRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}

	doc, err := s.scraper.Orders.Fetch(r.Context(), req.PdfRequest)
	switch {
	case errors.Is(err, orders.ErrNotAvailable):
		return errorf(http.StatusNotFound, "PDF not available for request fragment: %s", referenceSnippet(req.PdfRequest))
	case err != nil:
		return errorf(http.StatusBadGateway, "Error fetching PDF: %v", err)
	}

	filename := strings.ReplaceAll(doc.Filename, `"`, "")
	if filename == "" {
		filename = "order.pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
	return nil
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) error {
	if err := s.scraper.Reset(); err != nil {
		sendJson(w, http.StatusOK, MessageResponse{Success: false, Message: "Failed to clear cache"})
		return nil
	}
	sendJson(w, http.StatusOK, MessageResponse{Success: true, Message: "Caches cleared and session reset"})
	return nil
}

func (s *Server) warmSession(w http.ResponseWriter, r *http.Request) error {
	ok := s.scraper.Warm(r.Context())
	sendJson(w, http.StatusOK, WarmResponse{
		Success:  ok,
		AppToken: s.scraper.Client.Token(),
	})
	return nil
}

func (s *Server) queryLogs(w http.ResponseWriter, r *http.Request) error {
	limit := querylog.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return &Error{
				StatusCode: http.StatusUnprocessableEntity,
				Detail:     []FieldError{{Field: "limit", Rule: "numeric", Message: "limit must be an integer"}},
			}
		}
		limit = parsed
	}

	logs, err := s.logs.Recent(r.Context(), limit)
	if err != nil {
		s.tel.ReportWarning(report_server_audit, err)
		return errorf(http.StatusInternalServerError, "Error fetching query logs")
	}
	if logs == nil {
		logs = []querylog.Log{}
	}
	sendJson(w, http.StatusOK, logs)
	return nil
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.logs.Stats(r.Context())
	if err != nil {
		s.tel.ReportWarning(report_server_audit, err)
		return errorf(http.StatusInternalServerError, "Error generating stats")
	}
	sendJson(w, http.StatusOK, stats)
	return nil
}

func (s *Server) resetLogs(w http.ResponseWriter, r *http.Request) error {
	err := s.logs.Reset(r.Context())
	if err != nil {
		s.tel.ReportWarning(report_server_audit, err)
		return errorf(http.StatusInternalServerError, "Error clearing logs")
	}
	sendJson(w, http.StatusOK, MessageResponse{Success: true, Message: "Logs cleared"})
	return nil
}
