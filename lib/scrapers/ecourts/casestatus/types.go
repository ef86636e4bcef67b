package casestatus

import (
	"encoding/json"
	"fmt"

	"ecourts-backend/lib/scrapers/ecourts/markup"
)

// Kind tells callers how to react to a result. NotFound must not be
// retried blindly, TransportError may be.
type Kind string

const (
	KindTransportError Kind = "transport_error"
	KindNotFound       Kind = "not_found"
	KindPartial        Kind = "partial"
	KindSuccess        Kind = "success"
)

// SubmitRequest is a case number search. EstCode defaults to "null", which
// is what the portal's own form sends when no establishment is picked.
type SubmitRequest struct {
	StateCode        string `json:"state_code" validate:"required"`
	DistCode         string `json:"dist_code" validate:"required"`
	CourtComplexCode string `json:"court_complex_code" validate:"required"`
	EstCode          string `json:"est_code"`
	CaseType         string `json:"case_type" validate:"required"`
	CaseNo           string `json:"case_no" validate:"required"`
	Year             string `json:"rgyear" validate:"required,numeric,len=4"`
	Captcha          string `json:"captcha_code"`
}

// CaseStatus is the consolidated record of a case: the case details when
// they could be fetched, with the listing's summary filling any gaps.
type CaseStatus struct {
	markup.CaseDetail
	Petitioner string `json:"petitioner"`
	Respondent string `json:"respondent"`
}

type SubmitResult struct {
	Success bool   `json:"success"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	CaseStatusData   *CaseStatus        `json:"case_status_data"`
	CaseDetails      *markup.CaseDetail `json:"case_details,omitempty"`
	CaseDetailsError string             `json:"case_details_error,omitempty"`
	CaseDetailsRaw   string             `json:"case_details_raw,omitempty"`

	RawHtml     string `json:"raw_html,omitempty"`
	CaptchaHtml string `json:"captcha_html,omitempty"`
	RawSnippet  string `json:"raw_snippet,omitempty"`
	AppToken    string `json:"app_token,omitempty"`
}

// DetailsRequest asks for the case history behind a listing's chain key.
type DetailsRequest struct {
	CourtCode        string `json:"court_code" validate:"required"`
	StateCode        string `json:"state_code" validate:"required"`
	DistCode         string `json:"dist_code" validate:"required"`
	CourtComplexCode string `json:"court_complex_code" validate:"required"`
	CaseNo           string `json:"case_no" validate:"required"`
	Cino             string `json:"cino" validate:"required"`
	SearchFlag       string `json:"search_flag"`
	SearchBy         string `json:"search_by"`
}

type DetailsResult struct {
	Success     bool               `json:"success"`
	Kind        Kind               `json:"kind"`
	Message     string             `json:"message"`
	CaseDetails *markup.CaseDetail `json:"case_details,omitempty"`
	RawHtml     string             `json:"raw_html,omitempty"`
	RawSnippet  string             `json:"raw_snippet,omitempty"`
	AppToken    string             `json:"app_token,omitempty"`
}

// AuditRecord is what a submission leaves behind for the query log.
type AuditRecord struct {
	Success    bool
	StateCode  string
	DistCode   string
	CaseNumber string
	Raw        []byte
}

// Audit summarizes a submission, the case number falls back to the one
// that was searched for when the result carries none.
func (r SubmitResult) Audit(req SubmitRequest) AuditRecord {
	record := AuditRecord{
		Success:   r.Success,
		StateCode: req.StateCode,
		DistCode:  req.DistCode,
	}
	if r.CaseStatusData != nil {
		record.CaseNumber = r.CaseStatusData.CaseNumber
	}
	if record.CaseNumber == "" {
		record.CaseNumber = fmt.Sprintf("%s %s/%s", req.CaseType, req.CaseNo, req.Year)
	}
	raw, err := json.Marshal(r)
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	record.Raw = raw
	return record
}
