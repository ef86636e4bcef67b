package markup

// Option is a single entry of a dependent selection list (state, district,
// court complex, case type).
//
// The portal packs extra data into some option values with an "@"
// separator (`1010101@2,3@N`), Value holds the primary code while the rest
// is kept in EstList and Flag.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	RawValue string `json:"raw_value,omitempty"`
	EstList  string `json:"est_list,omitempty"`
	Flag     string `json:"flag,omitempty"`
}

// ChainKey is what the listing's viewHistory(...) call passes on to the
// case details request.
type ChainKey struct {
	CaseNo    string `json:"case_no"`
	Cino      string `json:"cino"`
	CourtCode string `json:"court_code"`
}

// Complete reports whether every part of the key is present, an
// incomplete key cannot be used to fetch details.
func (k ChainKey) Complete() bool {
	return k.CaseNo != "" && k.Cino != "" && k.CourtCode != ""
}

// Listing is the summary row returned by a case number search.
type Listing struct {
	CaseType   string   `json:"case_type"`
	CaseNumber string   `json:"case_number"`
	Petitioner string   `json:"petitioner"`
	Respondent string   `json:"respondent"`
	CourtName  string   `json:"court_name"`
	Chain      ChainKey `json:"-"`
}

type Party struct {
	Name     string `json:"name"`
	Advocate string `json:"advocate"`
}

type Act struct {
	ActName  string `json:"act_name"`
	Sections string `json:"sections"`
}

type Process struct {
	ProcessId    string `json:"process_id"`
	ProcessTitle string `json:"process_title"`
	ProcessDate  string `json:"process_date"`
}

type Hearing struct {
	Judge            string `json:"judge"`
	BusinessDate     string `json:"business_date"`
	HearingDate      string `json:"hearing_date"`
	PurposeOfHearing string `json:"purpose_of_hearing"`
}

type InterimOrder struct {
	OrderNumber  string `json:"order_number"`
	OrderDate    string `json:"order_date"`
	OrderDetails string `json:"order_details"`
	// PdfUrl and DisplayPdfArg both hold the raw displayPdf('...')
	// argument, PdfUrl is kept for older clients.
	PdfUrl        string `json:"pdf_url"`
	DisplayPdfArg string `json:"display_pdf_arg"`
}

// CaseDetail is everything the case history page exposes. Fields that
// could not be located are left empty, Error is only set when the page as
// a whole could not be parsed.
type CaseDetail struct {
	CaseNumber         string `json:"case_number"`
	CaseType           string `json:"case_type"`
	FilingNumber       string `json:"filing_number"`
	FilingDate         string `json:"filing_date"`
	RegistrationNumber string `json:"registration_number"`
	RegistrationDate   string `json:"registration_date"`
	CnrNumber          string `json:"cnr_number"`
	CourtName          string `json:"court_name"`
	Judge              string `json:"judge"`
	Stage              string `json:"stage"`
	NextDate           string `json:"next_date"`
	FirstHearingDate   string `json:"first_hearing_date"`

	Petitioners   []Party        `json:"petitioners"`
	Respondents   []Party        `json:"respondents"`
	Acts          []Act          `json:"acts"`
	Processes     []Process      `json:"processes"`
	CaseHistory   []Hearing      `json:"case_history"`
	InterimOrders []InterimOrder `json:"interim_orders"`

	Error string `json:"error,omitempty"`
}

// NewCaseDetail returns a record with every sequence initialized, so it
// serializes as [] rather than null.
func NewCaseDetail() CaseDetail {
	return CaseDetail{
		Petitioners:   []Party{},
		Respondents:   []Party{},
		Acts:          []Act{},
		Processes:     []Process{},
		CaseHistory:   []Hearing{},
		InterimOrders: []InterimOrder{},
	}
}
