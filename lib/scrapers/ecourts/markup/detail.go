package markup

import (
	"regexp"
	"strings"

	"ecourts-backend/lib/htmlutil"
	"ecourts-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// rowLayout is the shape of a label/value row in the case details table.
type rowLayout int

const (
	// label, value, label, value (4 or more cells)
	layoutPaired rowLayout = iota
	// label, value (2 or 3 cells)
	layoutSingle
)

// fieldRule binds a scalar CaseDetail field to the label vocabulary that
// identifies it. Rules are tried in order and the first rule whose
// vocabulary matches a label and whose field is still empty takes the
// value, a populated field is never overwritten.
type fieldRule struct {
	vocabulary []string
	field      func(*CaseDetail) *string
	transform  func(string) string
	reject     func(layout rowLayout, value string) bool
}

var detailFields = []fieldRule{
	{
		vocabulary: []string{"case type"},
		field:      func(d *CaseDetail) *string { return &d.CaseType },
	},
	{
		vocabulary: []string{"filing number"},
		field:      func(d *CaseDetail) *string { return &d.FilingNumber },
	},
	{
		vocabulary: []string{"filing date"},
		field:      func(d *CaseDetail) *string { return &d.FilingDate },
	},
	{
		vocabulary: []string{"registration number"},
		field:      func(d *CaseDetail) *string { return &d.RegistrationNumber },
	},
	{
		vocabulary: []string{"registration date"},
		field:      func(d *CaseDetail) *string { return &d.RegistrationDate },
	},
	{
		vocabulary: []string{"cnr number"},
		field:      func(d *CaseDetail) *string { return &d.CnrNumber },
		// "KAHC010012342025 (Note the CNR number for future reference)"
		transform: func(v string) string {
			before, _, _ := strings.Cut(v, "(")
			return strings.TrimSpace(before)
		},
	},
	{
		vocabulary: []string{"court number and judge", "court number"},
		field:      func(d *CaseDetail) *string { return &d.Judge },
		// some courts render a date in the second cell of this row
		reject: func(layout rowLayout, v string) bool {
			return layout == layoutSingle && looksLikeDate(v)
		},
	},
	{
		vocabulary: []string{"next hearing date", "next date"},
		field:      func(d *CaseDetail) *string { return &d.NextDate },
	},
	{
		vocabulary: []string{"first hearing"},
		field:      func(d *CaseDetail) *string { return &d.FirstHearingDate },
	},
	{
		vocabulary: []string{"stage", "case stage", "status"},
		field:      func(d *CaseDetail) *string { return &d.Stage },
	},
}

// tables carrying these headers hold sub-records, not case fields
var secondaryTableHeaders = []string{"process id", "order number", "business on date"}

var (
	numericDate = regexp.MustCompile(`^\d{2}[-/]\d{2}[-/]\d{4}$`)
	ordinalDate = regexp.MustCompile(`^\d{1,2}(st|nd|rd|th)\s+[A-Za-z]+\s+\d{4}$`)
)

func looksLikeDate(v string) bool {
	v = strings.TrimSpace(v)
	return numericDate.MatchString(v) || ordinalDate.MatchString(v)
}

func applyField(d *CaseDetail, label, value string, layout rowLayout) {
	if label == "" || value == "" {
		return
	}
	for _, rule := range detailFields {
		if !textutil.MatchLabel(label, rule.vocabulary) {
			continue
		}
		target := rule.field(d)
		if *target != "" {
			continue
		}
		if rule.reject != nil && rule.reject(layout, value) {
			return
		}
		if rule.transform != nil {
			value = rule.transform(value)
		}
		*target = value
		return
	}
}

func headerLabels(table *goquery.Selection) []string {
	var headers []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, textutil.NormalizeLabel(th.Text()))
	})
	return headers
}

func anyHeaderContains(headers []string, vocabulary ...string) bool {
	for _, h := range headers {
		for _, v := range vocabulary {
			if strings.Contains(h, v) {
				return true
			}
		}
	}
	return false
}

func parseFieldTables(tables *goquery.Selection, d *CaseDetail) {
	tables.Each(func(_ int, table *goquery.Selection) {
		if anyHeaderContains(headerLabels(table), secondaryTableHeaders...) {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td, th")
			switch {
			case cells.Length() >= 4:
				for i := 0; i+1 < cells.Length(); i += 2 {
					applyField(
						d,
						textutil.NormalizeLabel(cells.Eq(i).Text()),
						htmlutil.SelectionText(cells.Eq(i+1)),
						layoutPaired,
					)
				}
			case cells.Length() >= 2:
				applyField(
					d,
					textutil.NormalizeLabel(cells.Eq(0).Text()),
					htmlutil.SelectionText(cells.Eq(1)),
					layoutSingle,
				)
			}
		})
	})
}

func parseCourtName(doc *goquery.Document, d *CaseDetail) {
	heading := doc.Find("#chHeading").First()
	if heading.Length() == 0 {
		heading = doc.Find("h2").First()
	}
	if text := htmlutil.SelectionText(heading); text != "" {
		d.CourtName = text
	}
}

// ParseDetail turns the viewHistory case details fragment into a
// CaseDetail. It never fails: fields it cannot find are left empty, and a
// fragment it cannot process at all yields a defaulted record with Error
// set.
func ParseDetail(markup string) (detail CaseDetail) {
	defer func() {
		if r := recover(); r != nil {
			detail = failedDetail()
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return failedDetail()
	}

	detail = NewCaseDetail()
	tables := doc.Find("table")
	for _, step := range detailSteps {
		step(doc, tables, &detail)
	}
	return detail
}

type detailStep func(doc *goquery.Document, tables *goquery.Selection, d *CaseDetail)

var detailSteps = []detailStep{
	func(_ *goquery.Document, tables *goquery.Selection, d *CaseDetail) { parseFieldTables(tables, d) },
	func(doc *goquery.Document, _ *goquery.Selection, d *CaseDetail) { parseCourtName(doc, d) },
	func(_ *goquery.Document, tables *goquery.Selection, d *CaseDetail) {
		d.Petitioners = parseParties(tables, "petitioner_advocate_table")
		d.Respondents = parseParties(tables, "respondent_advocate_table")
	},
	func(_ *goquery.Document, tables *goquery.Selection, d *CaseDetail) {
		d.Acts = parseActs(tables)
		d.Processes = parseProcesses(tables)
		d.CaseHistory = parseHistory(tables)
		d.InterimOrders = parseOrders(tables)
	},
	func(doc *goquery.Document, _ *goquery.Selection, d *CaseDetail) { enrich(htmlutil.FlattenText(doc), d) },
}

func failedDetail() CaseDetail {
	d := NewCaseDetail()
	d.Error = "Parsing failed"
	return d
}
