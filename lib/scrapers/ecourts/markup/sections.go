package markup

import (
	"regexp"
	"strings"

	"ecourts-backend/lib/htmlutil"
	"ecourts-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	advocateMarker = regexp.MustCompile(`(?i)advocate[-:]?`)
	ordinalPrefix  = regexp.MustCompile(`^\d+\)\s*`)
	displayPdfCall = regexp.MustCompile(`displayPdf\('([^']+)'`)
)

// ParseParty splits a party block like "1) Ram Kumar Advocate- S. Rao" into
// the party name and their advocate.
func ParseParty(block string) Party {
	block = htmlutil.CleanText(block)
	segments := advocateMarker.Split(block, -1)
	name := ordinalPrefix.ReplaceAllString(segments[0], "")
	party := Party{Name: strings.Trim(name, " -:")}
	if len(segments) >= 2 {
		party.Advocate = strings.Trim(segments[1], " -:")
	}
	return party
}

func parseParties(tables *goquery.Selection, class string) []Party {
	parties := []Party{}
	table := tables.FilterFunction(func(_ int, t *goquery.Selection) bool {
		return htmlutil.HasClassFold(t, class)
	}).First()

	table.Find("td").Each(func(_ int, td *goquery.Selection) {
		lines := htmlutil.Lines(htmlutil.GetTextWithBreaks(td.Get(0)))
		if len(lines) == 0 {
			return
		}
		parties = append(parties, ParseParty(strings.Join(lines, " ")))
	})
	return parties
}

// dataRows returns every row of the table except the header row.
func dataRows(table *goquery.Selection) *goquery.Selection {
	rows := table.Find("tr")
	if rows.Length() <= 1 {
		return rows.Slice(0, 0)
	}
	return rows.Slice(1, rows.Length())
}

func parseActs(tables *goquery.Selection) []Act {
	acts := []Act{}
	tables.Each(func(_ int, table *goquery.Selection) {
		if !anyHeaderContains(headerLabels(table), "under act") {
			return
		}
		dataRows(table).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			act := Act{
				ActName:  htmlutil.SelectionText(cells.Eq(0)),
				Sections: htmlutil.SelectionText(cells.Eq(1)),
			}
			if act.ActName != "" && act.Sections != "" {
				acts = append(acts, act)
			}
		})
	})
	return acts
}

func parseProcesses(tables *goquery.Selection) []Process {
	processes := []Process{}
	table := tables.FilterFunction(func(_ int, t *goquery.Selection) bool {
		id, _ := t.Attr("id")
		mentionsProcess := id == "process" || strings.Contains(strings.ToLower(t.Text()), "process")
		return mentionsProcess && anyHeaderContains(headerLabels(t), "process id")
	}).First()
	if table.Length() == 0 {
		return processes
	}

	// some courts put every process in one row, so cells are read as a
	// flat sequence of (id, title, date) triples
	var cells []*goquery.Selection
	dataRows(table).Each(func(_ int, row *goquery.Selection) {
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, td)
		})
	})
	if len(cells) == 0 {
		table.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, td)
		})
	}

	for i := 0; i < len(cells); i += 3 {
		chunk := cells[i:min(i+3, len(cells))]
		if len(chunk) < 2 {
			continue
		}
		p := Process{
			ProcessId:    htmlutil.SelectionText(chunk[0]),
			ProcessTitle: htmlutil.SelectionText(chunk[1]),
		}
		if len(chunk) > 2 {
			p.ProcessDate = htmlutil.SelectionText(chunk[2])
		}
		if p.ProcessId != "" || p.ProcessTitle != "" {
			processes = append(processes, p)
		}
	}
	return processes
}

func parseHistory(tables *goquery.Selection) []Hearing {
	history := []Hearing{}
	table := tables.FilterFunction(func(_ int, t *goquery.Selection) bool {
		if htmlutil.HasClassFold(t, "history_table") {
			return true
		}
		return anyHeaderContains(headerLabels(t), "business on date", "hearing date")
	}).First()

	dataRows(table).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		h := Hearing{
			Judge:        htmlutil.SelectionText(cells.Eq(0)),
			BusinessDate: htmlutil.SelectionText(cells.Eq(1)),
			HearingDate:  htmlutil.SelectionText(cells.Eq(2)),
		}
		if cells.Length() > 3 {
			h.PurposeOfHearing = htmlutil.SelectionText(cells.Eq(3))
		}
		history = append(history, h)
	})
	return history
}

func isOrdersTable(t *goquery.Selection) bool {
	headers := headerLabels(t)
	if len(headers) > 0 {
		return anyHeaderContains(headers, "order number")
	}
	var firstRow []string
	t.Find("tr").First().Find("td").Each(func(_ int, td *goquery.Selection) {
		firstRow = append(firstRow, textutil.NormalizeLabel(td.Text()))
	})
	return strings.Contains(strings.Join(firstRow, " "), "order number")
}

func parseOrders(tables *goquery.Selection) []InterimOrder {
	orders := []InterimOrder{}
	table := tables.FilterFunction(func(_ int, t *goquery.Selection) bool {
		return isOrdersTable(t)
	}).First()

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return orders
	}
	if strings.Contains(textutil.NormalizeLabel(rows.First().Text()), "order number") {
		rows = rows.Slice(1, rows.Length())
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		detailsCell := cells.Eq(1)
		if cells.Length() > 2 {
			detailsCell = cells.Eq(2)
		}

		var details, pdfArg string
		anchor := detailsCell.Find("a[onclick]").First()
		if anchor.Length() > 0 {
			details = htmlutil.SelectionText(anchor)
			if groups := displayPdfCall.FindStringSubmatch(anchor.AttrOr("onclick", "")); len(groups) >= 2 {
				pdfArg = groups[1]
			}
		}
		if details == "" {
			details = htmlutil.SelectionText(detailsCell)
		}

		order := InterimOrder{
			OrderNumber:   strings.Trim(htmlutil.SelectionText(cells.Eq(0)), " ."),
			OrderDate:     htmlutil.SelectionText(cells.Eq(1)),
			OrderDetails:  details,
			PdfUrl:        pdfArg,
			DisplayPdfArg: pdfArg,
		}
		if order.OrderNumber == "" && order.OrderDate == "" && order.OrderDetails == "" {
			return
		}
		orders = append(orders, order)
	})
	return orders
}

var (
	cnrPattern          = regexp.MustCompile(`\b([A-Z]{4}\d{12}(?:\d{4})?)\b`)
	filingPattern       = regexp.MustCompile(`(?i)filing number\s*:?\s*([0-9/]+)`)
	registrationPattern = regexp.MustCompile(`(?i)registration number\s*:?\s*([0-9/]+)`)
)

// enrich is the last resort pass: fields the table scan could not fill are
// searched for in the flattened page text.
func enrich(text string, d *CaseDetail) {
	fill := func(target *string, pattern *regexp.Regexp) {
		if *target != "" {
			return
		}
		if groups := pattern.FindStringSubmatch(text); len(groups) >= 2 {
			*target = groups[1]
		}
	}
	fill(&d.CnrNumber, cnrPattern)
	fill(&d.FilingNumber, filingPattern)
	fill(&d.RegistrationNumber, registrationPattern)
}
