package markup

import (
	"regexp"
	"strings"

	"ecourts-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	viewHistoryCall = regexp.MustCompile(`viewHistory\(([^)]+)\)`)
	versusSplit     = regexp.MustCompile(`(?i)\bvs\b\.?`)
)

// ParseChainKey pulls (case_no, cino, court_code) out of an attribute like
// `viewHistory(200100001332025,'KAHC010012342025',1,'','CScaseNumber',...)`.
func ParseChainKey(onclick string) (ChainKey, bool) {
	groups := viewHistoryCall.FindStringSubmatch(onclick)
	if len(groups) < 2 {
		return ChainKey{}, false
	}
	args := strings.Split(groups[1], ",")
	if len(args) < 3 {
		return ChainKey{}, false
	}
	for i, arg := range args {
		args[i] = strings.Trim(strings.TrimSpace(arg), `'"`)
	}
	key := ChainKey{CaseNo: args[0], Cino: args[1], CourtCode: args[2]}
	return key, key.Complete()
}

// ParseListing reads the search result table of a case number search.
// Only the first result row (one with at least 4 cells and a clickable
// anchor) is considered, since a case number search yields a single case.
func ParseListing(markup string) Listing {
	listing := Listing{}
	if strings.TrimSpace(markup) == "" {
		return listing
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return listing
	}

	if anchor := doc.Find("a.noToken").First(); anchor.Length() > 0 {
		court, _, _ := strings.Cut(htmlutil.SelectionText(anchor), ":")
		listing.CourtName = strings.TrimSpace(court)
	}

	table := doc.Find("table").First()
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() < 4 || tr.Find("a[onclick]").Length() == 0 {
			return true
		}

		parts := strings.Split(htmlutil.SelectionText(tds.Eq(1)), "/")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 3 {
			listing.CaseType = parts[0]
			listing.CaseNumber = parts[1] + "/" + parts[2]
		}

		parties := htmlutil.Lines(htmlutil.GetTextWithBreaks(tds.Get(2)))
		joined := strings.Join(parties, "\n")
		segments := versusSplit.Split(joined, -1)
		if len(segments) >= 2 {
			listing.Petitioner = htmlutil.CleanText(segments[0])
			listing.Respondent = htmlutil.CleanText(segments[1])
		}

		if onclick, ok := tds.Eq(3).Find("a[onclick]").First().Attr("onclick"); ok {
			listing.Chain, _ = ParseChainKey(onclick)
		}
		return false
	})

	return listing
}

// IsNotFound reports whether a listing fragment is the portal's "record not
// found" placeholder rather than a result table.
func IsNotFound(markup string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.Contains(strings.ToLower(markup), "record not found")
	}
	if doc.Find("#nodata").Length() > 0 {
		return true
	}
	return strings.Contains(strings.ToLower(htmlutil.FlattenText(doc)), "record not found")
}
