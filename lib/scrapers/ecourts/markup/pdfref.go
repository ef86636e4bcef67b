package markup

import (
	"net/url"
	"regexp"
	"strings"
)

var documentPath = regexp.MustCompile(`(?i)^/?(reports|orders)/.+\.pdf$`)

// IsDocumentPath reports whether `p` is an already resolved relative path
// to an order document, like "/orders/2025/foo.pdf" or "reports/abc.pdf".
func IsDocumentPath(p string) bool {
	return documentPath.MatchString(strings.TrimSpace(p))
}

// Param is a single key=value pair of an order reference, values are
// url-decoded.
type Param struct {
	Key   string
	Value string
}

// OrderReference is the argument captured from an interim order's
// displayPdf('...') call, for example:
//
//	home/display_pdf&normal_v=1&case_val=Act/0000133/2025&filename=/orders/2025/2001.pdf&court_code=1
type OrderReference struct {
	Raw string
	// DocumentPath is set when the reference is itself a relative document
	// path, the other fields are then empty.
	DocumentPath string
	// ActionPath is everything before the first "&" with surrounding
	// slashes removed (home/display_pdf).
	ActionPath string
	// Query is the raw parameter block after the first "&".
	Query  string
	Params []Param
	// Filename is the decoded filename parameter when it resolves to a
	// document path.
	Filename string
}

// ParseOrderReference splits an order reference into its action path and
// parameters. Parameters with an empty key or value are dropped.
func ParseOrderReference(reference string) OrderReference {
	reference = strings.TrimSpace(reference)
	ref := OrderReference{Raw: reference}
	if reference == "" {
		return ref
	}
	if IsDocumentPath(reference) {
		ref.DocumentPath = strings.TrimLeft(reference, "/")
		return ref
	}

	action, query, _ := strings.Cut(reference, "&")
	ref.ActionPath = strings.Trim(action, "/")
	ref.Query = query

	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		ref.Params = append(ref.Params, Param{Key: key, Value: value})
		if key == "filename" && ref.Filename == "" && IsDocumentPath(value) {
			ref.Filename = strings.TrimLeft(value, "/")
		}
	}
	return ref
}

// Get returns the first value for `key`.
func (r OrderReference) Get(key string) string {
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// ActionURL is the portal url the reference's action is invoked on,
// relative to the portal base.
func (r OrderReference) ActionURL() string {
	u := "ecourtindia_v6/?p=" + r.ActionPath
	if r.Query != "" {
		u += "&" + r.Query
	}
	return u
}

// DocumentName is the last segment of a document path.
func DocumentName(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
