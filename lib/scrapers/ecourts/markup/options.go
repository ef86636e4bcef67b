package markup

import (
	"bytes"
	"strings"

	"ecourts-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// isPlaceholder reports entries like <option value="0">Select State</option>
// that only prompt the user.
func isPlaceholder(value, text string) bool {
	return value == "" || value == "0" || strings.HasPrefix(strings.ToLower(text), "select")
}

func newOption(raw, text string) Option {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, "@")
	opt := Option{Value: parts[0], Text: text}
	if len(parts) > 1 {
		opt.RawValue = raw
		opt.EstList = parts[1]
	}
	if len(parts) > 2 {
		opt.Flag = parts[2]
	}
	return opt
}

// ParseOptions turns any of the option list shapes the portal returns into
// a list of options, placeholder entries are dropped.
//
// Strings are treated as <option> markup first and as "value|text" lines
// second. Arrays may hold {value,text} or {id,name} objects, objects are
// read as value -> text maps in document order.
func ParseOptions(data gjson.Result) []Option {
	switch {
	case data.Type == gjson.String:
		return ParseOptionMarkup(data.Str)
	case data.IsArray():
		return parseOptionArray(data)
	case data.IsObject():
		return parseOptionObject(data)
	}
	return []Option{}
}

// ParseOptionMarkup parses <option> elements, falling back to
// "value|text" lines when the markup has none.
func ParseOptionMarkup(markup string) []Option {
	options := []Option{}
	if strings.TrimSpace(markup) == "" {
		return options
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		found := doc.Find("option")
		if found.Length() > 0 {
			return optionsFromSelection(found)
		}
	}

	for _, line := range strings.Split(markup, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) < 2 {
			continue
		}
		value := strings.TrimSpace(parts[0])
		text := strings.TrimSpace(parts[1])
		if isPlaceholder(value, text) {
			continue
		}
		options = append(options, newOption(value, text))
	}
	return options
}

func optionsFromSelection(sel *goquery.Selection) []Option {
	options := []Option{}
	sel.Each(func(_ int, o *goquery.Selection) {
		value := strings.TrimSpace(o.AttrOr("value", ""))
		text := htmlutil.SelectionText(o)
		if isPlaceholder(value, text) {
			return
		}
		options = append(options, newOption(value, text))
	})
	return options
}

func parseOptionArray(data gjson.Result) []Option {
	options := []Option{}
	for _, item := range data.Array() {
		if !item.IsObject() {
			continue
		}
		var value, text gjson.Result
		switch {
		case item.Get("value").Exists() && item.Get("text").Exists():
			value, text = item.Get("value"), item.Get("text")
		case item.Get("id").Exists() && item.Get("name").Exists():
			value, text = item.Get("id"), item.Get("name")
		default:
			continue
		}
		if isPlaceholder(value.String(), text.String()) {
			continue
		}
		options = append(options, newOption(value.String(), text.String()))
	}
	return options
}

func parseOptionObject(data gjson.Result) []Option {
	options := []Option{}
	data.ForEach(func(key, value gjson.Result) bool {
		if !isPlaceholder(key.String(), value.String()) {
			options = append(options, newOption(key.String(), value.String()))
		}
		return true
	})
	return options
}

var stateSelectors = []string{
	"select#state_code",
	"select[name=state_code]",
	"select.state_code",
	"select#state",
	"select[name=state]",
}

var stateIndicators = []string{"andhra", "karnataka", "tamil", "kerala", "gujarat", "maharashtra", "delhi", "punjab"}

// ParseStateSelect locates the state dropdown on the landing page. Known
// ids and names are tried first, otherwise any large select whose first
// few labels look like Indian state names is accepted.
func ParseStateSelect(page []byte) []Option {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return []Option{}
	}

	for _, selector := range stateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return optionsFromSelection(sel.Find("option"))
		}
	}

	var found *goquery.Selection
	doc.Find("select").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		opts := sel.Find("option")
		if opts.Length() <= 10 {
			return true
		}
		var sample []string
		opts.Slice(1, min(6, opts.Length())).Each(func(_ int, o *goquery.Selection) {
			sample = append(sample, strings.ToLower(htmlutil.SelectionText(o)))
		})
		joined := strings.Join(sample, " ")
		for _, indicator := range stateIndicators {
			if strings.Contains(joined, indicator) {
				found = sel
				return false
			}
		}
		return true
	})
	if found == nil {
		return []Option{}
	}
	return optionsFromSelection(found.Find("option"))
}
