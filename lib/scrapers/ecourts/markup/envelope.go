package markup

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Ordered accessor lists for the portal's JSON envelopes. The portal is not
// consistent about field names across endpoints and deployments, the first
// key that yields a non-empty value wins.
var (
	TokenKeys         = []string{"app_token", "token", "csrf_token"}
	StatusKeys        = []string{"status", "Status", "success"}
	ComplexListKeys   = []string{"complex_list", "complexes", "court_complexes", "data", "result"}
	CaseTypeListKeys  = []string{"casetype_list", "case_type_list", "case_types", "types", "data", "result"}
	ListingKeys       = []string{"case_data", "case_html"}
	ListingMarkupKeys = []string{"data", "result", "html"}
	DistrictListKeys  = []string{"dist_list"}
	StateListKeys     = []string{"state_list"}
	DetailKeys        = []string{"data_list"}
	CaptchaMarkupKeys = []string{"div_captcha"}
	OrderPathKeys     = []string{"order"}
	ErrorMessageKeys  = []string{"errormsg", "error_msg", "errorMsg"}
)

var trailingObject = regexp.MustCompile(`(?s)\{.*\}$`)

// ParseEnvelope parses an upstream response body as JSON. Bodies that carry
// junk before the payload (warnings, stray markup) are recovered by
// matching the trailing object, anything else yields an empty object.
func ParseEnvelope(body []byte) gjson.Result {
	trimmed := strings.TrimSpace(string(body))
	if gjson.Valid(trimmed) {
		return gjson.Parse(trimmed)
	}
	if m := trailingObject.FindString(trimmed); m != "" {
		if gjson.Valid(m) {
			return gjson.Parse(m)
		}
		// the greedy match may start at an earlier, unrelated brace
		for i := 1; i < len(m); i++ {
			if m[i] == '{' && gjson.Valid(m[i:]) {
				return gjson.Parse(m[i:])
			}
		}
	}
	return gjson.Parse("{}")
}

// IsEmpty reports whether a value should be treated as absent: missing,
// null, false, zero, or an empty string/array/object.
func IsEmpty(r gjson.Result) bool {
	if !r.Exists() {
		return true
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return r.Str == ""
	case gjson.Number:
		return r.Num == 0
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) == 0
		}
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return empty
	}
	return false
}

// First returns the value of the first key in `keys` that is non-empty.
func First(env gjson.Result, keys []string) (gjson.Result, bool) {
	for _, k := range keys {
		v := env.Get(k)
		if !IsEmpty(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// FirstString is First but returns the value as a string.
func FirstString(env gjson.Result, keys []string) string {
	v, ok := First(env, keys)
	if !ok {
		return ""
	}
	return v.String()
}

// Token returns a rotated anti-CSRF token carried by the envelope, if any.
func Token(env gjson.Result) string {
	return FirstString(env, TokenKeys)
}

// StatusOK accepts the several truthy shapes the portal uses for success:
// 1, "1", true and "success".
func StatusOK(env gjson.Result) bool {
	v, ok := First(env, StatusKeys)
	if !ok {
		return false
	}
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num == 1
	case gjson.String:
		return v.Str == "1" || strings.EqualFold(v.Str, "success")
	}
	return false
}

// ErrorMessage returns the lowercased upstream error message, if any.
func ErrorMessage(env gjson.Result) string {
	return strings.ToLower(FirstString(env, ErrorMessageKeys))
}

func IsSessionTimeout(env gjson.Result) bool {
	return strings.Contains(ErrorMessage(env), "session timeout")
}

func IsInvalidRequest(env gjson.Result) bool {
	return strings.Contains(ErrorMessage(env), "invalid request")
}

// ListingMarkup picks the case listing fragment out of a submission
// envelope. The dedicated keys are preferred, the generic ones are only
// accepted when they actually contain a table.
func ListingMarkup(env gjson.Result) string {
	if s := FirstString(env, ListingKeys); s != "" {
		return s
	}
	for _, k := range ListingMarkupKeys {
		v := env.Get(k)
		if v.Type == gjson.String && strings.Contains(v.Str, "<table") {
			return v.Str
		}
	}
	return ""
}
