package markup

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`name=["']app_token["']\s+value=["']([^"']+)["']`),
	regexp.MustCompile(`value=["']([^"']+)["']\s+name=["']app_token["']`),
	regexp.MustCompile(`app_token\s*[:=]\s*["']([0-9a-fA-F]{16,})["']`),
}

// ExtractToken finds the anti-CSRF token in a portal page. The parsed
// document is searched for the token input first, pages that do not parse
// cleanly fall back to pattern matching the raw markup.
func ExtractToken(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err == nil {
		token := strings.TrimSpace(doc.Find("input[name=app_token]").AttrOr("value", ""))
		if token != "" {
			return token
		}
	}
	for _, pattern := range tokenPatterns {
		groups := pattern.FindSubmatch(page)
		if len(groups) >= 2 {
			return string(groups[1])
		}
	}
	return ""
}
