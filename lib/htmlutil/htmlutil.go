package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// GetTextWithBreaks is GetText except <br> and block level elements are
// rendered as newlines, so a cell like "1) Foo<br>Advocate - Bar" keeps its
// line structure.
func GetTextWithBreaks(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, true)
	return buffer.String()
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Br, atom.P, atom.Div, atom.Li, atom.Tr:
		return true
	}
	return false
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, breaks bool) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		if breaks && node.DataAtom == atom.Br {
			buffer.WriteByte('\n')
			return
		}
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, breaks)
		child = child.NextSibling
	}
	if breaks && node.Type == html.ElementNode && isBlock(node.DataAtom) {
		buffer.WriteByte('\n')
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// CleanText replaces non-breaking spaces, collapses runs of whitespace and
// trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SelectionText is CleanText over every node in the selection.
func SelectionText(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

// Lines splits a block of text on newlines, cleaning and dropping blank
// lines.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = CleanText(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FlattenText renders the whole document as a single space separated line.
func FlattenText(doc *goquery.Document) string {
	var parts []string
	doc.Find("body").Each(func(_ int, body *goquery.Selection) {
		for _, n := range body.Nodes {
			collectTextNodes(n, &parts)
		}
	})
	return strings.Join(parts, " ")
}

func collectTextNodes(node *html.Node, out *[]string) {
	if node.Type == html.TextNode {
		text := CleanText(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	}
	if node.Type == html.ElementNode && (node.DataAtom == atom.Script || node.DataAtom == atom.Style) {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextNodes(child, out)
	}
}

// HasClassFold reports whether any class on the selection contains
// `substr`, ignoring case.
func HasClassFold(sel *goquery.Selection, substr string) bool {
	class, ok := sel.Attr("class")
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(class), strings.ToLower(substr))
}
