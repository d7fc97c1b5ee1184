package utils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const SnippetLength = 200

var whitespaceRegex = regexp.MustCompile(`\s+`)

// HTMLToText strips markup to produce a plain text fallback body
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, head").Remove()
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(doc.Text()), " ")
}

// MakeSnippet collapses whitespace and cuts the text to preview length
func MakeSnippet(text string) string {
	text = whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
	return Truncate(text, SnippetLength)
}
