package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML flattens an RSS summary to plain text. Aggregator feeds routinely
// embed markup, image tags and tracking pixels in descriptions; those must not
// leak into prompts or stored summaries.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<>") {
		return collapseWhitespace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(s)
	}
	doc.Find("script,style").Remove()
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
