package enrich

import (
	"strings"

	"github.com/intelligencebrief/brief/internal/model"
)

// Source-name markers for the heuristic trust classifier. Matching is
// case-insensitive substring, same as the trust tiers users see in the app.
var (
	officialMarkers = []string{
		"google", "microsoft", "apple", "meta", "nvidia", "official", "blog",
	}
	reputableMarkers = []string{
		"techcrunch", "verge", "wired", "reuters", "bbc", "venturebeat",
		"bloomberg", "ars technica", "cnbc",
	}
)

// ClassifyBySource assigns a trust tier from the source name alone. This is
// the deterministic fallback when the enrichment service is unavailable; the
// caller layers score jitter on top.
func ClassifyBySource(source string) (badge string, score int, reason string) {
	s := strings.ToLower(source)

	for _, marker := range officialMarkers {
		if strings.Contains(s, marker) {
			return model.BadgeOfficial, 95, "Official Source (Verified)"
		}
	}
	for _, marker := range reputableMarkers {
		if strings.Contains(s, marker) {
			return model.BadgeTrusted, 90, "Reputable Publisher"
		}
	}
	return model.BadgeNews, 75, "Standard Reporting"
}
