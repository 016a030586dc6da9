// Package watchlist matches processed articles against user keyword rules.
package watchlist

import (
	"context"
	"log/slog"
	"strings"

	"github.com/intelligencebrief/brief/internal/model"
	"github.com/intelligencebrief/brief/internal/notify"
)

// Matches reports whether the keyword appears in the article's title or
// enriched summary, case-insensitively.
func Matches(keyword string, a model.Article) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	haystack := strings.ToLower(a.Title + " " + a.AISummary)
	return strings.Contains(haystack, kw)
}

// Scan fires at most one targeted alert per rule: the first matching article
// wins and the rest are skipped, bounding notification volume per run.
// Returns the number of alerts dispatched.
func Scan(ctx context.Context, rules []model.WatchlistRule, articles []model.Article, notifier notify.Notifier) int {
	sent := 0
	for _, rule := range rules {
		for _, a := range articles {
			if !Matches(rule.Keyword, a) {
				continue
			}
			err := notifier.SendTo(ctx, rule.UserToken, "Watchlist: "+rule.Keyword, a.Title)
			if err != nil {
				slog.Warn("watchlist alert failed", "keyword", rule.Keyword, "error", err)
			} else {
				sent++
			}
			break
		}
	}
	return sent
}
