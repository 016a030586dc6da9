// Package model holds the data types shared across the pipeline.
package model

import "time"

// TimeFormat is the canonical published-timestamp layout stored for every
// article: UTC, second precision, trailing Z.
const TimeFormat = "2006-01-02T15:04:05Z"

// Trust badges assigned by the enrichment layer (or its heuristic fallback).
const (
	BadgeOfficial   = "Official"
	BadgeTechnical  = "Technical"
	BadgeStrategic  = "Strategic"
	BadgeNews       = "News"
	BadgeTrusted    = "Trusted"
	BadgeUnverified = "Unverified"
)

// ValidBadge reports whether b is one of the closed set of trust badges.
func ValidBadge(b string) bool {
	switch b {
	case BadgeOfficial, BadgeTechnical, BadgeStrategic, BadgeNews, BadgeTrusted, BadgeUnverified:
		return true
	}
	return false
}

// Source tiers.
const (
	TierCurated = 1 // curated news API, pre-trusted
	TierRSS     = 2 // broad RSS aggregation
)

// Article is one news item flowing through the pipeline. Link is the unique
// identity key: storage upserts on it and both dedup passes pivot on it.
type Article struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Published   string `json:"published"` // TimeFormat, always UTC
	Summary     string `json:"summary"`
	AISummary   string `json:"ai_summary,omitempty"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	Tier        int    `json:"tier"`
	TrustBadge  string `json:"trust_badge"`
	TrustScore  int    `json:"trust_score"`
	TrustReason string `json:"trust_reason"`
	Icon        string `json:"icon"`
}

// PublishedTime parses the canonical timestamp. Zero time on malformed input.
func (a Article) PublishedTime() time.Time {
	t, err := time.Parse(TimeFormat, a.Published)
	if err != nil {
		return time.Time{}
	}
	return t
}

// WatchlistRule is a user keyword subscription. Rules are owned by the app;
// the pipeline only reads them.
type WatchlistRule struct {
	Keyword   string `json:"keyword"`
	UserToken string `json:"user_fcm_token"`
}

// Digest is one "Daily Pulse" snapshot: a small diverse selection of stories
// upserted under a per-minute timestamp key.
type Digest struct {
	DateStr string    `json:"date_str"`
	Title   string    `json:"title"`
	Summary string    `json:"summary"`
	Stories []Article `json:"stories"`
}

// DedupByLink removes later occurrences of an already-seen link, keeping
// first-seen order. Used after the tier-1 fallback merge, which may re-surface
// links already present in the fresh batch.
func DedupByLink(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if _, ok := seen[a.Link]; ok {
			continue
		}
		seen[a.Link] = struct{}{}
		out = append(out, a)
	}
	return out
}
