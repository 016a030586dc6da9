// Package enrich classifies and summarizes articles with Gemini, degrading to
// a local heuristic whenever the service or its output misbehaves.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/intelligencebrief/brief/internal/model"
)

// SentinelFailed marks an article whose enrichment degraded to the heuristic
// fallback. The orchestrator counts these to decide whether the service is
// down for the whole batch.
const SentinelFailed = "Analysis Failed"

// PlaceholderSummary is used when no credential is configured at all. It is
// deliberately not the failure sentinel: a missing key is a deployment choice,
// not a service outage, and must not trip the batch fallback.
const PlaceholderSummary = "AI Summary Unavailable (Missing Key)"

// Failed reports whether enrichment degraded for this article.
func Failed(a model.Article) bool {
	return a.AISummary == SentinelFailed
}

// maxExcerptRunes bounds the summary excerpt embedded in prompts; anything
// longer burns token budget without improving classification.
const maxExcerptRunes = 800

type analysisResponse struct {
	Summary     string  `json:"summary"`
	TrustBadge  string  `json:"trust_badge"`
	Icon        string  `json:"icon"`
	TrustScore  float64 `json:"trust_score"`
	TrustReason string  `json:"trust_reason"`
}

type synthesisResponse struct {
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	TrustBadge  string  `json:"trust_badge"`
	Icon        string  `json:"icon"`
	TrustScore  float64 `json:"trust_score"`
	TrustReason string  `json:"trust_reason"`
}

// Client wraps the Gemini API. A nil *Client is valid and means "no
// credential": Analyze still returns a complete article.
type Client struct {
	gc       *genai.Client
	generate func(ctx context.Context, prompt string) (string, error)
	limiter  *rate.Limiter
	maxCalls int
	calls    int
	rng      *rand.Rand
	now      func() time.Time
}

// NewClient builds a Gemini-backed enrichment client. throttle is the fixed
// inter-call delay; maxCalls caps requests per run (0 = unlimited).
func NewClient(ctx context.Context, apiKey, modelName string, throttle time.Duration, maxCalls int) (*Client, error) {
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	gm := gc.GenerativeModel(modelName)

	c := newClient(throttle, maxCalls)
	c.gc = gc
	c.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
			len(resp.Candidates[0].Content.Parts) == 0 {
			return "", errors.New("empty response from model")
		}
		return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
	}
	return c, nil
}

func newClient(throttle time.Duration, maxCalls int) *Client {
	if throttle <= 0 {
		throttle = 4 * time.Second
	}
	return &Client{
		limiter:  rate.NewLimiter(rate.Every(throttle), 1),
		maxCalls: maxCalls,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// Close releases the underlying API connection.
func (c *Client) Close() {
	if c != nil && c.gc != nil {
		c.gc.Close()
	}
}

// Analyze enriches one article in place and returns it. It is total: every
// internal failure is converted into a degraded-but-valid article, and the
// returned trust score is always within [0,100] with a badge from the closed
// set.
func (c *Client) Analyze(ctx context.Context, article model.Article) model.Article {
	if c == nil || c.generate == nil {
		article.TrustBadge = model.BadgeUnverified
		article.TrustScore = 50
		article.TrustReason = "No enrichment credential configured"
		article.Icon = "file-text"
		article.AISummary = PlaceholderSummary
		return article
	}

	if c.maxCalls > 0 && c.calls >= c.maxCalls {
		slog.Debug("enrichment request budget exhausted", "max_calls", c.maxCalls)
		return c.heuristic(article, "")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fallback(article)
	}
	c.calls++

	raw, err := c.generate(ctx, analysisPrompt(article))
	if err != nil {
		slog.Warn("enrichment call failed", "title", article.Title, "error", err)
		return c.fallback(article)
	}

	var parsed analysisResponse
	if err := ExtractJSONObject(raw, &parsed); err != nil {
		slog.Warn("enrichment response unparseable", "title", article.Title, "error", err)
		return c.fallback(article)
	}

	article.AISummary = strings.TrimSpace(parsed.Summary)
	if article.AISummary == "" {
		article.AISummary = article.Summary
	}
	article.TrustBadge = normalizeBadge(parsed.TrustBadge)
	article.TrustScore = clampScore(int(parsed.TrustScore))
	article.TrustReason = parsed.TrustReason
	if article.TrustReason == "" {
		article.TrustReason = "Standard news report."
	}
	article.Icon = parsed.Icon
	if article.Icon == "" {
		article.Icon = "file-text"
	}
	return article
}

// Synthesize merges two or more related articles into one master brief via
// the model. It returns nil on any failure: the caller falls back to using
// the originals unmerged.
func (c *Client) Synthesize(ctx context.Context, articles []model.Article) *model.Article {
	if c == nil || c.generate == nil || len(articles) < 2 {
		return nil
	}
	if c.maxCalls > 0 && c.calls >= c.maxCalls {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}
	c.calls++

	raw, err := c.generate(ctx, synthesisPrompt(articles))
	if err != nil {
		slog.Warn("synthesis call failed", "error", err)
		return nil
	}

	var parsed synthesisResponse
	if err := ExtractJSONObject(raw, &parsed); err != nil {
		slog.Warn("synthesis response unparseable", "error", err)
		return nil
	}
	if parsed.Title == "" || parsed.Summary == "" {
		return nil
	}

	merged := model.Article{
		Title:       parsed.Title,
		Link:        articles[0].Link,
		Published:   c.now().UTC().Format(model.TimeFormat),
		Summary:     parsed.Summary,
		AISummary:   parsed.Summary,
		Source:      "Synthesis",
		Category:    articles[0].Category,
		Tier:        articles[0].Tier,
		TrustBadge:  normalizeBadge(parsed.TrustBadge),
		TrustScore:  clampScore(int(parsed.TrustScore)),
		TrustReason: parsed.TrustReason,
		Icon:        parsed.Icon,
	}
	if merged.TrustBadge == model.BadgeNews && parsed.TrustBadge == "" {
		merged.TrustBadge = model.BadgeStrategic
	}
	if merged.Icon == "" {
		merged.Icon = "layers"
	}
	return &merged
}

// fallback marks the article with the failure sentinel on top of the
// heuristic classification.
func (c *Client) fallback(article model.Article) model.Article {
	return c.heuristic(article, SentinelFailed)
}

func (c *Client) heuristic(article model.Article, aiSummary string) model.Article {
	badge, score, reason := ClassifyBySource(article.Source)

	// Small jitter so repeated degraded runs are not visually identical.
	score += c.rng.Intn(7) - 3
	if score > 98 {
		score = 98
	}
	if score < 60 {
		score = 60
	}

	article.TrustBadge = badge
	article.TrustScore = score
	article.TrustReason = reason
	article.Icon = "file-text"
	if aiSummary != "" {
		article.AISummary = aiSummary
	} else if article.AISummary == "" {
		article.AISummary = article.Summary
	}
	return article
}

func analysisPrompt(a model.Article) string {
	return fmt.Sprintf(`You are an elite intelligence analyst. Analyze this news item:
Title: %s
Source: %s
Content Snippet: %s

Output ONLY valid JSON with this structure:
{
    "summary": "A detailed, comprehensive analysis (approx 200-300 words). Use HTML tags (<br>, <b>) for formatting. Structure it as: <b>The Core Story</b>, <b>Key Details</b>, <b>Why It Matters</b>.",
    "trust_badge": "One of: Official, Technical, Strategic, News",
    "icon": "A single Lucide icon name (e.g. 'cpu', 'shield-alert', 'globe', 'zap') that fits best.",
    "trust_score": 85,
    "trust_reason": "Brief explanation of the score."
}`, a.Title, a.Source, truncateRunes(a.Summary, maxExcerptRunes))
}

func synthesisPrompt(articles []model.Article) string {
	titles := make([]string, 0, len(articles))
	snippets := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
		snippets = append(snippets, truncateRunes(a.Summary, 200))
	}

	return fmt.Sprintf(`SYNTHESIZE COMMAND:
Merge these %d conflicting/related reports into ONE Master Intelligence Brief.

Sources: %s
Context: %s

Output JSON:
{
    "title": "One definitive, non-clickbait title",
    "summary": "Comprehensive 4-bullet summary merging ALL facts.",
    "trust_score": 90,
    "trust_reason": "Synthesis of the listed sources",
    "trust_badge": "Strategic",
    "icon": "layers"
}`, len(articles), strings.Join(titles, " | "), strings.Join(snippets, " "))
}

// normalizeBadge maps model output onto the closed badge set. The model
// sometimes echoes the bracketed form from the prompt ("[Official]").
func normalizeBadge(raw string) string {
	b := strings.TrimSpace(raw)
	b = strings.TrimPrefix(b, "[")
	b = strings.TrimSuffix(b, "]")
	if b == "" {
		return model.BadgeNews
	}
	b = strings.ToUpper(b[:1]) + strings.ToLower(b[1:])
	if model.ValidBadge(b) {
		return b
	}
	return model.BadgeNews
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
