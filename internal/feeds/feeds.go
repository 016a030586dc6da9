// Package feeds converts configured RSS descriptors into normalized articles.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/intelligencebrief/brief/internal/model"
)

// Descriptor is one configured RSS source.
type Descriptor struct {
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Source   string `yaml:"source"`
}

// DescriptorsConfig is the YAML config structure:
//
// feeds:
//   - url: https://...
//     category: Tech & AI
//     source: Bing News
type DescriptorsConfig struct {
	Feeds []Descriptor `yaml:"feeds"`
}

// LoadDescriptors reads the RSS source list from a YAML file.
func LoadDescriptors(path string) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg DescriptorsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}
	return cfg.Feeds, nil
}

// Fetcher pulls and normalizes RSS feeds.
type Fetcher struct {
	parser         *gofeed.Parser
	entriesPerFeed int
	now            func() time.Time
}

// Some aggregators reject default Go user agents, so fetch with a browser one.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func NewFetcher(client *http.Client, entriesPerFeed int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = userAgent

	if entriesPerFeed <= 0 {
		entriesPerFeed = 7
	}
	return &Fetcher{parser: p, entriesPerFeed: entriesPerFeed, now: time.Now}
}

// Fetch downloads one feed and maps its entries to article drafts. Any
// network or parse failure is logged and yields an empty slice: one broken
// feed must not abort the others.
func (f *Fetcher) Fetch(ctx context.Context, d Descriptor) []model.Article {
	feed, err := f.parser.ParseURLWithContext(d.URL, ctx)
	if err != nil {
		slog.Error("feed fetch failed", "url", d.URL, "source", d.Source, "error", err)
		return nil
	}

	items := feed.Items
	if len(items) > f.entriesPerFeed {
		items = items[:f.entriesPerFeed]
	}

	articles := make([]model.Article, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		articles = append(articles, model.Article{
			Title:      item.Title,
			Link:       item.Link,
			Published:  f.normalizeDate(item),
			Summary:    StripHTML(pickSummary(item)),
			Source:     d.Source,
			Category:   d.Category,
			Tier:       model.TierRSS,
			TrustBadge: model.BadgeNews,
		})
	}

	slog.Info("feed fetched", "source", d.Source, "url", d.URL, "entries", len(articles))
	return articles
}

// FetchAll pulls every descriptor in order, concatenating results.
func (f *Fetcher) FetchAll(ctx context.Context, descriptors []Descriptor) []model.Article {
	var all []model.Article
	for _, d := range descriptors {
		all = append(all, f.Fetch(ctx, d)...)
	}
	return all
}

// Sample picks n descriptors uniformly at random without replacement, to
// bound fan-out per run. n >= len returns a shuffled copy of everything.
func Sample(descriptors []Descriptor, n int) []Descriptor {
	if n <= 0 {
		return nil
	}
	perm := rand.Perm(len(descriptors))
	if n > len(descriptors) {
		n = len(descriptors)
	}
	out := make([]Descriptor, 0, n)
	for _, i := range perm[:n] {
		out = append(out, descriptors[i])
	}
	return out
}

// normalizeDate resolves the published timestamp of an entry: published wins
// over updated, a zone-less date is assumed UTC, and anything unparseable
// falls back to the current time instead of dropping the entry.
func (f *Fetcher) normalizeDate(item *gofeed.Item) string {
	var ts *time.Time
	if item.PublishedParsed != nil {
		ts = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		ts = item.UpdatedParsed
	}

	if ts == nil {
		raw := item.Published
		if raw == "" {
			raw = item.Updated
		}
		if raw != "" {
			if parsed, err := dateparse.ParseIn(raw, time.UTC); err == nil {
				ts = &parsed
			}
		}
	}

	if ts == nil {
		now := f.now()
		ts = &now
	}
	return ts.UTC().Format(model.TimeFormat)
}

func pickSummary(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}
