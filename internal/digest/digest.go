// Package digest selects the periodic "Daily Pulse" story reel.
package digest

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/intelligencebrief/brief/internal/model"
)

// Strategy names accepted by the builder.
const (
	StrategyScore     = "score"     // top 3 by trust score, nothing else
	StrategyDiversity = "diversity" // one best-of-latest story per category
)

// keyLayout gives each digest a per-minute key, so several pulses per day
// upsert under distinct keys instead of overwriting one daily row.
const keyLayout = "2006-01-02 15:04"

// candidatesPerCategory is how many recent stories compete per category slot.
const candidatesPerCategory = 3

// minStories is the padding floor: fewer selected stories than this pulls
// top-scored articles from the current run.
const minStories = 3

// Store is the slice of persistence the builder reads from.
type Store interface {
	LatestByCategory(ctx context.Context, category string, n int) ([]model.Article, error)
	TopByTrustScore(ctx context.Context, limit int) ([]model.Article, error)
}

// Synthesizer merges related stories into one brief. A nil result means
// "use the originals unmerged".
type Synthesizer interface {
	Synthesize(ctx context.Context, articles []model.Article) *model.Article
}

// Builder assembles digest snapshots.
type Builder struct {
	store      Store
	synth      Synthesizer // optional cluster synthesis
	strategy   string
	categories []string
	maxStories int
	now        func() time.Time
}

func NewBuilder(store Store, synth Synthesizer, strategy string, categories []string, maxStories int) *Builder {
	if strategy != StrategyScore {
		strategy = StrategyDiversity
	}
	if maxStories <= 0 {
		maxStories = 15
	}
	return &Builder{
		store:      store,
		synth:      synth,
		strategy:   strategy,
		categories: categories,
		maxStories: maxStories,
		now:        time.Now,
	}
}

// Build selects stories for one digest snapshot from the freshly processed
// batch plus whatever storage already holds.
func (b *Builder) Build(ctx context.Context, processed []model.Article) model.Digest {
	var stories []model.Article
	switch b.strategy {
	case StrategyScore:
		stories = topScored(processed, minStories)
	default:
		stories = b.diversityFirst(ctx, processed)
	}

	stories = model.DedupByLink(stories)
	if len(stories) > b.maxStories {
		stories = stories[:b.maxStories]
	}

	now := b.now()
	return model.Digest{
		DateStr: now.Format(keyLayout),
		Title:   "Daily Intelligence Reel • " + now.Format("Jan 02"),
		Summary: "Your daily high-signal update.",
		Stories: stories,
	}
}

// diversityFirst walks the category priority list, takes the few most recent
// stories per category and keeps the best-trusted of each ("best of latest").
// Categories short on stored stories are padded from the current run.
func (b *Builder) diversityFirst(ctx context.Context, processed []model.Article) []model.Article {
	var selected []model.Article

	for _, category := range b.categories {
		latest, err := b.store.LatestByCategory(ctx, category, candidatesPerCategory)
		if err != nil {
			slog.Warn("digest category query failed", "category", category, "error", err)
			continue
		}
		if len(latest) == 0 {
			continue
		}

		if b.synth != nil && len(latest) >= 2 {
			if merged := b.synth.Synthesize(ctx, latest); merged != nil {
				selected = append(selected, *merged)
				continue
			}
		}
		selected = append(selected, bestScored(latest))
	}

	if len(selected) < minStories {
		for _, candidate := range topScored(processed, minStories) {
			if len(selected) >= minStories {
				break
			}
			if containsLink(selected, candidate.Link) {
				continue
			}
			selected = append(selected, candidate)
		}
	}

	return selected
}

func bestScored(articles []model.Article) model.Article {
	best := articles[0]
	for _, a := range articles[1:] {
		if a.TrustScore > best.TrustScore {
			best = a
		}
	}
	return best
}

func topScored(articles []model.Article, n int) []model.Article {
	sorted := make([]model.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrustScore > sorted[j].TrustScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func containsLink(articles []model.Article, link string) bool {
	for _, a := range articles {
		if a.Link == link {
			return true
		}
	}
	return false
}
