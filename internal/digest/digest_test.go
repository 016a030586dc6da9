package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelligencebrief/brief/internal/model"
)

type fakeStore struct {
	byCategory map[string][]model.Article
	err        error
}

func (f *fakeStore) LatestByCategory(_ context.Context, category string, n int) ([]model.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	latest := f.byCategory[category]
	if len(latest) > n {
		latest = latest[:n]
	}
	return latest, nil
}

func (f *fakeStore) TopByTrustScore(context.Context, int) ([]model.Article, error) {
	return nil, nil
}

type fakeSynth struct {
	merged *model.Article
	called int
}

func (f *fakeSynth) Synthesize(context.Context, []model.Article) *model.Article {
	f.called++
	return f.merged
}

func article(link, category string, score int) model.Article {
	return model.Article{Title: "story " + link, Link: link, Category: category, TrustScore: score}
}

func TestBuild_DiversityPicksBestOfLatestPerCategory(t *testing.T) {
	store := &fakeStore{byCategory: map[string][]model.Article{
		"Tech & AI":     {article("t1", "Tech & AI", 70), article("t2", "Tech & AI", 95)},
		"Global News":   {article("g1", "Global News", 80)},
		"Startups & VC": nil,
	}}

	b := NewBuilder(store, nil, StrategyDiversity, []string{"Tech & AI", "Startups & VC", "Global News"}, 15)
	d := b.Build(context.Background(), nil)

	require.Len(t, d.Stories, 2)
	assert.Equal(t, "t2", d.Stories[0].Link, "highest-scored of the latest wins the category slot")
	assert.Equal(t, "g1", d.Stories[1].Link)
}

func TestBuild_DiversityUsesSynthesisForClusters(t *testing.T) {
	merged := article("t1", "Tech & AI", 90)
	merged.Source = "Synthesis"
	synth := &fakeSynth{merged: &merged}

	store := &fakeStore{byCategory: map[string][]model.Article{
		"Tech & AI":   {article("t1", "Tech & AI", 70), article("t2", "Tech & AI", 80)},
		"Global News": {article("g1", "Global News", 80)},
	}}

	b := NewBuilder(store, synth, StrategyDiversity, []string{"Tech & AI", "Global News"}, 15)
	d := b.Build(context.Background(), nil)

	// Two-story category goes through synthesis; single-story one does not.
	assert.Equal(t, 1, synth.called)
	require.Len(t, d.Stories, 2)
	assert.Equal(t, "Synthesis", d.Stories[0].Source)
}

func TestBuild_PadsFromCurrentRunWithoutDuplicateLinks(t *testing.T) {
	store := &fakeStore{byCategory: map[string][]model.Article{
		"Tech & AI": {article("shared", "Tech & AI", 80)},
	}}

	processed := []model.Article{
		article("shared", "Tech & AI", 99),
		article("p1", "Global News", 85),
		article("p2", "Business Tech", 75),
	}

	b := NewBuilder(store, nil, StrategyDiversity, []string{"Tech & AI"}, 15)
	d := b.Build(context.Background(), processed)

	require.Len(t, d.Stories, 3)
	links := []string{d.Stories[0].Link, d.Stories[1].Link, d.Stories[2].Link}
	assert.Equal(t, []string{"shared", "p1", "p2"}, links)
}

func TestBuild_ScoreStrategyTakesTopThree(t *testing.T) {
	processed := []model.Article{
		article("low", "Tech", 60),
		article("top", "Tech", 95),
		article("mid", "Tech", 80),
		article("also-low", "Tech", 55),
	}

	b := NewBuilder(&fakeStore{}, nil, StrategyScore, nil, 15)
	d := b.Build(context.Background(), processed)

	require.Len(t, d.Stories, 3)
	assert.Equal(t, "top", d.Stories[0].Link)
	assert.Equal(t, "mid", d.Stories[1].Link)
	assert.Equal(t, "low", d.Stories[2].Link)
}

func TestBuild_CapsStoriesAndStampsKey(t *testing.T) {
	byCategory := make(map[string][]model.Article)
	categories := []string{"a", "b", "c", "d"}
	for _, c := range categories {
		byCategory[c] = []model.Article{article(c+"-1", c, 80)}
	}

	b := NewBuilder(&fakeStore{byCategory: byCategory}, nil, StrategyDiversity, categories, 2)
	b.now = func() time.Time { return time.Date(2025, 6, 2, 9, 30, 45, 0, time.UTC) }

	d := b.Build(context.Background(), nil)

	assert.Len(t, d.Stories, 2)
	assert.Equal(t, "2025-06-02 09:30", d.DateStr)
	assert.Equal(t, "Daily Intelligence Reel • Jun 02", d.Title)
	assert.NotEmpty(t, d.Summary)
}

func TestBuild_StoreErrorsSkipCategory(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}

	b := NewBuilder(store, nil, StrategyDiversity, []string{"Tech & AI"}, 15)
	d := b.Build(context.Background(), []model.Article{article("p1", "Tech & AI", 88)})

	// Failed category queries degrade to padding from the current run.
	require.Len(t, d.Stories, 1)
	assert.Equal(t, "p1", d.Stories[0].Link)
}
