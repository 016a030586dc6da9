package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelligencebrief/brief/internal/model"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <item>
    <title>Chipmaker unveils new accelerator</title>
    <link>https://feed.example/chip</link>
    <pubDate>Mon, 02 Jun 2025 10:15:00 GMT</pubDate>
    <description>&lt;p&gt;A &lt;b&gt;big&lt;/b&gt; launch.&lt;/p&gt;</description>
  </item>
  <item>
    <title>Undated story</title>
    <link>https://feed.example/undated</link>
    <description>No date on this one.</description>
  </item>
  <item>
    <title>No link, should be skipped</title>
    <description>Orphan entry.</description>
  </item>
</channel>
</rss>`

func serveRSS(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_NormalizesEntries(t *testing.T) {
	srv := serveRSS(t, sampleRSS)

	f := NewFetcher(srv.Client(), 7)
	fixed := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	got := f.Fetch(context.Background(), Descriptor{URL: srv.URL, Category: "Tech & AI", Source: "Test Feed"})

	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Chipmaker unveils new accelerator", first.Title)
	assert.Equal(t, "https://feed.example/chip", first.Link)
	assert.Equal(t, "2025-06-02T10:15:00Z", first.Published)
	assert.Equal(t, "A big launch.", first.Summary)
	assert.Equal(t, "Tech & AI", first.Category)
	assert.Equal(t, "Test Feed", first.Source)
	assert.Equal(t, model.TierRSS, first.Tier)
	assert.Equal(t, model.BadgeNews, first.TrustBadge)

	// Missing dates fall back to the current time instead of dropping entries.
	assert.Equal(t, fixed.Format(model.TimeFormat), got[1].Published)
}

func TestFetch_CapsEntriesPerFeed(t *testing.T) {
	srv := serveRSS(t, sampleRSS)

	f := NewFetcher(srv.Client(), 1)
	got := f.Fetch(context.Background(), Descriptor{URL: srv.URL, Source: "Test Feed"})

	require.Len(t, got, 1)
	assert.Equal(t, "https://feed.example/chip", got[0].Link)
}

func TestFetch_BrokenFeedYieldsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 7)
	got := f.Fetch(context.Background(), Descriptor{URL: srv.URL, Source: "Broken"})
	assert.Empty(t, got)
}

func TestFetchAll_ConcatenatesAndSurvivesFailures(t *testing.T) {
	good := serveRSS(t, sampleRSS)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	f := NewFetcher(good.Client(), 7)
	got := f.FetchAll(context.Background(), []Descriptor{
		{URL: bad.URL, Source: "Broken"},
		{URL: good.URL, Source: "Good"},
	})

	assert.Len(t, got, 2)
}

func TestSample(t *testing.T) {
	descriptors := []Descriptor{
		{Source: "a"}, {Source: "b"}, {Source: "c"}, {Source: "d"},
	}

	got := Sample(descriptors, 2)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].Source, got[1].Source)

	assert.Len(t, Sample(descriptors, 10), 4)
	assert.Empty(t, Sample(descriptors, 0))
}

func TestLoadDescriptors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := `feeds:
  - url: https://feed.example/rss
    category: Tech & AI
    source: Example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadDescriptors(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Descriptor{URL: "https://feed.example/rss", Category: "Tech & AI", Source: "Example"}, got[0])

	_, err = LoadDescriptors(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
