package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/intelligencebrief/brief/internal/model"
)

// seenLink is one remembered upload, kept so link dedup survives across runs
// even without a database.
type seenLink struct {
	Link      string    `json:"link"`
	Published string    `json:"published"`
	SeenAt    time.Time `json:"seen_at"`
}

// FileStore is the degraded-mode store used when no database credential is
// configured. It remembers uploaded links in a JSON file so dedup and purge
// keep working; digest and watchlist queries come back empty.
type FileStore struct {
	path string
	mu   sync.RWMutex
	seen map[string]seenLink
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, seen: make(map[string]seenLink)}
}

// Load reads the cache file if it exists.
func (f *FileStore) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seen cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []seenLink
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("unmarshal seen cache: %w", err)
	}
	for _, item := range items {
		f.seen[item.Link] = item
	}
	return nil
}

func (f *FileStore) save() error {
	items := make([]seenLink, 0, len(f.seen))
	for _, item := range f.seen {
		items = append(items, item)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen cache: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write seen cache: %w", err)
	}
	return nil
}

// UpsertArticles records the batch's links. Full article bodies are not kept;
// only identity matters for degraded-mode dedup.
func (f *FileStore) UpsertArticles(_ context.Context, articles []model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range articles {
		f.seen[a.Link] = seenLink{Link: a.Link, Published: a.Published, SeenAt: time.Now()}
	}
	return f.save()
}

func (f *FileStore) ExistingLinks(_ context.Context, links []string) (map[string]bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	existing := make(map[string]bool)
	for _, link := range links {
		if _, ok := f.seen[link]; ok {
			existing[link] = true
		}
	}
	return existing, nil
}

func (f *FileStore) PurgeOlderThan(_ context.Context, cutoff string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var removed int64
	for link, item := range f.seen {
		if item.Published < cutoff {
			delete(f.seen, link)
			removed++
		}
	}
	if removed > 0 {
		if err := f.save(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// SaveDigest is a no-op without a database; the digest only exists for app
// consumption, which requires the backend anyway.
func (f *FileStore) SaveDigest(_ context.Context, d model.Digest) error {
	slog.Debug("file store: digest not persisted", "date_str", d.DateStr)
	return nil
}

func (f *FileStore) Watchlists(context.Context) ([]model.WatchlistRule, error) {
	return nil, nil
}

func (f *FileStore) Latest(context.Context, int) ([]model.Article, error) {
	return nil, nil
}

func (f *FileStore) LatestByCategory(context.Context, string, int) ([]model.Article, error) {
	return nil, nil
}

func (f *FileStore) TopByTrustScore(context.Context, int) ([]model.Article, error) {
	return nil, nil
}

func (f *FileStore) Close() error { return nil }
