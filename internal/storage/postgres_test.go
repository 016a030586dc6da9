package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelligencebrief/brief/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreWithDB(db), mock
}

func TestUpsertArticles_SingleStatementKeyedByLink(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO articles .+ ON CONFLICT \(link\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.UpsertArticles(context.Background(), []model.Article{
		{Link: "https://a.example/1", Title: "one", Published: "2025-06-01T10:00:00Z"},
		{Link: "https://a.example/2", Title: "two", Published: "2025-06-01T11:00:00Z"},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertArticles_EmptyBatchIsNoop(t *testing.T) {
	store, mock := newMockStore(t)

	require.NoError(t, store.UpsertArticles(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingLinks_ChunksLookups(t *testing.T) {
	store, mock := newMockStore(t)

	links := make([]string, 120)
	for i := range links {
		links[i] = fmt.Sprintf("https://a.example/%d", i)
	}

	// 120 links at 50 per query means three round trips.
	mock.ExpectQuery(`SELECT link FROM articles WHERE link IN`).
		WillReturnRows(sqlmock.NewRows([]string{"link"}).AddRow("https://a.example/3"))
	mock.ExpectQuery(`SELECT link FROM articles WHERE link IN`).
		WillReturnRows(sqlmock.NewRows([]string{"link"}).AddRow("https://a.example/77"))
	mock.ExpectQuery(`SELECT link FROM articles WHERE link IN`).
		WillReturnRows(sqlmock.NewRows([]string{"link"}))

	existing, err := store.ExistingLinks(context.Background(), links)

	require.NoError(t, err)
	assert.Len(t, existing, 2)
	assert.True(t, existing["https://a.example/3"])
	assert.True(t, existing["https://a.example/77"])
	assert.False(t, existing["https://a.example/0"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingLinks_EmptyInput(t *testing.T) {
	store, mock := newMockStore(t)

	existing, err := store.ExistingLinks(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOlderThan(t *testing.T) {
	store, mock := newMockStore(t)

	cutoff := "2025-05-31T10:00:00Z"
	mock.ExpectExec(`DELETE FROM articles WHERE published <`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	removed, err := store.PurgeOlderThan(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDigest_UpsertsByDateKey(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO daily_briefings \(date_str,content\) VALUES .+ ON CONFLICT \(date_str\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveDigest(context.Background(), model.Digest{
		DateStr: "2025-06-01 09:30",
		Title:   "Daily Intelligence Reel • Jun 01",
		Summary: "Your daily high-signal update.",
		Stories: []model.Article{{Link: "https://a.example/1", Title: "one"}},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWatchlists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT keyword, user_fcm_token FROM user_watchlists`).
		WillReturnRows(sqlmock.NewRows([]string{"keyword", "user_fcm_token"}).
			AddRow("quantum", "token-1").
			AddRow("openai", "token-2"))

	rules, err := store.Watchlists(context.Background())

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, model.WatchlistRule{Keyword: "quantum", UserToken: "token-1"}, rules[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestByCategory(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(articleColumns).
		AddRow("https://a.example/1", "one", "2025-06-01T10:00:00Z", "s", "ai",
			"TechCrunch", "Tech & AI", 2, "Trusted", 90, "r", "cpu")
	mock.ExpectQuery(`SELECT .+ FROM articles WHERE category = .+ ORDER BY published DESC LIMIT 3`).
		WithArgs("Tech & AI").
		WillReturnRows(rows)

	got, err := store.LatestByCategory(context.Background(), "Tech & AI", 3)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.example/1", got[0].Link)
	assert.Equal(t, 90, got[0].TrustScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
