// Package storage persists pipeline output in the managed Postgres backend.
// A JSON file fallback covers runs without a database credential.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/intelligencebrief/brief/internal/model"
)

// linkChunkSize bounds IN-list size per dedup query.
const linkChunkSize = 50

// PostgresStore is the primary article store.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPostgresStore opens and pings a Postgres connection.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresStoreWithDB(db), nil
}

// NewPostgresStoreWithDB wraps an existing connection (used by tests).
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// InitSchema creates the tables if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		link TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		published TEXT NOT NULL,
		summary TEXT,
		ai_summary TEXT,
		source TEXT,
		category TEXT,
		tier INTEGER,
		trust_badge TEXT,
		trust_score INTEGER,
		trust_reason TEXT,
		icon TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published);
	CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);

	CREATE TABLE IF NOT EXISTS daily_briefings (
		date_str TEXT PRIMARY KEY,
		content JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_watchlists (
		id SERIAL PRIMARY KEY,
		keyword TEXT NOT NULL,
		user_fcm_token TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

var articleColumns = []string{
	"link", "title", "published", "summary", "ai_summary",
	"source", "category", "tier", "trust_badge", "trust_score",
	"trust_reason", "icon",
}

// UpsertArticles writes the batch in one statement, keyed by link. Re-running
// with the same links overwrites rather than duplicates.
func (s *PostgresStore) UpsertArticles(ctx context.Context, articles []model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	builder := s.sb.Insert("articles").Columns(articleColumns...)
	for _, a := range articles {
		builder = builder.Values(
			a.Link, a.Title, a.Published, a.Summary, a.AISummary,
			a.Source, a.Category, a.Tier, a.TrustBadge, a.TrustScore,
			a.TrustReason, a.Icon,
		)
	}
	builder = builder.Suffix(`ON CONFLICT (link) DO UPDATE SET
		title = EXCLUDED.title,
		published = EXCLUDED.published,
		summary = EXCLUDED.summary,
		ai_summary = EXCLUDED.ai_summary,
		source = EXCLUDED.source,
		category = EXCLUDED.category,
		tier = EXCLUDED.tier,
		trust_badge = EXCLUDED.trust_badge,
		trust_score = EXCLUDED.trust_score,
		trust_reason = EXCLUDED.trust_reason,
		icon = EXCLUDED.icon`)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert articles: %w", err)
	}
	return nil
}

// ExistingLinks reports which of the given links are already stored. Lookups
// are chunked to respect query-size limits.
func (s *PostgresStore) ExistingLinks(ctx context.Context, links []string) (map[string]bool, error) {
	existing := make(map[string]bool)

	for start := 0; start < len(links); start += linkChunkSize {
		end := start + linkChunkSize
		if end > len(links) {
			end = len(links)
		}
		chunk := links[start:end]

		query, args, err := s.sb.Select("link").
			From("articles").
			Where(sq.Eq{"link": chunk}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build links query: %w", err)
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query existing links: %w", err)
		}
		for rows.Next() {
			var link string
			if err := rows.Scan(&link); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan link: %w", err)
			}
			existing[link] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate links: %w", err)
		}
		rows.Close()
	}

	return existing, nil
}

// PurgeOlderThan deletes articles published before the cutoff. The published
// column holds fixed-width UTC timestamps, so string comparison orders
// correctly.
func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff string) (int64, error) {
	query, args, err := s.sb.Delete("articles").
		Where(sq.Lt{"published": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge articles: %w", err)
	}
	removed, _ := result.RowsAffected()
	return removed, nil
}

// Latest returns the most recently published articles.
func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]model.Article, error) {
	builder := s.sb.Select(articleColumns...).
		From("articles").
		OrderBy("published DESC").
		Limit(uint64(limit))
	return s.queryArticles(ctx, builder)
}

// LatestByCategory returns the n most recent articles in one category.
func (s *PostgresStore) LatestByCategory(ctx context.Context, category string, n int) ([]model.Article, error) {
	builder := s.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"category": category}).
		OrderBy("published DESC").
		Limit(uint64(n))
	return s.queryArticles(ctx, builder)
}

// TopByTrustScore returns the highest-scored stored articles.
func (s *PostgresStore) TopByTrustScore(ctx context.Context, limit int) ([]model.Article, error) {
	builder := s.sb.Select(articleColumns...).
		From("articles").
		OrderBy("trust_score DESC").
		Limit(uint64(limit))
	return s.queryArticles(ctx, builder)
}

func (s *PostgresStore) queryArticles(ctx context.Context, builder sq.SelectBuilder) ([]model.Article, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		err := rows.Scan(
			&a.Link, &a.Title, &a.Published, &a.Summary, &a.AISummary,
			&a.Source, &a.Category, &a.Tier, &a.TrustBadge, &a.TrustScore,
			&a.TrustReason, &a.Icon,
		)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

// SaveDigest upserts one digest snapshot keyed by its timestamp string.
func (s *PostgresStore) SaveDigest(ctx context.Context, d model.Digest) error {
	content, err := json.Marshal(struct {
		Title   string          `json:"title"`
		Summary string          `json:"summary"`
		Stories []model.Article `json:"stories"`
	}{d.Title, d.Summary, d.Stories})
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	query, args, err := s.sb.Insert("daily_briefings").
		Columns("date_str", "content").
		Values(d.DateStr, content).
		Suffix(`ON CONFLICT (date_str) DO UPDATE SET content = EXCLUDED.content`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build digest upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert digest: %w", err)
	}

	slog.Info("digest saved", "date_str", d.DateStr, "stories", len(d.Stories))
	return nil
}

// Watchlists returns every user keyword rule. The pipeline never writes them.
func (s *PostgresStore) Watchlists(ctx context.Context) ([]model.WatchlistRule, error) {
	query, args, err := s.sb.Select("keyword", "user_fcm_token").
		From("user_watchlists").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build watchlists query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchlists: %w", err)
	}
	defer rows.Close()

	var rules []model.WatchlistRule
	for rows.Next() {
		var r model.WatchlistRule
		if err := rows.Scan(&r.Keyword, &r.UserToken); err != nil {
			return nil, fmt.Errorf("scan watchlist rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlists: %w", err)
	}
	return rules, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
