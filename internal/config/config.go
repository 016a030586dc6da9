// Package config loads pipeline settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Storage settings
	DatabaseURL   string // Postgres DSN of the managed backend
	SeenCachePath string // JSON fallback when no DSN is configured
	RetentionAge  time.Duration

	// Gemini settings
	GeminiAPIKey   string
	GeminiModel    string
	EnrichThrottle time.Duration // fixed delay between enrichment calls
	MaxEnrichCalls int           // per-run ceiling (0 = unlimited)

	// Tier-1 curated API
	NewsDataAPIKey string
	NewsDataURL    string

	// Firebase Cloud Messaging
	FirebaseCredentials string // path to service account JSON
	BroadcastTopic      string

	// RSS settings
	FeedsConfigPath string
	FeedsPerRun     int // random sample size per invocation
	EntriesPerFeed  int
	MinTitleLength  int

	// Digest settings
	DigestStrategy     string // "diversity" or "score"
	DigestMaxStories   int
	DigestCategories   []string
	SynthesizeClusters bool

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	CronSchedule   string // empty = run once and exit
	MonitoringPort string
}

// Load reads configuration from the environment, applying defaults. Missing
// credentials are not errors here: each collaborator degrades on its own.
func Load() *Config {
	cfg := &Config{
		SeenCachePath:  "seen_links.json",
		RetentionAge:   48 * time.Hour,
		GeminiModel:    "gemini-1.5-flash",
		EnrichThrottle: 4 * time.Second,
		NewsDataURL:    "https://newsdata.io/api/1/news",
		BroadcastTopic: "news",

		FeedsConfigPath: "configs/feeds.yaml",
		FeedsPerRun:     5,
		EntriesPerFeed:  7,
		MinTitleLength:  15,

		DigestStrategy:   "diversity",
		DigestMaxStories: 15,
		DigestCategories: []string{
			"Tech & AI", "Startups & VC", "Global Tech",
			"Future & Science", "Business Tech", "Global News",
		},

		RequestTimeout: 15 * time.Second,
		MonitoringPort: "8080",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.NewsDataAPIKey = os.Getenv("NEWSDATA_API_KEY")
	cfg.FirebaseCredentials = os.Getenv("FIREBASE_CREDENTIALS")
	cfg.CronSchedule = os.Getenv("CRON_SCHEDULE")

	cfg.SeenCachePath = getEnvOrDefault("SEEN_CACHE_PATH", cfg.SeenCachePath)
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.NewsDataURL = getEnvOrDefault("NEWSDATA_API_URL", cfg.NewsDataURL)
	cfg.BroadcastTopic = getEnvOrDefault("BROADCAST_TOPIC", cfg.BroadcastTopic)
	cfg.DigestStrategy = getEnvOrDefault("DIGEST_STRATEGY", cfg.DigestStrategy)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.FeedsPerRun = getEnvIntOrDefault("FEEDS_PER_RUN", cfg.FeedsPerRun)
	cfg.EntriesPerFeed = getEnvIntOrDefault("ENTRIES_PER_FEED", cfg.EntriesPerFeed)
	cfg.MinTitleLength = getEnvIntOrDefault("MIN_TITLE_LENGTH", cfg.MinTitleLength)
	cfg.DigestMaxStories = getEnvIntOrDefault("DIGEST_MAX_STORIES", cfg.DigestMaxStories)
	cfg.MaxEnrichCalls = getEnvIntOrDefault("MAX_ENRICH_CALLS", cfg.MaxEnrichCalls)

	cfg.EnrichThrottle = getEnvDurationOrDefault("ENRICH_THROTTLE", cfg.EnrichThrottle)
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)

	if hours := getEnvIntOrDefault("RETENTION_HOURS", 0); hours > 0 {
		cfg.RetentionAge = time.Duration(hours) * time.Hour
	}

	if cats := os.Getenv("DIGEST_CATEGORIES"); cats != "" {
		var parsed []string
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				parsed = append(parsed, c)
			}
		}
		if len(parsed) > 0 {
			cfg.DigestCategories = parsed
		}
	}

	if os.Getenv("SYNTHESIZE_CLUSTERS") == "true" {
		cfg.SynthesizeClusters = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg
}

// LogDegradations reports which collaborators will run degraded. The usual
// cause is a CI secret silently going missing, so this is loud on purpose.
func (c *Config) LogDegradations() {
	if !c.HasDatabase() {
		slog.Warn("DATABASE_URL not set, falling back to file-backed seen-link cache",
			"cache_path", c.SeenCachePath)
	}
	if !c.HasGemini() {
		slog.Warn("GEMINI_API_KEY not set, articles will be marked Unverified without enrichment")
	}
	if !c.HasNewsData() {
		slog.Warn("NEWSDATA_API_KEY not set, tier-1 fallback source disabled")
	}
	if c.FirebaseCredentials == "" {
		slog.Warn("FIREBASE_CREDENTIALS not set, push notifications disabled")
	}
}

// Placeholder secrets ("YOUR_KEY_HERE", "your_api_key") count as absent, same
// as the empty string.
func configured(v string) bool {
	if v == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(v), "your_")
}

func (c *Config) HasDatabase() bool { return configured(c.DatabaseURL) }
func (c *Config) HasGemini() bool   { return configured(c.GeminiAPIKey) }
func (c *Config) HasNewsData() bool { return configured(c.NewsDataAPIKey) }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
