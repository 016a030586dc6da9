// Command briefctl is an operator tool for one-off actions: forcing a
// digest rebuild from stored articles and broadcasting app updates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/intelligencebrief/brief/internal/config"
	"github.com/intelligencebrief/brief/internal/digest"
	"github.com/intelligencebrief/brief/internal/enrich"
	"github.com/intelligencebrief/brief/internal/logger"
	"github.com/intelligencebrief/brief/internal/notify"
	"github.com/intelligencebrief/brief/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Debug)

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "reel":
		err = forceReel(ctx, cfg)
	case "update":
		err = broadcastUpdate(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: briefctl <command>

commands:
  reel      rebuild today's digest from stored articles
  update    broadcast an app-update notification
            flags: -version <v> -url <download-url>`)
}

// forceReel rebuilds the digest from what is already stored, without
// running a full ingestion cycle.
func forceReel(ctx context.Context, cfg *config.Config) error {
	if !cfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL must be set to rebuild the reel")
	}
	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	var synth digest.Synthesizer
	if cfg.SynthesizeClusters && cfg.HasGemini() {
		client, err := enrich.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EnrichThrottle, cfg.MaxEnrichCalls)
		if err != nil {
			return fmt.Errorf("init enrichment client: %w", err)
		}
		synth = client
	}

	recent, err := store.Latest(ctx, 50)
	if err != nil {
		return fmt.Errorf("load recent articles: %w", err)
	}
	if len(recent) == 0 {
		return fmt.Errorf("no stored articles to build a reel from")
	}

	builder := digest.NewBuilder(store, synth, cfg.DigestStrategy, cfg.DigestCategories, cfg.DigestMaxStories)
	d := builder.Build(ctx, recent)
	if len(d.Stories) == 0 {
		return fmt.Errorf("digest came out empty")
	}
	if err := store.SaveDigest(ctx, d); err != nil {
		return fmt.Errorf("save digest: %w", err)
	}

	fmt.Printf("saved digest %q with %d stories\n", d.DateStr, len(d.Stories))
	return nil
}

// broadcastUpdate pushes a data message telling installed clients a new
// app version is available.
func broadcastUpdate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	version := fs.String("version", "", "new app version, e.g. 1.4.0")
	url := fs.String("url", "", "download URL for the new build")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version == "" || *url == "" {
		return fmt.Errorf("both -version and -url are required")
	}
	if cfg.FirebaseCredentials == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS must be set to broadcast")
	}

	fcm, err := notify.NewFCM(ctx, cfg.FirebaseCredentials)
	if err != nil {
		return fmt.Errorf("init push client: %w", err)
	}

	title := "Update available"
	body := fmt.Sprintf("Version %s is ready to install.", *version)
	data := map[string]string{
		"type":    "update",
		"version": *version,
		"url":     *url,
	}
	if err := fcm.Broadcast(ctx, cfg.BroadcastTopic, title, body, data); err != nil {
		return fmt.Errorf("broadcast update: %w", err)
	}

	fmt.Printf("update %s broadcast to topic %q\n", *version, cfg.BroadcastTopic)
	return nil
}
