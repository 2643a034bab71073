package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go-job-feed-watcher/internal/browser"
	"go-job-feed-watcher/internal/feed"
	"go-job-feed-watcher/internal/logger"
)

// Reads a saved feed response (or fetches a live one with -cookies) and
// prints the normalized candidates as JSON.
func main() {
	file := flag.String("file", "", "saved feed response to normalize")
	cookiesPath := flag.String("cookies", "", "cookie bundle; fetch the live feed instead of reading -file")
	save := flag.String("save", "", "with -cookies, also write the raw response here")
	count := flag.Int("count", feed.DefaultCount, "with -cookies, number of feed updates to request")
	keepUnknown := flag.Bool("keep-unknown-author", false, "keep posts whose author name is missing")
	flag.Parse()

	log := logger.New(os.Getenv("LOG_LEVEL"), "")
	log.SetOutput(os.Stderr)

	var body []byte
	var err error
	switch {
	case *cookiesPath != "":
		cookies, err := browser.LoadCookies(*cookiesPath)
		if err != nil {
			log.Fatalf("❌ Failed to load cookies: %v", err)
		}
		log.Infof("🍪 Loaded %d cookies", len(cookies))

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		body, err = feed.NewHTTPFetcher(cookies, feed.FetchOptions{Count: *count}).FetchBody(ctx)
		if err != nil {
			log.Fatalf("❌ Failed to fetch feed: %v", err)
		}
		if *save != "" {
			if err := os.WriteFile(*save, body, 0644); err != nil {
				log.Fatalf("❌ Failed to save response: %v", err)
			}
			log.Infof("📁 Response saved to %s", *save)
		}
	case *file != "":
		body, err = os.ReadFile(*file)
		if err != nil {
			log.Fatalf("❌ Failed to read %s: %v", *file, err)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: normalize -file response.json | -cookies cookies.json [-save response.json]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	items, err := feed.ParseResponse(body)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	candidates := feed.Normalize(items, feed.Options{KeepUnknownAuthor: *keepUnknown})
	log.Infof("📦 %d records -> %d candidates", len(items), len(candidates))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if candidates == nil {
		candidates = []feed.CandidatePosting{}
	}
	if err := enc.Encode(candidates); err != nil {
		log.Fatalf("❌ Failed to write output: %v", err)
	}
}
