package main

import (
	"context"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"go-job-feed-watcher/internal/ai"
	"go-job-feed-watcher/internal/browser"
	"go-job-feed-watcher/internal/config"
	"go-job-feed-watcher/internal/database"
	"go-job-feed-watcher/internal/dedup"
	"go-job-feed-watcher/internal/feed"
	"go-job-feed-watcher/internal/filter"
	"go-job-feed-watcher/internal/ingest"
	"go-job-feed-watcher/internal/logger"
	"go-job-feed-watcher/internal/review"
	"go-job-feed-watcher/internal/server"
	"go-job-feed-watcher/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $CONFIG_PATH or configs/config.yaml)")
	once := flag.Bool("once", false, "run the feed pipeline once and exit")
	flag.Parse()

	//load config
	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	for _, w := range warnings {
		log.Warnf("⚠️ %s", w)
	}
	log.WithFields(logrus.Fields{
		"fetch_mode":    cfg.FetchMode,
		"telegram_mode": cfg.TelegramMode,
		"interval":      cfg.Interval,
	}).Info("🔧 Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//init store
	store, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		log.Fatalf("❌ Failed to init database: %v", err)
	}
	log.Info("📦 Posting store ready")

	//init telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID, log)
	if err != nil {
		log.Fatalf("❌ Failed to init Telegram Bot: %v", err)
	}
	log.Infof("🤖 Telegram Bot initialized as @%s", bot.Username())

	workflow := review.NewWorkflow(store, bot, log)

	//load cookies and build the feed fetcher
	cookies, err := browser.LoadCookies(cfg.CookiesPath)
	if err != nil {
		log.Fatalf("❌ Failed to load cookies: %v", err)
	}
	log.Infof("🍪 Loaded %d cookies", len(cookies))

	fetchOpts := feed.FetchOptions{URL: cfg.FeedURL, Count: cfg.FeedCount}
	var fetcher feed.Fetcher
	switch cfg.FetchMode {
	case config.FetchModeBrowser:
		pwManager, err := browser.NewManager(cfg.Headless)
		if err != nil {
			log.Fatalf("❌ Failed to init Playwright: %v", err)
		}
		defer pwManager.Close()
		fetcher = feed.NewBrowserFetcher(pwManager, cookies, fetchOpts)
		log.Info("✅ Browser initialized successfully!")
	default:
		fetcher = feed.NewHTTPFetcher(cookies, fetchOpts)
	}

	var matcher ingest.Matcher
	if cfg.GroqAPIKey != "" {
		matcher = ai.NewGroqClient(cfg.GroqAPIKey, ai.Options{Model: cfg.GroqModel, Profile: cfg.Profile}, log)
	} else {
		log.Warn("⚠️ GROQ_API_KEY not set, falling back to keyword matching")
		matcher = filter.NewKeywordMatcher(cfg.MinScore)
	}

	seen := seenCache(ctx, cfg, log)
	pipeline := ingest.NewPipeline(fetcher, matcher, store, workflow, seen, ingest.Options{
		KeepUnknownAuthor: cfg.KeepUnknownAuthor,
		Prefilter:         cfg.Prefilter,
		SendInterval:      cfg.SendInterval,
		ResultsDir:        cfg.ResultsDir,
	}, log)

	if *once {
		if _, err := pipeline.Run(ctx); err != nil {
			log.Fatalf("❌ Feed run failed: %v", err)
		}
		return
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	var webhook *server.Webhook
	if cfg.TelegramMode == config.TelegramModeWebhook {
		if err := bot.SetWebhook(cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			log.Fatalf("❌ %v", err)
		}
		webhook = &server.Webhook{
			Secret: cfg.WebhookSecret,
			Handle: func(ctx context.Context, update tgbotapi.Update) {
				bot.Dispatch(ctx, update, workflow.HandleCallbackLogged)
			},
		}
	} else {
		run(func() { bot.Listen(ctx, workflow.HandleCallbackLogged) })
	}

	srv := server.New(store, webhook, log)
	run(func() {
		if err := srv.ListenAndServe(ctx, ":"+cfg.Port); err != nil {
			log.WithError(err).Error("❌ HTTP server stopped")
		}
	})

	run(func() { ingest.NewScheduler(pipeline, cfg.Interval, bot, log).Start(ctx) })

	log.Info("🚀 Job feed watcher started")
	<-ctx.Done()
	log.Info("🛑 Shutting down...")
	wg.Wait()
	log.Info("🏁 Stopped")
}

// seenCache returns nil when deduplication is disabled.
func seenCache(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) dedup.Cache {
	if cfg.DisableDedup {
		return nil
	}
	if cfg.RedisAddr != "" {
		cache, err := dedup.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SeenTTL, log)
		if err == nil {
			return cache
		}
		log.WithError(err).Warn("⚠️ Redis unavailable, using file cache")
	}
	return dedup.NewFileCache(cfg.CachePath, cfg.SeenTTL, log)
}
