package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-job-feed-watcher/internal/dedup"
	"go-job-feed-watcher/internal/feed"
	"go-job-feed-watcher/internal/filter"
	"go-job-feed-watcher/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Matcher picks the relevant candidates and formats their display text.
type Matcher interface {
	Name() string
	Match(ctx context.Context, candidates []feed.CandidatePosting) ([]models.Match, error)
}

// Store is where matched postings are saved before the operator sees them.
type Store interface {
	Create(ctx context.Context, link, text string) (int64, error)
}

// Notifier delivers postings to the operator.
type Notifier interface {
	Notify(ctx context.Context, id int64, text string) error
	NotifyNoMatches(ctx context.Context) error
}

type Options struct {
	KeepUnknownAuthor bool
	// Prefilter drops candidates without job and role keywords before matching.
	Prefilter bool
	// SendInterval spaces notifications to stay under the chat rate limit.
	SendInterval time.Duration
	// ResultsDir, when set, receives a JSON dump of each run's matches.
	ResultsDir string
}

// Report summarizes one run.
type Report struct {
	RunID      string
	Fetched    int
	Candidates int
	Unseen     int
	Matches    int
	Stored     int
	Notified   int
	Skipped    int
}

// Pipeline runs fetch, normalize, dedup, match, persist and notify once.
type Pipeline struct {
	fetcher  feed.Fetcher
	matcher  Matcher
	store    Store
	notifier Notifier
	seen     dedup.Cache
	opts     Options
	log      logrus.FieldLogger
}

// NewPipeline wires a pipeline. seen may be nil to disable deduplication.
func NewPipeline(fetcher feed.Fetcher, matcher Matcher, store Store, notifier Notifier, seen dedup.Cache, opts Options, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		matcher:  matcher,
		store:    store,
		notifier: notifier,
		seen:     seen,
		opts:     opts,
		log:      log,
	}
}

type storedMatch struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
	Text string `json:"text"`
}

func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := p.log.WithField("run_id", report.RunID)
	log.Info("🚀 Starting feed run")

	items, err := p.fetcher.Fetch(ctx)
	switch {
	case errors.Is(err, feed.ErrMalformedResponse):
		log.WithError(err).Warn("⚠️ Feed response was malformed, treating as empty")
		items = nil
	case err != nil:
		return report, fmt.Errorf("fetch feed: %w", err)
	}
	report.Fetched = len(items)

	candidates := feed.Normalize(items, feed.Options{KeepUnknownAuthor: p.opts.KeepUnknownAuthor})
	report.Candidates = len(candidates)

	unseen := p.unseen(ctx, candidates)
	report.Unseen = len(unseen)
	log.Infof("🔍 Deduplication: %d candidates -> %d unseen", len(candidates), len(unseen))

	if p.opts.Prefilter {
		before := len(unseen)
		unseen = filter.Prefilter(unseen)
		log.Infof("Prefiltered: %d/%d candidates", len(unseen), before)
	}

	var matches []models.Match
	if len(unseen) > 0 {
		matches, err = p.matcher.Match(ctx, unseen)
		if err != nil {
			return report, fmt.Errorf("match candidates with %s: %w", p.matcher.Name(), err)
		}
	}
	report.Matches = len(matches)

	if len(matches) == 0 {
		log.Info("ℹ️ No matching postings this run")
		if err := p.notifier.NotifyNoMatches(ctx); err != nil {
			log.WithError(err).Warn("⚠️ Failed to send no-match notice")
		}
		return report, nil
	}

	log.Infof("📊 %s found %d matches", p.matcher.Name(), len(matches))
	var saved []storedMatch
	defer func() { p.saveResults(log, saved) }()

	for i, m := range matches {
		if m.Link == "" {
			log.WithField("index", i).Warn("⚠️ Skipping match without a link")
			report.Skipped++
			continue
		}

		// wait before storing so a cancelled run leaves no unsent rows
		if report.Stored > 0 && p.opts.SendInterval > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(p.opts.SendInterval):
			}
		}

		id, err := p.store.Create(ctx, m.Link, m.Text)
		if err != nil {
			return report, fmt.Errorf("save posting %s: %w", m.Link, err)
		}
		report.Stored++
		saved = append(saved, storedMatch{ID: id, Link: m.Link, Text: m.Text})

		// marked seen even when delivery fails: the row already exists
		if err := p.notifier.Notify(ctx, id, m.Text); err != nil {
			log.WithError(err).WithField("job_id", id).Warn("⚠️ Failed to send posting to Telegram")
		} else {
			report.Notified++
		}
		if p.seen != nil {
			p.seen.Add(ctx, []string{m.Link})
		}
	}

	log.WithFields(logrus.Fields{
		"stored":   report.Stored,
		"notified": report.Notified,
		"skipped":  report.Skipped,
	}).Info("🏁 Feed run finished")
	return report, nil
}

func (p *Pipeline) unseen(ctx context.Context, candidates []feed.CandidatePosting) []feed.CandidatePosting {
	if p.seen == nil {
		return candidates
	}
	out := make([]feed.CandidatePosting, 0, len(candidates))
	for _, c := range candidates {
		if c.Link != "" && p.seen.IsSeen(ctx, c.Link) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// saveResults writes <dir>/job-search-YYYY-MM-DD.json, replacing the
// previous run of the same day.
func (p *Pipeline) saveResults(log logrus.FieldLogger, saved []storedMatch) {
	if p.opts.ResultsDir == "" || len(saved) == 0 {
		return
	}
	if err := os.MkdirAll(p.opts.ResultsDir, 0755); err != nil {
		log.WithError(err).Warn("⚠️ Failed to create results directory")
		return
	}

	filename := fmt.Sprintf("job-search-%s.json", time.Now().Format("2006-01-02"))
	path := filepath.Join(p.opts.ResultsDir, filename)

	data, err := json.MarshalIndent(saved, "", " ")
	if err != nil {
		log.WithError(err).Warn("⚠️ Failed to marshal results")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.WithError(err).Warn("⚠️ Failed to write results file")
		return
	}
	log.Infof("📁 Results saved to %s", path)
}
