package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-job-feed-watcher/internal/feed"
	"go-job-feed-watcher/internal/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	items []feed.Item
	err   error
}

func (f *fakeFetcher) Fetch(context.Context) ([]feed.Item, error) {
	return f.items, f.err
}

// passMatcher matches every candidate and appends extra.
type passMatcher struct {
	calls int
	got   []feed.CandidatePosting
	err   error
	extra []models.Match
}

func (m *passMatcher) Name() string { return "pass" }

func (m *passMatcher) Match(_ context.Context, candidates []feed.CandidatePosting) ([]models.Match, error) {
	m.calls++
	m.got = candidates
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Match
	for _, c := range candidates {
		out = append(out, models.Match{Link: c.Link, Text: "match: " + c.Text})
	}
	return append(out, m.extra...), nil
}

// fakeStore returns err once it holds failAfter rows.
type fakeStore struct {
	nextID    int64
	rows      []models.Match
	err       error
	failAfter int
}

func (s *fakeStore) Create(_ context.Context, link, text string) (int64, error) {
	if s.err != nil && len(s.rows) >= s.failAfter {
		return 0, s.err
	}
	s.nextID++
	s.rows = append(s.rows, models.Match{Link: link, Text: text})
	return s.nextID, nil
}

type notice struct {
	id   int64
	text string
}

type fakeNotifier struct {
	notices   []notice
	noMatches int
	err       error
	onNotify  func()
}

func (n *fakeNotifier) Notify(_ context.Context, id int64, text string) error {
	if n.onNotify != nil {
		n.onNotify()
	}
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice{id: id, text: text})
	return nil
}

func (n *fakeNotifier) NotifyNoMatches(context.Context) error {
	n.noMatches++
	return nil
}

type memCache struct {
	mu    sync.Mutex
	links map[string]bool
}

func newMemCache(links ...string) *memCache {
	c := &memCache{links: make(map[string]bool)}
	for _, l := range links {
		c.links[l] = true
	}
	return c
}

func (c *memCache) IsSeen(_ context.Context, link string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[link]
}

func (c *memCache) Add(_ context.Context, links []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range links {
		c.links[l] = true
	}
}

func update(author, text, shareURN string) feed.Item {
	return feed.Item{
		Kind:   feed.KindUpdate,
		Type:   feed.TypeUpdate,
		Update: &feed.Update{Author: author, Text: text, ShareURN: shareURN},
	}
}

func TestPipeline_Run(t *testing.T) {
	fetcher := &fakeFetcher{items: []feed.Item{
		update("Alice", "Hiring a Go developer", "urn:li:ugcPost:1"),
		update("Bob", "Looking for a backend engineer", "urn:li:ugcPost:2"),
		{Kind: feed.KindIgnored, Type: "com.example.Other"},
	}}
	matcher := &passMatcher{}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	seen := newMemCache()
	resultsDir := t.TempDir()

	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, matcher, store, notifier, seen, Options{ResultsDir: resultsDir}, log)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	link1 := feed.ShareLink("urn:li:ugcPost:1")
	link2 := feed.ShareLink("urn:li:ugcPost:2")

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Matches)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 2, report.Notified)

	assert.Equal(t, []models.Match{
		{Link: link1, Text: "match: Hiring a Go developer"},
		{Link: link2, Text: "match: Looking for a backend engineer"},
	}, store.rows)
	assert.Equal(t, []notice{
		{id: 1, text: "match: Hiring a Go developer"},
		{id: 2, text: "match: Looking for a backend engineer"},
	}, notifier.notices)
	assert.Zero(t, notifier.noMatches)
	assert.True(t, seen.IsSeen(context.Background(), link1))
	assert.True(t, seen.IsSeen(context.Background(), link2))

	files, err := os.ReadDir(resultsDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "job-search-"+time.Now().Format("2006-01-02")+".json", files[0].Name())
}

func TestPipeline_SkipsSeenLinks(t *testing.T) {
	fetcher := &fakeFetcher{items: []feed.Item{
		update("Alice", "Hiring a Go developer", "urn:li:ugcPost:1"),
		update("Bob", "Looking for a backend engineer", "urn:li:ugcPost:2"),
	}}
	matcher := &passMatcher{}
	store := &fakeStore{}
	seen := newMemCache(feed.ShareLink("urn:li:ugcPost:1"))

	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, matcher, store, &fakeNotifier{}, seen, Options{}, log)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Unseen)
	require.Len(t, matcher.got, 1)
	assert.Equal(t, "Bob", matcher.got[0].Author)
	require.Len(t, store.rows, 1)
}

func TestPipeline_NoMatchesSendsNotice(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{name: "empty feed", fetcher: &fakeFetcher{}},
		{name: "malformed response", fetcher: &fakeFetcher{err: feed.ErrMalformedResponse}},
		{name: "only unusable records", fetcher: &fakeFetcher{items: []feed.Item{update("", "text", "urn:li:ugcPost:1")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := &passMatcher{}
			store := &fakeStore{}
			notifier := &fakeNotifier{}

			log, _ := test.NewNullLogger()
			p := NewPipeline(tt.fetcher, matcher, store, notifier, nil, Options{}, log)

			_, err := p.Run(context.Background())
			require.NoError(t, err)

			assert.Zero(t, matcher.calls)
			assert.Empty(t, store.rows)
			assert.Equal(t, 1, notifier.noMatches)
		})
	}
}

func TestPipeline_PrefilterDropsNonJobPosts(t *testing.T) {
	fetcher := &fakeFetcher{items: []feed.Item{
		update("Alice", "We are hiring a backend developer", "urn:li:ugcPost:1"),
		update("Bob", "Five lessons from my career", "urn:li:ugcPost:2"),
	}}
	matcher := &passMatcher{}
	notifier := &fakeNotifier{}

	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, matcher, &fakeStore{}, notifier, nil, Options{Prefilter: true}, log)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, matcher.got, 1)
	assert.Equal(t, "Alice", matcher.got[0].Author)
	assert.Equal(t, 1, report.Stored)
}

func TestPipeline_SkipsMatchWithoutLink(t *testing.T) {
	fetcher := &fakeFetcher{items: []feed.Item{update("Alice", "Hiring", "urn:li:ugcPost:1")}}
	matcher := &passMatcher{extra: []models.Match{{Text: "no link"}}}
	store := &fakeStore{}

	log, hook := test.NewNullLogger()
	p := NewPipeline(fetcher, matcher, store, &fakeNotifier{}, nil, Options{}, log)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, store.rows, 1)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "⚠️ Skipping match without a link" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestPipeline_Errors(t *testing.T) {
	items := []feed.Item{update("Alice", "Hiring", "urn:li:ugcPost:1")}
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		matcher *passMatcher
		store   *fakeStore
	}{
		{name: "fetch transport error", fetcher: &fakeFetcher{err: boom}, matcher: &passMatcher{}, store: &fakeStore{}},
		{name: "matcher error", fetcher: &fakeFetcher{items: items}, matcher: &passMatcher{err: boom}, store: &fakeStore{}},
		{name: "storage error", fetcher: &fakeFetcher{items: items}, matcher: &passMatcher{}, store: &fakeStore{err: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			log, _ := test.NewNullLogger()
			p := NewPipeline(tt.fetcher, tt.matcher, tt.store, notifier, nil, Options{}, log)

			_, err := p.Run(context.Background())

			assert.ErrorIs(t, err, boom)
			assert.Empty(t, notifier.notices)
			assert.Zero(t, notifier.noMatches)
		})
	}
}

func TestPipeline_NotifyFailureStillMarksSeen(t *testing.T) {
	fetcher := &fakeFetcher{items: []feed.Item{update("Alice", "Hiring", "urn:li:ugcPost:1")}}
	store := &fakeStore{}
	seen := newMemCache()

	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, &passMatcher{}, store, &fakeNotifier{err: errors.New("telegram down")}, seen, Options{}, log)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stored)
	assert.Zero(t, report.Notified)
	assert.True(t, seen.IsSeen(context.Background(), feed.ShareLink("urn:li:ugcPost:1")))
}

func TestPipeline_NoResultsFileWithoutDir(t *testing.T) {
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	fetcher := &fakeFetcher{items: []feed.Item{update("Alice", "Hiring", "urn:li:ugcPost:1")}}
	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, &passMatcher{}, &fakeStore{}, &fakeNotifier{}, nil, Options{}, log)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPipeline_CancelDuringSendIntervalLeavesNoUnsentRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{items: []feed.Item{
		update("Alice", "Hiring a Go developer", "urn:li:ugcPost:1"),
		update("Bob", "Looking for a backend engineer", "urn:li:ugcPost:2"),
	}}
	store := &fakeStore{}
	notifier := &fakeNotifier{onNotify: cancel}
	seen := newMemCache()

	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, &passMatcher{}, store, notifier, seen, Options{SendInterval: time.Hour}, log)

	report, err := p.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Stored)
	require.Len(t, store.rows, 1)
	require.Len(t, notifier.notices, 1)
	for _, row := range store.rows {
		assert.True(t, seen.IsSeen(context.Background(), row.Link), row.Link)
	}
	assert.False(t, seen.IsSeen(context.Background(), feed.ShareLink("urn:li:ugcPost:2")))
}

func TestPipeline_StorageErrorStillWritesResults(t *testing.T) {
	fetcher := &fakeFetcher{items: []feed.Item{
		update("Alice", "Hiring a Go developer", "urn:li:ugcPost:1"),
		update("Bob", "Looking for a backend engineer", "urn:li:ugcPost:2"),
	}}
	boom := errors.New("disk full")
	store := &fakeStore{err: boom, failAfter: 1}
	resultsDir := t.TempDir()

	log, _ := test.NewNullLogger()
	p := NewPipeline(fetcher, &passMatcher{}, store, &fakeNotifier{}, nil, Options{ResultsDir: resultsDir}, log)

	report, err := p.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, report.Stored)

	path := filepath.Join(resultsDir, "job-search-"+time.Now().Format("2006-01-02")+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved []storedMatch
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, []storedMatch{
		{ID: 1, Link: feed.ShareLink("urn:li:ugcPost:1"), Text: "match: Hiring a Go developer"},
	}, saved)
}
