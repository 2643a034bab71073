package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a notified link is remembered.
const DefaultTTL = 30 * 24 * time.Hour

// Cache remembers links that were already sent to the operator.
type Cache interface {
	IsSeen(ctx context.Context, link string) bool
	Add(ctx context.Context, links []string)
}

type seenEntry struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// FileCache is a Cache persisted as a JSON list in a local directory.
type FileCache struct {
	mu       sync.Mutex
	filePath string
	ttl      time.Duration
	seen     map[string]int64
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewFileCache creates or loads the cache stored in cacheDir/seen_links.json.
func NewFileCache(cacheDir string, ttl time.Duration, log logrus.FieldLogger) *FileCache {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.WithError(err).Warn("⚠️ Failed to create cache directory")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache := &FileCache{
		filePath: filepath.Join(cacheDir, "seen_links.json"),
		ttl:      ttl,
		seen:     make(map[string]int64),
		log:      log,
		now:      time.Now,
	}
	cache.load()
	return cache
}

func (c *FileCache) IsSeen(_ context.Context, link string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, exists := c.seen[link]
	return exists && !c.expired(ts)
}

func (c *FileCache) Add(_ context.Context, links []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixMilli()
	changed := false
	for _, link := range links {
		if link == "" {
			continue
		}
		if ts, exists := c.seen[link]; !exists || c.expired(ts) {
			c.seen[link] = now
			changed = true
		}
	}

	if changed {
		c.save()
	}
}

func (c *FileCache) expired(ts int64) bool {
	return ts <= c.now().Add(-c.ttl).UnixMilli()
}

// load reads the cache from disk, dropping expired entries.
func (c *FileCache) load() {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.WithError(err).Warn("⚠️ Failed to read seen links cache")
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.log.WithError(err).Warn("⚠️ Failed to parse seen links cache")
		return
	}

	loaded := 0
	for _, e := range entries {
		if !c.expired(e.Timestamp) {
			c.seen[e.URL] = e.Timestamp
			loaded++
		}
	}
	c.log.WithFields(logrus.Fields{
		"loaded":  loaded,
		"expired": len(entries) - loaded,
	}).Info("📋 Loaded previously seen links")
}

// save writes the cache to disk. Callers hold mu.
func (c *FileCache) save() {
	entries := make([]seenEntry, 0, len(c.seen))
	for link, ts := range c.seen {
		if c.expired(ts) {
			continue
		}
		entries = append(entries, seenEntry{URL: link, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		c.log.WithError(err).Warn("⚠️ Failed to marshal seen links")
		return
	}
	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		c.log.WithError(err).Warn("⚠️ Failed to write seen links cache")
		return
	}
	c.log.WithField("count", len(entries)).Debug("💾 Saved seen links")
}
