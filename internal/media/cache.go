// Package media resolves opaque media ids to files under the profile's
// media cache directory. Each id is fetched at most once for the lifetime
// of the cache; handles are released explicitly, not left to the GC.
package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/atendehq/atende/internal/bus"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Fetcher downloads the binary resource behind a media id.
type Fetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, error)
}

// Cache is the lazy, idempotent media resolver.
type Cache struct {
	dir     string
	fetcher Fetcher
	bus     *bus.Bus
	logger  *zap.Logger

	mu       sync.Mutex
	ready    map[string]string // media id -> file path
	inflight map[string]bool
	failed   map[string]bool
}

// NewCache creates a cache rooted at dir, creating it if needed.
func NewCache(dir string, fetcher Fetcher, b *bus.Bus, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Cache{
		dir:      dir,
		fetcher:  fetcher,
		bus:      b,
		logger:   logger,
		ready:    make(map[string]string),
		inflight: make(map[string]bool),
		failed:   make(map[string]bool),
	}, nil
}

// Resolve ensures a fetch for mediaID is under way or already done. The id
// is marked in flight before the fetch goroutine starts, so re-entrant calls
// never trigger a second fetch. A failed fetch is recorded and not retried;
// the message simply renders without a preview.
func (c *Cache) Resolve(ctx context.Context, mediaID string) {
	if mediaID == "" {
		return
	}
	c.mu.Lock()
	if _, ok := c.ready[mediaID]; ok || c.inflight[mediaID] || c.failed[mediaID] {
		c.mu.Unlock()
		return
	}
	c.inflight[mediaID] = true
	c.mu.Unlock()

	go c.fetch(ctx, mediaID)
}

func (c *Cache) fetch(ctx context.Context, mediaID string) {
	data, err := c.fetcher.FetchMedia(ctx, mediaID)
	if err != nil {
		c.logger.Warn("media fetch failed", zap.String("media_id", mediaID), zap.Error(err))
		c.mu.Lock()
		delete(c.inflight, mediaID)
		c.failed[mediaID] = true
		c.mu.Unlock()
		return
	}

	ext := mimetype.Detect(data).Extension()
	path := filepath.Join(c.dir, safeName(mediaID)+ext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		c.logger.Warn("media write failed", zap.String("media_id", mediaID), zap.Error(err))
		c.mu.Lock()
		delete(c.inflight, mediaID)
		c.failed[mediaID] = true
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	delete(c.inflight, mediaID)
	c.ready[mediaID] = path
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(bus.Event{Kind: bus.KindMediaResolved, Payload: mediaID})
	}
}

// Lookup returns the local file path for a resolved media id.
func (c *Cache) Lookup(mediaID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.ready[mediaID]
	return path, ok
}

// Release frees the resource behind one media id. A released id may be
// resolved again later.
func (c *Cache) Release(mediaID string) {
	c.mu.Lock()
	path, ok := c.ready[mediaID]
	delete(c.ready, mediaID)
	delete(c.failed, mediaID)
	c.mu.Unlock()

	if ok {
		if err := os.Remove(path); err != nil {
			c.logger.Warn("media release failed", zap.String("media_id", mediaID), zap.Error(err))
		}
	}
}

// ReleaseAll frees every cached resource. Called on console teardown.
func (c *Cache) ReleaseAll() {
	c.mu.Lock()
	paths := make([]string, 0, len(c.ready))
	for _, p := range c.ready {
		paths = append(paths, p)
	}
	c.ready = make(map[string]string)
	c.failed = make(map[string]bool)
	c.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			c.logger.Warn("media release failed", zap.String("path", p), zap.Error(err))
		}
	}
}

// safeName maps an opaque media id onto a filesystem-safe name.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
