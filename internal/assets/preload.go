// Package assets preloads the decorative media of the kiosk into memory.
// A failed asset is logged and skipped; it never blocks a draw.
package assets

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sync"

	"github.com/google/logger"
	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds concurrent file reads during preload.
const maxParallelLoads = 4

// Asset is a cached media file.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Cache holds the configured media of a filesystem. Only the names it was
// created with are ever loaded, so its size is bounded by that list.
type Cache struct {
	fsys    fs.FS
	names   []string
	allowed map[string]bool

	mu     sync.RWMutex
	assets map[string]*Asset
	failed map[string]string
}

// NewCache creates an empty cache for the given asset names under fsys.
func NewCache(fsys fs.FS, names []string) *Cache {
	c := &Cache{
		fsys:    fsys,
		allowed: make(map[string]bool, len(names)),
		assets:  make(map[string]*Asset),
		failed:  make(map[string]string),
	}
	for _, name := range names {
		name = path.Clean(name)
		if !c.allowed[name] {
			c.allowed[name] = true
			c.names = append(c.names, name)
		}
	}
	return c
}

// Preload loads the configured assets in parallel and returns how many succeeded.
// Each asset is loaded independently; failures are recorded, not returned.
func (c *Cache) Preload(ctx context.Context) int {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for _, name := range c.names {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				c.markFailed(name, err)
				return nil
			}
			if _, err := c.load(name); err != nil {
				c.markFailed(name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.assets)
}

// Get returns a configured asset, loading it when the preload missed it.
// Names outside the configured list are never read.
func (c *Cache) Get(name string) (*Asset, bool) {
	name = path.Clean(name)
	if !c.allowed[name] {
		return nil, false
	}
	c.mu.RLock()
	a, ok := c.assets[name]
	c.mu.RUnlock()
	if ok {
		return a, true
	}
	a, err := c.load(name)
	if err != nil {
		c.markFailed(name, err)
		return nil, false
	}
	return a, true
}

// Failed returns the assets that could not be loaded, with the reason.
func (c *Cache) Failed() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.failed))
	for k, v := range c.failed {
		out[k] = v
	}
	return out
}

func (c *Cache) load(name string) (*Asset, error) {
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid asset path %q", name)
	}
	data, err := fs.ReadFile(c.fsys, name)
	if err != nil {
		return nil, err
	}
	a := &Asset{Name: name, ContentType: http.DetectContentType(data), Data: data}
	if ct := contentTypeByExt(name); ct != "" {
		a.ContentType = ct
	}

	c.mu.Lock()
	c.assets[name] = a
	delete(c.failed, name)
	c.mu.Unlock()
	return a, nil
}

func (c *Cache) markFailed(name string, err error) {
	logger.Warningf("asset %s not loaded: %v", name, err)
	c.mu.Lock()
	c.failed[path.Clean(name)] = err.Error()
	c.mu.Unlock()
}

func contentTypeByExt(name string) string {
	switch path.Ext(name) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	}
	return ""
}
