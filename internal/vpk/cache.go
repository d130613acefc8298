// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package vpk

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/golang/groupcache/singleflight"
	"github.com/spf13/afero"
)

// Cache shares opened archives between consumers. Each Acquire returns a
// Handle; the decoded tree is dropped when the last handle is released.
// Concurrent first opens of one path decode it once. Failed opens are not
// remembered.
type Cache struct {
	fs     afero.Fs
	logger *slog.Logger
	group  singleflight.Group

	mu   sync.Mutex
	open map[string]*cached
}

type cached struct {
	archive *Archive
	refs    int
}

// Handle is a counted reference to a cached Archive.
type Handle struct {
	*Archive
	cache *Cache
	key   string
	once  sync.Once
}

// NewCache creates an empty cache reading archives from fsys.
func NewCache(fsys afero.Fs, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{fs: fsys, logger: logger, open: make(map[string]*cached)}
}

// Acquire returns a handle to the archive at dirPath, opening it on first
// use.
func (c *Cache) Acquire(dirPath string) (*Handle, error) {
	key := filepath.Clean(dirPath)

	c.mu.Lock()
	if e, ok := c.open[key]; ok {
		e.refs++
		c.mu.Unlock()
		return &Handle{Archive: e.archive, cache: c, key: key}, nil
	}
	c.mu.Unlock()

	v, err := c.group.Do(key, func() (interface{}, error) {
		return Open(c.fs, key)
	})
	if err != nil {
		c.logger.Warn("archive open failed", "path", key, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.open[key]
	if !ok {
		e = &cached{archive: v.(*Archive)}
		c.open[key] = e
		c.logger.Debug("archive opened", "path", key)
	}
	e.refs++
	return &Handle{Archive: e.archive, cache: c, key: key}, nil
}

// Release drops this handle's reference. Calling it more than once has no
// further effect.
func (h *Handle) Release() {
	h.once.Do(func() { h.cache.release(h.key) })
}

func (c *Cache) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.open[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(c.open, key)
		c.logger.Debug("archive released", "path", key)
	}
}

// Len returns the number of archives currently held open.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.open)
}
