// Package cache keeps shaped video metadata in memory so repeated lookups of
// the same video skip the engine.
package cache

import (
	"time"

	"github.com/emanuelef/yt-info-api/internal/domain"
	gocache "github.com/patrickmn/go-cache"
)

// VideoCache maps canonical watch URLs to shaped metadata. Entries are copied
// on the way in and out, so callers may modify what they get.
type VideoCache struct {
	items *gocache.Cache
}

// New creates a VideoCache whose entries expire after ttl. Expired entries
// are purged every ttl/2.
func New(ttl time.Duration) *VideoCache {
	purge := ttl / 2
	if purge <= 0 {
		purge = ttl
	}
	return &VideoCache{items: gocache.New(ttl, purge)}
}

// Get returns a copy of the metadata cached for url.
func (c *VideoCache) Get(url string) (*domain.VideoInfo, bool) {
	v, found := c.items.Get(url)
	if !found {
		return nil, false
	}
	info, ok := v.(*domain.VideoInfo)
	if !ok {
		return nil, false
	}
	return clone(info), true
}

// Set caches a copy of info under url.
func (c *VideoCache) Set(url string, info *domain.VideoInfo) {
	if info == nil {
		return
	}
	c.items.SetDefault(url, clone(info))
}

func clone(info *domain.VideoInfo) *domain.VideoInfo {
	cp := *info
	cp.Formats = append([]domain.Format(nil), info.Formats...)
	return &cp
}
