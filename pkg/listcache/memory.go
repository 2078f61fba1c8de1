package listcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/projecthub/pkg/projects"
)

type memoryEntry struct {
	projects  []*projects.Project
	expiresAt time.Time
}

// MemoryCache is an in-process LRU of visible-projects lists
type MemoryCache struct {
	cache *lru.LRU[int64, memoryEntry]
	now   func() time.Time
}

// NewMemoryCache creates a cache holding at most size users. maxTTL bounds
// every entry; Put may ask for less.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size < 1 {
		size = 1024
	}
	return &MemoryCache{
		cache: lru.NewLRU[int64, memoryEntry](size, nil, maxTTL),
		now:   time.Now,
	}
}

// Get returns a copy of the cached list
func (c *MemoryCache) Get(ctx context.Context, userID int64) ([]*projects.Project, bool, error) {
	entry, ok := c.cache.Get(userID)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.cache.Remove(userID)
		return nil, false, nil
	}
	return cloneProjects(entry.projects), true, nil
}

// Put stores a copy of list for ttl. A non-positive ttl only uses the
// cache-wide bound.
func (c *MemoryCache) Put(ctx context.Context, userID int64, list []*projects.Project, ttl time.Duration) error {
	entry := memoryEntry{projects: cloneProjects(list)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(userID, entry)
	return nil
}

// Invalidate drops the entries of every listed user
func (c *MemoryCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	for _, id := range userIDs {
		c.cache.Remove(id)
	}
	return nil
}

// Len reports the number of cached users
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

func cloneProjects(in []*projects.Project) []*projects.Project {
	out := make([]*projects.Project, len(in))
	for i, p := range in {
		cp := *p
		out[i] = &cp
	}
	return out
}
