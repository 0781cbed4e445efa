// Package regionflag caches region policy flags (sanctuary, aggro mode)
// behind a synchronous, never-blocking read. Cached entries are refreshed
// in the background at most once per 5s per key (spec.md §5); a key never
// fetched successfully triggers a background fetch on every read, with
// concurrent fetches for one key collapsed into one. The synchronous call
// always returns the last known value immediately.
package regionflag

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/simclock"
)

// Source is the external RegionFlagService collaborator (spec.md §1).
type Source interface {
	FetchRegionFlags(ctx context.Context, regionID string) (data.RegionFlags, error)
}

type entry struct {
	flags       data.RegionFlags
	lastRefresh time.Time
}

// Cache is the synchronous-read, background-refresh region-flag cache.
type Cache struct {
	mu            sync.RWMutex
	entries       map[string]entry
	source        Source
	clock         simclock.Clock
	minRefreshGap time.Duration
	group         singleflight.Group
	log           *zap.Logger
}

func NewCache(source Source, clock simclock.Clock, log *zap.Logger) *Cache {
	return &Cache{
		entries:       make(map[string]entry),
		source:        source,
		clock:         clock,
		minRefreshGap: 5 * time.Second,
		log:           log,
	}
}

// Get returns the last known flags for regionID (or the zero value/default
// if never fetched), and kicks off a throttled background refresh. It never
// blocks the caller.
func (c *Cache) Get(regionID string) data.RegionFlags {
	c.mu.RLock()
	e, ok := c.entries[regionID]
	c.mu.RUnlock()

	now := c.clock.Now()
	if !ok || now.Sub(e.lastRefresh) >= c.minRefreshGap {
		c.triggerRefresh(regionID)
	}
	return e.flags
}

func (c *Cache) triggerRefresh(regionID string) {
	if c.source == nil {
		return
	}
	// singleflight collapses concurrent misses for the same region into one
	// fetch (spec.md §2.6 domain-stack wiring).
	go func() {
		_, _, _ = c.group.Do(regionID, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			flags, err := c.source.FetchRegionFlags(ctx, regionID)
			if err != nil {
				if c.log != nil {
					c.log.Warn("region flag refresh failed", zap.String("region", regionID), zap.Error(err))
				}
				return nil, err
			}
			c.mu.Lock()
			c.entries[regionID] = entry{flags: flags, lastRefresh: c.clock.Now()}
			c.mu.Unlock()
			return nil, nil
		})
	}()
}
