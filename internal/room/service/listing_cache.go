package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/staypoint/internal/cache"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
)

// listingCache keeps short-lived room listings keyed by business and filter.
// Invalidate bumps the business generation, orphaning every cached key for
// that business instead of tracking them individually.
type listingCache struct {
	ttl time.Duration

	mu          sync.Mutex
	generations map[snowflake.ID]uint64

	entries cache.Cache[string, []roomdomain.Room]
}

func newListingCache(ttl time.Duration) *listingCache {
	return &listingCache{
		ttl:         ttl,
		generations: make(map[snowflake.ID]uint64),
		entries:     cache.NewTTLCache[string, []roomdomain.Room](),
	}
}

func (c *listingCache) Get(businessID snowflake.ID, filter roomdomain.ListRoomFilter) ([]roomdomain.Room, bool) {
	rooms, ok := c.entries.Get(c.key(businessID, filter))
	if !ok {
		return nil, false
	}
	return append([]roomdomain.Room(nil), rooms...), true
}

func (c *listingCache) Set(businessID snowflake.ID, filter roomdomain.ListRoomFilter, rooms []roomdomain.Room) {
	cloned := append([]roomdomain.Room(nil), rooms...)
	c.entries.Set(c.key(businessID, filter), cloned, c.ttl)
}

func (c *listingCache) Invalidate(businessID snowflake.ID) {
	c.mu.Lock()
	c.generations[businessID]++
	c.mu.Unlock()
}

func (c *listingCache) key(businessID snowflake.ID, filter roomdomain.ListRoomFilter) string {
	c.mu.Lock()
	gen := c.generations[businessID]
	c.mu.Unlock()
	return fmt.Sprintf("%d|%d|%s|%d", businessID, gen, filter.Status, filter.CategoryID)
}
