package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// windowCache keeps each doctor's windows for reads. Every invalidation bumps
// the doctor's generation, and a fill read under an older generation is dropped
// so a slow read cannot put back windows that a commit already replaced.
type windowCache struct {
	mu    sync.Mutex
	items *gocache.Cache
	gen   map[uuid.UUID]uint64
}

func newWindowCache(ttl time.Duration) *windowCache {
	return &windowCache{
		items: gocache.New(ttl, 2*ttl),
		gen:   map[uuid.UUID]uint64{},
	}
}

func (c *windowCache) get(doctorID uuid.UUID) ([]*model.AvailabilityWindow, bool) {
	cached, ok := c.items.Get(doctorID.String())
	if !ok {
		return nil, false
	}
	return cloneWindows(cached.([]*model.AvailabilityWindow)), true
}

// generation is taken before reading the windows a later fill will store.
func (c *windowCache) generation(doctorID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[doctorID]
}

// fill stores windows read at generation gen. It reports false when the
// doctor was invalidated since.
func (c *windowCache) fill(doctorID uuid.UUID, gen uint64, windows []*model.AvailabilityWindow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[doctorID] != gen {
		return false
	}
	c.items.Set(doctorID.String(), cloneWindows(windows), gocache.DefaultExpiration)
	return true
}

// replace stores windows that were just committed.
func (c *windowCache) replace(doctorID uuid.UUID, windows []*model.AvailabilityWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[doctorID]++
	c.items.Set(doctorID.String(), cloneWindows(windows), gocache.DefaultExpiration)
}

func (c *windowCache) invalidate(doctorID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[doctorID]++
	c.items.Delete(doctorID.String())
}
