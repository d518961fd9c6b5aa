// Package meshcache deduplicates chunk meshes by voxel content hash.
// Many chunks with identical contents (large flat or underground areas)
// share a single mesh record, so the renderer can batch or instance
// them and only one copy is ever computed.
package meshcache

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/splashdust/bevy-voxel-world/internal/meshing"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// record is a cached mesh with its reference count. The cache is the
// sole owner of the mesh; chunk entries hold counted Handles only.
type record struct {
	mesh *meshing.Mesh
	refs int

	// building is true while the initial computation is in flight;
	// done is closed when it finishes.
	building bool
	done     chan struct{}
	err      error
}

type Cache struct {
	mu      sync.Mutex
	records map[voxel.ContentHash]*record

	hits   atomic.Int64
	builds atomic.Int64
}

func New() *Cache {
	return &Cache{
		records: make(map[voxel.ContentHash]*record),
	}
}

// Handle is a counted reference to a cached mesh. Release must be
// called exactly once when the referencing chunk despawns or replaces
// its mesh; the underlying record is reclaimed when the last handle is
// released.
type Handle struct {
	cache *Cache
	hash  voxel.ContentHash
	rec   *record
	once  sync.Once
}

func (h *Handle) Mesh() *meshing.Mesh { return h.rec.mesh }

func (h *Handle) Hash() voxel.ContentHash { return h.hash }

func (h *Handle) Release() {
	h.once.Do(func() {
		h.cache.release(h.hash, h.rec)
	})
}

// GetOrBuild returns a handle for the mesh with the given content hash,
// invoking build at most once per distinct hash. Concurrent callers for
// a hash whose computation is in flight wait for that single
// computation instead of duplicating it. A failed build is forgotten so
// a later call can retry.
func (c *Cache) GetOrBuild(hash voxel.ContentHash, build func() (*meshing.Mesh, error)) (*Handle, error) {
	for {
		c.mu.Lock()
		rec, ok := c.records[hash]
		if !ok {
			rec = &record{building: true, done: make(chan struct{})}
			c.records[hash] = rec
			c.mu.Unlock()

			mesh, err := build()

			c.mu.Lock()
			rec.mesh = mesh
			rec.err = err
			rec.building = false
			close(rec.done)
			if err != nil {
				delete(c.records, hash)
				c.mu.Unlock()
				return nil, fmt.Errorf("build mesh %v: %w", hash, err)
			}
			rec.refs = 1
			c.mu.Unlock()
			c.builds.Inc()
			return &Handle{cache: c, hash: hash, rec: rec}, nil
		}

		if rec.building {
			c.mu.Unlock()
			<-rec.done
			// The winner may have failed or the record may have been
			// fully released in the meantime; re-check from the top.
			c.mu.Lock()
			cur, ok := c.records[hash]
			if !ok || cur != rec || cur.building {
				c.mu.Unlock()
				continue
			}
		}

		rec.refs++
		c.mu.Unlock()
		c.hits.Inc()
		return &Handle{cache: c, hash: hash, rec: rec}, nil
	}
}

func (c *Cache) release(hash voxel.ContentHash, rec *record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec.refs--
	if rec.refs <= 0 {
		if cur, ok := c.records[hash]; ok && cur == rec {
			delete(c.records, hash)
		}
	}
}

// RefCount returns the current reference count for a hash, or 0 if the
// mesh is not cached.
func (c *Cache) RefCount(hash voxel.ContentHash) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.records[hash]; ok {
		return rec.refs
	}
	return 0
}

// Len returns the number of live cache records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Stats reports cumulative cache hits and mesh builds.
func (c *Cache) Stats() (hits, builds int64) {
	return c.hits.Load(), c.builds.Load()
}
