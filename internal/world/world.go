package world

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/splashdust/bevy-voxel-world/internal/config"
	"github.com/splashdust/bevy-voxel-world/internal/meshcache"
	"github.com/splashdust/bevy-voxel-world/internal/meshing"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// Renderer receives mesh output as chunks spawn, remesh and despawn.
// Calls happen on the tick thread, after the tick's map mutations are
// committed. The mesh pointer stays valid until every chunk sharing it
// has despawned.
type Renderer interface {
	UploadMesh(coord voxel.ChunkCoord, hash voxel.ContentHash, mesh *meshing.Mesh)
	RemoveMesh(coord voxel.ChunkCoord)
}

// Hooks are lifecycle notifications, fired on the tick thread after the
// transition they report has been committed. Nil fields are skipped.
type Hooks struct {
	ChunkSpawned   func(coord voxel.ChunkCoord)
	ChunkRemeshed  func(coord voxel.ChunkCoord)
	ChunkDespawned func(coord voxel.ChunkCoord)
}

// World owns the chunk lifecycle around a moving observer: discovery,
// background generation and meshing, user edits, and despawn. Voxel
// reads and writes are safe from any goroutine; Tick and Close must
// come from a single goroutine.
type World struct {
	id  uuid.UUID
	cfg *config.Config

	chunks  *ChunkMap
	overlay *Overlay
	lookup  *Lookup
	cache   *meshcache.Cache
	pool    *pool

	renderer Renderer
	hooks    Hooks
	mapper   meshing.TextureIndexMapper
	editSink func(voxel.Coord, voxel.Voxel)
	rnd      *rand.Rand

	// Tick-thread state.
	nextEpoch  uint64
	lastObs    mgl64.Vec3
	hasEverRun bool
	// spawnBacklog forces discovery on the next tick when the last run
	// could not queue everything it found.
	spawnBacklog bool

	closed atomic.Bool
}

type Option func(*World)

func WithRenderer(r Renderer) Option {
	return func(w *World) { w.renderer = r }
}

func WithHooks(h Hooks) Option {
	return func(w *World) { w.hooks = h }
}

// WithTextureIndexMapper sets the material to texture-index mapping
// baked into mesh vertices as [top, sides, bottom].
func WithTextureIndexMapper(m meshing.TextureIndexMapper) Option {
	return func(w *World) { w.mapper = m }
}

// WithEditSink registers a callback invoked on the tick thread for
// every committed voxel edit, in commit order. Used to persist edits.
func WithEditSink(sink func(voxel.Coord, voxel.Voxel)) Option {
	return func(w *World) { w.editSink = sink }
}

// WithSeed makes discovery ray sampling deterministic.
func WithSeed(seed int64) Option {
	return func(w *World) { w.rnd = rand.New(rand.NewSource(seed)) }
}

func New(cfg *config.Config, gen Generator, opts ...Option) (*World, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	if gen == nil {
		return nil, fmt.Errorf("world: nil generator")
	}

	overlay := NewOverlay()
	w := &World{
		id:      uuid.New(),
		cfg:     cfg,
		chunks:  NewChunkMap(cfg.World.ChunkSize),
		overlay: overlay,
		lookup:  NewLookup(overlay, gen),
		cache:   meshcache.New(),
		mapper: func(mat uint8) [3]uint32 {
			i := uint32(mat)
			return [3]uint32{i, i, i}
		},
		rnd: rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.pool = newPool(
		cfg.Meshing.Workers,
		cfg.Meshing.QueueSize,
		cfg.Meshing.ResultBuffer,
		w.cache,
		w.mapper,
	)
	return w, nil
}

func (w *World) ID() uuid.UUID           { return w.id }
func (w *World) Chunks() *ChunkMap       { return w.chunks }
func (w *World) Overlay() *Overlay       { return w.overlay }
func (w *World) Cache() *meshcache.Cache { return w.cache }

// GetVoxel resolves a global coordinate: buffered and committed edits
// first, then a loaded chunk buffer, then the procedural generator.
func (w *World) GetVoxel(c voxel.Coord) voxel.Voxel {
	if v, ok := w.overlay.Get(c); ok {
		return v
	}
	if v, ok := w.chunks.VoxelAt(c); ok {
		return v
	}
	return w.lookup.Resolve(c)
}

// SetVoxel records an edit. The edit is immediately visible to GetVoxel
// and is folded into chunk buffers and meshes on the next tick.
func (w *World) SetVoxel(c voxel.Coord, v voxel.Voxel) {
	w.overlay.Set(c, v)
}

// RaycastHit describes the first voxel a ray hit.
type RaycastHit struct {
	Coord voxel.Coord
	Voxel voxel.Voxel
	// Face is the face the ray entered through, FaceNone when the ray
	// started inside the voxel.
	Face voxel.Face
	// Position is the point on the segment where the voxel was entered.
	Position mgl64.Vec3
}

// Raycast walks the segment from origin along dir for maxDist and
// returns the first solid voxel accepted by filter. A nil filter
// accepts everything.
func (w *World) Raycast(origin, dir mgl64.Vec3, maxDist float64, filter func(voxel.Coord, voxel.Voxel) bool) (RaycastHit, bool) {
	if maxDist <= 0 || dir.Len() == 0 {
		return RaycastHit{}, false
	}
	end := origin.Add(dir.Normalize().Mul(maxDist))

	var hit RaycastHit
	found := false
	voxel.LineTraversal(origin, end, func(c voxel.Coord, t float64, face voxel.Face) bool {
		v := w.GetVoxel(c)
		if !v.IsSolid() {
			return true
		}
		if filter != nil && !filter(c, v) {
			return true
		}
		hit = RaycastHit{
			Coord:    c,
			Voxel:    v,
			Face:     face,
			Position: origin.Add(end.Sub(origin).Mul(t)),
		}
		found = true
		return false
	})
	return hit, found
}

// Stats is a point-in-time snapshot of world counters.
type Stats struct {
	ID           uuid.UUID
	Chunks       int
	Spawned      int
	OverlayEdits int
	CacheEntries int
	CacheHits    int64
	CacheBuilds  int64
	Generated    int64
	Meshed       int64
	Panics       int64
}

func (w *World) Stats() Stats {
	hits, builds := w.cache.Stats()
	return Stats{
		ID:           w.id,
		Chunks:       w.chunks.Len(),
		Spawned:      len(w.chunks.Spawned()),
		OverlayEdits: w.overlay.Len(),
		CacheEntries: w.cache.Len(),
		CacheHits:    hits,
		CacheBuilds:  builds,
		Generated:    w.pool.generated.Load(),
		Meshed:       w.pool.meshed.Load(),
		Panics:       w.pool.panics.Load(),
	}
}

// Close stops the workers and releases every mesh handle. The world
// must not be used afterwards.
func (w *World) Close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.pool.close()
	w.chunks.ForEach(func(ch *Chunk) bool {
		ch.release()
		return true
	})
}
