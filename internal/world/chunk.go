package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/splashdust/bevy-voxel-world/internal/meshcache"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// ErrStaleTransition reports a lifecycle transition that no longer
// applies because the chunk moved on, typically a worker result arriving
// after the chunk was despawned or re-queued. Callers discard the work
// and log, they do not surface this to the user.
var ErrStaleTransition = errors.New("stale chunk transition")

// ChunkState is a chunk's position in the lifecycle. Transitions are
// applied on the tick thread only and follow a fixed order; any other
// transition is rejected.
type ChunkState uint8

const (
	StateUnspawned ChunkState = iota
	StateLoading
	StateMeshing
	StateSpawned
	StateDespawning
)

func (s ChunkState) String() string {
	switch s {
	case StateUnspawned:
		return "unspawned"
	case StateLoading:
		return "loading"
	case StateMeshing:
		return "meshing"
	case StateSpawned:
		return "spawned"
	case StateDespawning:
		return "despawning"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// FillType classifies a generated buffer so later stages can skip work:
// empty chunks never mesh, full uniform chunks terminate discovery rays.
type FillType uint8

const (
	FillMixed FillType = iota
	FillEmpty
	FillUniform
)

// Chunk is one live entry in the chunk map. Lifecycle transitions and
// buffer swaps happen on the tick thread; voxel reads may come from any
// goroutine, so mutable fields sit behind the chunk's own lock.
type Chunk struct {
	Coord voxel.ChunkCoord

	mu    sync.RWMutex
	state ChunkState
	// epoch distinguishes lifetimes at the same coordinate. A worker
	// result carries the epoch of the chunk that queued it and is
	// discarded on mismatch.
	epoch uint64

	buf         *voxel.Buffer
	hash        voxel.ContentHash
	fill        FillType
	uniformMat  uint8
	mesh        *meshcache.Handle
	failures    int
	needsRemesh bool
	// retryGenerate marks a failed generation whose resubmission did
	// not fit the job queue; the scheduler retries it each tick.
	retryGenerate bool
}

func newChunk(coord voxel.ChunkCoord, epoch uint64) *Chunk {
	return &Chunk{Coord: coord, epoch: epoch}
}

func (c *Chunk) State() ChunkState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Chunk) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

func (c *Chunk) Hash() voxel.ContentHash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hash
}

func (c *Chunk) Fill() FillType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fill
}

func (c *Chunk) Mesh() *meshcache.Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mesh
}

func (c *Chunk) IsFull() bool {
	return c.Fill() == FillUniform
}

func (c *Chunk) IsEmpty() bool {
	return c.Fill() == FillEmpty
}

// Voxel reads one interior voxel from the generated buffer. ok is false
// while the buffer has not been generated yet.
func (c *Chunk) Voxel(local voxel.Coord) (voxel.Voxel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.buf == nil {
		return voxel.Voxel{}, false
	}
	v, err := c.buf.Get(local.X, local.Y, local.Z)
	if err != nil {
		return voxel.Voxel{}, false
	}
	return v, true
}

// transition moves the chunk to the next state, enforcing the legal
// order. Spawned chunks may re-enter meshing for a remesh; despawning
// is reachable from every state except itself.
func (c *Chunk) transition(to ChunkState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	legal := false
	switch to {
	case StateLoading:
		legal = c.state == StateUnspawned
	case StateMeshing:
		legal = c.state == StateLoading || c.state == StateSpawned
	case StateSpawned:
		legal = c.state == StateMeshing
	case StateDespawning:
		legal = c.state != StateDespawning
	}
	if !legal {
		return fmt.Errorf("chunk %v: %s -> %s: %w", c.Coord, c.state, to, ErrStaleTransition)
	}
	c.state = to
	return nil
}

// setGenerated installs a freshly generated buffer and its derived
// classification.
func (c *Chunk) setGenerated(buf *voxel.Buffer, hash voxel.ContentHash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = buf
	c.hash = hash
	c.fill, c.uniformMat = classify(buf)
}

// setMesh swaps in a new cache handle, releasing the previous one.
func (c *Chunk) setMesh(h *meshcache.Handle) {
	c.mu.Lock()
	old := c.mesh
	c.mesh = h
	c.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

// applyEdit writes one voxel at a padded-local offset and recomputes the
// hash and fill classification. The offset may land in the apron.
func (c *Chunk) applyEdit(offset voxel.Coord, v voxel.Voxel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf == nil {
		return nil
	}
	if err := c.buf.SetAt(offset.X, offset.Y, offset.Z, v); err != nil {
		return err
	}
	c.hash = c.buf.Hash()
	c.fill, c.uniformMat = classify(c.buf)
	return nil
}

// Snapshot returns a copy of the buffer and its content hash, or nil
// while the chunk has not been generated.
func (c *Chunk) Snapshot() (*voxel.Buffer, voxel.ContentHash) {
	return c.cloneBuffer()
}

// cloneBuffer snapshots the buffer for a mesh worker.
func (c *Chunk) cloneBuffer() (*voxel.Buffer, voxel.ContentHash) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.buf == nil {
		return nil, voxel.ContentHash{}
	}
	return c.buf.Clone(), c.hash
}

// release drops the buffer and mesh handle when the chunk leaves the
// map.
func (c *Chunk) release() {
	c.mu.Lock()
	old := c.mesh
	c.mesh = nil
	c.buf = nil
	c.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

func classify(buf *voxel.Buffer) (FillType, uint8) {
	if buf.SolidCount() == 0 {
		return FillEmpty, 0
	}
	if mat, ok := buf.UniformMaterial(); ok {
		return FillUniform, mat
	}
	return FillMixed, 0
}
