package world

import (
	"log"
	"sync"

	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// ChunkMap holds the live chunk entries. Reads take the read lock and
// may come from any goroutine; structural mutation goes through the
// insert and remove buffers, which the tick thread drains with Flush so
// the map changes at one well defined point per tick.
type ChunkMap struct {
	size int

	mu     sync.RWMutex
	chunks map[voxel.ChunkCoord]*Chunk

	bufMu   sync.Mutex
	inserts []*Chunk
	removes []voxel.ChunkCoord
}

func NewChunkMap(size int) *ChunkMap {
	return &ChunkMap{
		size:   size,
		chunks: make(map[voxel.ChunkCoord]*Chunk),
	}
}

func (m *ChunkMap) ChunkSize() int { return m.size }

func (m *ChunkMap) Get(coord voxel.ChunkCoord) (*Chunk, bool) {
	m.mu.RLock()
	ch, ok := m.chunks[coord]
	m.mu.RUnlock()
	return ch, ok
}

func (m *ChunkMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// QueueInsert stages a chunk for insertion at the next Flush. The entry
// is not visible to Get until then.
func (m *ChunkMap) QueueInsert(ch *Chunk) {
	m.bufMu.Lock()
	m.inserts = append(m.inserts, ch)
	m.bufMu.Unlock()
}

// QueueRemove stages a coordinate for removal at the next Flush.
func (m *ChunkMap) QueueRemove(coord voxel.ChunkCoord) {
	m.bufMu.Lock()
	m.removes = append(m.removes, coord)
	m.bufMu.Unlock()
}

// Flush applies the staged inserts and removes. A staged insert never
// replaces a live entry, and a staged remove is only honored for chunks
// in the despawning state; anything else means the chunk was reused in
// the meantime and the remove is dropped. Returns the coordinates
// actually removed.
func (m *ChunkMap) Flush() []voxel.ChunkCoord {
	m.bufMu.Lock()
	inserts := m.inserts
	removes := m.removes
	m.inserts = nil
	m.removes = nil
	m.bufMu.Unlock()

	if len(inserts) == 0 && len(removes) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range inserts {
		if _, exists := m.chunks[ch.Coord]; exists {
			continue
		}
		m.chunks[ch.Coord] = ch
	}

	var removed []voxel.ChunkCoord
	for _, coord := range removes {
		ch, ok := m.chunks[coord]
		if !ok {
			continue
		}
		if st := ch.State(); st != StateDespawning {
			log.Printf("chunk %v remove dropped: state %v", coord, st)
			continue
		}
		ch.release()
		delete(m.chunks, coord)
		removed = append(removed, coord)
	}
	return removed
}

// ForEach visits every live chunk. fn must not mutate the map.
func (m *ChunkMap) ForEach(fn func(*Chunk) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.chunks {
		if !fn(ch) {
			return
		}
	}
}

// VoxelAt reads a voxel from a loaded chunk buffer. The second return
// is false when no chunk covers the coordinate or its buffer is not
// generated yet.
func (m *ChunkMap) VoxelAt(c voxel.Coord) (voxel.Voxel, bool) {
	coord, local := voxel.ChunkOf(c, m.size)
	ch, ok := m.Get(coord)
	if !ok {
		return voxel.Voxel{}, false
	}
	return ch.Voxel(local)
}

// Contains reports whether the coordinate has a live entry.
func (m *ChunkMap) Contains(coord voxel.ChunkCoord) bool {
	_, ok := m.Get(coord)
	return ok
}

// IsFull reports whether the chunk at the coordinate is known to be
// entirely solid.
func (m *ChunkMap) IsFull(coord voxel.ChunkCoord) bool {
	ch, ok := m.Get(coord)
	return ok && ch.IsFull()
}

// Spawned lists the coordinates of chunks currently in the spawned
// state.
func (m *ChunkMap) Spawned() []voxel.ChunkCoord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]voxel.ChunkCoord, 0, len(m.chunks))
	for coord, ch := range m.chunks {
		if ch.State() == StateSpawned {
			out = append(out, coord)
		}
	}
	return out
}
