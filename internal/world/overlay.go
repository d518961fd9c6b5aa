package world

import (
	"log"
	"sync"

	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// Generator produces the procedural voxel value for a global
// coordinate. Implementations must be safe for concurrent use: workers
// call them from multiple goroutines. Returning Unset is a contract
// violation and is normalized to Air.
type Generator interface {
	Generate(c voxel.Coord) voxel.Voxel
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(c voxel.Coord) voxel.Voxel

func (f GeneratorFunc) Generate(c voxel.Coord) voxel.Voxel { return f(c) }

// Overlay holds user edits keyed by global coordinate. Edits land in a
// write buffer first and are committed by the tick thread; reads check
// the buffer before the committed map, so a writer always sees its own
// writes.
type Overlay struct {
	mu        sync.RWMutex
	committed map[voxel.Coord]voxel.Voxel
	pending   map[voxel.Coord]voxel.Voxel
	order     []voxel.Coord
}

func NewOverlay() *Overlay {
	return &Overlay{
		committed: make(map[voxel.Coord]voxel.Voxel),
		pending:   make(map[voxel.Coord]voxel.Voxel),
	}
}

// Set buffers an edit. Unset erases any earlier edit at the coordinate,
// handing it back to the generator.
func (o *Overlay) Set(c voxel.Coord, v voxel.Voxel) {
	o.mu.Lock()
	if _, seen := o.pending[c]; !seen {
		o.order = append(o.order, c)
	}
	o.pending[c] = v
	o.mu.Unlock()
}

// Get resolves a coordinate, pending edits first.
func (o *Overlay) Get(c voxel.Coord) (voxel.Voxel, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.pending[c]; ok {
		if v.IsUnset() {
			return voxel.Voxel{}, false
		}
		return v, true
	}
	v, ok := o.committed[c]
	return v, ok
}

// Commit moves buffered edits into the committed map and returns them
// in write order, so the caller can dirty the affected chunks.
func (o *Overlay) Commit() ([]voxel.Coord, []voxel.Voxel) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.order) == 0 {
		return nil, nil
	}
	coords := o.order
	values := make([]voxel.Voxel, len(coords))
	for i, c := range coords {
		v := o.pending[c]
		values[i] = v
		if v.IsUnset() {
			delete(o.committed, c)
		} else {
			o.committed[c] = v
		}
	}
	o.pending = make(map[voxel.Coord]voxel.Voxel)
	o.order = nil
	return coords, values
}

// Len reports the number of committed edits.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.committed)
}

// ForEach visits committed edits in unspecified order.
func (o *Overlay) ForEach(fn func(c voxel.Coord, v voxel.Voxel) bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for c, v := range o.committed {
		if !fn(c, v) {
			return
		}
	}
}

// Restore installs edits directly into the committed map, bypassing the
// write buffer. Used when loading persisted edits at startup.
func (o *Overlay) Restore(c voxel.Coord, v voxel.Voxel) {
	if v.IsUnset() {
		return
	}
	o.mu.Lock()
	o.committed[c] = v
	o.mu.Unlock()
}

// Lookup resolves voxel values for chunk generation: user edits win
// over the generator. It is the sampling source for buffer fills,
// apron included, so edited voxels land in every buffer whose padded
// region covers them.
type Lookup struct {
	overlay  *Overlay
	gen      Generator
	warnOnce sync.Once
}

func NewLookup(overlay *Overlay, gen Generator) *Lookup {
	return &Lookup{overlay: overlay, gen: gen}
}

// Resolve returns the effective voxel at a global coordinate. A
// generator that returns Unset gets normalized to Air, with a single
// warning for the whole run.
func (l *Lookup) Resolve(c voxel.Coord) voxel.Voxel {
	if v, ok := l.overlay.Get(c); ok {
		return v
	}
	v := l.gen.Generate(c)
	if v.IsUnset() {
		l.warnOnce.Do(func() {
			log.Printf("generator returned unset at %v, treating as air", c)
		})
		return voxel.Air()
	}
	return v
}
