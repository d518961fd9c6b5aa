package world

import (
	"errors"
	"log"

	"github.com/splashdust/bevy-voxel-world/internal/config"
	"github.com/splashdust/bevy-voxel-world/internal/discovery"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// TickStats reports what one scheduler tick did.
type TickStats struct {
	DiscoveryRan bool
	SpawnQueued  int
	Generated    int
	Meshed       int
	Despawned    int
	Edits        int
	Stale        int
	Failed       int
}

type eventKind uint8

const (
	eventSpawned eventKind = iota
	eventRemeshed
	eventDespawned
)

type event struct {
	kind  eventKind
	coord voxel.ChunkCoord
}

// Tick advances the chunk lifecycle one step: commit pending edits,
// fold in finished worker results, run discovery when the observer
// moved far enough, queue spawns and despawns, queue remeshes, then
// flush the map and fire lifecycle hooks. Must be called from a single
// goroutine.
//
// Results are drained before new spawns are queued: a chunk inserted
// this tick only becomes visible at the end-of-tick Flush, so draining
// afterwards could mistake a same-tick result for a stale one and
// strand the chunk in Loading.
func (w *World) Tick(obs discovery.Observer) TickStats {
	var stats TickStats
	var events []event

	stats.Edits = w.commitEdits()

	for _, res := range w.pool.drain(0) {
		switch res.kind {
		case jobGenerate:
			w.applyGenerated(res, &stats, &events)
		case jobMesh:
			w.applyMeshed(res, &stats, &events)
		}
	}

	moved := !w.hasEverRun || w.spawnBacklog ||
		obs.Position.Sub(w.lastObs).Len() >= w.cfg.Discovery.MovementThreshold
	if moved {
		diff := discovery.Run(obs, w.chunks, w.discoveryOptions(), w.rnd)
		w.lastObs = obs.Position
		w.hasEverRun = true
		stats.DiscoveryRan = true

		var shortfall bool
		stats.SpawnQueued, shortfall = w.queueSpawns(diff.ToSpawn)
		// A capped or partially submitted diff leaves chunks behind
		// that a stationary observer would otherwise never revisit.
		limit := w.cfg.Discovery.MaxSpawnPerTick
		w.spawnBacklog = shortfall || (limit > 0 && len(diff.ToSpawn) >= limit)
		w.queueDespawns(diff.ToDespawn, &stats)
	}

	w.queueRemeshes()

	for _, coord := range w.chunks.Flush() {
		if w.renderer != nil {
			w.renderer.RemoveMesh(coord)
		}
		events = append(events, event{kind: eventDespawned, coord: coord})
		stats.Despawned++
	}

	w.fire(events)
	return stats
}

func (w *World) discoveryOptions() discovery.Options {
	d := w.cfg.Discovery
	opts := discovery.Options{
		ChunkSize:      w.cfg.World.ChunkSize,
		SpawnRadius:    d.SpawnRadius,
		MinSpawnRadius: d.MinSpawnRadius,
		SpawningRays:   d.SpawningRays,
		RayMargin:      d.RayMargin,
		MaxSpawn:       d.MaxSpawnPerTick,
	}
	if d.SpawnStrategy == config.SpawnStrategyClose {
		opts.Strategy = discovery.StrategyClose
	}
	if d.DespawnStrategy == config.DespawnStrategyOutOfView {
		opts.DespawnStrategy = discovery.DespawnOutOfView
	}
	return opts
}

// commitEdits folds buffered voxel writes into the committed overlay
// and into every loaded buffer whose padded region covers them.
func (w *World) commitEdits() int {
	coords, values := w.overlay.Commit()
	if len(coords) == 0 {
		return 0
	}
	size := w.cfg.World.ChunkSize

	for i, c := range coords {
		if w.editSink != nil {
			w.editSink(c, values[i])
		}
		// An erased edit hands the coordinate back to the generator.
		eff := values[i]
		if eff.IsUnset() {
			eff = w.lookup.Resolve(c)
		}

		chunk, local := voxel.ChunkOf(c, size)
		for _, dx := range apronSpan(local.X, size) {
			for _, dy := range apronSpan(local.Y, size) {
				for _, dz := range apronSpan(local.Z, size) {
					cc := chunk.Add(voxel.ChunkCoord{X: dx, Y: dy, Z: dz})
					ch, ok := w.chunks.Get(cc)
					if !ok {
						continue
					}
					offset := voxel.Coord{
						X: local.X - dx*size,
						Y: local.Y - dy*size,
						Z: local.Z - dz*size,
					}
					if err := ch.applyEdit(offset, eff); err != nil {
						log.Printf("chunk %v apply edit at %v: %v", cc, c, err)
						continue
					}
					ch.needsRemesh = true
				}
			}
		}
	}
	return len(coords)
}

// apronSpan lists the chunk offsets along one axis whose padded buffer
// covers a voxel at the given local coordinate: always the owning
// chunk, plus the neighbor when the voxel sits on a boundary.
func apronSpan(local, size int) []int {
	switch {
	case local == 0:
		return []int{0, -1}
	case local == size-1:
		return []int{0, 1}
	default:
		return []int{0}
	}
}

func (w *World) queueSpawns(toSpawn []voxel.ChunkCoord) (queued int, shortfall bool) {
	for _, coord := range toSpawn {
		if w.chunks.Contains(coord) {
			continue
		}
		w.nextEpoch++
		ch := newChunk(coord, w.nextEpoch)
		if err := ch.transition(StateLoading); err != nil {
			log.Printf("chunk %v enter loading: %v", coord, err)
			continue
		}
		ok := w.pool.submit(job{
			kind:    jobGenerate,
			coord:   coord,
			epoch:   ch.epoch,
			size:    w.cfg.World.ChunkSize,
			origin:  coord.Origin(w.cfg.World.ChunkSize),
			resolve: w.lookup.Resolve,
		})
		if !ok {
			// Queue full. The coordinate stays absent; the backlog
			// flag makes discovery find it again next tick.
			shortfall = true
			continue
		}
		w.chunks.QueueInsert(ch)
		queued++
	}
	return queued, shortfall
}

func (w *World) queueDespawns(toDespawn []voxel.ChunkCoord, stats *TickStats) {
	for _, coord := range toDespawn {
		ch, ok := w.chunks.Get(coord)
		if !ok {
			continue
		}
		if err := ch.transition(StateDespawning); err != nil {
			if errors.Is(err, ErrStaleTransition) {
				stats.Stale++
				continue
			}
			log.Printf("chunk %v despawn: %v", coord, err)
			continue
		}
		w.chunks.QueueRemove(coord)
	}
}

// applyGenerated installs a finished generation result. Results for
// chunks that despawned or were reborn in the meantime are discarded.
func (w *World) applyGenerated(res result, stats *TickStats, events *[]event) {
	ch, ok := w.chunks.Get(res.coord)
	if !ok || ch.Epoch() != res.epoch {
		stats.Stale++
		return
	}
	if res.err != nil {
		w.failChunk(ch, res.err, stats)
		return
	}
	if ch.State() != StateLoading {
		stats.Stale++
		return
	}

	ch.setGenerated(res.buf, res.hash)
	w.reapplyOverlay(ch)
	if err := ch.transition(StateMeshing); err != nil {
		stats.Stale++
		return
	}
	stats.Generated++

	if ch.IsEmpty() {
		// Nothing to mesh. The chunk spawns without geometry.
		if err := ch.transition(StateSpawned); err != nil {
			stats.Stale++
			return
		}
		ch.needsRemesh = false
		*events = append(*events, event{kind: eventSpawned, coord: res.coord})
		return
	}
	// The submitted job already sees any edit folded in above, so a
	// remesh flag set while the chunk was loading is satisfied by it.
	ch.needsRemesh = !w.submitMesh(ch)
}

// reapplyOverlay folds committed edits into a freshly generated
// buffer. The generate job samples the overlay while filling, but an
// edit committed between that sampling and the result landing here
// would otherwise be missing from the buffer.
func (w *World) reapplyOverlay(ch *Chunk) {
	size := w.cfg.World.ChunkSize
	origin := ch.Coord.Origin(size)
	w.overlay.ForEach(func(c voxel.Coord, v voxel.Voxel) bool {
		rel := voxel.Coord{X: c.X - origin.X, Y: c.Y - origin.Y, Z: c.Z - origin.Z}
		if rel.X < -1 || rel.Y < -1 || rel.Z < -1 ||
			rel.X > size || rel.Y > size || rel.Z > size {
			return true
		}
		if err := ch.applyEdit(rel, v); err != nil {
			log.Printf("chunk %v reapply edit at %v: %v", ch.Coord, c, err)
		}
		return true
	})
}

// applyMeshed installs a finished mesh result. A buffer edit that
// landed while the job ran shows up as a hash mismatch; the handle is
// returned to the cache and the chunk is remeshed from current data.
func (w *World) applyMeshed(res result, stats *TickStats, events *[]event) {
	ch, ok := w.chunks.Get(res.coord)
	if !ok || ch.Epoch() != res.epoch || ch.State() != StateMeshing {
		if res.handle != nil {
			res.handle.Release()
		}
		stats.Stale++
		return
	}
	if res.err != nil {
		w.failChunk(ch, res.err, stats)
		return
	}
	if res.hash != ch.Hash() {
		res.handle.Release()
		ch.needsRemesh = true
		stats.Stale++
		return
	}

	first := ch.Mesh() == nil
	ch.setMesh(res.handle)
	if err := ch.transition(StateSpawned); err != nil {
		ch.setMesh(nil)
		stats.Stale++
		return
	}
	ch.failures = 0
	stats.Meshed++

	if w.renderer != nil {
		w.renderer.UploadMesh(res.coord, res.hash, res.handle.Mesh())
	}
	kind := eventRemeshed
	if first {
		kind = eventSpawned
	}
	*events = append(*events, event{kind: kind, coord: res.coord})
}

// failChunk counts a worker failure and retires the chunk once its
// retries are exhausted.
func (w *World) failChunk(ch *Chunk, err error, stats *TickStats) {
	ch.failures++
	stats.Failed++
	log.Printf("chunk %v worker failure %d/%d: %v",
		ch.Coord, ch.failures, w.cfg.World.MaxGenerationRetries, err)
	if ch.failures <= w.cfg.World.MaxGenerationRetries {
		switch ch.State() {
		case StateLoading:
			if !w.resubmitGenerate(ch) {
				ch.retryGenerate = true
			}
		case StateMeshing:
			ch.needsRemesh = true
		}
		return
	}
	if err := ch.transition(StateDespawning); err == nil {
		w.chunks.QueueRemove(ch.Coord)
	}
}

func (w *World) resubmitGenerate(ch *Chunk) bool {
	return w.pool.submit(job{
		kind:    jobGenerate,
		coord:   ch.Coord,
		epoch:   ch.epoch,
		size:    w.cfg.World.ChunkSize,
		origin:  ch.Coord.Origin(w.cfg.World.ChunkSize),
		resolve: w.lookup.Resolve,
	})
}

// queueRemeshes submits mesh jobs for chunks whose buffer changed, and
// retries submissions that did not fit the queue earlier.
func (w *World) queueRemeshes() {
	w.chunks.ForEach(func(ch *Chunk) bool {
		if ch.retryGenerate {
			if ch.State() == StateLoading && !w.resubmitGenerate(ch) {
				return true
			}
			ch.retryGenerate = false
			return true
		}
		if !ch.needsRemesh {
			return true
		}
		switch ch.State() {
		case StateSpawned:
			if ch.IsEmpty() {
				// Edit cleared the last solid voxel: drop the mesh.
				ch.setMesh(nil)
				if w.renderer != nil {
					w.renderer.RemoveMesh(ch.Coord)
				}
				ch.needsRemesh = false
				return true
			}
			if err := ch.transition(StateMeshing); err != nil {
				return true
			}
			if w.submitMesh(ch) {
				ch.needsRemesh = false
			}
		case StateMeshing:
			if w.submitMesh(ch) {
				ch.needsRemesh = false
			}
		}
		return true
	})
}

func (w *World) submitMesh(ch *Chunk) bool {
	buf, hash := ch.cloneBuffer()
	if buf == nil {
		return false
	}
	return w.pool.submit(job{
		kind:  jobMesh,
		coord: ch.Coord,
		epoch: ch.epoch,
		buf:   buf,
		hash:  hash,
	})
}

func (w *World) fire(events []event) {
	for _, e := range events {
		switch e.kind {
		case eventSpawned:
			if w.hooks.ChunkSpawned != nil {
				w.hooks.ChunkSpawned(e.coord)
			}
		case eventRemeshed:
			if w.hooks.ChunkRemeshed != nil {
				w.hooks.ChunkRemeshed(e.coord)
			}
		case eventDespawned:
			if w.hooks.ChunkDespawned != nil {
				w.hooks.ChunkDespawned(e.coord)
			}
		}
	}
}
