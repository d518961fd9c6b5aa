package world

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/splashdust/bevy-voxel-world/internal/meshcache"
	"github.com/splashdust/bevy-voxel-world/internal/meshing"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// ErrGeneratorPanic wraps a panic recovered inside a worker job. The
// panic is contained to the job; the worker keeps running.
var ErrGeneratorPanic = errors.New("generator panic")

type jobKind uint8

const (
	jobGenerate jobKind = iota
	jobMesh
)

// job is one unit of background work. Generate jobs fill a fresh
// buffer through the lookup layer; mesh jobs turn a buffer snapshot
// into a cached mesh handle.
type job struct {
	kind  jobKind
	coord voxel.ChunkCoord
	epoch uint64

	size    int
	origin  voxel.Coord
	resolve func(voxel.Coord) voxel.Voxel

	buf  *voxel.Buffer
	hash voxel.ContentHash
}

type result struct {
	kind  jobKind
	coord voxel.ChunkCoord
	epoch uint64

	buf    *voxel.Buffer
	hash   voxel.ContentHash
	handle *meshcache.Handle
	err    error
}

// pool runs generate and mesh jobs on a fixed set of workers. Submit
// never blocks; when the queue is full the caller retries next tick.
// Results accumulate in a buffered channel that the tick thread
// drains.
type pool struct {
	jobs    chan job
	results chan result
	wg      sync.WaitGroup
	closed  atomic.Bool

	cache  *meshcache.Cache
	mapper meshing.TextureIndexMapper

	generated atomic.Int64
	meshed    atomic.Int64
	panics    atomic.Int64
}

func newPool(workers, queueSize, resultBuffer int, cache *meshcache.Cache, mapper meshing.TextureIndexMapper) *pool {
	p := &pool{
		jobs:    make(chan job, queueSize),
		results: make(chan result, resultBuffer),
		cache:   cache,
		mapper:  mapper,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.results <- p.run(j)
	}
}

func (p *pool) run(j job) (res result) {
	res = result{kind: j.kind, coord: j.coord, epoch: j.epoch, hash: j.hash}
	defer func() {
		if r := recover(); r != nil {
			p.panics.Inc()
			res.buf = nil
			res.handle = nil
			res.err = fmt.Errorf("chunk %v: %w: %v", j.coord, ErrGeneratorPanic, r)
		}
	}()
	switch j.kind {
	case jobGenerate:
		buf := voxel.NewBuffer(j.size)
		buf.Fill(func(off voxel.Coord) voxel.Voxel {
			return j.resolve(j.origin.Add(off))
		})
		res.buf = buf
		res.hash = buf.Hash()
		p.generated.Inc()
	case jobMesh:
		res.handle, res.err = p.cache.GetOrBuild(j.hash, func() (*meshing.Mesh, error) {
			return meshing.BuildMesh(j.buf, p.mapper), nil
		})
		p.meshed.Inc()
	}
	return res
}

// submit queues a job without blocking. false means the queue is full
// or the pool is closed.
func (p *pool) submit(j job) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

// drain collects up to max finished results without blocking. max <= 0
// means no limit beyond what is currently buffered.
func (p *pool) drain(max int) []result {
	var out []result
	for max <= 0 || len(out) < max {
		select {
		case r := <-p.results:
			out = append(out, r)
		default:
			return out
		}
	}
	return out
}

// close stops the workers and releases any mesh handles still riding
// in the result channel.
func (p *pool) close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	for {
		select {
		case r := <-p.results:
			if r.handle != nil {
				r.handle.Release()
			}
		case <-done:
			for {
				select {
				case r := <-p.results:
					if r.handle != nil {
						r.handle.Release()
					}
				default:
					return
				}
			}
		}
	}
}
