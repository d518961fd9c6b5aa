package meshcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/splashdust/bevy-voxel-world/internal/meshing"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

func testHash(b byte) voxel.ContentHash {
	var h voxel.ContentHash
	h[0] = b
	return h
}

func buildMesh() (*meshing.Mesh, error) {
	return &meshing.Mesh{Positions: []float32{0, 0, 0}}, nil
}

func TestGetOrBuildSharesMesh(t *testing.T) {
	c := New()

	h1, err := c.GetOrBuild(testHash(1), buildMesh)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	h2, err := c.GetOrBuild(testHash(1), buildMesh)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	if h1.Mesh() != h2.Mesh() {
		t.Fatalf("same hash produced distinct meshes")
	}
	if got := c.RefCount(testHash(1)); got != 2 {
		t.Fatalf("refcount = %d, want 2", got)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("cache size = %d, want 1", got)
	}

	hits, builds := c.Stats()
	if builds != 1 || hits != 1 {
		t.Fatalf("stats = %d hits %d builds, want 1 and 1", hits, builds)
	}
}

func TestReleaseEvictsAtZero(t *testing.T) {
	c := New()

	h1, _ := c.GetOrBuild(testHash(1), buildMesh)
	h2, _ := c.GetOrBuild(testHash(1), buildMesh)

	h1.Release()
	if got := c.RefCount(testHash(1)); got != 1 {
		t.Fatalf("refcount after one release = %d, want 1", got)
	}
	// Double release of the same handle is a no-op.
	h1.Release()
	if got := c.RefCount(testHash(1)); got != 1 {
		t.Fatalf("refcount after duplicate release = %d, want 1", got)
	}

	h2.Release()
	if got := c.Len(); got != 0 {
		t.Fatalf("cache size after final release = %d, want 0", got)
	}

	// A new request rebuilds.
	h3, err := c.GetOrBuild(testHash(1), buildMesh)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer h3.Release()
	if _, builds := c.Stats(); builds != 2 {
		t.Fatalf("builds = %d, want 2", builds)
	}
}

func TestBuildErrorNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	_, err := c.GetOrBuild(testHash(2), func() (*meshing.Mesh, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want build error", err)
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("failed build left %d entries", got)
	}

	h, err := c.GetOrBuild(testHash(2), buildMesh)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	h.Release()
}

func TestConcurrentGetOrBuildBuildsOnce(t *testing.T) {
	c := New()
	var builds atomic.Int64
	mesh := &meshing.Mesh{Positions: []float32{1, 2, 3}}

	const workers = 16
	var wg sync.WaitGroup
	handles := make([]*Handle, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.GetOrBuild(testHash(3), func() (*meshing.Mesh, error) {
				builds.Add(1)
				return mesh, nil
			})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Fatalf("build ran %d times, want 1", got)
	}
	for i, h := range handles {
		if h == nil {
			t.Fatalf("worker %d got no handle", i)
		}
		if h.Mesh() != mesh {
			t.Fatalf("worker %d got a different mesh", i)
		}
	}
	if got := c.RefCount(testHash(3)); got != workers {
		t.Fatalf("refcount = %d, want %d", got, workers)
	}

	for _, h := range handles {
		h.Release()
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("cache size after releases = %d, want 0", got)
	}
}

func TestDistinctHashesDistinctEntries(t *testing.T) {
	c := New()
	h1, _ := c.GetOrBuild(testHash(1), buildMesh)
	h2, _ := c.GetOrBuild(testHash(2), buildMesh)
	defer h1.Release()
	defer h2.Release()

	if h1.Mesh() == h2.Mesh() {
		t.Fatalf("distinct hashes share a mesh")
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("cache size = %d, want 2", got)
	}
}
