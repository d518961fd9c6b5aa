package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/splashdust/bevy-voxel-world/internal/config"
	"github.com/splashdust/bevy-voxel-world/internal/discovery"
	"github.com/splashdust/bevy-voxel-world/internal/persist"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
	"github.com/splashdust/bevy-voxel-world/internal/world"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "path to world configuration file")
		seed     = flag.Int64("seed", 1337, "terrain seed")
		duration = flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
		speed    = flag.Float64("speed", 12.0, "observer speed in voxels per second")
		edits    = flag.Bool("edits", false, "carve a trench of edits along the observer path")
	)
	flag.Parse()

	if ok, err := writeConfigFromEnv(*cfgPath); err != nil {
		log.Fatalf("sync environment config: %v", err)
	} else if ok {
		log.Printf("configuration written from environment to %s", *cfgPath)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var store *persist.OverlayStore
	opts := []world.Option{world.WithSeed(*seed)}
	if cfg.Persist.OverlayPath != "" {
		store, err = persist.OpenOverlayStore(cfg.Persist.OverlayPath)
		if err != nil {
			log.Fatalf("open overlay store: %v", err)
		}
		defer store.Close()
		opts = append(opts, world.WithEditSink(store.Record))
	}

	w, err := world.New(cfg, newTerrainGenerator(*seed), opts...)
	if err != nil {
		log.Fatalf("initialise world: %v", err)
	}
	defer w.Close()
	log.Printf("world %s: chunk size %d, tick rate %s",
		w.ID(), cfg.World.ChunkSize, cfg.World.TickRate.Duration())

	if store != nil {
		restored := 0
		err = store.LoadAll(func(c voxel.Coord, v voxel.Voxel) {
			w.Overlay().Restore(c, v)
			restored++
		})
		if err != nil {
			log.Fatalf("load persisted edits: %v", err)
		}
		log.Printf("restored %d persisted edits", restored)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	run(ctx, w, cfg, *speed, *edits)

	if cfg.Persist.SnapshotDir != "" {
		exportSnapshots(w, cfg.Persist.SnapshotDir)
	}
	report(w)
}

// run drives the observer in a slow circle on the XZ plane, ticking the
// world at the configured rate.
func run(ctx context.Context, w *world.World, cfg *config.Config, speed float64, edits bool) {
	ticker := time.NewTicker(cfg.World.TickRate.Duration())
	defer ticker.Stop()

	start := time.Now()
	lastReport := start
	const orbitRadius = 200.0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		elapsed := time.Since(start).Seconds()
		angle := elapsed * speed / orbitRadius
		pos := mgl64.Vec3{
			orbitRadius * math.Cos(angle),
			40,
			orbitRadius * math.Sin(angle),
		}
		forward := mgl64.Vec3{-math.Sin(angle), -0.2, math.Cos(angle)}

		obs := discovery.Observer{
			Position: pos,
			Forward:  forward,
			FOV:      1.4,
		}
		stats := w.Tick(obs)

		if edits && stats.DiscoveryRan {
			below := voxel.CoordOf(pos.Sub(mgl64.Vec3{0, 10, 0}))
			w.SetVoxel(below, voxel.Air())
		}

		if time.Since(lastReport) >= 5*time.Second {
			lastReport = time.Now()
			s := w.Stats()
			log.Printf("chunks=%d spawned=%d generated=%d meshed=%d cache=%d hits=%d edits=%d",
				s.Chunks, s.Spawned, s.Generated, s.Meshed, s.CacheEntries, s.CacheHits, s.OverlayEdits)
		}
	}
}

func exportSnapshots(w *world.World, dir string) {
	exported := 0
	w.Chunks().ForEach(func(ch *world.Chunk) bool {
		if ch.State() != world.StateSpawned || ch.IsEmpty() {
			return true
		}
		buf, _ := ch.Snapshot()
		if buf == nil {
			return true
		}
		if err := persist.WriteChunkSnapshot(dir, ch.Coord, buf); err != nil {
			log.Printf("export chunk %v: %v", ch.Coord, err)
			return true
		}
		exported++
		return true
	})
	log.Printf("exported %d chunk snapshots to %s", exported, dir)
}

func report(w *world.World) {
	s := w.Stats()
	log.Printf("world %s final: chunks=%d spawned=%d generated=%d meshed=%d cacheEntries=%d cacheHits=%d cacheBuilds=%d panics=%d",
		s.ID, s.Chunks, s.Spawned, s.Generated, s.Meshed, s.CacheEntries, s.CacheHits, s.CacheBuilds, s.Panics)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
