package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Duration is a JSON/YAML-friendly wrapper around time.Duration that
// accepts human readable strings such as "33ms" in configuration files
// while still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or
// a numeric value representing nanoseconds. Empty strings and null values
// decode to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML mirrors the JSON representation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML decodes a duration from a string or nanosecond integer.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := unmarshal(&n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	return errors.New("duration: invalid yaml value")
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Spawn strategy names accepted in configuration files.
const (
	SpawnStrategyRayCast = "raycast"
	SpawnStrategyClose   = "close"
)

// Despawn strategy names accepted in configuration files.
const (
	DespawnStrategyFarAway   = "faraway"
	DespawnStrategyOutOfView = "outofview"
)

// Config captures the tunable parameters for a voxel world instance.
type Config struct {
	World     WorldConfig     `json:"world" yaml:"world"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Meshing   MeshingConfig   `json:"meshing" yaml:"meshing"`
	Persist   PersistConfig   `json:"persist" yaml:"persist"`
}

type WorldConfig struct {
	// ChunkSize is the chunk side length in voxels.
	ChunkSize int `json:"chunkSize" yaml:"chunkSize"`
	// TickRate is the cadence of the lifecycle scheduler.
	TickRate Duration `json:"tickRate" yaml:"tickRate"`
	// MaxGenerationRetries bounds how often a failing chunk generation
	// is retried before the chunk is left unspawned.
	MaxGenerationRetries int `json:"maxGenerationRetries" yaml:"maxGenerationRetries"`
}

type DiscoveryConfig struct {
	// SpawnRadius is the spawning distance in chunks around the observer.
	SpawnRadius int `json:"spawnRadius" yaml:"spawnRadius"`
	// MinSpawnRadius is the cube of chunks around the observer that is
	// always queued regardless of the sampling rays.
	MinSpawnRadius int `json:"minSpawnRadius" yaml:"minSpawnRadius"`
	// SpawnStrategy selects "raycast" or "close".
	SpawnStrategy string `json:"spawnStrategy" yaml:"spawnStrategy"`
	// DespawnStrategy selects "faraway" or "outofview".
	DespawnStrategy string `json:"despawnStrategy" yaml:"despawnStrategy"`
	// MovementThreshold is how far (in world units) the observer must
	// move before discovery is re-run.
	MovementThreshold float64 `json:"movementThreshold" yaml:"movementThreshold"`
	// SpawningRays is the number of sampling rays cast per discovery run.
	SpawningRays int `json:"spawningRays" yaml:"spawningRays"`
	// RayMargin widens the sampled cone beyond the view frustum, in
	// radians, to reduce pop-in at the viewport edges.
	RayMargin float64 `json:"rayMargin" yaml:"rayMargin"`
	// MaxSpawnPerTick bounds how many chunks may be queued for spawning
	// in one scheduler tick.
	MaxSpawnPerTick int `json:"maxSpawnPerTick" yaml:"maxSpawnPerTick"`
}

type MeshingConfig struct {
	// Workers is the fixed size of the generation/meshing worker pool.
	Workers int `json:"workers" yaml:"workers"`
	// QueueSize bounds the number of queued jobs; submissions beyond it
	// are rejected and retried on a later tick.
	QueueSize int `json:"queueSize" yaml:"queueSize"`
	// ResultBuffer sizes the completed-job channel drained per tick.
	ResultBuffer int `json:"resultBuffer" yaml:"resultBuffer"`
}

type PersistConfig struct {
	// OverlayPath is the sqlite database holding persisted voxel edits.
	// Empty disables persistence.
	OverlayPath string `json:"overlayPath" yaml:"overlayPath"`
	// SnapshotDir receives compressed chunk snapshots. Empty disables
	// snapshot export.
	SnapshotDir string `json:"snapshotDir" yaml:"snapshotDir"`
}

// Load reads configuration from a JSON file if provided. An empty path
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkSize:            32,
			TickRate:             Duration(16 * time.Millisecond),
			MaxGenerationRetries: 3,
		},
		Discovery: DiscoveryConfig{
			SpawnRadius:       10,
			MinSpawnRadius:    1,
			SpawnStrategy:     SpawnStrategyRayCast,
			DespawnStrategy:   DespawnStrategyFarAway,
			MovementThreshold: 8,
			SpawningRays:      100,
			RayMargin:         0.15,
			MaxSpawnPerTick:   512,
		},
		Meshing: MeshingConfig{
			Workers:      4,
			QueueSize:    256,
			ResultBuffer: 256,
		},
		Persist: PersistConfig{},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.World.ChunkSize < 2 {
		return fmt.Errorf("world.chunkSize must be at least 2, got %d", c.World.ChunkSize)
	}
	if c.World.TickRate <= 0 {
		return errors.New("world.tickRate must be positive")
	}
	if c.World.MaxGenerationRetries < 0 {
		return errors.New("world.maxGenerationRetries must not be negative")
	}
	if c.Discovery.SpawnRadius < 1 {
		return fmt.Errorf("discovery.spawnRadius must be at least 1, got %d", c.Discovery.SpawnRadius)
	}
	if c.Discovery.MinSpawnRadius < 0 || c.Discovery.MinSpawnRadius > c.Discovery.SpawnRadius {
		return fmt.Errorf("discovery.minSpawnRadius must be in [0,%d]", c.Discovery.SpawnRadius)
	}
	switch c.Discovery.SpawnStrategy {
	case SpawnStrategyRayCast, SpawnStrategyClose:
	default:
		return fmt.Errorf("discovery.spawnStrategy %q unknown", c.Discovery.SpawnStrategy)
	}
	switch c.Discovery.DespawnStrategy {
	case DespawnStrategyFarAway, DespawnStrategyOutOfView:
	default:
		return fmt.Errorf("discovery.despawnStrategy %q unknown", c.Discovery.DespawnStrategy)
	}
	if c.Discovery.MovementThreshold < 0 {
		return errors.New("discovery.movementThreshold must not be negative")
	}
	if c.Discovery.SpawningRays < 1 {
		return errors.New("discovery.spawningRays must be at least 1")
	}
	if c.Discovery.MaxSpawnPerTick < 1 {
		return errors.New("discovery.maxSpawnPerTick must be at least 1")
	}
	if c.Meshing.Workers < 1 {
		return errors.New("meshing.workers must be at least 1")
	}
	if c.Meshing.QueueSize < 1 {
		return errors.New("meshing.queueSize must be at least 1")
	}
	if c.Meshing.ResultBuffer < 1 {
		return errors.New("meshing.resultBuffer must be at least 1")
	}
	return nil
}
