package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.World.ChunkSize != 32 {
		t.Fatalf("chunk size = %d, want default 32", cfg.World.ChunkSize)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	payload := `{
		"world": {"chunkSize": 16, "tickRate": "50ms"},
		"discovery": {"spawnRadius": 4, "spawnStrategy": "close"}
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.World.ChunkSize != 16 {
		t.Fatalf("chunk size = %d, want 16", cfg.World.ChunkSize)
	}
	if cfg.World.TickRate.Duration() != 50*time.Millisecond {
		t.Fatalf("tick rate = %v, want 50ms", cfg.World.TickRate.Duration())
	}
	if cfg.Discovery.SpawnRadius != 4 {
		t.Fatalf("spawn radius = %d, want 4", cfg.Discovery.SpawnRadius)
	}
	if cfg.Discovery.SpawnStrategy != SpawnStrategyClose {
		t.Fatalf("spawn strategy = %q, want close", cfg.Discovery.SpawnStrategy)
	}
	// Untouched sections keep defaults.
	if cfg.Meshing.Workers != 4 {
		t.Fatalf("workers = %d, want default 4", cfg.Meshing.Workers)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, []byte(`{"world": {"chunkSize": 1}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("chunk size 1 accepted")
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := Default()
	cfg.Discovery.SpawnStrategy = "spiral"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("unknown spawn strategy accepted")
	}

	cfg = Default()
	cfg.Discovery.DespawnStrategy = "never"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("unknown despawn strategy accepted")
	}
}

func TestDurationJSONRoundTrip(t *testing.T) {
	in := Duration(1500 * time.Millisecond)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Duration
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if out != in {
		t.Fatalf("round trip %v -> %v", in, out)
	}

	// Bare numbers are accepted as nanoseconds.
	if err := json.Unmarshal([]byte("1000000"), &out); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if out.Duration() != time.Millisecond {
		t.Fatalf("numeric duration = %v, want 1ms", out.Duration())
	}
}

func TestDurationYAML(t *testing.T) {
	var cfg Config
	payload := "world:\n  chunkSize: 8\n  tickRate: 25ms\n"
	if err := yaml.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if cfg.World.TickRate.Duration() != 25*time.Millisecond {
		t.Fatalf("yaml tick rate = %v, want 25ms", cfg.World.TickRate.Duration())
	}
}
