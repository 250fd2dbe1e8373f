package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Units.MaxUnits != 10000 {
		t.Errorf("max_units = %d, want 10000", cfg.Units.MaxUnits)
	}
	if cfg.Navigation.MaxPathRequestsPerFrame != 100 || cfg.Navigation.PathRequestBatchSize != 10 {
		t.Errorf("navigation batching = %d/%d, want 100/10",
			cfg.Navigation.MaxPathRequestsPerFrame, cfg.Navigation.PathRequestBatchSize)
	}
	if cfg.Derived.AttackRangeSq != 200*200 {
		t.Errorf("attack range squared = %v", cfg.Derived.AttackRangeSq)
	}
	if got := len(cfg.Derived.LODThresholdsSq); got != 4 {
		t.Fatalf("expected 4 LOD thresholds, got %d", got)
	}
	if cfg.Derived.LODThresholdsSq[0] != 500*500 {
		t.Errorf("first LOD threshold squared = %v", cfg.Derived.LODThresholdsSq[0])
	}
	if _, ok := cfg.Template("infantry"); !ok {
		t.Error("expected infantry template in defaults")
	}
	if cfg.Formation.Shapes["rectangle"].Spacing != 150 {
		t.Errorf("rectangle spacing = %v", cfg.Formation.Shapes["rectangle"].Spacing)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("combat:\n  attack_range: 50\nvisibility:\n  lod_distance_thresholds: [3000, 100]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Combat.AttackRange != 50 {
		t.Errorf("attack_range = %v, want 50", cfg.Combat.AttackRange)
	}
	// Untouched fields keep their defaults
	if cfg.Combat.AttackCooldown != 1.0 {
		t.Errorf("attack_cooldown = %v, want default 1.0", cfg.Combat.AttackCooldown)
	}
	// Thresholds are sorted ascending
	if cfg.Visibility.LODDistanceThresholds[0] != 100 {
		t.Errorf("thresholds not sorted: %v", cfg.Visibility.LODDistanceThresholds)
	}
}

func TestLoadTOMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.toml")
	data := []byte("[navigation]\nmax_path_requests_per_frame = 7\n\n[movement]\nmax_speed = 250.0\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Navigation.MaxPathRequestsPerFrame != 7 {
		t.Errorf("max_path_requests_per_frame = %d, want 7", cfg.Navigation.MaxPathRequestsPerFrame)
	}
	if cfg.Movement.MaxSpeed != 250 {
		t.Errorf("max_speed = %v, want 250", cfg.Movement.MaxSpeed)
	}
	if cfg.Navigation.PathRequestBatchSize != 10 {
		t.Errorf("batch size = %d, want default 10", cfg.Navigation.PathRequestBatchSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("physics:\n  dt: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for zero dt")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Combat.StunChance = 0.25

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Combat.StunChance != 0.25 {
		t.Errorf("stun_chance = %v, want 0.25", loaded.Combat.StunChance)
	}
}
