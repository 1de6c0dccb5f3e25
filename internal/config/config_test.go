package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if _, err := cfg.validated(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Log.WrapColumn != 79 {
		t.Fatalf("wrap_column = %d, want 79", cfg.Log.WrapColumn)
	}
	if len(cfg.Log.WarningPrefixes) != 4 {
		t.Fatalf("warning prefixes = %d, want 4", len(cfg.Log.WarningPrefixes))
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texel.toml")
	body := `
[log]
wrap_column = 120
max_join = 5

[analysis]
confidence_threshold = 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.WrapColumn != 120 || cfg.Log.MaxJoin != 5 {
		t.Fatalf("overlay not applied: %+v", cfg.Log)
	}
	if cfg.Analysis.ConfidenceThreshold != 0.5 {
		t.Fatalf("threshold = %v, want 0.5", cfg.Analysis.ConfidenceThreshold)
	}
	// Незатронутые поля остаются дефолтными
	if cfg.Log.NoStackPenalty != 0.5 {
		t.Fatalf("no_stack_penalty = %v, want default 0.5", cfg.Log.NoStackPenalty)
	}
}

func TestLoadRejectsBadFactors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texel.toml")
	if err := os.WriteFile(path, []byte("[log]\nambiguity_decay = 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted out-of-range factor")
	}
}
