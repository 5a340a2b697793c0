package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capture.MinConfidence != 0.78 {
		t.Errorf("expected default minConfidence 0.78, got %v", cfg.Capture.MinConfidence)
	}
	if cfg.Recall.MaxResults != 8 {
		t.Errorf("expected default maxResults 8, got %d", cfg.Recall.MaxResults)
	}
	if cfg.Memory.Backend != "sqlite_fts" {
		t.Errorf("expected default backend sqlite_fts, got %q", cfg.Memory.Backend)
	}
}

func TestLoad_FileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body, _ := json.Marshal(map[string]interface{}{
		"capture": map[string]interface{}{
			"minconfidence": 0.9,
		},
	})
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capture.MinConfidence != 0.9 {
		t.Errorf("expected overridden minConfidence 0.9, got %v", cfg.Capture.MinConfidence)
	}
	// Untouched fields keep their defaults.
	if cfg.Recall.MaxResults != 8 {
		t.Errorf("expected default maxResults 8, got %d", cfg.Recall.MaxResults)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body, _ := json.Marshal(map[string]interface{}{
		"capture": map[string]interface{}{
			"minconfidnce": 0.9, // typo
		},
	})
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoad_InvalidValueRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body, _ := json.Marshal(map[string]interface{}{
		"memory": map[string]interface{}{
			"backend": "not_a_real_backend",
		},
	})
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid backend value")
	}
}
