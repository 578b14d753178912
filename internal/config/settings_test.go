package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewSettingsManager(path)

	if err := m.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	s := m.Get()
	if s.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", s.BatchSize)
	}
	if s.LidarrTimeoutSeconds != 120 {
		t.Errorf("LidarrTimeoutSeconds = %v, want 120", s.LidarrTimeoutSeconds)
	}

	// Load writes the merged file back.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
}

func TestSettingsUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewSettingsManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	err := m.Update(func(s *Settings) {
		s.LidarrAddress = "http://lidarr:8686"
		s.BatchSize = 5
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	// A fresh manager reading the same file sees the update.
	m2 := NewSettingsManager(path)
	if err := m2.Load(); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	s := m2.Get()
	if s.LidarrAddress != "http://lidarr:8686" {
		t.Errorf("LidarrAddress = %q, want persisted value", s.LidarrAddress)
	}
	if s.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", s.BatchSize)
	}
}

func TestSettingsNormalizeClampsBatchSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewSettingsManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if err := m.Update(func(s *Settings) { s.BatchSize = 0 }); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got := m.Get().BatchSize; got != 10 {
		t.Errorf("BatchSize after clamping = %d, want 10", got)
	}
}

func TestSettingsFileIsValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewSettingsManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading settings file: %v", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("settings file is not valid JSON: %v", err)
	}
}
