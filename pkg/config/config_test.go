package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markfleet.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	s := cfg.Follow.Settings()
	if s.DistanceThresholdMeters != 3 {
		t.Errorf("DistanceThresholdMeters = %v, want 3", s.DistanceThresholdMeters)
	}
	if s.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", s.PollInterval)
	}
	if s.DebounceTime != 3*time.Second {
		t.Errorf("DebounceTime = %v, want 3s", s.DebounceTime)
	}
	if s.AcceptableDistanceMeters != 1 {
		t.Errorf("AcceptableDistanceMeters = %v, want 1", s.AcceptableDistanceMeters)
	}
	if len(cfg.Sim.Fleet) == 0 {
		t.Error("default sim fleet is empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markfleet.yaml")
	content := `
server:
  addr: "0.0.0.0:9000"
follow:
  poll_interval: 10s
  debounce_time: 1s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if got := time.Duration(cfg.Follow.PollInterval); got != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", got)
	}
	// Untouched fields keep their defaults.
	if cfg.DB.Path == "" {
		t.Error("DB path default lost on partial override")
	}
}

func TestGenerateDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markfleet.yaml")

	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault() failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if time.Duration(cfg.Follow.DebounceTime) != 3*time.Second {
		t.Errorf("DebounceTime = %v after round trip", cfg.Follow.DebounceTime)
	}

	// Second call is a no-op on an existing file.
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("second GenerateDefault() failed: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5s", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"1d", Day},
		{"1w", Week},
		{"1d12h", 36 * time.Hour},
		{"", 0},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDuration("5x"); err == nil {
		t.Error("ParseDuration(5x) succeeded, want error")
	}
}
