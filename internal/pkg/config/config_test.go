package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("default port = %s", cfg.Port)
	}
	if cfg.Tracking.MinInterval != 5*time.Second {
		t.Fatalf("default min interval = %v", cfg.Tracking.MinInterval)
	}
	if cfg.Tracking.MinDistanceM != 10 {
		t.Fatalf("default min distance = %v", cfg.Tracking.MinDistanceM)
	}
	if cfg.Language != "en" {
		t.Fatalf("default language = %s", cfg.Language)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOCATION_MIN_INTERVAL", "2s")
	t.Setenv("BACKEND_BASE_URL", "https://backend.internal")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("port override ignored: %s", cfg.Port)
	}
	if cfg.Tracking.MinInterval != 2*time.Second {
		t.Fatalf("interval override ignored: %v", cfg.Tracking.MinInterval)
	}
	if cfg.Backend.BaseURL != "https://backend.internal" {
		t.Fatalf("backend override ignored: %s", cfg.Backend.BaseURL)
	}
}
