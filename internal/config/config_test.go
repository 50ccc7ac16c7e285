package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.RequiredMatches != 2 {
		t.Errorf("RequiredMatches = %d, want 2", cfg.RequiredMatches)
	}
	if cfg.RecognitionTTL != 30*time.Second {
		t.Errorf("RecognitionTTL = %s, want 30s", cfg.RecognitionTTL)
	}
	if cfg.FaceBackend != "skip" {
		t.Errorf("FaceBackend = %q, want skip", cfg.FaceBackend)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REQUIRED_MATCHES", "3")
	t.Setenv("RECOGNITION_WINDOW", "45s")
	t.Setenv("FACE_BACKEND", "process")

	cfg := Load()
	if cfg.RequiredMatches != 3 {
		t.Errorf("RequiredMatches = %d, want 3", cfg.RequiredMatches)
	}
	if cfg.RecognitionTTL != 45*time.Second {
		t.Errorf("RecognitionTTL = %s, want 45s", cfg.RecognitionTTL)
	}
	if cfg.FaceBackend != "process" {
		t.Errorf("FaceBackend = %q, want process", cfg.FaceBackend)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RECOGNITION_WINDOW", "not-a-duration")
	cfg := Load()
	if cfg.RecognitionTTL != 30*time.Second {
		t.Errorf("RecognitionTTL = %s, want fallback 30s", cfg.RecognitionTTL)
	}
}
