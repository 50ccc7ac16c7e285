package faceproc

import (
	"context"
	"testing"
	"time"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		wantOK   bool
		detected bool
		matched  bool
	}{
		{
			name:     "clean verdict",
			output:   `{"faceDetected": true, "matched": true, "confidence": 0.82}`,
			wantOK:   true,
			detected: true,
			matched:  true,
		},
		{
			name:     "verdict after debug noise",
			output:   "loading model\nwarmup done\n{\"faceDetected\": true, \"matched\": false, \"confidence\": 0.2}\n",
			wantOK:   true,
			detected: true,
		},
		{
			name:     "inline error degrades to no detection",
			output:   `{"faceDetected": false, "error": "Failed to decode frame"}`,
			wantOK:   true,
			detected: false,
		},
		{
			name:   "no json at all",
			output: "Traceback (most recent call last)",
			wantOK: false,
		},
		{
			name:   "json without verdict fields",
			output: `{"status": "ok"}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := parseOutput([]byte(tt.output))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if v.FaceDetected != tt.detected || v.Matched != tt.matched {
				t.Errorf("verdict = %+v", v)
			}
		})
	}
}

func TestRunner_BadCommandDegradesToNoDetection(t *testing.T) {
	r := New("/bin/false", time.Second)
	v, err := r.Verify(context.Background(), "ref.jpg", []byte{0x01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.FaceDetected {
		t.Fatalf("verdict = %+v, want no detection", v)
	}
}

func TestRunner_TimeoutSurfacesAsTransportError(t *testing.T) {
	// Verify appends the reference URL as a trailing argument, so the
	// command must tolerate one extra arg.
	r := &Runner{
		Command: "sh",
		Args:    []string{"-c", "sleep 5", "--"},
		Timeout: 50 * time.Millisecond,
	}
	start := time.Now()
	_, err := r.Verify(context.Background(), "ref.jpg", []byte{0x01})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("verify returned after %v, per-call bound not enforced", elapsed)
	}
}

func TestRunner_TimeoutHoldsForProcessTrees(t *testing.T) {
	// The background child inherits stdout and outlives the killed
	// shell; without a wait bound it would hold the pipe open for the
	// full 5 seconds.
	r := &Runner{
		Command: "sh",
		Args:    []string{"-c", "sleep 5 & wait", "--"},
		Timeout: 50 * time.Millisecond,
	}
	start := time.Now()
	_, err := r.Verify(context.Background(), "ref.jpg", []byte{0x01})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("verify returned after %v, orphaned child held the pipe", elapsed)
	}
}

func TestRunner_ReadsVerdictFromCommand(t *testing.T) {
	r := &Runner{
		Command: "sh",
		Args:    []string{"-c", `echo '{"faceDetected": true, "matched": true, "confidence": 0.9}' #`},
		Timeout: 2 * time.Second,
	}
	v, err := r.Verify(context.Background(), "ref.jpg", []byte{0x01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.FaceDetected || !v.Matched || v.Confidence != 0.9 {
		t.Fatalf("verdict = %+v", v)
	}
}
