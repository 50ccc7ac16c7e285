package recognizer

import "testing"

func match(conf float64) Verdict {
	return Verdict{FaceDetected: true, Matched: true, Confidence: conf}
}

func noMatch(conf float64) Verdict {
	return Verdict{FaceDetected: true, Matched: false, Confidence: conf}
}

func TestAccumulator_SucceedsAfterRequiredMatches(t *testing.T) {
	acc := NewAccumulator(2)

	state, accepted := acc.Observe(match(0.6))
	if state != StateRunning || !accepted {
		t.Fatalf("first match: state=%v accepted=%v", state, accepted)
	}

	acc.ObserveError() // oracle timeout mid-stream must not erase progress
	if acc.MatchCount() != 1 {
		t.Fatalf("match count after error = %d, want 1", acc.MatchCount())
	}

	state, _ = acc.Observe(match(0.7))
	if state != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", state)
	}
	if acc.BestConfidence() != 0.7 {
		t.Fatalf("best confidence = %v, want 0.7", acc.BestConfidence())
	}
	if acc.Frames() != 3 {
		t.Fatalf("frames = %d, want 3", acc.Frames())
	}
}

func TestAccumulator_PenaltyFloorsAtZero(t *testing.T) {
	acc := NewAccumulator(2)

	// Confidently wrong frame at count zero: floor holds.
	acc.Observe(noMatch(0.1))
	if acc.MatchCount() != 0 {
		t.Fatalf("match count = %d, want 0", acc.MatchCount())
	}

	acc.Observe(match(0.6))
	state, _ := acc.Observe(match(0.6))
	if state != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", state)
	}
	if acc.MatchCount() != 2 {
		t.Fatalf("match count = %d, want 2", acc.MatchCount())
	}
}

func TestAccumulator_VerdictRules(t *testing.T) {
	tests := []struct {
		name      string
		verdict   Verdict
		wantCount int
	}{
		{"no face detected ignored", Verdict{}, 1},
		{"low confidence match ignored", match(0.49), 1},
		{"unmatched above penalty threshold ignored", noMatch(0.4), 1},
		{"unmatched at penalty threshold ignored", noMatch(0.3), 1},
		{"confidently wrong decrements", noMatch(0.29), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator(3)
			acc.Observe(match(0.8))
			acc.Observe(tt.verdict)
			if acc.MatchCount() != tt.wantCount {
				t.Errorf("match count = %d, want %d", acc.MatchCount(), tt.wantCount)
			}
			if acc.State() != StateRunning {
				t.Errorf("state = %v, want running", acc.State())
			}
		})
	}
}

func TestAccumulator_BestConfidenceTracksAllDetectedFrames(t *testing.T) {
	acc := NewAccumulator(5)
	acc.Observe(match(0.55))
	acc.Observe(noMatch(0.9)) // detected but unmatched still updates best
	acc.Observe(Verdict{FaceDetected: false, Confidence: 0.99})

	if acc.BestConfidence() != 0.9 {
		t.Fatalf("best confidence = %v, want 0.9", acc.BestConfidence())
	}
}

func TestAccumulator_TimeoutIsTerminal(t *testing.T) {
	acc := NewAccumulator(2)
	acc.Observe(match(0.6))

	if state := acc.Timeout(); state != StateFailedTimeout {
		t.Fatalf("state = %v, want failed_timeout", state)
	}

	// Late verdicts after the deadline are absorbed.
	state, accepted := acc.Observe(match(0.9))
	if state != StateFailedTimeout || accepted {
		t.Fatalf("post-timeout observe: state=%v accepted=%v", state, accepted)
	}
	if acc.MatchCount() != 1 {
		t.Fatalf("match count = %d, want 1", acc.MatchCount())
	}
}

func TestAccumulator_TimeoutDoesNotOverrideSuccess(t *testing.T) {
	acc := NewAccumulator(1)
	acc.Observe(match(0.8))
	if state := acc.Timeout(); state != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", state)
	}
}
