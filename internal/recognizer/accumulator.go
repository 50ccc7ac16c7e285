package recognizer

import (
	"context"
	"fmt"
	"time"
)

// Verdict is the outcome of comparing one frame against the reference photo.
type Verdict struct {
	FaceDetected bool    `json:"face_detected"`
	Matched      bool    `json:"matched"`
	Confidence   float64 `json:"confidence"`
}

// Oracle compares a single frame against a student's reference photo.
// Implementations: faceproc (external process per frame), faceclient (HTTP).
type Oracle interface {
	Verify(ctx context.Context, referenceURL string, frame []byte) (Verdict, error)
}

// State of a recognition session.
type State int

const (
	StateRunning State = iota
	StateSucceeded
	StateFailedTimeout
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTimeout:
		return "failed_timeout"
	}
	return "unknown"
}

// Tuning constants for the recognition loop. Confidence at or above
// AcceptThreshold on a matched frame counts toward the required total;
// confidence strictly below PenaltyThreshold on an unmatched frame
// erodes the count by one, floored at zero. Everything else is noise
// and leaves the count alone.
const (
	DefaultRequiredMatches = 2
	DefaultWindow          = 30 * time.Second
	DefaultCallTimeout     = 10 * time.Second
	DefaultFrameInterval   = 2 * time.Second

	AcceptThreshold  = 0.5
	PenaltyThreshold = 0.3
)

// Accumulator folds a noisy stream of per-frame verdicts into one
// present/absent decision. Not safe for concurrent use; the session
// loop serializes all calls.
type Accumulator struct {
	required       int
	matchCount     int
	bestConfidence float64
	frames         int
	state          State
}

// NewAccumulator starts in StateRunning with a zero match count.
func NewAccumulator(required int) *Accumulator {
	if required <= 0 {
		required = DefaultRequiredMatches
	}
	return &Accumulator{required: required, state: StateRunning}
}

// Observe applies one verdict. The returned bool reports whether the
// verdict moved the match counter. Terminal states absorb all further
// verdicts.
func (a *Accumulator) Observe(v Verdict) (State, bool) {
	a.frames++
	if a.state != StateRunning || !v.FaceDetected {
		return a.state, false
	}
	if v.Confidence > a.bestConfidence {
		a.bestConfidence = v.Confidence
	}
	if v.Matched {
		if v.Confidence < AcceptThreshold {
			return a.state, false
		}
		a.matchCount++
		if a.matchCount >= a.required {
			a.state = StateSucceeded
		}
		return a.state, true
	}
	// Unmatched with very low confidence erodes progress; a single bad
	// frame must not wipe out matches the student already earned.
	if v.Confidence < PenaltyThreshold && a.matchCount > 0 {
		a.matchCount--
		return a.state, true
	}
	return a.state, false
}

// ObserveError records a transport failure or per-call timeout. It
// counts the frame but never touches the match counter.
func (a *Accumulator) ObserveError() {
	a.frames++
}

// Timeout forces the terminal timeout state. No-op once terminal.
func (a *Accumulator) Timeout() State {
	if a.state == StateRunning {
		a.state = StateFailedTimeout
	}
	return a.state
}

func (a *Accumulator) State() State            { return a.state }
func (a *Accumulator) MatchCount() int         { return a.matchCount }
func (a *Accumulator) BestConfidence() float64 { return a.bestConfidence }
func (a *Accumulator) Frames() int             { return a.frames }

// Result is the single terminal outcome of a recognition session.
type Result struct {
	Success         bool    `json:"success"`
	Confidence      float64 `json:"confidence"`
	MatchCount      int     `json:"match_count"`
	FramesProcessed int     `json:"frames_processed"`
	Message         string  `json:"message"`
}

func (a *Accumulator) result() Result {
	r := Result{
		Success:         a.state == StateSucceeded,
		Confidence:      a.bestConfidence,
		MatchCount:      a.matchCount,
		FramesProcessed: a.frames,
	}
	if r.Success {
		r.Message = "face recognized successfully"
	} else {
		r.Message = fmt.Sprintf("face not recognized, best confidence %.1f%%", a.bestConfidence*100)
	}
	return r
}
