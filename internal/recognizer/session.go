package recognizer

import (
	"context"
	"io"
	"sync"
	"time"
)

// FrameSource supplies successive captured frames. Next blocks until a
// frame is available and returns an error (io.EOF or ctx.Err) when the
// source is exhausted or the session is cancelled.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// FrameList serves a fixed batch of frames in order, then reports EOF.
// Used for request-scoped sessions where the client captured all the
// frames up front.
type FrameList struct {
	mu     sync.Mutex
	frames [][]byte
}

func NewFrameList(frames [][]byte) *FrameList {
	return &FrameList{frames: frames}
}

func (f *FrameList) Next(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.frames) == 0 {
		return nil, io.EOF
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, nil
}

// Progress is reported on each accepted verdict and once per second.
type Progress struct {
	TimeLeft   time.Duration `json:"time_left"`
	MatchCount int           `json:"match_count"`
}

// Session drives one recognition attempt for one student: frames are
// captured and verified strictly one at a time with a minimum spacing
// between calls, and a wall-clock deadline bounds the whole attempt.
type Session struct {
	Oracle          Oracle
	RequiredMatches int
	Window          time.Duration
	CallTimeout     time.Duration
	FrameInterval   time.Duration

	// OnProgress, when set, receives progress updates. OnComplete,
	// when set, receives the terminal result exactly once.
	OnProgress func(Progress)
	OnComplete func(Result)

	completeOnce sync.Once
}

type observation struct {
	verdict Verdict
	err     error
}

// Run executes the session loop and blocks until a terminal state is
// reached. The deadline races against in-flight verdicts; whichever
// transition lands first is final.
func (s *Session) Run(ctx context.Context, referenceURL string, frames FrameSource) Result {
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	acc := NewAccumulator(s.RequiredMatches)
	started := time.Now()
	deadline := time.NewTimer(window)
	defer deadline.Stop()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	verdicts := make(chan observation)
	go s.capture(ctx, referenceURL, frames, verdicts)

	for {
		select {
		case <-deadline.C:
			acc.Timeout()
			return s.finish(acc)
		case <-ctx.Done():
			acc.Timeout()
			return s.finish(acc)
		case <-tick.C:
			s.progress(started, window, acc)
		case obs, ok := <-verdicts:
			if !ok {
				// Source exhausted with no success; fail now instead
				// of idling out the window.
				acc.Timeout()
				return s.finish(acc)
			}
			if obs.err != nil {
				// Oracle unreachable or slow. Progress earned so far
				// stays intact.
				acc.ObserveError()
				continue
			}
			state, accepted := acc.Observe(obs.verdict)
			if accepted {
				s.progress(started, window, acc)
			}
			if state == StateSucceeded {
				return s.finish(acc)
			}
		}
	}
}

// capture pulls frames and verifies them one at a time. The channel is
// unbuffered so at most one verdict is ever outstanding.
func (s *Session) capture(ctx context.Context, referenceURL string, frames FrameSource, out chan<- observation) {
	defer close(out)
	callTimeout := s.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	interval := s.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	for {
		frame, err := frames.Next(ctx)
		if err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		verdict, verr := s.Oracle.Verify(callCtx, referenceURL, frame)
		cancel()
		select {
		case out <- observation{verdict: verdict, err: verr}:
		case <-ctx.Done():
			return
		}
		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Session) progress(started time.Time, window time.Duration, acc *Accumulator) {
	if s.OnProgress == nil {
		return
	}
	left := window - time.Since(started)
	if left < 0 {
		left = 0
	}
	s.OnProgress(Progress{TimeLeft: left, MatchCount: acc.MatchCount()})
}

func (s *Session) finish(acc *Accumulator) Result {
	res := acc.result()
	s.completeOnce.Do(func() {
		if s.OnComplete != nil {
			s.OnComplete(res)
		}
	})
	return res
}
