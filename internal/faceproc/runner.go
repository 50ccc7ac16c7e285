// Package faceproc runs an external face comparer process once per
// frame. The process receives the reference photo locator as an
// argument and the base64-encoded frame on stdin, and prints
// line-delimited JSON verdicts on stdout. Any process failure (bad
// output, non-zero exit) degrades to a no-detection verdict so a flaky
// comparer can never abort a recognition session.
package faceproc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"smartattend/internal/recognizer"
)

// Runner invokes the comparer command per frame.
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// New creates a runner. command is split on whitespace so config can
// hold e.g. "python3 ml/compare_frame.py".
func New(command string, timeout time.Duration) *Runner {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return &Runner{Timeout: timeout}
	}
	return &Runner{Command: parts[0], Args: parts[1:], Timeout: timeout}
}

// Verify implements recognizer.Oracle.
func (r *Runner) Verify(ctx context.Context, referenceURL string, frame []byte) (recognizer.Verdict, error) {
	if r.Command == "" {
		return recognizer.Verdict{}, fmt.Errorf("face comparer command not configured")
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.Args...), referenceURL)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Stdin = strings.NewReader(base64.StdEncoding.EncodeToString(frame))
	// A comparer that forks a child inheriting stdout would otherwise
	// hold the pipe open past the deadline; stop waiting for it.
	cmd.WaitDelay = time.Second

	out, err := cmd.Output()
	if ctx.Err() != nil {
		// Per-call timeout is a transport failure, not a verdict.
		return recognizer.Verdict{}, ctx.Err()
	}
	if err != nil {
		log.Printf("face comparer exited with error: %v", err)
		return recognizer.Verdict{}, nil
	}

	verdict, ok := parseOutput(out)
	if !ok {
		log.Printf("face comparer produced no parsable verdict")
		return recognizer.Verdict{}, nil
	}
	return verdict, nil
}

// wireVerdict mirrors the comparer's JSON output.
type wireVerdict struct {
	FaceDetected *bool   `json:"faceDetected"`
	Matched      bool    `json:"matched"`
	Confidence   float64 `json:"confidence"`
	Error        string  `json:"error"`
}

// parseOutput scans stdout for the first valid JSON verdict line.
func parseOutput(out []byte) (recognizer.Verdict, bool) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var wv wireVerdict
		if err := json.Unmarshal(line, &wv); err != nil || wv.FaceDetected == nil {
			continue
		}
		if wv.Error != "" {
			// The comparer reports its own failures inline; treat them
			// as no detection.
			return recognizer.Verdict{}, true
		}
		return recognizer.Verdict{
			FaceDetected: *wv.FaceDetected,
			Matched:      wv.Matched,
			Confidence:   wv.Confidence,
		}, true
	}
	return recognizer.Verdict{}, false
}
