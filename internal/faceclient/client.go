package faceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartattend/internal/recognizer"
)

// Client calls an HTTP face comparison service. It implements
// recognizer.Oracle as an alternative to the process-per-frame runner.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip enabled every call returns a canned
// matching verdict, which keeps dev setups working without the service.
func New(baseURL string, skip bool, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Verify compares one frame against the reference photo.
func (c *Client) Verify(ctx context.Context, referenceURL string, frame []byte) (recognizer.Verdict, error) {
	if c.Skip {
		return recognizer.Verdict{FaceDetected: true, Matched: true, Confidence: 0.92}, nil
	}
	if referenceURL == "" {
		return recognizer.Verdict{}, fmt.Errorf("reference photo url required")
	}

	body, _ := json.Marshal(map[string]string{
		"reference_url": referenceURL,
		"frame":         base64.StdEncoding.EncodeToString(frame),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/compare", bytes.NewReader(body))
	if err != nil {
		return recognizer.Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return recognizer.Verdict{}, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return recognizer.Verdict{}, fmt.Errorf("face service error %s: %s", resp.Status, string(respBody))
	}

	var out struct {
		FaceDetected bool    `json:"face_detected"`
		Matched      bool    `json:"matched"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return recognizer.Verdict{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return recognizer.Verdict{
		FaceDetected: out.FaceDetected,
		Matched:      out.Matched,
		Confidence:   out.Confidence,
	}, nil
}

// Health checks if the face service is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
