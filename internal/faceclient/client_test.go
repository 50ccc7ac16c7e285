package faceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compare" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			ReferenceURL string `json:"reference_url"`
			Frame        string `json:"frame"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReferenceURL == "" || req.Frame == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"face_detected": true,
			"matched":       true,
			"confidence":    0.74,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false, 2*time.Second)
	v, err := c.Verify(context.Background(), "https://cdn.example/photos/42.jpg", []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !v.FaceDetected || !v.Matched || v.Confidence != 0.74 {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestClient_VerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, false, 2*time.Second)
	if _, err := c.Verify(context.Background(), "ref.jpg", []byte{0x01}); err == nil {
		t.Fatal("expected an error from a failing service")
	}
}

func TestClient_SkipMode(t *testing.T) {
	c := New("http://unused", true, 0)
	v, err := c.Verify(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("skip mode should not error: %v", err)
	}
	if !v.Matched {
		t.Fatalf("skip mode verdict = %+v, want matched", v)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("skip mode health: %v", err)
	}
}
