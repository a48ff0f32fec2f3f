package image

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

var testConcept = agent.Concept{
	Title:             "Traffic Everywhere",
	TextOverlay:       "Monday morning feelings",
	VisualDescription: "a cartoon auto rickshaw stuck in an endless traffic jam",
}

func newTestRenderer(t *testing.T, handler http.Handler) *Renderer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := New(Options{
		APIKey:          "test-key",
		BaseURL:         srv.URL + "/",
		HTTPClient:      srv.Client(),
		GenerateTimeout: 2 * time.Second,
		DownloadTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New() error = nil, want api key requirement")
	}
}

func TestRenderGeneratesAndDownloads(t *testing.T) {
	imageBytes := []byte("fake-png-content")
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "Monday morning feelings") {
			t.Errorf("prompt missing text overlay: %s", body)
		}
		if !strings.Contains(string(body), `"n":1`) {
			t.Errorf("request n != 1: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": time.Now().Unix(),
			"data":    []map[string]string{{"url": srvURL + "/files/meme.png"}},
		})
	})
	mux.HandleFunc("/files/meme.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(imageBytes)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	r, err := New(Options{
		APIKey:          "test-key",
		BaseURL:         srv.URL + "/",
		HTTPClient:      srv.Client(),
		GenerateTimeout: 2 * time.Second,
		DownloadTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	data, mimeType, err := r.Render(context.Background(), testConcept)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(data) != string(imageBytes) {
		t.Fatalf("data = %q, want downloaded bytes", data)
	}
	if mimeType != "image/png" {
		t.Fatalf("mimeType = %q, want image/png", mimeType)
	}
}

func TestRenderGenerationFailure(t *testing.T) {
	r := newTestRenderer(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content policy violation"}}`))
	}))

	_, _, err := r.Render(context.Background(), testConcept)
	if err == nil {
		t.Fatal("Render() error = nil, want generation failure")
	}
	if !strings.HasPrefix(err.Error(), "generating image:") {
		t.Fatalf("err = %v, want generation prefix", err)
	}
}

func TestRenderEmptyResponse(t *testing.T) {
	r := newTestRenderer(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	}))

	_, _, err := r.Render(context.Background(), testConcept)
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("err = %v, want empty response failure", err)
	}
}

func TestRenderDownloadFailure(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]string{{"url": srvURL + "/files/gone.png"}},
		})
	})
	mux.HandleFunc("/files/gone.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	r, err := New(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, _, renderErr := r.Render(context.Background(), testConcept)
	if renderErr == nil {
		t.Fatal("Render() error = nil, want download failure")
	}
	if !strings.HasPrefix(renderErr.Error(), "downloading image:") || !strings.Contains(renderErr.Error(), "HTTP 403") {
		t.Fatalf("err = %v, want download failure with status", renderErr)
	}
}

func TestBuildImagePromptIncludesConceptParts(t *testing.T) {
	prompt := buildImagePrompt(testConcept)
	for _, want := range []string{testConcept.VisualDescription, testConcept.TextOverlay} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.Contains(strings.ToLower(prompt), "cartoon") {
		t.Fatalf("prompt missing style guidance:\n%s", prompt)
	}
}
