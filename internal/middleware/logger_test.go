package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	h := RequestID(Logger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))

	req := httptest.NewRequest(http.MethodPost, "/generate-memes", nil)
	req.Header.Set("X-Request-ID", "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not JSON: %v (%q)", err, buf.String())
	}
	if entry["method"] != "POST" || entry["path"] != "/generate-memes" {
		t.Fatalf("entry = %v, want method/path fields", entry)
	}
	if entry["status"] != float64(http.StatusAccepted) {
		t.Fatalf("status = %v, want 202", entry["status"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("request_id = %v, want req-123", entry["request_id"])
	}
	if _, ok := entry["duration"]; !ok {
		t.Fatalf("entry = %v, want duration field", entry)
	}
}

func TestLoggerDefaultsTo200(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	h := Logger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Fatalf("status = %v, want 200 for implicit WriteHeader", entry["status"])
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("entry = %v, want no request_id without the RequestID middleware", entry)
	}
}
