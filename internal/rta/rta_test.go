package rta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func audioWAVRequest(t *testing.T, r *http.Request) {
	t.Helper()
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		t.Fatalf("parse multipart form: %v", err)
	}
	if r.MultipartForm.File["file"] == nil {
		t.Fatal("expected a file part named \"file\"")
	}
}

func TestTranscribeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		audioWAVRequest(t, r)
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"text":     "hello world",
			"language": "en",
			"duration": 2.0,
			"segments": []map[string]any{
				{"id": 0, "start": 0.0, "end": 2.0, "text": "hello world", "avg_logprob": -0.2, "compression_ratio": 1.1, "no_speech_prob": 0.05},
			},
		})
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, APIKey: "test-key", Model: "default"}, nil)
	segments, info, err := client.Transcribe(context.Background(), audioBuffer(), Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "hello world" {
		t.Fatalf("unexpected segments: %+v", segments)
	}
	if info.Language != "en" {
		t.Errorf("Language = %q, want en", info.Language)
	}
}

func TestTranscribeOverloadedNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, APIKey: "test-key"}, nil)
	_, _, err := client.Transcribe(context.Background(), audioBuffer(), Options{})

	overloaded, ok := err.(*Overloaded)
	if !ok {
		t.Fatalf("want *Overloaded, got %v", err)
	}
	if overloaded.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", overloaded.StatusCode)
	}
	if overloaded.RetryAfterS != 2 {
		t.Errorf("RetryAfterS = %v, want 2", overloaded.RetryAfterS)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want exactly 1 (no internal retry on overload)", got)
	}
}

func TestTranscribeRetriesOnTransientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"text": "ok", "language": "en", "duration": 1.0})
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, APIKey: "test-key"}, nil)

	done := make(chan struct{})
	var segErr error
	go func() {
		_, _, segErr = client.Transcribe(context.Background(), audioBuffer(), Options{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for retries to complete")
	}

	if segErr != nil {
		t.Fatalf("Transcribe: %v", segErr)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at maxRetryDelay
	}
	for _, c := range cases {
		if got := backoffDelay(c.attempt); got != c.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestNormalizeLanguageCode(t *testing.T) {
	cases := map[string]string{
		"English": "en",
		"spanish": "es",
		"fr":      "fr",
		"":        "",
	}
	for in, want := range cases {
		if got := NormalizeLanguageCode(in); got != want {
			t.Errorf("NormalizeLanguageCode(%q) = %q, want %q", in, got, want)
		}
	}
}
