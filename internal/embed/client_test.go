// ABOUTME: Unit tests for the embedding service HTTP client
// ABOUTME: Uses httptest servers to cover success, retries, and dimension checks
package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, url string, dim int) *Client {
	t.Helper()
	c, err := NewClient(&ClientConfig{
		BaseURL:    url,
		Dimensions: dim,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c
}

func TestEmbedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Text != "travel photographer" || req.Dim != 3 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.6, 0.8, 0}})
	}))
	defer srv.Close()

	vec, err := testClient(t, srv.URL, 3).EmbedText(context.Background(), "travel photographer")
	if err != nil {
		t.Fatalf("EmbedText error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.6 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestEmbedTextEmpty(t *testing.T) {
	if _, err := testClient(t, "http://localhost:1", 3).EmbedText(context.Background(), ""); err == nil {
		t.Error("EmbedText accepted empty text")
	}
}

func TestEmbedImageDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0}})
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, 3).EmbedImage(context.Background(), []byte{0xff, 0xd8})
	if err == nil {
		t.Error("EmbedImage accepted wrong dimensionality")
	}
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0, 0}})
	}))
	defer srv.Close()

	vec, err := testClient(t, srv.URL, 3).EmbedText(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("EmbedText error after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if len(vec) != 3 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestWithoutRetriesSingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// The query path runs on this variant: a failing service must
	// surface after exactly one attempt, with no backoff.
	c := testClient(t, srv.URL, 3).WithoutRetries()
	start := time.Now()
	if _, err := c.EmbedText(context.Background(), "travel photographer"); err == nil {
		t.Fatal("EmbedText succeeded against a failing service")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("single attempt took %v, should not back off", elapsed)
	}
}

func TestWithoutRetriesLeavesOriginalClientRetrying(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	retrying := testClient(t, srv.URL, 3)
	retrying.WithoutRetries()

	if _, err := retrying.EmbedText(context.Background(), "still retries"); err == nil {
		t.Fatal("EmbedText succeeded against a failing service")
	}
	if calls != 2 {
		t.Errorf("retrying client made %d attempts, want 2", calls)
	}
}

func TestEmbedContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testClient(t, srv.URL, 3).EmbedText(ctx, "cancelled"); err == nil {
		t.Error("EmbedText succeeded with cancelled context")
	}
}
