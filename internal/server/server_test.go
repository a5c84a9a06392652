// ABOUTME: HTTP API tests using Fiber's in-process test harness
// ABOUTME: Real engine and pipeline over fakes for embedding; real SQLite stores in temp dirs
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/hypelens/hypelens/internal/intent"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/vectorindex"
	"github.com/hypelens/hypelens/internal/weights"
)

const testDim = 3

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return []float32{0, 1, 0}, nil
}

func (fakeEmbedder) Dimensions() int { return testDim }

type fakeImages struct{}

func (fakeImages) Validate(ctx context.Context, imageURL string) bool { return true }

func (fakeImages) FetchAndEmbed(ctx context.Context, imageURL string) ([]float32, error) {
	return []float32{0, 1, 0}, nil
}

func newTestApp(t *testing.T) (*fiber.App, vectorindex.Index) {
	t.Helper()
	dir := t.TempDir()
	idx, err := vectorindex.NewSQLiteIndex(filepath.Join(dir, "index.db"), "profiles", testDim)
	if err != nil {
		t.Fatalf("NewSQLiteIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	store, err := metadata.NewStore(filepath.Join(dir, "metadata.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	analyzer := weights.NewAnalyzer(weights.DefaultVocab(), nil)
	engine := search.NewEngine(idx, fakeEmbedder{}, analyzer, fakeImages{}, 20, 0)
	pipe := pipeline.New(idx, store, fakeEmbedder{}, fakeImages{})
	app := New(Deps{
		Engine:   engine,
		Pipeline: pipe,
		Parser:   intent.NewParser(nil),
		Store:    store,
		Index:    idx,
	})
	return app, idx
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func seed(t *testing.T, idx vectorindex.Index) {
	t.Helper()
	ctx := context.Background()
	payloads := []models.Payload{
		{Username: "alice", FollowerCount: 500, AccountType: models.AccountHuman},
		{Username: "acmecorp", FollowerCount: 2000000, AccountType: models.AccountBrand},
	}
	vectors := [][]float32{{1, 0, 0}, {0.8, 0.2, 0}}
	for i, payload := range payloads {
		if err := idx.Upsert(ctx, int64(i+1), vectors[i], payload); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(body["status"]) != `"healthy"` {
		t.Errorf("body = %v", body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	app, idx := newTestApp(t)
	seed(t, idx)

	resp, body := doJSON(t, app, http.MethodPost, "/api/search", models.SearchQuery{Text: "find makers"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	var results []models.SearchResult
	if err := json.Unmarshal(body["results"], &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 2 || results[0].Payload.Username != "alice" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchEndpointRejectsEmpty(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/search", models.SearchQuery{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatSessionRoundTrip(t *testing.T) {
	app, idx := newTestApp(t)
	seed(t, idx)

	// First message: a fresh search with a follower constraint.
	resp, body := doJSON(t, app, http.MethodPost, "/api/chat", map[string]any{
		"message": "makers with over 100K followers",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if string(body["intent"]) != `"search"` {
		t.Fatalf("intent = %s", body["intent"])
	}
	var session models.Session
	if err := json.Unmarshal(body["session"], &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Filters.Followers == nil || session.Filters.Followers.Min != 100000 {
		t.Fatalf("session filters = %+v", session.Filters)
	}

	var results []models.SearchResult
	if err := json.Unmarshal(body["results"], &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || results[0].Payload.Username != "acmecorp" {
		t.Errorf("results = %+v", results)
	}

	// Second message refines within the same session.
	resp, body = doJSON(t, app, http.MethodPost, "/api/chat", map[string]any{
		"message": "only brands",
		"session": session,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refine status = %d, body = %v", resp.StatusCode, body)
	}
	if string(body["intent"]) != `"refine"` {
		t.Fatalf("intent = %s", body["intent"])
	}
	if err := json.Unmarshal(body["session"], &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	// The refine keeps the follower filter and adds the account type.
	if session.Filters.Followers == nil || session.Filters.Followers.Min != 100000 {
		t.Errorf("follower filter lost on refine: %+v", session.Filters)
	}
	if session.Filters.AccountType != models.AccountBrand {
		t.Errorf("account type = %q, want brand", session.Filters.AccountType)
	}
	if len(session.History) != 4 {
		t.Errorf("history length = %d, want 4 turns", len(session.History))
	}
}

func TestChatEmptyMessageClarifies(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodPost, "/api/chat", map[string]any{"message": ""})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(body["intent"]) != `"clarify"` {
		t.Errorf("intent = %s, want clarify", body["intent"])
	}
}

func TestIngestEndpoint(t *testing.T) {
	app, idx := newTestApp(t)

	profiles := []models.Profile{
		{ProfileID: 10, Username: "ok", Bio: "hello"},
		{Username: "missing-id"},
	}
	resp, body := doJSON(t, app, http.MethodPost, "/api/ingest", map[string]any{"profiles": profiles})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if string(body["done"]) != "1" || string(body["failed"]) != "1" {
		t.Errorf("body = %v", body)
	}
	var failures []map[string]any
	if err := json.Unmarshal(body["failures"], &failures); err != nil {
		t.Fatalf("decode failures: %v", err)
	}
	if len(failures) != 1 {
		t.Errorf("failures = %v", failures)
	}

	if ok, _ := idx.Exists(context.Background(), 10); !ok {
		t.Error("ingested profile missing from index")
	}
}

func TestIngestEndpointRejectsEmptyBatch(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/ingest", map[string]any{"profiles": []models.Profile{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	app, idx := newTestApp(t)
	seed(t, idx)

	resp, body := doJSON(t, app, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(body["indexed_vectors"]) != "2" {
		t.Errorf("indexed_vectors = %s, want 2", body["indexed_vectors"])
	}
}
