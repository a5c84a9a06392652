// ABOUTME: Tests for the ingestion pipeline against a real SQLite index and metadata store
// ABOUTME: Fake embedders keep vectors deterministic; failures are injected per URL or text
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hypelens/hypelens/internal/embed"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

const testDim = 4

type fakeEmbedder struct {
	failTexts map[string]bool
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.failTexts[text] {
		return nil, fmt.Errorf("embed service rejected text")
	}
	return []float32{1, 0, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return []float32{0, 1, 0, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int { return testDim }

type fakeImages struct {
	failURLs map[string]bool
	calls    int
}

func (f *fakeImages) Validate(ctx context.Context, imageURL string) bool {
	return !f.failURLs[imageURL]
}

func (f *fakeImages) FetchAndEmbed(ctx context.Context, imageURL string) ([]float32, error) {
	f.calls++
	if f.failURLs[imageURL] {
		return nil, fmt.Errorf("image unreachable: %s", imageURL)
	}
	return []float32{0, 1, 0, 0}, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *vectorindex.SQLiteIndex, *metadata.Store, *fakeImages) {
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
	images := &fakeImages{failURLs: map[string]bool{}}
	return New(idx, store, &fakeEmbedder{failTexts: map[string]bool{}}, images), idx, store, images
}

func fullProfile(id int64) models.Profile {
	return models.Profile{
		ProfileID:     id,
		Username:      fmt.Sprintf("user%d", id),
		Bio:           "coffee and travel",
		FollowerCount: 19300,
		AccountType:   models.AccountHuman,
		ProfilePicURL: fmt.Sprintf("https://example.com/%d/pic.jpg", id),
		PostImageURLs: []string{fmt.Sprintf("https://example.com/%d/post.jpg", id)},
		Captions:      []string{"sunset"},
	}
}

func TestIngestStoresVectorAndMetadata(t *testing.T) {
	p, idx, store, _ := newTestPipeline(t)
	ctx := context.Background()

	summary, err := p.Ingest(ctx, []models.Profile{fullProfile(1)}, Options{})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary.Done != 1 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	point, err := idx.Get(ctx, 1)
	if err != nil {
		t.Fatalf("index Get failed: %v", err)
	}
	if point.Payload.Username != "user1" || point.Payload.FollowerCount != 19300 {
		t.Errorf("payload = %+v", point.Payload)
	}
	// Combined vectors are L2-normalized.
	norm := embed.Norm(point.Vector)
	if norm < 0.999 || norm > 1.001 {
		t.Errorf("vector norm = %v, want 1", norm)
	}

	profile, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("metadata Get failed: %v", err)
	}
	if profile.Bio != "coffee and travel" {
		t.Errorf("metadata bio = %q", profile.Bio)
	}
}

func TestIngestSkipExisting(t *testing.T) {
	p, _, _, images := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Ingest(ctx, []models.Profile{fullProfile(42)}, Options{SkipExisting: true})
	if err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	if first.Done != 1 {
		t.Fatalf("first summary = %+v", first)
	}
	callsAfterFirst := images.calls

	second, err := p.Ingest(ctx, []models.Profile{fullProfile(42)}, Options{SkipExisting: true})
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if second.Skipped != 1 || second.Done != 0 {
		t.Fatalf("second summary = %+v", second)
	}
	if images.calls != callsAfterFirst {
		t.Error("skipped profile must not be re-embedded")
	}
}

func TestIngestReembedsWithoutSkip(t *testing.T) {
	p, idx, _, _ := newTestPipeline(t)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, []models.Profile{fullProfile(7)}, Options{}); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	updated := fullProfile(7)
	updated.Username = "renamed"
	summary, err := p.Ingest(ctx, []models.Profile{updated}, Options{})
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if summary.Done != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	point, err := idx.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if point.Payload.Username != "renamed" {
		t.Errorf("username = %q, want renamed", point.Payload.Username)
	}
}

func TestIngestToleratesPartialComponentFailure(t *testing.T) {
	p, idx, _, images := newTestPipeline(t)
	ctx := context.Background()

	profile := fullProfile(3)
	images.failURLs[profile.ProfilePicURL] = true

	summary, err := p.Ingest(ctx, []models.Profile{profile}, Options{})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary.Done != 1 {
		t.Fatalf("summary = %+v; one dead image should not fail the profile", summary)
	}
	if _, err := idx.Get(ctx, 3); err != nil {
		t.Errorf("profile should still be indexed: %v", err)
	}
}

func TestIngestFailsWhenNothingEmbeddable(t *testing.T) {
	p, idx, _, images := newTestPipeline(t)
	ctx := context.Background()

	profile := models.Profile{
		ProfileID:     5,
		Username:      "barren",
		ProfilePicURL: "https://example.com/5/pic.jpg",
	}
	images.failURLs[profile.ProfilePicURL] = true

	summary, err := p.Ingest(ctx, []models.Profile{profile}, Options{})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}
	if summary.Results[0].Err == nil || !strings.Contains(summary.Results[0].Err.Error(), "no embeddable component") {
		t.Errorf("result error = %v", summary.Results[0].Err)
	}
	if _, err := idx.Get(ctx, 5); err == nil {
		t.Error("failed profile must not be indexed")
	}
}

func TestIngestIsolatesProfileFailures(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	bad := models.Profile{Username: "noid"}
	summary, err := p.Ingest(ctx, []models.Profile{fullProfile(1), bad, fullProfile(2)}, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary.Done != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 done 1 failed", summary)
	}
}

func TestIngestBatchConcurrent(t *testing.T) {
	p, idx, _, _ := newTestPipeline(t)
	ctx := context.Background()

	var profiles []models.Profile
	for i := int64(1); i <= 25; i++ {
		profiles = append(profiles, fullProfile(i))
	}
	summary, err := p.Ingest(ctx, profiles, Options{Workers: 8})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary.Done != 25 {
		t.Fatalf("summary = %+v, want 25 done", summary)
	}
	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 25 {
		t.Errorf("indexed %d, want 25", n)
	}
}

func TestIngestMaxPostImages(t *testing.T) {
	p, _, _, images := newTestPipeline(t)
	ctx := context.Background()

	profile := models.Profile{
		ProfileID:     11,
		Username:      "prolific",
		PostImageURLs: []string{"https://example.com/a.jpg", "https://example.com/b.jpg", "https://example.com/c.jpg"},
	}
	summary, err := p.Ingest(ctx, []models.Profile{profile}, Options{MaxPostImages: 2})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary.Done != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if images.calls != 2 {
		t.Errorf("embedded %d post images, want 2", images.calls)
	}
}

func TestIngestOne(t *testing.T) {
	p, idx, _, _ := newTestPipeline(t)
	result := p.IngestOne(context.Background(), fullProfile(99), Options{})
	if result.Status != StatusDone {
		t.Fatalf("result = %+v", result)
	}
	if ok, _ := idx.Exists(context.Background(), 99); !ok {
		t.Error("profile not indexed")
	}
}
