// ABOUTME: Batch ingestion pipeline: embed profile components, combine, store vector and metadata
// ABOUTME: Bounded worker pool with per-profile locking and per-profile failure isolation
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/hypelens/hypelens/internal/embed"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

// Status is the terminal outcome of one profile's ingestion.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ImageEmbedder validates and embeds remote images.
type ImageEmbedder interface {
	Validate(ctx context.Context, imageURL string) bool
	FetchAndEmbed(ctx context.Context, imageURL string) ([]float32, error)
}

// Result records what happened to one profile.
type Result struct {
	ProfileID int64  `json:"profile_id"`
	Username  string `json:"username,omitempty"`
	Status    Status `json:"status"`
	Err       error  `json:"-"`
}

// Summary aggregates a batch run.
type Summary struct {
	Done    int      `json:"done"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Options control one batch run.
type Options struct {
	// SkipExisting leaves profiles already present in the index
	// untouched instead of re-embedding them.
	SkipExisting bool
	// Workers bounds concurrent profile ingestions. Zero means 4.
	Workers int
	// MaxPostImages caps how many post images are embedded per
	// profile. Zero means no cap.
	MaxPostImages int
}

// Pipeline ingests profiles: each component is embedded, the
// components are combined into one vector, and vector plus metadata
// are persisted. One bad component degrades the profile's vector;
// only a profile with no usable component at all fails.
type Pipeline struct {
	index    vectorindex.Index
	store    *metadata.Store
	embedder embed.Embedder
	images   ImageEmbedder

	// locks serializes work per profile id so concurrent batches
	// cannot interleave writes for the same profile.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New wires an ingestion pipeline. store may be nil when only the
// vector index is wanted.
func New(index vectorindex.Index, store *metadata.Store, embedder embed.Embedder, images ImageEmbedder) *Pipeline {
	return &Pipeline{
		index:    index,
		store:    store,
		embedder: embedder,
		images:   images,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Ingest runs a batch. Profile failures are collected, not
// propagated; the returned error is only for context cancellation.
func (p *Pipeline) Ingest(ctx context.Context, profiles []models.Profile, opts Options) (*Summary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(profiles) {
		workers = len(profiles)
	}

	jobs := make(chan models.Profile)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for profile := range jobs {
				results <- p.ingestOne(ctx, profile, opts)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, profile := range profiles {
			select {
			case jobs <- profile:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	for r := range results {
		summary.Results = append(summary.Results, r)
		switch r.Status {
		case StatusDone:
			summary.Done++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("ingestion interrupted: %w", err)
	}
	return summary, nil
}

// IngestOne ingests a single profile outside a batch.
func (p *Pipeline) IngestOne(ctx context.Context, profile models.Profile, opts Options) Result {
	return p.ingestOne(ctx, profile, opts)
}

func (p *Pipeline) ingestOne(ctx context.Context, profile models.Profile, opts Options) Result {
	result := Result{ProfileID: profile.ProfileID, Username: profile.Username}
	if profile.ProfileID <= 0 {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("profile id must be positive, got %d", profile.ProfileID)
		return result
	}

	lock := p.lockFor(profile.ProfileID)
	lock.Lock()
	defer lock.Unlock()

	if opts.SkipExisting {
		exists, err := p.index.Exists(ctx, profile.ProfileID)
		if err != nil {
			result.Status = StatusFailed
			result.Err = fmt.Errorf("existence check failed: %w", err)
			return result
		}
		if exists {
			result.Status = StatusSkipped
			return result
		}
	}

	vector, err := p.embedProfile(ctx, &profile, opts)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	if err := p.index.Upsert(ctx, profile.ProfileID, vector, payloadFor(&profile)); err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("vector store failed: %w", err)
		return result
	}
	if p.store != nil {
		if err := p.store.Save(ctx, &profile); err != nil {
			// The vector made it in; metadata can be repaired by a
			// re-run, so report the failure without rolling back.
			result.Status = StatusFailed
			result.Err = fmt.Errorf("metadata store failed: %w", err)
			return result
		}
	}
	result.Status = StatusDone
	return result
}

// embedProfile embeds every available component and combines them.
// Individual component failures are logged and dropped.
func (p *Pipeline) embedProfile(ctx context.Context, profile *models.Profile, opts Options) ([]float32, error) {
	pv := &embed.ProfileVectors{}

	if profile.ProfilePicURL != "" {
		v, err := p.images.FetchAndEmbed(ctx, profile.ProfilePicURL)
		if err != nil {
			log.Printf("ingest %d: profile pic embed failed: %v", profile.ProfileID, err)
		} else {
			pv.ProfilePic = v
		}
	}

	postURLs := profile.PostImageURLs
	if opts.MaxPostImages > 0 && len(postURLs) > opts.MaxPostImages {
		postURLs = postURLs[:opts.MaxPostImages]
	}
	for _, url := range postURLs {
		v, err := p.images.FetchAndEmbed(ctx, url)
		if err != nil {
			log.Printf("ingest %d: post image embed failed: %v", profile.ProfileID, err)
			continue
		}
		pv.PostImages = append(pv.PostImages, v)
	}

	for _, caption := range profile.Captions {
		if caption == "" {
			continue
		}
		v, err := p.embedder.EmbedText(ctx, caption)
		if err != nil {
			log.Printf("ingest %d: caption embed failed: %v", profile.ProfileID, err)
			continue
		}
		pv.Captions = append(pv.Captions, v)
	}

	if profile.Bio != "" {
		v, err := p.embedder.EmbedText(ctx, profile.Bio)
		if err != nil {
			log.Printf("ingest %d: bio embed failed: %v", profile.ProfileID, err)
		} else {
			pv.Bio = v
		}
	}

	if pv.Empty() {
		return nil, fmt.Errorf("no embeddable component: every image, caption, and bio failed or was absent")
	}
	vector, err := embed.CombineProfile(pv)
	if err != nil {
		return nil, fmt.Errorf("failed to combine profile vector: %w", err)
	}
	return vector, nil
}

func (p *Pipeline) lockFor(id int64) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	return lock
}

func payloadFor(p *models.Profile) models.Payload {
	return models.Payload{
		Username:         p.Username,
		UserID:           p.ProfileID,
		FullName:         p.FullName,
		IsPrivate:        p.IsPrivate,
		FollowerCount:    p.FollowerCount,
		FollowerCategory: p.FollowerCategory,
		AccountType:      p.AccountType,
		ProfilePicURL:    p.ProfilePicURL,
	}
}
