// ABOUTME: Hybrid search engine: weight analysis, parallel embedding, fusion, index query
// ABOUTME: An unusable image URL fails the search with a clear error before fusion
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/hypelens/hypelens/internal/embed"
	"github.com/hypelens/hypelens/internal/imageproc"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/vectorindex"
	"github.com/hypelens/hypelens/internal/weights"
)

// ImageEmbedder validates and embeds remote images.
type ImageEmbedder interface {
	Validate(ctx context.Context, imageURL string) bool
	FetchAndEmbed(ctx context.Context, imageURL string) ([]float32, error)
}

// Response is a completed search with the weights that produced it.
type Response struct {
	Results []models.SearchResult `json:"results"`
	Weights models.WeightPair     `json:"weights"`
	Mode    string                `json:"mode"`
}

// Search modes reported in responses.
const (
	ModeText   = "text"
	ModeImage  = "image"
	ModeHybrid = "hybrid"
)

// Engine runs hybrid and text-only searches against the vector index.
type Engine struct {
	index          vectorindex.Index
	embedder       embed.Embedder
	analyzer       *weights.Analyzer
	images         ImageEmbedder
	defaultLimit   int
	scoreThreshold float64
}

// NewEngine wires a search engine. analyzer may run without an LLM;
// images must be non-nil for hybrid queries to work.
func NewEngine(index vectorindex.Index, embedder embed.Embedder, analyzer *weights.Analyzer, images ImageEmbedder, defaultLimit int, scoreThreshold float64) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Engine{
		index:          index,
		embedder:       embedder,
		analyzer:       analyzer,
		images:         images,
		defaultLimit:   defaultLimit,
		scoreThreshold: scoreThreshold,
	}
}

// Search executes a query. With both text and an image URL it fuses
// the two embeddings using analyzed weights; with only one modality
// it searches on that embedding alone. An image URL that cannot be
// fetched as an image fails the whole search before any fusion, so
// the caller never gets results that silently ignore the image.
func (e *Engine) Search(ctx context.Context, query models.SearchQuery) (*Response, error) {
	if query.Text == "" && query.ImageURL == "" {
		return nil, fmt.Errorf("query needs text, an image url, or both")
	}
	if err := query.Filters.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}

	imageURL := query.ImageURL
	if imageURL != "" && !e.images.Validate(ctx, imageURL) {
		return nil, fmt.Errorf("%w: url %s is unreachable or not an image", imageproc.ErrInvalidImage, imageURL)
	}

	var (
		vector []float32
		pair   models.WeightPair
		mode   string
		err    error
	)
	switch {
	case imageURL == "":
		mode = ModeText
		pair = models.WeightPair{Image: 0, Text: 1}
		vector, err = e.embedder.EmbedText(ctx, query.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query text: %w", err)
		}
	case query.Text == "":
		mode = ModeImage
		pair = models.WeightPair{Image: 1, Text: 0}
		vector, err = e.images.FetchAndEmbed(ctx, imageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query image: %w", err)
		}
	default:
		mode = ModeHybrid
		pair, vector, err = e.hybridVector(ctx, query.Text, imageURL)
		if err != nil {
			return nil, err
		}
	}

	results, err := e.searchIndex(ctx, vector, query)
	if err != nil {
		return nil, err
	}
	return &Response{Results: results, Weights: pair, Mode: mode}, nil
}

// hybridVector analyzes weights and embeds both modalities
// concurrently, then fuses.
func (e *Engine) hybridVector(ctx context.Context, text, imageURL string) (models.WeightPair, []float32, error) {
	pair, err := e.analyzer.Weights(ctx, text)
	if err != nil {
		return pair, nil, fmt.Errorf("failed to analyze query weights: %w", err)
	}

	var (
		wg       sync.WaitGroup
		imageVec []float32
		textVec  []float32
		imageErr error
		textErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		imageVec, imageErr = e.images.FetchAndEmbed(ctx, imageURL)
	}()
	go func() {
		defer wg.Done()
		textVec, textErr = e.embedder.EmbedText(ctx, text)
	}()
	wg.Wait()

	if imageErr != nil {
		return pair, nil, fmt.Errorf("failed to embed query image: %w", imageErr)
	}
	if textErr != nil {
		return pair, nil, fmt.Errorf("failed to embed query text: %w", textErr)
	}

	fused, err := Fuse(imageVec, textVec, pair)
	if err != nil {
		return pair, nil, err
	}
	return pair, fused, nil
}

func (e *Engine) searchIndex(ctx context.Context, vector []float32, query models.SearchQuery) ([]models.SearchResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}
	// Zero means "use the engine default"; a negative threshold is an
	// explicit request for no cutoff and passes through unchanged.
	threshold := query.ScoreThreshold
	if threshold == 0 {
		threshold = e.scoreThreshold
	}
	results, err := e.index.Search(ctx, vectorindex.SearchOptions{
		Vector:         vector,
		Filters:        query.Filters,
		Limit:          limit,
		Offset:         query.Offset,
		ScoreThreshold: threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	return results, nil
}
