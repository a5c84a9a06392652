// ABOUTME: Vector index interface: upsert, filtered ANN search, payload patching, scroll
// ABOUTME: Implemented by a SQLite driver (default) and a Postgres/pgvector driver
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hypelens/hypelens/internal/models"
)

// ErrNotFound is returned when a point id is absent from the index.
var ErrNotFound = errors.New("point not found")

// DefaultCollection is the table name used when a driver is opened
// with an empty collection name.
const DefaultCollection = "profiles"

var collectionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// collectionName validates a collection identifier. Collection names
// become table names and cannot be bound as SQL parameters, so only
// plain identifiers are accepted.
func collectionName(collection string) (string, error) {
	if collection == "" {
		return DefaultCollection, nil
	}
	if !collectionPattern.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q: must contain only letters, digits, and underscores", collection)
	}
	return collection, nil
}

// Point is one stored vector with its metadata payload.
type Point struct {
	ID      int64
	Vector  []float32
	Payload models.Payload
}

// SearchOptions parameterize a similarity search. Both drivers rank
// by cosine similarity, so vector magnitude never affects ordering.
type SearchOptions struct {
	Vector         []float32
	Filters        models.Filters
	Limit          int
	Offset         int
	ScoreThreshold float64
}

// Validate normalizes and checks the options. A zero limit defaults
// to 10.
func (o *SearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return fmt.Errorf("search vector cannot be empty")
	}
	if o.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 10
	}
	if o.Limit > 1000 {
		return fmt.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	if o.Offset < 0 {
		return fmt.Errorf("offset cannot be negative: %d", o.Offset)
	}
	if o.ScoreThreshold < -1 || o.ScoreThreshold > 1 {
		return fmt.Errorf("score threshold must be within [-1, 1]: %v", o.ScoreThreshold)
	}
	return o.Filters.Validate()
}

// ScrollOptions parameterize full-collection iteration. Cursor is the
// last id of the previous page; zero starts from the beginning.
type ScrollOptions struct {
	Filters models.Filters
	Limit   int
	Cursor  int64
}

// Index is the vector database consumed by the pipeline and the
// search engine. Implementations hold long-lived connections and are
// safe for concurrent use.
//
// Offset-based paging over Search is approximate: if the underlying
// data changes between calls, pages may overlap or skip points.
type Index interface {
	// Upsert stores or replaces the vector and payload for id.
	Upsert(ctx context.Context, id int64, vector []float32, payload models.Payload) error

	// Exists reports whether a point with the given id is stored.
	Exists(ctx context.Context, id int64) (bool, error)

	// Get fetches one point. Returns ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*Point, error)

	// Search returns points ranked by descending cosine similarity,
	// restricted to those matching every set filter and scoring at or
	// above the threshold.
	Search(ctx context.Context, opts SearchOptions) ([]models.SearchResult, error)

	// SetPayload patches payload fields without touching the vector.
	// Nil patch fields are left unchanged.
	SetPayload(ctx context.Context, id int64, patch models.PayloadPatch) error

	// Scroll iterates the collection in id order. The returned cursor
	// is zero when iteration is complete.
	Scroll(ctx context.Context, opts ScrollOptions) ([]Point, int64, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying connection.
	Close() error
}
