// ABOUTME: Weighted fusion of image and text embeddings into one query vector
// ABOUTME: The fused vector is deliberately not re-normalized; cosine ranking ignores magnitude
package search

import (
	"fmt"

	"github.com/hypelens/hypelens/internal/models"
)

// Fuse combines an image embedding and a text embedding elementwise
// using the given weights. Both vectors must exist and share a
// dimension; callers with only one modality search with that vector
// directly instead of fusing.
func Fuse(image, text []float32, w models.WeightPair) ([]float32, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fusion weights: %w", err)
	}
	if len(image) == 0 || len(text) == 0 {
		return nil, fmt.Errorf("fusion requires both embeddings, got image=%d text=%d", len(image), len(text))
	}
	if len(image) != len(text) {
		return nil, fmt.Errorf("embedding dimension mismatch: image=%d text=%d", len(image), len(text))
	}
	fused := make([]float32, len(image))
	for i := range image {
		fused[i] = float32(w.Image)*image[i] + float32(w.Text)*text[i]
	}
	return fused, nil
}
