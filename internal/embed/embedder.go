// ABOUTME: Embedder interface for the external multimodal encoder
// ABOUTME: Image and text entry points share one vector space and dimensionality
package embed

import "context"

// Embedder generates vectors for images and text in a shared vector
// space. Implementations must be deterministic for identical input
// and safe for concurrent use; the model behind them is expensive to
// initialize and is constructed once per process.
type Embedder interface {
	// EmbedImage encodes raw image bytes (a decoded, re-encoded JPEG)
	// into a unit-norm vector of Dimensions() length.
	EmbedImage(ctx context.Context, imageData []byte) ([]float32, error)

	// EmbedText encodes natural-language text into a unit-norm vector
	// of Dimensions() length.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimensionality this embedder produces.
	Dimensions() int
}
