// ABOUTME: Image URL validation, download, decode, and embedding for hybrid search
// ABOUTME: All failures degrade to ErrInvalidImage so callers can report cleanly
package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/hypelens/hypelens/internal/embed"
)

// ErrInvalidImage marks any failure on the image path: unreachable
// URL, wrong content type, undecodable body, or encoder failure.
// Hybrid search reports it to the user instead of proceeding to
// fusion; it is never fatal to the process.
var ErrInvalidImage = errors.New("invalid image")

const (
	validateTimeout = 10 * time.Second
	downloadTimeout = 30 * time.Second
	maxImageBytes   = 20 << 20 // 20 MiB body cap
)

// Processor downloads images and turns them into embedding vectors.
type Processor struct {
	embedder   embed.Embedder
	httpClient *http.Client
}

// NewProcessor creates a Processor delegating encoding to the given
// embedder.
func NewProcessor(embedder embed.Embedder) *Processor {
	return &Processor{
		embedder:   embedder,
		httpClient: &http.Client{Timeout: downloadTimeout},
	}
}

// Validate checks that the URL is reachable and serves an image
// content type. It returns false for any failure and never an error.
func (p *Processor) Validate(ctx context.Context, imageURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		log.Printf("image validation: bad URL %q: %v", imageURL, err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("image validation: HEAD %s failed: %v", imageURL, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("image validation: HEAD %s returned %d", imageURL, resp.StatusCode)
		return false
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		log.Printf("image validation: %s has content type %q", imageURL, resp.Header.Get("Content-Type"))
		return false
	}
	return true
}

// FetchAndEmbed downloads the image at url, decodes it, and returns
// its embedding. Every failure mode wraps ErrInvalidImage.
func (p *Processor) FetchAndEmbed(ctx context.Context, imageURL string) ([]float32, error) {
	data, err := p.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeImage(data)
	if err != nil {
		log.Printf("image decode failed for %s: %v", imageURL, err)
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidImage, imageURL, err)
	}

	vec, err := p.embedder.EmbedImage(ctx, normalized)
	if err != nil {
		log.Printf("image embedding failed for %s: %v", imageURL, err)
		return nil, fmt.Errorf("%w: embedding %s: %v", ErrInvalidImage, imageURL, err)
	}
	return vec, nil
}

func (p *Processor) download(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad URL %q: %v", ErrInvalidImage, imageURL, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("image download failed for %s: %v", imageURL, err)
		return nil, fmt.Errorf("%w: downloading %s: %v", ErrInvalidImage, imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("image download: GET %s returned %d", imageURL, resp.StatusCode)
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrInvalidImage, imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidImage, imageURL, err)
	}
	return data, nil
}

// normalizeImage decodes any registered format and re-encodes as
// JPEG, which also collapses alpha/palette images to 3-channel color
// for the encoder service.
func normalizeImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
