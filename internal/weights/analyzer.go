// ABOUTME: Infers (image_weight, text_weight) for a search query
// ABOUTME: Three tiers: phrase override, LLM inference, keyword fallback
package weights

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hypelens/hypelens/internal/llm"
	"github.com/hypelens/hypelens/internal/models"
)

// Analyzer maps a free-text query to a weight pair expressing how
// much the search should rely on visual similarity versus textual
// semantics.
type Analyzer struct {
	vocab     *Vocab
	generator llm.Generator // nil when no LLM is configured
}

// NewAnalyzer creates an analyzer. generator may be nil, in which
// case the keyword fallback handles every query the phrase override
// does not.
func NewAnalyzer(vocab *Vocab, generator llm.Generator) *Analyzer {
	if vocab == nil {
		vocab = DefaultVocab()
	}
	return &Analyzer{vocab: vocab, generator: generator}
}

// Weights returns the weight pair for the query. The returned pair
// always satisfies models.WeightPair.Validate; a violation is a logic
// error and is returned as such.
func (a *Analyzer) Weights(ctx context.Context, query string) (models.WeightPair, error) {
	// Tier 1: phrase override bypasses everything, including the LLM.
	if w, ok := a.veryHighImageIntent(query); ok {
		log.Printf("weights: query %q matched image-intent override: %.1f/%.1f", query, w.Image, w.Text)
		return w, nil
	}

	// Tier 2: LLM inference when configured.
	if a.generator != nil {
		w, err := a.llmWeights(ctx, query)
		if err == nil {
			if verr := w.Validate(); verr != nil {
				return models.WeightPair{}, fmt.Errorf("LLM produced invalid weights for %q: %w", query, verr)
			}
			return w, nil
		}
		log.Printf("weights: LLM inference failed for %q, using fallback: %v", query, err)
	}

	// Tier 3: keyword scoring.
	w := a.fallbackWeights(query)
	if err := w.Validate(); err != nil {
		return models.WeightPair{}, fmt.Errorf("fallback produced invalid weights for %q: %w", query, err)
	}
	return w, nil
}

// veryHighImageIntent checks the override table: any listed phrase,
// or two or more distinct high-image keywords, pins (0.9, 0.1).
func (a *Analyzer) veryHighImageIntent(query string) (models.WeightPair, bool) {
	q := strings.ToLower(query)

	for _, phrase := range a.vocab.VeryHighImagePhrases {
		if strings.Contains(q, phrase) {
			return models.WeightPair{Image: 0.9, Text: 0.1}, true
		}
	}

	hits := 0
	for _, kw := range a.vocab.HighImageKeywords {
		if strings.Contains(q, kw) {
			hits++
		}
	}
	if hits >= 2 {
		return models.WeightPair{Image: 0.9, Text: 0.1}, true
	}

	return models.WeightPair{}, false
}

const weightPrompt = `Analyze this search query and assign weights to image vs text search.

Query: %q

Rules for weight assignment:
- Image weight: 0.0 to 1.0 (in 0.1 increments)
- Text weight: 1.0 - image_weight
- Weights must sum to exactly 1.0

Guidelines:
- Very high image weight (0.9): "similar to this", "like this image", "matching this", "looks like this"
- High image weight (0.7-0.8): "similar", "matching", "style", "look", "appearance", "resembles"
- Medium image weight (0.4-0.6): "with similar", "style and", "inspired by", "based on"
- Low image weight (0.0-0.3): "profiles", "accounts", "people", "search for", "find", "show me"

Examples:
- "find similar profiles" -> image_weight: 0.8, text_weight: 0.2
- "search for travel accounts" -> image_weight: 0.2, text_weight: 0.8
- "profiles with similar style" -> image_weight: 0.7, text_weight: 0.3
- "like this image" -> image_weight: 0.9, text_weight: 0.1

Return ONLY the weights in this exact format:
image_weight: X.X, text_weight: Y.Y`

var (
	weightPattern  = regexp.MustCompile(`image_weight:\s*(\d+\.\d+),\s*text_weight:\s*(\d+\.\d+)`)
	decimalPattern = regexp.MustCompile(`\d+\.\d+`)
)

func (a *Analyzer) llmWeights(ctx context.Context, query string) (models.WeightPair, error) {
	resp, err := a.generator.Generate(ctx, fmt.Sprintf(weightPrompt, query))
	if err != nil {
		return models.WeightPair{}, err
	}
	return parseWeightResponse(resp), nil
}

// parseWeightResponse extracts a weight pair from LLM output. The
// labeled pattern wins, then the first two decimals in the text,
// then (0.5, 0.5).
func parseWeightResponse(resp string) models.WeightPair {
	if m := weightPattern.FindStringSubmatch(resp); m != nil {
		img, err1 := strconv.ParseFloat(m[1], 64)
		txt, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			return models.WeightPair{Image: img, Text: txt}
		}
	}

	nums := decimalPattern.FindAllString(resp, 2)
	if len(nums) >= 2 {
		img, err1 := strconv.ParseFloat(nums[0], 64)
		txt, err2 := strconv.ParseFloat(nums[1], 64)
		if err1 == nil && err2 == nil {
			return models.WeightPair{Image: img, Text: txt}
		}
	}

	log.Printf("weights: could not parse LLM response %q, defaulting to 0.5/0.5", resp)
	return models.WeightPair{Image: 0.5, Text: 0.5}
}

// fallbackWeights scores the query against the keyword tiers.
func (a *Analyzer) fallbackWeights(query string) models.WeightPair {
	q := strings.ToLower(query)

	count := func(keywords []string) int {
		n := 0
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				n++
			}
		}
		return n
	}

	highScore := count(a.vocab.HighImageKeywords)
	mediumScore := count(a.vocab.MediumImageKeywords)
	textScore := count(a.vocab.TextKeywords)

	var image float64
	switch {
	case highScore > 0:
		image = math.Min(0.8, 0.6+0.1*float64(highScore))
	case mediumScore > 0:
		image = math.Min(0.6, 0.4+0.1*float64(mediumScore))
	default:
		image = math.Max(0.1, 0.3-0.1*float64(textScore))
	}

	image = math.Round(image*10) / 10
	text := math.Round((1.0-image)*10) / 10

	return models.WeightPair{Image: image, Text: text}
}
