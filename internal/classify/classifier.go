// ABOUTME: Account type classification: embedding similarity first, LLM fallback for close calls
// ABOUTME: Batch reclassification walks unclassified profiles and patches store and index
package classify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/hypelens/hypelens/internal/embed"
	"github.com/hypelens/hypelens/internal/llm"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

// Prototype descriptions embedded once and compared against profile
// bios. The margin below decides when the similarity signal is
// trusted without asking the LLM.
const (
	humanPrototype = "personal account of an individual person sharing their own life, hobbies, opinions and photos"
	brandPrototype = "official account of a company, brand, shop, product, organization or business offering goods or services"

	// similarityMargin is the minimum gap between the two prototype
	// similarities for the embedding signal alone to decide.
	similarityMargin = 0.05
)

const classifyPromptTemplate = `Classify this social media profile as operated by a "human" (an individual person) or a "brand" (a company, organization, or business).

Username: %s
Full name: %s
Bio: %s

Respond with exactly one word: human or brand. If genuinely impossible to tell, respond: unknown.`

// Classifier decides whether a profile is run by a person or a brand.
// The generator is optional; without it, ambiguous profiles stay
// unknown.
type Classifier struct {
	embedder  embed.Embedder
	generator llm.Generator

	protoOnce sync.Once
	protoErr  error
	humanVec  []float32
	brandVec  []float32
}

// New builds a classifier. generator may be nil.
func New(embedder embed.Embedder, generator llm.Generator) *Classifier {
	return &Classifier{embedder: embedder, generator: generator}
}

// Classify returns the account type for one profile. It never fails a
// profile into an error for ambiguity; ambiguity yields AccountUnknown.
func (c *Classifier) Classify(ctx context.Context, profile *models.Profile) (models.AccountType, error) {
	if profile.Bio != "" {
		acct, decided, err := c.classifyByEmbedding(ctx, profile.Bio)
		if err != nil {
			return models.AccountUnknown, err
		}
		if decided {
			return acct, nil
		}
	}
	if c.generator == nil {
		return models.AccountUnknown, nil
	}
	return c.classifyByLLM(ctx, profile)
}

// classifyByEmbedding compares the bio embedding against both
// prototypes. decided is false when the similarities are too close
// to call.
func (c *Classifier) classifyByEmbedding(ctx context.Context, bio string) (models.AccountType, bool, error) {
	if err := c.ensurePrototypes(ctx); err != nil {
		return models.AccountUnknown, false, err
	}
	bioVec, err := c.embedder.EmbedText(ctx, bio)
	if err != nil {
		return models.AccountUnknown, false, fmt.Errorf("failed to embed bio: %w", err)
	}
	humanSim := vectorindex.CosineSimilarity(bioVec, c.humanVec)
	brandSim := vectorindex.CosineSimilarity(bioVec, c.brandVec)
	gap := humanSim - brandSim
	if gap >= similarityMargin {
		return models.AccountHuman, true, nil
	}
	if gap <= -similarityMargin {
		return models.AccountBrand, true, nil
	}
	return models.AccountUnknown, false, nil
}

func (c *Classifier) ensurePrototypes(ctx context.Context) error {
	c.protoOnce.Do(func() {
		c.humanVec, c.protoErr = c.embedder.EmbedText(ctx, humanPrototype)
		if c.protoErr != nil {
			return
		}
		c.brandVec, c.protoErr = c.embedder.EmbedText(ctx, brandPrototype)
	})
	if c.protoErr != nil {
		return fmt.Errorf("failed to embed classification prototypes: %w", c.protoErr)
	}
	return nil
}

func (c *Classifier) classifyByLLM(ctx context.Context, profile *models.Profile) (models.AccountType, error) {
	prompt := fmt.Sprintf(classifyPromptTemplate, profile.Username, profile.FullName, profile.Bio)
	response, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		// The embedding tier already abstained; an LLM outage leaves
		// the profile unknown rather than failing the pass.
		log.Printf("classify %d: llm failed, leaving unknown: %v", profile.ProfileID, err)
		return models.AccountUnknown, nil
	}
	return parseAccountType(response), nil
}

// parseAccountType extracts the verdict from an LLM response,
// tolerating surrounding prose.
func parseAccountType(response string) models.AccountType {
	normalized := strings.ToLower(strings.TrimSpace(response))
	hasHuman := strings.Contains(normalized, "human")
	hasBrand := strings.Contains(normalized, "brand")
	switch {
	case hasHuman && !hasBrand:
		return models.AccountHuman
	case hasBrand && !hasHuman:
		return models.AccountBrand
	default:
		return models.AccountUnknown
	}
}

// ReclassifySummary reports a batch reclassification pass.
type ReclassifySummary struct {
	Examined   int `json:"examined"`
	Classified int `json:"classified"`
	Unknown    int `json:"unknown"`
	Failed     int `json:"failed"`
}

// Reclassify walks unclassified profiles in the metadata store,
// classifies each, and patches both the store and the index payload
// when a verdict lands. Per-profile failures are counted, not fatal.
func (c *Classifier) Reclassify(ctx context.Context, store *metadata.Store, index vectorindex.Index, batchSize int) (*ReclassifySummary, error) {
	summary := &ReclassifySummary{}
	seen := make(map[int64]bool)
	for {
		profiles, err := store.ListUnclassified(ctx, batchSize)
		if err != nil {
			return summary, err
		}
		progressed := false
		for i := range profiles {
			profile := &profiles[i]
			if seen[profile.ProfileID] {
				continue
			}
			seen[profile.ProfileID] = true
			progressed = true
			summary.Examined++
			acct, err := c.Classify(ctx, profile)
			if err != nil {
				log.Printf("classify %d: %v", profile.ProfileID, err)
				summary.Failed++
				continue
			}
			if acct == models.AccountUnknown {
				// Record the abstention so an unset type is
				// distinguishable from a never-examined one.
				if profile.AccountType == "" {
					unknown := models.AccountUnknown
					if err := store.Update(ctx, profile.ProfileID, models.PayloadPatch{AccountType: &unknown}); err != nil {
						log.Printf("classify %d: store update failed: %v", profile.ProfileID, err)
					}
				}
				summary.Unknown++
				continue
			}
			patch := models.PayloadPatch{AccountType: &acct}
			if err := store.Update(ctx, profile.ProfileID, patch); err != nil {
				log.Printf("classify %d: store update failed: %v", profile.ProfileID, err)
				summary.Failed++
				continue
			}
			if err := index.SetPayload(ctx, profile.ProfileID, patch); err != nil {
				log.Printf("classify %d: index update failed: %v", profile.ProfileID, err)
				summary.Failed++
				continue
			}
			summary.Classified++
		}
		if !progressed {
			// Every remaining unclassified profile was already
			// examined this run; stop instead of spinning.
			return summary, nil
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
	}
}
