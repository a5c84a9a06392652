// ABOUTME: Phrase and keyword tables for query intent matching
// ABOUTME: Kept as data so the matching policy is testable and tunable
package weights

// Vocab is the matching policy for image-vs-text intent. The default
// table mirrors the tuned production vocabulary; callers may load a
// different one.
type Vocab struct {
	// VeryHighImagePhrases trigger an immediate (0.9, 0.1) override.
	VeryHighImagePhrases []string
	// HighImageKeywords: two or more distinct hits also trigger the
	// override; one or more hits drive the high tier of the fallback.
	HighImageKeywords []string
	// MediumImageKeywords drive the middle tier of the fallback.
	MediumImageKeywords []string
	// TextKeywords pull weight toward text in the fallback.
	TextKeywords []string
}

// DefaultVocab returns the standard matching table.
func DefaultVocab() *Vocab {
	return &Vocab{
		VeryHighImagePhrases: []string{
			"similar to this", "like this image", "matching this",
			"same style as this", "looks like this", "resembles this",
			"comparable to this", "in the style of this", "based on this image",
			"find profiles like this", "show me similar to this",
			"who looks like this", "profiles matching this",
		},
		HighImageKeywords: []string{
			"similar", "matching", "style", "look", "appearance", "resembles", "comparable",
		},
		MediumImageKeywords: []string{
			"with similar", "style and", "appearance of", "inspired by", "based on",
		},
		TextKeywords: []string{
			"profiles", "accounts", "people", "search for", "find", "show me", "get",
		},
	}
}
