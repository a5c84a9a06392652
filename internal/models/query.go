// ABOUTME: Search query, filter, and result types
// ABOUTME: Ephemeral per-request structures, never persisted
package models

import (
	"fmt"
	"math"
)

// WeightPair expresses how much a search relies on visual similarity
// versus textual semantics. Both weights are quantized to 0.1
// increments and sum to 1.0.
type WeightPair struct {
	Image float64 `json:"image_weight"`
	Text  float64 `json:"text_weight"`
}

const weightTolerance = 1e-3

// Validate checks the weight pair invariants. A violation indicates a
// logic or configuration error, not a retryable condition.
func (w WeightPair) Validate() error {
	if w.Image < 0 || w.Image > 1 {
		return fmt.Errorf("image weight must be between 0.0 and 1.0, got %v", w.Image)
	}
	if w.Text < 0 || w.Text > 1 {
		return fmt.Errorf("text weight must be between 0.0 and 1.0, got %v", w.Text)
	}
	if math.Abs(w.Image-math.Round(w.Image*10)/10) > weightTolerance {
		return fmt.Errorf("image weight must be in 0.1 increments, got %v", w.Image)
	}
	if math.Abs(w.Text-math.Round(w.Text*10)/10) > weightTolerance {
		return fmt.Errorf("text weight must be in 0.1 increments, got %v", w.Text)
	}
	if math.Abs(w.Image+w.Text-1.0) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %v + %v", w.Image, w.Text)
	}
	return nil
}

// FollowerRange is a half-open follower-count range [Min, Max).
// Max == 0 means unbounded above.
type FollowerRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max,omitempty"`
}

// Filters is a conjunction of structured search constraints. Zero
// values mean "no constraint".
type Filters struct {
	Followers   *FollowerRange `json:"followers,omitempty"`
	AccountType AccountType    `json:"account_type,omitempty"`
	Username    string         `json:"username,omitempty"`
}

// Empty reports whether no constraint is set.
func (f Filters) Empty() bool {
	return f.Followers == nil && f.AccountType == "" && f.Username == ""
}

// Validate rejects filter values outside the documented vocabulary.
func (f Filters) Validate() error {
	if f.Followers != nil {
		if f.Followers.Min < 0 {
			return fmt.Errorf("follower range min must be non-negative, got %d", f.Followers.Min)
		}
		if f.Followers.Max != 0 && f.Followers.Max <= f.Followers.Min {
			return fmt.Errorf("follower range max %d must exceed min %d", f.Followers.Max, f.Followers.Min)
		}
	}
	switch f.AccountType {
	case "", AccountHuman, AccountBrand:
	default:
		return fmt.Errorf("account type filter must be human or brand, got %q", f.AccountType)
	}
	return nil
}

// SearchQuery is a single search request.
//
// ScoreThreshold of zero means "use the configured default"; pass a
// negative value (cosine scores bottom out at -1) to disable the
// cutoff entirely.
type SearchQuery struct {
	Text           string  `json:"text"`
	ImageURL       string  `json:"image_url,omitempty"`
	Filters        Filters `json:"filters,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	Offset         int     `json:"offset,omitempty"`
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
}

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	ProfileID int64   `json:"profile_id"`
	Score     float64 `json:"score"`
	Payload   Payload `json:"payload"`
}
