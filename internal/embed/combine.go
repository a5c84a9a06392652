// ABOUTME: Profile vector combination from per-component embeddings
// ABOUTME: Weighted average (pic 2, posts 1, captions 1, bio 3) then L2-normalized
package embed

import (
	"fmt"
	"math"
)

// Relative weights for profile components. Absent components are
// excluded from the average, not zero-filled.
const (
	profilePicWeight = 2.0
	postImageWeight  = 1.0
	captionWeight    = 1.0
	bioWeight        = 3.0
)

// ProfileVectors holds the per-component embeddings of one profile.
// Any field may be nil/empty when the source data lacks it.
type ProfileVectors struct {
	ProfilePic []float32
	PostImages [][]float32
	Captions   [][]float32
	Bio        []float32
}

// Empty reports whether no component is present.
func (p *ProfileVectors) Empty() bool {
	return p.ProfilePic == nil && len(p.PostImages) == 0 && len(p.Captions) == 0 && p.Bio == nil
}

// CombineProfile computes the single combined profile vector: a
// weighted average of all present components, L2-normalized. Returns
// an error when no component is present or dimensions disagree.
func CombineProfile(pv *ProfileVectors) ([]float32, error) {
	var vectors [][]float32
	var weights []float64

	if pv.ProfilePic != nil {
		vectors = append(vectors, pv.ProfilePic)
		weights = append(weights, profilePicWeight)
	}
	for _, v := range pv.PostImages {
		vectors = append(vectors, v)
		weights = append(weights, postImageWeight)
	}
	for _, v := range pv.Captions {
		vectors = append(vectors, v)
		weights = append(weights, captionWeight)
	}
	if pv.Bio != nil {
		vectors = append(vectors, pv.Bio)
		weights = append(weights, bioWeight)
	}

	return WeightedCombine(vectors, weights)
}

// WeightedCombine averages vectors with the given relative weights
// (normalized to sum to 1 first) and L2-normalizes the result.
func WeightedCombine(vectors [][]float32, weights []float64) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors provided for combination")
	}
	if len(weights) != len(vectors) {
		return nil, fmt.Errorf("number of weights (%d) must match number of vectors (%d)", len(weights), len(vectors))
	}

	dim := len(vectors[0])
	var totalWeight float64
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(v))
		}
		totalWeight += weights[i]
	}
	if totalWeight <= 0 {
		return nil, fmt.Errorf("weights must sum to a positive value, got %v", totalWeight)
	}

	combined := make([]float64, dim)
	for i, v := range vectors {
		w := weights[i] / totalWeight
		for j, x := range v {
			combined[j] += w * float64(x)
		}
	}

	return Normalize(combined)
}

// Normalize scales a vector to unit L2 norm, returning float32.
func Normalize(v []float64) ([]float32, error) {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out, nil
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Sqrt(sumSq)
}
