// ABOUTME: Unit tests for profile vector combination
// ABOUTME: Pins component weighting, normalization, and degenerate inputs
package embed

import (
	"math"
	"testing"
)

func TestCombineProfileBioOnly(t *testing.T) {
	// A profile with only a bio must yield the bio embedding itself,
	// unit-normalized.
	bio := []float32{3, 4, 0}
	combined, err := CombineProfile(&ProfileVectors{Bio: bio})
	if err != nil {
		t.Fatalf("CombineProfile error: %v", err)
	}

	if n := Norm(combined); math.Abs(n-1.0) > 1e-6 {
		t.Errorf("combined norm = %v, want 1.0", n)
	}
	// Direction must match the bio vector: (0.6, 0.8, 0)
	want := []float32{0.6, 0.8, 0}
	for i := range want {
		if math.Abs(float64(combined[i]-want[i])) > 1e-6 {
			t.Errorf("combined[%d] = %v, want %v", i, combined[i], want[i])
		}
	}
}

func TestCombineProfileWeighting(t *testing.T) {
	// Pic weight 2 along x, bio weight 3 along y: direction before
	// normalization is (2/5, 3/5).
	pic := []float32{1, 0}
	bio := []float32{0, 1}
	combined, err := CombineProfile(&ProfileVectors{ProfilePic: pic, Bio: bio})
	if err != nil {
		t.Fatalf("CombineProfile error: %v", err)
	}

	expectedAngle := math.Atan2(0.6, 0.4)
	gotAngle := math.Atan2(float64(combined[1]), float64(combined[0]))
	if math.Abs(expectedAngle-gotAngle) > 1e-6 {
		t.Errorf("combined direction angle = %v, want %v", gotAngle, expectedAngle)
	}
	if n := Norm(combined); math.Abs(n-1.0) > 1e-6 {
		t.Errorf("combined norm = %v, want 1.0", n)
	}
}

func TestCombineProfileAllComponents(t *testing.T) {
	pv := &ProfileVectors{
		ProfilePic: []float32{1, 0, 0},
		PostImages: [][]float32{{0, 1, 0}, {0, 1, 0}},
		Captions:   [][]float32{{0, 0, 1}},
		Bio:        []float32{1, 0, 0},
	}
	combined, err := CombineProfile(pv)
	if err != nil {
		t.Fatalf("CombineProfile error: %v", err)
	}
	// Relative weights: x gets 2+3=5, y gets 1+1=2, z gets 1; total 8.
	// Normalized direction proportional to (5, 2, 1).
	mag := math.Sqrt(25 + 4 + 1)
	want := []float64{5 / mag, 2 / mag, 1 / mag}
	for i := range want {
		if math.Abs(float64(combined[i])-want[i]) > 1e-6 {
			t.Errorf("combined[%d] = %v, want %v", i, combined[i], want[i])
		}
	}
}

func TestCombineProfileEmpty(t *testing.T) {
	if _, err := CombineProfile(&ProfileVectors{}); err == nil {
		t.Error("CombineProfile accepted profile with no components")
	}
}

func TestWeightedCombineDimensionMismatch(t *testing.T) {
	_, err := WeightedCombine([][]float32{{1, 0}, {1, 0, 0}}, []float64{1, 1})
	if err == nil {
		t.Error("WeightedCombine accepted mismatched dimensions")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	if _, err := Normalize([]float64{0, 0, 0}); err == nil {
		t.Error("Normalize accepted zero vector")
	}
}
