// ABOUTME: Unit tests for follower-count parsing and categorization
// ABOUTME: Pins suffix multipliers, noise stripping, and tier boundaries
package followers

import (
	"math"
	"testing"

	"github.com/hypelens/hypelens/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"19.3K", 19300, true},
		{"34.2M+ followers", 34200000, true},
		{"1.5B", 1500000000, true},
		{"12345", 12345, true},
		{"12.7", 12, true},
		{"  2.5k followers ", 2500, true},
		{"900", 900, true},
		{"", 0, false},
		{"invalid", 0, false},
		{"1.5.K", 0, false},
		{"K", 0, false},
		{"followers", 0, false},
	}

	for _, tt := range tests {
		got, ok := Parse(tt.input)
		if ok != tt.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		count int64
		want  models.FollowerCategory
	}{
		{0, models.FollowerNone},
		{999, models.FollowerNone},
		{1000, models.FollowerNano},
		{9999, models.FollowerNano},
		{10000, models.FollowerMicro},
		{99999, models.FollowerMicro},
		{100000, models.FollowerMacro},
		{999999, models.FollowerMacro},
		{1000000, models.FollowerMega},
		{50000000, models.FollowerMega},
	}

	for _, tt := range tests {
		if got := Categorize(tt.count); got != tt.want {
			t.Errorf("Categorize(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestCategoryRange(t *testing.T) {
	tests := []struct {
		category models.FollowerCategory
		min, max int64
	}{
		{models.FollowerNano, 1000, 10000},
		{models.FollowerMicro, 10000, 100000},
		{models.FollowerMacro, 100000, 1000000},
		{models.FollowerMega, 1000000, math.MaxInt64},
		{"MICRO", 10000, 100000},
		{"bogus", 0, 0},
		{"", 0, 0},
	}

	for _, tt := range tests {
		min, max := CategoryRange(tt.category)
		if min != tt.min || max != tt.max {
			t.Errorf("CategoryRange(%q) = (%d, %d), want (%d, %d)", tt.category, min, max, tt.min, tt.max)
		}
	}
}

func TestParseCategorizeRoundTrip(t *testing.T) {
	// A parsed count must land inside its own category's range.
	inputs := []string{"1.2K", "45K", "350K", "2.1M"}
	for _, in := range inputs {
		count, ok := Parse(in)
		if !ok {
			t.Fatalf("Parse(%q) failed", in)
		}
		cat := Categorize(count)
		min, max := CategoryRange(cat)
		if count < min || count >= max {
			t.Errorf("count %d for %q outside range [%d, %d) of category %s", count, in, min, max, cat)
		}
	}
}
