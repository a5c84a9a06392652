// ABOUTME: Follower-count string parsing and tier categorization
// ABOUTME: Handles human-readable counts like "19.3K" or "34.2M+ followers"
package followers

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hypelens/hypelens/internal/models"
)

// Unit multipliers for follower-count suffixes.
const (
	thousand = 1_000
	million  = 1_000_000
	billion  = 1_000_000_000
)

var countPattern = regexp.MustCompile(`^(\d+\.?\d*)([KMB])?$`)

// Parse converts a human-readable follower count to a number.
// Accepts a decimal with an optional K/M/B suffix (case-insensitive),
// ignoring "followers" and "+" noise and surrounding whitespace.
// Returns false on anything it cannot parse; it never errors.
func Parse(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	cleaned := strings.ToUpper(strings.TrimSpace(text))
	cleaned = strings.ReplaceAll(cleaned, "FOLLOWERS", "")
	cleaned = strings.ReplaceAll(cleaned, "+", "")
	cleaned = strings.TrimSpace(cleaned)

	m := countPattern.FindStringSubmatch(cleaned)
	if m == nil {
		// Bare number without a unit, e.g. "12345" or "12345.0"
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return int64(f), true
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch m[2] {
	case "K":
		f *= thousand
	case "M":
		f *= million
	case "B":
		f *= billion
	}

	return int64(f), true
}

// Categorize maps a numeric follower count to its tier.
func Categorize(count int64) models.FollowerCategory {
	switch {
	case count < thousand:
		return models.FollowerNone
	case count < 10*thousand:
		return models.FollowerNano
	case count < 100*thousand:
		return models.FollowerMicro
	case count < million:
		return models.FollowerMacro
	default:
		return models.FollowerMega
	}
}

// CategoryRange is the inverse of Categorize: the [min, max) count
// range a tier covers. Mega has no upper bound (math.MaxInt64);
// unknown categories map to (0, 0).
func CategoryRange(category models.FollowerCategory) (int64, int64) {
	switch models.FollowerCategory(strings.ToLower(string(category))) {
	case models.FollowerNano:
		return thousand, 10 * thousand
	case models.FollowerMicro:
		return 10 * thousand, 100 * thousand
	case models.FollowerMacro:
		return 100 * thousand, million
	case models.FollowerMega:
		return million, math.MaxInt64
	default:
		return 0, 0
	}
}
