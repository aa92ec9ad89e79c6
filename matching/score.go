package matching

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxMatchRadiusMeters bounds the candidate space. Deliveries beyond
	// ~10km are impractical for volunteer facilitators.
	MaxMatchRadiusMeters = 10000

	compatibilityBonus = 20
	quantityBonus      = 15
)

// Resource classes matched case-insensitively as substrings of the
// donation's free-text resource type.
var (
	foodKeywords      = []string{"food", "meals", "cooked meals", "groceries", "water"}
	essentialKeywords = []string{"blankets", "clothing", "medicine", "shelter"}

	numericToken = regexp.MustCompile(`\d+(\.\d+)?`)
)

// Score computes the compatibility score for a pair at the given distance.
// Base decays linearly with distance, which keeps distance dominant in the
// ranking.
func Score(distanceMeters float64, resourceType string, peopleInNeed int, quantity string) float64 {
	score := 100 - distanceMeters/100

	if ResourceCompatible(resourceType, peopleInNeed) {
		score += compatibilityBonus
	}
	if QuantityAdequate(quantity, peopleInNeed) {
		score += quantityBonus
	}

	return score
}

// ResourceCompatible reports whether a donation's resource type serves the
// report's need. Food-class resources always do; essentials only make sense
// for groups of two or more.
func ResourceCompatible(resourceType string, peopleInNeed int) bool {
	lowered := strings.ToLower(resourceType)

	for _, keyword := range foodKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}

	if peopleInNeed >= 2 {
		for _, keyword := range essentialKeywords {
			if strings.Contains(lowered, keyword) {
				return true
			}
		}
	}

	return false
}

// QuantityAdequate extracts the first numeric token from the donation's
// free-text quantity and compares it against the headcount. Unparseable
// quantities simply withhold the bonus.
func QuantityAdequate(quantity string, peopleInNeed int) bool {
	token := numericToken.FindString(quantity)
	if token == "" {
		return false
	}

	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return false
	}

	return amount >= float64(peopleInNeed)
}
