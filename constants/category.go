package constants

import (
	"strings"
)

type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Entertainment Category = "Entertainment"
	Medical       Category = "Medical"
	Other         Category = "Other"
)

// allCategories is also the classifier's priority order.
var allCategories = []Category{
	Food,
	Transport,
	Shopping,
	Entertainment,
	Medical,
	Other,
}

func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"groceries":     Food,
		"grocery":       Food,
		"dining":        Food,
		"restaurant":    Food,
		"meals":         Food,
		"taxi":          Transport,
		"cab":           Transport,
		"fuel":          Transport,
		"travel":        Transport,
		"clothing":      Shopping,
		"retail":        Shopping,
		"movies":        Entertainment,
		"cinema":        Entertainment,
		"pharmacy":      Medical,
		"health":        Medical,
		"healthcare":    Medical,
		"miscellaneous": Other,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
