// Package safety decides whether a product is safe for a shopper's declared allergy.
package safety

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// NoRestriction is the allergy sentinel meaning the shopper has no allergy
const NoRestriction = "none"

const safeMessage = "Product found! Please follow the robot."

// Verdict is the outcome of comparing an allergy with a product's allergens
type Verdict struct {
	Safe    bool   `json:"safe"`
	Message string `json:"message"`
	// Allergen is the normalized allergen that made the product unsafe
	Allergen string `json:"allergen,omitempty"`
}

// Normalize trims and case-folds a token for comparison.
// A Caser is stateful, so a fresh one is used per call.
func Normalize(token string) string {
	return cases.Fold().String(strings.TrimSpace(token))
}

// ParseAllergens splits a comma separated allergen list into normalized tokens.
// Empty entries and the "None" sentinel are dropped; duplicates keep their first position.
func ParseAllergens(raw string) []string {
	allergens := make([]string, 0)
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		token := Normalize(part)
		if token == "" || token == NoRestriction || seen[token] {
			continue
		}
		seen[token] = true
		allergens = append(allergens, token)
	}
	return allergens
}

// Check compares an allergy token against a product's allergens.
// Matching is by whole normalized token, so "nut" never matches "nutmeg".
func Check(allergy string, allergens []string) Verdict {
	want := Normalize(allergy)
	if want == "" || want == NoRestriction {
		return Verdict{Safe: true, Message: safeMessage}
	}

	for _, allergen := range allergens {
		if Normalize(allergen) == want {
			return Verdict{
				Safe:     false,
				Message:  fmt.Sprintf("UNSAFE: contains %s.", want),
				Allergen: want,
			}
		}
	}
	return Verdict{Safe: true, Message: safeMessage}
}

// CheckList is Check over a raw comma separated allergen list
func CheckList(allergy, rawAllergens string) Verdict {
	return Check(allergy, ParseAllergens(rawAllergens))
}
