package usecase

import (
	"math"
	"regexp"
	"strconv"

	"github.com/platewise/resolver/internal/domain"
)

// kJ to kcal.
const kcalPerKilojoule = 0.239006

// servingGramsRegex pulls the gram/ml amount out of free-text serving
// sizes like "1 portion (30 g)" or "250ml".
var servingGramsRegex = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:g|ml)\b`)

// nutrient field precedence: explicit per-100g, then per-serving scaled by
// parsed serving grams.
type nutrientField struct {
	per100g    string
	perServing string
}

var macroFields = map[string]nutrientField{
	"protein": {"proteins_100g", "proteins_serving"},
	"fat":     {"fat_100g", "fat_serving"},
	"carbs":   {"carbohydrates_100g", "carbohydrates_serving"},
	"fiber":   {"fiber_100g", "fiber_serving"},
}

// HasUsableNutrients reports whether the product carries at least one field
// the mapper can turn into energy or a macro. The scorer uses this as its
// pre-filter.
func HasUsableNutrients(p *domain.ProductRecord) bool {
	if len(p.Nutriments) == 0 {
		return false
	}
	for _, key := range []string{
		"energy-kcal_100g", "energy-kj_100g", "energy-kcal_serving",
		"proteins_100g", "fat_100g", "carbohydrates_100g",
	} {
		if _, ok := p.Nutriments[key]; ok {
			return true
		}
	}
	return false
}

// PerHundred normalizes a product's nutriments to the canonical per-100g
// profile. ok is false when nothing usable exists. Missing individual
// fields default to zero per the data model.
func PerHundred(p *domain.ProductRecord) (domain.Nutrients100g, bool) {
	if !HasUsableNutrients(p) {
		return domain.Nutrients100g{}, false
	}

	servingGrams := parseServingGrams(p.ServingSize)
	n := domain.Nutrients100g{
		Kcal:    kcalPer100(p.Nutriments, servingGrams),
		Protein: fieldPer100(p.Nutriments, macroFields["protein"], servingGrams),
		Fat:     fieldPer100(p.Nutriments, macroFields["fat"], servingGrams),
		Carbs:   fieldPer100(p.Nutriments, macroFields["carbs"], servingGrams),
		Fiber:   fieldPer100(p.Nutriments, macroFields["fiber"], servingGrams),
	}
	return n, true
}

// kcalPer100: explicit kcal per 100g, else per-serving kcal scaled up, else
// kilojoules converted.
func kcalPer100(nutriments map[string]float64, servingGrams float64) float64 {
	if v, ok := nutriments["energy-kcal_100g"]; ok && plausible(v, 0, 1000) {
		return v
	}
	if v, ok := nutriments["energy-kcal_serving"]; ok && servingGrams > 0 {
		scaled := v * 100 / servingGrams
		if plausible(scaled, 0, 1000) {
			return scaled
		}
	}
	if v, ok := nutriments["energy-kj_100g"]; ok && plausible(v, 0, 4200) {
		return v * kcalPerKilojoule
	}
	return 0
}

func fieldPer100(nutriments map[string]float64, f nutrientField, servingGrams float64) float64 {
	if v, ok := nutriments[f.per100g]; ok && plausible(v, 0, 100) {
		return v
	}
	if v, ok := nutriments[f.perServing]; ok && servingGrams > 0 {
		scaled := v * 100 / servingGrams
		if plausible(scaled, 0, 100) {
			return scaled
		}
	}
	return 0
}

func plausible(v, min, max float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= min && v <= max
}

// parseServingGrams extracts grams (or ml, treated 1:1) from a free-text
// serving-size string. Returns 0 when unparseable.
func parseServingGrams(servingSize string) float64 {
	m := servingGramsRegex.FindStringSubmatch(servingSize)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(replaceComma(m[1]), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

func replaceComma(s string) string {
	out := []byte(s)
	for i := range out {
		if out[i] == ',' {
			out[i] = '.'
		}
	}
	return string(out)
}

// ScaleToPortion scales a per-100g profile linearly to the consumed grams.
// Kcal rounds to an integer, macros to one decimal.
func ScaleToPortion(n domain.Nutrients100g, grams float64) domain.PortionNutrients {
	factor := grams / 100
	return domain.PortionNutrients{
		Kcal:    int(math.Round(n.Kcal * factor)),
		Protein: roundMacro(n.Protein * factor),
		Fat:     roundMacro(n.Fat * factor),
		Carbs:   roundMacro(n.Carbs * factor),
		Fiber:   roundMacro(n.Fiber * factor),
	}
}

func roundMacro(v float64) float64 {
	return math.Round(v*10) / 10
}
