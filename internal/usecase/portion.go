package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// Fixed conversion factors. Mass units go straight to grams; volume units
// go to milliliters and then through a density lookup.
var massGrams = map[string]float64{
	"g":  1,
	"kg": 1000,
	"mg": 0.001,
	"oz": 28.35,
	"lb": 453.59,
}

var volumeMl = map[string]float64{
	"ml":   1,
	"cl":   10,
	"l":    1000,
	"tsp":  5,
	"tbsp": 15,
	"cup":  240,
}

// unitSynonyms normalizes the many spellings the extractor produces to one
// canonical token.
var unitSynonyms = map[string]string{
	"gram": "g", "grams": "g", "gr": "g", "gramo": "g", "gramos": "g",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg",
	"milligram": "mg", "milligrams": "mg",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "mls": "ml", "cc": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "litro": "l", "litros": "l",
	"teaspoon": "tsp", "teaspoons": "tsp", "cucharadita": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbs": "tbsp", "cucharada": "tbsp",
	"cups": "cup", "taza": "cup", "tazas": "cup",
	"slices": "slice", "rebanada": "slice", "rebanadas": "slice", "loncha": "slice", "lonchas": "slice",
	"pieces": "piece", "unit": "piece", "units": "piece", "unidad": "piece", "unidades": "piece", "pieza": "piece", "piezas": "piece",
	"servings": "serving", "portion": "serving", "porcion": "serving", "racion": "serving", "raciones": "serving",
}

// pieceUnits are resolved via category default weights.
var pieceUnits = map[string]struct{}{
	"slice": {}, "piece": {}, "serving": {},
}

// PortionResolver converts arbitrary portion expressions to grams using the
// rule tables.
type PortionResolver struct {
	rules *Rules
}

// NewPortionResolver creates a resolver over the given rules.
func NewPortionResolver(rules *Rules) *PortionResolver {
	return &PortionResolver{rules: rules}
}

// ToGrams converts value+unit to grams. name and category feed the density
// and piece-weight lookups. ok is false when the expression cannot be
// resolved; callers apply a 100 g default and flag the estimate. It never
// panics and never yields NaN.
func (p *PortionResolver) ToGrams(value float64, unit, name, category string) (grams float64, ok bool) {
	if value <= 0 {
		return 0, false
	}
	canonical := canonicalUnit(unit)
	if canonical == "" {
		return 0, false
	}

	if factor, isMass := massGrams[canonical]; isMass {
		return value * factor, true
	}
	if ml, isVolume := volumeMl[canonical]; isVolume {
		return value * ml * p.density(name), true
	}
	if _, isPiece := pieceUnits[canonical]; isPiece {
		return value * p.pieceGrams(name, category), true
	}
	return 0, false
}

func canonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return ""
	}
	if canonical, ok := unitSynonyms[u]; ok {
		return canonical
	}
	if _, ok := massGrams[u]; ok {
		return u
	}
	if _, ok := volumeMl[u]; ok {
		return u
	}
	if _, ok := pieceUnits[u]; ok {
		return u
	}
	return ""
}

// quantityRegex matches package quantity strings like "330 ml", "1.5 L",
// "6 x 125 g" (multiplier optional).
var quantityRegex = regexp.MustCompile(`(?i)(?:(\d+)\s*x\s*)?(\d+(?:[.,]\d+)?)\s*(mg|g|kg|ml|cl|l|oz|lb)\b`)

// QuantityToGrams parses a free-text package quantity string to grams,
// using the item name for the density lookup on volume units.
func (p *PortionResolver) QuantityToGrams(quantity, name string) (float64, bool) {
	m := quantityRegex.FindStringSubmatch(quantity)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	if m[1] != "" {
		if mult, err := strconv.Atoi(m[1]); err == nil && mult > 0 {
			value *= float64(mult)
		}
	}
	return p.ToGrams(value, strings.ToLower(m[3]), name, "")
}

// density looks the item name up in the keyword table; unknown liquids
// default to 1.0 g/ml.
func (p *PortionResolver) density(name string) float64 {
	norm := Normalize(name)
	for keyword, d := range p.rules.Densities {
		if strings.Contains(norm, keyword) {
			return d
		}
	}
	return 1.0
}

// pieceGrams resolves slice/piece/serving weights: keyword overrides win
// over category defaults, with a universal fallback.
func (p *PortionResolver) pieceGrams(name, category string) float64 {
	norm := Normalize(name)
	for keyword, grams := range p.rules.PieceKeywordWeights {
		if strings.Contains(norm, keyword) {
			return grams
		}
	}
	if grams, ok := p.rules.PieceWeights[strings.ToLower(strings.TrimSpace(category))]; ok {
		return grams
	}
	return p.rules.FallbackPieceGrams
}
