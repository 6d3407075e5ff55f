package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortionResolver_ToGrams(t *testing.T) {
	p := NewPortionResolver(DefaultRules())

	tests := []struct {
		name     string
		value    float64
		unit     string
		item     string
		category string
		expected float64
		ok       bool
	}{
		{"grams passthrough", 150, "g", "rice", "rice", 150, true},
		{"kilograms", 1, "kg", "flour", "", 1000, true},
		{"ounces", 2, "oz", "cheese", "cheese", 56.7, true},
		{"water ml density 1", 100, "ml", "agua mineral", "", 100, true},
		{"milk ml density", 200, "ml", "leche entera", "milk", 206, true},
		{"oil tablespoon", 2, "tbsp", "aceite de oliva", "", 27.6, true},
		{"tablespoon default density", 2, "tbsp", "salsa de tomate", "", 30, true},
		{"slice of bread by category", 2, "slice", "pan integral", "bread", 60, true},
		{"keyword beats category", 1, "piece", "pizza margherita", "bread", 125, true},
		{"piece fallback weight", 1, "piece", "ensalada mixta", "", 100, true},
		{"spanish synonym", 1, "cucharada", "miel", "", 21.3, true},
		{"unknown unit", 3, "handful", "nuts", "", 0, false},
		{"zero value", 0, "g", "rice", "", 0, false},
		{"negative value", -5, "g", "rice", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grams, ok := p.ToGrams(tt.value, tt.unit, tt.item, tt.category)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, grams, 0.01)
			}
		})
	}
}

func TestPortionResolver_QuantityToGrams(t *testing.T) {
	p := NewPortionResolver(DefaultRules())

	tests := []struct {
		name     string
		quantity string
		item     string
		expected float64
		ok       bool
	}{
		{"simple grams", "500 g", "pasta", 500, true},
		{"milliliters with density", "330 ml", "cola", 343.2, true},
		{"liters", "1.5 L", "agua", 1500, true},
		{"multipack", "6 x 125 g", "yogur", 750, true},
		{"comma decimal", "0,33 l", "agua", 330, true},
		{"unparseable", "family size", "cereal", 0, false},
		{"empty", "", "milk", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grams, ok := p.QuantityToGrams(tt.quantity, tt.item)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, grams, 0.01)
			}
		})
	}
}
