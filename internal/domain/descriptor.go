package domain

// ItemDescriptor is the upstream extractor's structured guess of a single
// consumed food item. Every optional field may be empty; consumers must
// treat the whole struct defensively.
type ItemDescriptor struct {
	Name             string   `json:"name"`
	Brand            string   `json:"brand,omitempty"`
	BrandNormalized  string   `json:"brandNormalized,omitempty"`
	CleanName        string   `json:"cleanName,omitempty"`
	RequiredTokens   []string `json:"requiredTokens,omitempty"`
	VariantTokens    []string `json:"variantTokens,omitempty"`
	CanonicalCategory string  `json:"canonicalCategory,omitempty"`
	FoodForm         string   `json:"foodForm,omitempty"`
	Locale           string   `json:"locale,omitempty"`
	Confidence       float64  `json:"confidence"`
	PortionValue     float64  `json:"portionValue,omitempty"`
	PortionUnit      string   `json:"portionUnit,omitempty"`
	Barcode          string   `json:"barcode,omitempty"`
}

// SearchName returns the best term to search with, preferring the cleaned
// name produced upstream over the raw one.
func (d *ItemDescriptor) SearchName() string {
	if d.CleanName != "" {
		return d.CleanName
	}
	return d.Name
}

// BrandContext returns the best available brand string, preferring the
// normalized form supplied upstream.
func (d *ItemDescriptor) BrandContext() string {
	if d.BrandNormalized != "" {
		return d.BrandNormalized
	}
	return d.Brand
}
