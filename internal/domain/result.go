package domain

// CandidateScore is the per-candidate scoring breakdown. It is recomputed
// on every resolution and never persisted.
type CandidateScore struct {
	Brand              float64 `json:"brand"`
	VariantPhrase      float64 `json:"variantPhrase"`
	VariantToken       float64 `json:"variantToken"`
	Category           float64 `json:"category"`
	NameSimilarity     float64 `json:"nameSimilarity"`
	Quantity           float64 `json:"quantity"`
	Nutriments         float64 `json:"nutriments"`
	DataQuality        float64 `json:"dataQuality"`
	Total              float64 `json:"total"`
	RequiredTokenMatch bool    `json:"requiredTokenMatch"`
}

// Nutrients100g is the canonical per-100g nutrient profile.
type Nutrients100g struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein_g"`
	Fat     float64 `json:"fat_g"`
	Carbs   float64 `json:"carbs_g"`
	Fiber   float64 `json:"fiber_g"`
}

// PortionNutrients is a per-100g profile scaled to a consumed portion.
// Kcal is rounded to an integer, macros to one decimal.
type PortionNutrients struct {
	Kcal    int     `json:"kcal"`
	Protein float64 `json:"protein_g"`
	Fat     float64 `json:"fat_g"`
	Carbs   float64 `json:"carbs_g"`
	Fiber   float64 `json:"fiber_g"`
}

// Add accumulates another portion into the receiver.
func (n *PortionNutrients) Add(o PortionNutrients) {
	n.Kcal += o.Kcal
	n.Protein = round1(n.Protein + o.Protein)
	n.Fat = round1(n.Fat + o.Fat)
	n.Carbs = round1(n.Carbs + o.Carbs)
	n.Fiber = round1(n.Fiber + o.Fiber)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// ResolutionResult is the outcome for a single descriptor: either a
// grounded product with its score and portion-scaled nutrients, or a typed
// unresolved reason plus the canonical name for clarification UX.
type ResolutionResult struct {
	Item               ItemDescriptor    `json:"item"`
	Resolved           bool              `json:"resolved"`
	Product            *ProductRecord    `json:"product,omitempty"`
	Score              *CandidateScore   `json:"score,omitempty"`
	Grams              float64           `json:"grams,omitempty"`
	GramsAssumed       bool              `json:"gramsAssumed,omitempty"`
	Nutrients          *PortionNutrients `json:"nutrients,omitempty"`
	Reason             string            `json:"reason,omitempty"`
	Canonical          string            `json:"canonical,omitempty"`
	Confidence         float64           `json:"confidence"`
	NeedsClarification bool              `json:"needsClarification,omitempty"`
}

// BatchResult aggregates one user turn's resolutions.
type BatchResult struct {
	Items             []ResolutionResult `json:"items"`
	Aggregate         PortionNutrients   `json:"aggregate"`
	UnresolvedReasons []string           `json:"unresolvedReasons,omitempty"`
}
