package usecase

// BrandClass is the router's brand classification.
type BrandClass int

const (
	BrandUnknown BrandClass = iota
	BrandLocal
	BrandGlobal
)

func (c BrandClass) String() string {
	switch c {
	case BrandLocal:
		return "local"
	case BrandGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Rules holds the declarative heuristic tables: brand classification sets,
// category preference rules, portion densities and default piece weights.
// Everything here is injectable configuration; DefaultRules is a starting
// point, not baked-in truth.
type Rules struct {
	// LocalBrands are regional brands well covered by the structured/legacy
	// catalogs. Keys are Normalize()d.
	LocalBrands map[string]struct{}
	// GlobalBrands are worldwide brands with huge full-text catalogs.
	GlobalBrands map[string]struct{}

	// SweetSnackTags penalize candidates when the descriptor's category is
	// not sweet-sensitive (a "yogurt" should not resolve to a candy bar).
	SweetSnackTags []string
	// SweetSensitiveCategories are descriptor categories where sweet-snack
	// tags are expected rather than suspicious.
	SweetSensitiveCategories map[string]struct{}
	// FlavoredTokens penalize flavored variants for plain, brandless
	// descriptors ("milk" should not resolve to "strawberry milk drink").
	FlavoredTokens []string
	// NegativeCategoryTags always penalize (pet food, supplements, ...).
	NegativeCategoryTags []string
	// CategoryTagHints maps canonical descriptor categories to the backend
	// category tag used as a structured include filter.
	CategoryTagHints map[string]string

	// Densities maps name keywords to g/ml for volume portions.
	Densities map[string]float64
	// PieceWeights maps canonical categories to default grams for
	// slice/piece/serving portions.
	PieceWeights map[string]float64
	// PieceKeywordWeights override PieceWeights when the item name contains
	// the keyword.
	PieceKeywordWeights map[string]float64
	// FallbackPieceGrams is the universal last-resort piece weight.
	FallbackPieceGrams float64
}

// ClassifyBrand buckets a brand by membership in the two static sets.
// The input is normalized before lookup; an empty brand is unknown.
func (r *Rules) ClassifyBrand(brand string) BrandClass {
	norm := Normalize(brand)
	if norm == "" {
		return BrandUnknown
	}
	if _, ok := r.LocalBrands[norm]; ok {
		return BrandLocal
	}
	if _, ok := r.GlobalBrands[norm]; ok {
		return BrandGlobal
	}
	// Concatenated spellings still classify.
	compact := NormalizeCompact(brand)
	for b := range r.LocalBrands {
		if NormalizeCompact(b) == compact {
			return BrandLocal
		}
	}
	for b := range r.GlobalBrands {
		if NormalizeCompact(b) == compact {
			return BrandGlobal
		}
	}
	return BrandUnknown
}

// DefaultRules builds the stock rule tables.
func DefaultRules() *Rules {
	return &Rules{
		LocalBrands: brandSet(
			"hacendado", "mercadona", "carrefour", "dia", "eroski", "alcampo",
			"central lechera asturiana", "pascual", "puleva", "asturiana",
			"el pozo", "campofrio", "casa tarradellas", "gullon", "cuetara",
			"panrico", "bimbo iberia", "don simon", "granini", "cola cao",
			"nocilla", "gallo", "sos", "la fallera", "helios", "vicky foods",
		),
		GlobalBrands: brandSet(
			"coca cola", "pepsi", "fanta", "sprite", "schweppes", "red bull",
			"nestle", "danone", "activia", "alpro", "oatly", "yoplait",
			"kelloggs", "heinz", "hellmanns", "knorr", "maggi", "barilla",
			"ferrero", "nutella", "kinder", "milka", "lindt", "toblerone",
			"oreo", "lu", "pringles", "lays", "doritos", "cheetos",
			"mcdonalds", "burger king", "kfc", "subway", "starbucks",
			"ben and jerrys", "haagen dazs", "philadelphia", "babybel",
		),
		SweetSnackTags: []string{
			"en:sweet-snacks", "en:candies", "en:chocolates", "en:desserts",
			"en:biscuits-and-cakes", "en:confectioneries",
		},
		SweetSensitiveCategories: map[string]struct{}{
			"sweets": {}, "dessert": {}, "chocolate": {}, "pastry": {},
			"cookie": {}, "candy": {}, "ice_cream": {}, "cake": {},
		},
		FlavoredTokens: []string{
			"chocolate", "strawberry", "fresa", "vanilla", "vainilla",
			"caramel", "caramelo", "banana", "platano", "coconut", "coco",
			"hazelnut", "avellana",
		},
		NegativeCategoryTags: []string{
			"en:pet-foods", "en:dietary-supplements", "en:baby-foods",
			"en:non-food-products",
		},
		CategoryTagHints: map[string]string{
			"milk": "en:milks", "yogurt": "en:yogurts", "cheese": "en:cheeses",
			"bread": "en:breads", "cereal": "en:breakfast-cereals",
			"soda": "en:sodas", "juice": "en:fruit-juices",
			"cookie": "en:biscuits", "chocolate": "en:chocolates",
			"meat": "en:meats", "fish": "en:fishes", "pasta": "en:pastas",
			"rice": "en:rices", "fruit": "en:fruits", "vegetable": "en:vegetables",
		},
		Densities: map[string]float64{
			"water": 1.0, "agua": 1.0,
			"milk": 1.03, "leche": 1.03,
			"oil": 0.92, "aceite": 0.92,
			"honey": 1.42, "miel": 1.42,
			"juice": 1.05, "zumo": 1.05,
			"cream": 1.01, "nata": 1.01,
			"yogurt": 1.04, "yogur": 1.04,
			"syrup": 1.37, "sirope": 1.37,
			"soup": 1.0, "sopa": 1.0,
			"soda": 1.04, "cola": 1.04,
		},
		PieceWeights: map[string]float64{
			"bread": 30, "pizza": 125, "cheese": 20, "cold_cuts": 15,
			"fruit": 120, "vegetable": 80, "egg": 60, "cookie": 12,
			"pastry": 65, "chocolate": 15, "meat": 120, "fish": 120,
		},
		PieceKeywordWeights: map[string]float64{
			"pizza": 125, "toast": 25, "tostada": 25, "baguette": 55,
			"croissant": 60, "egg": 60, "huevo": 60, "apple": 180,
			"manzana": 180, "banana": 120, "platano": 120, "orange": 130,
			"naranja": 130, "galleta": 12,
		},
		FallbackPieceGrams: 100,
	}
}

func brandSet(brands ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(brands))
	for _, b := range brands {
		set[Normalize(b)] = struct{}{}
	}
	return set
}
