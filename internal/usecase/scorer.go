package usecase

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/platewise/resolver/internal/domain"
)

// Scoring component constants. The total is a plain sum so each component
// stays independently inspectable in the breakdown.
const (
	brandExactBonus      = 40.0
	brandOverlapMax      = 25.0
	brandMismatchPenalty = -25.0

	variantPhraseBonus     = 30.0
	variantTokenBonus      = 15.0
	optionalVariantFactor  = 0.5
	missingRequiredPenalty = -40.0

	negativeCategoryPenalty = -20.0
	categoryDepthBonusMax   = 6.0
	sweetSnackPenalty       = -15.0
	flavoredPlainPenalty    = -10.0

	nameSimilarityMax = 20.0

	quantityBonusMax  = 12.0
	quantityTolerance = 0.25

	dataQualityBonusMax      = 5.0
	nutrientCoverageBonusMax = 8.0

	defaultAcceptThreshold      = 30.0
	defaultBrandAcceptThreshold = 45.0
)

// ScorerConfig holds the accept/reject thresholds.
type ScorerConfig struct {
	// AcceptThreshold applies when the descriptor has no brand context.
	AcceptThreshold float64
	// BrandAcceptThreshold is the stricter bar when a brand is present.
	BrandAcceptThreshold float64
	Debug                bool
}

// ScoredCandidate pairs a candidate with its score breakdown.
type ScoredCandidate struct {
	Product domain.ProductRecord
	Score   domain.CandidateScore
}

// Scorer ranks backend candidates against a descriptor with deterministic
// multi-factor scoring and explicit accept/reject policy.
type Scorer struct {
	rules    *Rules
	portions *PortionResolver
	cfg      ScorerConfig
	logger   *zap.Logger
}

// NewScorer creates a scorer. Zero thresholds fall back to defaults.
func NewScorer(rules *Rules, portions *PortionResolver, cfg ScorerConfig, logger *zap.Logger) *Scorer {
	if cfg.AcceptThreshold <= 0 {
		cfg.AcceptThreshold = defaultAcceptThreshold
	}
	if cfg.BrandAcceptThreshold <= 0 {
		cfg.BrandAcceptThreshold = defaultBrandAcceptThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{rules: rules, portions: portions, cfg: cfg, logger: logger}
}

// SetThresholds swaps the accept thresholds at runtime (hot reload).
func (s *Scorer) SetThresholds(accept, brandAccept float64) {
	if accept > 0 {
		s.cfg.AcceptThreshold = accept
	}
	if brandAccept > 0 {
		s.cfg.BrandAcceptThreshold = brandAccept
	}
}

// SelectBest scores all candidates and applies the accept policy.
//
// Sort order: required-token match (boolean) takes strict precedence over
// raw score (a wrong variant is a wrong product even from the right brand),
// then score descending. The top candidate is accepted only if it clears
// the threshold and does not trip an explicit reject.
func (s *Scorer) SelectBest(d *domain.ItemDescriptor, candidates []domain.ProductRecord) (*ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, domain.ErrNoCandidate
	}

	// Pre-filter: a candidate without a usable nutrient field can never
	// ground a nutrition record.
	usable := candidates[:0:0]
	for _, c := range candidates {
		if HasUsableNutrients(&c) {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return nil, domain.ErrNoUsefulNutrients
	}

	scored := make([]ScoredCandidate, 0, len(usable))
	for _, c := range usable {
		sc := ScoredCandidate{Product: c, Score: s.Score(d, &c)}
		if s.cfg.Debug {
			s.logger.Debug("candidate scored",
				zap.String("code", c.Code),
				zap.String("name", c.ProductName),
				zap.Float64("total", sc.Score.Total),
				zap.Bool("required_match", sc.Score.RequiredTokenMatch))
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score.RequiredTokenMatch != scored[j].Score.RequiredTokenMatch {
			return scored[i].Score.RequiredTokenMatch
		}
		return scored[i].Score.Total > scored[j].Score.Total
	})

	top := scored[0]
	hasRequired := len(d.RequiredTokens) > 0
	brandContext := strings.TrimSpace(d.BrandContext()) != ""

	// Explicit rejects come before the generic low-score rejection so the
	// caller sees the real reason.
	if hasRequired && !top.Score.RequiredTokenMatch {
		return &top, domain.ErrMissingRequiredTokens
	}
	if brandContext && top.Score.Brand <= brandMismatchPenalty && !top.Score.RequiredTokenMatch {
		return &top, domain.ErrSevereBrandMismatch
	}

	threshold := s.cfg.AcceptThreshold
	if brandContext {
		threshold = s.cfg.BrandAcceptThreshold
	}
	if top.Score.Total < threshold {
		return &top, domain.ErrLowScore
	}
	return &top, nil
}

// Score computes the full breakdown for one candidate.
func (s *Scorer) Score(d *domain.ItemDescriptor, p *domain.ProductRecord) domain.CandidateScore {
	var score domain.CandidateScore

	score.Brand = s.brandScore(d.BrandContext(), p)
	score.VariantPhrase, score.VariantToken, score.RequiredTokenMatch = s.variantScore(d, p)
	score.Category = s.categoryScore(d, p)
	score.NameSimilarity = s.nameSimilarity(d, p)
	score.Quantity = s.quantityScore(d, p)
	score.Nutriments = nutrientCoverageBonus(p)
	score.DataQuality = dataQualityBonus(p)

	score.Total = score.Brand + score.VariantPhrase + score.VariantToken +
		score.Category + score.NameSimilarity + score.Quantity +
		score.Nutriments + score.DataQuality
	return score
}

// brandScore: exact normalized match (including the space-collapsed form)
// gets a large fixed bonus; partial token overlap a proportional capped
// bonus; brand context with zero overlap a fixed penalty.
func (s *Scorer) brandScore(descBrand string, p *domain.ProductRecord) float64 {
	descBrand = strings.TrimSpace(descBrand)
	if descBrand == "" {
		return 0
	}

	descNorm := Normalize(descBrand)
	descCompact := NormalizeCompact(descBrand)
	descTokens := Tokens(descBrand)

	candidateBrands := p.BrandList()
	if len(candidateBrands) == 0 {
		// No brand information on the candidate is weaker evidence than a
		// conflicting brand; look in the product name before penalizing.
		candidateBrands = []string{p.ProductName}
	}

	best := brandMismatchPenalty
	for _, cb := range candidateBrands {
		cbNorm := Normalize(cb)
		if cbNorm == "" {
			continue
		}
		if cbNorm == descNorm || NormalizeCompact(cb) == descCompact {
			return brandExactBonus
		}
		overlap := overlapCount(descTokens, tokenSet(Tokens(cb)))
		if overlap > 0 && len(descTokens) > 0 {
			bonus := brandOverlapMax * float64(overlap) / float64(len(descTokens))
			if bonus > best {
				best = bonus
			}
		}
	}
	return best
}

// variantScore checks required and optional variant tokens against the
// candidate's name, labels and categories. Whole-word matches outrank
// substring matches. When required tokens exist and none match at all, a
// large fixed penalty lands in the token component. Acceptance is still
// governed by the requiredMatch gate in SelectBest, not by the penalty.
func (s *Scorer) variantScore(d *domain.ItemDescriptor, p *domain.ProductRecord) (phrase, token float64, requiredMatch bool) {
	haystack := Normalize(strings.Join(append(
		[]string{p.ProductName, strings.Join(p.LabelsTags, " ")},
		p.CategoriesTags...), " "))
	hayTokens := tokenSet(strings.Fields(haystack))

	anyRequired := false
	for _, raw := range d.RequiredTokens {
		tok := Normalize(raw)
		if tok == "" {
			continue
		}
		switch {
		case wholeWordMatch(tok, haystack, hayTokens):
			phrase += variantPhraseBonus
			anyRequired = true
		case strings.Contains(haystack, tok):
			token += variantTokenBonus
			anyRequired = true
		}
	}

	for _, raw := range d.VariantTokens {
		tok := Normalize(raw)
		if tok == "" {
			continue
		}
		switch {
		case wholeWordMatch(tok, haystack, hayTokens):
			phrase += variantPhraseBonus * optionalVariantFactor
		case strings.Contains(haystack, tok):
			token += variantTokenBonus * optionalVariantFactor
		}
	}

	if len(d.RequiredTokens) > 0 && !anyRequired {
		token += missingRequiredPenalty
	}
	return phrase, token, anyRequired
}

// wholeWordMatch handles both single tokens (set membership) and
// multi-word phrases (padded substring).
func wholeWordMatch(tok, haystack string, hayTokens map[string]struct{}) bool {
	if !strings.Contains(tok, " ") {
		_, ok := hayTokens[tok]
		return ok
	}
	return strings.Contains(" "+haystack+" ", " "+tok+" ")
}

// categoryScore: negative tags are a fixed penalty, deeper tag hierarchies
// a small specificity bonus, and the category preference rules add their
// own adjustments.
func (s *Scorer) categoryScore(d *domain.ItemDescriptor, p *domain.ProductRecord) float64 {
	score := 0.0
	tags := tokenSet(p.CategoriesTags)

	for _, neg := range s.rules.NegativeCategoryTags {
		if _, ok := tags[neg]; ok {
			score += negativeCategoryPenalty
			break
		}
	}

	depth := float64(len(p.CategoriesTags))
	if depth > 3 {
		depth = 3
	}
	score += depth * categoryDepthBonusMax / 3

	// Sweet-snack tags are suspicious unless the descriptor category is
	// sweet-sensitive.
	category := strings.ToLower(strings.TrimSpace(d.CanonicalCategory))
	if _, sweetOK := s.rules.SweetSensitiveCategories[category]; !sweetOK {
		for _, sweet := range s.rules.SweetSnackTags {
			if _, ok := tags[sweet]; ok {
				score += sweetSnackPenalty
				break
			}
		}
	}

	// Plain, brandless, variantless descriptors should not resolve to
	// flavored SKUs.
	if d.BrandContext() == "" && len(d.RequiredTokens) == 0 && len(d.VariantTokens) == 0 {
		nameNorm := Normalize(p.ProductName)
		descNorm := Normalize(d.SearchName())
		for _, flavored := range s.rules.FlavoredTokens {
			if strings.Contains(nameNorm, flavored) && !strings.Contains(descNorm, flavored) {
				score += flavoredPlainPenalty
				break
			}
		}
	}
	return score
}

// nameSimilarity is a capped, scaled token-overlap ratio with brand and
// variant tokens excluded from both sides.
func (s *Scorer) nameSimilarity(d *domain.ItemDescriptor, p *domain.ProductRecord) float64 {
	exclude := tokenSet(Tokens(d.BrandContext()))
	for _, t := range append(append([]string{}, d.RequiredTokens...), d.VariantTokens...) {
		exclude[Normalize(t)] = struct{}{}
	}
	for _, b := range p.BrandList() {
		for _, t := range Tokens(b) {
			exclude[t] = struct{}{}
		}
	}

	descTokens := filterTokens(Tokens(d.SearchName()), exclude)
	prodTokens := filterTokens(Tokens(p.ProductName), exclude)
	if len(descTokens) == 0 || len(prodTokens) == 0 {
		return 0
	}

	overlap := overlapCount(descTokens, tokenSet(prodTokens))
	ratio := float64(overlap) / float64(len(descTokens))
	if ratio > 1 {
		ratio = 1
	}
	return ratio * nameSimilarityMax
}

func filterTokens(tokens []string, exclude map[string]struct{}) []string {
	var out []string
	for _, t := range tokens {
		if _, skip := exclude[t]; !skip {
			out = append(out, t)
		}
	}
	return out
}

// quantityScore rewards candidates whose package quantity is close to the
// descriptor's portion when both parse to a comparable mass.
func (s *Scorer) quantityScore(d *domain.ItemDescriptor, p *domain.ProductRecord) float64 {
	if d.PortionValue <= 0 || p.Quantity == "" {
		return 0
	}
	portionGrams, ok := s.portions.ToGrams(d.PortionValue, d.PortionUnit, d.Name, d.CanonicalCategory)
	if !ok {
		return 0
	}
	packageGrams, ok := s.portions.QuantityToGrams(p.Quantity, d.Name)
	if !ok || packageGrams <= 0 {
		return 0
	}

	larger := portionGrams
	if packageGrams > larger {
		larger = packageGrams
	}
	closeness := 1 - abs(portionGrams-packageGrams)/larger
	if closeness < 1-quantityTolerance {
		return 0
	}
	return quantityBonusMax * closeness
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// nutrientCoverageBonus: 2 points per non-trivial core per-100g field.
func nutrientCoverageBonus(p *domain.ProductRecord) float64 {
	bonus := 0.0
	for _, key := range []string{"energy-kcal_100g", "proteins_100g", "fat_100g", "carbohydrates_100g"} {
		if v, ok := p.Nutriments[key]; ok && v > 0 {
			bonus += 2
		}
	}
	if bonus > nutrientCoverageBonusMax {
		bonus = nutrientCoverageBonusMax
	}
	return bonus
}

// dataQualityBonus scales the backend's 0..1 quality/completeness score.
func dataQualityBonus(p *domain.ProductRecord) float64 {
	q := p.DataQualityScore
	if q < 0 {
		return 0
	}
	if q > 1 {
		q = 1
	}
	return q * dataQualityBonusMax
}
