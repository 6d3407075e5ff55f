package usecase

import (
	"strings"

	"github.com/platewise/resolver/internal/domain"
)

// maxTermTokens caps the search term length; the backends rank short
// focused terms far better than full sentences.
const maxTermTokens = 4

// Attempt is one prioritized (term, brandFilter) search attempt.
type Attempt struct {
	Term  string
	Brand string
	// Label names the strategy for telemetry.
	Label string
}

// GenerateAttempts builds the bounded, deduplicated, priority-ordered list
// of search attempts for a descriptor:
//
//	brand + product term (each brand spelling variant)
//	brand + required-token phrase
//	brand alone
//	product term alone
//	brand+product concatenation
//
// The resolver stops walking the list once an attempt yields a strong brand
// match or the time budget runs out.
func GenerateAttempts(d *domain.ItemDescriptor, maxAttempts int) []Attempt {
	if maxAttempts <= 0 {
		maxAttempts = 6
	}

	term := trimTokens(d.SearchName(), maxTermTokens)
	brand := strings.TrimSpace(d.Brand)

	var attempts []Attempt
	seen := make(map[string]struct{})
	add := func(a Attempt) {
		if len(attempts) >= maxAttempts {
			return
		}
		if a.Term == "" && a.Brand == "" {
			return
		}
		key := Normalize(a.Term) + "|" + Normalize(a.Brand)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		attempts = append(attempts, a)
	}

	if brand != "" {
		for _, variant := range brandVariants(d) {
			add(Attempt{Term: term, Brand: variant, Label: "brand+term"})
		}
		if phrase := requiredPhrase(d); phrase != "" {
			add(Attempt{Term: phrase, Brand: brand, Label: "brand+required"})
		}
		add(Attempt{Brand: brand, Label: "brand-only"})
	}
	add(Attempt{Term: term, Label: "term-only"})
	if brand != "" && term != "" && !strings.Contains(Normalize(term), Normalize(brand)) {
		add(Attempt{Term: brand + " " + term, Label: "brand-term-concat"})
	}

	return attempts
}

// brandVariants returns a few spellings of the brand worth trying: the raw
// form, the upstream-normalized form, and the space-collapsed form.
func brandVariants(d *domain.ItemDescriptor) []string {
	var variants []string
	seen := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, v)
	}
	add(d.Brand)
	add(d.BrandNormalized)
	if compact := NormalizeCompact(d.Brand); compact != strings.ToLower(strings.TrimSpace(d.Brand)) {
		add(compact)
	}
	return variants
}

// requiredPhrase joins the required tokens into one search phrase.
func requiredPhrase(d *domain.ItemDescriptor) string {
	var toks []string
	for _, t := range d.RequiredTokens {
		if t = strings.TrimSpace(t); t != "" {
			toks = append(toks, t)
		}
	}
	return strings.Join(toks, " ")
}

// trimTokens caps a term at n whitespace tokens.
func trimTokens(s string, n int) string {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
