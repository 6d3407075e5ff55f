package domain

import "strings"

// ProductRecord is the canonical product shape every backend adapter
// normalizes into. Code is the only field guaranteed unique and stable;
// any nutrient field may be missing.
type ProductRecord struct {
	Code             string             `json:"code"`
	ProductName      string             `json:"product_name"`
	Brands           string             `json:"brands,omitempty"`
	BrandsTags       []string           `json:"brands_tags,omitempty"`
	CategoriesTags   []string           `json:"categories_tags,omitempty"`
	LabelsTags       []string           `json:"labels_tags,omitempty"`
	CountriesTags    []string           `json:"countries_tags,omitempty"`
	Nutriments       map[string]float64 `json:"nutriments,omitempty"`
	Quantity         string             `json:"quantity,omitempty"`
	DataQualityScore float64            `json:"data_quality_score,omitempty"`
	ServingSize      string             `json:"serving_size,omitempty"`
}

// BrandList splits the raw comma-separated brands field and merges it with
// the brand tags into one list of candidate brand strings.
func (p *ProductRecord) BrandList() []string {
	var out []string
	for _, b := range strings.Split(p.Brands, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	for _, t := range p.BrandsTags {
		t = strings.TrimSpace(strings.TrimPrefix(t, "en:"))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SearchQuery is one ephemeral search attempt against a backend. It doubles
// as the result-cache key and the rate-limiter gating unit.
type SearchQuery struct {
	Term              string
	Brand             string
	CategoriesInclude []string
	CategoriesExclude []string
	VariantTokens     []string
	Locale            string
	Page              int
	PageSize          int
}

// Key returns a stable cache key for the query. Case differences and
// surrounding whitespace never cause distinct entries.
func (q *SearchQuery) Key() string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(q.Term)),
		strings.ToLower(strings.TrimSpace(q.Brand)),
		strings.ToLower(strings.Join(q.CategoriesInclude, "|")),
		strings.ToLower(strings.Join(q.CategoriesExclude, "|")),
		strings.ToLower(q.Locale),
	}
	return strings.Join(parts, ":")
}

// SearchResult is a normalized backend response: the hits plus the
// backend's own estimate of the total match count.
type SearchResult struct {
	Products []ProductRecord
	Count    int
	Backend  string
}
