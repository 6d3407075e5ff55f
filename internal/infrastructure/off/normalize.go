package off

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/platewise/resolver/internal/domain"
)

// The public product databases answer with wildly inconsistent JSON: brands
// as string or list, tags as string or list, nutriment values as number or
// string. All shape-sniffing lives here; the rest of the engine only ever
// sees ProductRecord.

// parseProducts extracts and normalizes the product array at arrayPath.
// Hits with neither code nor name are silently dropped.
func parseProducts(body []byte, arrayPath string) []domain.ProductRecord {
	var products []domain.ProductRecord
	gjson.GetBytes(body, arrayPath).ForEach(func(_, hit gjson.Result) bool {
		if p, ok := parseProduct(hit); ok {
			products = append(products, p)
		}
		return true
	})
	return products
}

// parseProduct normalizes a single hit. ok is false for unusable hits.
func parseProduct(hit gjson.Result) (domain.ProductRecord, bool) {
	p := domain.ProductRecord{
		Code:             hit.Get("code").String(),
		ProductName:      productName(hit),
		Brands:           stringOrJoined(hit.Get("brands")),
		BrandsTags:       stringList(hit.Get("brands_tags")),
		CategoriesTags:   stringList(hit.Get("categories_tags")),
		LabelsTags:       stringList(hit.Get("labels_tags")),
		CountriesTags:    stringList(hit.Get("countries_tags")),
		Nutriments:       nutriments(hit.Get("nutriments")),
		Quantity:         hit.Get("quantity").String(),
		ServingSize:      hit.Get("serving_size").String(),
		DataQualityScore: qualityScore(hit),
	}

	if p.Code == "" && p.ProductName == "" {
		return domain.ProductRecord{}, false
	}
	return p, true
}

// productName applies the usual fallback order across the name variants
// the backends expose.
func productName(hit gjson.Result) string {
	for _, field := range []string{"product_name", "product_name_en", "generic_name", "abbreviated_product_name"} {
		if v := strings.TrimSpace(hit.Get(field).String()); v != "" {
			return v
		}
	}
	return ""
}

// stringOrJoined accepts "A, B" or ["A","B"] and returns the comma form.
func stringOrJoined(v gjson.Result) string {
	if v.IsArray() {
		var parts []string
		v.ForEach(func(_, e gjson.Result) bool {
			if s := strings.TrimSpace(e.String()); s != "" {
				parts = append(parts, s)
			}
			return true
		})
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(v.String())
}

// stringList accepts ["a","b"] or "a,b" and returns a clean slice.
func stringList(v gjson.Result) []string {
	var out []string
	if v.IsArray() {
		v.ForEach(func(_, e gjson.Result) bool {
			if s := strings.TrimSpace(e.String()); s != "" {
				out = append(out, s)
			}
			return true
		})
		return out
	}
	for _, s := range strings.Split(v.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// nutriments coerces every numeric-looking value; strings like "12.5" are
// common in crowd-sourced records.
func nutriments(v gjson.Result) map[string]float64 {
	if !v.IsObject() {
		return nil
	}
	out := make(map[string]float64)
	v.ForEach(func(key, val gjson.Result) bool {
		switch val.Type {
		case gjson.Number:
			out[key.String()] = val.Float()
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val.String()), 64); err == nil {
				out[key.String()] = f
			}
		}
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// qualityScore prefers the 0..1 completeness field, falling back to an
// explicit quality score when a backend provides one.
func qualityScore(hit gjson.Result) float64 {
	if v := hit.Get("completeness"); v.Exists() {
		return v.Float()
	}
	return hit.Get("data_quality_score").Float()
}
