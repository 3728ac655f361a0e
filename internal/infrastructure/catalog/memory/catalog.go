// Package memory is an in-process CatalogPort over a product slice,
// with deterministic ordering: every listing is resolved in id order
// before sorting, and ties always break by id ascending.
package memory

import (
	"math/rand"
	"sort"
	"strings"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var _ output.CatalogPort = (*Catalog)(nil)

type Catalog struct {
	products []entity.Product
	byID     map[string]entity.Product
}

func New(products []entity.Product) *Catalog {
	sorted := append([]entity.Product(nil), products...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]entity.Product, len(sorted))
	for _, p := range sorted {
		byID[p.ID] = p
	}
	return &Catalog{products: sorted, byID: byID}
}

func (c *Catalog) FindByID(id string) (entity.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) List(q output.ListQuery) []entity.Product {
	var hits []entity.Product
	for _, p := range c.products {
		if matchesQuery(p, q) {
			hits = append(hits, p)
		}
	}
	sortProducts(hits, q.SortKey)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits
}

func (c *Catalog) Sample(filter output.SampleFilter, rng *rand.Rand) (entity.Product, bool) {
	var candidates []entity.Product
	for _, p := range c.products {
		if matchesFilter(p, filter) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return entity.Product{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

// matchesQuery applies the listing filters: every text token must
// appear (case-insensitive substring) in title, brand, or category;
// the remaining conditions are AND-combined.
func matchesQuery(p entity.Product, q output.ListQuery) bool {
	if q.ExcludeID != "" && p.ID == q.ExcludeID {
		return false
	}
	for _, token := range q.TextTokens {
		t := strings.ToLower(token)
		if !strings.Contains(strings.ToLower(p.Title), t) &&
			!strings.Contains(strings.ToLower(p.Brand), t) &&
			!strings.Contains(strings.ToLower(p.Category), t) {
			return false
		}
	}
	if q.Brand != "" && p.Brand != q.Brand {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.PriceLTE != nil && p.Price > *q.PriceLTE {
		return false
	}
	if q.PriceLT != nil && p.Price >= *q.PriceLT {
		return false
	}
	if q.RatingGTE != nil && p.RatingAvg < *q.RatingGTE {
		return false
	}
	if q.RatingCountGTE != nil && p.RatingCount < *q.RatingCountGTE {
		return false
	}
	return true
}

func sortProducts(products []entity.Product, sortKey string) {
	less := func(i, j int) bool { return products[i].ID < products[j].ID }
	switch sortKey {
	case entity.SortPriceAsc:
		less = func(i, j int) bool {
			if products[i].Price != products[j].Price {
				return products[i].Price < products[j].Price
			}
			return products[i].ID < products[j].ID
		}
	case entity.SortPriceDesc:
		less = func(i, j int) bool {
			if products[i].Price != products[j].Price {
				return products[i].Price > products[j].Price
			}
			return products[i].ID < products[j].ID
		}
	case entity.SortRatingDesc:
		less = func(i, j int) bool {
			if products[i].RatingAvg != products[j].RatingAvg {
				return products[i].RatingAvg > products[j].RatingAvg
			}
			if products[i].RatingCount != products[j].RatingCount {
				return products[i].RatingCount > products[j].RatingCount
			}
			return products[i].ID < products[j].ID
		}
	default:
		// Relevance proxy: most-rated first.
		less = func(i, j int) bool {
			if products[i].RatingCount != products[j].RatingCount {
				return products[i].RatingCount > products[j].RatingCount
			}
			return products[i].ID < products[j].ID
		}
	}
	sort.SliceStable(products, less)
}

func matchesFilter(p entity.Product, filter output.SampleFilter) bool {
	for field, pred := range filter {
		value, present := fieldValue(p, field)
		switch {
		case pred.Exists != nil:
			if present != *pred.Exists {
				return false
			}
		case pred.GreaterThan != nil:
			f, ok := toFloat(value)
			if !present || !ok || f <= *pred.GreaterThan {
				return false
			}
		default:
			if !present || !looseEqual(value, pred.Equals) {
				return false
			}
		}
	}
	return true
}

func fieldValue(p entity.Product, field string) (any, bool) {
	if field == "related" {
		if len(p.Related) == 0 {
			return nil, false
		}
		return p.Related, true
	}
	return p.Field(field)
}

func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return sa == sb
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}
