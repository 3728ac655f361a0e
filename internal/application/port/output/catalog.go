package output

import (
	"math/rand"

	"agentlab/internal/domain/entity"
)

// FieldPredicate is one condition of a sampling filter. Exactly one of
// the fields is normally set; Equals compares loosely (numbers compare
// as float64).
type FieldPredicate struct {
	Equals      any
	Exists      *bool
	GreaterThan *float64
}

// SampleFilter maps product field names to predicates, all
// AND-combined.
type SampleFilter map[string]FieldPredicate

// ListQuery is a predicate-filtered, sorted, limited catalog listing.
// TextTokens match case-insensitively as substrings across
// title/brand/category; the remaining filters are AND-combined.
type ListQuery struct {
	TextTokens     []string
	Brand          string
	Category       string
	PriceLTE       *float64
	PriceLT        *float64
	RatingGTE      *float64
	RatingCountGTE *int
	ExcludeID      string
	SortKey        string
	Limit          int
}

// CatalogPort is the narrow contract over product storage. The core
// never sees how products are indexed or stored.
type CatalogPort interface {
	FindByID(id string) (entity.Product, bool)

	// List returns products matching q in the order implied by
	// q.SortKey, ties always broken by id ascending.
	List(q ListQuery) []entity.Product

	// Sample draws one matching product using rng. ok is false when
	// nothing matches.
	Sample(filter SampleFilter, rng *rand.Rand) (p entity.Product, ok bool)
}
