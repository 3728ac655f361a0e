package entity

import "encoding/json"

type WorkloadType string

const (
	WorkloadBuyExactSKU   WorkloadType = "buy_exact_sku"
	WorkloadCheapestUnder WorkloadType = "find_cheapest_under_constraints"
	WorkloadHighestRated  WorkloadType = "find_highest_rated_in_brand_category"
	WorkloadGraphBrowse   WorkloadType = "graph_browse_related"
)

type OracleType string

const (
	OracleExactIDInCart    OracleType = "exact_id_in_cart"
	OracleMinPriceMatch    OracleType = "min_price_match"
	OracleMaxRatingMatch   OracleType = "max_rating_match"
	OracleRelatedEdgeMatch OracleType = "related_edge_match"
)

// TaskTemplate is a task as loaded from the templates file. Spec and
// Oracle stay raw until the resolver parses their derivation
// directives.
type TaskTemplate struct {
	TaskID       string          `json:"task_id"`
	WorkloadType WorkloadType    `json:"workload_type"`
	Spec         json.RawMessage `json:"spec"`
	Oracle       json.RawMessage `json:"oracle"`
}

// TaskSpec is the resolved spec of a task. Constraints keeps the open
// key set of the template language (brand, category, price_lte,
// rating_gte, price_bucket, ...).
type TaskSpec struct {
	Query       string         `json:"query,omitempty"`
	Constraints map[string]any `json:"constraints,omitempty"`
	Sort        string         `json:"sort,omitempty"`
	Edge        string         `json:"edge,omitempty"`
	StartID     string         `json:"start_id,omitempty"`
	TargetID    string         `json:"target_id,omitempty"`
	EdgeUsed    string         `json:"edge_used,omitempty"`
}

type TaskOracle struct {
	Type       OracleType `json:"type"`
	ExpectedID string     `json:"expected_id,omitempty"`
}

// SeedRef identifies the product sampled for binding P, kept on the
// resolved task for trace readability.
type SeedRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// ResolvedTask is a template with every directive evaluated. Immutable
// after resolution.
type ResolvedTask struct {
	TaskID          string       `json:"task_id"`
	WorkloadType    WorkloadType `json:"workload_type"`
	Spec            TaskSpec     `json:"spec"`
	Oracle          TaskOracle   `json:"oracle"`
	Materialized    bool         `json:"task_materialized"`
	Seed            int64        `json:"seed"`
	SampledProduct  *SeedRef     `json:"sampled_product,omitempty"`
	ResolverWarning string       `json:"resolver_warning,omitempty"`
}

// Edge fallback strategies recorded as ResolvedTask.Spec.EdgeUsed when
// the requested relation is missing.
const (
	EdgeUsedBrandFallback    = "brand_fallback"
	EdgeUsedCategoryFallback = "category_fallback"
	EdgeUsedRandomFallback   = "random_fallback"
	EdgeUsedNone             = "none"
)
