package entity

type View string

const (
	ViewHome          View = "HOME"
	ViewSearchResults View = "SEARCH_RESULTS"
	ViewEmptyResults  View = "EMPTY_RESULTS"
	ViewProductDetail View = "PRODUCT_DETAIL"
	ViewCart          View = "CART"
	ViewUnknown       View = "UNKNOWN"
)

// Observation is the storefront state as the agent sees it after a
// reset or step. Slices are copies; mutating an observation never
// touches model state.
type Observation struct {
	ViewID             View           `json:"view_id"`
	SearchQuery        string         `json:"search_query"`
	AppliedConstraints map[string]any `json:"applied_constraints"`
	SortKey            string         `json:"sort_key"`
	ResultIDs          []string       `json:"result_ids"`
	ResultCount        int            `json:"result_count"`
	SelectedID         string         `json:"selected_id,omitempty"`
	RelatedEdge        string         `json:"related_edge"`
	RelatedIDs         []string       `json:"related_ids"`
	CartIDs            []string       `json:"cart_ids"`
	StepIdx            int            `json:"step_idx,omitempty"`
	ScreenshotPath     string         `json:"screenshot_path,omitempty"`
}

// StepInfo reports how the model handled one action. A precondition
// violation clears PostconditionOK but never aborts the episode.
type StepInfo struct {
	PostconditionOK bool   `json:"postcondition_ok"`
	Event           string `json:"event,omitempty"`
	ScreenshotPath  string `json:"screenshot_path,omitempty"`
}

const (
	EventSearched      = "Searched"
	EventFacetApplied  = "FacetApplied"
	EventSortChanged   = "SortChanged"
	EventOpenedProduct = "OpenedProduct"
	EventOpenedRelated = "OpenedRelated"
	EventAddedToCart   = "AddedToCart"
	EventGoToCart      = "GoToCart"
	EventBackToResults = "BackToResults"
	EventNoOp          = "NoOp"
	EventUnknownAction = "UnknownAction"
)

const (
	SortRelevance  = "relevance"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortRatingDesc = "rating_desc"
)
