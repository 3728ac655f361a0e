package entity

type ActionType string

const (
	ActionSearch        ActionType = "Search"
	ActionApplyFacet    ActionType = "ApplyFacet"
	ActionSortBy        ActionType = "SortBy"
	ActionOpenResult    ActionType = "OpenResult"
	ActionOpenRelated   ActionType = "OpenRelated"
	ActionAddToCart     ActionType = "AddToCart"
	ActionGoToCart      ActionType = "GoToCart"
	ActionBackToResults ActionType = "BackToResults"
	ActionNoOp          ActionType = "NoOp"
)

// Action is what a policy emits and the storefront consumes. Debug is
// attached by scoring policies for observability and is never read by
// the storefront.
type Action struct {
	Type  ActionType     `json:"type"`
	Args  map[string]any `json:"args"`
	Debug *ActionDebug   `json:"debug,omitempty"`
}

type ActionDebug struct {
	TaskScore    float64 `json:"task_score,omitempty"`
	PriorTerm    float64 `json:"prior_term,omitempty"`
	RepeatCount  int     `json:"repeat_count,omitempty"`
	FinalScore   float64 `json:"final_score,omitempty"`
	InferredView View    `json:"inferred_view,omitempty"`
	OCRProvider  string  `json:"ocr_provider,omitempty"`
}

func NoOp(reason string) Action {
	return Action{Type: ActionNoOp, Args: map[string]any{"reason": reason}}
}

// Rank reads the 1-based rank argument of OpenResult/OpenRelated,
// defaulting to 1. Policies write it as an int; records round-trip it
// through JSON as float64.
func (a Action) Rank() int {
	switch v := a.Args["rank"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 1
}
