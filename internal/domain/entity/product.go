package entity

// Product is one catalog entity. Related maps an edge name (for example
// "also_bought") to the ids reachable over that edge.
type Product struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Brand       string              `json:"brand,omitempty"`
	Price       float64             `json:"price,omitempty"`
	RatingAvg   float64             `json:"rating_avg,omitempty"`
	RatingCount int                 `json:"rating_count,omitempty"`
	Category    string              `json:"category,omitempty"`
	Related     map[string][]string `json:"related,omitempty"`
}

// Field returns a named product field as a generic value, used by the
// template derivation directives. Unknown fields return (nil, false).
func (p Product) Field(name string) (any, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "title":
		return p.Title, true
	case "brand":
		if p.Brand == "" {
			return nil, false
		}
		return p.Brand, true
	case "price":
		return p.Price, true
	case "rating_avg":
		return p.RatingAvg, true
	case "rating_count":
		return p.RatingCount, true
	case "category":
		if p.Category == "" {
			return nil, false
		}
		return p.Category, true
	}
	return nil, false
}
