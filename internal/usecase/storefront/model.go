// Package storefront is the in-process storefront state machine: a
// catalog-backed model of the views an agent navigates (HOME,
// SEARCH_RESULTS, EMPTY_RESULTS, PRODUCT_DETAIL, CART) and the actions
// that move between them.
package storefront

import (
	"context"
	"strings"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var _ output.EnvironmentPort = (*Model)(nil)

const (
	defaultRelatedEdge = "also_bought"
	searchLimit        = 50
	relatedFallbackMax = 10
)

type state struct {
	viewID      entity.View
	searchQuery string
	constraints map[string]any
	sortKey     string
	results     []entity.Product
	selectedID  string
	relatedEdge string
	relatedIDs  []string
	cartIDs     []string
}

func newState() state {
	return state{
		viewID:      entity.ViewHome,
		constraints: map[string]any{},
		sortKey:     entity.SortRelevance,
		relatedEdge: defaultRelatedEdge,
	}
}

// Model owns the state of exactly one episode. Create a fresh model
// per episode when running episodes concurrently.
type Model struct {
	catalog output.CatalogPort
	state   state
}

func New(catalog output.CatalogPort) *Model {
	return &Model{catalog: catalog, state: newState()}
}

func (m *Model) Reset(_ context.Context, startID, relatedEdge string) (entity.Observation, error) {
	m.state = newState()
	if relatedEdge != "" {
		m.state.relatedEdge = relatedEdge
	}
	if startID != "" {
		m.setProductView(startID, relatedEdge)
	}
	return m.observation(), nil
}

// Step applies one action. Precondition violations clear
// info.PostconditionOK and leave the state untouched; they never
// produce an error.
func (m *Model) Step(_ context.Context, action entity.Action, _ int) (entity.Observation, entity.StepInfo, error) {
	info := entity.StepInfo{PostconditionOK: true}

	switch action.Type {
	case entity.ActionSearch:
		query, _ := action.Args["query"].(string)
		m.state.searchQuery = strings.TrimSpace(query)
		m.runSearch()
		info.Event = entity.EventSearched

	case entity.ActionApplyFacet:
		facet, _ := action.Args["facet"].(string)
		value, hasValue := action.Args["value"]
		if facet == "" || !hasValue || value == nil {
			info.PostconditionOK = false
			break
		}
		m.state.constraints[facet] = value
		m.runSearch()
		info.Event = entity.EventFacetApplied

	case entity.ActionSortBy:
		key, _ := action.Args["key"].(string)
		if key == "" {
			key = entity.SortRelevance
		}
		m.state.sortKey = key
		m.runSearch()
		info.Event = entity.EventSortChanged

	case entity.ActionOpenResult:
		idx := action.Rank() - 1
		if idx < 0 || idx >= len(m.state.results) {
			info.PostconditionOK = false
			break
		}
		info.PostconditionOK = m.setProductView(m.state.results[idx].ID, "")
		info.Event = entity.EventOpenedProduct

	case entity.ActionOpenRelated:
		idx := action.Rank() - 1
		if idx < 0 || idx >= len(m.state.relatedIDs) {
			info.PostconditionOK = false
			break
		}
		info.PostconditionOK = m.setProductView(m.state.relatedIDs[idx], "")
		info.Event = entity.EventOpenedRelated

	case entity.ActionAddToCart:
		if m.state.selectedID == "" {
			info.PostconditionOK = false
			break
		}
		m.state.cartIDs = append(m.state.cartIDs, m.state.selectedID)
		info.Event = entity.EventAddedToCart

	case entity.ActionGoToCart:
		m.state.viewID = entity.ViewCart
		info.Event = entity.EventGoToCart

	case entity.ActionBackToResults:
		m.state.viewID = m.resultsView()
		info.Event = entity.EventBackToResults

	case entity.ActionNoOp:
		info.Event = entity.EventNoOp

	default:
		info.PostconditionOK = false
		info.Event = entity.EventUnknownAction
	}

	return m.observation(), info, nil
}

func (m *Model) Close() error { return nil }

// OracleTargetID computes the task's expected cart id once per
// episode. For the comparative oracles it is the top hit of the
// task's own query under the oracle's sort order.
func (m *Model) OracleTargetID(task entity.ResolvedTask) string {
	switch task.Oracle.Type {
	case entity.OracleExactIDInCart, entity.OracleRelatedEdgeMatch:
		return task.Oracle.ExpectedID
	case entity.OracleMinPriceMatch:
		return m.topHit(task, entity.SortPriceAsc)
	case entity.OracleMaxRatingMatch:
		return m.topHit(task, entity.SortRatingDesc)
	}
	return ""
}

func (m *Model) topHit(task entity.ResolvedTask, sortKey string) string {
	hits := m.search(task.Spec.Query, task.Spec.Constraints, sortKey, 1)
	if len(hits) == 0 {
		return ""
	}
	return hits[0].ID
}

func (m *Model) runSearch() {
	m.state.results = m.search(m.state.searchQuery, m.state.constraints, m.state.sortKey, searchLimit)
	m.state.viewID = m.resultsView()
}

func (m *Model) resultsView() entity.View {
	if len(m.state.results) > 0 {
		return entity.ViewSearchResults
	}
	return entity.ViewEmptyResults
}

// search runs the token/constraint query against the catalog. Token
// match is case-insensitive substring across title/brand/category;
// equality and range constraints are AND-combined on top.
func (m *Model) search(query string, constraints map[string]any, sortKey string, limit int) []entity.Product {
	q := output.ListQuery{
		TextTokens: strings.Fields(strings.TrimSpace(query)),
		SortKey:    sortKey,
		Limit:      limit,
	}
	if brand, ok := constraints["brand"].(string); ok && brand != "" {
		q.Brand = brand
	}
	if category, ok := constraints["category"].(string); ok && category != "" {
		q.Category = category
	}
	if v, ok := toFloat(constraints["price_lte"]); ok {
		q.PriceLTE = &v
	}
	if v, ok := toFloat(constraints["rating_gte"]); ok {
		q.RatingGTE = &v
	}
	if v, ok := toFloat(constraints["rating_count_gte"]); ok {
		n := int(v)
		q.RatingCountGTE = &n
	}
	if bucket, ok := constraints["price_bucket"].(string); ok && bucket == "under_25" {
		lt := 25.0
		q.PriceLT = &lt
	}
	return m.catalog.List(q)
}

// setProductView selects a product and computes its related set.
// Passing an edge overrides the episode's related edge.
func (m *Model) setProductView(id, edge string) bool {
	product, ok := m.catalog.FindByID(id)
	if !ok {
		return false
	}
	if edge != "" {
		m.state.relatedEdge = edge
	}
	m.state.selectedID = id
	m.state.relatedIDs = m.relatedIDsFor(product, m.state.relatedEdge)
	m.state.viewID = entity.ViewProductDetail
	return true
}

// relatedIDsFor intersects the product's explicit edge list with
// catalog existence; when empty it falls back to same-brand then
// same-category neighbors, excluding the product itself.
func (m *Model) relatedIDsFor(product entity.Product, edge string) []string {
	var existing []string
	for _, id := range product.Related[edge] {
		if id == "" {
			continue
		}
		if _, ok := m.catalog.FindByID(id); ok {
			existing = append(existing, id)
		}
	}
	if len(existing) > 0 {
		return existing
	}

	if product.Brand != "" {
		hits := m.catalog.List(output.ListQuery{Brand: product.Brand, ExcludeID: product.ID, Limit: relatedFallbackMax})
		if len(hits) > 0 {
			return ids(hits)
		}
	}
	if product.Category != "" {
		hits := m.catalog.List(output.ListQuery{Category: product.Category, ExcludeID: product.ID, Limit: relatedFallbackMax})
		if len(hits) > 0 {
			return ids(hits)
		}
	}
	return nil
}

func (m *Model) observation() entity.Observation {
	constraints := make(map[string]any, len(m.state.constraints))
	for k, v := range m.state.constraints {
		constraints[k] = v
	}
	return entity.Observation{
		ViewID:             m.state.viewID,
		SearchQuery:        m.state.searchQuery,
		AppliedConstraints: constraints,
		SortKey:            m.state.sortKey,
		ResultIDs:          ids(m.state.results),
		ResultCount:        len(m.state.results),
		SelectedID:         m.state.selectedID,
		RelatedEdge:        m.state.relatedEdge,
		RelatedIDs:         append([]string(nil), m.state.relatedIDs...),
		CartIDs:            append([]string(nil), m.state.cartIDs...),
	}
}

func ids(products []entity.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
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
