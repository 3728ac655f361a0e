package storefront

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlab/internal/domain/entity"
	"agentlab/internal/infrastructure/catalog/memory"
)

func fixtureCatalog() *memory.Catalog {
	return memory.New([]entity.Product{
		{ID: "S1", Title: "Acme Trail Shoe", Brand: "Acme", Price: 10, RatingAvg: 4.0, RatingCount: 50, Category: "shoes",
			Related: map[string][]string{"also_bought": {"S2", "GONE"}}},
		{ID: "S2", Title: "Acme Road Shoe", Brand: "Acme", Price: 5, RatingAvg: 4.5, RatingCount: 10, Category: "shoes"},
		{ID: "S3", Title: "Acme Hiking Shoe", Brand: "Acme", Price: 20, RatingAvg: 3.5, RatingCount: 200, Category: "shoes"},
		{ID: "J1", Title: "Nimbus Jacket", Brand: "Nimbus", Price: 80, RatingAvg: 4.9, RatingCount: 5, Category: "jackets"},
	})
}

func step(t *testing.T, m *Model, action entity.Action) (entity.Observation, entity.StepInfo) {
	t.Helper()
	obs, info, err := m.Step(context.Background(), action, 0)
	require.NoError(t, err)
	return obs, info
}

func TestResetStartsAtHome(t *testing.T) {
	m := New(fixtureCatalog())
	obs, err := m.Reset(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, entity.ViewHome, obs.ViewID)
	assert.Equal(t, entity.SortRelevance, obs.SortKey)
	assert.Equal(t, "also_bought", obs.RelatedEdge)
	assert.Empty(t, obs.CartIDs)
}

func TestResetAtProduct(t *testing.T) {
	m := New(fixtureCatalog())
	obs, err := m.Reset(context.Background(), "S1", "also_bought")
	require.NoError(t, err)

	assert.Equal(t, entity.ViewProductDetail, obs.ViewID)
	assert.Equal(t, "S1", obs.SelectedID)
	// "GONE" is not in the catalog and must be filtered out.
	assert.Equal(t, []string{"S2"}, obs.RelatedIDs)
}

func TestSearchTransitions(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")

	obs, info := step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "shoe"}})
	assert.True(t, info.PostconditionOK)
	assert.Equal(t, entity.EventSearched, info.Event)
	assert.Equal(t, entity.ViewSearchResults, obs.ViewID)
	assert.Equal(t, 3, obs.ResultCount)

	obs, _ = step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "nonexistent widget"}})
	assert.Equal(t, entity.ViewEmptyResults, obs.ViewID)
	assert.Zero(t, obs.ResultCount)
}

func TestSortByReordersResults(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")
	step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "shoe"}})

	obs, info := step(t, m, entity.Action{Type: entity.ActionSortBy, Args: map[string]any{"key": entity.SortPriceAsc}})
	assert.True(t, info.PostconditionOK)
	assert.Equal(t, []string{"S2", "S1", "S3"}, obs.ResultIDs)

	obs, _ = step(t, m, entity.Action{Type: entity.ActionSortBy, Args: map[string]any{"key": entity.SortRatingDesc}})
	assert.Equal(t, []string{"S2", "S1", "S3"}, obs.ResultIDs)
}

func TestApplyFacetFiltersResults(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")
	step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": ""}})

	obs, info := step(t, m, entity.Action{Type: entity.ActionApplyFacet, Args: map[string]any{"facet": "brand", "value": "Nimbus"}})
	assert.True(t, info.PostconditionOK)
	assert.Equal(t, entity.EventFacetApplied, info.Event)
	assert.Equal(t, []string{"J1"}, obs.ResultIDs)
	assert.Equal(t, "Nimbus", obs.AppliedConstraints["brand"])
}

func TestApplyFacetWithoutValueFails(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")
	step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "shoe"}})

	obs, info := step(t, m, entity.Action{Type: entity.ActionApplyFacet, Args: map[string]any{"facet": "brand"}})
	assert.False(t, info.PostconditionOK)
	assert.Equal(t, entity.ViewSearchResults, obs.ViewID)
	assert.Equal(t, 3, obs.ResultCount)
}

func TestOpenResultRankBounds(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")
	step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "shoe"}})

	for _, rank := range []int{0, -3, 4, 99} {
		obs, info := step(t, m, entity.Action{Type: entity.ActionOpenResult, Args: map[string]any{"rank": rank}})
		assert.False(t, info.PostconditionOK, "rank %d", rank)
		assert.Equal(t, entity.ViewSearchResults, obs.ViewID, "rank %d", rank)
	}

	obs, info := step(t, m, entity.Action{Type: entity.ActionOpenResult, Args: map[string]any{"rank": 1}})
	assert.True(t, info.PostconditionOK)
	assert.Equal(t, entity.ViewProductDetail, obs.ViewID)
}

func TestAddToCartNeedsSelection(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")

	obs, info := step(t, m, entity.Action{Type: entity.ActionAddToCart, Args: map[string]any{"qty": 1}})
	assert.False(t, info.PostconditionOK)
	assert.Empty(t, obs.CartIDs)
}

func TestUnknownActionType(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")

	obs, info := step(t, m, entity.Action{Type: "Teleport"})
	assert.False(t, info.PostconditionOK)
	assert.Equal(t, entity.EventUnknownAction, info.Event)
	assert.Equal(t, entity.ViewHome, obs.ViewID)
}

func TestRelatedBrandFallback(t *testing.T) {
	m := New(fixtureCatalog())
	// S2 has no edges; its related set falls back to same-brand
	// neighbors.
	obs, err := m.Reset(context.Background(), "S2", "")
	require.NoError(t, err)

	assert.Equal(t, entity.ViewProductDetail, obs.ViewID)
	assert.ElementsMatch(t, []string{"S1", "S3"}, obs.RelatedIDs)
}

func TestFullPurchaseFlow(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")

	step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "shoe"}})
	step(t, m, entity.Action{Type: entity.ActionSortBy, Args: map[string]any{"key": entity.SortPriceAsc}})
	step(t, m, entity.Action{Type: entity.ActionOpenResult, Args: map[string]any{"rank": 1}})
	obs, info := step(t, m, entity.Action{Type: entity.ActionAddToCart, Args: map[string]any{"qty": 1}})
	assert.True(t, info.PostconditionOK)
	assert.Equal(t, []string{"S2"}, obs.CartIDs)

	obs, _ = step(t, m, entity.Action{Type: entity.ActionGoToCart, Args: map[string]any{}})
	assert.Equal(t, entity.ViewCart, obs.ViewID)

	obs, _ = step(t, m, entity.Action{Type: entity.ActionBackToResults, Args: map[string]any{}})
	assert.Equal(t, entity.ViewSearchResults, obs.ViewID)
}

func TestOracleTargetIDComparative(t *testing.T) {
	m := New(fixtureCatalog())

	minTask := entity.ResolvedTask{
		Spec:   entity.TaskSpec{Query: "shoe"},
		Oracle: entity.TaskOracle{Type: entity.OracleMinPriceMatch},
	}
	assert.Equal(t, "S2", m.OracleTargetID(minTask))

	maxTask := entity.ResolvedTask{
		Spec:   entity.TaskSpec{Query: "shoe"},
		Oracle: entity.TaskOracle{Type: entity.OracleMaxRatingMatch},
	}
	assert.Equal(t, "S2", m.OracleTargetID(maxTask))

	exact := entity.ResolvedTask{Oracle: entity.TaskOracle{Type: entity.OracleExactIDInCart, ExpectedID: "J1"}}
	assert.Equal(t, "J1", m.OracleTargetID(exact))
}

func TestPriceBucketConstraint(t *testing.T) {
	m := New(fixtureCatalog())
	m.Reset(context.Background(), "", "")
	step(t, m, entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": "shoe"}})

	obs, _ := step(t, m, entity.Action{Type: entity.ActionApplyFacet, Args: map[string]any{"facet": "price_bucket", "value": "under_25"}})
	// All three shoes are under 25; the jacket never matched the
	// query.
	assert.Equal(t, 3, obs.ResultCount)

	obs, _ = step(t, m, entity.Action{Type: entity.ActionApplyFacet, Args: map[string]any{"facet": "price_lte", "value": 10}})
	assert.ElementsMatch(t, []string{"S1", "S2"}, obs.ResultIDs)
}
