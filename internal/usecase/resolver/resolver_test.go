package resolver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlab/internal/domain/entity"
	"agentlab/internal/infrastructure/catalog/memory"
)

func fixtureCatalog() *memory.Catalog {
	return memory.New([]entity.Product{
		{ID: "B001", Title: "Acme Trail Shoe", Brand: "Acme", Price: 59.99, RatingAvg: 4.4, RatingCount: 210, Category: "shoes",
			Related: map[string][]string{"also_bought": {"B002"}}},
		{ID: "B002", Title: "Acme Road Shoe", Brand: "Acme", Price: 74.50, RatingAvg: 4.1, RatingCount: 80, Category: "shoes"},
		{ID: "B003", Title: "Nimbus Rain Jacket", Brand: "Nimbus", Price: 120.00, RatingAvg: 4.8, RatingCount: 45, Category: "jackets"},
		{ID: "B004", Title: "Nimbus Wind Jacket", Brand: "Nimbus", Price: 90.00, RatingAvg: 3.9, RatingCount: 300, Category: "jackets"},
	})
}

func exactSKUTemplate() entity.TaskTemplate {
	return entity.TaskTemplate{
		TaskID:       "buy-exact-1",
		WorkloadType: entity.WorkloadBuyExactSKU,
		Spec: json.RawMessage(`{
			"seed": {"$sample_product": {"where": {"brand": {"$exists": true}}}},
			"query": {"$derive_query_from": {"var": "P", "fields": ["title", "brand"], "max_tokens": 4}}
		}`),
		Oracle: json.RawMessage(`{
			"type": "exact_id_in_cart",
			"expected_id": {"$derive_from": {"var": "P", "field": "id"}}
		}`),
	}
}

func TestResolveDeterminism(t *testing.T) {
	cat := fixtureCatalog()
	tpl := exactSKUTemplate()

	first, err := Resolve(tpl, cat, 42)
	require.NoError(t, err)
	second, err := Resolve(tpl, cat, 42)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	// A different seed is allowed to sample a different product, but
	// must still be internally consistent.
	other, err := Resolve(tpl, cat, 7)
	require.NoError(t, err)
	assert.Equal(t, other.SampledProduct.ID, other.Oracle.ExpectedID)
}

func TestResolveExactSKU(t *testing.T) {
	task, err := Resolve(exactSKUTemplate(), fixtureCatalog(), 1)
	require.NoError(t, err)

	assert.True(t, task.Materialized)
	require.NotNil(t, task.SampledProduct)
	assert.Equal(t, task.SampledProduct.ID, task.Oracle.ExpectedID)
	assert.Equal(t, entity.OracleExactIDInCart, task.Oracle.Type)
	assert.NotEmpty(t, task.Spec.Query)
	assert.Empty(t, task.ResolverWarning)
}

func TestResolveDeriveRangeAndThreshold(t *testing.T) {
	tpl := entity.TaskTemplate{
		TaskID:       "cheapest-1",
		WorkloadType: entity.WorkloadCheapestUnder,
		Spec: json.RawMessage(`{
			"seed": {"$sample_product": {"where": {"id": "B001"}}},
			"query": "shoe",
			"constraints": {
				"price_lte": {"$derive_range": {"var": "P", "field": "price", "mult": 1.2}},
				"rating_gte": {"$derive_threshold": {"var": "P", "field": "rating_avg", "floor": 3.5}}
			},
			"sort": "price_asc"
		}`),
		Oracle: json.RawMessage(`{"type": "min_price_match"}`),
	}

	task, err := Resolve(tpl, fixtureCatalog(), 3)
	require.NoError(t, err)

	// 59.99 * 1.2 rounded to cents.
	assert.InDelta(t, 71.99, task.Spec.Constraints["price_lte"], 1e-9)
	assert.InDelta(t, 4.4, task.Spec.Constraints["rating_gte"], 1e-9)
	assert.Equal(t, entity.SortPriceAsc, task.Spec.Sort)
}

func TestResolveGraphEdgeChain(t *testing.T) {
	tpl := entity.TaskTemplate{
		TaskID:       "graph-1",
		WorkloadType: entity.WorkloadGraphBrowse,
		Spec: json.RawMessage(`{
			"seed": {"$sample_product": {"where": {"id": "B001"}}},
			"edge": "also_bought"
		}`),
		Oracle: json.RawMessage(`{"type": "related_edge_match"}`),
	}

	task, err := Resolve(tpl, fixtureCatalog(), 5)
	require.NoError(t, err)

	assert.Equal(t, "B001", task.Spec.StartID)
	assert.Equal(t, "B002", task.Spec.TargetID)
	assert.Equal(t, "also_bought", task.Spec.EdgeUsed)
	assert.Equal(t, "B002", task.Oracle.ExpectedID)
}

func TestResolveGraphBrandFallback(t *testing.T) {
	tpl := entity.TaskTemplate{
		TaskID:       "graph-2",
		WorkloadType: entity.WorkloadGraphBrowse,
		Spec: json.RawMessage(`{
			"seed": {"$sample_product": {"where": {"id": "B003"}}},
			"edge": "bought_together"
		}`),
		Oracle: json.RawMessage(`{"type": "related_edge_match"}`),
	}

	// B003 has no related edges at all; the only other Nimbus product
	// is B004.
	task, err := Resolve(tpl, fixtureCatalog(), 5)
	require.NoError(t, err)

	assert.Equal(t, "B004", task.Spec.TargetID)
	assert.Equal(t, entity.EdgeUsedBrandFallback, task.Spec.EdgeUsed)
	assert.Equal(t, "B004", task.Oracle.ExpectedID)
}

func TestResolveSampleFallbackWarns(t *testing.T) {
	tpl := entity.TaskTemplate{
		TaskID:       "warn-1",
		WorkloadType: entity.WorkloadBuyExactSKU,
		Spec: json.RawMessage(`{
			"seed": {"$sample_product": {"where": {"brand": "NoSuchBrand"}}}
		}`),
		Oracle: json.RawMessage(`{"type": "exact_id_in_cart", "expected_id": {"$derive_from": {"var": "P", "field": "id"}}}`),
	}

	task, err := Resolve(tpl, fixtureCatalog(), 9)
	require.NoError(t, err)

	assert.NotNil(t, task.SampledProduct)
	assert.Contains(t, task.ResolverWarning, "warn-1")
}

func TestResolveUnknownBinding(t *testing.T) {
	tpl := entity.TaskTemplate{
		TaskID:       "bad-1",
		WorkloadType: entity.WorkloadBuyExactSKU,
		Spec:         json.RawMessage(`{"query": {"$derive_from": {"var": "Q", "field": "title"}}}`),
		Oracle:       json.RawMessage(`{"type": "exact_id_in_cart"}`),
	}

	_, err := Resolve(tpl, fixtureCatalog(), 1)
	assert.ErrorIs(t, err, ErrUnknownBinding)
}

func TestResolveNoSeedDirectivePassesThrough(t *testing.T) {
	tpl := entity.TaskTemplate{
		TaskID:       "plain-1",
		WorkloadType: entity.WorkloadHighestRated,
		Spec:         json.RawMessage(`{"query": "jacket", "constraints": {"brand": "Nimbus"}, "sort": "rating_desc"}`),
		Oracle:       json.RawMessage(`{"type": "max_rating_match"}`),
	}

	task, err := Resolve(tpl, fixtureCatalog(), 11)
	require.NoError(t, err)

	assert.Nil(t, task.SampledProduct)
	assert.Equal(t, "jacket", task.Spec.Query)
	assert.Equal(t, "Nimbus", task.Spec.Constraints["brand"])
}
