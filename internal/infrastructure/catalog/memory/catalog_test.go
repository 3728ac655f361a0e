package memory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

func testProducts() []entity.Product {
	return []entity.Product{
		{ID: "C3", Title: "Gamma Mug", Brand: "Kitchenly", Price: 8, RatingAvg: 4.0, RatingCount: 10, Category: "kitchen"},
		{ID: "C1", Title: "Alpha Mug", Brand: "Kitchenly", Price: 8, RatingAvg: 4.0, RatingCount: 50, Category: "kitchen"},
		{ID: "C2", Title: "Beta Kettle", Brand: "Kitchenly", Price: 30, RatingAvg: 4.8, RatingCount: 50, Category: "kitchen",
			Related: map[string][]string{"also_viewed": {"C1"}}},
		{ID: "D1", Title: "Desk Lamp", Brand: "Lumen", Price: 22, RatingAvg: 3.2, RatingCount: 400, Category: "office"},
	}
}

func TestFindByID(t *testing.T) {
	c := New(testProducts())

	p, ok := c.FindByID("C2")
	require.True(t, ok)
	assert.Equal(t, "Beta Kettle", p.Title)

	_, ok = c.FindByID("missing")
	assert.False(t, ok)
}

func TestListTextTokensMatchAllFields(t *testing.T) {
	c := New(testProducts())

	hits := c.List(output.ListQuery{TextTokens: []string{"mug"}})
	assert.Len(t, hits, 2)

	// Tokens AND together; brand matches count too.
	hits = c.List(output.ListQuery{TextTokens: []string{"kitchenly", "kettle"}})
	require.Len(t, hits, 1)
	assert.Equal(t, "C2", hits[0].ID)

	assert.Empty(t, c.List(output.ListQuery{TextTokens: []string{"mug", "lamp"}}))
}

func TestListSortTiebreaks(t *testing.T) {
	c := New(testProducts())

	// price_asc: equal prices break by id ascending.
	hits := c.List(output.ListQuery{Category: "kitchen", SortKey: entity.SortPriceAsc})
	assert.Equal(t, []string{"C1", "C3", "C2"}, idsOf(hits))

	// rating_desc: equal ratings break by rating count, then id.
	hits = c.List(output.ListQuery{Category: "kitchen", SortKey: entity.SortRatingDesc})
	assert.Equal(t, []string{"C2", "C1", "C3"}, idsOf(hits))

	// Relevance proxy: most rated first, id tiebreak.
	hits = c.List(output.ListQuery{Category: "kitchen"})
	assert.Equal(t, []string{"C1", "C2", "C3"}, idsOf(hits))
}

func TestListFiltersAndLimit(t *testing.T) {
	c := New(testProducts())

	lte := 22.0
	hits := c.List(output.ListQuery{PriceLTE: &lte})
	assert.Len(t, hits, 3)

	lt := 22.0
	hits = c.List(output.ListQuery{PriceLT: &lt})
	assert.Len(t, hits, 2)

	gte := 4.5
	hits = c.List(output.ListQuery{RatingGTE: &gte})
	assert.Equal(t, []string{"C2"}, idsOf(hits))

	count := 50
	hits = c.List(output.ListQuery{RatingCountGTE: &count, SortKey: entity.SortPriceDesc})
	assert.Equal(t, []string{"C2", "D1", "C1"}, idsOf(hits))

	hits = c.List(output.ListQuery{Limit: 2})
	assert.Len(t, hits, 2)

	hits = c.List(output.ListQuery{ExcludeID: "D1", Category: "office"})
	assert.Empty(t, hits)
}

func TestSampleDeterministicWithSeed(t *testing.T) {
	c := New(testProducts())
	filter := output.SampleFilter{"category": {Equals: "kitchen"}}

	a, ok := c.Sample(filter, rand.New(rand.NewSource(7)))
	require.True(t, ok)
	b, ok := c.Sample(filter, rand.New(rand.NewSource(7)))
	require.True(t, ok)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "kitchen", a.Category)
}

func TestSamplePredicates(t *testing.T) {
	c := New(testProducts())
	rng := rand.New(rand.NewSource(1))

	exists := true
	p, ok := c.Sample(output.SampleFilter{"related": {Exists: &exists}}, rng)
	require.True(t, ok)
	assert.Equal(t, "C2", p.ID)

	gt := 100.0
	p, ok = c.Sample(output.SampleFilter{"rating_count": {GreaterThan: &gt}}, rng)
	require.True(t, ok)
	assert.Equal(t, "D1", p.ID)

	_, ok = c.Sample(output.SampleFilter{"brand": {Equals: "NoSuch"}}, rng)
	assert.False(t, ok)
}

func idsOf(products []entity.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}
