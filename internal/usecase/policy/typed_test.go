package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlab/internal/domain/entity"
)

func typedFor(t *testing.T, variant Variant, cfg Config) Policy {
	t.Helper()
	p, err := New(variant, cfg)
	require.NoError(t, err)
	return p
}

func TestTypedSearchesFromHome(t *testing.T) {
	p := typedFor(t, VariantTypedAction, Config{})
	task := entity.ResolvedTask{Spec: entity.TaskSpec{Query: "trail shoe"}}

	action := p.Decide(task, entity.Observation{ViewID: entity.ViewHome}, nil)

	assert.Equal(t, entity.ActionSearch, action.Type)
	assert.Equal(t, "trail shoe", action.Args["query"])
}

func TestTypedNoCandidatesNoOps(t *testing.T) {
	p := typedFor(t, VariantTypedAction, Config{})

	action := p.Decide(entity.ResolvedTask{}, entity.Observation{ViewID: entity.ViewHome}, nil)
	assert.Equal(t, entity.ActionNoOp, action.Type)
}

func TestTypedOpensTargetRank(t *testing.T) {
	p := typedFor(t, VariantTypedAction, Config{OracleTargetID: "B3"})
	task := entity.ResolvedTask{Spec: entity.TaskSpec{Query: "shoe"}}
	obs := entity.Observation{
		ViewID:    entity.ViewSearchResults,
		SortKey:   entity.SortRelevance,
		ResultIDs: []string{"B1", "B2", "B3"},
	}

	action := p.Decide(task, obs, nil)

	assert.Equal(t, entity.ActionOpenResult, action.Type)
	assert.Equal(t, 3, action.Args["rank"])
}

func TestTypedPrefersSortWhenTargetHidden(t *testing.T) {
	p := typedFor(t, VariantTypedAction, Config{OracleTargetID: "B9"})
	task := entity.ResolvedTask{
		Spec:   entity.TaskSpec{Query: "shoe"},
		Oracle: entity.TaskOracle{Type: entity.OracleMinPriceMatch},
	}
	obs := entity.Observation{
		ViewID:    entity.ViewSearchResults,
		SortKey:   entity.SortRelevance,
		ResultIDs: []string{"B1", "B2"},
	}

	// Sorting (0.8) outranks opening the first non-target result
	// (0.5).
	action := p.Decide(task, obs, nil)
	assert.Equal(t, entity.ActionSortBy, action.Type)
	assert.Equal(t, entity.SortPriceAsc, action.Args["key"])
}

func TestTypedProposesUnmetFacets(t *testing.T) {
	p := typedFor(t, VariantTypedAction, Config{})
	task := entity.ResolvedTask{
		Spec: entity.TaskSpec{
			Query:       "shoe",
			Constraints: map[string]any{"brand": "Acme"},
		},
	}
	obs := entity.Observation{
		ViewID:             entity.ViewSearchResults,
		SortKey:            entity.SortRelevance,
		AppliedConstraints: map[string]any{},
	}

	action := p.Decide(task, obs, nil)
	assert.Equal(t, entity.ActionApplyFacet, action.Type)
	assert.Equal(t, "brand", action.Args["facet"])
	assert.Equal(t, "Acme", action.Args["value"])
}

func TestTypedGraphFollowsRelatedTarget(t *testing.T) {
	p := typedFor(t, VariantTypedAction, Config{OracleTargetID: "G2"})
	task := entity.ResolvedTask{WorkloadType: entity.WorkloadGraphBrowse}

	obs := entity.Observation{
		ViewID:     entity.ViewProductDetail,
		SelectedID: "G1",
		RelatedIDs: []string{"G3", "G2"},
	}
	action := p.Decide(task, obs, nil)
	assert.Equal(t, entity.ActionOpenRelated, action.Type)
	assert.Equal(t, 2, action.Args["rank"])

	obs.SelectedID = "G2"
	action = p.Decide(task, obs, nil)
	assert.Equal(t, entity.ActionAddToCart, action.Type)
}

func TestTypedPriorsRepeatPenaltyBreaksLoops(t *testing.T) {
	static := map[entity.View]entity.Distribution{
		entity.ViewProductDetail: {
			entity.ActionAddToCart:     0.5,
			entity.ActionBackToResults: 0.5,
		},
	}
	p := typedFor(t, VariantTypedActionPriors, Config{StaticPriors: static})
	task := entity.ResolvedTask{WorkloadType: entity.WorkloadBuyExactSKU}
	obs := entity.Observation{ViewID: entity.ViewProductDetail, SelectedID: "B1"}

	first := p.Decide(task, obs, nil)
	assert.Equal(t, entity.ActionAddToCart, first.Type)
	require.NotNil(t, first.Debug)
	assert.Zero(t, first.Debug.RepeatCount)

	// After enough identical adds in this view, the repeat penalty
	// must flip the decision to the alternative.
	var history []entity.Step
	for i := 0; i < 4; i++ {
		history = append(history, entity.Step{
			ViewBefore: entity.ViewProductDetail,
			Action:     entity.Action{Type: entity.ActionAddToCart},
		})
	}
	later := p.Decide(task, obs, history)
	assert.Equal(t, entity.ActionBackToResults, later.Type)
	require.NotNil(t, later.Debug)
	// The winner has never been taken in this view, so its own repeat
	// count is zero; the penalty lives on the rejected add.
	assert.Zero(t, later.Debug.RepeatCount)

	// Once the alternative has been taken too, its repeat count shows
	// up in the debug trace while the add stays buried.
	history = append(history, entity.Step{
		ViewBefore: entity.ViewProductDetail,
		Action:     entity.Action{Type: entity.ActionBackToResults},
	})
	again := p.Decide(task, obs, history)
	assert.Equal(t, entity.ActionBackToResults, again.Type)
	require.NotNil(t, again.Debug)
	assert.Equal(t, 1, again.Debug.RepeatCount)
}

func TestPruneByPriorKeepsTopK(t *testing.T) {
	cands := []candidate{
		{action: entity.Action{Type: entity.ActionSortBy}},
		{action: entity.Action{Type: entity.ActionApplyFacet}},
		{action: entity.Action{Type: entity.ActionOpenResult}},
	}
	blended := entity.Distribution{
		entity.ActionSortBy:     0.1,
		entity.ActionApplyFacet: 0.3,
		entity.ActionOpenResult: 0.6,
	}

	kept := pruneByPrior(cands, blended, 2)
	require.Len(t, kept, 2)
	// Generation order is preserved among keepers.
	assert.Equal(t, entity.ActionApplyFacet, kept[0].action.Type)
	assert.Equal(t, entity.ActionOpenResult, kept[1].action.Type)

	// Fewer candidates than k pass through untouched.
	assert.Len(t, pruneByPrior(cands, blended, 5), 3)
}

func TestDesiredSort(t *testing.T) {
	assert.Equal(t, entity.SortPriceDesc, desiredSort(entity.ResolvedTask{Spec: entity.TaskSpec{Sort: entity.SortPriceDesc}}))
	assert.Equal(t, entity.SortPriceAsc, desiredSort(entity.ResolvedTask{Oracle: entity.TaskOracle{Type: entity.OracleMinPriceMatch}}))
	assert.Equal(t, entity.SortRatingDesc, desiredSort(entity.ResolvedTask{Oracle: entity.TaskOracle{Type: entity.OracleMaxRatingMatch}}))
	assert.Equal(t, entity.SortRelevance, desiredSort(entity.ResolvedTask{}))
}

func TestNewRejectsUnknownVariant(t *testing.T) {
	_, err := New("no_such_variant", Config{})
	assert.Error(t, err)
}
