package policy

import (
	"fmt"
	"math"

	"agentlab/internal/domain/entity"
	"agentlab/internal/usecase/priors"
)

// Heuristic bonus constants, one per candidate branch. Empirically
// tuned; change them only together with the regression scenarios.
const (
	bonusHomeSearch        = 1.0
	bonusSortMismatch      = 0.8
	bonusUnmetFacet        = 0.9
	bonusRatingFacet       = 0.7
	bonusOpenTargetResult  = 1.5
	bonusOpenFirstResult   = 0.5
	bonusGraphAddTarget    = 1.8
	bonusGraphOpenTarget   = 1.3
	bonusGraphOpenFirst    = 0.8
	bonusGraphBackOut      = 0.1
	bonusAddTarget         = 1.5
	bonusAddSpeculative    = 0.8
	bonusDetailBackOut     = 0.2
	bonusCartSettle        = 0.1
	bonusUnknownView       = 0.0
	logFloor               = 1e-6
)

// typedPolicy is the heuristic action scorer: per-view candidate
// generation with task-relevance bonuses, optionally pruned and
// re-scored by the blended static+learned prior distribution.
type typedPolicy struct {
	cfg              Config
	useLearnedPriors bool
}

type candidate struct {
	action    entity.Action
	taskScore float64
}

func (p *typedPolicy) Decide(task entity.ResolvedTask, obs entity.Observation, history []entity.Step) entity.Action {
	static := p.cfg.StaticPriors[obs.ViewID]
	cands := p.generate(task, obs, static)
	if len(cands) == 0 {
		return entity.NoOp("no_candidates")
	}

	if !p.useLearnedPriors {
		return pickBest(cands)
	}

	blended := priors.Blend(static, p.cfg.LearnedModel.Lookup(task.WorkloadType, obs.ViewID))
	cands = pruneByPrior(cands, blended, p.cfg.PriorTopK)

	scores := make([]float64, len(cands))
	debugs := make([]entity.ActionDebug, len(cands))
	for i, c := range cands {
		priorTerm := p.cfg.PriorAlpha * math.Log(math.Max(blended[c.action.Type], logFloor))
		repeats := repeatCount(history, obs.ViewID, c.action.Type)
		penalty := p.cfg.RepeatBeta * float64(repeats)
		scores[i] = c.taskScore + priorTerm - penalty
		debugs[i] = entity.ActionDebug{
			TaskScore:   c.taskScore,
			PriorTerm:   priorTerm,
			RepeatCount: repeats,
			FinalScore:  scores[i],
		}
	}

	bestIdx := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[bestIdx] {
			bestIdx = i
		}
	}
	action := cands[bestIdx].action
	debug := debugs[bestIdx]
	action.Debug = &debug
	return action
}

// generate proposes task-relevant candidates for the current view.
// Each candidate's task score is the static weight of its action type
// plus the branch bonus.
func (p *typedPolicy) generate(task entity.ResolvedTask, obs entity.Observation, static entity.Distribution) []candidate {
	var cands []candidate
	add := func(actionType entity.ActionType, args map[string]any, bonus float64) {
		cands = append(cands, candidate{
			action:    entity.Action{Type: actionType, Args: args},
			taskScore: static[actionType] + bonus,
		})
	}

	target := p.cfg.OracleTargetID
	constraints := task.Spec.Constraints

	switch obs.ViewID {
	case entity.ViewHome:
		if task.Spec.Query != "" {
			add(entity.ActionSearch, map[string]any{"query": task.Spec.Query}, bonusHomeSearch)
		}

	case entity.ViewSearchResults, entity.ViewEmptyResults:
		if desired := desiredSort(task); obs.SortKey != desired {
			add(entity.ActionSortBy, map[string]any{"key": desired}, bonusSortMismatch)
		}
		for _, key := range []string{"brand", "category", "price_bucket"} {
			value, wanted := constraints[key]
			if !wanted {
				continue
			}
			if _, applied := obs.AppliedConstraints[key]; applied {
				continue
			}
			add(entity.ActionApplyFacet, map[string]any{"facet": key, "value": value}, bonusUnmetFacet)
		}
		if value, wanted := constraints["rating_gte"]; wanted {
			if _, applied := obs.AppliedConstraints["rating_bucket"]; !applied {
				add(entity.ActionApplyFacet, map[string]any{"facet": "rating_bucket", "value": fmt.Sprintf("%v", value)}, bonusRatingFacet)
			}
		}
		if len(obs.ResultIDs) > 0 {
			if rank := rankOf(obs.ResultIDs, target); rank > 0 {
				add(entity.ActionOpenResult, map[string]any{"rank": rank}, bonusOpenTargetResult)
			} else {
				add(entity.ActionOpenResult, map[string]any{"rank": 1}, bonusOpenFirstResult)
			}
		}

	case entity.ViewProductDetail:
		if task.WorkloadType == entity.WorkloadGraphBrowse {
			switch {
			case target != "" && obs.SelectedID == target:
				add(entity.ActionAddToCart, map[string]any{"qty": 1}, bonusGraphAddTarget)
			case rankOf(obs.RelatedIDs, target) > 0:
				add(entity.ActionOpenRelated, map[string]any{"rank": rankOf(obs.RelatedIDs, target)}, bonusGraphOpenTarget)
			case len(obs.RelatedIDs) > 0:
				add(entity.ActionOpenRelated, map[string]any{"rank": 1}, bonusGraphOpenFirst)
			default:
				add(entity.ActionBackToResults, map[string]any{}, bonusGraphBackOut)
			}
		} else {
			if target != "" && obs.SelectedID == target {
				add(entity.ActionAddToCart, map[string]any{"qty": 1}, bonusAddTarget)
			} else {
				add(entity.ActionAddToCart, map[string]any{"qty": 1}, bonusAddSpeculative)
			}
			add(entity.ActionBackToResults, map[string]any{}, bonusDetailBackOut)
		}

	case entity.ViewCart:
		add(entity.ActionNoOp, map[string]any{"reason": "cart_reached"}, bonusCartSettle)

	default:
		add(entity.ActionNoOp, map[string]any{"reason": "unknown_view"}, bonusUnknownView)
	}

	return cands
}

// desiredSort is the sort order implied by the task: an explicit
// spec.sort wins, otherwise the comparative oracle type decides.
func desiredSort(task entity.ResolvedTask) string {
	if task.Spec.Sort != "" {
		return task.Spec.Sort
	}
	switch task.Oracle.Type {
	case entity.OracleMinPriceMatch:
		return entity.SortPriceAsc
	case entity.OracleMaxRatingMatch:
		return entity.SortRatingDesc
	}
	return entity.SortRelevance
}

// pickBest selects the highest task score; ties go to the earliest
// proposed candidate.
func pickBest(cands []candidate) entity.Action {
	bestIdx := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].taskScore > cands[bestIdx].taskScore {
			bestIdx = i
		}
	}
	return cands[bestIdx].action
}

// pruneByPrior keeps the topK candidates by blended prior probability,
// preserving generation order among the keepers. Fewer than topK
// candidates are kept as-is.
func pruneByPrior(cands []candidate, blended entity.Distribution, topK int) []candidate {
	if topK <= 0 || len(cands) <= topK {
		return cands
	}
	type ranked struct {
		idx  int
		prob float64
	}
	order := make([]ranked, len(cands))
	for i, c := range cands {
		order[i] = ranked{idx: i, prob: blended[c.action.Type]}
	}
	// Selection by probability, stable on generation order.
	keep := map[int]bool{}
	for n := 0; n < topK; n++ {
		best := -1
		for _, r := range order {
			if keep[r.idx] {
				continue
			}
			if best == -1 || r.prob > order[best].prob {
				best = r.idx
			}
		}
		keep[best] = true
	}
	out := make([]candidate, 0, topK)
	for i, c := range cands {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

// repeatCount counts identical (view, action type) pairs already taken
// this episode.
func repeatCount(history []entity.Step, view entity.View, actionType entity.ActionType) int {
	n := 0
	for _, step := range history {
		if step.ViewBefore == view && step.Action.Type == actionType {
			n++
		}
	}
	return n
}

func rankOf(ids []string, target string) int {
	if target == "" {
		return 0
	}
	for i, id := range ids {
		if id == target {
			return i + 1
		}
	}
	return 0
}
