package policy

import "agentlab/internal/domain/entity"

// stateAwarePolicy is the purely reactive baseline: it reads the
// model's ground-truth view and follows a fixed script, with no
// scoring, priors, or repetition awareness.
type stateAwarePolicy struct{}

func (p *stateAwarePolicy) Decide(task entity.ResolvedTask, obs entity.Observation, _ []entity.Step) entity.Action {
	switch obs.ViewID {
	case entity.ViewHome:
		if task.Spec.Query != "" {
			return entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": task.Spec.Query}}
		}

	case entity.ViewSearchResults, entity.ViewEmptyResults:
		return entity.Action{Type: entity.ActionOpenResult, Args: map[string]any{"rank": 1}}

	case entity.ViewProductDetail:
		if task.WorkloadType == entity.WorkloadGraphBrowse {
			target := task.Spec.TargetID
			if target != "" && obs.SelectedID == target {
				return entity.Action{Type: entity.ActionAddToCart, Args: map[string]any{"qty": 1}}
			}
			if len(obs.RelatedIDs) > 0 {
				return entity.Action{Type: entity.ActionOpenRelated, Args: map[string]any{"rank": 1}}
			}
		}
		return entity.Action{Type: entity.ActionAddToCart, Args: map[string]any{"qty": 1}}
	}
	return entity.NoOp("state-aware fallback")
}
