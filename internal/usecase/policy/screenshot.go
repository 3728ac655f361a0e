package policy

import (
	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

// screenshotPolicy acts on a view label derived from the raw
// screenshot, not on the model's ground-truth view. The fidelity gap
// between the two is the point of the variant.
type screenshotPolicy struct {
	perception output.PerceptionPort
}

func (p *screenshotPolicy) Decide(task entity.ResolvedTask, obs entity.Observation, history []entity.Step) entity.Action {
	view := p.inferView(obs)

	switch view {
	case entity.ViewHome:
		if task.Spec.Query != "" {
			return entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": task.Spec.Query}}
		}
		return entity.NoOp("no_query")

	case entity.ViewSearchResults, entity.ViewEmptyResults:
		// Screenshot-only baseline: no result count or id signal.
		return entity.Action{Type: entity.ActionOpenResult, Args: map[string]any{"rank": 1}}

	case entity.ViewProductDetail:
		if task.WorkloadType == entity.WorkloadGraphBrowse && countActions(history, entity.ActionOpenRelated) < 1 {
			return entity.Action{Type: entity.ActionOpenRelated, Args: map[string]any{"rank": 1}}
		}
		// Add once, then pause, to avoid repetitive add loops.
		if countActions(history, entity.ActionAddToCart) < 1 {
			return entity.Action{Type: entity.ActionAddToCart, Args: map[string]any{"qty": 1}}
		}
		return entity.NoOp("already_added_once")
	}

	return entity.NoOp("fallback")
}

func (p *screenshotPolicy) inferView(obs entity.Observation) entity.View {
	if p.perception != nil && obs.ScreenshotPath != "" {
		if est, err := p.perception.ClassifyView(obs.ScreenshotPath); err == nil && est.ViewID != "" {
			return est.ViewID
		}
	}
	return obs.ViewID
}

func countActions(history []entity.Step, actionType entity.ActionType) int {
	n := 0
	for _, step := range history {
		if step.Action.Type == actionType {
			n++
		}
	}
	return n
}
