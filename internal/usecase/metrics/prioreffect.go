package metrics

import (
	"math"

	"agentlab/internal/domain/entity"
)

// PriorEffect compares a non-prior variant against a prior-enabled one
// over the tasks both ran.
type PriorEffect struct {
	BaseVariant  string `json:"base_variant"`
	PriorVariant string `json:"prior_variant"`

	// SharedTasks is how many task ids both variants have episodes
	// for.
	SharedTasks int `json:"shared_tasks"`

	// AlignedSteps is the number of step positions compared (per task,
	// up to the shorter episode).
	AlignedSteps int `json:"aligned_steps"`

	// StepDivergenceRate is the fraction of aligned steps where the
	// two variants chose different action types.
	StepDivergenceRate float64 `json:"step_divergence_rate"`

	// ActionJSDivergence is the Jensen–Shannon divergence (log base 2,
	// so in [0,1]) between the two variants' aggregate action-type
	// distributions over the shared tasks.
	ActionJSDivergence float64 `json:"action_js_divergence"`
}

// ComputePriorEffect pairs episodes of the two variants by task id and
// computes the step-wise and distributional divergence between them.
// Tasks with multiple episodes per variant pair up in record order.
func ComputePriorEffect(episodes []entity.EpisodeRecord, baseVariant, priorVariant string) PriorEffect {
	effect := PriorEffect{BaseVariant: baseVariant, PriorVariant: priorVariant}

	baseByTask := map[string][]entity.EpisodeRecord{}
	priorByTask := map[string][]entity.EpisodeRecord{}
	for _, ep := range episodes {
		switch ep.AgentVariant {
		case baseVariant:
			baseByTask[ep.TaskID] = append(baseByTask[ep.TaskID], ep)
		case priorVariant:
			priorByTask[ep.TaskID] = append(priorByTask[ep.TaskID], ep)
		}
	}

	baseCounts := entity.Distribution{}
	priorCounts := entity.Distribution{}
	diverged := 0

	for taskID, baseEps := range baseByTask {
		priorEps, ok := priorByTask[taskID]
		if !ok {
			continue
		}
		effect.SharedTasks++

		pairs := len(baseEps)
		if len(priorEps) < pairs {
			pairs = len(priorEps)
		}
		for i := 0; i < pairs; i++ {
			baseSteps := baseEps[i].Steps
			priorSteps := priorEps[i].Steps
			for _, s := range baseSteps {
				baseCounts[s.Action.Type]++
			}
			for _, s := range priorSteps {
				priorCounts[s.Action.Type]++
			}

			aligned := len(baseSteps)
			if len(priorSteps) < aligned {
				aligned = len(priorSteps)
			}
			for t := 0; t < aligned; t++ {
				if baseSteps[t].Action.Type != priorSteps[t].Action.Type {
					diverged++
				}
			}
			effect.AlignedSteps += aligned
		}
	}

	if effect.AlignedSteps > 0 {
		effect.StepDivergenceRate = round4(float64(diverged) / float64(effect.AlignedSteps))
	}
	effect.ActionJSDivergence = round4(jensenShannon(normalizeCounts(baseCounts), normalizeCounts(priorCounts)))
	return effect
}

func normalizeCounts(counts entity.Distribution) entity.Distribution {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	out := entity.Distribution{}
	if total == 0 {
		return out
	}
	for action, c := range counts {
		out[action] = c / total
	}
	return out
}

// jensenShannon computes JSD(p||q) with log base 2. Empty
// distributions yield 0.
func jensenShannon(p, q entity.Distribution) float64 {
	if len(p) == 0 || len(q) == 0 {
		return 0
	}
	support := map[entity.ActionType]bool{}
	for a := range p {
		support[a] = true
	}
	for a := range q {
		support[a] = true
	}

	kl := func(x, m entity.Distribution) float64 {
		sum := 0.0
		for a := range support {
			px := x[a]
			if px == 0 {
				continue
			}
			sum += px * math.Log2(px/m[a])
		}
		return sum
	}

	mid := entity.Distribution{}
	for a := range support {
		mid[a] = (p[a] + q[a]) / 2
	}
	return 0.5*kl(p, mid) + 0.5*kl(q, mid)
}
