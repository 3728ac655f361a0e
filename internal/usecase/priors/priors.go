// Package priors maintains per-(workload, view) probability
// distributions over action types and their exponential-moving-average
// update from successful episode traces.
package priors

import (
	"agentlab/internal/domain/entity"
)

const (
	minLearningRate = 0.01
	maxLearningRate = 1.0

	// Equal-weight blend between the configured static table and the
	// learned distribution when both exist.
	blendWeight = 0.5
)

// Normalize clamps negative weights to zero and scales the rest to sum
// to 1.0. A distribution with no positive weight comes back empty.
func Normalize(dist entity.Distribution) entity.Distribution {
	total := 0.0
	for _, w := range dist {
		if w > 0 {
			total += w
		}
	}
	out := entity.Distribution{}
	if total == 0 {
		return out
	}
	for action, w := range dist {
		if w > 0 {
			out[action] = w / total
		}
	}
	return out
}

// Blend mixes the static prior with a learned distribution for the
// same (workload, view). Both sides are normalized first; a missing or
// empty learned side falls back to the static distribution alone.
func Blend(static, learned entity.Distribution) entity.Distribution {
	staticNorm := Normalize(static)
	learnedNorm := Normalize(learned)
	if len(learnedNorm) == 0 {
		return staticNorm
	}
	if len(staticNorm) == 0 {
		return learnedNorm
	}
	mixed := entity.Distribution{}
	for action, p := range staticNorm {
		mixed[action] += blendWeight * p
	}
	for action, p := range learnedNorm {
		mixed[action] += blendWeight * p
	}
	return Normalize(mixed)
}

// Update folds a batch of episodes into a new prior model; the input
// model is not modified. Only successful episodes contribute. Per
// (workload, view) the empirical action distribution is blended into
// the stored one as new = (1-lr)*old + lr*empirical, re-normalized.
func Update(model entity.PriorModel, episodes []entity.EpisodeRecord, learningRate float64) entity.PriorModel {
	lr := clamp(learningRate, minLearningRate, maxLearningRate)

	counts := map[entity.WorkloadType]map[entity.View]entity.Distribution{}
	for _, ep := range episodes {
		if !ep.Success {
			continue
		}
		for _, step := range ep.Steps {
			view := step.ViewBefore
			if view == "" {
				view = entity.ViewUnknown
			}
			byView, ok := counts[ep.WorkloadType]
			if !ok {
				byView = map[entity.View]entity.Distribution{}
				counts[ep.WorkloadType] = byView
			}
			dist, ok := byView[view]
			if !ok {
				dist = entity.Distribution{}
				byView[view] = dist
			}
			dist[step.Action.Type]++
		}
	}

	next := copyModel(model)
	for workload, byView := range counts {
		for view, raw := range byView {
			empirical := Normalize(raw)
			if len(empirical) == 0 {
				continue
			}
			old := next.ByWorkloadView[workload][view]
			blended := entity.Distribution{}
			for action, p := range old {
				blended[action] += (1 - lr) * p
			}
			for action, p := range empirical {
				blended[action] += lr * p
			}
			if next.ByWorkloadView[workload] == nil {
				next.ByWorkloadView[workload] = map[entity.View]entity.Distribution{}
			}
			next.ByWorkloadView[workload][view] = Normalize(blended)
		}
	}
	return next
}

func copyModel(model entity.PriorModel) entity.PriorModel {
	out := entity.PriorModel{
		Version:        model.Version,
		ByWorkloadView: map[entity.WorkloadType]map[entity.View]entity.Distribution{},
	}
	if out.Version == "" {
		out.Version = "1"
	}
	for workload, byView := range model.ByWorkloadView {
		outViews := map[entity.View]entity.Distribution{}
		for view, dist := range byView {
			d := entity.Distribution{}
			for action, p := range dist {
				d[action] = p
			}
			outViews[view] = d
		}
		out.ByWorkloadView[workload] = outViews
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
