// Package metrics aggregates episode records into comparable
// success, efficiency, and policy-divergence statistics.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"agentlab/internal/domain/entity"
)

// GroupSummary describes one slice of episodes. MedianStepsToSuccess
// is nil when the slice has no successes.
type GroupSummary struct {
	Episodes             int      `json:"episodes"`
	Successes            int      `json:"successes"`
	SuccessRate          float64  `json:"success_rate"`
	MedianStepsToSuccess *float64 `json:"median_steps_to_success"`
	AvgInvalidActionRate float64  `json:"avg_invalid_action_rate"`
	AvgThrashScore       float64  `json:"avg_thrash_score"`
}

// Rollups is the full aggregation of one batch. The pair map is keyed
// "variant::workload".
type Rollups struct {
	Overall           GroupSummary            `json:"overall"`
	ByVariant         map[string]GroupSummary `json:"by_variant"`
	ByWorkload        map[string]GroupSummary `json:"by_workload"`
	ByVariantWorkload map[string]GroupSummary `json:"by_variant_workload"`
}

// InvalidActionRate is the fraction of steps whose postcondition
// failed.
func InvalidActionRate(steps []entity.Step) float64 {
	if len(steps) == 0 {
		return 0
	}
	invalid := 0
	for _, s := range steps {
		if !s.PostconditionOK {
			invalid++
		}
	}
	return float64(invalid) / float64(len(steps))
}

// ThrashScore is the fraction of steps that repeat an already-seen
// (view, action type) pair within the episode. Always in [0,1]; 0 when
// every pair is distinct.
func ThrashScore(steps []entity.Step) float64 {
	if len(steps) == 0 {
		return 0
	}
	type pair struct {
		view       entity.View
		actionType entity.ActionType
	}
	seen := map[pair]int{}
	for _, s := range steps {
		view := s.ViewBefore
		if view == "" {
			view = entity.ViewUnknown
		}
		seen[pair{view, s.Action.Type}]++
	}
	repeats := 0
	for _, count := range seen {
		if count > 1 {
			repeats += count - 1
		}
	}
	return float64(repeats) / float64(len(steps))
}

// ComputeRollups aggregates a batch into overall, per-variant,
// per-workload, and per-(variant,workload) summaries.
func ComputeRollups(episodes []entity.EpisodeRecord) Rollups {
	byVariant := map[string][]entity.EpisodeRecord{}
	byWorkload := map[string][]entity.EpisodeRecord{}
	byPair := map[string][]entity.EpisodeRecord{}

	for _, ep := range episodes {
		variant := ep.AgentVariant
		if variant == "" {
			variant = "UNKNOWN"
		}
		workload := string(ep.WorkloadType)
		if workload == "" {
			workload = "UNKNOWN"
		}
		byVariant[variant] = append(byVariant[variant], ep)
		byWorkload[workload] = append(byWorkload[workload], ep)
		key := fmt.Sprintf("%s::%s", variant, workload)
		byPair[key] = append(byPair[key], ep)
	}

	return Rollups{
		Overall:           summarize(episodes),
		ByVariant:         summarizeGroups(byVariant),
		ByWorkload:        summarizeGroups(byWorkload),
		ByVariantWorkload: summarizeGroups(byPair),
	}
}

func summarizeGroups(groups map[string][]entity.EpisodeRecord) map[string]GroupSummary {
	out := make(map[string]GroupSummary, len(groups))
	for key, eps := range groups {
		out[key] = summarize(eps)
	}
	return out
}

func summarize(episodes []entity.EpisodeRecord) GroupSummary {
	n := len(episodes)
	summary := GroupSummary{Episodes: n}
	if n == 0 {
		return summary
	}

	var stepsToSuccess []int
	sumInvalid, sumThrash := 0.0, 0.0
	for _, ep := range episodes {
		if ep.Success {
			summary.Successes++
			if ep.StepsToSuccess != nil {
				stepsToSuccess = append(stepsToSuccess, *ep.StepsToSuccess)
			}
		}
		sumInvalid += InvalidActionRate(ep.Steps)
		sumThrash += ThrashScore(ep.Steps)
	}

	summary.SuccessRate = round4(float64(summary.Successes) / float64(n))
	summary.AvgInvalidActionRate = round4(sumInvalid / float64(n))
	summary.AvgThrashScore = round4(sumThrash / float64(n))
	if len(stepsToSuccess) > 0 {
		m := median(stepsToSuccess)
		summary.MedianStepsToSuccess = &m
	}
	return summary
}

func median(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
