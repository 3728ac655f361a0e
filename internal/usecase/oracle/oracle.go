// Package oracle decides whether a task's goal condition holds for a
// given storefront state.
package oracle

import "agentlab/internal/domain/entity"

// Satisfied reports whether the task's goal holds in state. expectedID
// is the per-episode target computed by the environment; for oracle
// types that resolve their target at task resolution it may be empty,
// in which case the task's own expected id is used. Pure and
// idempotent: the same state always yields the same answer, and an
// unknown oracle type is never satisfied.
func Satisfied(task entity.ResolvedTask, state entity.Observation, expectedID string) bool {
	switch task.Oracle.Type {
	case entity.OracleExactIDInCart, entity.OracleRelatedEdgeMatch:
		target := expectedID
		if target == "" {
			target = task.Oracle.ExpectedID
		}
		return target != "" && inCart(state, target)

	case entity.OracleMinPriceMatch, entity.OracleMaxRatingMatch:
		return expectedID != "" && inCart(state, expectedID)
	}
	return false
}

func inCart(state entity.Observation, id string) bool {
	for _, cartID := range state.CartIDs {
		if cartID == id {
			return true
		}
	}
	return false
}
