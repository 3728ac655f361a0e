package output

import (
	"context"

	"agentlab/internal/domain/entity"
)

// EnvironmentPort is the storefront as the episode runner drives it:
// the in-process model and the live-browser adapter both satisfy it.
type EnvironmentPort interface {
	// Reset starts a fresh episode at HOME, or at the detail view of
	// startID when given (related set computed immediately).
	Reset(ctx context.Context, startID, relatedEdge string) (entity.Observation, error)

	// Step applies one action. Invalid actions are reported through
	// info.PostconditionOK, not through the error.
	Step(ctx context.Context, action entity.Action, stepIdx int) (entity.Observation, entity.StepInfo, error)

	// OracleTargetID computes the task's expected cart id once per
	// episode. Empty means no target exists and the oracle can never
	// fire.
	OracleTargetID(task entity.ResolvedTask) string

	Close() error
}
