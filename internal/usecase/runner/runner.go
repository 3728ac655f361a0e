// Package runner drives the interaction loop of one episode: reset,
// then strictly alternating policy decisions and model steps until the
// oracle fires or the step budget runs out.
package runner

import (
	"context"
	"fmt"
	"time"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
	"agentlab/internal/usecase/oracle"
	"agentlab/internal/usecase/policy"
)

const DefaultMaxSteps = 30

// Config selects the policy variant and its dependencies for one
// episode. The oracle target is computed by the runner and must not be
// preset.
type Config struct {
	Variant  policy.Variant
	MaxSteps int
	Policy   policy.Config
	Logger   output.LoggerPort
}

// Run executes one episode against env. The returned record is
// immutable; the environment is left in its final state.
func Run(ctx context.Context, env output.EnvironmentPort, task entity.ResolvedTask, cfg Config) (entity.EpisodeRecord, error) {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	started := time.Now().UTC()
	edge := task.Spec.Edge
	if edge == "" {
		edge = task.Spec.EdgeUsed
	}
	obs, err := env.Reset(ctx, task.Spec.StartID, edge)
	if err != nil {
		return entity.EpisodeRecord{}, fmt.Errorf("reset environment: %w", err)
	}

	targetID := env.OracleTargetID(task)

	policyCfg := cfg.Policy
	policyCfg.OracleTargetID = targetID
	pol, err := policy.New(cfg.Variant, policyCfg)
	if err != nil {
		return entity.EpisodeRecord{}, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Episode started",
			"task_id", task.TaskID,
			"variant", string(cfg.Variant),
			"oracle_target", targetID,
		)
	}

	var steps []entity.Step
	success := false
	var stepsToSuccess *int

	for t := 0; t < maxSteps; t++ {
		obs.StepIdx = t
		action := pol.Decide(task, obs, steps)

		next, info, err := env.Step(ctx, action, t+1)
		if err != nil {
			return entity.EpisodeRecord{}, fmt.Errorf("step %d: %w", t, err)
		}

		done := oracle.Satisfied(task, next, targetID)
		steps = append(steps, entity.Step{
			T:               t,
			ViewBefore:      obs.ViewID,
			Action:          action,
			PostconditionOK: info.PostconditionOK,
			Event:           info.Event,
			StateAfter:      next,
			OracleDone:      done,
		})

		obs = next
		if done {
			success = true
			n := t + 1
			stepsToSuccess = &n
			break
		}
	}

	record := entity.EpisodeRecord{
		TaskID:         task.TaskID,
		WorkloadType:   task.WorkloadType,
		AgentVariant:   string(cfg.Variant),
		Success:        success,
		StepsToSuccess: stepsToSuccess,
		Steps:          steps,
		OracleTargetID: targetID,
		StartTS:        started,
		EndTS:          time.Now().UTC(),
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Episode finished",
			"task_id", task.TaskID,
			"variant", string(cfg.Variant),
			"success", success,
			"steps", len(steps),
		)
	}
	return record, nil
}
