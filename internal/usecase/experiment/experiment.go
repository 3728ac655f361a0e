// Package experiment runs a variant-by-task episode grid and rolls the
// results up.
package experiment

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
	"agentlab/internal/usecase/metrics"
	"agentlab/internal/usecase/policy"
	"agentlab/internal/usecase/resolver"
	"agentlab/internal/usecase/runner"
)

// Config is the experiment file as loaded from YAML.
type Config struct {
	Variants           []string `yaml:"variants"`
	MaxStepsPerEpisode int      `yaml:"max_steps_per_episode"`
	Seed               int64    `yaml:"seed"`

	// Parallelism caps concurrent episodes. Zero or one runs
	// sequentially.
	Parallelism int `yaml:"parallelism"`
}

// Deps carries the ports an experiment needs. EnvFactory builds a
// fresh environment per episode so no state leaks between episodes.
type Deps struct {
	Catalog      output.CatalogPort
	EnvFactory   func(task entity.ResolvedTask) (output.EnvironmentPort, error)
	StaticPriors map[entity.View]entity.Distribution
	LearnedModel entity.PriorModel
	LLM          output.LLMPort
	Perception   output.PerceptionPort
	OCR          output.OCRPort
	Logger       output.LoggerPort
}

// Result is the full outcome of one experiment run.
type Result struct {
	Episodes []entity.EpisodeRecord
	Rollups  metrics.Rollups
}

// Run resolves every template once, with seed cfg.Seed+i for template
// i, and runs one episode per variant against the shared concrete
// task, so variants are compared on identical inputs. Episode order in
// the result is deterministic regardless of parallelism.
func Run(ctx context.Context, templates []entity.TaskTemplate, cfg Config, deps Deps) (Result, error) {
	if len(cfg.Variants) == 0 {
		return Result{}, fmt.Errorf("experiment config names no variants")
	}

	resolved := make([]entity.ResolvedTask, len(templates))
	for i, tpl := range templates {
		task, err := resolver.Resolve(tpl, deps.Catalog, cfg.Seed+int64(i))
		if err != nil {
			return Result{}, fmt.Errorf("resolve task %s: %w", tpl.TaskID, err)
		}
		if task.ResolverWarning != "" && deps.Logger != nil {
			deps.Logger.Warn("Resolver fallback", "task_id", task.TaskID, "warning", task.ResolverWarning)
		}
		resolved[i] = task
	}

	type cell struct {
		variant policy.Variant
		task    entity.ResolvedTask
	}
	var cells []cell
	for _, v := range cfg.Variants {
		for _, task := range resolved {
			cells = append(cells, cell{variant: policy.Variant(v), task: task})
		}
	}

	episodes := make([]entity.EpisodeRecord, len(cells))
	limit := cfg.Parallelism
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var mu sync.Mutex

	for i, c := range cells {
		i, c := i, c
		g.Go(func() error {
			env, err := deps.EnvFactory(c.task)
			if err != nil {
				return fmt.Errorf("build environment for %s: %w", c.task.TaskID, err)
			}
			defer env.Close()

			record, err := runner.Run(gctx, env, c.task, runner.Config{
				Variant:  c.variant,
				MaxSteps: cfg.MaxStepsPerEpisode,
				Policy: policy.Config{
					StaticPriors: deps.StaticPriors,
					LearnedModel: deps.LearnedModel,
					LLM:          deps.LLM,
					Perception:   deps.Perception,
					OCR:          deps.OCR,
					Logger:       deps.Logger,
				},
				Logger: deps.Logger,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			episodes[i] = record
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Episodes: episodes,
		Rollups:  metrics.ComputeRollups(episodes),
	}, nil
}
