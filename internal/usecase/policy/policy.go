// Package policy holds the closed set of decision-making variants
// under study. A policy is chosen once at episode construction and
// then asked for one action per step.
package policy

import (
	"fmt"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

type Variant string

const (
	VariantBaselineFreeform  Variant = "baseline_freeform"
	VariantStateAware        Variant = "state_aware"
	VariantTypedAction       Variant = "typed_action"
	VariantTypedActionPriors Variant = "typed_action_priors"
	VariantScreenshotBased   Variant = "screenshot_based"
	VariantVisionOCR         Variant = "vision_ocr"
)

func AllVariants() []Variant {
	return []Variant{
		VariantBaselineFreeform,
		VariantStateAware,
		VariantTypedAction,
		VariantTypedActionPriors,
		VariantScreenshotBased,
		VariantVisionOCR,
	}
}

// Policy picks the next action for one step. History carries the steps
// already taken this episode, for repetition context.
type Policy interface {
	Decide(task entity.ResolvedTask, obs entity.Observation, history []entity.Step) entity.Action
}

// Config carries everything a variant may need. Unused fields are
// ignored by variants that do not need them.
type Config struct {
	StaticPriors map[entity.View]entity.Distribution

	// OracleTargetID is the expected cart id computed once per episode
	// by the environment; empty when no target exists.
	OracleTargetID string

	LearnedModel entity.PriorModel
	PriorAlpha   float64
	RepeatBeta   float64
	PriorTopK    int

	LLM        output.LLMPort
	Perception output.PerceptionPort
	OCR        output.OCRPort
	Logger     output.LoggerPort
}

// Scoring defaults. The heuristic bonus constants live in typed.go;
// these scale the learned-prior term so it stays within the bonus
// band, and are configuration rather than derived values.
const (
	DefaultPriorAlpha = 0.4
	DefaultRepeatBeta = 0.35
	DefaultPriorTopK  = 3
)

// New builds the policy for a variant. Unknown variants are an error:
// the variant set is closed.
func New(variant Variant, cfg Config) (Policy, error) {
	if cfg.PriorAlpha == 0 {
		cfg.PriorAlpha = DefaultPriorAlpha
	}
	if cfg.RepeatBeta == 0 {
		cfg.RepeatBeta = DefaultRepeatBeta
	}
	if cfg.PriorTopK == 0 {
		cfg.PriorTopK = DefaultPriorTopK
	}

	switch variant {
	case VariantBaselineFreeform:
		return &freeformPolicy{llm: cfg.LLM, logger: cfg.Logger}, nil
	case VariantStateAware:
		return &stateAwarePolicy{}, nil
	case VariantTypedAction:
		return &typedPolicy{cfg: cfg, useLearnedPriors: false}, nil
	case VariantTypedActionPriors:
		return &typedPolicy{cfg: cfg, useLearnedPriors: true}, nil
	case VariantScreenshotBased:
		return &screenshotPolicy{perception: cfg.Perception}, nil
	case VariantVisionOCR:
		return &visionOCRPolicy{ocr: cfg.OCR}, nil
	}
	return nil, fmt.Errorf("unknown policy variant %q", variant)
}
