package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

const freeformSystemPrompt = `You control a storefront UI. Reply with exactly one action as JSON:
{"type": "<Search|ApplyFacet|SortBy|OpenResult|OpenRelated|AddToCart|GoToCart|BackToResults|NoOp>", "args": {...}}

Args by type: Search {"query": string}, ApplyFacet {"facet": string, "value": string},
SortBy {"key": "price_asc|price_desc|rating_desc|relevance"}, OpenResult/OpenRelated {"rank": int},
AddToCart {"qty": 1}, others {}.

Reply with the JSON object only.`

const freeformTimeout = 20 * time.Second

// freeformPolicy is the unscripted baseline. With no LLM configured it
// degrades to a NoOp placeholder; with one, it asks for a single
// action per step and falls back to NoOp on any error or unparseable
// reply.
type freeformPolicy struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

func (p *freeformPolicy) Decide(task entity.ResolvedTask, obs entity.Observation, _ []entity.Step) entity.Action {
	if p.llm == nil {
		return entity.NoOp("baseline random-freeform placeholder")
	}

	ctx, cancel := context.WithTimeout(context.Background(), freeformTimeout)
	defer cancel()

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages: []output.ChatMessage{
			{Role: output.RoleSystem, Content: freeformSystemPrompt},
			{Role: output.RoleUser, Content: p.buildUserPrompt(task, obs)},
		},
		Temperature: 0.0,
	})
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("Freeform llm request failed", "error", err)
		}
		return entity.NoOp("llm_error")
	}

	action, err := parseActionResponse(resp.Content)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("Freeform reply unparseable", "error", err)
		}
		return entity.NoOp("llm_unparseable")
	}
	return action
}

func (p *freeformPolicy) buildUserPrompt(task entity.ResolvedTask, obs entity.Observation) string {
	taskJSON, _ := json.Marshal(task.Spec)
	obsJSON, _ := json.Marshal(obs)
	return fmt.Sprintf("Goal (%s): %s\n\nCurrent observation:\n%s", task.WorkloadType, taskJSON, obsJSON)
}

// parseActionResponse extracts the first JSON object from the reply,
// tolerating prose around it.
func parseActionResponse(content string) (entity.Action, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return entity.Action{}, fmt.Errorf("no JSON object in response")
	}

	var action entity.Action
	if err := json.Unmarshal([]byte(content[start:end+1]), &action); err != nil {
		return entity.Action{}, fmt.Errorf("parse action: %w", err)
	}
	if !knownActionType(action.Type) {
		return entity.Action{}, fmt.Errorf("unknown action type %q", action.Type)
	}
	if action.Args == nil {
		action.Args = map[string]any{}
	}
	action.Debug = nil
	return action, nil
}

func knownActionType(t entity.ActionType) bool {
	switch t {
	case entity.ActionSearch, entity.ActionApplyFacet, entity.ActionSortBy,
		entity.ActionOpenResult, entity.ActionOpenRelated, entity.ActionAddToCart,
		entity.ActionGoToCart, entity.ActionBackToResults, entity.ActionNoOp:
		return true
	}
	return false
}
