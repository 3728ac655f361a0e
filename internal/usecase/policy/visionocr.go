package policy

import (
	"regexp"
	"strings"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

// visionOCRPolicy infers the current view from OCR text recovered off
// the screenshot, matching against storefront chrome keywords, and
// only then applies the screenshot script. Keyword matching is
// approximate on purpose.
type visionOCRPolicy struct {
	ocr output.OCRPort
}

func (p *visionOCRPolicy) Decide(task entity.ResolvedTask, obs entity.Observation, history []entity.Step) entity.Action {
	var text, provider string
	if p.ocr != nil && obs.ScreenshotPath != "" {
		extracted := p.ocr.ExtractText(obs.ScreenshotPath)
		text = extracted.Text
		provider = extracted.Provider
	}

	inferred := obs.ViewID
	if text != "" {
		inferred = inferViewFromText(text)
	}
	debug := &entity.ActionDebug{OCRProvider: provider, InferredView: inferred}
	withDebug := func(a entity.Action) entity.Action {
		a.Debug = debug
		return a
	}

	switch inferred {
	case entity.ViewHome:
		if task.Spec.Query != "" {
			return withDebug(entity.Action{Type: entity.ActionSearch, Args: map[string]any{"query": task.Spec.Query}})
		}
		return withDebug(entity.NoOp("no_query"))

	case entity.ViewSearchResults, entity.ViewEmptyResults:
		if hasKeyword(text, "no") && hasKeyword(text, "results") {
			return withDebug(entity.NoOp("ocr_no_results"))
		}
		return withDebug(entity.Action{Type: entity.ActionOpenResult, Args: map[string]any{"rank": 1}})

	case entity.ViewProductDetail:
		if task.WorkloadType == entity.WorkloadGraphBrowse &&
			countActions(history, entity.ActionOpenRelated) < 1 && hasKeyword(text, "related") {
			return withDebug(entity.Action{Type: entity.ActionOpenRelated, Args: map[string]any{"rank": 1}})
		}
		if countActions(history, entity.ActionAddToCart) < 1 && hasKeyword(text, "add") {
			return withDebug(entity.Action{Type: entity.ActionAddToCart, Args: map[string]any{"qty": 1}})
		}
		return withDebug(entity.NoOp("ocr_product_done"))
	}

	return withDebug(entity.NoOp("ocr_unknown"))
}

// inferViewFromText maps storefront chrome phrases to a view label.
// Ordering matters: detail markers are checked before the generic
// results markers.
func inferViewFromText(text string) entity.View {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "add to cart") && strings.Contains(t, "related"):
		return entity.ViewProductDetail
	case strings.Contains(t, "add to cart") && strings.Contains(t, "back to results"):
		return entity.ViewProductDetail
	case strings.Contains(t, "search products") && strings.Contains(t, "go to cart"):
		return entity.ViewHome
	case strings.Contains(t, "empty cart"),
		strings.Contains(t, "cart_count") && !strings.Contains(t, "search products"):
		return entity.ViewCart
	case strings.Contains(t, "no results"):
		return entity.ViewEmptyResults
	case strings.Contains(t, "result"), strings.Contains(t, "brand"),
		strings.Contains(t, "category"), strings.Contains(t, "open"):
		return entity.ViewSearchResults
	}
	return entity.ViewUnknown
}

func hasKeyword(text, keyword string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(keyword)) + `\b`)
	return re.MatchString(strings.ToLower(text))
}
