package output

import "agentlab/internal/domain/entity"

// ViewEstimate is a perception adapter's guess at the current view.
// Accuracy errors are an input to the study, not corrected by the
// core.
type ViewEstimate struct {
	ViewID     entity.View `json:"view_id"`
	Confidence float64     `json:"confidence"`
}

// PerceptionPort classifies a raw screenshot into a view estimate.
type PerceptionPort interface {
	ClassifyView(screenshotPath string) (ViewEstimate, error)
}

// OCRText is free text recovered from a screenshot. Provider is
// "none" when no text could be recovered.
type OCRText struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// OCRPort extracts free text from a screenshot for keyword-based
// policies. Failures degrade to empty text, never to an error.
type OCRPort interface {
	ExtractText(screenshotPath string) OCRText
}
