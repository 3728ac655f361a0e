package perception

import (
	"os"
	"strings"

	"golang.org/x/net/html"

	"agentlab/internal/application/port/output"
)

var _ output.OCRPort = (*SidecarOCR)(nil)

// SidecarOCR recovers screenshot text from sidecar files written next
// to the image: "<shot>.txt" (pre-extracted text) first, then
// "<shot>.html" (a page snapshot whose visible text we extract). No
// sidecar means no text; that degradation is intentional.
type SidecarOCR struct {
	logger output.LoggerPort
}

func NewSidecarOCR(logger output.LoggerPort) *SidecarOCR {
	return &SidecarOCR{logger: logger}
}

func (o *SidecarOCR) ExtractText(screenshotPath string) output.OCRText {
	if data, err := os.ReadFile(screenshotPath + ".txt"); err == nil {
		return output.OCRText{Provider: "sidecar", Text: string(data)}
	}

	if data, err := os.ReadFile(screenshotPath + ".html"); err == nil {
		text, err := VisibleText(string(data))
		if err == nil && text != "" {
			return output.OCRText{Provider: "dom", Text: text}
		}
		if err != nil && o.logger != nil {
			o.logger.Warn("DOM sidecar unparseable", "path", screenshotPath+".html", "error", err)
		}
	}

	return output.OCRText{Provider: "none", Text: ""}
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"iframe": true, "link": true, "meta": true, "head": true, "title": true,
}

// VisibleText extracts the rendered text of an HTML document,
// whitespace-normalized, skipping non-visible subtrees.
func VisibleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " "), nil
}
