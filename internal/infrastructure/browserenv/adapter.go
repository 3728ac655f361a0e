// Package browserenv drives a live storefront instance through a real
// browser, exposing it behind the same EnvironmentPort as the
// in-process model. Episodes recorded here carry real screenshots.
package browserenv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/ysmood/gson"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var _ output.EnvironmentPort = (*BrowserEnv)(nil)

type Config struct {
	BaseURL       string
	Headless      bool
	NoSandbox     bool
	Timeout       time.Duration
	ScreenshotDir string
	Logger        output.LoggerPort
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Headless:      true,
		NoSandbox:     true,
		Timeout:       10 * time.Second,
		ScreenshotDir: "screenshots",
	}
}

type BrowserEnv struct {
	cfg       Config
	browser   *rod.Browser
	launcher  *launcher.Launcher
	page      *rod.Page
	sessionID string
	task      entity.ResolvedTask
}

func New(cfg Config, task entity.ResolvedTask) (*BrowserEnv, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		MustConnect()

	page := browser.MustPage("about:blank")

	return &BrowserEnv{
		cfg:       cfg,
		browser:   browser,
		launcher:  l,
		page:      page,
		sessionID: uuid.NewString(),
		task:      task,
	}, nil
}

func (b *BrowserEnv) Reset(ctx context.Context, startID, relatedEdge string) (entity.Observation, error) {
	target := fmt.Sprintf("%s/?session=%s", b.cfg.BaseURL, b.sessionID)
	if startID != "" {
		target = fmt.Sprintf("%s/product/%s?session=%s&edge=%s",
			b.cfg.BaseURL, url.PathEscape(startID), b.sessionID, url.QueryEscape(relatedEdge))
	}
	if err := b.page.Context(ctx).Navigate(target); err != nil {
		return entity.Observation{}, fmt.Errorf("navigation failed: %w", err)
	}
	b.page.MustWaitLoad()
	b.page.WaitIdle(2 * time.Second)

	return b.observe(0, "")
}

func (b *BrowserEnv) Step(ctx context.Context, action entity.Action, stepIdx int) (entity.Observation, entity.StepInfo, error) {
	if err := b.apply(ctx, action); err != nil {
		return entity.Observation{}, entity.StepInfo{}, err
	}
	b.page.WaitIdle(2 * time.Second)

	shotPath := b.captureScreenshot(stepIdx)
	obs, err := b.observe(stepIdx, shotPath)
	if err != nil {
		return entity.Observation{}, entity.StepInfo{}, err
	}

	info := entity.StepInfo{
		PostconditionOK: b.dataAttr("data-postcondition-ok") != "false",
		Event:           b.dataAttr("data-last-event"),
		ScreenshotPath:  shotPath,
	}
	return obs, info, nil
}

func (b *BrowserEnv) apply(ctx context.Context, action entity.Action) error {
	page := b.page.Context(ctx).Timeout(b.cfg.Timeout)

	switch action.Type {
	case entity.ActionSearch:
		query, _ := action.Args["query"].(string)
		input, err := page.Element(`[data-testid="search-input"]`)
		if err != nil {
			return fmt.Errorf("search input not found: %w", err)
		}
		if err := input.SelectAllText(); err == nil {
			_ = input.Input("")
		}
		if err := input.Input(query); err != nil {
			return fmt.Errorf("search input failed: %w", err)
		}
		return b.click(page, `[data-testid="search-submit"]`)

	case entity.ActionApplyFacet:
		key, _ := action.Args["facet"].(string)
		value := fmt.Sprintf("%v", action.Args["value"])
		return b.click(page, fmt.Sprintf(`[data-testid="facet-%s-%s"]`, key, value))

	case entity.ActionSortBy:
		key, _ := action.Args["key"].(string)
		sel, err := page.Element(`[data-testid="sort-select"]`)
		if err != nil {
			return fmt.Errorf("sort select not found: %w", err)
		}
		return sel.Select([]string{key}, true, rod.SelectorTypeText)

	case entity.ActionOpenResult:
		return b.clickNth(page, `[data-testid="open-product"]`, action.Rank()-1)

	case entity.ActionOpenRelated:
		return b.clickNth(page, `[data-testid="related-item"]`, action.Rank()-1)

	case entity.ActionAddToCart:
		return b.click(page, `[data-testid="add-to-cart"]`)

	case entity.ActionGoToCart:
		return b.click(page, `[data-testid="nav-cart"]`)

	case entity.ActionBackToResults:
		return b.click(page, `[data-testid="back-to-results"]`)

	case entity.ActionNoOp:
		return nil
	}
	return nil
}

func (b *BrowserEnv) click(page *rod.Page, selector string) error {
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (b *BrowserEnv) clickNth(page *rod.Page, selector string, idx int) error {
	if idx < 0 {
		idx = 0
	}
	els, err := page.Elements(selector)
	if err != nil || idx >= len(els) {
		return fmt.Errorf("element %s[%d] not found", selector, idx)
	}
	if err := els[idx].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// observe scrapes the page into the common observation shape. The
// storefront mirrors its state into data attributes on <body> and the
// listing/cart elements.
func (b *BrowserEnv) observe(stepIdx int, shotPath string) (entity.Observation, error) {
	obs := entity.Observation{
		ViewID:         entity.View(b.dataAttr("data-view-id")),
		SearchQuery:    b.dataAttr("data-search-query"),
		SortKey:        b.dataAttr("data-sort-key"),
		SelectedID:     b.dataAttr("data-selected-id"),
		RelatedEdge:    b.dataAttr("data-related-edge"),
		StepIdx:        stepIdx,
		ScreenshotPath: shotPath,
	}
	if obs.ViewID == "" {
		obs.ViewID = entity.ViewUnknown
	}

	obs.ResultIDs = b.collectIDs(`[data-testid="open-product"]`)
	obs.ResultCount = len(obs.ResultIDs)
	obs.RelatedIDs = b.collectIDs(`[data-testid="related-item"]`)

	if raw := b.elementAttr(`[data-testid="nav-cart"]`, "data-cart-asins"); raw != "" {
		obs.CartIDs = strings.Split(raw, ",")
	}

	if raw := b.dataAttr("data-applied-constraints"); raw != "" {
		obs.AppliedConstraints = map[string]any{}
		for _, pair := range strings.Split(raw, ";") {
			if k, v, ok := strings.Cut(pair, "="); ok {
				obs.AppliedConstraints[k] = v
			}
		}
	}
	return obs, nil
}

func (b *BrowserEnv) collectIDs(selector string) []string {
	els, err := b.page.Timeout(b.cfg.Timeout).Elements(selector)
	if err != nil {
		return nil
	}
	var ids []string
	for _, el := range els {
		if id, err := el.Attribute("data-id"); err == nil && id != nil && *id != "" {
			ids = append(ids, *id)
		}
	}
	return ids
}

func (b *BrowserEnv) dataAttr(name string) string {
	return b.elementAttr("body", name)
}

func (b *BrowserEnv) elementAttr(selector, name string) string {
	el, err := b.page.Timeout(b.cfg.Timeout).Element(selector)
	if err != nil {
		return ""
	}
	val, err := el.Attribute(name)
	if err != nil || val == nil {
		return ""
	}
	return *val
}

// captureScreenshot writes a downscaled jpeg for the step. Failures
// leave the path empty; the episode keeps going.
func (b *BrowserEnv) captureScreenshot(stepIdx int) string {
	imgBytes, err := b.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		b.warn("Screenshot failed", err)
		return ""
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		b.warn("Screenshot decode failed", err)
		return ""
	}
	if img.Bounds().Dx() > 1024 {
		img = imaging.Resize(img, 1024, 0, imaging.Lanczos)
	}

	dir := filepath.Join(b.cfg.ScreenshotDir, b.sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.warn("Screenshot dir failed", err)
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("step_%03d.jpg", stepIdx))

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		b.warn("Screenshot encode failed", err)
		return ""
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		b.warn("Screenshot write failed", err)
		return ""
	}
	return path
}

func (b *BrowserEnv) warn(msg string, err error) {
	if b.cfg.Logger != nil {
		b.cfg.Logger.Warn(msg, "error", err)
	}
}

func (b *BrowserEnv) OracleTargetID(task entity.ResolvedTask) string {
	if task.Oracle.ExpectedID != "" {
		return task.Oracle.ExpectedID
	}
	return task.Spec.TargetID
}

func (b *BrowserEnv) Close() error {
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return nil
}
