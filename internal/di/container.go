package di

import (
	"fmt"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
	"agentlab/internal/infrastructure/browserenv"
	"agentlab/internal/infrastructure/catalog"
	"agentlab/internal/infrastructure/catalog/memory"
	"agentlab/internal/infrastructure/env"
	"agentlab/internal/infrastructure/llm/openrouter"
	"agentlab/internal/infrastructure/logger"
	"agentlab/internal/infrastructure/perception"
	"agentlab/internal/infrastructure/priorstore"
	"agentlab/internal/infrastructure/report"
	"agentlab/internal/infrastructure/uicatalog"
	"agentlab/internal/usecase/storefront"
)

type Container struct {
	Config       output.ConfigPort
	Logger       output.LoggerPort
	Catalog      output.CatalogPort
	StaticPriors map[entity.View]entity.Distribution
	PriorStore   output.PriorStorePort
	Sink         *report.FileSink
	LLM          output.LLMPort
	Perception   output.PerceptionPort
	OCR          output.OCRPort
}

type Config struct {
	ProductsPath   string
	UICatalogPath  string
	PriorModelPath string
	ReportDir      string
	Debug          bool
}

func NewContainer(cfg Config) (*Container, error) {
	envService := env.NewEnvService()

	log, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	products, err := catalog.LoadProducts(cfg.ProductsPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	cat := memory.New(products)

	uiCat := uicatalog.Default()
	if cfg.UICatalogPath != "" {
		uiCat, err = uicatalog.Load(cfg.UICatalogPath)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to load ui catalog: %w", err)
		}
	}

	c := &Container{
		Config:       envService,
		Logger:       log,
		Catalog:      cat,
		StaticPriors: uiCat.StaticPriors(),
		PriorStore:   priorstore.New(cfg.PriorModelPath, log),
		Sink:         report.NewFileSink(cfg.ReportDir, log),
		Perception:   perception.NewBannerClassifier(),
		OCR:          perception.NewSidecarOCR(log),
	}

	if apiKey := envService.Get("OPENROUTER_API_KEY"); apiKey != "" {
		model := envService.Get("OPENROUTER_MODEL")
		if model == "" {
			model = "openai/gpt-4o-mini"
		}
		llmCfg := openrouter.DefaultConfig(apiKey, model)
		if cfg.Debug {
			llmCfg.Logger = log
		}
		c.LLM = openrouter.NewOpenRouterAdapter(llmCfg)
	}

	return c, nil
}

// NewEnvironment builds a fresh environment for one episode: the
// in-process model by default, or a live browser against
// STOREFRONT_URL when BROWSER_ENV is set.
func (c *Container) NewEnvironment(task entity.ResolvedTask) (output.EnvironmentPort, error) {
	if c.Config.GetBool("BROWSER_ENV", false) {
		baseURL := c.Config.MustGet("STOREFRONT_URL")
		browserCfg := browserenv.DefaultConfig(baseURL)
		browserCfg.Headless = c.Config.GetBool("BROWSER_HEADLESS", true)
		browserCfg.Logger = c.Logger
		return browserenv.New(browserCfg, task)
	}
	return storefront.New(c.Catalog), nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
