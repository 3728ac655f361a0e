package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"agentlab/internal/di"
	"agentlab/internal/domain/entity"
	"agentlab/internal/infrastructure/catalog"
	"agentlab/internal/usecase/experiment"
	"agentlab/internal/usecase/metrics"
	"agentlab/internal/usecase/policy"
	"agentlab/internal/usecase/priors"
	"agentlab/internal/usecase/resolver"
	"agentlab/internal/usecase/runner"
)

var (
	flagProducts   string
	flagTasks      string
	flagUICatalog  string
	flagPriorModel string
	flagReportDir  string
	flagDebug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "agentlab",
		Short: "Agent evaluation harness for a simulated storefront",
		Long: "agentlab resolves task templates into concrete storefront tasks, runs\n" +
			"policy variants against the storefront, and reports success and\n" +
			"efficiency metrics per variant.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagProducts, "products", "data/products.json", "products JSON file")
	root.PersistentFlags().StringVar(&flagTasks, "tasks", "data/tasks.json", "task templates JSON file")
	root.PersistentFlags().StringVar(&flagUICatalog, "ui-catalog", "", "UI catalog YAML file (built-in default when empty)")
	root.PersistentFlags().StringVar(&flagPriorModel, "prior-model", "data/prior_model.json", "learned prior model file")
	root.PersistentFlags().StringVar(&flagReportDir, "report-dir", "reports", "directory for episode and summary files")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "debug logging")

	root.AddCommand(newMaterializeCmd(), newRunEpisodeCmd(), newExperimentCmd(), newUpdatePriorsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildContainer() (*di.Container, error) {
	return di.NewContainer(di.Config{
		ProductsPath:   flagProducts,
		UICatalogPath:  flagUICatalog,
		PriorModelPath: flagPriorModel,
		ReportDir:      flagReportDir,
		Debug:          flagDebug,
	})
}

func newMaterializeCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Resolve all task templates and print the concrete tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			templates, err := catalog.LoadTaskTemplates(flagTasks)
			if err != nil {
				return err
			}

			resolved := make([]entity.ResolvedTask, 0, len(templates))
			for i, tpl := range templates {
				task, err := resolver.Resolve(tpl, c.Catalog, seed+int64(i))
				if err != nil {
					return fmt.Errorf("resolve task %s: %w", tpl.TaskID, err)
				}
				if task.ResolverWarning != "" {
					c.Logger.Warn("Resolver fallback", "task_id", task.TaskID, "warning", task.ResolverWarning)
				}
				resolved = append(resolved, task)
			}

			out, err := json.MarshalIndent(resolved, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "base seed; template i resolves with seed+i")
	return cmd
}

func newRunEpisodeCmd() *cobra.Command {
	var (
		taskID   string
		variant  string
		seed     int64
		maxSteps int
	)
	cmd := &cobra.Command{
		Use:   "run-episode",
		Short: "Run one policy variant on one task and print the episode record",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			templates, err := catalog.LoadTaskTemplates(flagTasks)
			if err != nil {
				return err
			}
			var tpl *entity.TaskTemplate
			for i := range templates {
				if templates[i].TaskID == taskID {
					tpl = &templates[i]
					break
				}
			}
			if tpl == nil {
				return fmt.Errorf("unknown task id %q", taskID)
			}

			task, err := resolver.Resolve(*tpl, c.Catalog, seed)
			if err != nil {
				return err
			}

			env, err := c.NewEnvironment(task)
			if err != nil {
				return err
			}
			defer env.Close()

			record, err := runner.Run(cmd.Context(), env, task, runner.Config{
				Variant:  policy.Variant(variant),
				MaxSteps: maxSteps,
				Policy: policy.Config{
					StaticPriors: c.StaticPriors,
					LearnedModel: c.PriorStore.Load(),
					LLM:          c.LLM,
					Perception:   c.Perception,
					OCR:          c.OCR,
					Logger:       c.Logger,
				},
				Logger: c.Logger,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task template id to run")
	cmd.Flags().StringVar(&variant, "variant", string(policy.VariantTypedAction), "policy variant")
	cmd.Flags().Int64Var(&seed, "seed", 0, "resolution seed")
	cmd.Flags().IntVar(&maxSteps, "max-steps", runner.DefaultMaxSteps, "step budget")
	cmd.MarkFlagRequired("task-id")
	return cmd
}

func newExperimentCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run the variant-by-task grid from an experiment config",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("read experiment config: %w", err)
			}
			var expCfg experiment.Config
			if err := yaml.Unmarshal(data, &expCfg); err != nil {
				return fmt.Errorf("parse experiment config %s: %w", configPath, err)
			}

			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			templates, err := catalog.LoadTaskTemplates(flagTasks)
			if err != nil {
				return err
			}

			result, err := experiment.Run(cmd.Context(), templates, expCfg, experiment.Deps{
				Catalog:      c.Catalog,
				EnvFactory:   c.NewEnvironment,
				StaticPriors: c.StaticPriors,
				LearnedModel: c.PriorStore.Load(),
				LLM:          c.LLM,
				Perception:   c.Perception,
				OCR:          c.OCR,
				Logger:       c.Logger,
			})
			if err != nil {
				return err
			}

			episodesPath, err := c.Sink.WriteEpisodes(result.Episodes)
			if err != nil {
				return err
			}

			summary := map[string]any{"rollups": result.Rollups}
			if hasVariant(expCfg.Variants, policy.VariantTypedAction) &&
				hasVariant(expCfg.Variants, policy.VariantTypedActionPriors) {
				summary["prior_effect"] = metrics.ComputePriorEffect(result.Episodes,
					string(policy.VariantTypedAction), string(policy.VariantTypedActionPriors))
			}
			summaryPath, err := c.Sink.WriteSummary(summary)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "episodes: %s\nsummary:  %s\n", episodesPath, summaryPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/experiment.yaml", "experiment YAML config")
	return cmd
}

func newUpdatePriorsCmd() *cobra.Command {
	var (
		episodesPath string
		learningRate float64
	)
	cmd := &cobra.Command{
		Use:   "update-priors",
		Short: "Fold successful episodes into the learned prior model",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			data, err := os.ReadFile(episodesPath)
			if err != nil {
				return fmt.Errorf("read episodes: %w", err)
			}
			var doc struct {
				Episodes []entity.EpisodeRecord `json:"episodes"`
			}
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse episodes %s: %w", episodesPath, err)
			}

			model := priors.Update(c.PriorStore.Load(), doc.Episodes, learningRate)
			if err := c.PriorStore.Save(model); err != nil {
				return err
			}
			c.Logger.Info("Prior model updated",
				"episodes", len(doc.Episodes),
				"learning_rate", learningRate,
				"path", flagPriorModel,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&episodesPath, "episodes", "", "episodes JSON file from an experiment run")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", 0.3, "EMA learning rate, clamped to [0.01, 1.0]")
	cmd.MarkFlagRequired("episodes")
	return cmd
}

func hasVariant(variants []string, v policy.Variant) bool {
	for _, name := range variants {
		if name == string(v) {
			return true
		}
	}
	return false
}
