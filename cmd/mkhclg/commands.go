package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/hclg/hclg"
)

type buildFlags struct {
	recipe   string
	config   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mkhclg",
		Short:         "Build stochasticity-preserving HCLG graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBuildCmd(), newConfigCmd())

	return root
}

func newBuildCmd() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build HCLG from a recipe and print per-stage statistics",
		Long: `Build reads a recipe (phones, lexicon, bigram grammar with backoff and
HMM shape), constructs L, G and H′ from it and runs the pipeline

  HCLG = asl(min(rds(det(H′ ∘ min(det(C ∘ min(det(L ∘ G))))))))

Every stage is measured; a stage that moves the stochasticity bounds away
from zero aborts the build. The final self-loop stage is only reported.

Examples:
  mkhclg build --recipe cats.yaml
  mkhclg build --recipe cats.yaml --config hclg.yaml --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.recipe, "recipe", "", "recipe YAML file (required)")
	cmd.Flags().StringVar(&flags.config, "config", "", "pipeline configuration YAML file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	_ = cmd.MarkFlagRequired("recipe")

	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default pipeline configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(hclg.DefaultConfig()); err != nil {
				return err
			}

			return enc.Close()
		},
	}
}

func runBuild(cmd *cobra.Command, flags buildFlags) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
		return fmt.Errorf("mkhclg: --log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg := hclg.DefaultConfig()
	if flags.config != "" {
		var err error
		if cfg, err = hclg.LoadConfigFile(flags.config); err != nil {
			return err
		}
	}
	rec, err := LoadRecipeFile(flags.recipe)
	if err != nil {
		return err
	}
	c, err := rec.compile()
	if err != nil {
		return err
	}

	p, err := hclg.New(hclg.WithConfig(cfg), hclg.WithLogger(logger))
	if err != nil {
		return err
	}
	res, err := p.Build(cmd.Context(), c.inputs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "build %s: %d phones, %d words\n", res.BuildID, len(c.phones.Labels()), len(c.words.Labels()))
	fmt.Fprintln(out, renderStages(res.Stages, isTerminal(out)))
	fmt.Fprintf(out, "HCLG: %d states, %d arcs\n", res.Graph.NumStates(), res.Graph.TotalArcs())

	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)

	return ok && isattyTerminal(f.Fd())
}
