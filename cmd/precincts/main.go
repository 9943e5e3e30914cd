// Command precincts runs the precinct staffing pipeline from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/config"
	"github.com/arnavshah/precinct-staffing-go/pkg/logging"
	"github.com/arnavshah/precinct-staffing-go/pkg/pipeline"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	root       string
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "precincts",
		Short:         "Build election-day precinct staffing grids from volunteer signups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.root, "root", "", "project directory (default from config, then \".\")")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default config.yaml or $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newProcessCmd(g),
		newValidateCmd(g),
		newReportCmd(g),
		newAliasCmd(g),
		newResolveCmd(g),
		newHistoryCmd(g),
	)
	return root
}

// env is what a subcommand needs to run
type env struct {
	cfg config.Config
	log *zap.Logger
	p   *pipeline.Pipeline
}

// setup loads configuration, applies the global flags and opens the project.
// adjust, when set, edits the config before the pipeline is built.
func setup(g *globalFlags, adjust func(*config.Config)) (*env, error) {
	config.LoadDotEnv()
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if g.root != "" {
		cfg.ProjectRoot = g.root
	}
	if g.verbose {
		cfg.Verbose = true
	}
	if adjust != nil {
		adjust(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	log, err := logging.New(logging.Options{Verbose: cfg.Verbose, Format: "console", File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	st, err := store.InitStore(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, p: pipeline.New(st, pipeline.OptionsFrom(cfg), log)}, nil
}
