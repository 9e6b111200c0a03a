package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/OpenTraceLab/OpenTraceFPGA/internal/config"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/vivado"
)

var (
	// Global flags
	verbose    bool
	configPath string
	boardName  string
	revision   string

	cfg    config.Config
	log    logr.Logger = logr.Discard()
	runner build.Runner = build.ExecRunner{}
)

var rootCmd = &cobra.Command{
	Use:   "otf",
	Short: "FPGA board definitions and Vivado build driver",
	Long: `Describe FPGA boards, inspect their pin maps and build designs for them
with Xilinx Vivado. Project defaults are read from otf.cue when present.

Examples:
  otf boards                               # List supported boards
  otf pins --board neso --duplicates       # Show balls shared by two names
  otf build --design blinky --program      # Build and load into SRAM
  otf build --plan-only --build-dir out    # Only write the Vivado scripts`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "project file (default ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVarP(&boardName, "board", "b", "", "board name (overrides the project file)")
	rootCmd.PersistentFlags().StringVar(&revision, "revision", "", "board revision (overrides the project file)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if boardName != "" {
		cfg.Board = boardName
	}
	if revision != "" {
		cfg.Revision = revision
	}
	log, err = newLogger(verbose)
	return err
}

func newLogger(verbose bool) (logr.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = true
	zc.DisableCaller = true
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// openBoard creates the configured board. The step is the one the project
// file names unless a command flag changed it.
func openBoard(step string) (boards.Board, error) {
	opts := boards.Options{
		Revision:     cfg.Revision,
		ProgramFlash: cfg.Flash,
		Runner:       runner,
		Logger:       log,
	}
	if step != "" {
		s, err := vivado.ParseStep(step)
		if err != nil {
			return nil, err
		}
		opts.Step = s
	}
	return boards.New(cfg.Board, opts)
}
