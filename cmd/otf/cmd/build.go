package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/hdl"
)

var (
	buildDesign   string
	buildName     string
	buildDir      string
	buildStep     string
	buildProgram  bool
	buildFlash    bool
	buildPlanOnly bool
	buildForce    bool
	buildArchive  string
	buildSet      []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a design with Vivado",
	Long: `Elaborate a built-in design for the board, write the Vivado project
(Verilog, XDC, TCL and build script) and run it. The run is skipped when the
build directory already holds the outputs of an identical plan.

Examples:
  otf build --design blinky
  otf build --design blinky --program --flash
  otf build --plan-only --archive top.zip
  otf build --step synthesis --set script_after_synth='report_utilization'`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildDesign, "design", "d", "", "built-in design (default from project file)")
	buildCmd.Flags().StringVarP(&buildName, "name", "n", "", "top-level name (default from project file)")
	buildCmd.Flags().StringVarP(&buildDir, "build-dir", "o", "", "build directory (default from project file)")
	buildCmd.Flags().StringVar(&buildStep, "step", "", "last flow step: synthesis, placement, routing, bitstream")
	buildCmd.Flags().BoolVarP(&buildProgram, "program", "p", false, "program the board after building")
	buildCmd.Flags().BoolVar(&buildFlash, "flash", false, "write the configuration flash when programming")
	buildCmd.Flags().BoolVar(&buildPlanOnly, "plan-only", false, "only write the build files")
	buildCmd.Flags().BoolVarP(&buildForce, "force", "f", false, "run the toolchain even if outputs are current")
	buildCmd.Flags().StringVar(&buildArchive, "archive", "", "also write the build files to a zip archive")
	buildCmd.Flags().StringArrayVar(&buildSet, "set", nil, "override as key=value (repeatable)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	designName := pick(buildDesign, cfg.Design)
	name := pick(buildName, cfg.Name)
	dir := pick(buildDir, cfg.BuildDir)
	step := pick(buildStep, cfg.Step)
	if cmd.Flags().Changed("flash") {
		cfg.Flash = buildFlash
	}
	program := cfg.Program || buildProgram

	design, err := hdl.Lookup(designName)
	if err != nil {
		return err
	}
	board, err := openBoard(step)
	if err != nil {
		return err
	}
	overrides, err := callerOverrides(buildSet)
	if err != nil {
		return err
	}

	result, err := build.Build(ctx, board, design, build.BuildOptions{
		Name:      name,
		Dir:       dir,
		Overrides: overrides,
		PlanOnly:  buildPlanOnly,
		Program:   program && !buildPlanOnly,
		Force:     buildForce,
		Runner:    runner,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if buildArchive != "" {
		if err := writeArchive(result.Plan, buildArchive); err != nil {
			return err
		}
		fmt.Fprintf(out, "Archive: %s\n", buildArchive)
	}
	fmt.Fprintf(out, "Design %s for %s (%s), plan %s\n", designName, cfg.Board, board.Part(), result.Plan.Digest())
	if result.Products == nil {
		fmt.Fprintf(out, "Build files written to %s; run %s there\n", dir, result.Plan.ScriptFile())
		return nil
	}
	fmt.Fprintf(out, "Outputs in %s\n", dir)
	if program && !buildPlanOnly {
		fmt.Fprintln(out, "Board programmed")
	}
	return nil
}

func writeArchive(plan *build.Plan, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := plan.Archive(f); err != nil {
		f.Close()
		return fmt.Errorf("archive: %w", err)
	}
	return f.Close()
}

func pick(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
