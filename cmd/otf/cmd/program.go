package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

var (
	programName  string
	programDir   string
	programFlash bool
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Program the board with an existing build",
	Long: `Load a bitstream from the build directory into the FPGA, or write the
flash image with --flash. Uses openFPGALoader; set OPENFPGALOADER to pick
another binary.

Examples:
  otf program
  otf program --revision v1 --flash`,
	Args: cobra.NoArgs,
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(programCmd)

	programCmd.Flags().StringVarP(&programName, "name", "n", "", "top-level name (default from project file)")
	programCmd.Flags().StringVarP(&programDir, "build-dir", "o", "", "build directory (default from project file)")
	programCmd.Flags().BoolVar(&programFlash, "flash", false, "write the configuration flash")
}

func runProgram(cmd *cobra.Command, args []string) error {
	name := pick(programName, cfg.Name)
	dir := pick(programDir, cfg.BuildDir)
	if cmd.Flags().Changed("flash") {
		cfg.Flash = programFlash
	}

	board, err := openBoard("")
	if err != nil {
		return err
	}
	prog, ok := board.(build.Programmer)
	if !ok {
		return build.ErrProgramNotSupported
	}
	products := &build.LocalProducts{Root: dir}
	image := name + ".bit"
	if cfg.Flash {
		image = name + ".bin"
	}
	if _, err := os.Stat(products.Path(image)); err != nil {
		return fmt.Errorf("no %s in %s, run build first: %w", image, dir, err)
	}
	if err := prog.ToolchainProgram(commandContext(cmd), products, name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Programmed %s\n", products.Path(image))
	return nil
}
