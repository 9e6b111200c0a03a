package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

var doctorProbes = []build.ToolProbe{
	{Name: "vivado", Args: []string{"-version"}},
	{Name: "openFPGALoader", Args: []string{"--Version"}},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the external tools are installed",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), 30*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()
	missing := 0
	for _, st := range build.ProbeTools(ctx, runner, doctorProbes...) {
		if !st.Found() {
			missing++
			fmt.Fprintf(out, "  ✗ %-15s %v (set %s to override)\n", st.Name, st.Err, build.ToolEnvVar(st.Name))
			continue
		}
		fmt.Fprintf(out, "  ✓ %-15s %s  %s\n", st.Name, st.Path, st.Version)
	}
	if missing > 0 {
		return fmt.Errorf("%d tool(s) missing", missing)
	}
	return nil
}
