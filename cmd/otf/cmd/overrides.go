package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

var (
	overridesName string
	overridesSet  []string
)

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Show the toolchain overrides a build would use",
	Long: `Print the effective Vivado overrides: the ones the board injects merged
with the project file and --set values. Setting a key the board already
defines is an error. OTF_<key> environment variables take precedence.

Examples:
  otf overrides
  otf overrides --name blinky --set synth_design_opts=-flatten_hierarchy\ none`,
	Args: cobra.NoArgs,
	RunE: runOverrides,
}

func init() {
	rootCmd.AddCommand(overridesCmd)

	overridesCmd.Flags().StringVarP(&overridesName, "name", "n", "", "design name (default from project file)")
	overridesCmd.Flags().StringArrayVar(&overridesSet, "set", nil, "override as key=value (repeatable)")
}

// callerOverrides merges the project file overrides with --set values; the
// flags win.
func callerOverrides(set []string) (build.Overrides, error) {
	flags, err := build.ParseOverrides(set)
	if err != nil {
		return nil, err
	}
	merged := build.Overrides{}
	for k, v := range cfg.Overrides {
		merged[k] = v
	}
	for k, v := range flags {
		merged[k] = v
	}
	return merged, nil
}

func runOverrides(cmd *cobra.Command, args []string) error {
	name := overridesName
	if name == "" {
		name = cfg.Name
	}
	board, err := openBoard("")
	if err != nil {
		return err
	}
	caller, err := callerOverrides(overridesSet)
	if err != nil {
		return err
	}
	effective := caller
	if od, ok := board.(boards.OverrideDefaults); ok {
		effective, err = build.MergeOverrides(od.DefaultOverrides(name), caller)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, key := range effective.Keys() {
		value, _ := effective.Lookup(key)
		fmt.Fprintf(out, "%s:\n", key)
		for _, line := range splitLines(value) {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return []string{`""`}
	}
	return strings.Split(s, "\n")
}
