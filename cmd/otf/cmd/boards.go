package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/hdl"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List supported boards and built-in designs",
	Args:  cobra.NoArgs,
	RunE:  runBoards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Boards:")
	for _, name := range boards.Names() {
		info, err := boards.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-10s %s\n", info.Name, info.Description)
	}
	fmt.Fprintln(out, "Designs:")
	for _, name := range hdl.Names() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
