package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/probe"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached FPGA boards",
	Long: `Scan USB for known boards and FTDI bridges. Use this to check that a board
is connected and visible before programming it.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
	defer cancel()

	infos, err := probe.DiscoverDevices(ctx)
	if err != nil {
		return fmt.Errorf("discover devices: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No devices found.")
		return nil
	}

	fmt.Fprintln(out, "Detected devices:")
	for _, d := range infos {
		board := ""
		if d.Board != "" {
			board = " board=" + d.Board
		}
		fmt.Fprintf(out, "  - %s [%s] (VID:PID %04X:%04X, bus %d addr %d)%s\n",
			d.Label(), d.Kind, d.VendorID, d.ProductID, d.Bus, d.Address, board)
	}
	return nil
}
