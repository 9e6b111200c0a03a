package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/idcode"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Identify the FPGA on the attached board",
	Long: `Scan the JTAG chain of the board with openFPGALoader and decode the
IDCODEs found. Fails when no device matches the part the board declares,
which usually means the wrong board or revision is selected.

Examples:
  otf detect
  otf detect --revision v1`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), 20*time.Second)
	defer cancel()

	board, err := openBoard("")
	if err != nil {
		return err
	}
	det, ok := board.(boards.Detector)
	if !ok {
		return fmt.Errorf("board %s cannot scan its JTAG chain", cfg.Board)
	}

	var raw bytes.Buffer
	c := det.DetectCommand()
	c.Stdout = &raw
	c.Stderr = &raw
	log.V(1).Info("scanning JTAG chain", "command", c.String())
	if err := runner.Run(ctx, c); err != nil {
		return fmt.Errorf("detect: %w\n%s", err, raw.String())
	}

	ids := idcode.Scan(raw.String())
	if len(ids) == 0 {
		return fmt.Errorf("no JTAG devices found")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d device(s):\n", len(ids))
	matched := false
	for i, rawID := range ids {
		d, known := idcode.Lookup(rawID)
		name := d.Name
		if known {
			name = fmt.Sprintf("%s (%s, rev %d)", d.Name, d.Family, d.IDCode.Version)
			matched = matched || strings.HasPrefix(board.Part(), d.Name)
		}
		fmt.Fprintf(out, "  [%d] %s  %s  %s\n", i, d.IDCode, d.Manufacturer.Name, name)
	}
	if !matched {
		return fmt.Errorf("no device matches %s", board.Part())
	}
	return nil
}
