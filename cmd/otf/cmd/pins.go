package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	pinsDuplicates bool
)

var pinsCmd = &cobra.Command{
	Use:   "pins [pin...]",
	Short: "Show which resource or connector uses each package pin",
	Long: `Print the package pin map of a board. Each line lists a ball and every
resource signal or connector key that uses it.

Examples:
  otf pins
  otf pins F4 J18
  otf pins --duplicates`,
	RunE: runPins,
}

func init() {
	rootCmd.AddCommand(pinsCmd)

	pinsCmd.Flags().BoolVarP(&pinsDuplicates, "duplicates", "d", false,
		"only show pins with more than one user")
}

func runPins(cmd *cobra.Command, args []string) error {
	board, err := openBoard("")
	if err != nil {
		return err
	}
	pinMap, err := board.PinMap()
	if err != nil {
		return err
	}

	var pins []string
	if len(args) > 0 {
		for _, pin := range args {
			pin = strings.ToUpper(pin)
			if _, ok := pinMap[pin]; !ok {
				return fmt.Errorf("pin %s is not used by board %s", pin, cfg.Board)
			}
			pins = append(pins, pin)
		}
	} else {
		for pin := range pinMap {
			pins = append(pins, pin)
		}
		sort.Strings(pins)
	}

	out := cmd.OutOrStdout()
	for _, pin := range pins {
		owners := pinMap[pin]
		if pinsDuplicates && len(owners) < 2 {
			continue
		}
		names := make([]string, len(owners))
		for i, o := range owners {
			names[i] = o.String()
		}
		fmt.Fprintf(out, "%-5s %s\n", pin, strings.Join(names, ", "))
	}
	return nil
}
