package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

var (
	resourcesJSON bool
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resources and connectors of a board",
	Long: `Print every resource of the board with its subsignals, pins, direction and
IO attributes, followed by the connectors.

Examples:
  otf resources
  otf resources --board neso --json`,
	Args: cobra.NoArgs,
	RunE: runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)

	resourcesCmd.Flags().BoolVar(&resourcesJSON, "json", false, "print JSON")
}

type signalJSON struct {
	Path   string            `json:"path,omitempty"`
	Dir    build.Dir         `json:"dir"`
	Invert bool              `json:"invert,omitempty"`
	Pins   []string          `json:"pins"`
	PinsN  []string          `json:"pins_n,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Clock  float64           `json:"clock_hz,omitempty"`
}

type resourceJSON struct {
	Name    string       `json:"name"`
	Number  int          `json:"number"`
	Family  string       `json:"family,omitempty"`
	Signals []signalJSON `json:"signals"`
}

type connectorJSON struct {
	Name   string            `json:"name"`
	Number int               `json:"number"`
	Pins   map[string]string `json:"pins"`
}

type boardJSON struct {
	Board      string          `json:"board"`
	Part       string          `json:"part"`
	Resources  []resourceJSON  `json:"resources"`
	Connectors []connectorJSON `json:"connectors"`
}

func runResources(cmd *cobra.Command, args []string) error {
	board, err := openBoard("")
	if err != nil {
		return err
	}
	doc := boardJSON{Board: cfg.Board, Part: board.Part()}
	for _, r := range board.Resources() {
		port, err := board.Describe(r.Name, r.Number)
		if err != nil {
			return err
		}
		rj := resourceJSON{Name: r.Name, Number: r.Number, Family: r.Family}
		for _, sig := range port.Signals {
			sj := signalJSON{
				Path:   strings.Join(sig.Path, "."),
				Dir:    sig.Dir,
				Invert: sig.Invert,
				Pins:   sig.Pins,
				PinsN:  sig.PinsN,
				Attrs:  sig.Attrs,
			}
			if sig.Clock != nil {
				sj.Clock = sig.Clock.Frequency
			}
			rj.Signals = append(rj.Signals, sj)
		}
		doc.Resources = append(doc.Resources, rj)
	}
	for _, c := range board.Connectors() {
		pins, err := build.ConnectorPins(c)
		if err != nil {
			return err
		}
		doc.Connectors = append(doc.Connectors, connectorJSON{Name: c.Name, Number: c.Number, Pins: pins})
	}

	out := cmd.OutOrStdout()
	if resourcesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Fprintf(out, "%s (%s)\n\nResources:\n", doc.Board, doc.Part)
	for _, r := range doc.Resources {
		fmt.Fprintf(out, "  %s#%d\n", r.Name, r.Number)
		for _, sig := range r.Signals {
			label := sig.Path
			if label == "" {
				label = "-"
			}
			pins := strings.Join(sig.Pins, " ")
			if len(sig.PinsN) > 0 {
				pins = "P: " + pins + "  N: " + strings.Join(sig.PinsN, " ")
			}
			inv := ""
			if sig.Invert {
				inv = " (inverted)"
			}
			fmt.Fprintf(out, "    %-8s %-3s %s%s%s\n", label, sig.Dir, pins, inv, formatAttrs(sig.Attrs))
		}
	}
	fmt.Fprintln(out, "\nConnectors:")
	for _, c := range doc.Connectors {
		fmt.Fprintf(out, "  %s_%d (%d pins)\n", c.Name, c.Number, len(c.Pins))
		keys := make([]string, 0, len(c.Pins))
		for k := range c.Pins {
			keys = append(keys, k)
		}
		build.SortConnectorKeys(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "    %-6s %s\n", k, c.Pins[k])
		}
	}
	return nil
}

func formatAttrs(attrs build.Attrs) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(attrs))
	for _, k := range attrs.Keys() {
		parts = append(parts, k+"="+attrs[k])
	}
	return "  [" + strings.Join(parts, " ") + "]"
}
