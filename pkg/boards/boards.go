// Package boards is the registry of supported boards.
package boards

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards/neso"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/vivado"
)

// Options are the board-independent settings a board constructor honors.
type Options struct {
	Revision     string
	Step         vivado.Step
	ProgramFlash bool
	Runner       build.Runner
	Logger       logr.Logger
}

// Board is a platform as returned by the registry.
type Board interface {
	build.Platform
	Part() string
	Resources() []*build.Resource
	Connectors() []*build.Connector
	Describe(name string, number int) (*build.Port, error)
	PinMap() (map[string][]build.PinOwner, error)
}

// OverrideDefaults is implemented by boards that inject toolchain overrides
// of their own.
type OverrideDefaults interface {
	DefaultOverrides(name string) build.Overrides
}

// Detector is implemented by boards that can list their JTAG chain.
type Detector interface {
	DetectCommand() build.Command
}

// Info describes a registered board.
type Info struct {
	Name        string
	Description string
	New         func(Options) (Board, error)
}

var registry = map[string]Info{
	"neso": {
		Name:        "neso",
		Description: "Numato Lab Neso (Artix-7 XC7A100T-2CSG324)",
		New:         newNeso,
	},
}

func newNeso(o Options) (Board, error) {
	rev, err := neso.ParseRevision(o.Revision)
	if err != nil {
		return nil, err
	}
	opts := []neso.Option{
		neso.WithRevision(rev),
		neso.WithProgramFlash(o.ProgramFlash),
	}
	if o.Runner != nil {
		opts = append(opts, neso.WithRunner(o.Runner))
	}
	if o.Logger.GetSink() != nil {
		opts = append(opts, neso.WithLogger(o.Logger))
	}
	p, err := neso.New(opts...)
	if err != nil {
		return nil, err
	}
	if o.Step != "" {
		p.Step = o.Step
	}
	return p, nil
}

// Lookup returns a registered board.
func Lookup(name string) (Info, error) {
	info, ok := registry[name]
	if !ok {
		return Info{}, fmt.Errorf("boards: unknown board %q (available: %v)", name, Names())
	}
	return info, nil
}

// New creates a board by name.
func New(name string, opts Options) (Board, error) {
	info, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return info.New(opts)
}

// Names lists the registered boards.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
