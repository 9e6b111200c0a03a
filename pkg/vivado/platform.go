// Package vivado implements the Xilinx Vivado toolchain for 7-series parts:
// it renders the Verilog top, the XDC constraints, the TCL flow script and
// the shell script that runs Vivado in batch mode.
package vivado

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

var _ build.Platform = (*Platform)(nil)

// Config describes a board built with Vivado.
type Config struct {
	Device     string // e.g. "xc7a100t"
	Package    string // e.g. "csg324"
	Speed      string // e.g. "2"
	DefaultClk string
	DefaultRst string
	Resources  []*build.Resource
	Connectors []*build.Connector
	Logger     logr.Logger
}

// Platform is a Vivado-built board. Boards embed it and may shadow
// ToolchainPrepare to inject their own overrides.
type Platform struct {
	*build.ResourceManager

	Device     string
	Package    string
	Speed      string
	DefaultClk string
	DefaultRst string
	// Step is the last flow step the generated script runs.
	Step Step

	log logr.Logger
}

// New validates the resource tables and creates a platform.
func New(cfg Config) (*Platform, error) {
	if cfg.Device == "" || cfg.Package == "" || cfg.Speed == "" {
		return nil, fmt.Errorf("vivado: device, package and speed are required")
	}
	if !strings.HasPrefix(strings.ToLower(cfg.Device), "xc7") {
		return nil, fmt.Errorf("vivado: unsupported device family %q", cfg.Device)
	}
	rm, err := build.NewResourceManager(cfg.Resources, cfg.Connectors)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Platform{
		ResourceManager: rm,
		Device:          cfg.Device,
		Package:         cfg.Package,
		Speed:           cfg.Speed,
		DefaultClk:      cfg.DefaultClk,
		DefaultRst:      cfg.DefaultRst,
		Step:            StepBitstream,
		log:             log,
	}, nil
}

// Part returns the full part name passed to Vivado, e.g. "xc7a100tcsg324-2".
func (p *Platform) Part() string {
	return fmt.Sprintf("%s%s-%s", p.Device, p.Package, p.Speed)
}

// DefaultClock implements build.Platform.
func (p *Platform) DefaultClock() string { return p.DefaultClk }

// DefaultReset implements build.Platform.
func (p *Platform) DefaultReset() string { return p.DefaultRst }

// Logger returns the platform logger.
func (p *Platform) Logger() logr.Logger { return p.log }

// ToolchainOutputs lists the files the last flow step leaves behind.
func (p *Platform) ToolchainOutputs(name string) []string {
	switch p.Step {
	case StepSynthesis:
		return []string{name + "_synth.dcp"}
	case StepPlacement:
		return []string{name + "_place.dcp"}
	case StepRouting:
		return []string{name + "_route.dcp"}
	default:
		return []string{name + ".bit"}
	}
}

// ToolchainPrepare renders the build plan for a prepared fragment.
func (p *Platform) ToolchainPrepare(frag *build.Fragment, name string, overrides build.Overrides) (*build.Plan, error) {
	steps, err := StepsTo(p.Step)
	if err != nil {
		return nil, err
	}
	data := templateData{
		Name:          name,
		Part:          p.Part(),
		Autogenerated: autogenerated,
		Constraints:   p.PortConstraints(),
		steps:         make(map[Step]bool, len(steps)),
	}
	for _, s := range steps {
		data.steps[s] = true
	}
	for _, c := range p.ClockConstraints() {
		data.Clocks = append(data.Clocks, clockData{Port: c.Port, Period: formatPeriod(c.Frequency)})
	}

	p.log.V(1).Info("preparing vivado plan", "name", name, "part", p.Part(), "step", p.Step,
		"ports", len(frag.Ports), "overrides", overrides.Keys())

	plan := build.NewPlan("build_" + name)
	if err := plan.Add(name+".v", []byte(frag.Verilog(name))); err != nil {
		return nil, err
	}
	files := []struct {
		filename string
		text     string
	}{
		{name + ".xdc", xdcTemplate},
		{name + ".tcl", tclTemplate},
		{plan.ScriptFile(), scriptTemplate},
	}
	for _, f := range files {
		content, err := render(f.filename, f.text, overrides, data)
		if err != nil {
			return nil, err
		}
		if err := plan.Add(f.filename, content); err != nil {
			return nil, err
		}
	}
	return plan, nil
}
