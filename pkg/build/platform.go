package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

// Platform is what a design elaborates against and what turns the result
// into a toolchain plan. Boards implement it, usually by embedding a
// toolchain platform and shadowing ToolchainPrepare.
type Platform interface {
	Lookup(name string, number int) (*Resource, error)
	Request(name string, number int) (*Port, error)
	Ports() []*Port
	DefaultClock() string
	DefaultReset() string
	ToolchainPrepare(frag *Fragment, name string, overrides Overrides) (*Plan, error)
}

// Programmer is implemented by platforms that can load a built design onto
// hardware.
type Programmer interface {
	ToolchainProgram(ctx context.Context, products Products, name string) error
}

// OutputLister is implemented by platforms that know which files a
// successful toolchain run leaves behind.
type OutputLister interface {
	ToolchainOutputs(name string) []string
}

// Design produces a fragment for a platform.
type Design interface {
	Elaborate(p Platform) (*Fragment, error)
}

// DesignFunc adapts a function to Design.
type DesignFunc func(p Platform) (*Fragment, error)

// Elaborate implements Design.
func (f DesignFunc) Elaborate(p Platform) (*Fragment, error) { return f(p) }

// ClockFrequency returns the frequency of the clock attached to a resource.
func ClockFrequency(p Platform, name string, number int) (float64, error) {
	r, err := p.Lookup(name, number)
	if err != nil {
		return 0, err
	}
	port, err := walkResource(r, nil)
	if err != nil {
		return 0, err
	}
	for _, sig := range port.Signals {
		if sig.Clock != nil {
			return sig.Clock.Frequency, nil
		}
	}
	return 0, fmt.Errorf("%w: %s has no clock constraint", ErrInvalidResource, r.ID())
}

// DefaultClockFrequency returns the frequency of the platform's default
// clock.
func DefaultClockFrequency(p Platform) (float64, error) {
	if p.DefaultClock() == "" {
		return 0, fmt.Errorf("build: platform has no default clock")
	}
	return ClockFrequency(p, p.DefaultClock(), 0)
}

// Prepare elaborates a design and supplies its sync domain from the default
// clock and reset resources. A platform whose default reset resource does not
// exist gets a reset tied low.
func Prepare(p Platform, design Design, log logr.Logger) (*Fragment, error) {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	frag, err := design.Elaborate(p)
	if err != nil {
		return nil, fmt.Errorf("build: elaborate: %w", err)
	}
	if frag.UsesSync {
		if p.DefaultClock() == "" {
			return nil, fmt.Errorf("build: design uses the sync domain but the platform has no default clock")
		}
		clk, err := p.Request(p.DefaultClock(), 0)
		if err != nil {
			return nil, fmt.Errorf("build: default clock: %w", err)
		}
		sig := clk.Signal()
		if sig == nil || !hasInput(sig.Dir) {
			return nil, fmt.Errorf("%w: default clock %s must be a single input", ErrInvalidResource, clk.Name)
		}
		frag.ClockSource = sig.I()

		frag.ResetSource = "1'b0"
		if name := p.DefaultReset(); name != "" {
			rst, err := p.Request(name, 0)
			switch {
			case errors.Is(err, ErrResourceNotFound):
				log.Info("default reset resource not present, reset tied low", "resource", name)
			case err != nil:
				return nil, fmt.Errorf("build: default reset: %w", err)
			default:
				sig := rst.Signal()
				if sig == nil || !hasInput(sig.Dir) {
					return nil, fmt.Errorf("%w: default reset %s must be a single input", ErrInvalidResource, rst.Name)
				}
				frag.ResetSource = sig.I()
			}
		}
	}
	frag.Ports = p.Ports()
	return frag, nil
}

// BuildOptions controls Build.
type BuildOptions struct {
	Name      string // top-level name, "top" when empty
	Dir       string // build directory, "build" when empty
	Overrides Overrides
	// PlanOnly writes the plan without running the toolchain.
	PlanOnly bool
	Program  bool
	Force    bool
	Runner   Runner
	Logger   logr.Logger
}

// Result is what Build produced.
type Result struct {
	Plan     *Plan
	Products *LocalProducts // nil for PlanOnly
}

// Build prepares a design for a platform, runs the toolchain and optionally
// programs the device.
func Build(ctx context.Context, p Platform, design Design, opts BuildOptions) (*Result, error) {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	name := opts.Name
	if name == "" {
		name = "top"
	}
	dir := opts.Dir
	if dir == "" {
		dir = "build"
	}

	frag, err := Prepare(p, design, log)
	if err != nil {
		return nil, err
	}
	plan, err := p.ToolchainPrepare(frag, name, opts.Overrides)
	if err != nil {
		return nil, err
	}
	result := &Result{Plan: plan}

	if opts.PlanOnly {
		log.Info("writing build plan", "dir", dir, "files", len(plan.Files()))
		return result, plan.Extract(dir)
	}

	var outputs []string
	if ol, ok := p.(OutputLister); ok {
		outputs = ol.ToolchainOutputs(name)
	}
	products, err := plan.Execute(ctx, dir, ExecuteOptions{
		Runner:  opts.Runner,
		Logger:  log,
		Outputs: outputs,
		Force:   opts.Force,
	})
	if err != nil {
		return nil, err
	}
	result.Products = products

	if opts.Program {
		prog, ok := p.(Programmer)
		if !ok {
			return result, ErrProgramNotSupported
		}
		if err := prog.ToolchainProgram(ctx, products, name); err != nil {
			return result, fmt.Errorf("build: program: %w", err)
		}
	}
	return result, nil
}
