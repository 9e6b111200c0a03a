// Package hdl contains small built-in designs used to smoke-test boards.
package hdl

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

// Blinky toggles every LED of the board at 1 Hz. Boards without LEDs still
// get the counter so the design exercises the clock input.
type Blinky struct{}

// requestAll requests name#0, name#1, ... until one does not exist.
func requestAll(p build.Platform, name string) ([]*build.Port, error) {
	var ports []*build.Port
	for number := 0; ; number++ {
		port, err := p.Request(name, number)
		if errors.Is(err, build.ErrResourceNotFound) {
			return ports, nil
		}
		if err != nil {
			return nil, err
		}
		ports = append(ports, port)
	}
}

// Elaborate implements build.Design.
func (Blinky) Elaborate(p build.Platform) (*build.Fragment, error) {
	freq, err := build.DefaultClockFrequency(p)
	if err != nil {
		return nil, fmt.Errorf("blinky: %w", err)
	}

	var leds []string
	ledPorts, err := requestAll(p, "led")
	if err != nil {
		return nil, err
	}
	for _, port := range ledPorts {
		if sig := port.Signal(); sig != nil {
			leds = append(leds, sig.O())
		}
	}
	rgbPorts, err := requestAll(p, "rgb_led")
	if err != nil {
		return nil, err
	}
	for _, port := range rgbPorts {
		if sig := port.Signal("r"); sig != nil {
			leds = append(leds, sig.O())
		}
	}

	half := uint64(freq) / 2
	if half == 0 {
		return nil, fmt.Errorf("blinky: clock frequency %g Hz is too low", freq)
	}
	width := bits.Len64(half - 1)
	if width == 0 {
		width = 1
	}
	flops := len(leds)
	if flops == 0 {
		flops = 1
	}

	frag := &build.Fragment{UsesSync: true}
	frag.Addf("reg [%d:0] timer = %d'd%d;", width-1, width, half-1)
	frag.Addf("reg [%d:0] flops = %d'd0;", flops-1, flops)
	frag.Add(
		"always @(posedge "+build.ClockNet+") begin",
		"    if ("+build.ResetNet+") begin",
		fmt.Sprintf("        timer <= %d'd%d;", width, half-1),
		fmt.Sprintf("        flops <= %d'd0;", flops),
		"    end else if (timer == 0) begin",
		fmt.Sprintf("        timer <= %d'd%d;", width, half-1),
		"        flops <= ~flops;",
		"    end else begin",
		"        timer <= timer - 1'b1;",
		"    end",
		"end",
	)
	for i, led := range leds {
		frag.Addf("assign %s = flops[%d];", led, i)
	}
	return frag, nil
}

var designs = map[string]build.Design{
	"blinky": Blinky{},
}

// Lookup returns a built-in design by name.
func Lookup(name string) (build.Design, error) {
	d, ok := designs[name]
	if !ok {
		return nil, fmt.Errorf("hdl: unknown design %q (available: %v)", name, Names())
	}
	return d, nil
}

// Names lists the built-in designs.
func Names() []string {
	names := make([]string, 0, len(designs))
	for name := range designs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
