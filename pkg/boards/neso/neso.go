// Package neso describes the Numato Lab Neso Artix-7 FPGA development board.
//
// Board features:
//   - FPGA: XC7A100T-2CSG324I
//   - DDR3: 2 Gb MT41J128M16JT-125:K, 400 MHz, 16 bit data
//   - Flash: 128 Mb quad SPI (N25Q128A13ESE40E or N25Q128A13EF840E)
//   - Clock: 100 MHz CMOS oscillator
//   - USB: FT2232H. On revision 1 channel A drives SPI flash and JTAG and
//     channel B is free for applications; revision 2 swaps the channels.
//   - Single power rail, FPGA configured from JTAG or USB
//   - 140 user IOs on headers P4 and P5, 8 on the FT2232H
//
// Documentation: https://numato.com/docs/neso-artix-7-fpga-development-board/
package neso

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards/resources"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/vivado"
)

const (
	Device       = "xc7a100t"
	Package      = "csg324"
	Speed        = "2"
	DefaultClock = "clk100"
	DefaultReset = "rst"

	// FT2232H identifiers as programmed by Numato.
	USBVendorID  = 0x2a19
	USBProductID = 0x1005

	// Quad SPI flash size in MiB, as passed to write_cfgmem.
	FlashSizeMiB = 16
)

// Resources returns the fixed-function resources of the board.
func Resources() []*build.Resource {
	lvcmos33 := build.Attrs{"IOSTANDARD": "LVCMOS33"}
	diffSSTL15 := build.Attrs{"IOSTANDARD": "DIFF_SSTL15", "IN_TERM": "UNTUNED_SPLIT_50"}

	out := []*build.Resource{
		// On-board oscillator
		build.NewResource("clk100", 0,
			build.NewPins("F4", build.DirInput),
			build.NewClock(100e6), lvcmos33),

		build.NewResource("ddr3", 0,
			build.NewSubsignal("rst", build.NewPinsN("U8", build.DirOutput)),
			build.NewSubsignal("clk", build.NewDiffPairs("L6", "L5", build.DirOutput), diffSSTL15),
			build.NewSubsignal("clk_en", build.NewPins("M1", build.DirOutput)),
			build.NewSubsignal("cs", build.NewPinsN("K6", build.DirOutput)),
			build.NewSubsignal("we", build.NewPinsN("N2", build.DirOutput)),
			build.NewSubsignal("ras", build.NewPinsN("N4", build.DirOutput)),
			build.NewSubsignal("cas", build.NewPinsN("L1", build.DirOutput)),
			build.NewSubsignal("a", build.NewPins("M4 P4 M6 T1 L3 P5 M2 N1 L4 N5 R2 K5 N6 K3", build.DirOutput)),
			build.NewSubsignal("ba", build.NewPins("P2 P3 R1", build.DirOutput)),
			build.NewSubsignal("dqs", build.NewDiffPairs("U9 U2", "V9 V2", build.DirInOut), diffSSTL15),
			build.NewSubsignal("dq",
				build.NewPins("R7 V6 R8 U7 V7 R6 U6 R5 T5 U3 V5 U4 V4 T4 V1 T3", build.DirInOut),
				build.Attrs{"IN_TERM": "UNTUNED_SPLIT_50"}),
			build.NewSubsignal("dm", build.NewPins("T6 U1", build.DirOutput)),
			build.NewSubsignal("odt", build.NewPins("M3", build.DirOutput)),
			build.Attrs{"IOSTANDARD": "SSTL15", "SLEW": "FAST"},
		),
	}

	// IO[0..3] = K17 K18 L14 M14
	out = append(out, resources.SPIFlashResources(0, resources.SPIFlash{
		CSn:   "L13",
		Clk:   "E9",
		COPI:  "K17",
		CIPO:  "K18",
		WPn:   "L14",
		HoldN: "M14",
		Attrs: lvcmos33,
	})...)
	return out
}

// Connectors returns the pin headers and the FT2232H application interface.
// All of them are LVCMOS33 banks.
func Connectors() []*build.Connector {
	return []*build.Connector{
		build.NewConnector("p", 4, `
			A14 A13 D13 D12  A11 B11 F14 F13  B14 B13 A16 A15   A9 A10 B12 C12
			 A8  B8 C10 C11   B9  C9  B6  B7   C5  C6  A5  A6   C7  D8  D7  E7
			 D4  D5  D3  E3   A3  A4  B2  B3   C1  C2  A1  B1   G1  H1  E1  F1
			 D2  E2  K1  K2   J2  J3  B4  C4   E5  E6  G2  H2   F3  F5  G3  G4
			 H5  H6  H4  J4   F6  G6
		`),
		build.NewConnector("p", 5, `
			B16 B17 D14 C14  C16 C17 H14 G14   T8  J5 E15 E16  E17 D17 F15 F16
			J14 H15 H17 G17  H16 G16 K13 J13  L15 L16 L18 M18  R12 R13 K15 J15
			M16 M17 R18 T18  P15 R15 N15 N16  N14 P14 P17 R17  N17 P18 U16 V17
			U17 U18 U14 V14  V15 V16 T14 T15  R16 T16  T9 T10  T13 U13 T11 U11
			R10 R11 V10 V11  U12 V12
		`),
		build.NewConnectorMap("ftdi", 0, map[string]string{
			"d0":   "A18",
			"d1":   "B18",
			"d2":   "D18",
			"d3":   "E18",
			"d4":   "F18",
			"d5":   "G18",
			"d6":   "J17",
			"d7":   "J18",
			"txe":  "K16",
			"rxf":  "G13",
			"wr_n": "M13",
			"rd_n": "D9",
			// Numato lists SIWU# on the same ball as D7.
			"siwub": "J18",
		}),
	}
}

// Revision selects the board revision, which decides the FT2232H channel
// wired to JTAG.
type Revision int

const (
	RevisionV1 Revision = 1
	RevisionV2 Revision = 2
)

// ParseRevision accepts "1", "v1", "2", "v2" in either case. An empty
// string selects the default revision.
func ParseRevision(s string) (Revision, error) {
	switch strings.ToLower(s) {
	case "1", "v1":
		return RevisionV1, nil
	case "2", "v2", "":
		return RevisionV2, nil
	}
	return 0, fmt.Errorf("neso: unknown board revision %q", s)
}

func (r Revision) String() string {
	return fmt.Sprintf("v%d", int(r))
}

// FTDIChannel returns the FT2232H channel (0 = A, 1 = B) used for JTAG.
func (r Revision) FTDIChannel() int {
	if r == RevisionV1 {
		return 0
	}
	return 1
}

// Platform is the Neso board built with Vivado.
type Platform struct {
	*vivado.Platform

	Revision Revision
	// ProgramFlash writes the quad SPI flash instead of loading SRAM.
	ProgramFlash bool

	runner build.Runner
	log    logr.Logger
}

var (
	_ build.Platform     = (*Platform)(nil)
	_ build.Programmer   = (*Platform)(nil)
	_ build.OutputLister = (*Platform)(nil)
)

// Option customizes a Platform.
type Option func(*Platform)

// WithRevision selects the board revision (default v2).
func WithRevision(r Revision) Option {
	return func(p *Platform) { p.Revision = r }
}

// WithProgramFlash makes programming write the configuration flash.
func WithProgramFlash(flash bool) Option {
	return func(p *Platform) { p.ProgramFlash = flash }
}

// WithRunner sets the runner used for the programmer.
func WithRunner(r build.Runner) Option {
	return func(p *Platform) { p.runner = r }
}

// WithLogger sets the logger of the platform and its toolchain.
func WithLogger(log logr.Logger) Option {
	return func(p *Platform) { p.log = log }
}

// New creates a Neso platform.
func New(opts ...Option) (*Platform, error) {
	p := &Platform{
		Revision: RevisionV2,
		runner:   build.ExecRunner{},
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.Revision != RevisionV1 && p.Revision != RevisionV2 {
		return nil, fmt.Errorf("neso: unknown board revision %d", p.Revision)
	}
	vp, err := vivado.New(vivado.Config{
		Device:     Device,
		Package:    Package,
		Speed:      Speed,
		DefaultClk: DefaultClock,
		DefaultRst: DefaultReset,
		Resources:  Resources(),
		Connectors: Connectors(),
		Logger:     p.log,
	})
	if err != nil {
		return nil, fmt.Errorf("neso: %w", err)
	}
	p.Platform = vp
	return p, nil
}

// ToolchainOverrides returns the fixed Vivado overrides the board needs: a
// quad SPI configuration bus, a raw flash image written after the bitstream,
// and the configuration bank voltage of the single 3.3 V rail.
func ToolchainOverrides(name string) build.Overrides {
	return build.Overrides{
		"script_before_bitstream": "set_property BITSTREAM.CONFIG.SPI_BUSWIDTH 4 [current_design]",
		"script_after_bitstream": fmt.Sprintf(
			`write_cfgmem -force -format bin -interface spix4 -size %d -loadbit "up 0x0 %s.bit" -file %s.bin`,
			FlashSizeMiB, name, name),
		"add_constraints": "set_property CFGBVS VCCO [current_design]\n" +
			"set_property CONFIG_VOLTAGE 3.3 [current_design]",
	}
}

// DefaultOverrides implements the override listing of the board registry.
func (p *Platform) DefaultOverrides(name string) build.Overrides {
	return ToolchainOverrides(name)
}

// ToolchainPrepare merges the board overrides with the caller's and renders
// the Vivado plan. Supplying one of the board's keys is a conflict.
func (p *Platform) ToolchainPrepare(frag *build.Fragment, name string, overrides build.Overrides) (*build.Plan, error) {
	merged, err := build.MergeOverrides(ToolchainOverrides(name), overrides)
	if err != nil {
		return nil, fmt.Errorf("neso: %w", err)
	}
	return p.Platform.ToolchainPrepare(frag, name, merged)
}

// ToolchainOutputs adds the flash image to the Vivado outputs.
func (p *Platform) ToolchainOutputs(name string) []string {
	outputs := p.Platform.ToolchainOutputs(name)
	if p.Step == vivado.StepBitstream {
		outputs = append(outputs, name+".bin")
	}
	return outputs
}

func (p *Platform) cableArgs() []string {
	return []string{
		"--cable", "ft2232",
		"--vid", fmt.Sprintf("0x%04x", USBVendorID),
		"--pid", fmt.Sprintf("0x%04x", USBProductID),
		"--ftdi-channel", fmt.Sprint(p.Revision.FTDIChannel()),
	}
}

// DetectCommand returns the openFPGALoader invocation that lists the JTAG
// chain of the board.
func (p *Platform) DetectCommand() build.Command {
	args := append(p.cableArgs(), "--detect")
	return build.Command{Name: build.ToolPath("openFPGALoader"), Args: args}
}

// ProgramCommand returns the openFPGALoader invocation for a built design.
func (p *Platform) ProgramCommand(products build.Products, name string) build.Command {
	args := append(p.cableArgs(), "--fpga-part", Device+Package)
	image := products.Path(name + ".bit")
	if p.ProgramFlash {
		args = append(args, "--write-flash")
		image = products.Path(name + ".bin")
	}
	args = append(args, image)
	return build.Command{Name: build.ToolPath("openFPGALoader"), Args: args}
}

// ToolchainProgram loads the bitstream into SRAM, or writes the flash image
// when ProgramFlash is set.
func (p *Platform) ToolchainProgram(ctx context.Context, products build.Products, name string) error {
	if p.Step != vivado.StepBitstream {
		return fmt.Errorf("neso: cannot program after the %s step", p.Step)
	}
	cmd := p.ProgramCommand(products, name)
	p.log.Info("programming board", "revision", p.Revision, "flash", p.ProgramFlash, "command", cmd.String())
	if err := p.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("neso: program: %w", err)
	}
	return nil
}
