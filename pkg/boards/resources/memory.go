// Package resources contains generators for resource groups that many boards
// share.
package resources

import "github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"

// SPIFlash lists the pins of a SPI NOR flash chip. WPn and HoldN are
// optional; without both of them no quad view is generated.
type SPIFlash struct {
	CSn   string
	Clk   string
	COPI  string
	CIPO  string
	WPn   string
	HoldN string
	Conn  *build.ConnectorRef
	Attrs build.Attrs
}

// SPIFlashResources declares the flash as a family of alternative views:
// spi_flash_1x (separate data lines), spi_flash_2x (dual IO) and, when
// write-protect and hold are wired, spi_flash_4x (quad IO).
func SPIFlashResources(number int, f SPIFlash) []*build.Resource {
	var opts []build.PinsOption
	if f.Conn != nil {
		opts = append(opts, build.WithConn(f.Conn.Name, f.Conn.Number))
	}
	with := func(extra ...build.PinsOption) []build.PinsOption {
		return append(append([]build.PinsOption(nil), opts...), extra...)
	}

	var common []build.Element
	if f.Attrs != nil {
		common = append(common, f.Attrs)
	}
	common = append(common,
		build.NewSubsignal("cs", build.NewPinsN(f.CSn, build.DirOutput, with()...)),
		build.NewSubsignal("clk", build.NewPins(f.Clk, build.DirOutput, with(build.WithAssertWidth(1))...)),
	)
	quad := f.WPn != "" && f.HoldN != ""

	io1x := append([]build.Element(nil), common...)
	io1x = append(io1x,
		build.NewSubsignal("copi", build.NewPins(f.COPI, build.DirOutput, with(build.WithAssertWidth(1))...)),
		build.NewSubsignal("cipo", build.NewPins(f.CIPO, build.DirInput, with(build.WithAssertWidth(1))...)),
	)
	if quad {
		io1x = append(io1x,
			build.NewSubsignal("wp", build.NewPinsN(f.WPn, build.DirOutput, with(build.WithAssertWidth(1))...)),
			build.NewSubsignal("hold", build.NewPinsN(f.HoldN, build.DirOutput, with(build.WithAssertWidth(1))...)),
		)
	}

	io2x := append([]build.Element(nil), common...)
	io2x = append(io2x,
		build.NewSubsignal("dq", build.NewPins(f.COPI+" "+f.CIPO, build.DirInOut, with(build.WithAssertWidth(2))...)),
	)

	out := []*build.Resource{
		build.ResourceFamily(number, "spi_flash", "1x", io1x...),
		build.ResourceFamily(number, "spi_flash", "2x", io2x...),
	}
	if quad {
		io4x := append([]build.Element(nil), common...)
		io4x = append(io4x,
			build.NewSubsignal("dq", build.NewPins(
				f.COPI+" "+f.CIPO+" "+f.WPn+" "+f.HoldN, build.DirInOut, with(build.WithAssertWidth(4))...)),
		)
		out = append(out, build.ResourceFamily(number, "spi_flash", "4x", io4x...))
	}
	return out
}
