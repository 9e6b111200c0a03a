package resources

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

func TestSPIFlashResources(t *testing.T) {
	quad := SPIFlashResources(0, SPIFlash{
		CSn: "L13", Clk: "E9", COPI: "K17", CIPO: "K18", WPn: "L14", HoldN: "M14",
		Attrs: build.Attrs{"IOSTANDARD": "LVCMOS33"},
	})
	if len(quad) != 3 {
		t.Fatalf("Expected 1x, 2x and 4x views, got %d", len(quad))
	}
	var names []string
	for _, r := range quad {
		names = append(names, r.Name)
		if r.Family != "spi_flash" {
			t.Errorf("%s: family %q", r.Name, r.Family)
		}
	}
	if got := strings.Join(names, " "); got != "spi_flash_1x spi_flash_2x spi_flash_4x" {
		t.Errorf("Views = %s", got)
	}

	rm, err := build.NewResourceManager(quad, nil)
	if err != nil {
		t.Fatalf("Views do not validate: %v", err)
	}
	tests := []struct {
		view string
		path string
		pins string
	}{
		{"spi_flash_1x", "copi", "K17"},
		{"spi_flash_1x", "hold", "M14"},
		{"spi_flash_2x", "dq", "K17 K18"},
		{"spi_flash_4x", "dq", "K17 K18 L14 M14"},
		{"spi_flash_4x", "clk", "E9"},
	}
	for _, tt := range tests {
		port, err := rm.Describe(tt.view, 0)
		if err != nil {
			t.Fatalf("Describe(%s) error: %v", tt.view, err)
		}
		sig := port.Signal(tt.path)
		if sig == nil {
			t.Errorf("%s has no %s", tt.view, tt.path)
			continue
		}
		if got := strings.Join(sig.Pins, " "); got != tt.pins {
			t.Errorf("%s.%s = %s, want %s", tt.view, tt.path, got, tt.pins)
		}
	}
}

func TestSPIFlashResourcesSingle(t *testing.T) {
	views := SPIFlashResources(1, SPIFlash{CSn: "1", Clk: "2", COPI: "3", CIPO: "4", Conn: &build.ConnectorRef{Name: "pmod", Number: 0}})
	if len(views) != 2 {
		t.Fatalf("Without WP#/HOLD# only 1x and 2x are declared, got %d", len(views))
	}
	rm, err := build.NewResourceManager(views, []*build.Connector{build.NewConnector("pmod", 0, "A1 A2 A3 A4")})
	if err != nil {
		t.Fatal(err)
	}
	port, err := rm.Request("spi_flash_1x", 1)
	if err != nil {
		t.Fatal(err)
	}
	if sig := port.Signal("cipo"); sig == nil || sig.Pins[0] != "A4" || sig.Dir != build.DirInput {
		t.Errorf("cipo = %+v", sig)
	}
	if port.Signal("wp") != nil {
		t.Error("Single flash should have no wp subsignal")
	}
}
