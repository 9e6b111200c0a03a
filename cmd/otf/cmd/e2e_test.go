package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

// fakeToolchain stands in for Vivado, openFPGALoader and the version probes.
type fakeToolchain struct {
	mu       sync.Mutex
	commands []build.Command
}

func (f *fakeToolchain) Run(ctx context.Context, c build.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, c)
	switch {
	case c.Name == "sh":
		for _, name := range []string{"top.bit", "top.bin"} {
			if err := os.WriteFile(filepath.Join(c.Dir, name), []byte("bits"), 0644); err != nil {
				return err
			}
		}
	case strings.HasSuffix(c.Name, "vivado"):
		fmt.Fprintln(c.Stdout, "Vivado v2023.2 (64-bit)")
	case len(c.Args) > 0 && c.Args[len(c.Args)-1] == "--detect":
		fmt.Fprintln(c.Stdout, "index 0:\n\tidcode 0x3631093\n\tmanufacturer xilinx")
	case len(c.Args) > 0 && c.Args[0] == "--Version":
		return errors.New("executable file not found in $PATH")
	}
	return nil
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, *fakeToolchain, error) {
	t.Helper()
	t.Setenv("VIVADO", "")
	t.Setenv("OPENFPGALOADER", "")

	fake := &fakeToolchain{}
	runner = fake
	t.Cleanup(func() { runner = build.ExecRunner{} })

	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), fake, err
}

func TestCommandsE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "boards",
			args:        []string{"boards"},
			wantContain: []string{"neso", "Artix-7", "blinky"},
		},
		{
			name:        "pin lookup",
			args:        []string{"pins", "f4", "M14"},
			wantContain: []string{"F4    clk100#0", "M14   spi_flash_1x#0.hold, spi_flash_4x#0.dq[3]"},
		},
		{
			name:        "duplicate pins",
			args:        []string{"pins", "--duplicates"},
			wantContain: []string{"J18   ftdi_0:d7, ftdi_0:siwub"},
		},
		{
			name:    "unused pin",
			args:    []string{"pins", "ZZ99"},
			wantErr: true,
		},
		{
			name: "resources",
			args: []string{"resources"},
			wantContain: []string{
				"neso (xc7a100tcsg324-2)",
				"clk100#0",
				"ddr3#0",
				"P: L6  N: L5",
				"p_4 (70 pins)",
				"ftdi_0 (13 pins)",
			},
		},
		{
			name:        "resources json",
			args:        []string{"resources", "--json"},
			wantContain: []string{`"part": "xc7a100tcsg324-2"`, `"clock_hz": 100000000`, `"siwub": "J18"`},
		},
		{
			name: "overrides",
			args: []string{"overrides", "--name", "blinky", "--set", "script_after_synth=report_utilization"},
			wantContain: []string{
				"set_property BITSTREAM.CONFIG.SPI_BUSWIDTH 4 [current_design]",
				`write_cfgmem -force -format bin -interface spix4 -size 16 -loadbit "up 0x0 blinky.bit" -file blinky.bin`,
				"set_property CONFIG_VOLTAGE 3.3 [current_design]",
				"report_utilization",
			},
		},
		{
			name:    "override conflict",
			args:    []string{"overrides", "--set", "add_constraints=set_property X Y"},
			wantErr: true,
		},
		{
			name:    "unknown board",
			args:    []string{"resources", "--board", "arty"},
			wantErr: true,
		},
		{
			name:    "unknown step",
			args:    []string{"build", "--plan-only", "--step", "synth"},
			wantErr: true,
		},
		{
			name:        "detect",
			args:        []string{"detect"},
			wantContain: []string{"Found 1 device(s)", "0x03631093  Xilinx  xc7a100t (Artix-7, rev 0)"},
		},
		{
			name:        "doctor",
			args:        []string{"doctor"},
			wantErr:     true,
			wantContain: []string{"vivado", "Vivado v2023.2", "openFPGALoader", "OPENFPGALOADER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _, err := execute(t, tt.args...)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error but got none\nOutput: %s", output)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestBuildPlanOnlyE2E(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "top.zip")
	output, fake, err := execute(t, "build", "--plan-only", "--build-dir", dir, "--archive", archive)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if len(fake.commands) != 0 {
		t.Errorf("Plan-only build ran %v", fake.commands)
	}
	for _, name := range []string{"top.v", "top.xdc", "top.tcl", "build_top.sh"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("Archive not written: %v", err)
	}
	if !strings.Contains(output, "Build files written to "+dir) {
		t.Errorf("Unexpected output:\n%s", output)
	}
}

func TestBuildAndProgramE2E(t *testing.T) {
	dir := t.TempDir()
	output, fake, err := execute(t, "build", "--build-dir", dir, "--program", "--flash", "--revision", "v1")
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if len(fake.commands) != 2 {
		t.Fatalf("Expected build and program commands, got %v", fake.commands)
	}
	prog := fake.commands[1].String()
	for _, want := range []string{"--ftdi-channel 0", "--write-flash", filepath.Join(dir, "top.bin")} {
		if !strings.Contains(prog, want) {
			t.Errorf("Programmer command missing %q: %s", want, prog)
		}
	}
	if !strings.Contains(output, "Board programmed") {
		t.Errorf("Unexpected output:\n%s", output)
	}

	// An unchanged second build skips Vivado but still programs.
	_, fake, err = execute(t, "build", "--build-dir", dir, "--program", "--flash", "--revision", "v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(fake.commands) != 1 || fake.commands[0].Name == "sh" {
		t.Errorf("Expected only the programmer to run, got %v", fake.commands)
	}

	output, fake, err = execute(t, "program", "--build-dir", dir)
	if err != nil {
		t.Fatalf("program: %v\nOutput: %s", err, output)
	}
	if len(fake.commands) != 1 || !strings.HasSuffix(fake.commands[0].String(), filepath.Join(dir, "top.bit")) {
		t.Errorf("Unexpected program command: %v", fake.commands)
	}
}

func TestProgramWithoutBuildE2E(t *testing.T) {
	_, fake, err := execute(t, "program", "--build-dir", t.TempDir())
	if err == nil {
		t.Error("Expected error when no bitstream exists")
	}
	if len(fake.commands) != 0 {
		t.Errorf("Programmer should not run: %v", fake.commands)
	}
}

func TestProgramExistingImageE2E(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "top.bit"), []byte("bit"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Only the SRAM bitstream exists, so flash programming has nothing to write.
	output, fake, err := execute(t, "program", "--build-dir", dir, "--flash")
	if err == nil || !strings.Contains(err.Error(), "no top.bin in "+dir) {
		t.Errorf("Expected missing top.bin error, got %v\nOutput: %s", err, output)
	}
	if len(fake.commands) != 0 {
		t.Errorf("Programmer should not run: %v", fake.commands)
	}

	output, fake, err = execute(t, "program", "--build-dir", dir)
	if err != nil {
		t.Fatalf("program: %v\nOutput: %s", err, output)
	}
	if len(fake.commands) != 1 || !strings.HasSuffix(fake.commands[0].String(), filepath.Join(dir, "top.bit")) {
		t.Errorf("Unexpected program command: %v", fake.commands)
	}
}
