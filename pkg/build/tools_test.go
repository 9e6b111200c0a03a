package build

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type versionRunner map[string]string

func (r versionRunner) Run(ctx context.Context, cmd Command) error {
	out, ok := r[cmd.Name]
	if !ok {
		return errors.New("executable file not found")
	}
	fmt.Fprint(cmd.Stdout, out)
	return nil
}

func TestProbeTools(t *testing.T) {
	t.Setenv("VIVADO", "")
	t.Setenv("OPENFPGALOADER", "")
	runner := versionRunner{
		"vivado": "\nvivado v2023.2 (64-bit)\nSW Build 4029153\n",
	}
	statuses := ProbeTools(context.Background(), runner,
		ToolProbe{Name: "vivado", Args: []string{"-version"}},
		ToolProbe{Name: "openFPGALoader", Args: []string{"--Version"}},
	)
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(statuses))
	}
	// Sorted by name.
	missing, found := statuses[0], statuses[1]
	if missing.Name != "openFPGALoader" || missing.Found() {
		t.Errorf("openFPGALoader should be missing: %+v", missing)
	}
	if !found.Found() || found.Version != "vivado v2023.2 (64-bit)" {
		t.Errorf("Unexpected vivado status: %+v", found)
	}
}

func TestToolPath(t *testing.T) {
	if got := ToolEnvVar("openFPGALoader"); got != "OPENFPGALOADER" {
		t.Errorf("ToolEnvVar = %s", got)
	}
	if got := ToolEnvVar("yosys-abc"); got != "YOSYS_ABC" {
		t.Errorf("ToolEnvVar = %s", got)
	}
	t.Setenv("VIVADO", "/opt/Xilinx/Vivado/2023.2/bin/vivado")
	if got := ToolPath("vivado"); got != "/opt/Xilinx/Vivado/2023.2/bin/vivado" {
		t.Errorf("ToolPath = %s", got)
	}
}
