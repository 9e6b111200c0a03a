package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
)

type testPlatform struct {
	*ResourceManager
	clock, reset string
	programmed   []string
}

func (p *testPlatform) DefaultClock() string { return p.clock }
func (p *testPlatform) DefaultReset() string { return p.reset }

func (p *testPlatform) ToolchainPrepare(frag *Fragment, name string, overrides Overrides) (*Plan, error) {
	plan := NewPlan("build_" + name)
	if err := plan.Add(name+".v", []byte(frag.Verilog(name))); err != nil {
		return nil, err
	}
	script := "synth " + name + ".v\n" + overrides.Get("script_after_synth", "") + "\n"
	if err := plan.Add(plan.ScriptFile(), []byte(script)); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *testPlatform) ToolchainOutputs(name string) []string {
	return []string{name + ".bit"}
}

func (p *testPlatform) ToolchainProgram(ctx context.Context, products Products, name string) error {
	p.programmed = append(p.programmed, products.Path(name+".bit"))
	return nil
}

func newTestPlatform(t *testing.T, reset string) *testPlatform {
	t.Helper()
	resources := append(testResources(),
		NewResource("rst", 0, NewPinsN("K1", DirInput)),
	)
	rm, err := NewResourceManager(resources, testConnectors())
	if err != nil {
		t.Fatal(err)
	}
	return &testPlatform{ResourceManager: rm, clock: "clk50", reset: reset}
}

var ledDesign = DesignFunc(func(p Platform) (*Fragment, error) {
	port, err := p.Request("led", 0)
	if err != nil {
		return nil, err
	}
	frag := &Fragment{UsesSync: true}
	frag.Add("reg state = 1'b0;", "always @(posedge clk) state <= rst ? 1'b0 : ~state;")
	frag.Addf("assign %s = state;", port.Signal().O())
	return frag, nil
})

func TestPrepare(t *testing.T) {
	t.Run("with reset", func(t *testing.T) {
		p := newTestPlatform(t, "rst")
		frag, err := Prepare(p, ledDesign, logr.Discard())
		if err != nil {
			t.Fatalf("Prepare error: %v", err)
		}
		if frag.ClockSource != "clk50_0__i" || frag.ResetSource != "rst_0__i" {
			t.Errorf("Unexpected sync sources: %s, %s", frag.ClockSource, frag.ResetSource)
		}
		if len(frag.Ports) != 3 {
			t.Errorf("Expected led, clock and reset ports, got %d", len(frag.Ports))
		}
	})

	t.Run("missing reset is tied low", func(t *testing.T) {
		p := newTestPlatform(t, "nrst")
		frag, err := Prepare(p, ledDesign, logr.Discard())
		if err != nil {
			t.Fatalf("Prepare error: %v", err)
		}
		if frag.ResetSource != "1'b0" {
			t.Errorf("Expected reset tied low, got %s", frag.ResetSource)
		}
	})

	t.Run("no default clock", func(t *testing.T) {
		p := newTestPlatform(t, "rst")
		p.clock = ""
		if _, err := Prepare(p, ledDesign, logr.Discard()); err == nil {
			t.Error("Expected error for a platform without a default clock")
		}
	})

	t.Run("elaboration error", func(t *testing.T) {
		p := newTestPlatform(t, "rst")
		bad := DesignFunc(func(p Platform) (*Fragment, error) {
			_, err := p.Request("missing", 0)
			return nil, err
		})
		if _, err := Prepare(p, bad, logr.Discard()); !errors.Is(err, ErrResourceNotFound) {
			t.Errorf("Expected ErrResourceNotFound, got %v", err)
		}
	})
}

func TestClockFrequency(t *testing.T) {
	p := newTestPlatform(t, "rst")
	f, err := DefaultClockFrequency(p)
	if err != nil || f != 50e6 {
		t.Errorf("DefaultClockFrequency = %g, %v", f, err)
	}
	if _, err := ClockFrequency(p, "led", 0); !errors.Is(err, ErrInvalidResource) {
		t.Errorf("Expected ErrInvalidResource for a resource without clock, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	t.Run("plan only", func(t *testing.T) {
		p := newTestPlatform(t, "rst")
		dir := t.TempDir()
		runner := &recordingRunner{}
		res, err := Build(context.Background(), p, ledDesign, BuildOptions{
			Dir:       dir,
			PlanOnly:  true,
			Runner:    runner,
			Overrides: Overrides{"script_after_synth": "report_utilization"},
		})
		if err != nil {
			t.Fatalf("Build error: %v", err)
		}
		if res.Products != nil || len(runner.commands) != 0 {
			t.Error("Plan-only build should not run the toolchain")
		}
		script, err := os.ReadFile(filepath.Join(dir, "build_top.sh"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(script), "report_utilization") {
			t.Errorf("Override missing from script:\n%s", script)
		}
	})

	t.Run("run and program", func(t *testing.T) {
		p := newTestPlatform(t, "rst")
		dir := t.TempDir()
		runner := &recordingRunner{creates: []string{"blink.bit"}}
		res, err := Build(context.Background(), p, ledDesign, BuildOptions{
			Name:    "blink",
			Dir:     dir,
			Program: true,
			Runner:  runner,
		})
		if err != nil {
			t.Fatalf("Build error: %v", err)
		}
		if res.Products == nil {
			t.Fatal("Build did not return products")
		}
		if len(p.programmed) != 1 || p.programmed[0] != filepath.Join(dir, "blink.bit") {
			t.Errorf("Unexpected programming: %v", p.programmed)
		}
	})
}
