package build

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// ToolStatus is the outcome of probing one external tool.
type ToolStatus struct {
	Name    string // tool name, e.g. "vivado"
	Path    string // resolved program
	Version string // first line printed by the version query
	Err     error
}

// Found reports whether the tool answered its version query.
func (s ToolStatus) Found() bool { return s.Err == nil }

// ToolProbe names a tool and the arguments that make it print its version.
type ToolProbe struct {
	Name string
	Args []string
}

// ProbeTools queries each tool concurrently. Failures are reported per tool
// rather than as an error.
func ProbeTools(ctx context.Context, runner Runner, probes ...ToolProbe) []ToolStatus {
	if runner == nil {
		runner = ExecRunner{}
	}
	p := pool.NewWithResults[ToolStatus]().WithMaxGoroutines(4)
	for _, probe := range probes {
		probe := probe
		p.Go(func() ToolStatus {
			return probeTool(ctx, runner, probe)
		})
	}
	statuses := p.Wait()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func probeTool(ctx context.Context, runner Runner, probe ToolProbe) ToolStatus {
	status := ToolStatus{Name: probe.Name, Path: ToolPath(probe.Name)}
	if _, isExec := runner.(ExecRunner); isExec {
		resolved, err := exec.LookPath(status.Path)
		if err != nil {
			status.Err = err
			return status
		}
		status.Path = resolved
	}
	var out bytes.Buffer
	err := runner.Run(ctx, Command{
		Name:   status.Path,
		Args:   probe.Args,
		Stdout: &out,
		Stderr: &out,
	})
	if err != nil {
		status.Err = err
		return status
	}
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			status.Version = line
			break
		}
	}
	return status
}
