package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is an external program invocation.
type Command struct {
	Dir    string
	Name   string
	Args   []string
	Env    []string // appended to the current environment
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes external commands. Tests substitute a recording runner.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build: %s: %w", c.Name, err)
	}
	return nil
}

// ToolEnvVar returns the environment variable that overrides the path of a
// tool: "vivado" → "VIVADO", "openFPGALoader" → "OPENFPGALOADER".
func ToolEnvVar(name string) string {
	r := strings.NewReplacer("-", "_", "+", "X")
	return strings.ToUpper(r.Replace(name))
}

// ToolPath returns the program to invoke for a tool, honoring ToolEnvVar.
func ToolPath(name string) string {
	if v := os.Getenv(ToolEnvVar(name)); v != "" {
		return v
	}
	return name
}
