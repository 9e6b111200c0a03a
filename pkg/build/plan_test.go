package build

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// recordingRunner records commands and optionally creates files in the
// command directory, standing in for a toolchain.
type recordingRunner struct {
	mu       sync.Mutex
	commands []Command
	creates  []string
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	if r.err != nil {
		return r.err
	}
	for _, name := range r.creates {
		if err := os.WriteFile(filepath.Join(cmd.Dir, name), []byte("output"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func newTestPlan(t *testing.T) *Plan {
	t.Helper()
	plan := NewPlan("build_top")
	if err := plan.Add("top.v", []byte("module top; endmodule\n")); err != nil {
		t.Fatal(err)
	}
	if err := plan.Add("build_top.sh", []byte("echo build\n")); err != nil {
		t.Fatal(err)
	}
	return plan
}

func TestPlanAdd(t *testing.T) {
	plan := newTestPlan(t)

	for _, name := range []string{"", "/etc/passwd", "../x", "a/../../x"} {
		if err := plan.Add(name, nil); err == nil {
			t.Errorf("Add(%q) should fail", name)
		}
	}
	if err := plan.Add("top.v", nil); err == nil {
		t.Error("Adding a file twice should fail")
	}
	if err := plan.Add("sub/dir/file.txt", []byte("x")); err != nil {
		t.Errorf("Nested path rejected: %v", err)
	}
	want := "build_top.sh sub/dir/file.txt top.v"
	if got := strings.Join(plan.Files(), " "); got != want {
		t.Errorf("Files() = %q, want %q", got, want)
	}
}

func TestPlanDigest(t *testing.T) {
	a := newTestPlan(t)
	b := newTestPlan(t)
	if a.Digest() != b.Digest() {
		t.Error("Equal plans should have equal digests")
	}
	if len(a.Digest()) != 16 {
		t.Errorf("Digest should be 16 hex digits, got %q", a.Digest())
	}
	if err := b.Add("extra.xdc", []byte("")); err != nil {
		t.Fatal(err)
	}
	if a.Digest() == b.Digest() {
		t.Error("Adding a file should change the digest")
	}
}

func TestPlanExtract(t *testing.T) {
	plan := newTestPlan(t)
	root := t.TempDir()
	if err := plan.Extract(root); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "top.v"))
	if err != nil || string(got) != "module top; endmodule\n" {
		t.Errorf("top.v = %q, %v", got, err)
	}
	st, err := os.Stat(filepath.Join(root, "build_top.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm()&0100 == 0 {
		t.Errorf("Script should be executable, mode %v", st.Mode())
	}
}

func TestPlanArchive(t *testing.T) {
	plan := newTestPlan(t)
	var buf bytes.Buffer
	if err := plan.Archive(&buf); err != nil {
		t.Fatalf("Archive error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, " "); got != "build_top.sh top.v" {
		t.Errorf("Archive entries = %q", got)
	}
}

func TestPlanExecute(t *testing.T) {
	plan := newTestPlan(t)
	root := t.TempDir()
	runner := &recordingRunner{creates: []string{"top.bit"}}
	opts := ExecuteOptions{Runner: runner, Outputs: []string{"top.bit"}}

	products, err := plan.Execute(context.Background(), root, opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(runner.commands))
	}
	cmd := runner.commands[0]
	if cmd.Name != "sh" || cmd.Dir != root || cmd.Args[0] != "build_top.sh" {
		t.Errorf("Unexpected command: %+v", cmd)
	}
	if b, err := products.Get("top.bit"); err != nil || string(b) != "output" {
		t.Errorf("products.Get = %q, %v", b, err)
	}
	stamp, err := os.ReadFile(filepath.Join(root, "build_top.digest"))
	if err != nil || strings.TrimSpace(string(stamp)) != plan.Digest() {
		t.Errorf("Digest stamp = %q, %v", stamp, err)
	}

	t.Run("unchanged plan is skipped", func(t *testing.T) {
		if _, err := plan.Execute(context.Background(), root, opts); err != nil {
			t.Fatal(err)
		}
		if len(runner.commands) != 1 {
			t.Errorf("Toolchain re-ran for an unchanged plan")
		}
	})

	t.Run("force re-runs", func(t *testing.T) {
		forced := opts
		forced.Force = true
		if _, err := plan.Execute(context.Background(), root, forced); err != nil {
			t.Fatal(err)
		}
		if len(runner.commands) != 2 {
			t.Errorf("Force did not re-run the toolchain")
		}
	})

	t.Run("missing output re-runs", func(t *testing.T) {
		if err := os.Remove(filepath.Join(root, "top.bit")); err != nil {
			t.Fatal(err)
		}
		if _, err := plan.Execute(context.Background(), root, opts); err != nil {
			t.Fatal(err)
		}
		if len(runner.commands) != 3 {
			t.Errorf("Missing output did not re-run the toolchain")
		}
	})
}

func TestPlanExecuteFailure(t *testing.T) {
	plan := newTestPlan(t)
	root := t.TempDir()
	boom := errors.New("vivado crashed")
	runner := &recordingRunner{err: boom}

	_, err := plan.Execute(context.Background(), root, ExecuteOptions{Runner: runner})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected runner error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "build_top.digest")); !os.IsNotExist(err) {
		t.Error("Failed run should not leave a digest stamp")
	}
}
