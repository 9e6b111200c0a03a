package build

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"
)

// Plan is the set of files a toolchain needs plus the name of the shell
// script that runs the toolchain over them.
type Plan struct {
	Script string // script basename without extension, e.g. "build_top"
	files  map[string][]byte
}

// NewPlan creates an empty plan.
func NewPlan(script string) *Plan {
	return &Plan{Script: script, files: make(map[string][]byte)}
}

// ScriptFile returns the filename of the entry script.
func (p *Plan) ScriptFile() string {
	return p.Script + ".sh"
}

// Add stores a file under a relative slash-separated path.
func (p *Plan) Add(filename string, content []byte) error {
	clean := path.Clean(filename)
	if filename == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("build: plan file %q must be a relative path inside the build root", filename)
	}
	if _, exists := p.files[clean]; exists {
		return fmt.Errorf("build: plan already contains %s", clean)
	}
	p.files[clean] = content
	return nil
}

// Files returns the filenames in sorted order.
func (p *Plan) Files() []string {
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File returns the content of a planned file.
func (p *Plan) File(name string) ([]byte, bool) {
	b, ok := p.files[name]
	return b, ok
}

// Digest identifies the plan contents. Plans with equal digests produce the
// same toolchain inputs.
func (p *Plan) Digest() string {
	h := xxhash.New()
	for _, name := range p.Files() {
		h.WriteString(name)
		h.Write([]byte{0})
		h.Write(p.files[name])
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Extract writes all files below root.
func (p *Plan) Extract(root string) error {
	for _, name := range p.Files() {
		dst := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("build: create %s: %w", filepath.Dir(dst), err)
		}
		mode := os.FileMode(0644)
		if name == p.ScriptFile() {
			mode = 0755
		}
		if err := os.WriteFile(dst, p.files[name], mode); err != nil {
			return fmt.Errorf("build: write %s: %w", dst, err)
		}
	}
	return nil
}

// Archive writes the plan as a zip file so it can be built elsewhere.
func (p *Plan) Archive(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range p.Files() {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("build: archive %s: %w", name, err)
		}
		if _, err := io.Copy(f, bytes.NewReader(p.files[name])); err != nil {
			return fmt.Errorf("build: archive %s: %w", name, err)
		}
	}
	return zw.Close()
}

// ExecuteOptions controls Plan.Execute.
type ExecuteOptions struct {
	Runner Runner
	Logger logr.Logger
	// Outputs are the files the toolchain is expected to produce. When all
	// of them exist and the plan digest is unchanged, the script is not run.
	Outputs []string
	Force   bool
}

// Execute extracts the plan into root and runs its script there.
func (p *Plan) Execute(ctx context.Context, root string, opts ExecuteOptions) (*LocalProducts, error) {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	if err := p.Extract(root); err != nil {
		return nil, err
	}

	products := &LocalProducts{Root: root}
	digest := p.Digest()
	stamp := filepath.Join(root, p.Script+".digest")

	if !opts.Force && len(opts.Outputs) > 0 {
		if prev, err := os.ReadFile(stamp); err == nil && strings.TrimSpace(string(prev)) == digest && products.existAll(opts.Outputs) {
			log.Info("build inputs unchanged, skipping toolchain", "root", root, "digest", digest)
			return products, nil
		}
	}

	log.Info("running toolchain", "root", root, "script", p.ScriptFile(), "digest", digest)
	if err := runner.Run(ctx, Command{Dir: root, Name: "sh", Args: []string{p.ScriptFile()}}); err != nil {
		return nil, fmt.Errorf("build: %s failed: %w", p.ScriptFile(), err)
	}
	if err := os.WriteFile(stamp, []byte(digest+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("build: write digest: %w", err)
	}
	return products, nil
}

// Products gives access to the files a toolchain run produced.
type Products interface {
	Path(filename string) string
	Get(filename string) ([]byte, error)
}

// LocalProducts are products in a local build directory.
type LocalProducts struct {
	Root string
}

// Path returns the absolute-or-root-relative path of a product.
func (lp *LocalProducts) Path(filename string) string {
	return filepath.Join(lp.Root, filepath.FromSlash(filename))
}

// Get reads a product.
func (lp *LocalProducts) Get(filename string) ([]byte, error) {
	b, err := os.ReadFile(lp.Path(filename))
	if err != nil {
		return nil, fmt.Errorf("build: product %s: %w", filename, err)
	}
	return b, nil
}

func (lp *LocalProducts) existAll(names []string) bool {
	for _, name := range names {
		if _, err := os.Stat(lp.Path(name)); err != nil {
			return false
		}
	}
	return true
}
