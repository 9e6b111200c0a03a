// Package config loads otf.cue project files.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultFile is the project file looked up in the working directory.
const DefaultFile = "otf.cue"

//go:embed schema.cue
var schema string

// Config is a project configuration.
type Config struct {
	Board     string            `json:"board"`
	Name      string            `json:"name"`
	BuildDir  string            `json:"buildDir"`
	Design    string            `json:"design"`
	Revision  string            `json:"revision"`
	Step      string            `json:"step"`
	Program   bool              `json:"program"`
	Flash     bool              `json:"flash"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// Default returns the configuration used when no project file exists.
func Default() Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates a project file. A missing DefaultFile is not an
// error; any other missing path is.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema and fills in defaults.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schema, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return Config{}, fmt.Errorf("config: compile schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath("#Config"))

	v := def
	if len(data) > 0 {
		file := ctx.CompileBytes(data, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", filename, err)
		}
		v = def.Unify(file)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", displayName(filename), err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

func displayName(filename string) string {
	if filename == "" {
		return "defaults"
	}
	return filename
}
