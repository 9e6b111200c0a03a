package build

import (
	"errors"
	"strings"
	"testing"
)

func TestMergeOverrides(t *testing.T) {
	platform := Overrides{"script_before_bitstream": "a", "add_constraints": "b"}

	merged, err := MergeOverrides(platform, Overrides{"script_after_synth": "c"})
	if err != nil {
		t.Fatalf("MergeOverrides error: %v", err)
	}
	if len(merged) != 3 || merged["script_after_synth"] != "c" || merged["add_constraints"] != "b" {
		t.Errorf("Unexpected merge result: %v", merged)
	}

	_, err = MergeOverrides(platform, Overrides{"add_constraints": "x", "script_before_bitstream": "y"})
	if !errors.Is(err, ErrOverrideConflict) {
		t.Fatalf("Expected ErrOverrideConflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "add_constraints, script_before_bitstream") {
		t.Errorf("Conflict error should name both keys: %v", err)
	}

	// Neither input is modified.
	if len(platform) != 2 {
		t.Errorf("Platform overrides were modified: %v", platform)
	}
}

func TestOverridesLookup(t *testing.T) {
	o := Overrides{
		"script_after_read": `
			set_param general.maxThreads 4
			  report_param
		`,
		"empty": "",
	}

	got, ok := o.Lookup("script_after_read")
	if !ok {
		t.Fatal("Lookup did not find key")
	}
	want := "set_param general.maxThreads 4\n  report_param"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if _, ok := o.Lookup("missing"); ok {
		t.Error("Lookup found a missing key")
	}
	if v := o.Get("missing", "def"); v != "def" {
		t.Errorf("Get default: expected def, got %q", v)
	}
	if v, ok := o.Lookup("empty"); !ok || v != "" {
		t.Errorf("Empty value: got %q, %v", v, ok)
	}
}

func TestOverridesEnvironmentWins(t *testing.T) {
	o := Overrides{"synth_design_opts": "-flatten_hierarchy full"}

	t.Setenv("OTF_synth_design_opts", "-directive AreaOptimized_high")
	if v := o.Get("synth_design_opts", ""); v != "-directive AreaOptimized_high" {
		t.Errorf("Environment should win, got %q", v)
	}

	t.Setenv("OTF_vivado_opts", `""`)
	if v, ok := o.Lookup("vivado_opts"); !ok || v != "" {
		t.Errorf(`Quoted empty variable should be empty, got %q, %v`, v, ok)
	}
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides([]string{"a=1", "b= x=y ", "c="})
	if err != nil {
		t.Fatalf("ParseOverrides error: %v", err)
	}
	if o["a"] != "1" || o["b"] != " x=y " || o["c"] != "" {
		t.Errorf("Unexpected result: %v", o)
	}

	if _, err := ParseOverrides([]string{"novalue"}); err == nil {
		t.Error("Expected error for missing '='")
	}
	if _, err := ParseOverrides([]string{"a=1", "a=2"}); !errors.Is(err, ErrOverrideConflict) {
		t.Errorf("Expected ErrOverrideConflict for repeated key, got %v", err)
	}
}

func TestOverridesLookupDedents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"    a\n    b", "a\nb"},
		{"\t\ta\n\t\t\tb\n", "a\n\tb"},
		{"  a\n\n  b", "a\n\nb"},
		{"a\n  b", "a\n  b"},
		{"\n    set_property A 1\n      [current_design]\n", "set_property A 1\n  [current_design]"},
	}
	for _, tt := range tests {
		got, ok := Overrides{"hook": tt.in}.Lookup("hook")
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = %q, %v; want %q", tt.in, got, ok, tt.want)
		}
	}
}
