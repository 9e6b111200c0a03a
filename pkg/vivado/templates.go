package vivado

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
)

const autogenerated = "Automatically generated by OpenTraceFPGA. Do not edit."

type clockData struct {
	Port   string
	Period string // nanoseconds
}

type templateData struct {
	Name          string
	Part          string
	Autogenerated string
	Constraints   []build.PortConstraint
	Clocks        []clockData
	steps         map[Step]bool
}

// Has reports whether the flow runs the named step.
func (d templateData) Has(step string) bool {
	return d.steps[Step(step)]
}

// TCLEscape quotes a string as a TCL brace word.
func TCLEscape(s string) string {
	return "{" + tclSpecial.ReplaceAllString(s, `\$1`) + "}"
}

var tclSpecial = regexp.MustCompile(`([{}\\])`)

// ASCIIEscape replaces characters outside [A-Za-z0-9_] with _XX hex codes.
func ASCIIEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_%02x", r)
		}
	}
	return b.String()
}

func formatPeriod(hz float64) string {
	return strconv.FormatFloat(1e9/hz, 'f', 3, 64)
}

func funcs(overrides build.Overrides) template.FuncMap {
	return template.FuncMap{
		"tcl":   TCLEscape,
		"ascii": ASCIIEscape,
		// override renders a hook, or a placeholder comment when unset.
		"override": func(key string) string {
			return overrides.Get(key, fmt.Sprintf("# (%s placeholder)", key))
		},
		// option renders extra command-line options, or nothing.
		"option": func(key string) string {
			return overrides.Get(key, "")
		},
	}
}

const xdcTemplate = `# {{.Autogenerated}}
{{range $c := .Constraints -}}
set_property LOC {{$c.Pin}} [get_ports {{tcl $c.Port}}]
{{range $k := $c.Attrs.Keys -}}
set_property {{$k}} {{tcl (index $c.Attrs $k)}} [get_ports {{tcl $c.Port}}]
{{end -}}
{{end -}}
{{range .Clocks -}}
create_clock -name {{ascii .Port}} -period {{.Period}} [get_ports {{tcl .Port}}]
{{end -}}
{{override "add_constraints"}}
`

const tclTemplate = `# {{.Autogenerated}}
create_project -force -name {{.Name}} -part {{.Part}}
add_files {{tcl (print .Name ".v")}}
read_xdc {{tcl (print .Name ".xdc")}}
{{override "script_after_read"}}
synth_design -top {{.Name}}{{with option "synth_design_opts"}} {{.}}{{end}}
{{override "script_after_synth"}}
write_checkpoint -force {{.Name}}_synth.dcp
report_timing_summary -file {{.Name}}_timing_synth.rpt
report_utilization -hierarchical -file {{.Name}}_utilization_hierarchical_synth.rpt
report_utilization -file {{.Name}}_utilization_synth.rpt
{{- if .Has "placement"}}
opt_design
place_design
{{override "script_after_place"}}
write_checkpoint -force {{.Name}}_place.dcp
report_utilization -hierarchical -file {{.Name}}_utilization_hierarchical_place.rpt
report_utilization -file {{.Name}}_utilization_place.rpt
report_io -file {{.Name}}_io.rpt
report_control_sets -verbose -file {{.Name}}_control_sets.rpt
report_clock_utilization -file {{.Name}}_clock_utilization.rpt
{{- end}}
{{- if .Has "routing"}}
route_design
{{override "script_after_route"}}
phys_opt_design
report_timing_summary -no_header -no_detailed_paths
write_checkpoint -force {{.Name}}_route.dcp
report_route_status -file {{.Name}}_route_status.rpt
report_drc -file {{.Name}}_drc.rpt
report_methodology -file {{.Name}}_methodology.rpt
report_timing_summary -datasheet -max_paths 10 -file {{.Name}}_timing.rpt
report_power -file {{.Name}}_power.rpt
{{- end}}
{{- if .Has "bitstream"}}
{{override "script_before_bitstream"}}
write_bitstream -force -bin_file {{.Name}}.bit
{{override "script_after_bitstream"}}
{{- end}}
quit
`

const scriptTemplate = `# {{.Autogenerated}}
set -e
[ -n "${OTF_ENV_VIVADO}" ] && . "${OTF_ENV_VIVADO}"
"${VIVADO:-vivado}"{{with option "vivado_opts"}} {{.}}{{end}} -mode batch -log {{.Name}}.log -source {{.Name}}.tcl
`

func render(name, text string, overrides build.Overrides, data templateData) ([]byte, error) {
	tpl, err := template.New(name).Funcs(funcs(overrides)).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("vivado: parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("vivado: render %s: %w", name, err)
	}
	return []byte(b.String()), nil
}
