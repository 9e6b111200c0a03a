package build

import (
	"fmt"
	"strings"
)

// Fragment is an elaborated design: the ports it requested and the Verilog
// statements that make up its logic. Logic refers to pins through
// Signal.I/O/OE and to the sync domain through ClockNet and ResetNet.
type Fragment struct {
	Body  []string
	Ports []*Port
	// UsesSync asks the platform to supply the default clock domain.
	UsesSync bool
	// Set by Prepare when UsesSync is true.
	ClockSource string // net driving ClockNet
	ResetSource string // net driving ResetNet, "1'b0" when no reset exists
}

// Net names of the sync domain as seen by fragment logic.
const (
	ClockNet = "clk"
	ResetNet = "rst"
)

// Add appends Verilog statements to the fragment body.
func (f *Fragment) Add(lines ...string) {
	f.Body = append(f.Body, lines...)
}

// Addf appends one formatted statement.
func (f *Fragment) Addf(format string, args ...any) {
	f.Body = append(f.Body, fmt.Sprintf(format, args...))
}

// Verilog renders the fragment as a top-level module with one port per
// requested pin group.
func (f *Fragment) Verilog(name string) string {
	var decls []string
	var logic []string
	for _, port := range f.Ports {
		for _, sig := range port.Signals {
			d, l := signalVerilog(sig)
			decls = append(decls, d...)
			logic = append(logic, l...)
		}
	}

	var b strings.Builder
	b.WriteString("// Automatically generated by OpenTraceFPGA. Do not edit.\n")
	b.WriteString("`default_nettype none\n\n")
	fmt.Fprintf(&b, "module %s (\n", name)
	for i, d := range decls {
		sep := ","
		if i == len(decls)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %s%s\n", d, sep)
	}
	b.WriteString(");\n")
	for _, l := range logic {
		fmt.Fprintf(&b, "    %s\n", l)
	}
	if f.UsesSync {
		fmt.Fprintf(&b, "    wire %s = %s;\n", ClockNet, f.ClockSource)
		fmt.Fprintf(&b, "    wire %s = %s;\n", ResetNet, f.ResetSource)
	}
	for _, l := range f.Body {
		fmt.Fprintf(&b, "    %s\n", l)
	}
	b.WriteString("endmodule\n\n`default_nettype wire\n")
	return b.String()
}

func vrange(width int) string {
	if width <= 1 {
		return ""
	}
	return fmt.Sprintf("[%d:0] ", width-1)
}

func portDirection(dir Dir) string {
	switch dir {
	case DirInput:
		return "input "
	case DirOutput, DirOutputEnable:
		return "output"
	default:
		return "inout "
	}
}

func hasInput(dir Dir) bool  { return dir == DirInput || dir == DirInOut }
func hasOutput(dir Dir) bool { return dir == DirOutput || dir == DirOutputEnable || dir == DirInOut }
func hasEnable(dir Dir) bool { return dir == DirOutputEnable || dir == DirInOut }

func maybeInvert(expr string, invert bool) string {
	if invert {
		return "~" + expr
	}
	return expr
}

func bit(net string, width, i int) string {
	if width <= 1 {
		return net
	}
	return fmt.Sprintf("%s[%d]", net, i)
}

// signalVerilog returns the port declarations and the buffer logic of one
// signal.
func signalVerilog(s *Signal) (decls, logic []string) {
	r := vrange(s.Width)
	pdir := portDirection(s.Dir)
	for _, name := range s.PortNames() {
		decls = append(decls, fmt.Sprintf("%s wire %s%s", pdir, r, name))
	}
	if s.Dir == DirNone {
		return decls, nil
	}
	if hasInput(s.Dir) {
		logic = append(logic, fmt.Sprintf("wire %s%s;", r, s.I()))
	}
	if hasOutput(s.Dir) {
		logic = append(logic, fmt.Sprintf("wire %s%s;", r, s.O()))
	}
	if hasEnable(s.Dir) {
		logic = append(logic, fmt.Sprintf("wire %s;", s.OE()))
	}

	if !s.Diff {
		pad := s.Name + "__io"
		if hasEnable(s.Dir) {
			logic = append(logic, fmt.Sprintf("assign %s = %s ? %s : {%d{1'bz}};",
				pad, s.OE(), maybeInvert(s.O(), s.Invert), s.Width))
		} else if hasOutput(s.Dir) {
			logic = append(logic, fmt.Sprintf("assign %s = %s;", pad, maybeInvert(s.O(), s.Invert)))
		}
		if hasInput(s.Dir) {
			logic = append(logic, fmt.Sprintf("assign %s = %s;", s.I(), maybeInvert(pad, s.Invert)))
		}
		return decls, logic
	}

	p, n := s.Name+"__p", s.Name+"__n"
	in := s.I()
	if s.Invert && hasInput(s.Dir) {
		in = s.Name + "__i_raw"
		logic = append(logic, fmt.Sprintf("wire %s%s;", r, in))
		logic = append(logic, fmt.Sprintf("assign %s = ~%s;", s.I(), in))
	}
	out := maybeInvert(s.O(), s.Invert)
	for i := 0; i < s.Width; i++ {
		inst := fmt.Sprintf("%s__buf%d", s.Name, i)
		switch s.Dir {
		case DirInput:
			logic = append(logic, fmt.Sprintf("IBUFDS %s (.I(%s), .IB(%s), .O(%s));",
				inst, bit(p, s.Width, i), bit(n, s.Width, i), bit(in, s.Width, i)))
		case DirOutput:
			logic = append(logic, fmt.Sprintf("OBUFDS %s (.I(%s), .O(%s), .OB(%s));",
				inst, bitExpr(out, s.Width, i), bit(p, s.Width, i), bit(n, s.Width, i)))
		case DirOutputEnable:
			logic = append(logic, fmt.Sprintf("OBUFTDS %s (.I(%s), .T(~%s), .O(%s), .OB(%s));",
				inst, bitExpr(out, s.Width, i), s.OE(), bit(p, s.Width, i), bit(n, s.Width, i)))
		case DirInOut:
			logic = append(logic, fmt.Sprintf("IOBUFDS %s (.I(%s), .T(~%s), .O(%s), .IO(%s), .IOB(%s));",
				inst, bitExpr(out, s.Width, i), s.OE(), bit(in, s.Width, i), bit(p, s.Width, i), bit(n, s.Width, i)))
		}
	}
	return decls, logic
}

// bitExpr selects bit i of a possibly inverted net expression.
func bitExpr(expr string, width, i int) string {
	if strings.HasPrefix(expr, "~") {
		return "~" + bit(expr[1:], width, i)
	}
	return bit(expr, width, i)
}
