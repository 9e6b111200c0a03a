package build

import (
	"fmt"
	"sort"
	"strings"
)

// Dir is the direction of a pin group as seen from the FPGA.
type Dir string

const (
	DirInput        Dir = "i"
	DirOutput       Dir = "o"
	DirInOut        Dir = "io"
	DirOutputEnable Dir = "oe"
	DirNone         Dir = "-"
)

// Valid reports whether d is one of the known directions.
func (d Dir) Valid() bool {
	switch d {
	case DirInput, DirOutput, DirInOut, DirOutputEnable, DirNone:
		return true
	}
	return false
}

// Element is one entry in the body of a resource or subsignal: pins,
// differential pairs, nested subsignals, attributes or a clock.
type Element interface {
	element()
}

// Attrs are electrical attributes (IO standard, termination, slew rate)
// applied to every pin below the element they appear in.
type Attrs map[string]string

func (Attrs) element() {}

// Keys returns the attribute names in sorted order.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// merge returns a copy of a with b applied on top.
func (a Attrs) merge(b Attrs) Attrs {
	out := make(Attrs, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Clock marks a pin group as carrying a clock of the given frequency.
type Clock struct {
	Frequency float64 // Hertz
}

func (Clock) element() {}

// NewClock returns a clock constraint element.
func NewClock(hz float64) Clock {
	return Clock{Frequency: hz}
}

// Period returns the clock period in nanoseconds.
func (c Clock) Period() float64 {
	return 1e9 / c.Frequency
}

// PinsOption customizes a pin group.
type PinsOption func(*pinsConfig)

type pinsConfig struct {
	conn        *ConnectorRef
	assertWidth int
}

// WithConn resolves the pin spec relative to a connector, so "1 2" becomes
// "name_number:1 name_number:2".
func WithConn(name string, number int) PinsOption {
	return func(c *pinsConfig) {
		c.conn = &ConnectorRef{Name: name, Number: number}
	}
}

// WithAssertWidth fails validation unless the group has exactly n pins.
func WithAssertWidth(n int) PinsOption {
	return func(c *pinsConfig) {
		c.assertWidth = n
	}
}

// ConnectorRef names a connector instance.
type ConnectorRef struct {
	Name   string
	Number int
}

func (r ConnectorRef) String() string {
	return fmt.Sprintf("%s_%d", r.Name, r.Number)
}

// Pins is a group of single-ended pins. Spec is a whitespace separated list
// of package pins or connector references.
type Pins struct {
	Spec        string
	Dir         Dir
	Invert      bool
	Conn        *ConnectorRef
	AssertWidth int
}

func (*Pins) element() {}

func newPins(spec string, dir Dir, invert bool, opts []PinsOption) *Pins {
	var cfg pinsConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pins{
		Spec:        spec,
		Dir:         dir,
		Invert:      invert,
		Conn:        cfg.conn,
		AssertWidth: cfg.assertWidth,
	}
}

// NewPins declares active-high pins.
func NewPins(spec string, dir Dir, opts ...PinsOption) *Pins {
	return newPins(spec, dir, false, opts)
}

// NewPinsN declares active-low pins.
func NewPinsN(spec string, dir Dir, opts ...PinsOption) *Pins {
	return newPins(spec, dir, true, opts)
}

// DiffPairs is a group of differential pairs.
type DiffPairs struct {
	P, N        string
	Dir         Dir
	Invert      bool
	Conn        *ConnectorRef
	AssertWidth int
}

func (*DiffPairs) element() {}

func newDiffPairs(p, n string, dir Dir, invert bool, opts []PinsOption) *DiffPairs {
	var cfg pinsConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &DiffPairs{
		P:           p,
		N:           n,
		Dir:         dir,
		Invert:      invert,
		Conn:        cfg.conn,
		AssertWidth: cfg.assertWidth,
	}
}

// NewDiffPairs declares active-high differential pairs.
func NewDiffPairs(p, n string, dir Dir, opts ...PinsOption) *DiffPairs {
	return newDiffPairs(p, n, dir, false, opts)
}

// NewDiffPairsN declares active-low differential pairs.
func NewDiffPairsN(p, n string, dir Dir, opts ...PinsOption) *DiffPairs {
	return newDiffPairs(p, n, dir, true, opts)
}

// Subsignal is a named part of a resource. It holds either exactly one pin
// group or one or more nested subsignals, plus optional attributes and clock.
type Subsignal struct {
	Name     string
	Elements []Element
}

func (*Subsignal) element() {}

// NewSubsignal declares a subsignal.
func NewSubsignal(name string, elems ...Element) *Subsignal {
	return &Subsignal{Name: name, Elements: elems}
}

// Resource is a named, numbered subsignal at the top of the tree.
type Resource struct {
	Subsignal
	Number int
	// Family is the shared base name of alternative views of one physical
	// interface (spi_flash_1x, spi_flash_4x, ...). Empty for plain resources.
	Family string
}

// NewResource declares a resource.
func NewResource(name string, number int, elems ...Element) *Resource {
	return &Resource{
		Subsignal: Subsignal{Name: name, Elements: elems},
		Number:    number,
	}
}

// ResourceFamily declares one view of a resource family, named
// "<name>_<suffix>".
func ResourceFamily(number int, name, suffix string, elems ...Element) *Resource {
	r := NewResource(name, number, elems...)
	if suffix != "" {
		r.Name = name + "_" + suffix
	}
	r.Family = name
	return r
}

// ID returns "name#number".
func (r *Resource) ID() string {
	return fmt.Sprintf("%s#%d", r.Name, r.Number)
}

// Connector exposes physical pins under connector-local keys. Positional
// connectors use keys "1".."n".
type Connector struct {
	Name   string
	Number int
	Spec   string            // positional spec, "-" marks unconnected
	Map    map[string]string // keyed pins
}

// NewConnector declares a positional connector.
func NewConnector(name string, number int, spec string) *Connector {
	return &Connector{Name: name, Number: number, Spec: spec}
}

// NewConnectorMap declares a keyed connector.
func NewConnectorMap(name string, number int, pins map[string]string) *Connector {
	return &Connector{Name: name, Number: number, Map: pins}
}

// ID returns "name_number", the prefix used in connector pin references.
func (c *Connector) ID() string {
	return ConnectorRef{Name: c.Name, Number: c.Number}.String()
}

// splitElements sorts a body into its IO leaves, subsignals, attributes and
// clocks.
func splitElements(elems []Element) (ios []Element, subs []*Subsignal, attrs Attrs, clocks []Clock) {
	attrs = Attrs{}
	for _, e := range elems {
		switch v := e.(type) {
		case *Pins, *DiffPairs:
			ios = append(ios, v)
		case *Subsignal:
			subs = append(subs, v)
		case Attrs:
			attrs = attrs.merge(v)
		case Clock:
			clocks = append(clocks, v)
		}
	}
	return ios, subs, attrs, clocks
}

func joinPath(parts ...string) string {
	return strings.Join(parts, "__")
}
