package build

import (
	"fmt"
	"strings"
)

// Port is a requested resource resolved to physical pins.
type Port struct {
	Resource *Resource
	Name     string // "<resource>_<number>"
	Signals  []*Signal
}

// Signal returns the leaf signal at the given subsignal path, or nil. An
// empty path selects a resource that carries its pins directly.
func (p *Port) Signal(path ...string) *Signal {
	for _, sig := range p.Signals {
		if strings.Join(sig.Path, "/") == strings.Join(path, "/") {
			return sig
		}
	}
	return nil
}

// Signal is one leaf pin group of a port.
type Signal struct {
	Name   string   // base name of the top-level port
	Path   []string // subsignal path below the resource
	Dir    Dir
	Width  int
	Invert bool
	Diff   bool
	Pins   []string // single-ended pins, or the P side of diff pairs
	PinsN  []string // N side of diff pairs
	Attrs  Attrs
	Clock  *Clock
}

// PortNames returns the top-level port names the signal occupies.
func (s *Signal) PortNames() []string {
	if s.Diff {
		return []string{s.Name + "__p", s.Name + "__n"}
	}
	return []string{s.Name + "__io"}
}

// I returns the logic-side input net.
func (s *Signal) I() string { return s.Name + "__i" }

// O returns the logic-side output net.
func (s *Signal) O() string { return s.Name + "__o" }

// OE returns the logic-side output enable net.
func (s *Signal) OE() string { return s.Name + "__oe" }

type pinResolver func(ref string) (string, error)

// walkResource validates a resource tree and flattens it into a port. With a
// nil resolver connector references are left unresolved.
func walkResource(r *Resource, resolve pinResolver) (*Port, error) {
	port := &Port{
		Resource: r,
		Name:     fmt.Sprintf("%s_%d", r.Name, r.Number),
	}
	if r.Name == "" {
		return nil, fmt.Errorf("%w: resource without a name", ErrInvalidResource)
	}
	if err := walkNode(port, &r.Subsignal, nil, Attrs{}, nil, resolve); err != nil {
		return nil, fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	return port, nil
}

func walkNode(port *Port, node *Subsignal, path []string, attrs Attrs, clock *Clock, resolve pinResolver) error {
	ios, subs, own, clocks := splitElements(node.Elements)
	where := strings.Join(append([]string{port.Resource.Name}, path...), ".")

	switch {
	case len(ios) == 0 && len(subs) == 0:
		return fmt.Errorf("%w: %s has no pins or subsignals", ErrInvalidResource, where)
	case len(ios) > 0 && len(subs) > 0:
		return fmt.Errorf("%w: %s mixes pins and subsignals", ErrInvalidResource, where)
	case len(ios) > 1:
		return fmt.Errorf("%w: %s has more than one pin group", ErrInvalidResource, where)
	case len(clocks) > 1:
		return fmt.Errorf("%w: %s has more than one clock", ErrInvalidResource, where)
	}

	attrs = attrs.merge(own)
	if len(clocks) == 1 {
		c := clocks[0]
		if c.Frequency <= 0 {
			return fmt.Errorf("%w: %s clock frequency must be positive", ErrInvalidResource, where)
		}
		clock = &c
	}

	if len(subs) > 0 {
		seen := make(map[string]bool, len(subs))
		for _, sub := range subs {
			if sub.Name == "" {
				return fmt.Errorf("%w: %s has an unnamed subsignal", ErrInvalidResource, where)
			}
			if seen[sub.Name] {
				return fmt.Errorf("%w: %s has duplicate subsignal %s", ErrInvalidResource, where, sub.Name)
			}
			seen[sub.Name] = true
			subPath := append(append([]string(nil), path...), sub.Name)
			if err := walkNode(port, sub, subPath, attrs, clock, resolve); err != nil {
				return err
			}
		}
		return nil
	}

	sig := &Signal{
		Name:  joinPath(append([]string{port.Name}, path...)...),
		Path:  path,
		Attrs: attrs,
		Clock: clock,
	}
	switch io := ios[0].(type) {
	case *Pins:
		pins, err := resolvePins(io.Spec, io.Conn, resolve)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		sig.Dir, sig.Invert, sig.Pins = io.Dir, io.Invert, pins
		if err := checkGroup(where, io.Dir, len(pins), io.AssertWidth); err != nil {
			return err
		}
	case *DiffPairs:
		p, err := resolvePins(io.P, io.Conn, resolve)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		n, err := resolvePins(io.N, io.Conn, resolve)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if len(p) != len(n) {
			return fmt.Errorf("%w: %s has %d P pins and %d N pins", ErrInvalidResource, where, len(p), len(n))
		}
		sig.Dir, sig.Invert, sig.Diff, sig.Pins, sig.PinsN = io.Dir, io.Invert, true, p, n
		if err := checkGroup(where, io.Dir, len(p), io.AssertWidth); err != nil {
			return err
		}
	}
	sig.Width = len(sig.Pins)
	port.Signals = append(port.Signals, sig)
	return nil
}

func checkGroup(where string, dir Dir, width, assertWidth int) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %s has unknown direction %q", ErrInvalidResource, where, dir)
	}
	if width == 0 {
		return fmt.Errorf("%w: %s has no pins", ErrInvalidResource, where)
	}
	if assertWidth > 0 && width != assertWidth {
		return fmt.Errorf("%w: %s has %d pins, expected %d", ErrInvalidResource, where, width, assertWidth)
	}
	return nil
}

func resolvePins(spec string, conn *ConnectorRef, resolve pinResolver) ([]string, error) {
	list, err := ParsePinSpec(spec)
	if err != nil {
		return nil, err
	}
	pins := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		var ref string
		switch {
		case item.NC:
			return nil, fmt.Errorf("%w: %q: unconnected pins are only allowed in connectors", ErrInvalidPinSpec, spec)
		case item.Conn != nil:
			if _, err := item.Conn.Connector(); err != nil {
				return nil, err
			}
			ref = item.String()
		case conn != nil:
			ref = conn.String() + ":" + item.Name
		default:
			ref = item.Name
		}
		if resolve != nil {
			pin, err := resolve(ref)
			if err != nil {
				return nil, err
			}
			ref = pin
		}
		pins = append(pins, ref)
	}
	return pins, nil
}
