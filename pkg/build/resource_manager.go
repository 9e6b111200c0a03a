package build

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type resourceKey struct {
	name   string
	number int
}

func (k resourceKey) String() string {
	return fmt.Sprintf("%s#%d", k.name, k.number)
}

// ResourceManager holds the resources and connectors of a platform and
// tracks which resources a design has requested.
type ResourceManager struct {
	mu         sync.RWMutex
	resources  map[resourceKey]*Resource
	order      []resourceKey
	connectors map[resourceKey]*Connector
	connOrder  []resourceKey
	connPins   map[string]string // "p_4:1" → "A14"
	requested  map[resourceKey]*Port
	reqOrder   []resourceKey
}

// NewResourceManager creates a manager preloaded with the given resources and
// connectors.
func NewResourceManager(resources []*Resource, connectors []*Connector) (*ResourceManager, error) {
	rm := &ResourceManager{
		resources:  make(map[resourceKey]*Resource),
		connectors: make(map[resourceKey]*Connector),
		connPins:   make(map[string]string),
		requested:  make(map[resourceKey]*Port),
	}
	if err := rm.AddConnectors(connectors...); err != nil {
		return nil, err
	}
	if err := rm.AddResources(resources...); err != nil {
		return nil, err
	}
	return rm, nil
}

// AddResources validates and registers resources. A resource whose name and
// number are already registered is rejected, and so is one referencing a
// connector pin that is not registered yet.
func (rm *ResourceManager) AddResources(resources ...*Resource) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, r := range resources {
		if r == nil {
			return fmt.Errorf("%w: nil resource", ErrInvalidResource)
		}
		key := resourceKey{r.Name, r.Number}
		if _, exists := rm.resources[key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateResource, key)
		}
		if _, err := walkResource(r, rm.resolvePin); err != nil {
			return fmt.Errorf("resource %s: %w", key, err)
		}
		rm.resources[key] = r
		rm.order = append(rm.order, key)
	}
	return nil
}

// AddConnectors validates and registers connectors.
func (rm *ResourceManager) AddConnectors(connectors ...*Connector) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, c := range connectors {
		if c == nil {
			return fmt.Errorf("%w: nil connector", ErrInvalidResource)
		}
		key := resourceKey{c.Name, c.Number}
		if _, exists := rm.connectors[key]; exists {
			return fmt.Errorf("%w: %s_%d", ErrDuplicateConnector, c.Name, c.Number)
		}
		pins, err := connectorPins(c)
		if err != nil {
			return err
		}
		for k, pin := range pins {
			rm.connPins[c.ID()+":"+k] = pin
		}
		rm.connectors[key] = c
		rm.connOrder = append(rm.connOrder, key)
	}
	return nil
}

// ConnectorPins returns the key → pin table of a connector; unconnected
// positions are omitted.
func ConnectorPins(c *Connector) (map[string]string, error) {
	return connectorPins(c)
}

func connectorPins(c *Connector) (map[string]string, error) {
	pins := make(map[string]string)
	if c.Map != nil {
		for key, value := range c.Map {
			list, err := ParsePinSpec(value)
			if err != nil {
				return nil, fmt.Errorf("connector %s key %s: %w", c.ID(), key, err)
			}
			if len(list.Items) != 1 || list.Items[0].Conn != nil {
				return nil, fmt.Errorf("%w: connector %s key %s must name exactly one pin", ErrInvalidPinSpec, c.ID(), key)
			}
			if list.Items[0].NC {
				continue
			}
			pins[key] = list.Items[0].Name
		}
		return pins, nil
	}
	list, err := ParsePinSpec(c.Spec)
	if err != nil {
		return nil, fmt.Errorf("connector %s: %w", c.ID(), err)
	}
	for i, item := range list.Items {
		if item.Conn != nil {
			return nil, fmt.Errorf("%w: connector %s cannot reference another connector (%s)", ErrInvalidPinSpec, c.ID(), item)
		}
		if item.NC {
			continue
		}
		pins[strconv.Itoa(i+1)] = item.Name
	}
	return pins, nil
}

// Lookup returns a registered resource.
func (rm *ResourceManager) Lookup(name string, number int) (*Resource, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.resources[resourceKey{name, number}]
	if !ok {
		return nil, fmt.Errorf("%w: %s#%d", ErrResourceNotFound, name, number)
	}
	return r, nil
}

// LookupConnector returns a registered connector.
func (rm *ResourceManager) LookupConnector(name string, number int) (*Connector, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	c, ok := rm.connectors[resourceKey{name, number}]
	if !ok {
		return nil, fmt.Errorf("%w: %s_%d", ErrConnectorNotFound, name, number)
	}
	return c, nil
}

// Resources returns the registered resources in registration order.
func (rm *ResourceManager) Resources() []*Resource {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]*Resource, 0, len(rm.order))
	for _, k := range rm.order {
		out = append(out, rm.resources[k])
	}
	return out
}

// Connectors returns the registered connectors in registration order.
func (rm *ResourceManager) Connectors() []*Connector {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]*Connector, 0, len(rm.connOrder))
	for _, k := range rm.connOrder {
		out = append(out, rm.connectors[k])
	}
	return out
}

// ResolvePin maps a connector reference ("p_4:1") to its package pin. Plain
// package pins are returned unchanged.
func (rm *ResourceManager) ResolvePin(ref string) (string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.resolvePin(ref)
}

func (rm *ResourceManager) resolvePin(ref string) (string, error) {
	if !strings.Contains(ref, ":") {
		return ref, nil
	}
	pin, ok := rm.connPins[ref]
	if !ok {
		return "", fmt.Errorf("%w: no pin %s", ErrConnectorNotFound, ref)
	}
	return pin, nil
}

// Request resolves a resource into a port. Each resource can be requested
// once per manager.
func (rm *ResourceManager) Request(name string, number int) (*Port, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	key := resourceKey{name, number}
	r, ok := rm.resources[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, key)
	}
	if _, done := rm.requested[key]; done {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRequested, key)
	}
	port, err := walkResource(r, rm.resolvePin)
	if err != nil {
		return nil, err
	}
	rm.requested[key] = port
	rm.reqOrder = append(rm.reqOrder, key)
	return port, nil
}

// Describe resolves a resource like Request without marking it requested.
func (rm *ResourceManager) Describe(name string, number int) (*Port, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	key := resourceKey{name, number}
	r, ok := rm.resources[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, key)
	}
	return walkResource(r, rm.resolvePin)
}

// Ports returns the requested ports in request order.
func (rm *ResourceManager) Ports() []*Port {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]*Port, 0, len(rm.reqOrder))
	for _, k := range rm.reqOrder {
		out = append(out, rm.requested[k])
	}
	return out
}

// PortConstraint places one bit of a top-level port on a package pin.
type PortConstraint struct {
	Port  string
	Pin   string
	Attrs Attrs
}

// PortConstraints lists one constraint per bit of every requested port.
func (rm *ResourceManager) PortConstraints() []PortConstraint {
	var out []PortConstraint
	for _, port := range rm.Ports() {
		for _, sig := range port.Signals {
			if sig.Diff {
				out = append(out, bitConstraints(sig.Name+"__p", sig.Pins, sig.Attrs)...)
				out = append(out, bitConstraints(sig.Name+"__n", sig.PinsN, sig.Attrs)...)
				continue
			}
			out = append(out, bitConstraints(sig.Name+"__io", sig.Pins, sig.Attrs)...)
		}
	}
	return out
}

func bitConstraints(name string, pins []string, attrs Attrs) []PortConstraint {
	if len(pins) == 1 {
		return []PortConstraint{{Port: name, Pin: pins[0], Attrs: attrs}}
	}
	out := make([]PortConstraint, 0, len(pins))
	for i, pin := range pins {
		out = append(out, PortConstraint{
			Port:  fmt.Sprintf("%s[%d]", name, i),
			Pin:   pin,
			Attrs: attrs,
		})
	}
	return out
}

// ClockConstraint declares the frequency of a clock input port.
type ClockConstraint struct {
	Port      string
	Frequency float64
}

// ClockConstraints lists clocks on requested ports.
func (rm *ResourceManager) ClockConstraints() []ClockConstraint {
	var out []ClockConstraint
	for _, port := range rm.Ports() {
		for _, sig := range port.Signals {
			if sig.Clock == nil {
				continue
			}
			out = append(out, ClockConstraint{
				Port:      sig.PortNames()[0],
				Frequency: sig.Clock.Frequency,
			})
		}
	}
	return out
}

// PinOwner describes who uses a package pin.
type PinOwner struct {
	Resource  *Resource  // set for resource pins
	Connector *Connector // set for connector pins
	Signal    string     // subsignal path and bit, or connector key
}

func (o PinOwner) String() string {
	if o.Connector != nil {
		return o.Connector.ID() + ":" + o.Signal
	}
	if o.Signal == "" {
		return o.Resource.ID()
	}
	return o.Resource.ID() + "." + o.Signal
}

// PinMap maps every package pin used by a resource or exposed by a connector
// to its users. Nothing is requested.
func (rm *ResourceManager) PinMap() (map[string][]PinOwner, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	pins := make(map[string][]PinOwner)
	for _, k := range rm.order {
		r := rm.resources[k]
		port, err := walkResource(r, rm.resolvePin)
		if err != nil {
			return nil, err
		}
		for _, sig := range port.Signals {
			path := strings.Join(sig.Path, ".")
			add := func(list []string, suffix string) {
				for i, pin := range list {
					label := path + suffix
					if len(list) > 1 {
						label = fmt.Sprintf("%s[%d]", label, i)
					}
					pins[pin] = append(pins[pin], PinOwner{Resource: r, Signal: strings.TrimPrefix(label, ".")})
				}
			}
			if sig.Diff {
				add(sig.Pins, ".p")
				add(sig.PinsN, ".n")
			} else {
				add(sig.Pins, "")
			}
		}
	}
	for _, k := range rm.connOrder {
		c := rm.connectors[k]
		table, err := connectorPins(c)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(table))
		for key := range table {
			keys = append(keys, key)
		}
		SortConnectorKeys(keys)
		for _, key := range keys {
			pin := table[key]
			pins[pin] = append(pins[pin], PinOwner{Connector: c, Signal: key})
		}
	}
	return pins, nil
}

// SortConnectorKeys orders numeric keys numerically and the rest
// lexically after them.
func SortConnectorKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}
