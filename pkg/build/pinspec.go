package build

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// PinSpecLexer tokenizes pin lists such as "M4 P4 M6", "p_4:1 p_4:2" or the
// positional connector spec "A14 - D13".
var PinSpecLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Connector prefix, e.g. "p_4:" or "ftdi_0:"
	{Name: "Conn", Pattern: `[A-Za-z][A-Za-z0-9_]*_[0-9]+:`},

	// Not connected
	{Name: "NC", Pattern: `-`},

	// Package pin or connector key
	{Name: "Name", Pattern: `[A-Za-z0-9_]+`},
})

// PinList is the parsed form of a pin spec.
type PinList struct {
	Items []*PinItem `parser:"@@*"`
}

// PinItem is one entry of a pin spec.
type PinItem struct {
	Conn *ConnPin `parser:"  @@"`
	NC   bool     `parser:"| @NC"`
	Name string   `parser:"| @Name"`
}

// ConnPin references a pin through a connector.
type ConnPin struct {
	Prefix string `parser:"@Conn"`
	Key    string `parser:"@Name"`
}

// Connector splits the prefix into connector name and number.
func (c *ConnPin) Connector() (ConnectorRef, error) {
	prefix := strings.TrimSuffix(c.Prefix, ":")
	idx := strings.LastIndex(prefix, "_")
	if idx <= 0 {
		return ConnectorRef{}, fmt.Errorf("%w: malformed connector reference %q", ErrInvalidPinSpec, c.Prefix)
	}
	number, err := strconv.Atoi(prefix[idx+1:])
	if err != nil {
		return ConnectorRef{}, fmt.Errorf("%w: connector number in %q: %v", ErrInvalidPinSpec, c.Prefix, err)
	}
	return ConnectorRef{Name: prefix[:idx], Number: number}, nil
}

// String renders the item back into spec form.
func (p *PinItem) String() string {
	switch {
	case p.Conn != nil:
		return p.Conn.Prefix + p.Conn.Key
	case p.NC:
		return "-"
	default:
		return p.Name
	}
}

// PinSpecParser parses pin specs.
type PinSpecParser struct {
	parser *participle.Parser[PinList]
}

// NewPinSpecParser creates a new pin spec parser instance.
func NewPinSpecParser() (*PinSpecParser, error) {
	parser, err := participle.Build[PinList](
		participle.Lexer(PinSpecLexer),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pin spec parser: %w", err)
	}
	return &PinSpecParser{parser: parser}, nil
}

// ParseString parses a pin spec.
func (p *PinSpecParser) ParseString(spec string) (*PinList, error) {
	list, err := p.parser.ParseString("", spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPinSpec, spec, err)
	}
	return list, nil
}

var (
	defaultPinSpecParser     *PinSpecParser
	defaultPinSpecParserErr  error
	defaultPinSpecParserOnce sync.Once
)

// ParsePinSpec parses spec with a shared parser.
func ParsePinSpec(spec string) (*PinList, error) {
	defaultPinSpecParserOnce.Do(func() {
		defaultPinSpecParser, defaultPinSpecParserErr = NewPinSpecParser()
	})
	if defaultPinSpecParserErr != nil {
		return nil, defaultPinSpecParserErr
	}
	return defaultPinSpecParser.ParseString(spec)
}
