// Package idcode decodes IEEE 1149.1 IDCODEs of FPGAs.
package idcode

import (
	"fmt"
	"regexp"
	"strconv"
)

// IDCode is a parsed 32-bit JTAG IDCODE.
type IDCode struct {
	Raw              uint32
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1], JEP106 bank and id
	HasIDCode        bool   // bit 0
}

// Parse splits a raw IDCODE into its fields.
func Parse(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8((raw >> 28) & 0xF),
		PartNumber:       uint16((raw >> 12) & 0xFFFF),
		ManufacturerCode: uint16((raw >> 1) & 0x7FF),
		HasIDCode:        raw&0x1 == 0x1,
	}
}

func (id IDCode) String() string {
	return fmt.Sprintf("0x%08x", id.Raw)
}

// Manufacturer is a JEP106 entry.
type Manufacturer struct {
	Code uint16
	Name string
}

// FPGA vendors, as encoded in bits [11:1].
var manufacturers = map[uint16]Manufacturer{
	0x021: {Code: 0x021, Name: "Lattice"},
	0x049: {Code: 0x049, Name: "Xilinx"},
	0x06E: {Code: 0x06E, Name: "Altera"},
}

// LookupManufacturer returns the manufacturer of a JEP106 code.
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	m, ok := manufacturers[code]
	if !ok {
		return Manufacturer{Code: code, Name: fmt.Sprintf("Unknown (0x%03X)", code)}, false
	}
	return m, true
}

// Device is a known FPGA.
type Device struct {
	Name         string // Vivado device name, e.g. "xc7a100t"
	Family       string
	Manufacturer Manufacturer
	IDCode       IDCode
}

type key struct {
	ManufacturerCode uint16
	PartNumber       uint16
}

var devices = make(map[key]Device)

func register(raw uint32, name, family string) {
	id := Parse(raw)
	m, _ := LookupManufacturer(id.ManufacturerCode)
	devices[key{id.ManufacturerCode, id.PartNumber}] = Device{
		Name:         name,
		Family:       family,
		Manufacturer: m,
		IDCode:       id,
	}
}

func init() {
	register(0x0362E093, "xc7a15t", "Artix-7")
	register(0x0362D093, "xc7a35t", "Artix-7")
	register(0x0362C093, "xc7a50t", "Artix-7")
	register(0x03632093, "xc7a75t", "Artix-7")
	register(0x03631093, "xc7a100t", "Artix-7")
	register(0x03636093, "xc7a200t", "Artix-7")
	register(0x0362F093, "xc7s50", "Spartan-7")
	register(0x03651093, "xc7k325t", "Kintex-7")
}

// Lookup identifies a device. The version field is ignored since silicon
// revisions share a part number.
func Lookup(raw uint32) (Device, bool) {
	id := Parse(raw)
	d, ok := devices[key{id.ManufacturerCode, id.PartNumber}]
	if !ok {
		m, _ := LookupManufacturer(id.ManufacturerCode)
		return Device{Name: "unknown", Manufacturer: m, IDCode: id}, false
	}
	d.IDCode = id
	return d, true
}

var idcodeLine = regexp.MustCompile(`(?i)idcode\s*:?\s*(0x[0-9a-f]+)`)

// Scan extracts the IDCODEs from the output of a JTAG chain detection
// (openFPGALoader --detect and similar), in chain order.
func Scan(text string) []uint32 {
	var ids []uint32
	for _, m := range idcodeLine.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseUint(m[1], 0, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(v))
	}
	return ids
}
