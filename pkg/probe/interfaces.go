// Package probe finds FPGA boards attached over USB.
package probe

import (
	"context"
	"fmt"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards/neso"
)

// DeviceKind categorizes detected USB devices.
type DeviceKind string

const (
	DeviceKindBoard   DeviceKind = "board"   // a known board
	DeviceKindGeneric DeviceKind = "generic" // a bridge chip used by many boards
)

// DeviceInfo describes a detected USB device.
type DeviceInfo struct {
	Kind        DeviceKind
	Board       string // registry name when Kind is DeviceKindBoard
	Description string
	VendorID    uint16
	ProductID   uint16
	Bus         int
	Address     int
}

// Label returns a user-friendly description for the device.
func (d DeviceInfo) Label() string {
	if d.Description != "" {
		return d.Description
	}
	return fmt.Sprintf("Device %04X:%04X", d.VendorID, d.ProductID)
}

type knownUSBDevice struct {
	Kind        DeviceKind
	Board       string
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownDevices = []knownUSBDevice{
	{Kind: DeviceKindBoard, Board: "neso", VendorID: neso.USBVendorID, ProductID: neso.USBProductID,
		Description: "Numato Lab Neso Artix-7"},
	{Kind: DeviceKindGeneric, VendorID: 0x0403, ProductID: 0x6010, Description: "FTDI FT2232H"},
	{Kind: DeviceKindGeneric, VendorID: 0x0403, ProductID: 0x6014, Description: "FTDI FT232H"},
}

// Classify matches a VID/PID pair against the known devices.
func Classify(vid, pid uint16, bus, address int) (DeviceInfo, bool) {
	for _, known := range knownDevices {
		if vid == known.VendorID && pid == known.ProductID {
			return DeviceInfo{
				Kind:        known.Kind,
				Board:       known.Board,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
				Bus:         bus,
				Address:     address,
			}, true
		}
	}
	return DeviceInfo{}, false
}

// DiscoverDevices enumerates attached USB devices that match a known board
// or bridge chip. Devices are only inspected, never opened.
func DiscoverDevices(ctx context.Context) ([]DeviceInfo, error) {
	var results []DeviceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if info, ok := Classify(uint16(desc.Vendor), uint16(desc.Product), desc.Bus, desc.Address); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, fmt.Errorf("probe: enumerate USB: %w", err)
	}
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}
