package memory

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// Header field offsets within the cartridge image.
const (
	titleAddress         = 0x0134
	titleLength          = 16
	cartridgeTypeAddress = 0x0147
	romSizeAddress       = 0x0148
	ramSizeAddress       = 0x0149
	versionNumberAddress = 0x014C
)

// ramSizes maps header RAM size codes to byte sizes. Codes outside the
// table are treated as no RAM.
var ramSizes = map[uint8]int{
	0x00: 0,
	0x01: 2 * 1024,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

// batteryTypes are the cartridge type codes that carry a battery and
// therefore persist their external RAM.
var batteryTypes = map[uint8]bool{
	0x03: true, 0x06: true, 0x09: true, 0x0F: true,
	0x10: true, 0x13: true, 0x1B: true, 0x1E: true,
}

// rtcTypes are the MBC3 variants with a real-time clock.
var rtcTypes = map[uint8]bool{0x0F: true, 0x10: true}

// Cartridge owns the ROM image, its parsed header fields and the bank
// controller that pages it into the address space.
type Cartridge struct {
	data     []byte
	mbc      MBC
	title    string
	cartType uint8
	version  uint8
	romSize  int
	ramSize  int
	battery  bool
}

// NewCartridge creates an empty 32 KiB cartridge. Useful for tests and
// for powering on without a ROM inserted.
func NewCartridge() *Cartridge {
	data := make([]byte, 0x8000)
	return &Cartridge{
		data:    data,
		title:   "(none)",
		romSize: len(data),
		mbc:     NewNoMBC(data),
	}
}

// NewCartridgeWithData parses the header of a ROM image and builds the
// matching bank controller.
//
// Malformed headers are not fatal: an out-of-table ROM size code falls
// back to the actual image length, an out-of-table RAM size code to no
// RAM, and an unknown cartridge type to MBC1 behavior.
func NewCartridgeWithData(data []byte) *Cartridge {
	c := &Cartridge{data: data}

	if len(data) > ramSizeAddress {
		c.cartType = data[cartridgeTypeAddress]
		c.title = cleanTitle(data[titleAddress : titleAddress+titleLength])
		if len(data) > versionNumberAddress {
			c.version = data[versionNumberAddress]
		}

		if size, ok := romSizeFromCode(data[romSizeAddress]); ok {
			c.romSize = size
		} else {
			slog.Warn("Unknown ROM size code, using image length",
				"code", fmt.Sprintf("0x%02X", data[romSizeAddress]), "length", len(data))
			c.romSize = len(data)
		}
		if size, ok := ramSizes[data[ramSizeAddress]]; ok {
			c.ramSize = size
		} else {
			slog.Warn("Unknown RAM size code, assuming no RAM",
				"code", fmt.Sprintf("0x%02X", data[ramSizeAddress]))
		}
	} else {
		c.romSize = len(data)
	}

	c.battery = batteryTypes[c.cartType]
	c.mbc = newMBCForType(c.cartType, data, c.ramSize)

	slog.Info("Loaded cartridge",
		"title", c.title,
		"type", fmt.Sprintf("0x%02X", c.cartType),
		"rom", c.romSize,
		"ram", c.ramSize,
		"battery", c.battery)

	return c
}

// newMBCForType selects the bank controller for a cartridge type byte.
// Unsupported types degrade to MBC1, which runs the large majority of
// software that would otherwise fail outright.
func newMBCForType(cartType uint8, data []byte, ramSize int) MBC {
	switch cartType {
	case 0x00, 0x08, 0x09:
		return NewNoMBC(data)
	case 0x01, 0x02, 0x03:
		return NewMBC1(data, ramSize)
	case 0x05, 0x06:
		return NewMBC2(data)
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(data, ramSize, rtcTypes[cartType], nil)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(data, ramSize)
	default:
		slog.Warn("Unsupported cartridge type, falling back to MBC1",
			"type", fmt.Sprintf("0x%02X", cartType))
		return NewMBC1(data, ramSize)
	}
}

func romSizeFromCode(code uint8) (int, bool) {
	if code > 0x08 {
		return 0, false
	}
	return 32 * 1024 << code, true
}

// Read reads a byte through the bank controller (ROM or external RAM).
func (c *Cartridge) Read(address uint16) uint8 {
	return c.mbc.Read(address)
}

// Write routes a byte to the bank controller (control registers or
// external RAM).
func (c *Cartridge) Write(address uint16, value uint8) {
	c.mbc.Write(address, value)
}

// Title returns the cleaned ASCII title from the header.
func (c *Cartridge) Title() string { return c.title }

// Type returns the raw cartridge type byte (header offset 0x147).
func (c *Cartridge) Type() uint8 { return c.cartType }

// RAMSize returns the external RAM size in bytes.
func (c *Cartridge) RAMSize() int { return c.ramSize }

// HasBattery reports whether external RAM survives power-off.
func (c *Cartridge) HasBattery() bool { return c.battery }

// DumpRAM returns a copy of the external RAM for battery persistence.
func (c *Cartridge) DumpRAM() []byte {
	ram := c.mbc.RAM()
	out := make([]byte, len(ram))
	copy(out, ram)
	return out
}

// RestoreRAM hydrates external RAM from a previously dumped image.
// Content longer than the cartridge RAM is rejected.
func (c *Cartridge) RestoreRAM(data []byte) error {
	ram := c.mbc.RAM()
	if len(data) > len(ram) {
		return fmt.Errorf("save data is %d bytes, cartridge RAM is %d", len(data), len(ram))
	}
	copy(ram, data)
	return nil
}

// cleanTitle converts the raw header title to printable ASCII: nulls
// become spaces, other unprintable bytes become '?', and the result is
// trimmed.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case !unicode.IsPrint(r):
			r = '?'
		}
		runes = append(runes, r)
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(untitled)"
	}
	return title
}
