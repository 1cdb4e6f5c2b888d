package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionHigh // 0xFF00-0xFFFF: I/O, HRAM, IE
)

// Peripheral handles reads and writes for a block of I/O registers.
// The PPU and APU implement it; the MMU routes their register ranges
// through here instead of the plain I/O byte array.
type Peripheral interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// SerialPort is the minimal interface for a device wired to SB/SC.
type SerialPort interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
}

// MMU decodes the 16-bit guest address space: cartridge, VRAM, WRAM and
// its echo, OAM, I/O registers, HRAM and IE. It owns the Cartridge and
// fans I/O accesses out to the timer, joypad, serial port and the
// attached PPU/APU peripherals.
type MMU struct {
	cart *Cartridge

	vram [0x2000]byte
	wram [0x2000]byte
	oam  [0xA0]byte
	hram [0x7F]byte
	io   [0x80]byte
	ie   byte

	regionMap [256]memRegion

	Timer  Timer
	Joypad *Joypad
	serial SerialPort

	// PPU and APU register blocks, attached after construction.
	PPU Peripheral
	APU Peripheral
}

// New creates an MMU with no cartridge inserted, equivalent to powering
// on with an empty slot.
func New() *MMU {
	return NewWithCartridge(NewCartridge())
}

// NewWithCartridge creates an MMU mapping the given cartridge.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := &MMU{cart: cart, Joypad: NewJoypad()}
	// Unmapped I/O space reads as open bus until something writes it.
	for i := range m.io {
		m.io[i] = 0xFF
	}
	m.io[addr.IF&0x7F] = 0x01
	m.Timer.RequestInterrupt = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.Joypad.RequestInterrupt = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.initRegionMap()
	return m
}

func (m *MMU) initRegionMap() {
	for page := 0; page < 256; page++ {
		switch {
		case page <= 0x7F:
			m.regionMap[page] = regionROM
		case page <= 0x9F:
			m.regionMap[page] = regionVRAM
		case page <= 0xBF:
			m.regionMap[page] = regionExtRAM
		case page <= 0xDF:
			m.regionMap[page] = regionWRAM
		case page <= 0xFD:
			m.regionMap[page] = regionEcho
		case page == 0xFE:
			m.regionMap[page] = regionOAM
		default:
			m.regionMap[page] = regionHigh
		}
	}
}

// SetSerial wires a serial device to SB/SC.
func (m *MMU) SetSerial(port SerialPort) { m.serial = port }

// Cartridge returns the currently mapped cartridge.
func (m *MMU) Cartridge() *Cartridge { return m.cart }

// VRAM exposes video RAM for the PPU's renderer.
func (m *MMU) VRAM() []byte { return m.vram[:] }

// OAM exposes object attribute memory for the PPU's sprite scan.
func (m *MMU) OAM() []byte { return m.oam[:] }

// Tick advances the memory-mapped peripherals that consume T-cycles
// directly: the timer and the serial port.
func (m *MMU) Tick(cycles int) {
	m.Timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
}

// RequestInterrupt sets the IF bit for the given interrupt source.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.io[addr.IF&0x7F] = bit.Set(uint8(interrupt), m.io[addr.IF&0x7F])
}

// Read returns the byte mapped at the given address.
func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.cart.Read(address)
	case regionVRAM:
		return m.vram[address-0x8000]
	case regionWRAM:
		return m.wram[address-0xC000]
	case regionEcho:
		return m.wram[address-0xE000]
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.oam[address-addr.OAMStart]
		}
		// 0xFEA0-0xFEFF is not usable.
		return 0xFF
	default:
		return m.readHigh(address)
	}
}

// Write stores a byte at the given address, honoring region semantics.
func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.cart.Write(address, value)
	case regionVRAM:
		m.vram[address-0x8000] = value
	case regionWRAM:
		m.wram[address-0xC000] = value
	case regionEcho:
		m.wram[address-0xE000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			m.oam[address-addr.OAMStart] = value
		}
	default:
		m.writeHigh(address, value)
	}
}

func (m *MMU) readHigh(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.Joypad.Read()
	case address == addr.SB || address == addr.SC:
		if m.serial != nil {
			return m.serial.Read(address)
		}
		return 0xFF
	case address >= addr.DIV && address <= addr.TAC:
		return m.Timer.Read(address)
	case address == addr.IF:
		// The unused upper bits always read as 1.
		return m.io[address&0x7F] | 0xE0
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		if m.APU != nil {
			return m.APU.ReadRegister(address)
		}
		return 0xFF
	case address >= addr.LCDC && address <= addr.WX:
		if address == addr.DMA {
			return m.io[address&0x7F]
		}
		if m.PPU != nil {
			return m.PPU.ReadRegister(address)
		}
		return m.io[address&0x7F]
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	case address == addr.IE:
		return m.ie
	case address < 0xFF80:
		return m.io[address&0x7F]
	}
	return 0xFF
}

func (m *MMU) writeHigh(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.Joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		if m.serial != nil {
			m.serial.Write(address, value)
		}
	case address >= addr.DIV && address <= addr.TAC:
		m.Timer.Write(address, value)
	case address == addr.IF:
		m.io[address&0x7F] = value & 0x1F
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		if m.APU != nil {
			m.APU.WriteRegister(address, value)
		}
	case address == addr.DMA:
		m.io[address&0x7F] = value
		m.dmaTransfer(value)
	case address >= addr.LCDC && address <= addr.WX:
		if m.PPU != nil {
			m.PPU.WriteRegister(address, value)
		} else {
			m.io[address&0x7F] = value
		}
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
	case address == addr.IE:
		m.ie = value & 0x1F
	case address < 0xFF80:
		m.io[address&0x7F] = value
	}
}

// dmaTransfer copies 160 bytes from value<<8 into OAM as one burst.
// The CPU side of DMA timing is not modeled; software that needs to
// stall during DMA runs its own HRAM wait loop, as on hardware.
func (m *MMU) dmaTransfer(value byte) {
	source := uint16(value) << 8
	if source >= 0xE000 {
		slog.Warn("DMA from unusual source", "source", fmt.Sprintf("0x%04X", source))
	}
	for i := uint16(0); i < 0xA0; i++ {
		m.oam[i] = m.Read(source + i)
	}
}

// InterruptEnable returns the IE register.
func (m *MMU) InterruptEnable() byte { return m.ie }

// InterruptFlags returns the IF register's live five bits.
func (m *MMU) InterruptFlags() byte { return m.io[addr.IF&0x7F] & 0x1F }
