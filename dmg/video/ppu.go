package video

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/memory"
)

// Mode is the PPU state for the current part of a scanline.
type Mode uint8

const (
	// ModeHBlank is the idle tail of a visible scanline.
	ModeHBlank Mode = iota
	// ModeVBlank covers scanlines 144-153.
	ModeVBlank
	// ModeOAMSearch is the sprite scan at the start of a scanline.
	ModeOAMSearch
	// ModeTransfer is the pixel transfer to the LCD.
	ModeTransfer
)

// T-cycle budgets per mode. Pixel transfer uses the base 172 with no
// per-sprite or fine-scroll penalties; this renderer rasterizes whole
// scanlines rather than pushing a pixel FIFO.
const (
	oamSearchCycles = 80
	transferCycles  = 172
	hblankCycles    = 204
	scanlineCycles  = oamSearchCycles + transferCycles + hblankCycles

	// VBlankLine is the first scanline of vertical blank.
	VBlankLine = 144
	lastLine   = 153
)

// LCDC bit indices.
const (
	lcdcBGEnable = iota
	lcdcSpriteEnable
	lcdcSpriteSize
	lcdcBGTileMap
	lcdcTileData
	lcdcWindowEnable
	lcdcWindowTileMap
	lcdcDisplayEnable
)

// STAT bit indices.
const (
	statCoincidence    = 2
	statHBlankIRQ      = 3
	statVBlankIRQ      = 4
	statOAMIRQ         = 5
	statCoincidenceIRQ = 6
)

// PPU runs the LCD controller state machine and rasterizes scanlines
// into the framebuffer. It owns the LCD register block and implements
// memory.Peripheral for it.
type PPU struct {
	mmu *memory.MMU
	fb  *FrameBuffer

	lcdc, stat uint8
	scy, scx   uint8
	ly, lyc    uint8
	bgp        uint8
	obp0, obp1 uint8
	wy, wx     uint8

	mode       Mode
	cycles     int
	windowLine int

	frameReady bool

	// scanline scratch buffers
	lineBuffer [FrameWidth]byte
	bgIndex    [FrameWidth]byte
}

// New creates a PPU with post-bootrom register state.
func New(mmu *memory.MMU) *PPU {
	return &PPU{
		mmu:  mmu,
		fb:   NewFrameBuffer(),
		lcdc: 0x91,
		stat: 0x85,
		bgp:  0xFC,
		obp0: 0xFF,
		obp1: 0xFF,
		mode: ModeOAMSearch,
	}
}

// FrameBuffer returns the frame being rendered into.
func (p *PPU) FrameBuffer() *FrameBuffer { return p.fb }

// FrameReady reports whether a VBlank was entered since the last call
// to ClearFrameReady.
func (p *PPU) FrameReady() bool { return p.frameReady }

// ClearFrameReady arms the flag for the next frame.
func (p *PPU) ClearFrameReady() { p.frameReady = false }

// LY returns the current scanline.
func (p *PPU) LY() uint8 { return p.ly }

// Mode returns the current PPU mode.
func (p *PPU) Mode() Mode { return p.mode }

// Tick advances the state machine by the given number of T-cycles.
// With the LCD disabled nothing moves and nothing is rendered.
func (p *PPU) Tick(cycles int) {
	if !bit.IsSet(lcdcDisplayEnable, p.lcdc) {
		return
	}

	p.cycles += cycles

	// Drain whole mode periods; a single Tick may cross several when
	// the caller batches cycles.
	for {
		switch p.mode {
		case ModeOAMSearch:
			if p.cycles < oamSearchCycles {
				return
			}
			p.cycles -= oamSearchCycles
			p.mode = ModeTransfer
		case ModeTransfer:
			if p.cycles < transferCycles {
				return
			}
			p.cycles -= transferCycles
			p.mode = ModeHBlank
			p.renderScanline()
			if bit.IsSet(statHBlankIRQ, p.stat) {
				p.mmu.RequestInterrupt(addr.STATInterrupt)
			}
		case ModeHBlank:
			if p.cycles < hblankCycles {
				return
			}
			p.cycles -= hblankCycles
			p.ly++

			if p.ly == VBlankLine {
				p.mode = ModeVBlank
				p.frameReady = true
				p.mmu.RequestInterrupt(addr.VBlankInterrupt)
				if bit.IsSet(statVBlankIRQ, p.stat) {
					p.mmu.RequestInterrupt(addr.STATInterrupt)
				}
			} else {
				p.enterOAMSearch()
			}
			p.compareLYC()
		case ModeVBlank:
			if p.cycles < scanlineCycles {
				return
			}
			p.cycles -= scanlineCycles
			p.ly++

			if p.ly > lastLine {
				p.ly = 0
				p.windowLine = 0
				p.enterOAMSearch()
			}
			p.compareLYC()
		}
	}
}

func (p *PPU) enterOAMSearch() {
	p.mode = ModeOAMSearch
	if bit.IsSet(statOAMIRQ, p.stat) {
		p.mmu.RequestInterrupt(addr.STATInterrupt)
	}
}

// compareLYC updates the coincidence bit after an LY change and raises
// the STAT interrupt when the comparison is armed. With the LCD off
// the comparison is suspended; it reruns on the next enable.
func (p *PPU) compareLYC() {
	if !bit.IsSet(lcdcDisplayEnable, p.lcdc) {
		return
	}
	if p.ly == p.lyc {
		becameSet := !bit.IsSet(statCoincidence, p.stat)
		p.stat = bit.Set(statCoincidence, p.stat)
		if becameSet && bit.IsSet(statCoincidenceIRQ, p.stat) {
			p.mmu.RequestInterrupt(addr.STATInterrupt)
		}
	} else {
		p.stat = bit.Reset(statCoincidence, p.stat)
	}
}

// ReadRegister implements memory.Peripheral for 0xFF40-0xFF4B.
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		// bit 7 is unused and reads 1; the low three bits are live state
		return 0x80 | p.stat&0x7C | uint8(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	}
	return 0xFF
}

// WriteRegister implements memory.Peripheral for 0xFF40-0xFF4B.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		wasOn := bit.IsSet(lcdcDisplayEnable, p.lcdc)
		p.lcdc = value
		isOn := bit.IsSet(lcdcDisplayEnable, p.lcdc)
		if wasOn && !isOn {
			// LCD off: LY parks at 0 in HBlank, nothing renders.
			p.ly = 0
			p.mode = ModeHBlank
			p.cycles = 0
			p.windowLine = 0
		} else if !wasOn && isOn {
			p.mode = ModeOAMSearch
			p.cycles = 0
			p.compareLYC()
		}
	case addr.STAT:
		// only the interrupt-select bits are writable
		p.stat = p.stat&0x07 | value&0x78
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LY:
		// read-only
	case addr.LYC:
		p.lyc = value
		p.compareLYC()
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}
