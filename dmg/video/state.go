package video

// State is a serializable image of the PPU: registers, state machine
// position and the framebuffer being built.
type State struct {
	LCDC, STAT uint8
	SCY, SCX   uint8
	LY, LYC    uint8
	BGP        uint8
	OBP0, OBP1 uint8
	WY, WX     uint8

	Mode       uint8
	Cycles     int
	WindowLine int
	FrameReady bool

	Frame []byte
}

// SaveState captures the PPU state.
func (p *PPU) SaveState() State {
	return State{
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		Mode:       uint8(p.mode),
		Cycles:     p.cycles,
		WindowLine: p.windowLine,
		FrameReady: p.frameReady,
		Frame:      append([]byte(nil), p.fb.pixels[:]...),
	}
}

// RestoreState overwrites the PPU from a snapshot.
func (p *PPU) RestoreState(s State) {
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.mode = Mode(s.Mode)
	p.cycles = s.Cycles
	p.windowLine = s.WindowLine
	p.frameReady = s.FrameReady
	copy(p.fb.pixels[:], s.Frame)
}
