package memory

// State is a serializable image of everything the MMU owns, including
// the timer, joypad lines, the cartridge's external RAM and its bank
// controller registers. ROM contents are not part of it; a snapshot is
// only valid with the same cartridge inserted.
type State struct {
	VRAM []byte
	WRAM []byte
	OAM  []byte
	HRAM []byte
	IO   []byte
	IE   byte

	Timer  TimerState
	Joypad JoypadState

	CartRAM []byte
	MBC     MBCState
}

// TimerState mirrors Timer for serialization.
type TimerState struct {
	Divider    uint16
	TIMA       uint8
	TMA        uint8
	TAC        uint8
	TIMACycles int
}

// JoypadState mirrors Joypad for serialization.
type JoypadState struct {
	Buttons uint8
	DPad    uint8
	Selects uint8
}

// SaveState captures the MMU's memory and peripheral state.
func (m *MMU) SaveState() State {
	return State{
		VRAM: append([]byte(nil), m.vram[:]...),
		WRAM: append([]byte(nil), m.wram[:]...),
		OAM:  append([]byte(nil), m.oam[:]...),
		HRAM: append([]byte(nil), m.hram[:]...),
		IO:   append([]byte(nil), m.io[:]...),
		IE:   m.ie,
		Timer: TimerState{
			Divider:    m.Timer.divider,
			TIMA:       m.Timer.tima,
			TMA:        m.Timer.tma,
			TAC:        m.Timer.tac,
			TIMACycles: m.Timer.timaCycles,
		},
		Joypad: JoypadState{
			Buttons: m.Joypad.buttons,
			DPad:    m.Joypad.dpad,
			Selects: m.Joypad.selects,
		},
		CartRAM: m.cart.DumpRAM(),
		MBC:     m.cart.mbc.SaveState(),
	}
}

// RestoreState overwrites the MMU from a snapshot.
func (m *MMU) RestoreState(s State) error {
	copy(m.vram[:], s.VRAM)
	copy(m.wram[:], s.WRAM)
	copy(m.oam[:], s.OAM)
	copy(m.hram[:], s.HRAM)
	copy(m.io[:], s.IO)
	m.ie = s.IE

	m.Timer.divider = s.Timer.Divider
	m.Timer.tima = s.Timer.TIMA
	m.Timer.tma = s.Timer.TMA
	m.Timer.tac = s.Timer.TAC
	m.Timer.timaCycles = s.Timer.TIMACycles

	m.Joypad.buttons = s.Joypad.Buttons
	m.Joypad.dpad = s.Joypad.DPad
	m.Joypad.selects = s.Joypad.Selects

	m.cart.mbc.RestoreState(s.MBC)
	return m.cart.RestoreRAM(s.CartRAM)
}
