package cpu

import "github.com/valerio/go-dmg/dmg/bit"

// Flag is one of the four condition flags in the high nibble of F.
type Flag uint8

const (
	flagZ Flag = 0x80 // zero
	flagN Flag = 0x40 // subtract
	flagH Flag = 0x20 // half carry
	flagC Flag = 0x10 // carry
)

func (c *CPU) setFlag(flag Flag, condition bool) {
	if condition {
		c.f |= uint8(flag)
	} else {
		c.f &^= uint8(flag)
	}
}

func (c *CPU) flag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// carryBit returns 1 when the carry flag is set, 0 otherwise.
func (c *CPU) carryBit() uint8 {
	if c.flag(flagC) {
		return 1
	}
	return 0
}

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// the low nibble of F does not exist in hardware
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// Registers is a snapshot of the CPU register file, used by state
// serialization and by debug frontends.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME, IMEPending        bool
	Halted, HaltBug        bool
	Stalled                bool
}

// Snapshot returns the current register file.
func (c *CPU) Snapshot() Registers {
	return Registers{
		A: c.a, F: c.f, B: c.b, C: c.c,
		D: c.d, E: c.e, H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
		IME: c.ime, IMEPending: c.imePending,
		Halted: c.halted, HaltBug: c.haltBug,
		Stalled: c.stalled,
	}
}

// Restore overwrites the register file from a snapshot.
func (c *CPU) Restore(r Registers) {
	c.a, c.f = r.A, r.F&0xF0
	c.b, c.c = r.B, r.C
	c.d, c.e = r.D, r.E
	c.h, c.l = r.H, r.L
	c.sp, c.pc = r.SP, r.PC
	c.ime, c.imePending = r.IME, r.IMEPending
	c.halted, c.haltBug = r.Halted, r.HaltBug
	c.stalled = r.Stalled
}

// FlagString renders the F register as "ZNHC" with dashes for clear
// flags, for traces and debug overlays.
func (c *CPU) FlagString() string {
	out := []byte("----")
	if c.flag(flagZ) {
		out[0] = 'Z'
	}
	if c.flag(flagN) {
		out[1] = 'N'
	}
	if c.flag(flagH) {
		out[2] = 'H'
	}
	if c.flag(flagC) {
		out[3] = 'C'
	}
	return string(out)
}
