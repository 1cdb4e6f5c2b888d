package cpu

import (
	"fmt"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// Bus is the CPU's view of the rest of the machine. Tick drives the
// clocked components (timer, PPU, serial) and is invoked by the CPU
// before every memory access becomes visible.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
}

// IllegalOpcodeError reports execution of an opcode the LR35902 does not
// implement. The CPU latches into a stall state; the caller may stop
// emulation or keep stepping (the stalled CPU only burns cycles).
type IllegalOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}

const interruptVectorBase uint16 = 0x0040

// CPU is the Sharp LR35902 core. All timing falls out of the tick
// helpers: each memory access and each internal delay advances the bus
// by one machine cycle (4 T-cycles) before proceeding, so an opcode's
// cycle count is exactly the sum of its ticks.
type CPU struct {
	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	ime        bool
	imePending bool // set by EI, takes effect after the next instruction
	halted     bool
	haltBug    bool // next opcode fetch must not advance PC
	stalled    bool // latched by an illegal opcode

	cycles uint64 // T-cycles consumed by the current Step
	total  uint64

	bus Bus
}

// New returns a CPU with post-bootrom register state.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
	return c
}

// Step services one pending interrupt or executes one instruction,
// ticking the bus as each memory access happens. It returns the number
// of T-cycles consumed, always a multiple of 4.
//
// An illegal opcode returns an *IllegalOpcodeError once; afterwards the
// CPU stays stalled and Step just consumes idle cycles.
func (c *CPU) Step() (int, error) {
	c.cycles = 0

	if c.stalled {
		c.tick()
		return c.flush(), nil
	}

	pending := c.pendingInterrupts()

	if c.ime && pending != 0 {
		c.serviceInterrupt(pending)
		return c.flush(), nil
	}

	if c.halted {
		if pending == 0 {
			c.tick()
			return c.flush(), nil
		}
		// Wake without service: IME is off, execution just resumes.
		c.halted = false
	}

	// A deferred EI from the previous instruction takes effect after the
	// one we are about to execute.
	deferredEI := c.imePending

	op := c.fetch()
	if illegalOpcodes[op] {
		c.stalled = true
		return c.flush(), &IllegalOpcodeError{Opcode: op, PC: c.pc}
	}
	opcodes[op](c)

	if deferredEI && c.imePending {
		c.imePending = false
		c.ime = true
	}

	return c.flush(), nil
}

func (c *CPU) flush() int {
	c.total += c.cycles
	return int(c.cycles)
}

// pendingInterrupts returns IE & IF restricted to the five live bits.
func (c *CPU) pendingInterrupts() uint8 {
	return c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & 0x1F
}

// serviceInterrupt dispatches the highest-priority pending interrupt:
// 8 T-cycles internal, PC pushed (8), vector loaded (4); 20 in total.
func (c *CPU) serviceInterrupt(pending uint8) {
	c.ime = false
	c.halted = false

	var index uint8
	for index = 0; index < 5; index++ {
		if bit.IsSet(index, pending) {
			break
		}
	}
	c.bus.Write(addr.IF, bit.Reset(index, c.bus.Read(addr.IF)))

	c.tick()
	c.tick()
	c.pushWord(c.pc)
	c.tick()
	c.pc = interruptVectorBase + uint16(index)*8
}

// tick advances the bus by one machine cycle with no memory access.
func (c *CPU) tick() {
	c.bus.Tick(4)
	c.cycles += 4
}

// read performs one ticked memory read. The clocks advance before the
// datum is observed, matching hardware ordering.
func (c *CPU) read(address uint16) uint8 {
	c.tick()
	return c.bus.Read(address)
}

// write performs one ticked memory write.
func (c *CPU) write(address uint16, value uint8) {
	c.tick()
	c.bus.Write(address, value)
}

// fetch reads the next opcode byte. Under the HALT bug the fetch does
// not advance PC, so the same byte is seen twice.
func (c *CPU) fetch() uint8 {
	op := c.read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	return op
}

// fetchByte reads the immediate operand byte and advances PC.
func (c *CPU) fetchByte() uint8 {
	n := c.read(c.pc)
	c.pc++
	return n
}

// fetchWord reads a 16-bit immediate, low byte first.
func (c *CPU) fetchWord() uint16 {
	low := c.fetchByte()
	high := c.fetchByte()
	return bit.Combine(high, low)
}

func (c *CPU) pushWord(value uint16) {
	c.sp--
	c.write(c.sp, bit.High(value))
	c.sp--
	c.write(c.sp, bit.Low(value))
}

func (c *CPU) popWord() uint16 {
	low := c.read(c.sp)
	c.sp++
	high := c.read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

// halt implements the three HALT cases: normal low-power halt with
// IME on, halt-and-wake with IME off and nothing pending, and the HALT
// bug when IME is off with an interrupt already pending.
func (c *CPU) halt() {
	if c.ime || c.pendingInterrupts() == 0 {
		c.halted = true
		return
	}
	c.haltBug = true
}

// Halted reports whether the CPU is in low-power halt.
func (c *CPU) Halted() bool { return c.halted }

// Stalled reports whether an illegal opcode locked the core.
func (c *CPU) Stalled() bool { return c.stalled }

// IME reports the interrupt master enable flag.
func (c *CPU) IME() bool { return c.ime }

// PC returns the program counter.
func (c *CPU) PC() uint16 { return c.pc }

// SP returns the stack pointer.
func (c *CPU) SP() uint16 { return c.sp }

// TotalCycles returns the T-cycles executed since power-on.
func (c *CPU) TotalCycles() uint64 { return c.total }
