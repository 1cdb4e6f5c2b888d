package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-dmg/dmg/addr"
)

// testBus is a flat 64 KiB RAM that counts the T-cycles it is ticked,
// so tests can check that instruction timing and bus ticking agree.
type testBus struct {
	mem   [0x10000]byte
	ticks int
}

func (b *testBus) Read(address uint16) byte         { return b.mem[address] }
func (b *testBus) Write(address uint16, value byte) { b.mem[address] = value }
func (b *testBus) Tick(cycles int)                  { b.ticks += cycles }

// newTestCPU loads a program at 0x0100 and returns the core on it.
func newTestCPU(program ...byte) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.mem[0x0100:], program)
	return New(bus), bus
}

func TestBootState(t *testing.T) {
	c, _ := newTestCPU()
	assert.Equal(t, uint16(0x01B0), c.getAF())
	assert.Equal(t, uint16(0x0013), c.getBC())
	assert.Equal(t, uint16(0x00D8), c.getDE())
	assert.Equal(t, uint16(0x014D), c.getHL())
	assert.Equal(t, uint16(0xFFFE), c.sp)
	assert.Equal(t, uint16(0x0100), c.pc)
	assert.False(t, c.ime)
}

func TestOpcodeTiming(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		setup   func(*CPU)
		cycles  int
	}{
		{"NOP", []byte{0x00}, nil, 4},
		{"LD BC,nn", []byte{0x01, 0x34, 0x12}, nil, 12},
		{"LD (BC),A", []byte{0x02}, nil, 8},
		{"INC BC", []byte{0x03}, nil, 8},
		{"LD B,n", []byte{0x06, 0x42}, nil, 8},
		{"LD (nn),SP", []byte{0x08, 0x00, 0xC0}, nil, 20},
		{"ADD HL,BC", []byte{0x09}, nil, 8},
		{"LD r,r", []byte{0x41}, nil, 4},
		{"LD r,(HL)", []byte{0x46}, nil, 8},
		{"LD (HL),r", []byte{0x70}, nil, 8},
		{"ADD A,r", []byte{0x80}, nil, 4},
		{"ADD A,(HL)", []byte{0x86}, nil, 8},
		{"ADD A,n", []byte{0xC6, 0x01}, nil, 8},
		{"INC (HL)", []byte{0x34}, nil, 12},
		{"LD (HL),n", []byte{0x36, 0x42}, nil, 12},
		{"PUSH BC", []byte{0xC5}, nil, 16},
		{"POP BC", []byte{0xC1}, nil, 12},
		{"JP nn", []byte{0xC3, 0x00, 0x02}, nil, 16},
		{"JP cc taken", []byte{0xC2, 0x00, 0x02}, func(c *CPU) { c.setFlag(flagZ, false) }, 16},
		{"JP cc not taken", []byte{0xCA, 0x00, 0x02}, func(c *CPU) { c.setFlag(flagZ, false) }, 12},
		{"JR taken", []byte{0x18, 0x05}, nil, 12},
		{"JR cc not taken", []byte{0x28, 0x05}, func(c *CPU) { c.setFlag(flagZ, false) }, 8},
		{"CALL nn", []byte{0xCD, 0x00, 0x02}, nil, 24},
		{"CALL cc not taken", []byte{0xCC, 0x00, 0x02}, func(c *CPU) { c.setFlag(flagZ, false) }, 12},
		{"RET", []byte{0xC9}, nil, 16},
		{"RET cc taken", []byte{0xC8}, func(c *CPU) { c.setFlag(flagZ, true) }, 20},
		{"RET cc not taken", []byte{0xC8}, func(c *CPU) { c.setFlag(flagZ, false) }, 8},
		{"RETI", []byte{0xD9}, nil, 16},
		{"RST", []byte{0xFF}, nil, 16},
		{"ADD SP,n", []byte{0xE8, 0x01}, nil, 16},
		{"LD HL,SP+n", []byte{0xF8, 0x01}, nil, 12},
		{"LD SP,HL", []byte{0xF9}, nil, 8},
		{"JP (HL)", []byte{0xE9}, nil, 4},
		{"LDH (n),A", []byte{0xE0, 0x80}, nil, 12},
		{"LD A,(nn)", []byte{0xFA, 0x00, 0xC0}, nil, 16},
		{"EI", []byte{0xFB}, nil, 4},
		{"CB RLC r", []byte{0xCB, 0x00}, nil, 8},
		{"CB BIT n,(HL)", []byte{0xCB, 0x46}, nil, 12},
		{"CB SET n,(HL)", []byte{0xCB, 0xC6}, nil, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, bus := newTestCPU(tt.program...)
			c.setHL(0xC000)
			c.sp = 0xFFF0
			if tt.setup != nil {
				tt.setup(c)
			}

			before := bus.ticks
			cycles, err := c.Step()
			require.NoError(t, err)
			assert.Equal(t, tt.cycles, cycles)
			assert.Equal(t, tt.cycles, bus.ticks-before, "bus ticks match returned cycles")
		})
	}
}

func TestInterruptService(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.ime = true
	bus.mem[addr.IE] = 0x04 // timer
	bus.mem[addr.IF] = 0x04

	cycles, err := c.Step()
	require.NoError(t, err)

	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0050), c.pc, "timer vector")
	assert.False(t, c.ime)
	assert.Equal(t, byte(0x00), bus.mem[addr.IF], "serviced bit cleared")

	// the old PC sits on the stack
	assert.Equal(t, byte(0x00), bus.mem[c.sp])
	assert.Equal(t, byte(0x01), bus.mem[c.sp+1])
}

func TestInterruptPriority(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.ime = true
	bus.mem[addr.IE] = 0x1F
	bus.mem[addr.IF] = 0x1F

	_, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0040), c.pc, "VBlank wins")
	assert.Equal(t, byte(0x1E), bus.mem[addr.IF])
}

func TestEIDelay(t *testing.T) {
	c, bus := newTestCPU(0xFB, 0x00, 0x00) // EI; NOP; NOP
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	c.Step() // EI
	assert.False(t, c.ime, "not enabled yet")

	c.Step() // NOP, no dispatch before it
	assert.True(t, c.ime, "enabled after the following instruction")
	assert.Equal(t, uint16(0x0102), c.pc)

	c.Step() // dispatch
	assert.Equal(t, uint16(0x0040), c.pc)
}

func TestDICancelsPendingEI(t *testing.T) {
	c, _ := newTestCPU(0xFB, 0xF3, 0x00) // EI; DI; NOP
	c.Step()
	c.Step()
	assert.False(t, c.ime)
	c.Step()
	assert.False(t, c.ime, "DI cancelled the deferred enable")
}

func TestHALTLowPower(t *testing.T) {
	c, bus := newTestCPU(0x76, 0x00) // HALT; NOP
	c.ime = true

	c.Step()
	assert.True(t, c.halted)

	cycles, _ := c.Step()
	assert.Equal(t, 4, cycles, "halted steps idle")
	assert.True(t, c.halted)

	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01
	c.Step()
	assert.False(t, c.halted)
	assert.Equal(t, uint16(0x0040), c.pc, "woken by service")
}

func TestHALTWakeWithoutService(t *testing.T) {
	c, bus := newTestCPU(0x76, 0x3C) // HALT; INC A
	c.ime = false

	c.Step()
	assert.True(t, c.halted)

	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01
	a := c.a
	c.Step()
	assert.False(t, c.halted)
	assert.Equal(t, a+1, c.a, "resumed at INC A, no service")
	assert.Equal(t, byte(0x01), bus.mem[addr.IF], "IF untouched")
}

func TestHALTBug(t *testing.T) {
	c, bus := newTestCPU(0x76, 0x3C, 0x00) // HALT; INC A; NOP
	c.ime = false
	c.a = 0
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	c.Step() // HALT does not halt, arms the bug
	assert.False(t, c.halted)
	assert.True(t, c.haltBug)

	c.Step() // INC A executes but PC stays on it
	assert.Equal(t, uint8(0x01), c.a)
	assert.Equal(t, uint16(0x0101), c.pc)

	c.Step() // INC A executes again, PC moves on
	assert.Equal(t, uint8(0x02), c.a)
	assert.Equal(t, uint16(0x0102), c.pc)
}

func TestIllegalOpcode(t *testing.T) {
	c, _ := newTestCPU(0xD3)

	_, err := c.Step()
	var fault *IllegalOpcodeError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, uint8(0xD3), fault.Opcode)
	assert.Equal(t, uint16(0x0101), fault.PC)
	assert.True(t, c.Stalled())

	cycles, err := c.Step()
	require.NoError(t, err, "stalled core steps without error")
	assert.Equal(t, 4, cycles)
}

// TestCycleAccounting runs random code and checks two global laws:
// returned cycles always equal observed bus ticks, and the low nibble
// of F stays zero.
func TestCycleAccounting(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	bus := &testBus{}
	for i := range bus.mem {
		bus.mem[i] = byte(rng.Intn(256))
	}
	c := New(bus)

	total := 0
	for i := 0; i < 10000; i++ {
		cycles, _ := c.Step()
		total += cycles

		require.Equal(t, total, bus.ticks, "step %d", i)
		require.Zero(t, c.f&0x0F, "step %d: F low nibble", i)
		require.Zero(t, cycles%4, "step %d: cycles are machine cycles", i)
	}
}
