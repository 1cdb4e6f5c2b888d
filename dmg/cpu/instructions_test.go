package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddA(t *testing.T) {
	tests := []struct {
		name       string
		a, value   uint8
		want       uint8
		z, n, h, c bool
	}{
		{"plain", 0x01, 0x02, 0x03, false, false, false, false},
		{"half carry", 0x0F, 0x01, 0x10, false, false, true, false},
		{"carry and zero", 0xFF, 0x01, 0x00, true, false, true, true},
		{"carry only", 0xF0, 0x20, 0x10, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			c.addA(tt.value)
			assert.Equal(t, tt.want, c.a)
			assertFlags(t, c, tt.z, tt.n, tt.h, tt.c)
		})
	}
}

func TestSubA(t *testing.T) {
	tests := []struct {
		name       string
		a, value   uint8
		want       uint8
		z, n, h, c bool
	}{
		{"plain", 0x03, 0x01, 0x02, false, true, false, false},
		{"zero", 0x42, 0x42, 0x00, true, true, false, false},
		{"borrow", 0x00, 0x01, 0xFF, false, true, true, true},
		{"half borrow", 0x10, 0x01, 0x0F, false, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			c.subA(tt.value)
			assert.Equal(t, tt.want, c.a)
			assertFlags(t, c, tt.z, tt.n, tt.h, tt.c)
		})
	}
}

func TestAdcSbcUseCarry(t *testing.T) {
	c, _ := newTestCPU()
	c.a = 0x01
	c.setFlag(flagC, true)
	c.adcA(0x01)
	assert.Equal(t, uint8(0x03), c.a)

	c.a = 0x03
	c.setFlag(flagC, true)
	c.sbcA(0x01)
	assert.Equal(t, uint8(0x01), c.a)
}

func TestDAA(t *testing.T) {
	tests := []struct {
		name        string
		a, f        uint8
		wantA       uint8
		wantZ, wantC bool
	}{
		// 0x15 + 0x27 = 0x3C, then DAA -> 0x42
		{"after ADD with low-nibble overflow", 0x3C, 0x00, 0x42, false, false},
		{"no adjustment needed", 0x42, 0x00, 0x42, false, false},
		{"high nibble correction sets carry", 0x9A, 0x00, 0x00, true, true},
		{"half carry input", 0x03, uint8(flagH), 0x09, false, false},
		{"after SUB with half borrow", 0x0F, uint8(flagN | flagH), 0x09, false, false},
		{"carry input after SUB", 0x70, uint8(flagN | flagC), 0x10, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			c.f = tt.f
			c.daa()
			assert.Equal(t, tt.wantA, c.a)
			assert.Equal(t, tt.wantZ, c.flag(flagZ), "Z")
			assert.Equal(t, tt.wantC, c.flag(flagC), "C")
			assert.False(t, c.flag(flagH), "H always cleared")
			assert.Equal(t, tt.f&uint8(flagN) != 0, c.flag(flagN), "N preserved")
		})
	}
}

func TestDAALawEndToEnd(t *testing.T) {
	// ADD A,0x27 then DAA with A=0x15: BCD 15+27=42.
	c, _ := newTestCPU(0xC6, 0x27, 0x27) // ADD A,n; DAA
	c.a = 0x15
	c.f = 0
	c.Step()
	c.Step()
	assert.Equal(t, uint8(0x42), c.a)
	assertFlags(t, c, false, false, false, false)
}

func TestAddHLHalfCarryFromBit11(t *testing.T) {
	c, _ := newTestCPU()
	c.setHL(0x0FFF)
	c.addHL(0x0001)
	assert.Equal(t, uint16(0x1000), c.getHL())
	assert.True(t, c.flag(flagH))
	assert.False(t, c.flag(flagC))

	c.setHL(0xFFFF)
	c.addHL(0x0001)
	assert.Equal(t, uint16(0x0000), c.getHL())
	assert.True(t, c.flag(flagC))
}

func TestAddHLPreservesZ(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(flagZ, true)
	c.setHL(0x1234)
	c.addHL(0x0001)
	assert.True(t, c.flag(flagZ))
}

func TestSPOffsetFlags(t *testing.T) {
	tests := []struct {
		name   string
		sp     uint16
		offset uint8
		want   uint16
		h, c   bool
	}{
		{"positive no carries", 0x0000, 0x01, 0x0001, false, false},
		{"low byte carry", 0x00FF, 0x01, 0x0100, true, true},
		{"half carry only", 0x000F, 0x01, 0x0010, true, false},
		{"negative offset", 0x0100, 0xFF, 0x00FF, false, false}, // -1
		{"negative with low-byte carries", 0x0001, 0xFF, 0x0000, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.sp = tt.sp
			got := c.spOffset(tt.offset)
			assert.Equal(t, tt.want, got)
			assertFlags(t, c, false, false, tt.h, tt.c)
		})
	}
}

func TestRotates(t *testing.T) {
	c, _ := newTestCPU()

	c.a = 0x80
	c.rlca()
	assert.Equal(t, uint8(0x01), c.a)
	assert.True(t, c.flag(flagC))
	assert.False(t, c.flag(flagZ), "accumulator rotates never set Z")

	assert.Equal(t, uint8(0x00), c.sla(0x80))
	assert.True(t, c.flag(flagZ), "CB shifts set Z on zero result")
	assert.True(t, c.flag(flagC))

	assert.Equal(t, uint8(0xC1), c.sra(0x82))
	assert.False(t, c.flag(flagC))

	assert.Equal(t, uint8(0x21), c.swap(0x12))
}

func TestBitTest(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(flagC, true)

	c.bitTest(7, 0x80)
	assert.False(t, c.flag(flagZ))
	assert.True(t, c.flag(flagH))
	assert.True(t, c.flag(flagC), "C untouched")

	c.bitTest(0, 0x80)
	assert.True(t, c.flag(flagZ))
}

func TestIncDecHalfCarry(t *testing.T) {
	c, _ := newTestCPU()

	assert.Equal(t, uint8(0x10), c.inc8(0x0F))
	assert.True(t, c.flag(flagH))

	assert.Equal(t, uint8(0x00), c.inc8(0xFF))
	assert.True(t, c.flag(flagZ))

	assert.Equal(t, uint8(0x0F), c.dec8(0x10))
	assert.True(t, c.flag(flagH))
	assert.True(t, c.flag(flagN))
}

func assertFlags(t *testing.T, c *CPU, z, n, h, carry bool) {
	t.Helper()
	assert.Equal(t, z, c.flag(flagZ), "Z flag")
	assert.Equal(t, n, c.flag(flagN), "N flag")
	assert.Equal(t, h, c.flag(flagH), "H flag")
	assert.Equal(t, carry, c.flag(flagC), "C flag")
}
