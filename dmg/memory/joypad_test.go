package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypadIdle(t *testing.T) {
	j := NewJoypad()
	assert.Equal(t, uint8(0xFF), j.Read(), "nothing selected, lines float high")
}

func TestJoypadRows(t *testing.T) {
	j := NewJoypad()
	j.Press(ButtonRight)
	j.Press(ButtonA)

	j.Write(0x20) // select d-pad row (bit 4 low)
	assert.Equal(t, uint8(0b1110), j.Read()&0x0F, "Right is low")

	j.Write(0x10) // select action row (bit 5 low)
	assert.Equal(t, uint8(0b1110), j.Read()&0x0F, "A is low")

	j.Write(0x00) // both rows: AND of the lines
	assert.Equal(t, uint8(0b1110), j.Read()&0x0F)

	j.Release(ButtonRight)
	j.Release(ButtonA)
	j.Write(0x20)
	assert.Equal(t, uint8(0x0F), j.Read()&0x0F)
}

func TestJoypadUpperBitsReadHigh(t *testing.T) {
	j := NewJoypad()
	j.Write(0x00)
	assert.Equal(t, uint8(0xC0), j.Read()&0xC0)
}

func TestJoypadInterrupt(t *testing.T) {
	j := NewJoypad()
	fired := 0
	j.RequestInterrupt = func() { fired++ }

	j.Write(0x20) // d-pad selected
	j.Press(ButtonDown)
	assert.Equal(t, 1, fired, "falling edge on a selected line")

	j.Press(ButtonDown)
	assert.Equal(t, 1, fired, "no edge while held")

	j.Press(ButtonStart)
	assert.Equal(t, 1, fired, "action row not selected")

	j.Release(ButtonDown)
	j.Press(ButtonDown)
	assert.Equal(t, 2, fired)
}
