package memory

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// timaRates maps TAC bits 1-0 to T-cycles per TIMA increment:
// 4096 Hz, 262144 Hz, 65536 Hz, 16384 Hz.
var timaRates = [4]int{1024, 16, 64, 256}

// Timer implements DIV/TIMA/TMA/TAC. DIV is the high byte of a 16-bit
// counter that always runs; TIMA accumulates T-cycles and increments at
// the TAC-selected rate while TAC bit 2 is set.
type Timer struct {
	divider    uint16 // internal counter, DIV reads its high byte
	tima       uint8
	tma        uint8
	tac        uint8
	timaCycles int // T-cycles accumulated towards the next TIMA tick

	// RequestInterrupt raises the timer interrupt on TIMA overflow.
	RequestInterrupt func()
}

// Tick advances the timer by the given number of T-cycles.
func (t *Timer) Tick(cycles int) {
	t.divider += uint16(cycles)

	if !bit.IsSet(2, t.tac) {
		return
	}

	t.timaCycles += cycles
	rate := timaRates[t.tac&0x03]
	for t.timaCycles >= rate {
		t.timaCycles -= rate
		t.tima++
		if t.tima == 0 {
			t.tima = t.tma
			if t.RequestInterrupt != nil {
				t.RequestInterrupt()
			}
		}
	}
}

func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case addr.DIV:
		return uint8(t.divider >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case addr.DIV:
		// Any write clears the whole internal counter, the value is ignored.
		t.divider = 0
	case addr.TIMA:
		t.tima = value
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
	}
}
