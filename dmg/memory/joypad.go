package memory

import "github.com/valerio/go-dmg/dmg/bit"

// Button is one of the eight physical Game Boy buttons.
type Button uint8

const (
	ButtonRight Button = iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

// Joypad models the P1 button matrix. The low four bits of each row are
// active-low button lines; software selects a row by clearing bit 4
// (d-pad) or bit 5 (action buttons).
type Joypad struct {
	buttons uint8 // A/B/Select/Start lines, 0 = pressed
	dpad    uint8 // Right/Left/Up/Down lines, 0 = pressed
	selects uint8 // last written bits 5-4

	// RequestInterrupt raises the joypad interrupt when a selected line
	// sees a falling edge.
	RequestInterrupt func()
}

// NewJoypad creates a joypad with every button released.
func NewJoypad() *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F, selects: 0x30}
}

// Read composes P1 from the selector bits and the selected rows.
// Bits 7-6 always read as 1; with no row selected the lines float high.
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | j.selects | 0x0F

	if !bit.IsSet(4, j.selects) {
		result &= 0xF0 | j.dpad
	}
	if !bit.IsSet(5, j.selects) {
		result &= 0xF0 | j.buttons
	}
	return result
}

// Write stores the row selector bits; all other bits are read-only.
func (j *Joypad) Write(value uint8) {
	j.selects = value & 0x30
}

// Press drives a button line low, raising the joypad interrupt if the
// line's row is currently selected.
func (j *Joypad) Press(b Button) {
	row, index := j.line(b)
	if !bit.IsSet(index, *row) {
		return // already pressed, no edge
	}
	*row = bit.Reset(index, *row)

	selected := (row == &j.dpad && !bit.IsSet(4, j.selects)) ||
		(row == &j.buttons && !bit.IsSet(5, j.selects))
	if selected && j.RequestInterrupt != nil {
		j.RequestInterrupt()
	}
}

// Release returns a button line high.
func (j *Joypad) Release(b Button) {
	row, index := j.line(b)
	*row = bit.Set(index, *row)
}

func (j *Joypad) line(b Button) (*uint8, uint8) {
	switch b {
	case ButtonRight:
		return &j.dpad, 0
	case ButtonLeft:
		return &j.dpad, 1
	case ButtonUp:
		return &j.dpad, 2
	case ButtonDown:
		return &j.dpad, 3
	case ButtonA:
		return &j.buttons, 0
	case ButtonB:
		return &j.buttons, 1
	case ButtonSelect:
		return &j.buttons, 2
	default:
		return &j.buttons, 3
	}
}
