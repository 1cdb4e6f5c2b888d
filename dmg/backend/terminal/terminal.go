// Package terminal renders frames into the terminal with tcell,
// packing two pixels per cell using the upper-half-block glyph.
package terminal

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-dmg/dmg/backend"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

// keyHoldTime is how long a key press keeps its button held. Terminals
// only report presses, never releases, so releases are synthesized
// after this window passes without a repeat.
const keyHoldTime = 150 * time.Millisecond

// shades maps the four DMG palette indices to terminal colors.
var shades = [4]tcell.Color{
	tcell.NewRGBColor(0xFF, 0xFF, 0xFF),
	tcell.NewRGBColor(0x98, 0x98, 0x98),
	tcell.NewRGBColor(0x4C, 0x4C, 0x4C),
	tcell.NewRGBColor(0x00, 0x00, 0x00),
}

// Backend renders to the controlling terminal via tcell.
type Backend struct {
	screen tcell.Screen
	config backend.Config

	events chan tcell.Event
	held   map[memory.Button]time.Time
}

// New creates the terminal backend.
func New() *Backend {
	return &Backend{held: make(map[memory.Button]time.Time)}
}

// Init takes over the terminal.
func (t *Backend) Init(config backend.Config) error {
	t.config = config

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	t.screen = screen
	t.screen.HideCursor()

	t.events = make(chan tcell.Event, 64)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			t.events <- ev
		}
	}()
	return nil
}

// Update draws the frame and drains pending key events.
func (t *Backend) Update(frame *video.FrameBuffer) error {
	t.pollInput()
	t.releaseExpired()

	// two rows of pixels per terminal row: fg paints the top pixel,
	// bg the bottom one
	for y := 0; y < video.FrameHeight; y += 2 {
		for x := 0; x < video.FrameWidth; x++ {
			style := tcell.StyleDefault.
				Foreground(shades[frame.GetPixel(x, y)&3]).
				Background(shades[frame.GetPixel(x, y+1)&3])
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
	t.screen.Show()
	return nil
}

// Cleanup hands the terminal back.
func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) pollInput() {
	for {
		select {
		case ev := <-t.events:
			if key, ok := ev.(*tcell.EventKey); ok {
				t.handleKey(key)
			}
		default:
			return
		}
	}
}

func (t *Backend) handleKey(ev *tcell.EventKey) {
	var button memory.Button
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
		if t.config.OnQuit != nil {
			t.config.OnQuit()
		}
		return
	case ev.Key() == tcell.KeyUp:
		button = memory.ButtonUp
	case ev.Key() == tcell.KeyDown:
		button = memory.ButtonDown
	case ev.Key() == tcell.KeyLeft:
		button = memory.ButtonLeft
	case ev.Key() == tcell.KeyRight:
		button = memory.ButtonRight
	case ev.Key() == tcell.KeyEnter:
		button = memory.ButtonStart
	case ev.Key() == tcell.KeyRune && (ev.Rune() == 'z' || ev.Rune() == 'Z'):
		button = memory.ButtonA
	case ev.Key() == tcell.KeyRune && (ev.Rune() == 'x' || ev.Rune() == 'X'):
		button = memory.ButtonB
	case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
		button = memory.ButtonSelect
	case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
		if t.config.OnQuit != nil {
			t.config.OnQuit()
		}
		return
	default:
		return
	}

	if _, holding := t.held[button]; !holding && t.config.OnButton != nil {
		t.config.OnButton(button, true)
	}
	t.held[button] = time.Now()
}

func (t *Backend) releaseExpired() {
	now := time.Now()
	for button, last := range t.held {
		if now.Sub(last) > keyHoldTime {
			delete(t.held, button)
			if t.config.OnButton != nil {
				t.config.OnButton(button, false)
			}
		}
	}
}
