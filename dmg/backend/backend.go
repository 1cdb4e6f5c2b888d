// Package backend defines the pluggable presentation layer: something
// that shows frames and feeds button events back into the machine. The
// emulation core never imports a backend; the cmd wiring picks one.
package backend

import (
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

// Backend is a complete platform shim: rendering plus input.
type Backend interface {
	// Init prepares the backend. Required before the first Update.
	Init(config Config) error

	// Update renders a finished frame and polls platform events,
	// reporting them through the configured callbacks.
	Update(frame *video.FrameBuffer) error

	// Cleanup releases platform resources.
	Cleanup() error
}

// Config carries everything a backend needs from the host.
type Config struct {
	Title string
	Scale int

	// OnButton reports a button press or release.
	OnButton func(b memory.Button, pressed bool)
	// OnQuit reports a user request to stop (window close, escape key).
	OnQuit func()
}
