//go:build !sdl2

package sdl2

import (
	"errors"

	"github.com/valerio/go-dmg/dmg/backend"
	"github.com/valerio/go-dmg/dmg/video"
)

// Backend is the stub compiled when the sdl2 build tag is off.
type Backend struct{}

// New creates the stub backend; Init reports that SDL2 is unavailable.
func New() *Backend { return &Backend{} }

func (s *Backend) Init(backend.Config) error {
	return errors.New("SDL2 backend not available, build with -tags sdl2")
}

func (s *Backend) Update(*video.FrameBuffer) error {
	return errors.New("SDL2 backend not available")
}

func (s *Backend) Cleanup() error { return nil }

// PushSamples discards audio in the stub.
func (s *Backend) PushSamples([]float32) {}
