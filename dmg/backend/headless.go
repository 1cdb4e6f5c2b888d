package backend

import (
	"log/slog"

	"github.com/valerio/go-dmg/dmg/video"
)

// Headless renders nothing. It logs a digest of the frame at a chosen
// interval, which is enough to tell test runs apart.
type Headless struct {
	logEvery int
	frames   int
}

// NewHeadless creates a headless backend logging a frame digest every
// logEvery frames (0 disables logging).
func NewHeadless(logEvery int) *Headless {
	return &Headless{logEvery: logEvery}
}

func (h *Headless) Init(Config) error { return nil }

func (h *Headless) Update(frame *video.FrameBuffer) error {
	h.frames++
	if h.logEvery > 0 && h.frames%h.logEvery == 0 {
		slog.Info("frame", "n", h.frames, "digest", frame.Hash())
	}
	return nil
}

func (h *Headless) Cleanup() error { return nil }
