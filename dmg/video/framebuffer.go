package video

import "github.com/cespare/xxhash"

const (
	// FrameWidth is the visible LCD width in pixels.
	FrameWidth = 160
	// FrameHeight is the visible LCD height in pixels.
	FrameHeight = 144
)

// FrameBuffer holds one frame of 2-bit palette indices, one byte per
// pixel, row-major from the top-left. Mapping indices to actual colors
// is left to the presentation layer.
type FrameBuffer struct {
	pixels [FrameWidth * FrameHeight]byte
}

// NewFrameBuffer creates an all-zero (lightest shade) frame.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// GetPixel returns the palette index at (x, y).
func (fb *FrameBuffer) GetPixel(x, y int) byte {
	return fb.pixels[y*FrameWidth+x]
}

// SetPixel stores a palette index at (x, y).
func (fb *FrameBuffer) SetPixel(x, y int, index byte) {
	fb.pixels[y*FrameWidth+x] = index
}

// SetLine copies a rendered scanline into row y.
func (fb *FrameBuffer) SetLine(y int, line []byte) {
	copy(fb.pixels[y*FrameWidth:(y+1)*FrameWidth], line)
}

// Pixels exposes the underlying buffer for presentation backends.
func (fb *FrameBuffer) Pixels() []byte {
	return fb.pixels[:]
}

// Clear resets every pixel to palette index 0.
func (fb *FrameBuffer) Clear() {
	for i := range fb.pixels {
		fb.pixels[i] = 0
	}
}

// Hash digests the frame contents. Handy for regression tests and for
// logging frame identity in headless runs.
func (fb *FrameBuffer) Hash() uint64 {
	return xxhash.Sum64(fb.pixels[:])
}
