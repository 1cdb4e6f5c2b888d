package video

import "github.com/valerio/go-dmg/dmg/bit"

// TileRow is one 8-pixel row of a tile in the VRAM bit-plane format:
// bit N of Low is the low color bit of pixel 7-N, bit N of High the
// high color bit. A full tile is 8 rows, 16 bytes.
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel returns the 2-bit color index of pixel x, where x=0 is the
// leftmost pixel.
func (t TileRow) GetPixel(x int) byte {
	index := uint8(7 - x)
	return bit.Value(index, t.Low) | bit.Value(index, t.High)<<1
}

// GetPixelFlipped returns the color index with the row mirrored
// horizontally, as used by X-flipped sprites.
func (t TileRow) GetPixelFlipped(x int) byte {
	index := uint8(x)
	return bit.Value(index, t.Low) | bit.Value(index, t.High)<<1
}
