package video

import (
	"sort"

	"github.com/valerio/go-dmg/dmg/bit"
)

// Sprite attribute byte bits.
const (
	attrPalette = 4
	attrFlipX   = 5
	attrFlipY   = 6
	attrBehind  = 7
)

// spriteHit is one OAM entry selected for the current scanline.
type spriteHit struct {
	x        int // screen X (OAM X minus 8)
	oamIndex int
}

// decodePalette expands a palette register into its four 2-bit entries.
func decodePalette(value uint8) [4]byte {
	return [4]byte{
		value & 3,
		value >> 2 & 3,
		value >> 4 & 3,
		value >> 6 & 3,
	}
}

// renderScanline rasterizes line LY into the framebuffer on the
// transfer-to-HBlank transition: background, then window, then sprites.
// bgIndex keeps the pre-palette background color per pixel so that
// behind-background sprites know where they are masked.
func (p *PPU) renderScanline() {
	if p.ly >= FrameHeight {
		return
	}

	for i := range p.lineBuffer {
		p.lineBuffer[i] = 0
		p.bgIndex[i] = 0
	}

	if bit.IsSet(lcdcBGEnable, p.lcdc) {
		p.renderBackground()
	}
	if bit.IsSet(lcdcWindowEnable, p.lcdc) && p.wy <= p.ly {
		p.renderWindow()
	}
	if bit.IsSet(lcdcSpriteEnable, p.lcdc) {
		p.renderSprites()
	}

	p.fb.SetLine(int(p.ly), p.lineBuffer[:])
}

// tileRow fetches the two bit-plane bytes for a tile row, using the
// unsigned 0x8000 addressing when LCDC bit 4 is set and the signed
// 0x9000 addressing otherwise.
func (p *PPU) tileRow(tileNum uint8, row int) TileRow {
	vram := p.mmu.VRAM()

	var base int
	if bit.IsSet(lcdcTileData, p.lcdc) {
		base = int(tileNum) * 16
	} else {
		base = 0x1000 + int(int8(tileNum))*16
	}
	return TileRow{Low: vram[base+row*2], High: vram[base+row*2+1]}
}

// mapEntry reads a tile number from one of the two 32x32 tile maps.
func (p *PPU) mapEntry(useAltMap bool, tileX, tileY int) uint8 {
	base := 0x1800 // 0x9800
	if useAltMap {
		base = 0x1C00 // 0x9C00
	}
	return p.mmu.VRAM()[base+tileY*32+tileX]
}

func (p *PPU) renderBackground() {
	palette := decodePalette(p.bgp)
	y := int(p.ly+p.scy) & 0xFF
	useAltMap := bit.IsSet(lcdcBGTileMap, p.lcdc)

	for screenX := 0; screenX < FrameWidth; screenX++ {
		x := (screenX + int(p.scx)) & 0xFF

		tileNum := p.mapEntry(useAltMap, x>>3, y>>3)
		index := p.tileRow(tileNum, y&7).GetPixel(x & 7)

		p.lineBuffer[screenX] = palette[index]
		p.bgIndex[screenX] = index
	}
}

func (p *PPU) renderWindow() {
	wx := int(p.wx) - 7
	if wx >= FrameWidth {
		return
	}

	palette := decodePalette(p.bgp)
	useAltMap := bit.IsSet(lcdcWindowTileMap, p.lcdc)
	y := p.windowLine

	rendered := false
	for screenX := max(0, wx); screenX < FrameWidth; screenX++ {
		winX := screenX - wx
		if winX < 0 {
			continue
		}
		rendered = true

		tileNum := p.mapEntry(useAltMap, winX>>3, y>>3)
		index := p.tileRow(tileNum, y&7).GetPixel(winX & 7)

		p.lineBuffer[screenX] = palette[index]
		p.bgIndex[screenX] = index
	}

	// the internal line counter only advances when the window showed up
	if rendered {
		p.windowLine++
	}
}

// selectSprites scans OAM in order and collects up to the hardware
// limit of 10 sprites covering the current scanline.
func (p *PPU) selectSprites(height int) []spriteHit {
	oam := p.mmu.OAM()
	hits := make([]spriteHit, 0, 10)

	for i := 0; i < 40 && len(hits) < 10; i++ {
		y := int(oam[i*4]) - 16
		if y <= int(p.ly) && int(p.ly) < y+height {
			hits = append(hits, spriteHit{x: int(oam[i*4+1]) - 8, oamIndex: i})
		}
	}
	return hits
}

func (p *PPU) renderSprites() {
	height := 8
	if bit.IsSet(lcdcSpriteSize, p.lcdc) {
		height = 16
	}

	hits := p.selectSprites(height)

	// Lower X wins; equal X falls back to OAM order. Drawing back to
	// front lets the winners simply overdraw.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].x < hits[j].x })

	oam := p.mmu.OAM()
	for i := len(hits) - 1; i >= 0; i-- {
		hit := hits[i]
		entry := oam[hit.oamIndex*4 : hit.oamIndex*4+4]
		y := int(entry[0]) - 16
		tileNum := entry[2]
		attrs := entry[3]

		palette := decodePalette(p.obp0)
		if bit.IsSet(attrPalette, attrs) {
			palette = decodePalette(p.obp1)
		}

		line := int(p.ly) - y
		if bit.IsSet(attrFlipY, attrs) {
			line = height - 1 - line
		}
		if height == 16 {
			// tall sprites use an even/odd tile pair
			tileNum &= 0xFE
		}

		vram := p.mmu.VRAM()
		base := int(tileNum)*16 + line*2
		row := TileRow{Low: vram[base], High: vram[base+1]}

		for pixel := 0; pixel < 8; pixel++ {
			screenX := hit.x + pixel
			if screenX < 0 || screenX >= FrameWidth {
				continue
			}

			var index byte
			if bit.IsSet(attrFlipX, attrs) {
				index = row.GetPixelFlipped(pixel)
			} else {
				index = row.GetPixel(pixel)
			}
			if index == 0 {
				continue // color 0 is transparent
			}
			if bit.IsSet(attrBehind, attrs) && p.bgIndex[screenX] != 0 {
				continue
			}
			p.lineBuffer[screenX] = palette[index]
		}
	}
}
