package screen

import (
	"image"

	"github.com/golang/glog"
)

// PPU geometry for the target console.
const (
	nametableWidth  = 32
	nametableHeight = 30

	attributeTableWidth  = 8
	attributeTableHeight = 8

	tileWidth   = 8
	tileHeight  = 8
	spriteWidth = 8

	paletteGroupSize    = 4
	numPaletteGroupsBG  = 4
	numPaletteGroupsSpr = 4

	numTilePlanes = 2
	maxSprites    = 64
)

// cell is one grid position of the background layer: tile bitmap, index
// into the owning tile table and palette group.
type cell struct {
	data  []byte
	index int
	p     int
}

// Sprite describes one OAM entry before hardware encoding. Y holds the
// pre-offset value; the hardware table stores Y-1.
type Sprite struct {
	X, Y  int
	Index int
	HFlip bool
	VFlip bool
	P     int

	data []byte
}

// readCell converts a w x h block of indexed pixels at (startX, startY)
// into a two-plane bitmap plus its palette group. A color index that is
// a multiple of paletteGroupSize is transparent. Background cells keep
// pixels of the background groups; sprite cells keep pixels matching
// paletteFilter, or any sprite group when paletteFilter is negative.
//
// A cell mixing two palette groups is logged; the last seen group wins.
// For sprite cells an all-zero bitmap is reported as nil.
func readCell(img *image.Paletted, startX, startY, w, h int, spriteCell bool, paletteFilter int) ([]byte, int) {
	tileData := make([]byte, numTilePlanes*h)
	tileP := -1
	pxOld, pyOld := -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := startX + x
			py := startY + y
			c := int(img.ColorIndexAt(px, py))
			if c%paletteGroupSize == 0 {
				continue
			}
			p := c / paletteGroupSize
			backgroundMatch := !spriteCell && p < numPaletteGroupsBG
			spriteMatch := paletteFilter == p || (paletteFilter < 0 && spriteCell && p >= numPaletteGroupsBG)
			if backgroundMatch || spriteMatch {
				// Additional offset in case we are reading an 8x16 tile.
				offs := (y / tileHeight) * tileHeight * numTilePlanes
				tileData[offs+y%tileHeight] |= byte(c&1) << (w - 1 - x)
				tileData[offs+y%tileHeight+tileHeight] |= byte((c>>1)&1) << (w - 1 - x)
				if tileP >= 0 && tileP != p {
					kind := "background"
					if spriteCell {
						kind = "sprite"
					}
					glog.Errorf("Inconsistent %s palette. %d at pixel (%d,%d) differs from %d at pixel (%d,%d)", kind, p, px, py, tileP, pxOld, pyOld)
				}
				tileP = p
				pxOld = px
				pyOld = py
			}
		}
	}
	// Empty tile defaults to palette group 0.
	if tileP < 0 {
		tileP = 0
	}
	// All-zero sprite tiles don't need storing.
	if spriteCell && allZero(tileData) {
		return nil, tileP
	}
	return tileData, tileP
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
