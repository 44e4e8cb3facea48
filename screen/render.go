package screen

import "image"

// Compose renders the finished artifacts back into an RGBA picture:
// background tiles through the attribute table and palette, honoring
// the bank split row, with sprites on top. The preview window shows the
// result, and tests use it to check that the artifact set still
// describes the input image.
func Compose(b *Builder, bgPalette, sprPalette []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.screenWidth, b.screenHeight))
	at := b.AttributeTable()
	for y := 0; y < b.screenHeight; y++ {
		table := b.TileTableBGTop
		if b.BottomStartRow >= 0 && y >= b.BottomStartRow*tileHeight {
			table = b.TileTableBGBottom
		}
		for x := 0; x < b.screenWidth; x++ {
			tile := table.At(b.background[x/tileWidth][y/tileHeight].index)
			shift := uint(7 - x%tileWidth)
			fineY := y % tileHeight
			value := tile[fineY]>>shift&1 | tile[fineY+tileHeight]>>shift&1<<1
			index := bgPalette[0]
			if value != 0 {
				// Palette selector from the attribute byte quadrant,
				// two bits per 16x16 pixel area.
				attr := at[(y/32)*attributeTableWidth+x/32]
				quadrant := byte(y&16)>>3 | byte(x&16)>>4
				palette := attr >> (quadrant << 1) & 3
				index = bgPalette[palette*4+value]
			}
			img.SetRGBA(x, y, nesColors[index&0x3F])
		}
	}
	spriteHeight := tileHeight
	if b.Sprites8x16 {
		spriteHeight = 2 * tileHeight
	}
	for _, s := range b.Sprites {
		if s.Y >= b.screenHeight {
			continue
		}
		tableIndex := s.Index
		if b.Sprites8x16 {
			tableIndex >>= 1
		}
		if tableIndex >= b.TileTableSpr.Len() {
			continue
		}
		tile := b.TileTableSpr.At(tableIndex)
		for yy := 0; yy < spriteHeight; yy++ {
			py := s.Y + yy
			if py >= b.screenHeight {
				break
			}
			row := yy
			if s.VFlip {
				row = spriteHeight - 1 - yy
			}
			offs := (row / tileHeight) * tileHeight * numTilePlanes
			for xx := 0; xx < spriteWidth; xx++ {
				px := s.X + xx
				if px >= b.screenWidth {
					break
				}
				shift := uint(7 - xx)
				if s.HFlip {
					shift = uint(xx)
				}
				value := tile[offs+row%tileHeight]>>shift&1 | tile[offs+row%tileHeight+tileHeight]>>shift&1<<1
				if value == 0 {
					continue
				}
				index := sprPalette[(s.P-numPaletteGroupsBG)*4+int(value)]
				img.SetRGBA(px, py, nesColors[index&0x3F])
			}
		}
	}
	return img
}
