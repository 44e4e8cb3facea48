package screen

import "github.com/golang/glog"

// paddings returns the number of leading and trailing all-zero pixel
// columns of a sprite's bitmap, from the bitwise union of its rows.
func paddings(s *Sprite) (int, int) {
	var union byte
	for _, b := range s.data {
		union |= b
	}
	var l, r int
	for l = 0; l < spriteWidth; l++ {
		if union&(0x80>>l) != 0 {
			break
		}
	}
	for r = 0; r < spriteWidth; r++ {
		if union&(1<<r) != 0 {
			break
		}
	}
	return l, r
}

// mergeHorizontallyAdjacentSprites coalesces runs of horizontally
// adjacent same-palette sprites. When the leading padding of the first
// sprite plus the trailing padding of the last covers a full sprite
// width, the run shifts right by the leading padding and drops its last
// sprite: the visible pixels are unchanged and a sprite slot is freed.
func mergeHorizontallyAdjacentSprites(sprites []*Sprite) []*Sprite {
	var out []*Sprite
	for start := 0; start < len(sprites); {
		end := start + 1
		for end < len(sprites) &&
			sprites[end].X == sprites[end-1].X+spriteWidth &&
			sprites[end].Y == sprites[end-1].Y &&
			sprites[end].P == sprites[end-1].P {
			end++
		}
		run := sprites[start:end:end]
		leftPadding, _ := paddings(run[0])
		_, rightPadding := paddings(run[len(run)-1])
		if leftPadding+rightPadding >= spriteWidth {
			for _, s := range run {
				s.X += leftPadding
			}
			run = run[:len(run)-1]
		}
		out = append(out, run...)
		start = end
	}
	return out
}

// makeSprites builds the sprite layer: one pass per sprite palette
// group over the grid, merge of adjacent sprites, then a rebuild of the
// sprite tile table from the final positions.
func (b *Builder) makeSprites() {
	heightMult := 1
	if b.Sprites8x16 {
		heightMult = 2
	}
	w := b.gridWidth
	h := b.gridHeight / heightMult
	b.Sprites = nil
	for p := 0; p < numPaletteGroupsSpr; p++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				tileData, _ := readCell(b.img,
					x*tileWidth,
					y*tileHeight*heightMult,
					tileWidth,
					tileHeight*heightMult,
					true,
					p+numPaletteGroupsBG)
				if tileData == nil {
					continue
				}
				tileIndex := b.TileTableSpr.Add(tileData)
				if b.Sprites8x16 {
					tileIndex <<= 1
				}
				b.Sprites = append(b.Sprites, &Sprite{
					X:     x * tileWidth,
					Y:     y * tileHeight * heightMult,
					Index: tileIndex,
					P:     p + numPaletteGroupsBG,
					data:  tileData,
				})
			}
		}
	}
	b.Sprites = mergeHorizontallyAdjacentSprites(b.Sprites)
	// Merging moved sprites off the tile grid, so their bitmaps have to
	// be re-read from the final positions. Tile indices assigned before
	// the merge are stale from here on.
	b.TileTableSpr = NewTileTable(tileWidth, tileHeight*heightMult)
	newSprites := b.Sprites[:0]
	for _, s := range b.Sprites {
		tileData, _ := readCell(b.img, s.X, s.Y, tileWidth, tileHeight*heightMult, true, s.P)
		if tileData == nil {
			continue
		}
		b.TileTableSpr.Add(tileData)
		s.data = tileData
		newSprites = append(newSprites, s)
	}
	b.Sprites = newSprites
	// The downstream tile compressor crashes on fewer than 3 tiles.
	// Pad with transparent off-screen sprites until it is fixed there.
	for len(b.Sprites) < 3 {
		numTiles := 1
		if b.Sprites8x16 {
			numTiles = 2
		}
		for i := 0; i < numTiles; i++ {
			b.TileTableSpr.push(make([]byte, tileHeight*numTilePlanes))
		}
		b.Sprites = append(b.Sprites, &Sprite{
			X:     0,
			Y:     240,
			Index: 0,
			P:     numPaletteGroupsBG,
		})
	}
	if len(b.Sprites) > maxSprites {
		glog.Errorf("Number-of-sprites overflow: %d", maxSprites)
	}
	// Renumber, as sprites may have been discarded while merging.
	for i, s := range b.Sprites {
		if b.Sprites8x16 {
			s.Index = i << 1
		} else {
			s.Index = i
		}
	}
}
