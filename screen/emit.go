package screen

// Serializers over the finished builder state. Everything here is pure
// reading; the builder is not mutated after construction.

func chrBytes(tiles [][]byte) []byte {
	var out []byte
	for _, t := range tiles {
		out = append(out, t...)
	}
	return out
}

// CHRBG returns the combined background CHR: the top table followed by
// the bottom tiles that are not already present as common tiles.
func (b *Builder) CHRBG() []byte {
	return append(b.CHRBGTop(), b.CHRBGBottomNoCommon()...)
}

// CHRBGTop returns the top background pattern table.
func (b *Builder) CHRBGTop() []byte {
	return chrBytes(b.TileTableBGTop.Tiles())
}

// CHRBGBottom returns the bottom background pattern table.
func (b *Builder) CHRBGBottom() []byte {
	return chrBytes(b.TileTableBGBottom.Tiles())
}

// CHRBGBottomNoCommon returns the bottom pattern table minus the common
// prefix, which the top bank already carries.
func (b *Builder) CHRBGBottomNoCommon() []byte {
	return chrBytes(b.TileTableBGBottom.Tiles()[b.NumCommon:])
}

// CHRSpr returns the sprite CHR.
func (b *Builder) CHRSpr() []byte {
	return chrBytes(b.TileTableSpr.Tiles())
}

func (b *Builder) nametableWithoutAttributeTable() []byte {
	nt := make([]byte, b.gridWidth*b.gridHeight)
	for y := 0; y < b.gridHeight; y++ {
		for x := 0; x < b.gridWidth; x++ {
			nt[y*b.gridWidth+x] = byte(b.background[x][y].index)
		}
	}
	return nt
}

// paletteIndexTable builds the 16x16 map of palette groups per 16x16
// pixel area, each entry the bitwise OR of its four cells.
func (b *Builder) paletteIndexTable() [][]int {
	pt := make([][]int, 2*attributeTableWidth)
	for x := range pt {
		pt[x] = make([]int, 2*attributeTableHeight)
	}
	w := b.gridWidth / 2
	h := b.gridHeight / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pt[x][y] = b.background[2*x][2*y].p |
				b.background[2*x+1][2*y].p |
				b.background[2*x][2*y+1].p |
				b.background[2*x+1][2*y+1].p
		}
	}
	return pt
}

// AttributeTable packs the palette selectors into the 64-byte attribute
// table, four 2-bit fields per byte covering a 32x32 pixel region.
func (b *Builder) AttributeTable() []byte {
	pt := b.paletteIndexTable()
	at := make([]byte, attributeTableWidth*attributeTableHeight)
	for y := 0; y < attributeTableHeight; y++ {
		for x := 0; x < attributeTableWidth; x++ {
			topLeft := pt[2*x][2*y]
			topRight := pt[2*x+1][2*y]
			bottomLeft := pt[2*x][2*y+1]
			bottomRight := pt[2*x+1][2*y+1]
			at[y*attributeTableWidth+x] = byte(bottomRight<<6 | bottomLeft<<4 | topRight<<2 | topLeft)
		}
	}
	return at
}

// Nametable returns the raw nametable: tile indices row-major followed
// by the attribute table.
func (b *Builder) Nametable() []byte {
	return append(b.nametableWithoutAttributeTable(), b.AttributeTable()...)
}

// ntSegment is a slice of nametable bytes paired with the rolling
// increment base the decoder must start from at that block boundary.
type ntSegment struct {
	incBase int
	data    []byte
}

// maxCompressedSize evaluates a candidate split row: the size of the
// bigger of the two compressed halves, with the bottom half chained on
// the base returned by the top half.
func maxCompressedSize(seg ntSegment, row int) int {
	top := seg.data[:nametableWidth*row]
	bottom := seg.data[nametableWidth*row:]
	topCompressed, base := rleiCompress(top, seg.incBase)
	bottomCompressed, _ := rleiCompress(bottom, base)
	if len(topCompressed) > len(bottomCompressed) {
		return len(topCompressed)
	}
	return len(bottomCompressed)
}

// splitSegmentInHalf splits a segment around the row found by a local
// steepest descent on maxCompressedSize, starting from the middle row.
func splitSegmentInHalf(seg ntSegment) []ntSegment {
	const unprobed = int(^uint(0) >> 1)
	numRows := len(seg.data) / nametableWidth
	row := numRows / 2
	bestSize := maxCompressedSize(seg, row)
	for {
		aboveSize := unprobed
		if row > 1 {
			aboveSize = maxCompressedSize(seg, row-1)
		}
		belowSize := unprobed
		if row < numRows-1 {
			belowSize = maxCompressedSize(seg, row+1)
		}
		if aboveSize < bestSize && aboveSize <= belowSize {
			bestSize = aboveSize
			row--
			continue
		}
		if belowSize < bestSize {
			bestSize = belowSize
			row++
			continue
		}
		break
	}
	_, base := rleiCompress(seg.data[:nametableWidth*row], seg.incBase)
	return []ntSegment{
		{incBase: seg.incBase, data: seg.data[:nametableWidth*row]},
		{incBase: base, data: seg.data[nametableWidth*row:]},
	}
}

// NametableCompressed returns the nametable as a sequence of RLEI
// blocks, each prefixed with [length including header mod 256, incBase]
// and the whole stream terminated by a zero byte. The initial base is
// NumCommon: right after a bank switch, tile indices naturally start at
// the common prefix length.
func (b *Builder) NametableCompressed() []byte {
	nametable := b.Nametable()
	var segments []ntSegment
	if b.BottomStartRow >= 0 {
		// CHR-banked screens start with a mandatory split in two.
		split := nametableWidth * b.BottomStartRow
		segments = []ntSegment{
			{incBase: b.NumCommon, data: nametable[:split]},
			{incBase: b.NumCommon, data: nametable[split:]},
		}
	} else {
		segments = []ntSegment{{incBase: b.NumCommon, data: nametable}}
	}
	// Keep splitting in half until every block fits.
	for {
		split := false
		for i, seg := range segments {
			compressed, _ := rleiCompress(seg.data, seg.incBase)
			if len(compressed) <= MaxCompressedBlockSize || len(seg.data) < 2*nametableWidth {
				continue
			}
			halves := splitSegmentInHalf(seg)
			segments = append(segments[:i], append(halves, segments[i+1:]...)...)
			split = true
			break
		}
		if !split {
			break
		}
	}
	var out []byte
	for _, seg := range segments {
		compressed, _ := rleiCompress(seg.data, seg.incBase)
		out = append(out, byte(len(compressed)+2), byte(seg.incBase))
		out = append(out, compressed...)
	}
	return append(out, 0)
}

func spriteToOAMEntry(s *Sprite) []byte {
	var flips byte
	if s.VFlip {
		flips |= 1 << 7
	}
	if s.HFlip {
		flips |= 1 << 6
	}
	return []byte{
		byte(s.Y - 1),
		byte(s.Index),
		flips | byte(s.P-numPaletteGroupsBG),
		byte(s.X),
	}
}

// OAM returns the sprite table directly matching the hardware format.
func (b *Builder) OAM() []byte {
	var out []byte
	for _, s := range b.Sprites {
		out = append(out, spriteToOAMEntry(s)...)
	}
	return out
}

// OAMCompressed returns a compact OAM encoding:
//
//	Initial byte per palette group:
//	  bits 7-2: number of sprites N
//	  bits 1-0: palette of the sprites, with the two bits reversed
//	Then per sprite: X, Y-1.
//
// Tile indices are assumed to start at 0 and increase by +1 (+2 for
// 8x16 sprites); flips and priority are not representable. A zero byte
// terminates the stream. The runtime decoder reconstructs tile ids from
// a running counter, so the redundant bytes are omitted.
func (b *Builder) OAMCompressed() []byte {
	var out []byte
	for p := 0; p < numPaletteGroupsSpr; p++ {
		var group []*Sprite
		for _, s := range b.Sprites {
			if s.P == p+numPaletteGroupsBG {
				group = append(group, s)
			}
		}
		if len(group) == 0 {
			continue
		}
		out = append(out, byte(len(group)<<2|(p&1)<<1|(p&2)>>1))
		for _, s := range group {
			out = append(out, byte(s.X), byte(s.Y-1))
		}
	}
	return append(out, 0)
}
