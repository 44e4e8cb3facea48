package screen

import (
	"bytes"
	"image"
	"testing"
)

// newSplitImage builds a screen whose top 15 rows draw from a pool of
// 200 unique tiles and whose bottom 15 rows from a separate pool of
// 100, forcing a bank split.
func newSplitImage() *image.Paletted {
	img := newTestImage(256, 240)
	for y := 0; y < 30; y++ {
		for x := 0; x < 32; x++ {
			if y < 15 {
				setTilePattern(img, x, y, (y*32+x)%200)
			} else {
				setTilePattern(img, x, y, 200+(y*32+x)%100)
			}
		}
	}
	return img
}

// uniqueTilesBelow counts the unique tile bitmaps referenced by rows
// [row, gridHeight) directly from the image.
func uniqueTilesBelow(img *image.Paletted, row int) int {
	table := NewTileTable(8, 8)
	for y := row; y < 30; y++ {
		for x := 0; x < 32; x++ {
			data, _ := readCell(img, x*8, y*8, 8, 8, false, -1)
			table.Add(data)
		}
	}
	return table.Len()
}

func TestSplitChoosesSmallestRow(t *testing.T) {
	img := newSplitImage()
	b := NewBuilder(img, false, false, 256)
	if b.BottomStartRow < 1 {
		t.Fatalf("expected a split, BottomStartRow=%d", b.BottomStartRow)
	}
	// The chosen row is the smallest one whose bottom part fits.
	if got := uniqueTilesBelow(img, b.BottomStartRow); got > 255 {
		t.Errorf("bottom of split at row %d needs %d tiles", b.BottomStartRow, got)
	}
	if b.BottomStartRow > 1 {
		if got := uniqueTilesBelow(img, b.BottomStartRow-1); got <= 255 {
			t.Errorf("row %d would also fit (%d tiles); split is not minimal", b.BottomStartRow-1, got)
		}
	}
}

func TestSplitTables(t *testing.T) {
	img := newSplitImage()
	b := NewBuilder(img, false, false, 256)
	if b.TileTableBGTop.Len() > 255 || b.TileTableBGBottom.Len() > 255 {
		t.Fatalf("bank overflow: top=%d bottom=%d", b.TileTableBGTop.Len(), b.TileTableBGBottom.Len())
	}
	if b.NumCommon > b.TileTableBGTop.Len() || b.NumCommon > b.TileTableBGBottom.Len() {
		t.Fatalf("NumCommon=%d exceeds a table", b.NumCommon)
	}
	// Common tiles sit at identical leading indices in both banks.
	for i := 0; i < b.NumCommon; i++ {
		if !bytes.Equal(b.TileTableBGTop.At(i), b.TileTableBGBottom.At(i)) {
			t.Fatalf("common tile %d differs between banks", i)
		}
	}
	// Every cell indexes a valid slot of its row's bank, and the slot
	// holds the bitmap read from the image.
	nt := b.nametableWithoutAttributeTable()
	for y := 0; y < 30; y++ {
		table := b.TileTableBGTop
		if y >= b.BottomStartRow {
			table = b.TileTableBGBottom
		}
		for x := 0; x < 32; x++ {
			index := int(nt[y*32+x])
			if index >= table.Len() {
				t.Fatalf("cell (%d,%d): index %d out of range (table len %d)", x, y, index, table.Len())
			}
			want, _ := readCell(img, x*8, y*8, 8, 8, false, -1)
			if !bytes.Equal(table.At(index), want) {
				t.Fatalf("cell (%d,%d): remapped index %d holds the wrong bitmap", x, y, index)
			}
		}
	}
}

func TestSplitCHRVariants(t *testing.T) {
	b := NewBuilder(newSplitImage(), false, false, 256)
	top := b.CHRBGTop()
	bottom := b.CHRBGBottom()
	noCommon := b.CHRBGBottomNoCommon()
	combined := b.CHRBG()
	tileSize := 16
	if len(bottom)-len(noCommon) != b.NumCommon*tileSize {
		t.Errorf("bottom minus no-common: got=%d bytes, want=%d", len(bottom)-len(noCommon), b.NumCommon*tileSize)
	}
	if !bytes.Equal(combined, append(append([]byte{}, top...), noCommon...)) {
		t.Errorf("combined CHR is not top ++ bottom[NumCommon:]")
	}
	if !bytes.Equal(bottom[:b.NumCommon*tileSize], top[:b.NumCommon*tileSize]) {
		t.Errorf("common CHR prefix differs between banks")
	}
}
