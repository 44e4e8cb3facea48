package screen

import (
	"sort"

	"github.com/golang/glog"
)

// uniqueTileIndicesPerRow returns, for each grid row, the set of tile
// indices the row references.
func (b *Builder) uniqueTileIndicesPerRow() []map[int]bool {
	rows := make([]map[int]bool, b.gridHeight)
	for y := 0; y < b.gridHeight; y++ {
		rows[y] = make(map[int]bool)
		for x := 0; x < b.gridWidth; x++ {
			rows[y][b.background[x][y].index] = true
		}
	}
	return rows
}

// findBestSplit picks the topmost split row such that all rows below it
// fit within the tile limit, leaving as much of the frame as possible
// for the bottom bank. When no row pushes the bottom set over the limit
// (all rows together fit), it logs a capacity error and returns
// gridHeight (an empty bottom bank). The rows above the returned row are
// not checked against the limit.
func (b *Builder) findBestSplit(maxTiles int) int {
	indicesPerRow := b.uniqueTileIndicesPerRow()
	limit := maxTiles
	if limit > 255 {
		limit = 255
	}
	bottomTiles := make(map[int]bool)
	for y := b.gridHeight - 1; y >= 0; y-- {
		grown := len(bottomTiles)
		for i := range indicesPerRow[y] {
			if !bottomTiles[i] {
				grown++
			}
		}
		if grown > limit {
			return y + 1
		}
		for i := range indicesPerRow[y] {
			bottomTiles[i] = true
		}
	}
	glog.Errorf("Could not fit background tiles in just two pattern tables.")
	return b.gridHeight
}

func sortedIndices(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// splitTileTable partitions the background tile table into a top and a
// bottom table. Common tiles come first in both tables, at identical
// indices, ordered by ascending original index; the remainder of each
// half follows in the same order. Returns both tables plus the old->new
// index remappings.
func (b *Builder) splitTileTable(indicesTop, indicesBottom, indicesCommon map[int]bool) (*TileTable, map[int]int, *TileTable, map[int]int) {
	top := NewTileTable(tileWidth, tileHeight)
	bottom := NewTileTable(tileWidth, tileHeight)
	remappingTop := make(map[int]int)
	remappingBottom := make(map[int]int)
	for _, i := range sortedIndices(indicesCommon) {
		remappingTop[i] = top.Len()
		top.push(b.tileTableBG.At(i))
		remappingBottom[i] = bottom.Len()
		bottom.push(b.tileTableBG.At(i))
	}
	for _, i := range sortedIndices(indicesTop) {
		if indicesCommon[i] {
			continue
		}
		remappingTop[i] = top.Len()
		top.push(b.tileTableBG.At(i))
	}
	for _, i := range sortedIndices(indicesBottom) {
		if indicesCommon[i] {
			continue
		}
		remappingBottom[i] = bottom.Len()
		bottom.push(b.tileTableBG.At(i))
	}
	return top, remappingTop, bottom, remappingBottom
}

func (b *Builder) remapBackgroundIndices(start, end int, remapping map[int]int) {
	for y := start; y < end; y++ {
		for x := 0; x < b.gridWidth; x++ {
			b.background[x][y].index = remapping[b.background[x][y].index]
		}
	}
}

// splitBackgroundTileTable splits the background tile table into a top
// and a bottom part so CHR can be bank-switched mid-frame.
func (b *Builder) splitBackgroundTileTable(maxBGSlots int) {
	b.BottomStartRow = b.findBestSplit(maxBGSlots)
	indicesPerRow := b.uniqueTileIndicesPerRow()
	indicesTop := make(map[int]bool)
	indicesBottom := make(map[int]bool)
	for y := 0; y < b.BottomStartRow; y++ {
		for i := range indicesPerRow[y] {
			indicesTop[i] = true
		}
	}
	for y := b.BottomStartRow; y < b.gridHeight; y++ {
		for i := range indicesPerRow[y] {
			indicesBottom[i] = true
		}
	}
	indicesCommon := make(map[int]bool)
	for i := range indicesTop {
		if indicesBottom[i] {
			indicesCommon[i] = true
		}
	}
	var remappingTop, remappingBottom map[int]int
	b.TileTableBGTop, remappingTop, b.TileTableBGBottom, remappingBottom = b.splitTileTable(indicesTop, indicesBottom, indicesCommon)
	b.NumCommon = len(indicesCommon)
	b.remapBackgroundIndices(0, b.BottomStartRow, remappingTop)
	b.remapBackgroundIndices(b.BottomStartRow, b.gridHeight, remappingBottom)
}
