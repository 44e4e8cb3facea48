package screen

import "bytes"

// TileTable is an insertion-ordered, deduplicating store of two-plane
// tile bitmaps. Indices are dense, start at 0 and never change once
// assigned. The table itself enforces no upper bound; callers apply
// their bank and sprite limits.
type TileTable struct {
	width  int
	height int
	tiles  [][]byte
}

// NewTileTable creates a table for width x height tiles. Every bitmap
// stored must be numTilePlanes*height bytes.
func NewTileTable(width, height int) *TileTable {
	return &TileTable{width: width, height: height}
}

// Add stores data if not already present and returns its tile index.
// Lookup is by value over the full byte sequence.
func (t *TileTable) Add(data []byte) int {
	for i, tile := range t.tiles {
		if bytes.Equal(tile, data) {
			return i
		}
	}
	t.tiles = append(t.tiles, data)
	return len(t.tiles) - 1
}

// push appends without the dedup lookup. Used when rebuilding split
// tables, where the source table already guarantees uniqueness.
func (t *TileTable) push(data []byte) {
	t.tiles = append(t.tiles, data)
}

// At returns the bitmap for a tile index.
func (t *TileTable) At(index int) []byte {
	return t.tiles[index]
}

// Len returns the number of stored tiles.
func (t *TileTable) Len() int {
	return len(t.tiles)
}

// Tiles returns the bitmaps in insertion order.
func (t *TileTable) Tiles() [][]byte {
	return t.tiles
}
