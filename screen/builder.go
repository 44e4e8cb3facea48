package screen

import "image"

// Builder converts one indexed-color image into the artifacts a NES
// screen consists of:
//   - background tiles (split into two pattern tables when needed)
//   - sprite tiles
//   - nametable + attribute table
//   - sprite OAM
//
// All state is built in the constructor; the emitter methods only read.
type Builder struct {
	img         *image.Paletted
	Sprites8x16 bool

	screenWidth  int
	screenHeight int
	gridWidth    int
	gridHeight   int

	maxBGSlots       int
	handleSprite0Hit bool

	background [][]cell // indexed [x][y]

	tileTableBG       *TileTable
	TileTableBGTop    *TileTable
	TileTableBGBottom *TileTable
	TileTableSpr      *TileTable

	Sprites []*Sprite

	// BottomStartRow is the first grid row addressed by the bottom
	// pattern table, or -1 when no split happened.
	BottomStartRow int
	NumCommon      int
}

// NewBuilder builds a screen from img. The builder parameterizes on the
// image dimensions; the target console needs 256x240.
func NewBuilder(img *image.Paletted, sprites8x16, addSprite0 bool, maxBGSlots int) *Builder {
	b := &Builder{
		img:              img,
		Sprites8x16:      sprites8x16,
		maxBGSlots:       maxBGSlots,
		handleSprite0Hit: addSprite0,
		BottomStartRow:   -1,
	}
	b.screenWidth = img.Bounds().Dx()
	b.screenHeight = img.Bounds().Dy()
	b.gridWidth = b.screenWidth / tileWidth
	b.gridHeight = b.screenHeight / tileHeight
	b.tileTableBG = NewTileTable(tileWidth, tileHeight)
	spriteHeight := tileHeight
	if sprites8x16 {
		spriteHeight = 2 * tileHeight
	}
	b.TileTableSpr = NewTileTable(tileWidth, spriteHeight)
	b.makeBackground()
	if b.tileTableBG.Len() > maxBGSlots-b.reservedTilesBG() {
		// Split into two tile tables and remap the background.
		b.splitBackgroundTileTable(maxBGSlots)
	} else {
		// Tiles fit into one table - make the other one a dummy.
		b.TileTableBGTop = b.tileTableBG
		b.TileTableBGBottom = NewTileTable(tileWidth, tileHeight)
		b.NumCommon = 0
	}
	b.makeSprites()
	if addSprite0 {
		b.makeSprite0HitTiles()
	}
	return b
}

// reservedTilesBG is the number of background tile slots held back for
// the sprite#0 hit patch tile.
func (b *Builder) reservedTilesBG() int {
	if b.handleSprite0Hit {
		return 1
	}
	return 0
}

// GridWidth returns the background grid width in tiles.
func (b *Builder) GridWidth() int { return b.gridWidth }

// GridHeight returns the background grid height in tiles.
func (b *Builder) GridHeight() int { return b.gridHeight }

// SpriteTilesStartIndex is the first 8x8 tile index sprite CHR is
// uploaded to. Sprite tiles sit at the end of the bank to leave
// predictable space for user tiles.
func (b *Builder) SpriteTilesStartIndex() int {
	numSpriteTiles := len(b.Sprites) + 1
	if b.Sprites8x16 {
		return 256 - numSpriteTiles<<1
	}
	return 256 - numSpriteTiles
}

// SpriteTilesStartPage is the starting 256-byte page sprite CHR is
// uploaded to.
func (b *Builder) SpriteTilesStartPage() int {
	tileSize := tileHeight * numTilePlanes
	return b.SpriteTilesStartIndex() * tileSize / 256
}

func (b *Builder) makeBackground() {
	b.background = make([][]cell, b.gridWidth)
	for x := range b.background {
		b.background[x] = make([]cell, b.gridHeight)
	}
	for y := 0; y < b.gridHeight; y++ {
		for x := 0; x < b.gridWidth; x++ {
			tileData, tileP := readCell(b.img, x*tileWidth, y*tileHeight, tileWidth, tileHeight, false, -1)
			tileIndex := b.tileTableBG.Add(tileData)
			b.background[x][y] = cell{data: tileData, index: tileIndex, p: tileP}
		}
	}
}

// makeSprite0HitTiles adds a single background pixel in the upper-right
// corner, along with a sprite tile, to ensure sprite#0 hit triggers.
//
// PPU limitations:
//  1. sprite#0 hit cannot happen on x=255
//  2. the first scanline won't render sprites
//
// The background tile at the top-right nametable cell gets an opaque
// pixel at (6, 1), and a sprite tile with an opaque pixel at (6, 0) is
// registered for placement at screen coordinates (248, 1). This keeps
// sprite#0 minimally intrusive but functional when the leftmost column
// is blanked.
func (b *Builder) makeSprite0HitTiles() {
	corner := &b.background[b.gridWidth-1][0]
	tileData := make([]byte, len(b.TileTableBGTop.At(corner.index)))
	copy(tileData, b.TileTableBGTop.At(corner.index))
	// Opaque pixel at (6, 1).
	tileData[1] |= 0x02
	corner.index = b.TileTableBGTop.Add(tileData)
	corner.data = tileData
	// Sprite tile with a single pixel at (6, 0).
	sprTileData := make([]byte, numTilePlanes*b.TileTableSpr.height)
	sprTileData[0] = 0x02
	b.TileTableSpr.Add(sprTileData)
}
