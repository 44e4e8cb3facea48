package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/kvist/screenpack/screen"
	"github.com/kvist/screenpack/ui"
)

const (
	versionString       = "1.0"
	buildPrefixConstant = "CRUNCHY_"
	buildPrefixData     = "CrunchyData_"

	tokumaruURL = "http://membler-industries.com/tokumaru/tokumaru_tile_compression.7z"
)

var (
	outputDir   = flag.String("output", "output", "Output directory")
	bgPalFlag   = flag.String("bg_pal", "", "Background palette directly specified as 16 comma-separated hex NES PPU colors")
	sprPalFlag  = flag.String("spr_pal", "", "Sprite palette directly specified as 16 comma-separated hex NES PPU colors")
	spriteSize  = flag.String("sprite_size", "8x16", "Sprite size, 8x8 or 8x16")
	sprite0     = flag.Bool("sprite0", true, "Add sprite + tile pixels to ensure sprite#0 hit will happen when displaying the image")
	prgBank     = flag.Int("prgbank", 0, "PRG bank assumed by generated code")
	paletteFile = flag.String("palette_file", "", "Binary 192-byte file specifying a particular NES palette. PPU colors are picked by color mapping")
	prefixDir   = flag.String("prefix_dir", "", "Prefix directory path prepended to files included in source, with trailing separator. Needed for ASM6, redundant with CA65")
	maxBGSlots  = flag.Int("max_bg_slots", 256, "Maximum number of background tiles per pattern table")
	preview     = flag.Bool("preview", false, "Show the composited screen in a window after building")
)

// executableDirectory returns the directory holding this binary, where
// the Tokumaru tool and default palettes live.
func executableDirectory() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// tokumaruCompress compresses a CHR file using Tokumaru compression.
// See: https://wiki.nesdev.com/w/index.php/Tile_compression#Tokumaru
func tokumaruCompress(inputFilename, outputFilename string) {
	exePath := filepath.Join(executableDirectory(), "tokumaru_tile_compression", "bin", "compress")
	if _, err := os.Stat(exePath); err != nil {
		glog.Errorf("%s is missing! - download from %s", exePath, tokumaruURL)
		return
	}
	info, err := os.Stat(inputFilename)
	if err != nil {
		glog.Errorf("Failed to stat %s: %v", inputFilename, err)
		return
	}
	if info.Size() == 0 {
		// Bottom CHR may be zero - but create a zero-sized file for consistency.
		if err := os.WriteFile(outputFilename, nil, 0644); err != nil {
			glog.Errorf("Failed to touch %s: %v", outputFilename, err)
		}
		return
	}
	if err := exec.Command(exePath, inputFilename, outputFilename).Run(); err != nil {
		glog.Errorf("Tokumaru compression of %s: %v", inputFilename, err)
	}
}

// parsePPUPalette parses 16 comma-separated hex PPU color values.
func parsePPUPalette(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	var out []byte
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("Failed to parse palette entry %q: %w", field, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// loadPaletted decodes a PNG and requires it to be indexed-color.
func loadPaletted(path string) (*image.Paletted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode %s: %w", path, err)
	}
	paletted, ok := img.(*image.Paletted)
	if !ok {
		return nil, fmt.Errorf("image %s is not an indexed-color image", path)
	}
	return paletted, nil
}

// readNESPalette loads the 192-byte PPU color mapping file, falling
// back to the built-in palette when none is usable.
func readNESPalette(path string) []byte {
	if path == "" {
		glog.Warningf("Palette file not specified - falling back to the built-in palette")
		return screen.DefaultNESPaletteRGB()
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) < 192 {
		glog.Errorf("Palette file %s is not readable as 192 bytes - falling back to the built-in palette", path)
		return screen.DefaultNESPaletteRGB()
	}
	return data[:192]
}

func writeFile(path string, data []byte) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		glog.Errorf("Failed to write %s: %v", path, err)
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

type builtImage struct {
	builder    *screen.Builder
	bgPalette  []byte
	sprPalette []byte
}

// buildImage converts one input image and writes its artifact set.
func buildImage(imagePath string, imageIndex int, outDir string, nesPalette, bgPalette, sprPalette []byte, sprites8x16, addSprite0 bool) (*builtImage, error) {
	img, err := loadPaletted(imagePath)
	if err != nil {
		return nil, err
	}
	glog.Infof("Converting image %s", imagePath)
	if nesPalette != nil {
		// Directly specified palettes take precedence over mapped ones.
		mappedBG, mappedSpr := screen.MapPaletteToPPUColors(screen.ImagePalette(img), nesPalette)
		if len(bgPalette) == 0 {
			bgPalette = mappedBG
		}
		if len(sprPalette) == 0 {
			sprPalette = mappedSpr
		}
	}
	builder := screen.NewBuilder(img, sprites8x16, addSprite0, *maxBGSlots)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create output directory: %w", err)
	}
	name := func(format string) string {
		return filepath.Join(outDir, fmt.Sprintf(format, imageIndex))
	}
	writeFile(name("bg_%d.chr"), builder.CHRBG())
	writeFile(name("bg_top_%d.chr"), builder.CHRBGTop())
	writeFile(name("bg_bottom_%d.chr"), builder.CHRBGBottom())
	writeFile(name("bg_bottom_nc_%d.chr"), builder.CHRBGBottomNoCommon())
	writeFile(name("spr_%d.chr"), builder.CHRSpr())
	writeFile(name("nametable_%d.nam"), builder.Nametable())
	writeFile(name("nametable_compressed_%d.bin"), builder.NametableCompressed())
	writeFile(name("oam_%d.bin"), builder.OAM())
	writeFile(name("oam_compressed_%d.bin"), builder.OAMCompressed())
	if len(sprPalette) == 0 {
		sprPalette = make([]byte, 16)
		for i := range sprPalette {
			sprPalette[i] = bgPalette[0]
		}
	}
	writeFile(name("palettes_%d.bin"), append(append([]byte{}, bgPalette...), sprPalette...))
	tokumaruCompress(name("bg_top_%d.chr"), name("bg_top_%d.tc"))
	tokumaruCompress(name("bg_bottom_nc_%d.chr"), name("bg_bottom_nc_%d.tc"))
	tokumaruCompress(name("spr_%d.chr"), name("spr_%d.tc"))
	logCompressionRatio(builder, name)
	return &builtImage{builder: builder, bgPalette: bgPalette, sprPalette: sprPalette}, nil
}

func logCompressionRatio(builder *screen.Builder, name func(string) string) {
	hasBottomBG := builder.TileTableBGBottom.Len() > 0
	compressed := fileSize(name("bg_top_%d.tc")) + fileSize(name("spr_%d.tc"))
	uncompressed := fileSize(name("bg_top_%d.chr")) + fileSize(name("spr_%d.chr"))
	if hasBottomBG {
		compressed += fileSize(name("bg_bottom_nc_%d.tc"))
		uncompressed += fileSize(name("bg_bottom_nc_%d.chr"))
	}
	if compressed < 0 || uncompressed <= 0 {
		return
	}
	spaceSaving := 1.0 - float64(compressed)/float64(uncompressed)
	glog.Infof("CHR size %% of original: %.2f%%", 100.0*(1.0-spaceSaving))
	glog.Infof("CHR space saving %%: %.2f%%", 100.0*spaceSaving)
}

// hiAndLoBytes creates assembly source for separate lo / hi byte tables.
func hiAndLoBytes(name string, numImages int) string {
	lo := make([]string, numImages)
	hi := make([]string, numImages)
	for i := 0; i < numImages; i++ {
		lo[i] = fmt.Sprintf("<%s_%d", name, i)
		hi[i] = fmt.Sprintf(">%s_%d", name, i)
	}
	return fmt.Sprintf("%s_lo: .byte %s\n%s_hi: .byte %s", name, strings.Join(lo, ","), name, strings.Join(hi, ","))
}

// builderBytes creates assembly source of one byte value per image.
func builderBytes(name string, accessor func(*screen.Builder) int, builders []*builtImage) string {
	values := make([]string, len(builders))
	for i, b := range builders {
		values[i] = strconv.Itoa(accessor(b.builder))
	}
	return fmt.Sprintf("%s: .byte %s", name, strings.Join(values, ","))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func writeConstants(outDir string, numImages int, sprites8x16 bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sNUM_PICTURES = %d\n", buildPrefixConstant, numImages)
	bitmask := 0x00
	if sprites8x16 {
		bitmask = 0x20
	}
	fmt.Fprintf(&sb, "%s8x16_PPUCTRL_BITMASK = $%02X\n", buildPrefixConstant, bitmask)
	fmt.Fprintf(&sb, "%sCHR_BANK_TOP = %d\n", buildPrefixConstant, 1)
	fmt.Fprintf(&sb, "%sCHR_BANK_BOTTOM = %d\n", buildPrefixConstant, 2)
	fmt.Fprintf(&sb, "%sPRG_BANK = %d\n", buildPrefixConstant, *prgBank)
	writeFile(filepath.Join(outDir, "constants.inc"), []byte(sb.String()))
}

func writeIncludes(outDir string, builders []*builtImage) {
	var sb strings.Builder
	for i := range builders {
		fmt.Fprintf(&sb, "%sBackgroundCHR_top_%d: .incbin \"%sbg_top_%d.tc\"\n", buildPrefixData, i, *prefixDir, i)
		fmt.Fprintf(&sb, "%sBackgroundCHR_bottom_%d: .incbin \"%sbg_bottom_nc_%d.tc\"\n", buildPrefixData, i, *prefixDir, i)
		fmt.Fprintf(&sb, "%sSpriteCHR_%d: .incbin \"%sspr_%d.tc\"\n", buildPrefixData, i, *prefixDir, i)
		fmt.Fprintf(&sb, "%sNameTable_compressed_%d: .incbin \"%snametable_compressed_%d.bin\"\n", buildPrefixData, i, *prefixDir, i)
		fmt.Fprintf(&sb, "%sOAM_compressed_%d: .incbin \"%soam_compressed_%d.bin\"\n", buildPrefixData, i, *prefixDir, i)
		fmt.Fprintf(&sb, "%sPalettes_%d: .incbin \"%spalettes_%d.bin\"\n", buildPrefixData, i, *prefixDir, i)
	}
	for _, table := range []string{"BackgroundCHR_top", "BackgroundCHR_bottom", "SpriteCHR", "NameTable_compressed", "OAM_compressed", "Palettes"} {
		fmt.Fprintln(&sb, hiAndLoBytes(buildPrefixData+table, len(builders)))
	}
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NumBackgroundTilesTop", func(b *screen.Builder) int { return b.TileTableBGTop.Len() }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NumBackgroundTilesBottom", func(b *screen.Builder) int { return b.TileTableBGBottom.Len() }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NumBackgroundTilesCommon", func(b *screen.Builder) int { return b.NumCommon }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NumSpriteTiles", func(b *screen.Builder) int { return b.TileTableSpr.Len() }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"OamSize", func(b *screen.Builder) int { return len(b.OAM()) }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NumSpriteTilePages", func(b *screen.Builder) int { return ceilDiv(b.TileTableSpr.Len(), 16) }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"SpriteTilesStartIndex", func(b *screen.Builder) int { return b.SpriteTilesStartIndex() }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"SpriteTilesStartPage", func(b *screen.Builder) int { return b.SpriteTilesStartPage() }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NumCommonBackgroundTilePages", func(b *screen.Builder) int { return ceilDiv(b.NumCommon, 16) }, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"BottomStartScanlineMinus1", func(b *screen.Builder) int {
		if b.BottomStartRow >= 0 {
			return b.BottomStartRow*8 - 1
		}
		return 239
	}, builders))
	fmt.Fprintln(&sb, builderBytes(buildPrefixData+"NameTableEncodingBits", func(b *screen.Builder) int {
		if b.BottomStartRow >= 0 {
			return b.BottomStartRow
		}
		return 30
	}, builders))
	fmt.Fprintf(&sb, ".include \"%sconstants.inc\"\n", *prefixDir)
	writeFile(filepath.Join(outDir, "includes.inc"), []byte(sb.String()))
}

func run(imagePaths []string) error {
	bgPalette, err := parsePPUPalette(*bgPalFlag)
	if err != nil {
		return err
	}
	sprPalette, err := parsePPUPalette(*sprPalFlag)
	if err != nil {
		return err
	}
	// The mapping palette is only needed when the PPU palettes are not
	// given directly.
	var nesPalette []byte
	if len(bgPalette) == 0 || len(sprPalette) == 0 {
		nesPalette = readNESPalette(*paletteFile)
	}
	sprites8x16 := *spriteSize == "8x16"
	var builders []*builtImage
	for i, imagePath := range imagePaths {
		built, err := buildImage(imagePath, i, *outputDir, nesPalette, bgPalette, sprPalette, sprites8x16, *sprite0)
		if err != nil {
			glog.Errorf("%v", err)
			continue
		}
		builders = append(builders, built)
	}
	if len(builders) == 0 {
		return fmt.Errorf("no image could be converted")
	}
	writeConstants(*outputDir, len(imagePaths), sprites8x16)
	writeIncludes(*outputDir, builders)
	if *preview {
		last := builders[len(builders)-1]
		picture := screen.Compose(last.builder, last.bgPalette, last.sprPalette)
		ui.Show(picture, 2*last.builder.GridWidth()*8, 2*last.builder.GridHeight()*8, "screenpack")
	}
	return nil
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "screenpack %s\nusage: screenpack [flags] image.png ...\n", versionString)
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(flag.Args()); err != nil {
		glog.Exitf("%v", err)
	}
}
