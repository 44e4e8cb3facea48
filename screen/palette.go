package screen

import (
	"image"
	"image/color"
)

// Palette colors borrowed from "RGB".
// Reference: https://emulation.gametechwiki.com/index.php/Famicom_color_palette
var nesColors = [64]color.RGBA{
	{0x6D, 0x6D, 0x6D, 255}, {0x00, 0x24, 0x92, 255}, {0x00, 0x00, 0xDB, 255}, {0x6D, 0x49, 0xDB, 255},
	{0x92, 0x00, 0x6D, 255}, {0xB6, 0x00, 0x6D, 255}, {0xB6, 0x24, 0x00, 255}, {0x92, 0x49, 0x00, 255},
	{0x6D, 0x49, 0x00, 255}, {0x24, 0x49, 0x00, 255}, {0x00, 0x6D, 0x24, 255}, {0x00, 0x92, 0x00, 255},
	{0x00, 0x49, 0x49, 255}, {0x00, 0x00, 0x00, 255}, {0x00, 0x00, 0x00, 255}, {0x00, 0x00, 0x00, 255},
	{0xB6, 0xB6, 0xB6, 255}, {0x00, 0x6D, 0xDB, 255}, {0x00, 0x49, 0xFF, 255}, {0x92, 0x00, 0xFF, 255},
	{0xB6, 0x00, 0xFF, 255}, {0xFF, 0x00, 0x92, 255}, {0xFF, 0x00, 0x00, 255}, {0xDB, 0x6D, 0x00, 255},
	{0x92, 0x6D, 0x00, 255}, {0x24, 0x92, 0x00, 255}, {0x00, 0x92, 0x00, 255}, {0x00, 0xB6, 0x6D, 255},
	{0x00, 0x92, 0x92, 255}, {0x24, 0x24, 0x24, 255}, {0x00, 0x00, 0x00, 255}, {0x00, 0x00, 0x00, 255},
	{0xFF, 0xFF, 0xFF, 255}, {0x6D, 0xB6, 0xFF, 255}, {0x92, 0x92, 0xFF, 255}, {0xDB, 0x6D, 0xFF, 255},
	{0xFF, 0x00, 0xFF, 255}, {0xFF, 0x6D, 0xFF, 255}, {0xFF, 0x92, 0x00, 255}, {0xFF, 0xB6, 0x00, 255},
	{0xDB, 0xDB, 0x00, 255}, {0x6D, 0xDB, 0x00, 255}, {0x00, 0xFF, 0x00, 255}, {0x49, 0xFF, 0xDB, 255},
	{0x00, 0xFF, 0xFF, 255}, {0x49, 0x49, 0x49, 255}, {0x00, 0x00, 0x00, 255}, {0x00, 0x00, 0x00, 255},
	{0xFF, 0xFF, 0xFF, 255}, {0xB6, 0xDB, 0xFF, 255}, {0xDB, 0xB6, 0xFF, 255}, {0xFF, 0xB6, 0xFF, 255},
	{0xFF, 0x92, 0xFF, 255}, {0xFF, 0xB6, 0xB6, 255}, {0xFF, 0xDB, 0x92, 255}, {0xFF, 0xFF, 0x49, 255},
	{0xFF, 0xFF, 0x6D, 255}, {0xB6, 0xFF, 0x49, 255}, {0x92, 0xFF, 0x6D, 255}, {0x49, 0xFF, 0xDB, 255},
	{0x92, 0xDB, 0xFF, 255}, {0x92, 0x92, 0x92, 255}, {0x00, 0x00, 0x00, 255}, {0x00, 0x00, 0x00, 255},
}

// DefaultNESPaletteRGB returns the built-in 64-entry PPU palette as 192
// bytes of RGB triples, in the same layout as a .pal file.
func DefaultNESPaletteRGB() []byte {
	out := make([]byte, 0, 3*len(nesColors))
	for _, c := range nesColors {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

func toTriplets(data []byte) [][3]int {
	triplets := make([][3]int, len(data)/3)
	for i := range triplets {
		triplets[i] = [3]int{int(data[3*i]), int(data[3*i+1]), int(data[3*i+2])}
	}
	return triplets
}

func closestPaletteEntry(rgb [3]int, palette [][3]int) int {
	minIndex := 0
	minDist := -1
	for i, p := range palette {
		dist := 0
		for c := 0; c < 3; c++ {
			d := rgb[c] - p[c]
			dist += d * d
		}
		if minDist < 0 || dist < minDist {
			minDist = dist
			minIndex = i
		}
	}
	return minIndex
}

// MapPaletteToPPUColors maps the first 32 entries of an image palette
// (768 bytes of RGB) onto the closest entries of a 192-byte PPU palette
// by squared distance, returning the 16-byte background and sprite
// palettes. Entry $0D is pushed out of reach: picking it would yield a
// blacker-than-black sync level.
func MapPaletteToPPUColors(imagePalette, nesPalette []byte) ([]byte, []byte) {
	imageTriplets := toTriplets(imagePalette)
	nesTriplets := toTriplets(nesPalette)
	nesTriplets[0x0D] = [3]int{1000000, 1000000, 1000000}
	colors := make([]byte, 0, 32)
	for _, rgb := range imageTriplets[:32] {
		colors = append(colors, byte(closestPaletteEntry(rgb, nesTriplets)))
	}
	return colors[:16], colors[16:]
}

// ImagePalette returns the palette of an indexed image as RGB triples,
// zero-padded to 768 bytes.
func ImagePalette(img *image.Paletted) []byte {
	out := make([]byte, 768)
	for i, c := range img.Palette {
		if 3*i+2 >= len(out) {
			break
		}
		r, g, b, _ := c.RGBA()
		out[3*i] = byte(r >> 8)
		out[3*i+1] = byte(g >> 8)
		out[3*i+2] = byte(b >> 8)
	}
	return out
}
