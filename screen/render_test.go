package screen

import "testing"

func TestComposeBackgroundRoundTrip(t *testing.T) {
	img := newTestImage(256, 240)
	// Pixels from colors 0..3 of palette group 0; the composited screen
	// must reproduce every pixel through nametable, pattern tables,
	// attribute table and palette.
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			img.SetColorIndex(x, y, uint8((x/3+y/7)%4))
		}
	}
	bgPalette := []byte{
		0x0F, 0x01, 0x21, 0x31,
		0x0F, 0x06, 0x16, 0x26,
		0x0F, 0x09, 0x19, 0x29,
		0x0F, 0x02, 0x12, 0x22,
	}
	sprPalette := make([]byte, 16)
	b := NewBuilder(img, false, false, 256)
	picture := Compose(b, bgPalette, sprPalette)
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			c := img.ColorIndexAt(x, y)
			want := nesColors[bgPalette[c]]
			if got := picture.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got=%v, want=%v (color %d)", x, y, got, want, c)
			}
		}
	}
}

func TestComposeSprites(t *testing.T) {
	img := newTestImage(256, 240)
	// A lone sprite pixel: color 19 = group 4, both planes set.
	img.SetColorIndex(40, 24, 19)
	bgPalette := make([]byte, 16)
	sprPalette := []byte{
		0x0F, 0x01, 0x02, 0x03,
		0x0F, 0x04, 0x05, 0x06,
		0x0F, 0x07, 0x08, 0x09,
		0x0F, 0x0A, 0x0B, 0x0C,
	}
	b := NewBuilder(img, false, false, 256)
	picture := Compose(b, bgPalette, sprPalette)
	want := nesColors[sprPalette[3]]
	if got := picture.RGBAAt(40, 24); got != want {
		t.Errorf("sprite pixel: got=%v, want=%v", got, want)
	}
	// A transparent neighbor shows the backdrop.
	backdrop := nesColors[bgPalette[0]]
	if got := picture.RGBAAt(41, 24); got != backdrop {
		t.Errorf("backdrop pixel: got=%v, want=%v", got, backdrop)
	}
}
