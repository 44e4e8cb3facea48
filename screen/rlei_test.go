package screen

import (
	"bytes"
	"math/rand"
	"testing"
)

// rleiDecompress is a reference decoder for the nibble stream format.
// expected is the number of output bytes, known from the block header in
// the real stream; it disambiguates a zero padding nibble in the last
// byte from a literal header.
func rleiDecompress(t *testing.T, data []byte, incBase int, expected int) []byte {
	t.Helper()
	var out []byte
	rleValue := byte(0)
	pending := -1
	i := 0
	// Every emitted byte raises incBase to at least its value plus one,
	// mirroring the encoder.
	emit := func(v byte) {
		out = append(out, v)
		if int(v)+1 > incBase {
			incBase = int(v) + 1
		}
	}
	apply := func(h byte, d int) {
		switch {
		case h == 0:
			emit(byte(d))
		case h == 1:
			rleValue = byte(d)
		case h >= 2 && h <= 7:
			for n := 0; n < int(h)-1; n++ {
				emit(byte(incBase))
			}
		case h >= 9 && h <= 14:
			for n := 0; n < int(h)-8; n++ {
				emit(rleValue)
			}
		default:
			t.Fatalf("header %d needs an extension nibble", h)
		}
	}
	applyExtended := func(h byte, ext byte) {
		length := 7 + int(ext)
		if h == 8 {
			for n := 0; n < length; n++ {
				emit(byte(incBase))
			}
		} else {
			for n := 0; n < length; n++ {
				emit(rleValue)
			}
		}
	}
	for i < len(data) && len(out) < expected {
		low := data[i] & 0x0F
		high := data[i] >> 4
		i++
		if pending >= 0 {
			applyExtended(byte(pending), low)
			pending = -1
			if len(out) >= expected {
				break
			}
			if high == 8 || high == 15 {
				pending = int(high)
				continue
			}
			d := -1
			if high == 0 || high == 1 {
				if i >= len(data) {
					break // padding nibble at stream end
				}
				d = int(data[i])
				i++
			}
			apply(high, d)
			continue
		}
		if low == 8 || low == 15 {
			applyExtended(low, high)
			continue
		}
		d1 := -1
		if low == 0 || low == 1 {
			d1 = int(data[i])
			i++
		}
		apply(low, d1)
		if len(out) >= expected {
			break
		}
		if high == 8 || high == 15 {
			pending = int(high)
			continue
		}
		d2 := -1
		if high == 0 || high == 1 {
			if i >= len(data) {
				break // padding nibble at stream end
			}
			d2 = int(data[i])
			i++
		}
		apply(high, d2)
	}
	return out
}

func TestRLEICompressScenarios(t *testing.T) {
	cases := []struct {
		name     string
		input    []byte
		incBase  int
		want     []byte
		wantBase int
	}{
		{
			name:     "literals only",
			input:    []byte{0x42, 0xFE},
			incBase:  0,
			want:     []byte{0x00, 0x42, 0xFE},
			wantBase: 0xFF,
		},
		{
			name:     "constant run of current value",
			input:    []byte{0x00, 0x00, 0x00},
			incBase:  0,
			want:     []byte{0x0B},
			wantBase: 1,
		},
		{
			name:     "short increment run",
			input:    []byte{5, 6, 7, 8, 9, 10},
			incBase:  5,
			want:     []byte{0x07},
			wantBase: 11,
		},
		{
			name:     "extended increment run",
			input:    []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			incBase:  0,
			want:     []byte{0x38},
			wantBase: 10,
		},
		{
			name:     "switch constant value mid-stream",
			input:    []byte{0x10, 0x10, 0xAA, 0xAA, 0xAA},
			incBase:  0,
			want:     []byte{0xA1, 0x10, 0xB1, 0xAA},
			wantBase: 0xAB,
		},
	}
	for _, tc := range cases {
		got, gotBase := rleiCompress(tc.input, tc.incBase)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("%s: got=% 02x, want=% 02x", tc.name, got, tc.want)
		}
		if gotBase != tc.wantBase {
			t.Errorf("%s: base: got=0x%02x, want=0x%02x", tc.name, gotBase, tc.wantBase)
		}
	}
}

func TestRLEICompressDeterminism(t *testing.T) {
	input := []byte{0, 0, 0, 1, 2, 3, 4, 4, 4, 4, 9, 9, 0x42}
	a, aBase := rleiCompress(input, 1)
	b, bBase := rleiCompress(input, 1)
	if !bytes.Equal(a, b) || aBase != bBase {
		t.Errorf("two runs differ: % 02x base %d vs % 02x base %d", a, aBase, b, bBase)
	}
}

func TestRLEICompressLengthBound(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x42},
		{0x01, 0x02, 0x04, 0x08, 0x10, 0x20},
		bytes.Repeat([]byte{0x55, 0xAA}, 64),
	}
	for _, input := range inputs {
		got, _ := rleiCompress(input, 0)
		bound := (3*len(input))/2 + 2
		if len(got) > bound {
			t.Errorf("input % 02x: compressed to %d bytes, bound %d", input, len(got), bound)
		}
	}
}

func TestRLEICompressMonotoneBase(t *testing.T) {
	inputs := []struct {
		input   []byte
		incBase int
	}{
		{[]byte{5, 5, 5}, 40},
		{[]byte{0xFF}, 0},
		{[]byte{1, 2, 3}, 0},
	}
	for _, tc := range inputs {
		_, base := rleiCompress(tc.input, tc.incBase)
		if base < tc.incBase {
			t.Errorf("input % 02x: base shrank from %d to %d", tc.input, tc.incBase, base)
		}
		max := -1
		for _, b := range tc.input {
			if int(b) > max {
				max = int(b)
			}
		}
		if len(tc.input) > 0 && base < max+1 {
			t.Errorf("input % 02x: base=%d, want >= %d", tc.input, base, max+1)
		}
	}
}

func TestRLEIRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x42},
		{0x42, 0xFE},
		{0, 0, 0},
		bytes.Repeat([]byte{7}, 22),
		bytes.Repeat([]byte{7}, 23),
		bytes.Repeat([]byte{7}, 100),
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23},
		{0x10, 0x10, 0xAA, 0xAA, 0xAA},
		{1, 2, 3, 0x42, 0x42, 0x42, 0x42, 9, 9, 1, 2, 3},
	}
	// A long increment run interleaved with constants, the shape a
	// remapped nametable row produces.
	var nt []byte
	for i := 0; i < 64; i++ {
		nt = append(nt, byte(i))
	}
	nt = append(nt, bytes.Repeat([]byte{0}, 32)...)
	for i := 64; i < 96; i++ {
		nt = append(nt, byte(i))
	}
	inputs = append(inputs, nt)
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 16; n++ {
		random := make([]byte, 97)
		for i := range random {
			random[i] = byte(rng.Intn(8))
		}
		inputs = append(inputs, random)
	}
	for _, input := range inputs {
		for _, incBase := range []int{0, 1, 7, 200} {
			compressed, _ := rleiCompress(input, incBase)
			got := rleiDecompress(t, compressed, incBase, len(input))
			if !bytes.Equal(got, input) {
				t.Errorf("round trip with base %d: input=% 02x compressed=% 02x got=% 02x", incBase, input, compressed, got)
			}
		}
	}
}
