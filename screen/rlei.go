package screen

// RLE variant optimised for nametables, which contain both constant runs
// and linearly increasing runs of tile indices.
//
// The compressed stream is a sequence of header nibbles, packed two per
// byte with the first-emitted nibble in the low 4 bits. Some headers are
// followed by exactly one data byte; data bytes are never split and
// always start on an even nibble.
//
// Decoding:
//   0     : copy next byte from input to output
//   1     : set next byte as the new constant value
//   2-8   : emit incBase, incBase+1, ... 1-22* times, bumping incBase
//   9-15  : emit the constant value 1-22* times
//
// *When the length is > maxRLELengthShort, the next nibble holds the
// additional length, 0-15.
const (
	minRLELength      = 1
	maxRLELength      = 22
	maxRLELengthShort = 6

	// MaxCompressedBlockSize is the largest compressed block the runtime
	// decoder accepts, excluding the 2-byte block header.
	MaxCompressedBlockSize = 254
)

// rleiToken is one header nibble plus its optional data byte. Extension
// nibbles travel as their own token with a nil data slice.
type rleiToken struct {
	hdr  byte
	data []byte
}

// runLength returns the length of the longest prefix of d holding a
// single repeated value, capped at maxRLELength.
func runLength(d []byte) int {
	i := 0
	for i < len(d) && i < maxRLELength && d[i] == d[0] {
		i++
	}
	return i
}

// incRunLength returns the length of the longest prefix of d where each
// byte is the previous plus one, capped at maxRLELength.
func incRunLength(d []byte) int {
	i := 0
	for i < len(d) && i < maxRLELength && int(d[i]) == int(d[0])+i {
		i++
	}
	return i
}

// packTokens lays header nibbles out two per byte, each pair followed by
// the data bytes of its two headers in nibble order. An extension nibble
// occupies the partner slot of its owning header, so output is deferred
// until a full pair (or a pair plus an extension quadruple) is ready.
func packTokens(tokens []rleiToken) []byte {
	var out []byte
	var hdrNibbles []byte
	var dataBytes [][]byte
	flush := func() {
		out = append(out, hdrNibbles[1]<<4|hdrNibbles[0])
		out = append(out, dataBytes[0]...)
		out = append(out, dataBytes[1]...)
		hdrNibbles = hdrNibbles[2:]
		dataBytes = dataBytes[2:]
	}
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		lastNibbleExtends := false
		hdrNibbles = append(hdrNibbles, t.hdr)
		if t.hdr == 8 || t.hdr == 15 {
			i++
			hdrNibbles = append(hdrNibbles, tokens[i].hdr)
			dataBytes = append(dataBytes, nil)
			lastNibbleExtends = true
		}
		dataBytes = append(dataBytes, t.data)
		switch {
		case len(hdrNibbles) == 2,
			len(hdrNibbles) == 3 && !lastNibbleExtends,
			len(hdrNibbles) == 4,
			len(hdrNibbles) == 5 && lastNibbleExtends:
			flush()
		}
	}
	if len(hdrNibbles) > 1 {
		flush()
	}
	if len(hdrNibbles) > 0 {
		out = append(out, hdrNibbles[0])
		out = append(out, dataBytes[0]...)
	}
	return out
}

// rleiCompress encodes input as a nibble-packed RLEI stream. incBase is
// the rolling base for increment runs; the updated base is returned so
// independently compressed blocks can chain it. The base can reach 256,
// hence int rather than byte.
func rleiCompress(input []byte, incBase int) ([]byte, int) {
	var tokens []rleiToken
	d := input
	rleValue := byte(0)
	skip := func(n int) {
		for _, v := range d[:n] {
			if int(v)+1 > incBase {
				incBase = int(v) + 1
			}
		}
		d = d[n:]
	}
	for len(d) > 0 {
		rleLen := runLength(d)
		rleCost := 2.0 / float64(rleLen)
		if d[0] == rleValue {
			rleCost = 0.5 / float64(rleLen)
		}
		incCost := 0.5 / float64(incRunLength(d))
		const literalCost = 0.5 + 1
		if incCost <= literalCost && incCost <= rleCost && int(d[0]) == incBase {
			n := incRunLength(d)
			first := n
			if n > maxRLELengthShort {
				first = maxRLELengthShort + 1
			}
			tokens = append(tokens, rleiToken{hdr: byte(first + 1)})
			skip(n)
			if n > maxRLELengthShort {
				tokens = append(tokens, rleiToken{hdr: byte(n - (maxRLELengthShort + 1))})
			}
		} else if rleCost <= literalCost && (d[0] == rleValue || rleLen >= 2) {
			if d[0] != rleValue {
				rleValue = d[0]
				tokens = append(tokens, rleiToken{hdr: 1, data: []byte{rleValue}})
			}
			n := rleLen
			first := n
			if n > maxRLELengthShort {
				first = maxRLELengthShort + 1
			}
			tokens = append(tokens, rleiToken{hdr: byte(9 + first - 1)})
			skip(n)
			if n > maxRLELengthShort {
				tokens = append(tokens, rleiToken{hdr: byte(n - (maxRLELengthShort + 1))})
			}
		} else {
			tokens = append(tokens, rleiToken{hdr: 0, data: []byte{d[0]}})
			skip(1)
		}
	}
	return packTokens(tokens), incBase
}
