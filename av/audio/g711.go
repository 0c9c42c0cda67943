package audio

import (
	"fmt"

	"github.com/opd-ai/mediakit/av"
)

// G.711 companding between 16-bit linear PCM and 8-bit µ-law/A-law codes.
// The scalar functions are pure and total: they never fail and clamp
// out-of-range magnitudes instead of wrapping.

const (
	ulawBias = 0x84
	ulawClip = 8159 // largest 14-bit magnitude before the bias is added
	alawClip = 0xFFF
)

var ulawSegmentEnd = [8]int{0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF}

// ULawToLinear expands a µ-law code to a 16-bit linear sample.
func ULawToLinear(u byte) int16 {
	u = ^u
	t := ((int(u&0x0F) << 3) + ulawBias) << (int(u&0x70) >> 4)
	if u&0x80 != 0 {
		return int16(ulawBias - t)
	}
	return int16(t - ulawBias)
}

// ALawToLinear expands an A-law code to a 16-bit linear sample.
func ALawToLinear(a byte) int16 {
	a ^= 0x55
	t := int(a&0x0F) << 4
	seg := int(a&0x70) >> 4
	switch seg {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= seg - 1
	}
	if a&0x80 != 0 {
		return int16(t)
	}
	return int16(-t)
}

// LinearToULaw compresses a 16-bit linear sample to a µ-law code.
func LinearToULaw(sample int16) byte {
	v := int(sample) >> 2
	mask := 0xFF
	if v < 0 {
		v = -v
		mask = 0x7F
	}
	if v > ulawClip {
		v = ulawClip
	}
	v += ulawBias >> 2

	seg := 0
	for seg < len(ulawSegmentEnd) && v > ulawSegmentEnd[seg] {
		seg++
	}
	if seg >= len(ulawSegmentEnd) {
		return byte(0x7F ^ mask)
	}
	return byte(((seg << 4) | ((v >> (seg + 1)) & 0x0F)) ^ mask)
}

// LinearToALaw compresses a 16-bit linear sample to an A-law code.
func LinearToALaw(sample int16) byte {
	v := int(sample) >> 3
	sign := 0x80
	if v < 0 {
		// one's complement keeps -4096 in range
		v = -v - 1
		sign = 0
	}
	if v > alawClip {
		v = alawClip
	}

	pos := 11
	for mask := 0x800; v&mask == 0 && pos >= 5; mask >>= 1 {
		pos--
	}

	shift := pos - 4
	if pos == 4 {
		shift = 1
	}
	lsb := (v >> shift) & 0x0F
	return byte((sign | (pos-4)<<4 | lsb) ^ 0x55)
}

// EncodeULaw compresses a block of linear samples.
func EncodeULaw(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = LinearToULaw(s)
	}
	return out
}

// DecodeULaw expands a block of µ-law codes.
func DecodeULaw(codes []byte) []int16 {
	out := make([]int16, len(codes))
	for i, c := range codes {
		out[i] = ULawToLinear(c)
	}
	return out
}

// EncodeALaw compresses a block of linear samples.
func EncodeALaw(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = LinearToALaw(s)
	}
	return out
}

// DecodeALaw expands a block of A-law codes.
func DecodeALaw(codes []byte) []int16 {
	out := make([]int16, len(codes))
	for i, c := range codes {
		out[i] = ALawToLinear(c)
	}
	return out
}

// Companding selects a G.711 law.
type Companding int

const (
	// ULaw is the North American / Japanese µ-law.
	ULaw Companding = iota
	// ALaw is the European A-law.
	ALaw
)

// String returns the conventional name of the law.
func (c Companding) String() string {
	switch c {
	case ULaw:
		return "ulaw"
	case ALaw:
		return "alaw"
	default:
		return fmt.Sprintf("Companding(%d)", int(c))
	}
}

// ParseCompanding maps "ulaw"/"mulaw"/"pcmu" and "alaw"/"pcma" to a law.
func ParseCompanding(name string) (Companding, error) {
	switch name {
	case "ulaw", "mulaw", "u-law", "pcmu":
		return ULaw, nil
	case "alaw", "a-law", "pcma":
		return ALaw, nil
	default:
		return 0, fmt.Errorf("%w: unknown companding law %q", av.ErrInvalidArgument, name)
	}
}

// Encode compresses pcm with the selected law.
func (c Companding) Encode(pcm []int16) []byte {
	if c == ALaw {
		return EncodeALaw(pcm)
	}
	return EncodeULaw(pcm)
}

// Decode expands codes with the selected law.
func (c Companding) Decode(codes []byte) []int16 {
	if c == ALaw {
		return DecodeALaw(codes)
	}
	return DecodeULaw(codes)
}
