package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/mediakit/av"
)

// SamplesFromBytes converts interleaved raw PCM to 16-bit samples. Eight-bit
// input is unsigned as in WAVE files; sixteen-bit input is little-endian.
// Other depths are not supported.
func SamplesFromBytes(raw []byte, bitsPerSample int) ([]int16, error) {
	switch bitsPerSample {
	case 8:
		out := make([]int16, len(raw))
		for i, b := range raw {
			out[i] = int16(int(b)-128) << 8
		}
		return out, nil
	case 16:
		if len(raw)%2 != 0 {
			return nil, fmt.Errorf("%w: odd byte count %d for 16-bit samples", av.ErrInvalidArgument, len(raw))
		}
		out := make([]int16, len(raw)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", av.ErrUnsupportedConfiguration, bitsPerSample)
	}
}

// SamplesToBytes serializes samples as 16-bit little-endian PCM.
func SamplesToBytes(pcm []int16) []byte {
	out := make([]byte, 2*len(pcm))
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
