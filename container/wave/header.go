package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/mediakit/limits"
)

// Format tags.
const (
	FormatPCM   = 1
	FormatFloat = 3
)

// ErrInvalidHeader indicates bytes that are not a canonical 44-byte
// RIFF/WAVE header.
var ErrInvalidHeader = errors.New("wave: invalid header")

// Header is the canonical RIFF/WAVE PCM header.
type Header struct {
	RIFFSize      uint32
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataLength    uint32
}

// Bytes encodes the header in its 44-byte layout.
func (h *Header) Bytes() []byte {
	b := make([]byte, limits.WaveHeaderSize)
	copy(b[0:], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], h.RIFFSize)
	copy(b[8:], "WAVE")
	copy(b[12:], "fmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], h.Format)
	binary.LittleEndian.PutUint16(b[22:], h.Channels)
	binary.LittleEndian.PutUint32(b[24:], h.SampleRate)
	binary.LittleEndian.PutUint32(b[28:], h.ByteRate)
	binary.LittleEndian.PutUint16(b[32:], h.BlockAlign)
	binary.LittleEndian.PutUint16(b[34:], h.BitsPerSample)
	copy(b[36:], "data")
	binary.LittleEndian.PutUint32(b[40:], h.DataLength)
	return b
}

// Frames returns the number of sample frames the data chunk declares.
func (h *Header) Frames() uint32 {
	if h.BlockAlign == 0 {
		return 0
	}
	return h.DataLength / uint32(h.BlockAlign)
}

// ReadHeader reads and validates a canonical header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	b := make([]byte, limits.WaveHeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	switch {
	case string(b[0:4]) != "RIFF":
		return nil, fmt.Errorf("%w: missing RIFF tag", ErrInvalidHeader)
	case string(b[8:12]) != "WAVE":
		return nil, fmt.Errorf("%w: missing WAVE tag", ErrInvalidHeader)
	case string(b[12:16]) != "fmt ":
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrInvalidHeader)
	case binary.LittleEndian.Uint32(b[16:]) != 16:
		return nil, fmt.Errorf("%w: fmt chunk size %d", ErrInvalidHeader, binary.LittleEndian.Uint32(b[16:]))
	case string(b[36:40]) != "data":
		return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidHeader)
	}

	return &Header{
		RIFFSize:      binary.LittleEndian.Uint32(b[4:]),
		Format:        binary.LittleEndian.Uint16(b[20:]),
		Channels:      binary.LittleEndian.Uint16(b[22:]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:]),
		DataLength:    binary.LittleEndian.Uint32(b[40:]),
	}, nil
}
