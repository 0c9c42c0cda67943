// Package limits provides centralized size limits for the Ogg and WAVE
// containers. This ensures consistent validation across the framer, the
// multiplexer and the wave writer.
package limits

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/mediakit/av"
)

const (
	// MaxSegmentSize is the largest lacing value in an Ogg segment table.
	MaxSegmentSize = 255

	// MaxSegmentsPerPage is the largest segment count in one Ogg page.
	MaxSegmentsPerPage = 255

	// MaxPageBody is the largest Ogg page body (255 segments of 255 bytes).
	MaxPageBody = MaxSegmentsPerPage * MaxSegmentSize

	// PageHeaderSize is the fixed part of an Ogg page header, before the
	// segment table.
	PageHeaderSize = 27

	// MaxPageHeader is the largest Ogg page header including the segment table.
	MaxPageHeader = PageHeaderSize + MaxSegmentsPerPage

	// DefaultNominalPageSize is the body size past which the framer emits a
	// page once at least four packets have completed on it.
	DefaultNominalPageSize = 4096

	// MaxPacketSize bounds a single packet handed to the framer (16 MiB).
	// Larger packets are legal Ogg but indicate a caller bug in this toolkit.
	MaxPacketSize = 16 * 1024 * 1024

	// WaveHeaderSize is the size of the canonical RIFF/WAVE PCM header.
	WaveHeaderSize = 44

	// MaxWaveDataLength is the largest data chunk whose RIFF size
	// (data length + 36) still fits in 32 bits.
	MaxWaveDataLength = math.MaxUint32 - 36
)

var (
	// ErrTooLarge indicates a size exceeds its limit.
	ErrTooLarge = errors.New("size exceeds limit")

	// ErrTooSmall indicates a size below its minimum.
	ErrTooSmall = errors.New("size below minimum")
)

// ValidateSize validates data against maxSize. Empty data is allowed.
// Returns an error wrapping av.ErrInvalidArgument and ErrTooLarge.
func ValidateSize(data []byte, maxSize int) error {
	if len(data) > maxSize {
		return fmt.Errorf("%w: %w: size %d exceeds limit %d", av.ErrInvalidArgument, ErrTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidatePacket validates a packet payload against MaxPacketSize.
func ValidatePacket(payload []byte) error {
	if len(payload) > MaxPacketSize {
		return fmt.Errorf("%w: %w: packet size %d exceeds limit %d", av.ErrInvalidArgument, ErrTooLarge, len(payload), MaxPacketSize)
	}
	return nil
}

// ValidateNominalPageSize validates a framer nominal page size, which must
// lie in [1, MaxPageBody].
func ValidateNominalPageSize(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %w: nominal page size %d", av.ErrInvalidArgument, ErrTooSmall, n)
	}
	if n > MaxPageBody {
		return fmt.Errorf("%w: %w: nominal page size %d exceeds limit %d", av.ErrInvalidArgument, ErrTooLarge, n, MaxPageBody)
	}
	return nil
}

// ValidateWaveDataLength validates a WAVE data chunk length.
func ValidateWaveDataLength(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: %w: wave data length %d", av.ErrInvalidArgument, ErrTooSmall, n)
	}
	if n > MaxWaveDataLength {
		return fmt.Errorf("%w: %w: wave data length %d exceeds limit %d", av.ErrInvalidArgument, ErrTooLarge, n, int64(MaxWaveDataLength))
	}
	return nil
}
