// Package wave writes RIFF/WAVE PCM files through a shared sink. When the
// data length is unknown up front the sink must be seekable so the size
// fields can be patched at end of stream.
package wave

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/opd-ai/mediakit/limits"
	"github.com/sirupsen/logrus"
)

// Config describes the PCM stream. A nil DataLength means the length is
// patched in by EndOfStream.
type Config struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	FloatingPoint bool
	DataLength    *uint32
}

// DataLength returns a pointer to n for Config.DataLength.
func DataLength(n uint32) *uint32 {
	return &n
}

func (c Config) validate() error {
	if c.Channels < 1 || c.Channels > 0xFFFF {
		return fmt.Errorf("%w: channels %d", av.ErrInvalidArgument, c.Channels)
	}
	if c.SampleRate < 1 || int64(c.SampleRate) > 0xFFFFFFFF {
		return fmt.Errorf("%w: sample rate %d", av.ErrInvalidArgument, c.SampleRate)
	}
	switch {
	case c.FloatingPoint && (c.BitsPerSample == 32 || c.BitsPerSample == 64):
	case !c.FloatingPoint && (c.BitsPerSample == 8 || c.BitsPerSample == 16 || c.BitsPerSample == 24 || c.BitsPerSample == 32):
	default:
		return fmt.Errorf("%w: %d bits per sample (float=%t)", av.ErrInvalidArgument, c.BitsPerSample, c.FloatingPoint)
	}
	if c.DataLength != nil {
		return limits.ValidateWaveDataLength(int64(*c.DataLength))
	}
	return nil
}

// Header returns the header for cfg with the given data length.
func (c Config) Header(dataLength uint32) *Header {
	format := uint16(FormatPCM)
	if c.FloatingPoint {
		format = FormatFloat
	}
	blockAlign := c.Channels * (c.BitsPerSample / 8)
	return &Header{
		RIFFSize:      dataLength + 36,
		Format:        format,
		Channels:      uint16(c.Channels),
		SampleRate:    uint32(c.SampleRate),
		ByteRate:      uint32(c.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(c.BitsPerSample),
		DataLength:    dataLength,
	}
}

// Writer emits a WAVE header followed by raw PCM bytes.
type Writer struct {
	sink  *sink.Sink
	cfg   Config
	start int64

	mu        sync.Mutex
	written   int64
	finalized bool
}

// NewWriter validates cfg and writes the header. With an unknown data
// length on a non-seekable sink it fails before writing anything.
func NewWriter(s *sink.Sink, cfg Config) (*Writer, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil sink", av.ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "wave.NewWriter",
			"error":    err.Error(),
		}).Error("Invalid WAVE configuration")
		return nil, err
	}

	w := &Writer{sink: s, cfg: cfg}
	dataLength := uint32(0)
	if cfg.DataLength != nil {
		dataLength = *cfg.DataLength
	} else {
		if !s.Seekable() {
			logrus.WithFields(logrus.Fields{
				"function": "wave.NewWriter",
			}).Error("Unknown WAVE length requires a seekable sink")
			return nil, fmt.Errorf("%w: unknown data length on a non-seekable sink", av.ErrUnsupportedConfiguration)
		}
		start, err := s.Position()
		if err != nil {
			return nil, err
		}
		w.start = start
	}

	if _, err := s.Write(cfg.Header(dataLength).Bytes()); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "wave.NewWriter",
		"channels":    cfg.Channels,
		"sample_rate": cfg.SampleRate,
		"bits":        cfg.BitsPerSample,
		"float":       cfg.FloatingPoint,
		"known_size":  cfg.DataLength != nil,
	}).Info("Wrote WAVE header")
	return w, nil
}

// Encode appends pcm verbatim.
func (w *Writer) Encode(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return fmt.Errorf("%w: write after end of stream", av.ErrContainerState)
	}
	n, err := w.sink.Write(pcm)
	w.written += int64(n)
	return err
}

// Write implements io.Writer over Encode.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.Encode(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Written returns the number of PCM bytes accepted.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// EndOfStream finalizes the header. With an unknown length it patches the
// RIFF and data size fields from the current sink position. Calls after
// the first are no-ops.
func (w *Writer) EndOfStream() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return nil
	}

	if w.cfg.DataLength != nil {
		if int64(*w.cfg.DataLength) != w.written {
			logrus.WithFields(logrus.Fields{
				"function": "Writer.EndOfStream",
				"declared": *w.cfg.DataLength,
				"written":  w.written,
			}).Warn("WAVE data length differs from declared length")
		}
		w.finalized = true
		return nil
	}

	var dataLength int64
	err := w.sink.Patch(func(end int64) ([]sink.Patch, error) {
		dataLength = end - w.start - limits.WaveHeaderSize
		if err := limits.ValidateWaveDataLength(dataLength); err != nil {
			return nil, err
		}
		riff := make([]byte, 4)
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(riff, uint32(dataLength)+36)
		binary.LittleEndian.PutUint32(data, uint32(dataLength))
		return []sink.Patch{
			{Offset: w.start + 4, Data: riff},
			{Offset: w.start + 40, Data: data},
		}, nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Writer.EndOfStream",
			"error":    err.Error(),
		}).Error("Failed to patch WAVE header")
		return err
	}
	w.finalized = true

	logrus.WithFields(logrus.Fields{
		"function":    "Writer.EndOfStream",
		"data_length": dataLength,
	}).Info("Patched WAVE header")
	return nil
}

// Close finalizes the header.
func (w *Writer) Close() error {
	return w.EndOfStream()
}
