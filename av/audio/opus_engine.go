package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/opd-ai/mediakit/av"
	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

const (
	opusHeadMagic = "OpusHead"
	opusTagsMagic = "OpusTags"
	opusGranule   = 48000

	// pion/opus decodes one 20 ms SILK frame and writes it to S16LE
	// with every sample repeated three times, which is 48 kHz mono.
	opusDecodeRate   = 48000
	opusFrameSamples = 960
)

var errOpusEncodeUnsupported = errors.New("opus encoding is not available in this build")

// OpusEngine decodes Ogg Opus streams with github.com/pion/opus. The
// decoder always produces mono 48 kHz PCM whatever the coded bandwidth;
// output is upmixed to the OpusHead channel count and resampled to
// OutputRate when that differs from 48 kHz.
type OpusEngine struct {
	decoder    opus.Decoder
	outputRate int
	channels   int
	preSkip    int
	seen       int
	resampler  *Resampler
	inputRate  int
	buf        []byte
	closed     bool
}

// NewOpusEngine creates a decode-only Opus engine producing samples at
// outputRate (48000 when zero).
func NewOpusEngine(outputRate int) (*OpusEngine, error) {
	if outputRate == 0 {
		outputRate = opusGranule
	}
	if outputRate < 0 {
		return nil, fmt.Errorf("%w: output rate %d", av.ErrInvalidArgument, outputRate)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewOpusEngine",
		"output_rate": outputRate,
	}).Info("Created Opus decode engine")

	return &OpusEngine{
		decoder:    opus.NewDecoder(),
		outputRate: outputRate,
		channels:   1,
		buf:        make([]byte, opusFrameSamples*2),
	}, nil
}

// Name implements av.Engine.
func (e *OpusEngine) Name() string { return "opus" }

// SampleRate reports the rate of decoded output.
func (e *OpusEngine) SampleRate() int { return e.outputRate }

// Channels reports the channel count from the OpusHead packet.
func (e *OpusEngine) Channels() int { return e.channels }

// PreSkip reports the number of 48 kHz samples to discard at stream start.
func (e *OpusEngine) PreSkip() int { return e.preSkip }

// GranuleRate implements av.Engine; Ogg Opus granules are always 48 kHz.
func (e *OpusEngine) GranuleRate() (int64, int64) { return opusGranule, 1 }

// GranuleShift implements av.Engine.
func (e *OpusEngine) GranuleShift() uint8 { return 0 }

// HeaderPackets is unsupported; the engine only decodes.
func (e *OpusEngine) HeaderPackets() ([]av.Packet, error) {
	return nil, av.NewEngineError(e.Name(), "headers", av.EngineUnsupported, errOpusEncodeUnsupported)
}

// EncodeSamples is unsupported; the engine only decodes.
func (e *OpusEngine) EncodeSamples([]int16, bool) ([]av.Packet, error) {
	return nil, av.NewEngineError(e.Name(), "encode", av.EngineUnsupported, errOpusEncodeUnsupported)
}

// DecodePacket consumes OpusHead and OpusTags, then decodes audio packets.
func (e *OpusEngine) DecodePacket(p av.Packet) ([]int16, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}
	defer func() { e.seen++ }()

	switch e.seen {
	case 0:
		return nil, e.parseHead(p.Payload)
	case 1:
		if len(p.Payload) < 8 || string(p.Payload[:8]) != opusTagsMagic {
			return nil, av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, fmt.Errorf("missing OpusTags"))
		}
		return nil, av.ErrNeedMoreData
	}

	if len(p.Payload) == 0 {
		return nil, av.ErrNeedMoreData
	}

	bandwidth, isStereo, err := e.decoder.Decode(p.Payload, e.buf)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OpusEngine.DecodePacket",
			"size":     len(p.Payload),
			"error":    err.Error(),
		}).Error("Opus decode failed")
		return nil, av.NewEngineError(e.Name(), "decode", av.EngineInternal, err)
	}

	n := packetSamples(p.Payload, opusDecodeRate)
	if n > opusFrameSamples {
		n = opusFrameSamples
	}
	pcm, err := SamplesFromBytes(e.buf[:2*n], 16)
	if err != nil {
		return nil, err
	}
	if e.channels == 2 {
		pcm = upmix(pcm)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "OpusEngine.DecodePacket",
		"bandwidth": bandwidth.String(),
		"stereo":    isStereo,
		"samples":   len(pcm),
	}).Debug("Decoded Opus packet")

	return e.resample(pcm, opusDecodeRate)
}

func (e *OpusEngine) parseHead(b []byte) error {
	if len(b) < 19 || string(b[:8]) != opusHeadMagic {
		return av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, fmt.Errorf("missing OpusHead"))
	}
	e.channels = int(b[9])
	if e.channels < 1 {
		return av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, fmt.Errorf("channel count %d", e.channels))
	}
	if e.channels > 2 {
		return av.NewEngineError(e.Name(), "decode", av.EngineUnsupported, fmt.Errorf("channel mapping for %d channels", e.channels))
	}
	e.preSkip = int(binary.LittleEndian.Uint16(b[10:]))

	logrus.WithFields(logrus.Fields{
		"function":   "OpusEngine.parseHead",
		"channels":   e.channels,
		"pre_skip":   e.preSkip,
		"input_rate": binary.LittleEndian.Uint32(b[12:]),
	}).Info("Parsed OpusHead")

	return av.ErrNeedMoreData
}

func (e *OpusEngine) resample(pcm []int16, rate int) ([]int16, error) {
	if rate == e.outputRate {
		return pcm, nil
	}
	if e.resampler == nil || e.inputRate != rate {
		r, err := NewResampler(ResamplerConfig{
			InputRate:  uint32(rate),
			OutputRate: uint32(e.outputRate),
			Channels:   e.channels,
		})
		if err != nil {
			return nil, err
		}
		e.resampler = r
		e.inputRate = rate
	}
	if len(pcm)%e.channels != 0 {
		pcm = pcm[:len(pcm)-len(pcm)%e.channels]
	}
	return e.resampler.Resample(pcm)
}

// Close implements av.Engine.
func (e *OpusEngine) Close() error {
	e.closed = true
	return nil
}

// packetSamples reports samples per channel in a packet from its TOC byte
// (RFC 6716 section 3.1) at the given output rate.
func packetSamples(packet []byte, rate int) int {
	toc := packet[0]
	config := int(toc >> 3)

	var tenthsOfMs int
	switch {
	case config < 12: // SILK
		tenthsOfMs = [4]int{100, 200, 400, 600}[config&3]
	case config < 16: // Hybrid
		tenthsOfMs = [2]int{100, 200}[config&1]
	default: // CELT
		tenthsOfMs = [4]int{25, 50, 100, 200}[config&3]
	}

	frames := 1
	switch toc & 3 {
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) > 1 {
			frames = int(packet[1] & 0x3F)
		}
	}
	return frames * tenthsOfMs * rate / 10000
}

func upmix(mono []int16) []int16 {
	stereo := make([]int16, 2*len(mono))
	for i, s := range mono {
		stereo[2*i], stereo[2*i+1] = s, s
	}
	return stereo
}
