package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/mediakit/av"
	"github.com/sirupsen/logrus"
)

// OggPCM identification header layout.
const (
	pcmMagic          = "PCM     "
	pcmHeaderSize     = 28
	pcmVersionMajor   = 0
	pcmVersionMinor   = 0
	pcmFormatS16LE    = 0x00000002
	pcmVendor         = "mediakit"
	pcmHeaderPackets  = 2
	defaultPCMFrames  = 1024
	maxPCMFramesCount = 0xFFFF
)

// PCMConfig configures a PCMEngine.
type PCMConfig struct {
	SampleRate      int
	Channels        int
	FramesPerPacket int // zero selects 1024
}

// PCMEngine carries uncompressed 16-bit PCM in Ogg using the OggPCM header
// layout. It is deterministic and loss-free, which makes it the reference
// backend for container tests.
type PCMEngine struct {
	cfg     PCMConfig
	pending []int16
	granule int64
	seen    int // packets decoded, to recognise headers
	closed  bool
}

// NewPCMEngine validates cfg and creates an engine.
func NewPCMEngine(cfg PCMConfig) (*PCMEngine, error) {
	if cfg.FramesPerPacket == 0 {
		cfg.FramesPerPacket = defaultPCMFrames
	}
	if cfg.SampleRate <= 0 || cfg.Channels < 1 || cfg.Channels > 255 ||
		cfg.FramesPerPacket < 1 || cfg.FramesPerPacket > maxPCMFramesCount {
		logrus.WithFields(logrus.Fields{
			"function":          "NewPCMEngine",
			"sample_rate":       cfg.SampleRate,
			"channels":          cfg.Channels,
			"frames_per_packet": cfg.FramesPerPacket,
		}).Error("PCM engine configuration rejected")
		return nil, fmt.Errorf("%w: pcm engine rate=%d channels=%d frames=%d",
			av.ErrInvalidArgument, cfg.SampleRate, cfg.Channels, cfg.FramesPerPacket)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewPCMEngine",
		"sample_rate": cfg.SampleRate,
		"channels":    cfg.Channels,
	}).Info("Created PCM engine")

	return &PCMEngine{cfg: cfg}, nil
}

// Name implements av.Engine.
func (e *PCMEngine) Name() string { return "pcm" }

// SampleRate implements Engine.
func (e *PCMEngine) SampleRate() int { return e.cfg.SampleRate }

// Channels implements Engine.
func (e *PCMEngine) Channels() int { return e.cfg.Channels }

// GranuleRate implements av.Engine; granules count sample frames.
func (e *PCMEngine) GranuleRate() (int64, int64) { return int64(e.cfg.SampleRate), 1 }

// GranuleShift implements av.Engine.
func (e *PCMEngine) GranuleShift() uint8 { return 0 }

// HeaderPackets returns the identification and comment packets.
func (e *PCMEngine) HeaderPackets() ([]av.Packet, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}

	id := make([]byte, pcmHeaderSize)
	copy(id, pcmMagic)
	binary.BigEndian.PutUint16(id[8:], pcmVersionMajor)
	binary.BigEndian.PutUint16(id[10:], pcmVersionMinor)
	binary.BigEndian.PutUint32(id[12:], pcmFormatS16LE)
	binary.BigEndian.PutUint32(id[16:], uint32(e.cfg.SampleRate))
	id[20] = 16
	id[21] = byte(e.cfg.Channels)
	binary.BigEndian.PutUint16(id[22:], uint16(e.cfg.FramesPerPacket))
	binary.BigEndian.PutUint32(id[24:], pcmHeaderPackets-1)

	var comment bytes.Buffer
	_ = binary.Write(&comment, binary.LittleEndian, uint32(len(pcmVendor)))
	comment.WriteString(pcmVendor)
	_ = binary.Write(&comment, binary.LittleEndian, uint32(0))

	return []av.Packet{
		{Payload: id},
		{Payload: comment.Bytes()},
	}, nil
}

// EncodeSamples buffers pcm and emits one packet per FramesPerPacket frames.
func (e *PCMEngine) EncodeSamples(pcm []int16, last bool) ([]av.Packet, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}
	if len(pcm)%e.cfg.Channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not aligned to %d channels", av.ErrInvalidArgument, len(pcm), e.cfg.Channels)
	}

	e.pending = append(e.pending, pcm...)
	chunk := e.cfg.FramesPerPacket * e.cfg.Channels

	var packets []av.Packet
	for len(e.pending) >= chunk {
		packets = append(packets, e.packetize(e.pending[:chunk]))
		e.pending = e.pending[chunk:]
	}
	if last && (len(e.pending) > 0 || len(packets) == 0) {
		packets = append(packets, e.packetize(e.pending))
		e.pending = nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "PCMEngine.EncodeSamples",
		"samples":  len(pcm),
		"packets":  len(packets),
		"last":     last,
	}).Debug("Encoded PCM samples")

	return packets, nil
}

func (e *PCMEngine) packetize(samples []int16) av.Packet {
	e.granule += int64(len(samples) / e.cfg.Channels)
	return av.Packet{Payload: SamplesToBytes(samples), GranulePos: e.granule}
}

// DecodePacket parses header packets and returns samples for data packets.
func (e *PCMEngine) DecodePacket(p av.Packet) ([]int16, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}
	defer func() { e.seen++ }()

	switch e.seen {
	case 0:
		if len(p.Payload) < pcmHeaderSize || string(p.Payload[:8]) != pcmMagic {
			return nil, av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, fmt.Errorf("not an OggPCM identification header"))
		}
		if f := binary.BigEndian.Uint32(p.Payload[12:]); f != pcmFormatS16LE {
			return nil, av.NewEngineError(e.Name(), "decode", av.EngineUnsupported, fmt.Errorf("pcm format 0x%08X", f))
		}
		e.cfg.SampleRate = int(binary.BigEndian.Uint32(p.Payload[16:]))
		e.cfg.Channels = int(p.Payload[21])
		return nil, av.ErrNeedMoreData
	case 1:
		return nil, av.ErrNeedMoreData
	}

	samples, err := SamplesFromBytes(p.Payload, 16)
	if err != nil {
		return nil, av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, err)
	}
	return samples, nil
}

// Close implements av.Engine.
func (e *PCMEngine) Close() error {
	e.closed = true
	e.pending = nil
	return nil
}
