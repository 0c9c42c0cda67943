package rtp

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Static payload types for G.711 (RFC 3551).
const (
	PayloadTypePCMU = 0
	PayloadTypePCMA = 8

	// ClockRate is the G.711 RTP clock rate.
	ClockRate = 8000

	// DefaultMaxGap bounds the silence inserted for one sequence gap (one
	// second at ClockRate).
	DefaultMaxGap = ClockRate
)

// ErrUnexpectedSSRC indicates a packet from a source other than the one the
// depacketizer locked to.
var ErrUnexpectedSSRC = errors.New("rtp: unexpected SSRC")

// PayloadType returns the static payload type for a companding law.
func PayloadType(law audio.Companding) uint8 {
	if law == audio.ALaw {
		return PayloadTypePCMA
	}
	return PayloadTypePCMU
}

// CompandingFor returns the companding law of a static G.711 payload type.
func CompandingFor(pt uint8) (audio.Companding, error) {
	switch pt {
	case PayloadTypePCMU:
		return audio.ULaw, nil
	case PayloadTypePCMA:
		return audio.ALaw, nil
	default:
		return 0, fmt.Errorf("%w: payload type %d is not G.711", av.ErrUnsupportedConfiguration, pt)
	}
}

// Packetizer turns linear PCM into G.711 RTP packets.
type Packetizer struct {
	mu               sync.Mutex
	law              audio.Companding
	ssrc             uint32
	sequenceNumber   uint16
	timestamp        uint32
	samplesPerPacket int
}

// NewPacketizer creates a packetizer with a random SSRC. samplesPerPacket
// of 0 selects 160 (20 ms).
func NewPacketizer(law audio.Companding, samplesPerPacket int) (*Packetizer, error) {
	if samplesPerPacket == 0 {
		samplesPerPacket = 160
	}
	if samplesPerPacket < 0 {
		return nil, fmt.Errorf("%w: samples per packet %d", av.ErrInvalidArgument, samplesPerPacket)
	}

	ssrcBytes := make([]byte, 4)
	if _, err := rand.Read(ssrcBytes); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewPacketizer",
			"error":    err.Error(),
		}).Error("Failed to generate SSRC")
		return nil, fmt.Errorf("failed to generate SSRC: %w", err)
	}

	p := &Packetizer{
		law:              law,
		ssrc:             binary.BigEndian.Uint32(ssrcBytes),
		samplesPerPacket: samplesPerPacket,
	}

	logrus.WithFields(logrus.Fields{
		"function":           "NewPacketizer",
		"ssrc":               p.ssrc,
		"law":                law.String(),
		"samples_per_packet": samplesPerPacket,
	}).Info("Created G.711 packetizer")
	return p, nil
}

// SSRC returns the synchronization source of this packetizer.
func (p *Packetizer) SSRC() uint32 { return p.ssrc }

// Packetize encodes pcm and splits it into marshaled RTP packets. A short
// trailing chunk becomes a short packet.
func (p *Packetizer) Packetize(pcm []int16) ([][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out [][]byte
	for off := 0; off < len(pcm); off += p.samplesPerPacket {
		end := off + p.samplesPerPacket
		if end > len(pcm) {
			end = len(pcm)
		}
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         p.sequenceNumber == 0 && p.timestamp == 0,
				PayloadType:    PayloadType(p.law),
				SequenceNumber: p.sequenceNumber,
				Timestamp:      p.timestamp,
				SSRC:           p.ssrc,
			},
			Payload: p.law.Encode(pcm[off:end]),
		}
		raw, err := pkt.Marshal()
		if err != nil {
			return out, fmt.Errorf("failed to marshal RTP packet: %w", err)
		}
		out = append(out, raw)
		p.sequenceNumber++
		p.timestamp += uint32(end - off)
	}
	return out, nil
}

// Stats counts what a Depacketizer has seen.
type Stats struct {
	Packets         uint64
	Lost            uint64
	Late            uint64
	SilenceInserted uint64
}

// Depacketizer turns a G.711 RTP stream back into linear PCM. It locks to
// the first SSRC it sees, drops late or duplicate packets and fills
// sequence gaps with silence.
type Depacketizer struct {
	mu            sync.Mutex
	expectedSSRC  uint32
	hasSSRC       bool
	lastSeq       uint16
	nextTimestamp uint32
	hasLast       bool
	maxGap        int
	stats         Stats
}

// NewDepacketizer creates a depacketizer. maxGap bounds the silence
// inserted for one gap, in samples; 0 selects DefaultMaxGap.
func NewDepacketizer(maxGap int) (*Depacketizer, error) {
	if maxGap == 0 {
		maxGap = DefaultMaxGap
	}
	if maxGap < 0 {
		return nil, fmt.Errorf("%w: max gap %d", av.ErrInvalidArgument, maxGap)
	}
	return &Depacketizer{maxGap: maxGap}, nil
}

// ProcessPacket parses one RTP packet and returns its samples, preceded by
// silence when packets were lost. Late packets yield nil samples and a nil
// error.
func (d *Depacketizer) ProcessPacket(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty RTP packet", av.ErrInvalidArgument)
	}

	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(data); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Depacketizer.ProcessPacket",
			"error":    err.Error(),
		}).Error("Failed to unmarshal RTP packet")
		return nil, fmt.Errorf("%w: failed to unmarshal RTP packet: %v", av.ErrInvalidArgument, err)
	}
	law, err := CompandingFor(pkt.PayloadType)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasSSRC {
		d.expectedSSRC = pkt.SSRC
		d.hasSSRC = true
		logrus.WithFields(logrus.Fields{
			"function": "Depacketizer.ProcessPacket",
			"ssrc":     pkt.SSRC,
			"law":      law.String(),
		}).Info("Locked to SSRC")
	} else if pkt.SSRC != d.expectedSSRC {
		logrus.WithFields(logrus.Fields{
			"function":      "Depacketizer.ProcessPacket",
			"expected_ssrc": d.expectedSSRC,
			"received_ssrc": pkt.SSRC,
		}).Warn("Unexpected SSRC in RTP packet")
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrUnexpectedSSRC, d.expectedSSRC, pkt.SSRC)
	}

	var silence int
	if d.hasLast {
		delta := pkt.SequenceNumber - (d.lastSeq + 1)
		if delta >= 0x8000 {
			d.stats.Late++
			logrus.WithFields(logrus.Fields{
				"function": "Depacketizer.ProcessPacket",
				"sequence": pkt.SequenceNumber,
				"last":     d.lastSeq,
			}).Debug("Dropped late RTP packet")
			return nil, nil
		}
		if delta > 0 {
			d.stats.Lost += uint64(delta)
			// The timestamp gap is exact even when packet sizes vary.
			// A backward timestamp on a forward sequence jump carries no
			// usable gap length.
			silence = int(int32(pkt.Timestamp - d.nextTimestamp))
			switch {
			case silence < 0:
				silence = 0
			case silence > d.maxGap:
				silence = d.maxGap
			}
			logrus.WithFields(logrus.Fields{
				"function": "Depacketizer.ProcessPacket",
				"lost":     delta,
				"silence":  silence,
			}).Warn("Sequence gap detected in RTP stream")
		}
	}
	d.lastSeq = pkt.SequenceNumber
	d.nextTimestamp = pkt.Timestamp + uint32(len(pkt.Payload))
	d.hasLast = true
	d.stats.Packets++
	d.stats.SilenceInserted += uint64(silence)

	out := make([]int16, silence, silence+len(pkt.Payload))
	return append(out, law.Decode(pkt.Payload)...), nil
}

// Stats returns a snapshot of the counters.
func (d *Depacketizer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
