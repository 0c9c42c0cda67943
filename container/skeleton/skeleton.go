// Package skeleton writes an Ogg Skeleton 3.0 logical stream describing the
// other streams of a multiplexed file.
//
// The fishead packet becomes the first BOS page of the file. One fisbone
// per described stream follows once every BOS page is out, and the empty
// EOS packet closes the skeleton after all secondary header pages:
//
//	skel, _ := skeleton.NewEncoder(m, 2) // fishead BOS page, two bones declared
//	// BOS pages of the described streams
//	skel.AddBone(skeleton.Bone{Serial: s, ...})
//	// remaining header pages
//	skel.EndOfStream()
package skeleton

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/mux"
	"github.com/sirupsen/logrus"
)

const (
	fisheadMagic = "fishead\x00"
	fisboneMagic = "fisbone\x00"

	// FisheadSize is the size of a version 3.0 fishead packet.
	FisheadSize = 64
	// FisboneFixedSize is the size of a fisbone packet without message headers.
	FisboneFixedSize = 52

	versionMajor = 3
	versionMinor = 0

	messageHeaderOffset = FisboneFixedSize - 8
	timeDenominator     = 1000
)

// ErrInvalidPacket indicates bytes that are not a skeleton packet.
var ErrInvalidPacket = errors.New("skeleton: invalid packet")

// MessageHeader is one "Name: value" line of a fisbone.
type MessageHeader struct {
	Name  string
	Value string
}

// Bone describes one logical stream.
type Bone struct {
	Serial         int32
	HeaderPackets  uint32
	GranuleNum     int64
	GranuleDen     int64
	StartGranule   int64
	Preroll        uint32
	GranuleShift   uint8
	MessageHeaders []MessageHeader
}

// Fishead is the skeleton identification header.
type Fishead struct {
	VersionMajor    uint16
	VersionMinor    uint16
	PresentationNum int64
	PresentationDen int64
	BasetimeNum     int64
	BasetimeDen     int64
}

// Bytes encodes the fisbone packet.
func (b *Bone) Bytes() []byte {
	var msg bytes.Buffer
	for _, h := range b.MessageHeaders {
		msg.WriteString(h.Name)
		msg.WriteString(": ")
		msg.WriteString(h.Value)
		msg.WriteString("\r\n")
	}

	out := make([]byte, FisboneFixedSize, FisboneFixedSize+msg.Len())
	copy(out, fisboneMagic)
	binary.LittleEndian.PutUint32(out[8:], messageHeaderOffset)
	binary.LittleEndian.PutUint32(out[12:], uint32(b.Serial))
	binary.LittleEndian.PutUint32(out[16:], b.HeaderPackets)
	binary.LittleEndian.PutUint64(out[20:], uint64(b.GranuleNum))
	binary.LittleEndian.PutUint64(out[28:], uint64(b.GranuleDen))
	binary.LittleEndian.PutUint64(out[36:], uint64(b.StartGranule))
	binary.LittleEndian.PutUint32(out[44:], b.Preroll)
	out[48] = b.GranuleShift
	return append(out, msg.Bytes()...)
}

// ParseBone decodes a fisbone packet.
func ParseBone(p []byte) (*Bone, error) {
	if len(p) < FisboneFixedSize || string(p[:8]) != fisboneMagic {
		return nil, fmt.Errorf("%w: not a fisbone", ErrInvalidPacket)
	}
	off := 8 + int(binary.LittleEndian.Uint32(p[8:]))
	if off < FisboneFixedSize || off > len(p) {
		return nil, fmt.Errorf("%w: message header offset %d", ErrInvalidPacket, off)
	}

	b := &Bone{
		Serial:        int32(binary.LittleEndian.Uint32(p[12:])),
		HeaderPackets: binary.LittleEndian.Uint32(p[16:]),
		GranuleNum:    int64(binary.LittleEndian.Uint64(p[20:])),
		GranuleDen:    int64(binary.LittleEndian.Uint64(p[28:])),
		StartGranule:  int64(binary.LittleEndian.Uint64(p[36:])),
		Preroll:       binary.LittleEndian.Uint32(p[44:]),
		GranuleShift:  p[48],
	}
	for _, line := range strings.Split(string(p[off:]), "\r\n") {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: message header %q", ErrInvalidPacket, line)
		}
		b.MessageHeaders = append(b.MessageHeaders, MessageHeader{Name: name, Value: value})
	}
	return b, nil
}

// Header returns the value of the named message header.
func (b *Bone) Header(name string) (string, bool) {
	for _, h := range b.MessageHeaders {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func fisheadPacket() []byte {
	out := make([]byte, FisheadSize)
	copy(out, fisheadMagic)
	binary.LittleEndian.PutUint16(out[8:], versionMajor)
	binary.LittleEndian.PutUint16(out[10:], versionMinor)
	binary.LittleEndian.PutUint64(out[12:], 0)
	binary.LittleEndian.PutUint64(out[20:], timeDenominator)
	binary.LittleEndian.PutUint64(out[28:], 0)
	binary.LittleEndian.PutUint64(out[36:], timeDenominator)
	// bytes 44..63: UTC time, left zero
	return out
}

// ParseFishead decodes a fishead packet.
func ParseFishead(p []byte) (*Fishead, error) {
	if len(p) < 44 || string(p[:8]) != fisheadMagic {
		return nil, fmt.Errorf("%w: not a fishead", ErrInvalidPacket)
	}
	return &Fishead{
		VersionMajor:    binary.LittleEndian.Uint16(p[8:]),
		VersionMinor:    binary.LittleEndian.Uint16(p[10:]),
		PresentationNum: int64(binary.LittleEndian.Uint64(p[12:])),
		PresentationDen: int64(binary.LittleEndian.Uint64(p[20:])),
		BasetimeNum:     int64(binary.LittleEndian.Uint64(p[28:])),
		BasetimeDen:     int64(binary.LittleEndian.Uint64(p[36:])),
	}, nil
}

// IsSkeleton reports whether a BOS packet starts a skeleton stream.
func IsSkeleton(p []byte) bool {
	return len(p) >= 8 && string(p[:8]) == fisheadMagic
}

// Encoder writes the skeleton stream into a multiplexer.
type Encoder struct {
	stream *mux.LogicalStream
	bones  int
	added  int
}

// NewEncoder creates the skeleton stream and writes the fishead BOS page.
// bones is the number of fisbones that will follow; the stream declares the
// fishead and those fisbones as its header packets.
func NewEncoder(m *mux.Multiplexer, bones int) (*Encoder, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil multiplexer", av.ErrInvalidArgument)
	}
	if bones < 0 {
		return nil, fmt.Errorf("%w: bone count %d", av.ErrInvalidArgument, bones)
	}
	ls, err := m.NewStream(1 + bones)
	if err != nil {
		return nil, err
	}
	if err := ls.PacketIn(av.Packet{Payload: fisheadPacket()}); err != nil {
		return nil, err
	}
	if _, err := ls.Flush(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "skeleton.NewEncoder",
		"serial":   ls.Serial(),
		"bones":    bones,
	}).Info("Wrote skeleton fishead")
	return &Encoder{stream: ls, bones: bones}, nil
}

// Serial returns the skeleton stream serial.
func (e *Encoder) Serial() int32 { return e.stream.Serial() }

// HeaderPackets returns the fishead plus one per declared bone.
func (e *Encoder) HeaderPackets() int { return e.stream.HeaderPackets() }

// Bones returns the number of fisbones written so far.
func (e *Encoder) Bones() int { return e.added }

// AddBone writes a fisbone describing another stream on its own page.
func (e *Encoder) AddBone(b Bone) error {
	if e.stream.Closed() {
		return fmt.Errorf("%w: bone after skeleton end of stream", av.ErrContainerState)
	}
	if b.GranuleDen <= 0 || b.GranuleNum <= 0 {
		return fmt.Errorf("%w: granule rate %d/%d", av.ErrInvalidArgument, b.GranuleNum, b.GranuleDen)
	}
	if e.added == e.bones {
		return fmt.Errorf("%w: all %d declared bones written", av.ErrContainerState, e.bones)
	}
	if err := e.stream.PacketIn(av.Packet{Payload: b.Bytes()}); err != nil {
		return err
	}
	if _, err := e.stream.Flush(); err != nil {
		return err
	}
	e.added++

	logrus.WithFields(logrus.Fields{
		"function": "Encoder.AddBone",
		"serial":   b.Serial,
		"headers":  b.HeaderPackets,
		"rate_num": b.GranuleNum,
		"rate_den": b.GranuleDen,
	}).Debug("Wrote fisbone")
	return nil
}

// EndOfStream writes the empty EOS packet. Every declared bone must have
// been written first.
func (e *Encoder) EndOfStream() error {
	if e.stream.Closed() {
		return nil
	}
	if e.added != e.bones {
		return fmt.Errorf("%w: %d of %d bones written", av.ErrContainerState, e.added, e.bones)
	}
	return e.stream.PacketIn(av.Packet{EOS: true})
}
