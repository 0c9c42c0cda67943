package ogg

import (
	"fmt"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/limits"
	"github.com/sirupsen/logrus"
)

const packetStart = 0x100 // marks the first lacing value of a packet

// StreamState is the pure Go Framer. It follows libogg's page-building
// rules: the first page holds only the first packet; later pages grow
// until the body passes the nominal page size with at least four packets
// completed, or until 255 segments are used.
type StreamState struct {
	serial      int32
	nominalSize int

	body     []byte
	lacing   []int // lacing values, packetStart set on the first segment of a packet
	granules []int64

	pageSeq uint32
	bosDone bool
	eos     bool
	packets int64
}

// StreamOption configures a StreamState.
type StreamOption func(*StreamState) error

// WithNominalPageSize sets the body size past which PageOut emits a page.
func WithNominalPageSize(n int) StreamOption {
	return func(s *StreamState) error {
		if err := limits.ValidateNominalPageSize(n); err != nil {
			return err
		}
		s.nominalSize = n
		return nil
	}
}

// NewStreamState creates a framer for the logical stream serial.
func NewStreamState(serial int32, opts ...StreamOption) (*StreamState, error) {
	s := &StreamState{
		serial:      serial,
		nominalSize: limits.DefaultNominalPageSize,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "NewStreamState",
				"serial":   serial,
				"error":    err.Error(),
			}).Error("Invalid framer option")
			return nil, err
		}
	}
	return s, nil
}

// Serial implements Framer.
func (s *StreamState) Serial() int32 { return s.serial }

// Pending implements Framer.
func (s *StreamState) Pending() int { return len(s.lacing) }

// EOS reports whether an end-of-stream packet has been queued.
func (s *StreamState) EOS() bool { return s.eos }

// PacketIn implements Framer.
func (s *StreamState) PacketIn(p av.Packet) error {
	if s.eos {
		return fmt.Errorf("%w: packet after end of stream on serial %d", av.ErrContainerState, s.serial)
	}
	if err := limits.ValidatePacket(p.Payload); err != nil {
		return err
	}

	s.body = append(s.body, p.Payload...)
	table := SegmentTable(len(p.Payload))
	for i, v := range table {
		lv := int(v)
		g := int64(-1)
		if i == 0 {
			lv |= packetStart
		}
		if i == len(table)-1 {
			g = p.GranulePos
		}
		s.lacing = append(s.lacing, lv)
		s.granules = append(s.granules, g)
	}

	s.packets++
	if p.EOS {
		s.eos = true
	}
	return nil
}

// PageOut implements Framer.
func (s *StreamState) PageOut() (*Page, error) {
	force := len(s.lacing) > 0 && (s.eos || !s.bosDone)
	return s.flush(force), nil
}

// Flush implements Framer.
func (s *StreamState) Flush() (*Page, error) {
	return s.flush(true), nil
}

func (s *StreamState) flush(force bool) *Page {
	maxVals := len(s.lacing)
	if maxVals > limits.MaxSegmentsPerPage {
		maxVals = limits.MaxSegmentsPerPage
	}
	if maxVals == 0 {
		return nil
	}

	vals := 0
	granule := int64(-1)
	if !s.bosDone {
		// The BOS page carries the first packet alone.
		granule = 0
		for vals < maxVals {
			lv := s.lacing[vals] & 0xFF
			vals++
			if lv < limits.MaxSegmentSize {
				break
			}
		}
	} else {
		acc, done, justDone := 0, 0, 0
		for ; vals < maxVals; vals++ {
			if acc > s.nominalSize && justDone >= 4 {
				force = true
				break
			}
			lv := s.lacing[vals] & 0xFF
			acc += lv
			if lv < limits.MaxSegmentSize {
				granule = s.granules[vals]
				done++
				justDone = done
			} else {
				justDone = 0
			}
		}
		if vals == limits.MaxSegmentsPerPage {
			force = true
		}
	}
	if !force {
		return nil
	}

	var flags byte
	if s.lacing[0]&packetStart == 0 {
		flags |= FlagContinued
	}
	if !s.bosDone {
		flags |= FlagBOS
	}
	if s.eos && len(s.lacing) == vals {
		flags |= FlagEOS
	}

	segments := make([]byte, vals)
	bodyLen := 0
	for i := 0; i < vals; i++ {
		segments[i] = byte(s.lacing[i])
		bodyLen += s.lacing[i] & 0xFF
	}
	page := encodePage(flags, granule, s.serial, s.pageSeq, segments, s.body[:bodyLen])

	s.bosDone = true
	s.pageSeq++
	s.body = s.body[:copy(s.body, s.body[bodyLen:])]
	s.lacing = s.lacing[:copy(s.lacing, s.lacing[vals:])]
	s.granules = s.granules[:copy(s.granules, s.granules[vals:])]

	logrus.WithFields(logrus.Fields{
		"function": "StreamState.flush",
		"serial":   s.serial,
		"sequence": page.Sequence(),
		"segments": vals,
		"body":     bodyLen,
		"granule":  granule,
		"flags":    flags,
	}).Debug("Built Ogg page")

	return page
}
