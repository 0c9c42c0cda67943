package mux

import (
	"fmt"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/ogg"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of a LogicalStream.
type State int

const (
	// StateCreated means the serial is assigned and no packet was submitted.
	StateCreated State = iota
	// StateAccumulating means packets are pending in the framer.
	StateAccumulating
	// StateFlushing means the last operation wrote pages to the sink.
	StateFlushing
	// StateClosed means the EOS packet was submitted and drained.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observer is notified after every packet a stream accepts.
type Observer func(ls *LogicalStream, p av.Packet) error

// LogicalStream sequences the packets of one encoder into pages and writes
// them to a shared sink. A LogicalStream is not safe for concurrent use;
// distinct streams sharing one sink are.
type LogicalStream struct {
	framer        ogg.Framer
	sink          *sink.Sink
	headerPackets int
	counter       int64
	pages         int64
	state         State
	observer      Observer
}

// NewLogicalStream creates a stream writing to s through a pure Go framer
// with the given serial.
func NewLogicalStream(s *sink.Sink, serial int32, headerPackets int, opts ...ogg.StreamOption) (*LogicalStream, error) {
	fr, err := ogg.NewStreamState(serial, opts...)
	if err != nil {
		return nil, err
	}
	return NewLogicalStreamWithFramer(s, fr, headerPackets)
}

// NewLogicalStreamWithFramer creates a stream over an existing framer.
// headerPackets is the number of leading metadata packets that are flushed
// into their own pages before any data packet.
func NewLogicalStreamWithFramer(s *sink.Sink, fr ogg.Framer, headerPackets int) (*LogicalStream, error) {
	if s == nil || fr == nil {
		return nil, fmt.Errorf("%w: nil sink or framer", av.ErrInvalidArgument)
	}
	if headerPackets < 0 {
		logrus.WithFields(logrus.Fields{
			"function":       "NewLogicalStream",
			"header_packets": headerPackets,
		}).Error("Negative header packet count")
		return nil, fmt.Errorf("%w: header packet count %d", av.ErrInvalidArgument, headerPackets)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "NewLogicalStream",
		"serial":         fr.Serial(),
		"header_packets": headerPackets,
	}).Info("Created logical stream")

	return &LogicalStream{
		framer:        fr,
		sink:          s,
		headerPackets: headerPackets,
		state:         StateCreated,
	}, nil
}

// Serial returns the stream serial number.
func (ls *LogicalStream) Serial() int32 { return ls.framer.Serial() }

// HeaderPackets returns the number of leading metadata packets.
func (ls *LogicalStream) HeaderPackets() int { return ls.headerPackets }

// Packets returns the number of packets accepted so far.
func (ls *LogicalStream) Packets() int64 { return ls.counter }

// Pages returns the number of pages written so far.
func (ls *LogicalStream) Pages() int64 { return ls.pages }

// State returns the lifecycle state.
func (ls *LogicalStream) State() State { return ls.state }

// Closed reports whether the stream accepted its EOS packet.
func (ls *LogicalStream) Closed() bool { return ls.state == StateClosed }

// SetObserver registers the packet-arrival callback, replacing any previous one.
func (ls *LogicalStream) SetObserver(o Observer) { ls.observer = o }

// PacketIn submits one packet to the stream.
//
// The packet gets the next sequence number and the first packet is marked
// BOS. Once the header packets are all in they are drained; an EOS packet
// drains the stream and closes it.
//
// Parameters:
//   - p: Packet to frame; Sequence and BOS are overwritten
//
// Returns:
//   - error: av.ErrContainerState on a closed stream, av.ErrInvalidArgument
//     for a late BOS, or any framer or sink error
func (ls *LogicalStream) PacketIn(p av.Packet) error {
	if ls.state == StateClosed {
		return fmt.Errorf("%w: packet on closed stream %d", av.ErrContainerState, ls.Serial())
	}
	if p.BOS && ls.counter != 0 {
		return fmt.Errorf("%w: BOS on packet %d of stream %d", av.ErrInvalidArgument, ls.counter, ls.Serial())
	}

	p.Sequence = ls.counter
	p.BOS = ls.counter == 0
	if err := ls.framer.PacketIn(p); err != nil {
		return err
	}
	ls.counter++
	ls.state = StateAccumulating

	logrus.WithFields(logrus.Fields{
		"function": "LogicalStream.PacketIn",
		"serial":   ls.Serial(),
		"sequence": p.Sequence,
		"size":     len(p.Payload),
		"granule":  p.GranulePos,
		"eos":      p.EOS,
	}).Debug("Accepted packet")

	if ls.counter == int64(ls.headerPackets) {
		if _, err := ls.Drain(); err != nil {
			return err
		}
	}

	if ls.observer != nil {
		if err := ls.observer(ls, p); err != nil {
			return err
		}
	}

	if p.EOS {
		if _, err := ls.Drain(); err != nil {
			return err
		}
		ls.state = StateClosed
		logrus.WithFields(logrus.Fields{
			"function": "LogicalStream.PacketIn",
			"serial":   ls.Serial(),
			"packets":  ls.counter,
			"pages":    ls.pages,
		}).Info("Logical stream closed")
	}
	return nil
}

// PageOut writes at most one page if the framer has enough data. It
// returns false when nothing was written.
func (ls *LogicalStream) PageOut() (bool, error) {
	page, err := ls.framer.PageOut()
	if err != nil {
		return false, err
	}
	return ls.write(page)
}

// Flush forces one page of pending packets. It returns false when nothing
// was pending.
func (ls *LogicalStream) Flush() (bool, error) {
	page, err := ls.framer.Flush()
	if err != nil {
		return false, err
	}
	return ls.write(page)
}

// Drain flushes until nothing is pending.
//
// Returns:
//   - int: Number of pages written
//   - error: Any framer or sink error; pages written before it are counted
func (ls *LogicalStream) Drain() (int, error) {
	n := 0
	for {
		wrote, err := ls.Flush()
		if err != nil {
			return n, err
		}
		if !wrote {
			return n, nil
		}
		n++
	}
}

func (ls *LogicalStream) write(page *ogg.Page) (bool, error) {
	if page == nil {
		return false, nil
	}
	if _, err := ls.sink.Write(page.Header, page.Body); err != nil {
		return false, err
	}
	ls.pages++
	if ls.state != StateClosed {
		ls.state = StateFlushing
	}
	return true, nil
}
