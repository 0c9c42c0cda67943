package mux

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/ogg"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/opd-ai/mediakit/limits"
	"github.com/sirupsen/logrus"
)

// DefaultFlushInterval is the number of packets after which the
// multiplexer drains a stream.
const DefaultFlushInterval = 4

// Multiplexer owns the logical streams sharing one physical output. Every
// FlushInterval packets on a stream it drains that stream, which bounds how
// far one track can run ahead of another in the file.
type Multiplexer struct {
	sink            *sink.Sink
	flushInterval   int
	nominalPageSize int

	mu      sync.Mutex
	streams []*LogicalStream
	serials map[int32]bool
}

// Option configures a Multiplexer.
type Option func(*Multiplexer) error

// WithFlushInterval sets how many packets a stream accepts between forced
// drains.
func WithFlushInterval(n int) Option {
	return func(m *Multiplexer) error {
		if n < 1 {
			return fmt.Errorf("%w: flush interval %d", av.ErrInvalidArgument, n)
		}
		m.flushInterval = n
		return nil
	}
}

// WithNominalPageSize sets the framer page-size threshold for new streams.
func WithNominalPageSize(n int) Option {
	return func(m *Multiplexer) error {
		if err := limits.ValidateNominalPageSize(n); err != nil {
			return err
		}
		m.nominalPageSize = n
		return nil
	}
}

// New creates a new multiplexer over a shared sink.
//
// Options are applied in order; the first failing option aborts creation.
//
// Parameters:
//   - s: Physical output shared by every logical stream
//   - opts: Flush interval and page size overrides
//
// Returns:
//   - *Multiplexer: New multiplexer with no streams
//   - error: av.ErrInvalidArgument for a nil sink or a rejected option
func New(s *sink.Sink, opts ...Option) (*Multiplexer, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil sink", av.ErrInvalidArgument)
	}
	m := &Multiplexer{
		sink:            s,
		flushInterval:   DefaultFlushInterval,
		nominalPageSize: limits.DefaultNominalPageSize,
		serials:         make(map[int32]bool),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "mux.New",
				"error":    err.Error(),
			}).Error("Invalid multiplexer option")
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":       "mux.New",
		"flush_interval": m.flushInterval,
		"page_size":      m.nominalPageSize,
	}).Info("Created multiplexer")
	return m, nil
}

// Sink returns the shared output.
func (m *Multiplexer) Sink() *sink.Sink { return m.sink }

// FlushInterval returns the drain interval in packets.
func (m *Multiplexer) FlushInterval() int { return m.flushInterval }

// NewStream creates a logical stream with a fresh random serial.
//
// The stream is registered with the multiplexer's flush policy and uses its
// nominal page size.
//
// Parameters:
//   - headerPackets: Number of leading metadata packets drained into their
//     own pages before any data packet
//
// Returns:
//   - *LogicalStream: New stream in the Created state
//   - error: Any error drawing a serial or creating the framer
func (m *Multiplexer) NewStream(headerPackets int) (*LogicalStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	serial, err := m.newSerial()
	if err != nil {
		return nil, err
	}
	ls, err := NewLogicalStream(m.sink, serial, headerPackets, ogg.WithNominalPageSize(m.nominalPageSize))
	if err != nil {
		return nil, err
	}
	ls.SetObserver(m.onPacket)

	m.serials[serial] = true
	m.streams = append(m.streams, ls)
	return ls, nil
}

// Streams returns the streams created so far, in creation order.
func (m *Multiplexer) Streams() []*LogicalStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*LogicalStream(nil), m.streams...)
}

// Close reports streams that never received their EOS packet.
//
// It does not terminate them; an unterminated stream leaves the file invalid.
//
// Returns:
//   - error: av.ErrContainerState listing unterminated serials, nil otherwise
func (m *Multiplexer) Close() error {
	var open []int32
	for _, ls := range m.Streams() {
		if !ls.Closed() {
			open = append(open, ls.Serial())
		}
	}
	if len(open) > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Multiplexer.Close",
			"serials":  open,
		}).Warn("Multiplexer closed with unterminated streams")
		return fmt.Errorf("%w: unterminated streams %v", av.ErrContainerState, open)
	}
	return nil
}

func (m *Multiplexer) onPacket(ls *LogicalStream, _ av.Packet) error {
	if ls.Packets()%int64(m.flushInterval) != 0 {
		return nil
	}
	n, err := ls.Drain()
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function": "Multiplexer.onPacket",
		"serial":   ls.Serial(),
		"packets":  ls.Packets(),
		"pages":    n,
	}).Debug("Interleave flush")
	return nil
}

// newSerial draws a random serial not used by this multiplexer. Callers
// hold m.mu.
func (m *Multiplexer) newSerial() (int32, error) {
	var b [4]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("generate serial: %w", err)
		}
		serial := int32(binary.LittleEndian.Uint32(b[:]))
		if !m.serials[serial] {
			return serial, nil
		}
	}
}
