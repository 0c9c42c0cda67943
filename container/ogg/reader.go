package ogg

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/limits"
)

// Reader reads verified pages from a physical Ogg bitstream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadPage returns the next page, or io.EOF at a clean end of input.
func (r *Reader) ReadPage() (*Page, error) {
	fixed := make([]byte, limits.PageHeaderSize)
	if _, err := io.ReadFull(r.r, fixed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: page header: %v", ErrUnexpectedEOF, err)
	}
	if string(fixed[:4]) != capturePattern {
		return nil, fmt.Errorf("%w: missing capture pattern", ErrInvalidPage)
	}

	hdr := make([]byte, limits.PageHeaderSize+int(fixed[26]))
	copy(hdr, fixed)
	if _, err := io.ReadFull(r.r, hdr[limits.PageHeaderSize:]); err != nil {
		return nil, fmt.Errorf("%w: segment table: %v", ErrUnexpectedEOF, err)
	}
	bodyLen := 0
	for _, seg := range hdr[limits.PageHeaderSize:] {
		bodyLen += int(seg)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrUnexpectedEOF, err)
	}

	data := append(hdr, body...)
	p, _, err := ParsePage(data)
	return p, err
}

// StreamPacket is a packet recovered from a physical stream together with
// the serial of its logical stream.
type StreamPacket struct {
	Serial int32
	av.Packet
}

type readState struct {
	partial []byte
	seq     int64
	started bool
}

// PacketReader reassembles packets from interleaved logical streams.
// Packets are returned in page order; each packet's GranulePos is the page
// granule when it is the last packet completed on that page, else -1.
type PacketReader struct {
	pages   *Reader
	streams map[int32]*readState
	queue   []StreamPacket
}

// NewPacketReader wraps r.
func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{
		pages:   NewReader(r),
		streams: make(map[int32]*readState),
	}
}

// ReadPacket returns the next complete packet, or io.EOF.
func (pr *PacketReader) ReadPacket() (StreamPacket, error) {
	for len(pr.queue) == 0 {
		page, err := pr.pages.ReadPage()
		if err != nil {
			return StreamPacket{}, err
		}
		if err := pr.consume(page); err != nil {
			return StreamPacket{}, err
		}
	}
	p := pr.queue[0]
	pr.queue = pr.queue[1:]
	return p, nil
}

func (pr *PacketReader) consume(page *Page) error {
	st, ok := pr.streams[page.Serial()]
	if !ok {
		if !page.IsBOS() {
			return fmt.Errorf("%w: first page of serial %d lacks BOS", ErrInvalidPage, page.Serial())
		}
		st = &readState{}
		pr.streams[page.Serial()] = st
	}
	if !page.IsContinued() {
		st.partial = nil
	}

	lengths, complete := page.PacketLengths()
	offset := 0
	for i, n := range lengths {
		piece := page.Body[offset : offset+n]
		offset += n
		if i == len(lengths)-1 && !complete {
			st.partial = append(st.partial, piece...)
			break
		}

		payload := append(st.partial, piece...)
		st.partial = nil
		if payload == nil {
			payload = []byte{}
		}
		pkt := StreamPacket{
			Serial: page.Serial(),
			Packet: av.Packet{
				Payload:    payload,
				GranulePos: -1,
				Sequence:   st.seq,
				BOS:        !st.started,
			},
		}
		st.started = true
		st.seq++
		pr.queue = append(pr.queue, pkt)
	}

	// consume only runs with an empty queue, so every queued packet
	// completed on this page; the page granule belongs to the last one.
	if last := len(pr.queue) - 1; last >= 0 {
		pr.queue[last].GranulePos = page.GranulePos()
		if page.IsEOS() && complete {
			pr.queue[last].EOS = true
		}
	}
	return nil
}
