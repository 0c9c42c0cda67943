package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"

	gogg "github.com/thesyncim/gopus/container/ogg"

	"github.com/opd-ai/mediakit/limits"
)

// Page header flags.
const (
	FlagContinued = gogg.PageFlagContinuation
	FlagBOS       = gogg.PageFlagBOS
	FlagEOS       = gogg.PageFlagEOS
)

const capturePattern = "OggS"

// Page is one framed Ogg page. Header holds the 27 fixed bytes plus the
// segment table with the CRC filled in; Body holds the segment data. A Page
// owns both slices and never aliases framer buffers.
type Page struct {
	Header []byte
	Body   []byte
}

// Version returns the stream structure version.
func (p *Page) Version() byte { return p.Header[4] }

// Flags returns the header type byte.
func (p *Page) Flags() byte { return p.Header[5] }

// IsContinued reports whether the page starts inside a packet.
func (p *Page) IsContinued() bool { return p.Header[5]&FlagContinued != 0 }

// IsBOS reports whether this is the first page of its logical stream.
func (p *Page) IsBOS() bool { return p.Header[5]&FlagBOS != 0 }

// IsEOS reports whether this is the last page of its logical stream.
func (p *Page) IsEOS() bool { return p.Header[5]&FlagEOS != 0 }

// GranulePos returns the granule position of the last packet completed on
// the page, or -1 when no packet completes here.
func (p *Page) GranulePos() int64 { return int64(binary.LittleEndian.Uint64(p.Header[6:])) }

// Serial returns the logical stream serial number.
func (p *Page) Serial() int32 { return int32(binary.LittleEndian.Uint32(p.Header[14:])) }

// Sequence returns the page sequence number within the logical stream.
func (p *Page) Sequence() uint32 { return binary.LittleEndian.Uint32(p.Header[18:]) }

// CRC returns the stored checksum.
func (p *Page) CRC() uint32 { return binary.LittleEndian.Uint32(p.Header[22:]) }

// Segments returns the segment table.
func (p *Page) Segments() []byte {
	n := int(p.Header[26])
	return p.Header[limits.PageHeaderSize : limits.PageHeaderSize+n]
}

// Len returns the encoded size of the page.
func (p *Page) Len() int { return len(p.Header) + len(p.Body) }

// Bytes returns the page as one contiguous buffer.
func (p *Page) Bytes() []byte {
	out := make([]byte, 0, p.Len())
	out = append(out, p.Header...)
	return append(out, p.Body...)
}

// PacketLengths returns the sizes of the packet pieces on the page. When
// the last segment is 255 the final piece continues on the next page and
// is reported with complete == false.
func (p *Page) PacketLengths() (lengths []int, complete bool) {
	cur := 0
	complete = true
	for _, seg := range p.Segments() {
		cur += int(seg)
		if seg < limits.MaxSegmentSize {
			lengths = append(lengths, cur)
			cur = 0
		}
	}
	if n := len(p.Segments()); n > 0 && p.Segments()[n-1] == limits.MaxSegmentSize {
		lengths = append(lengths, cur)
		complete = false
	}
	return lengths, complete
}

// encodePage serializes the page fields with gopus, which fills in the
// checksum, and splits the result back into header and body.
func encodePage(flags byte, granule int64, serial int32, seq uint32, segments, body []byte) *Page {
	raw := (&gogg.Page{
		HeaderType:   flags,
		GranulePos:   uint64(granule),
		SerialNumber: uint32(serial),
		PageSequence: seq,
		Segments:     segments,
		Payload:      body,
	}).Encode()
	hdrLen := limits.PageHeaderSize + len(segments)
	return &Page{Header: raw[:hdrLen:hdrLen], Body: raw[hdrLen:]}
}

// Verify recomputes the checksum and compares it with the stored value.
func (p *Page) Verify() error {
	if _, _, err := gogg.ParsePage(p.Bytes()); err != nil {
		return translateError(err, p.CRC())
	}
	return nil
}

func translateError(err error, stored uint32) error {
	switch {
	case errors.Is(err, gogg.ErrBadCRC):
		return fmt.Errorf("%w: stored 0x%08X", ErrBadCRC, stored)
	case errors.Is(err, gogg.ErrInvalidPage):
		return fmt.Errorf("%w: %v", ErrInvalidPage, err)
	default:
		return err
	}
}

// ParsePage parses and verifies one page at the start of data, returning
// the page and the number of bytes consumed. The returned page copies its
// bytes out of data.
func ParsePage(data []byte) (*Page, int, error) {
	if len(data) < limits.PageHeaderSize {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrUnexpectedEOF, len(data))
	}
	if string(data[:4]) != capturePattern {
		return nil, 0, fmt.Errorf("%w: missing capture pattern", ErrInvalidPage)
	}
	if data[4] != 0 {
		return nil, 0, fmt.Errorf("%w: version %d", ErrInvalidPage, data[4])
	}
	hdrLen := limits.PageHeaderSize + int(data[26])
	if len(data) < hdrLen {
		return nil, 0, fmt.Errorf("%w: segment table", ErrUnexpectedEOF)
	}
	bodyLen := 0
	for _, seg := range data[limits.PageHeaderSize:hdrLen] {
		bodyLen += int(seg)
	}
	if len(data) < hdrLen+bodyLen {
		return nil, 0, fmt.Errorf("%w: body", ErrUnexpectedEOF)
	}

	parsed, n, err := gogg.ParsePage(data)
	if err != nil {
		return nil, 0, translateError(err, binary.LittleEndian.Uint32(data[22:]))
	}
	return &Page{
		Header: append([]byte(nil), data[:hdrLen]...),
		Body:   parsed.Payload,
	}, n, nil
}

// SegmentTable returns the lacing values for a packet of n bytes. A packet
// whose length is a multiple of 255, including zero, ends with a 0 lacing
// value.
func SegmentTable(n int) []byte {
	table := make([]byte, n/limits.MaxSegmentSize+1)
	for i := 0; i < len(table)-1; i++ {
		table[i] = limits.MaxSegmentSize
	}
	table[len(table)-1] = byte(n % limits.MaxSegmentSize)
	return table
}
