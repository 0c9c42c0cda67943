package rtp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// rtpdump file layout (rtptools): a text line "#!rtpplay1.0 addr/port\n",
// a 16-byte binary header, then records of an 8-byte header followed by
// the captured packet. All binary fields are big-endian.
const (
	dumpMagic        = "#!rtpplay1.0 "
	dumpHeaderSize   = 16
	dumpRecordHeader = 8
	maxDumpLine      = 128
)

// ErrInvalidDump indicates input that is not an rtpdump capture.
var ErrInvalidDump = errors.New("rtp: invalid rtpdump file")

// DumpPacket is one captured RTP packet.
type DumpPacket struct {
	Offset time.Duration
	Data   []byte
}

// DumpReader reads RTP packets from an rtpdump capture. RTCP records are
// skipped.
type DumpReader struct {
	r      *bufio.Reader
	Start  time.Time
	Source net.IP
	Port   uint16
}

// ReadDump parses the capture headers and returns a reader positioned at
// the first record.
func ReadDump(r io.Reader) (*DumpReader, error) {
	br := bufio.NewReader(r)

	line, err := br.ReadSlice('\n')
	if err != nil || len(line) > maxDumpLine || !strings.HasPrefix(string(line), dumpMagic) {
		return nil, fmt.Errorf("%w: missing %q line", ErrInvalidDump, strings.TrimSpace(dumpMagic))
	}

	hdr := make([]byte, dumpHeaderSize)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("%w: file header: %v", ErrInvalidDump, err)
	}
	sec := binary.BigEndian.Uint32(hdr[0:])
	usec := binary.BigEndian.Uint32(hdr[4:])
	source := make(net.IP, 4)
	copy(source, hdr[8:12])

	return &DumpReader{
		r:      br,
		Start:  time.Unix(int64(sec), int64(usec)*1000).UTC(),
		Source: source,
		Port:   binary.BigEndian.Uint16(hdr[12:]),
	}, nil
}

// ReadPacket returns the next RTP record, or io.EOF.
func (d *DumpReader) ReadPacket() (DumpPacket, error) {
	for {
		hdr := make([]byte, dumpRecordHeader)
		if _, err := io.ReadFull(d.r, hdr); err != nil {
			if errors.Is(err, io.EOF) {
				return DumpPacket{}, io.EOF
			}
			return DumpPacket{}, fmt.Errorf("%w: record header: %v", ErrInvalidDump, err)
		}
		length := int(binary.BigEndian.Uint16(hdr[0:]))
		plen := binary.BigEndian.Uint16(hdr[2:])
		offset := binary.BigEndian.Uint32(hdr[4:])
		if length < dumpRecordHeader {
			return DumpPacket{}, fmt.Errorf("%w: record length %d", ErrInvalidDump, length)
		}

		data := make([]byte, length-dumpRecordHeader)
		if _, err := io.ReadFull(d.r, data); err != nil {
			return DumpPacket{}, fmt.Errorf("%w: record body: %v", ErrInvalidDump, err)
		}
		if plen == 0 {
			continue // RTCP
		}
		if int(plen) < len(data) {
			data = data[:plen]
		}
		return DumpPacket{Offset: time.Duration(offset) * time.Millisecond, Data: data}, nil
	}
}

// Next returns the bytes of the next RTP packet, or io.EOF.
func (d *DumpReader) Next() ([]byte, error) {
	p, err := d.ReadPacket()
	return p.Data, err
}

// DumpWriter writes an rtpdump capture.
type DumpWriter struct {
	w io.Writer
}

// NewDumpWriter writes the capture headers for a stream from source:port
// starting at start.
func NewDumpWriter(w io.Writer, start time.Time, source net.IP, port uint16) (*DumpWriter, error) {
	ip4 := source.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	if _, err := fmt.Fprintf(w, "%s%s/%d\n", dumpMagic, ip4, port); err != nil {
		return nil, err
	}

	hdr := make([]byte, dumpHeaderSize)
	binary.BigEndian.PutUint32(hdr[0:], uint32(start.Unix()))
	binary.BigEndian.PutUint32(hdr[4:], uint32(start.Nanosecond()/1000))
	copy(hdr[8:], ip4)
	binary.BigEndian.PutUint16(hdr[12:], port)
	if _, err := w.Write(hdr); err != nil {
		return nil, err
	}
	return &DumpWriter{w: w}, nil
}

// WritePacket appends one RTP packet captured offset after the start.
func (d *DumpWriter) WritePacket(offset time.Duration, data []byte) error {
	if len(data) > 0xFFFF-dumpRecordHeader {
		return fmt.Errorf("%w: packet of %d bytes", ErrInvalidDump, len(data))
	}
	hdr := make([]byte, dumpRecordHeader)
	binary.BigEndian.PutUint16(hdr[0:], uint16(len(data)+dumpRecordHeader))
	binary.BigEndian.PutUint16(hdr[2:], uint16(len(data)))
	binary.BigEndian.PutUint32(hdr[4:], uint32(offset/time.Millisecond))
	if _, err := d.w.Write(hdr); err != nil {
		return err
	}
	_, err := d.w.Write(data)
	return err
}
