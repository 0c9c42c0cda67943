package sink

import (
	"fmt"
	"io"

	"github.com/opd-ai/mediakit/av"
)

// Buffer is an in-memory io.WriteSeeker. Writes past the end grow the
// buffer; writes inside it overwrite.
type Buffer struct {
	data []byte
	pos  int64
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("%w: whence %d", av.ErrInvalidArgument, whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("%w: negative position %d", av.ErrInvalidArgument, abs)
	}
	b.pos = abs
	return abs, nil
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the buffer size.
func (b *Buffer) Len() int {
	return len(b.data)
}

// WriteTo implements io.WriterTo, writing the whole buffer regardless of
// the current position.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}
