// Package sink provides the shared output sink that every container writer
// goes through. A Sink serializes writes with a single mutex so pages and
// PCM chunks from concurrently encoding tracks never interleave.
package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/opd-ai/mediakit/av"
	"github.com/sirupsen/logrus"
)

// ErrNotSeekable is returned by Patch when the underlying writer cannot seek.
var ErrNotSeekable = errors.New("sink: writer is not seekable")

// Patch overwrites Data at absolute Offset.
type Patch struct {
	Offset int64
	Data   []byte
}

// Sink is a mutex-guarded output. All methods are safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	seeker  io.Seeker
	written int64
}

// New wraps w. When w also implements io.Seeker and answers a probe seek
// the sink supports Patch; pipes and terminals behind *os.File do not.
func New(w io.Writer) *Sink {
	s := &Sink{w: w}
	if seeker, ok := w.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekCurrent); err == nil {
			s.seeker = seeker
		}
	}
	return s
}

// Seekable reports whether the sink supports Patch and Position.
func (s *Sink) Seekable() bool {
	return s.seeker != nil
}

// Write writes all chunks as one unit while holding the sink lock. It
// returns the number of bytes written across every chunk.
func (s *Sink) Write(chunks ...[]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, chunk := range chunks {
		n, err := s.w.Write(chunk)
		total += n
		s.written += int64(n)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Sink.Write",
				"written":  total,
				"error":    err.Error(),
			}).Error("Sink write failed")
			return total, fmt.Errorf("sink write: %w", err)
		}
	}
	return total, nil
}

// Written returns the number of bytes written through the sink.
func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Position returns the current write offset of a seekable sink.
func (s *Sink) Position() (int64, error) {
	if s.seeker == nil {
		return 0, fmt.Errorf("%w: %w", av.ErrUnsupportedConfiguration, ErrNotSeekable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeker.Seek(0, io.SeekCurrent)
}

// Patch holds the lock, reads the current end position, asks build for the
// patches to apply, writes each at its offset and restores the position.
func (s *Sink) Patch(build func(end int64) ([]Patch, error)) error {
	if s.seeker == nil {
		return fmt.Errorf("%w: %w", av.ErrUnsupportedConfiguration, ErrNotSeekable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("sink position: %w", err)
	}
	patches, err := build(end)
	if err != nil {
		return err
	}

	for _, p := range patches {
		if p.Offset < 0 || p.Offset+int64(len(p.Data)) > end {
			return fmt.Errorf("%w: patch [%d,%d) outside written range %d",
				av.ErrInvalidArgument, p.Offset, p.Offset+int64(len(p.Data)), end)
		}
		if _, err := s.seeker.Seek(p.Offset, io.SeekStart); err != nil {
			return fmt.Errorf("sink seek: %w", err)
		}
		if _, err := s.w.Write(p.Data); err != nil {
			return fmt.Errorf("sink patch: %w", err)
		}
	}

	if _, err := s.seeker.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("sink restore position: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Sink.Patch",
		"patches":  len(patches),
		"end":      end,
	}).Debug("Patched sink")
	return nil
}
