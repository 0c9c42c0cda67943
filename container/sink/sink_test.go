package sink

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/opd-ai/mediakit/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestSinkWriteChunks(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	assert.False(t, s.Seekable())

	n, err := s.Write([]byte("Ogg"), []byte("S"), nil, []byte("!"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "OggS!", buf.String())
	assert.Equal(t, int64(5), s.Written())

	_, err = s.Position()
	assert.ErrorIs(t, err, av.ErrUnsupportedConfiguration)
	err = s.Patch(func(int64) ([]Patch, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotSeekable)
}

func TestSinkWriteError(t *testing.T) {
	s := New(failingWriter{})
	_, err := s.Write([]byte("x"))
	assert.Error(t, err)
}

func TestSinkConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)

	const writers, rounds = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			chunk := bytes.Repeat([]byte{'a' + id}, 16)
			for r := 0; r < rounds; r++ {
				_, err := s.Write(chunk[:8], chunk[8:])
				assert.NoError(t, err)
			}
		}(byte(i))
	}
	wg.Wait()

	out := buf.Bytes()
	require.Len(t, out, writers*rounds*16)
	for off := 0; off < len(out); off += 16 {
		unit := out[off : off+16]
		assert.Equal(t, bytes.Repeat(unit[:1], 16), unit, "torn write at %d", off)
	}
}

func TestSinkPatch(t *testing.T) {
	buf := NewBuffer()
	s := New(buf)
	require.True(t, s.Seekable())

	_, err := s.Write([]byte("hello world"))
	require.NoError(t, err)

	err = s.Patch(func(end int64) ([]Patch, error) {
		assert.Equal(t, int64(11), end)
		return []Patch{{Offset: 0, Data: []byte("J")}, {Offset: 6, Data: []byte("W")}}, nil
	})
	require.NoError(t, err)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(11), pos)

	_, err = s.Write([]byte("!"))
	require.NoError(t, err)
	assert.Equal(t, "Jello World!", string(buf.Bytes()))

	err = s.Patch(func(end int64) ([]Patch, error) {
		return []Patch{{Offset: end - 1, Data: []byte("ab")}}, nil
	})
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}

func TestBufferSeek(t *testing.T) {
	b := NewBuffer()
	_, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)

	pos, err := b.Seek(-2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
	_, err = b.Write([]byte("XYZ"))
	require.NoError(t, err)
	assert.Equal(t, "abcdXYZ", string(b.Bytes()))

	_, err = b.Seek(-1, 0)
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
	_, err = b.Seek(0, 7)
	assert.ErrorIs(t, err, av.ErrInvalidArgument)

	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

type pipeWriter struct{ bytes.Buffer }

func (p *pipeWriter) Seek(int64, int) (int64, error) {
	return 0, errors.New("illegal seek")
}

func TestFailingSeekerIsNotSeekable(t *testing.T) {
	s := New(&pipeWriter{})
	assert.False(t, s.Seekable())
	err := s.Patch(func(int64) ([]Patch, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotSeekable)
}
