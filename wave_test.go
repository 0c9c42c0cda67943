package mediakit

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/opd-ai/mediakit/container/wave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWave(t *testing.T) {
	pcm := make([]byte, 100)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	cfg := wave.Config{Channels: 1, SampleRate: 8000, BitsPerSample: 16}

	tests := []struct {
		name string
		out  func() (io.Writer, func() []byte)
	}{
		{
			name: "seekable",
			out: func() (io.Writer, func() []byte) {
				b := sink.NewBuffer()
				return b, b.Bytes
			},
		},
		{
			name: "staged",
			out: func() (io.Writer, func() []byte) {
				var b bytes.Buffer
				return &b, b.Bytes
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, contents := tt.out()
			n, err := WriteWave(w, cfg, bytes.NewReader(pcm))
			require.NoError(t, err)
			assert.Equal(t, int64(144), n)

			data := contents()
			require.Len(t, data, 144)
			h, err := wave.ReadHeader(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, uint32(100), h.DataLength)
			assert.Equal(t, uint32(136), h.RIFFSize)
			assert.Equal(t, uint32(16000), h.ByteRate)
			assert.Equal(t, pcm, data[44:])
		})
	}
}

func TestWriteWaveKnownLengthStreams(t *testing.T) {
	var b bytes.Buffer
	cfg := wave.Config{Channels: 2, SampleRate: 44100, BitsPerSample: 16, DataLength: wave.DataLength(8)}

	n, err := WriteWave(&b, cfg, bytes.NewReader(make([]byte, 8)))
	require.NoError(t, err)
	assert.Equal(t, int64(52), n)
	assert.Equal(t, 52, b.Len())
}

func TestWriteWaveRejects(t *testing.T) {
	_, err := WriteWave(nil, wave.Config{Channels: 1, SampleRate: 8000, BitsPerSample: 16}, bytes.NewReader(nil))
	assert.True(t, errors.Is(err, av.ErrInvalidArgument))

	_, err = WriteWave(sink.NewBuffer(), wave.Config{Channels: 1, SampleRate: 8000, BitsPerSample: 12}, bytes.NewReader(nil))
	assert.True(t, errors.Is(err, av.ErrInvalidArgument))
}
