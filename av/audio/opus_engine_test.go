package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/ogg"
	"github.com/pion/opus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opusHead(channels byte, preSkip uint16) []byte {
	b := make([]byte, 19)
	copy(b, "OpusHead")
	b[8] = 1
	b[9] = channels
	binary.LittleEndian.PutUint16(b[10:], preSkip)
	binary.LittleEndian.PutUint32(b[12:], 48000)
	return b
}

func TestOpusEngineParsesHeaders(t *testing.T) {
	e, err := NewOpusEngine(0)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.DecodePacket(av.Packet{Payload: opusHead(2, 312)})
	assert.ErrorIs(t, err, av.ErrNeedMoreData)
	assert.Equal(t, 2, e.Channels())
	assert.Equal(t, 312, e.PreSkip())
	assert.Equal(t, 48000, e.SampleRate())

	_, err = e.DecodePacket(av.Packet{Payload: []byte("OpusTags\x00\x00\x00\x00")})
	assert.ErrorIs(t, err, av.ErrNeedMoreData)
}

func TestOpusEngineRejectsBadHead(t *testing.T) {
	e, err := NewOpusEngine(16000)
	require.NoError(t, err)

	_, err = e.DecodePacket(av.Packet{Payload: []byte("PCM     ")})
	var engErr *av.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, av.EngineBadPacket, engErr.Code)
	assert.Equal(t, "opus", engErr.Engine)
}

func TestOpusEngineEncodeUnsupported(t *testing.T) {
	e, err := NewOpusEngine(48000)
	require.NoError(t, err)

	_, err = e.EncodeSamples([]int16{0}, true)
	var engErr *av.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, av.EngineUnsupported, engErr.Code)

	_, err = e.HeaderPackets()
	require.True(t, errors.As(err, &engErr))
}

func TestPacketSamples(t *testing.T) {
	tests := []struct {
		name   string
		packet []byte
		rate   int
		want   int
	}{
		{"silk_nb_20ms", []byte{1 << 3}, 8000, 160},
		{"silk_wb_60ms", []byte{(11 << 3)}, 16000, 960},
		{"silk_two_frames", []byte{(1 << 3) | 1}, 8000, 320},
		{"celt_fb_2_5ms", []byte{28 << 3}, 48000, 120},
		{"arbitrary_count", []byte{(1 << 3) | 3, 3}, 16000, 960},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, packetSamples(tt.packet, tt.rate))
		})
	}
}

func TestUpmix(t *testing.T) {
	assert.Equal(t, []int16{7, 7, -3, -3}, upmix([]int16{7, -3}))
}

// readOggPackets returns every packet of a single-stream Ogg file.
func readOggPackets(t *testing.T, path string) []av.Packet {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var packets []av.Packet
	pr := ogg.NewPacketReader(f)
	for {
		p, err := pr.ReadPacket()
		if errors.Is(err, io.EOF) {
			return packets
		}
		require.NoError(t, err)
		packets = append(packets, p.Packet)
	}
}

func TestOpusEngineDecodesSilkFile(t *testing.T) {
	packets := readOggPackets(t, filepath.Join("testdata", "tiny.ogg"))
	require.Len(t, packets, 3)
	audioPacket := packets[2].Payload

	ref := opus.NewDecoder()
	refOut := make([]byte, opusFrameSamples*2)
	_, _, err := ref.Decode(audioPacket, refOut)
	require.NoError(t, err)
	want, err := SamplesFromBytes(refOut, 16)
	require.NoError(t, err)

	tests := []struct {
		name       string
		outputRate int
		samples    int
		exact      bool
	}{
		{"native_48k", 48000, 960, true},
		{"resampled_16k", 16000, 320, false},
		{"resampled_8k", 8000, 160, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewOpusEngine(tt.outputRate)
			require.NoError(t, err)
			defer e.Close()

			_, err = e.DecodePacket(packets[0])
			require.ErrorIs(t, err, av.ErrNeedMoreData)
			assert.Equal(t, 1, e.Channels())
			assert.Equal(t, 312, e.PreSkip())
			_, err = e.DecodePacket(packets[1])
			require.ErrorIs(t, err, av.ErrNeedMoreData)

			pcm, err := e.DecodePacket(packets[2])
			require.NoError(t, err)
			assert.InDelta(t, tt.samples, len(pcm), 2)
			if tt.exact {
				assert.Equal(t, want, pcm)
			}
		})
	}
}

func TestOpusEngineUpmixesForStereoHead(t *testing.T) {
	packets := readOggPackets(t, filepath.Join("testdata", "tiny.ogg"))
	require.Len(t, packets, 3)

	e, err := NewOpusEngine(0)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.DecodePacket(av.Packet{Payload: opusHead(2, 0)})
	require.ErrorIs(t, err, av.ErrNeedMoreData)
	_, err = e.DecodePacket(packets[1])
	require.ErrorIs(t, err, av.ErrNeedMoreData)

	pcm, err := e.DecodePacket(packets[2])
	require.NoError(t, err)
	require.Len(t, pcm, 2*opusFrameSamples)
	for i := 0; i < len(pcm); i += 2 {
		require.Equal(t, pcm[i], pcm[i+1])
	}
}
