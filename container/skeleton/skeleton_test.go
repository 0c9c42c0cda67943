package skeleton

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/mux"
	"github.com/opd-ai/mediakit/container/ogg"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFisheadLayout(t *testing.T) {
	p := fisheadPacket()
	require.Len(t, p, FisheadSize)
	assert.Equal(t, "fishead\x00", string(p[:8]))
	assert.True(t, IsSkeleton(p))

	h, err := ParseFishead(p)
	require.NoError(t, err)
	assert.Equal(t, &Fishead{
		VersionMajor:    3,
		VersionMinor:    0,
		PresentationNum: 0,
		PresentationDen: 1000,
		BasetimeNum:     0,
		BasetimeDen:     1000,
	}, h)
	assert.Equal(t, make([]byte, 20), p[44:], "UTC field is zero")
}

func TestBoneLayout(t *testing.T) {
	b := Bone{
		Serial:        0x01020304,
		HeaderPackets: 2,
		GranuleNum:    48000,
		GranuleDen:    1,
		Preroll:       3,
		GranuleShift:  6,
		MessageHeaders: []MessageHeader{
			{Name: "Content-Type", Value: "audio/pcm"},
			{Name: "Role", Value: "audio/main"},
		},
	}
	p := b.Bytes()

	assert.Equal(t, "fisbone\x00", string(p[:8]))
	assert.Equal(t, []byte{44, 0, 0, 0}, p[8:12])
	assert.Equal(t, []byte{4, 3, 2, 1}, p[12:16])
	assert.Equal(t, []byte{2, 0, 0, 0}, p[16:20])
	assert.Equal(t, byte(6), p[48])
	assert.Equal(t, "Content-Type: audio/pcm\r\nRole: audio/main\r\n", string(p[FisboneFixedSize:]))

	parsed, err := ParseBone(p)
	require.NoError(t, err)
	assert.Equal(t, &b, parsed)

	ct, ok := parsed.Header("content-type")
	assert.True(t, ok)
	assert.Equal(t, "audio/pcm", ct)
	_, ok = parsed.Header("Language")
	assert.False(t, ok)

	_, err = ParseBone(p[:30])
	assert.ErrorIs(t, err, ErrInvalidPacket)
	_, err = ParseFishead(p)
	assert.ErrorIs(t, err, ErrInvalidPacket)
}

func TestEncoderStream(t *testing.T) {
	var buf bytes.Buffer
	m, err := mux.New(sink.New(&buf))
	require.NoError(t, err)

	bones := []Bone{
		{Serial: 11, HeaderPackets: 2, GranuleNum: 8000, GranuleDen: 1},
		{Serial: 22, HeaderPackets: 1, GranuleNum: 25, GranuleDen: 1, GranuleShift: 6},
	}
	enc, err := NewEncoder(m, len(bones))
	require.NoError(t, err)
	assert.Equal(t, 3, enc.HeaderPackets())
	assert.Equal(t, 3, m.Streams()[0].HeaderPackets())
	assert.ErrorIs(t, enc.EndOfStream(), av.ErrContainerState)

	for _, b := range bones {
		require.NoError(t, enc.AddBone(b))
	}
	assert.Equal(t, len(bones), enc.Bones())

	err = enc.AddBone(Bone{Serial: 33, GranuleNum: 1, GranuleDen: 0})
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
	err = enc.AddBone(Bone{Serial: 33, GranuleNum: 1, GranuleDen: 1})
	assert.ErrorIs(t, err, av.ErrContainerState)

	require.NoError(t, enc.EndOfStream())
	require.NoError(t, enc.EndOfStream())
	err = enc.AddBone(bones[0])
	assert.ErrorIs(t, err, av.ErrContainerState)

	r := ogg.NewReader(bytes.NewReader(buf.Bytes()))
	var pages []*ogg.Page
	for {
		p, err := r.ReadPage()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		pages = append(pages, p)
	}
	require.Len(t, pages, 4)
	assert.True(t, pages[0].IsBOS())
	assert.True(t, IsSkeleton(pages[0].Body))
	for i, b := range bones {
		parsed, err := ParseBone(pages[i+1].Body)
		require.NoError(t, err)
		assert.Equal(t, b.Serial, parsed.Serial)
	}
	assert.True(t, pages[3].IsEOS())
	assert.Empty(t, pages[3].Body)
	for _, p := range pages {
		assert.Equal(t, enc.Serial(), p.Serial())
	}
}

func TestEncoderHeaderAccounting(t *testing.T) {
	tests := []struct {
		name  string
		bones int
	}{
		{"no bones", 0},
		{"one bone", 1},
		{"three bones", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			m, err := mux.New(sink.New(&buf))
			require.NoError(t, err)

			enc, err := NewEncoder(m, tt.bones)
			require.NoError(t, err)
			ls := m.Streams()[0]
			assert.Equal(t, 1+tt.bones, ls.HeaderPackets())

			for i := 0; i < tt.bones; i++ {
				require.NoError(t, enc.AddBone(Bone{Serial: int32(i + 1), GranuleNum: 1, GranuleDen: 1}))
			}
			assert.Equal(t, int64(1+tt.bones), ls.Pages())
		})
	}

	m, err := mux.New(sink.New(&bytes.Buffer{}))
	require.NoError(t, err)
	_, err = NewEncoder(m, -1)
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}
