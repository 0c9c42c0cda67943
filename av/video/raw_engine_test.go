package video

import (
	"errors"
	"testing"

	"github.com/opd-ai/mediakit/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRawEngine(t *testing.T, w, h int) *RawEngine {
	t.Helper()
	e, err := NewRawEngine(RawConfig{Width: w, Height: h, Subsampling: Subsampling420, FrameRateNum: 25, FrameRateDen: 1})
	require.NoError(t, err)
	return e
}

func TestNewRawEngineValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  RawConfig
	}{
		{"zero_width", RawConfig{Width: 0, Height: 4, FrameRateNum: 25, FrameRateDen: 1}},
		{"zero_rate", RawConfig{Width: 4, Height: 4, FrameRateNum: 0, FrameRateDen: 1}},
		{"huge_shift", RawConfig{Width: 4, Height: 4, FrameRateNum: 25, FrameRateDen: 1, KeyframeShift: 40}},
		{"bad_subsampling", RawConfig{Width: 4, Height: 4, FrameRateNum: 25, FrameRateDen: 1, Subsampling: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRawEngine(tt.cfg)
			assert.ErrorIs(t, err, av.ErrInvalidArgument)
		})
	}
}

func TestRawEngineRoundTrip(t *testing.T) {
	enc := newTestRawEngine(t, 20, 10)
	defer enc.Close()
	dec, err := NewRawEngine(RawConfig{Width: 1, Height: 1, FrameRateNum: 1, FrameRateDen: 1})
	require.NoError(t, err)
	defer dec.Close()

	headers, err := enc.HeaderPackets()
	require.NoError(t, err)
	require.Len(t, headers, 1)

	_, err = dec.DecodePacket(headers[0])
	assert.ErrorIs(t, err, av.ErrNeedMoreData)
	assert.Equal(t, enc.Config(), dec.Config())

	img, err := FromRGB24(solidFrame(20, 10, 3, 10, 200, 30), 20, 10, Subsampling420)
	require.NoError(t, err)

	packets, err := enc.EncodeImage(img, false)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, int64(1)<<defaultRawShift, packets[0].GranulePos)

	got, err := dec.DecodePacket(packets[0])
	require.NoError(t, err)
	assert.Equal(t, img.Y.Data, got.Y.Data)
	assert.Equal(t, img.Cb.Data, got.Cb.Data)
	assert.Equal(t, img.Cr.Data, got.Cr.Data)
}

func TestRawEngineTerminatingPacket(t *testing.T) {
	e := newTestRawEngine(t, 4, 4)

	img, err := NewImage(4, 4, Subsampling420)
	require.NoError(t, err)
	_, err = e.EncodeImage(img, false)
	require.NoError(t, err)

	packets, err := e.EncodeImage(nil, true)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Empty(t, packets[0].Payload)
	assert.Equal(t, int64(1)<<defaultRawShift, packets[0].GranulePos)

	_, err = e.EncodeImage(nil, false)
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}

func TestRawEngineRejectsMismatchedFrame(t *testing.T) {
	e := newTestRawEngine(t, 4, 4)

	img, err := NewImage(8, 4, Subsampling420)
	require.NoError(t, err)
	_, err = e.EncodeImage(img, false)
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}

func TestRawEngineDecodeRejectsTruncatedFrame(t *testing.T) {
	enc := newTestRawEngine(t, 4, 4)
	headers, err := enc.HeaderPackets()
	require.NoError(t, err)

	dec := newTestRawEngine(t, 4, 4)
	_, err = dec.DecodePacket(headers[0])
	require.ErrorIs(t, err, av.ErrNeedMoreData)

	_, err = dec.DecodePacket(av.Packet{Payload: []byte{0, 1, 2, 3}})
	var engErr *av.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, av.EngineBadPacket, engErr.Code)
}
