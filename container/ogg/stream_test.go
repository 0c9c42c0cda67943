package ogg

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/opd-ai/mediakit/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogg "github.com/thesyncim/gopus/container/ogg"
)

func newTestStream(t *testing.T, opts ...StreamOption) *StreamState {
	t.Helper()
	s, err := NewStreamState(0x1234, opts...)
	require.NoError(t, err)
	return s
}

func packetOf(size int, granule int64) av.Packet {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}
	return av.Packet{Payload: payload, GranulePos: granule}
}

func TestEncodePageChecksum(t *testing.T) {
	tests := []struct {
		name    string
		flags   byte
		granule int64
		body    []byte
		crc     uint32
	}{
		{"bos hello", FlagBOS, 0, []byte("hello"), 0xB6FB1A3B},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := encodePage(tt.flags, tt.granule, 1, 0, SegmentTable(len(tt.body)), tt.body)
			assert.Equal(t, tt.crc, page.CRC())
			assert.NoError(t, page.Verify())
		})
	}
}

func TestFramedPagesParseWithGopus(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(av.Packet{Payload: bytes.Repeat([]byte{7}, 600), GranulePos: 960}))
	require.NoError(t, s.PacketIn(av.Packet{Payload: []byte("tail"), GranulePos: 1920, EOS: true}))

	var pages []*Page
	for {
		page, err := s.Flush()
		require.NoError(t, err)
		if page == nil {
			break
		}
		pages = append(pages, page)
	}
	require.NotEmpty(t, pages)

	for _, page := range pages {
		parsed, n, err := gogg.ParsePage(page.Bytes())
		require.NoError(t, err)
		assert.Equal(t, page.Len(), n)
		assert.Equal(t, page.Flags(), parsed.HeaderType)
		assert.Equal(t, uint64(page.GranulePos()), parsed.GranulePos)
		assert.Equal(t, uint32(page.Serial()), parsed.SerialNumber)
		assert.Equal(t, page.Sequence(), parsed.PageSequence)
		assert.Equal(t, page.Segments(), parsed.Segments)
		assert.Equal(t, page.Body, parsed.Payload)
	}
	assert.True(t, pages[len(pages)-1].IsEOS())
}

func TestSegmentTable(t *testing.T) {
	tests := []struct {
		size int
		want []byte
	}{
		{0, []byte{0}},
		{1, []byte{1}},
		{254, []byte{254}},
		{255, []byte{255, 0}},
		{600, []byte{255, 255, 90}},
		{510, []byte{255, 255, 0}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SegmentTable(tt.size), "size %d", tt.size)
	}
}

func TestFirstPageCarriesOnlyFirstPacket(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(packetOf(30, 0)))
	require.NoError(t, s.PacketIn(packetOf(40, 10)))
	require.NoError(t, s.PacketIn(packetOf(50, 20)))

	page, err := s.PageOut()
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.True(t, page.IsBOS())
	assert.False(t, page.IsContinued())
	assert.Equal(t, []byte{30}, page.Segments())
	assert.Equal(t, uint32(0), page.Sequence())
	assert.Equal(t, int32(0x1234), page.Serial())
	assert.Equal(t, int64(0), page.GranulePos())

	// Two small packets do not reach the nominal size.
	page, err = s.PageOut()
	require.NoError(t, err)
	assert.Nil(t, page)

	page, err = s.Flush()
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.False(t, page.IsBOS())
	assert.Equal(t, []byte{40, 50}, page.Segments())
	assert.Equal(t, uint32(1), page.Sequence())
	assert.Equal(t, int64(20), page.GranulePos())
	assert.Len(t, page.Body, 90)
	assert.Equal(t, 0, s.Pending())

	page, err = s.Flush()
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestPageOutWaitsForNominalSizeAndFourPackets(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(packetOf(10, 0)))
	_, err := s.PageOut()
	require.NoError(t, err)

	// The page closes once a segment arrives past the nominal size with
	// four packets already complete.
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.PacketIn(packetOf(1000, int64(i))))
		page, err := s.PageOut()
		require.NoError(t, err)
		assert.Nil(t, page, "page emitted after %d packets", i)
	}

	require.NoError(t, s.PacketIn(packetOf(1000, 6)))
	page, err := s.PageOut()
	require.NoError(t, err)
	require.NotNil(t, page)
	lengths, complete := page.PacketLengths()
	assert.True(t, complete)
	assert.Equal(t, []int{1000, 1000, 1000, 1000, 1000}, lengths)
	assert.Equal(t, int64(5), page.GranulePos())
}

func TestNominalPageSizeOption(t *testing.T) {
	s := newTestStream(t, WithNominalPageSize(100))
	require.NoError(t, s.PacketIn(packetOf(10, 0)))
	_, err := s.PageOut()
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.PacketIn(packetOf(30, int64(i))))
	}
	page, err := s.PageOut()
	require.NoError(t, err)
	require.NotNil(t, page)
	lengths, _ := page.PacketLengths()
	assert.Len(t, lengths, 4)

	_, err = NewStreamState(1, WithNominalPageSize(0))
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}

func TestLargePacketSpansPages(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(packetOf(10, 0)))
	_, err := s.PageOut()
	require.NoError(t, err)

	require.NoError(t, s.PacketIn(packetOf(70000, 99)))

	first, err := s.PageOut()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Len(t, first.Segments(), 255)
	assert.Equal(t, int64(-1), first.GranulePos())
	_, complete := first.PacketLengths()
	assert.False(t, complete)

	second, err := s.Flush()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, second.IsContinued())
	assert.Equal(t, int64(99), second.GranulePos())
	assert.Equal(t, 70000, len(first.Body)+len(second.Body))
}

func TestEndOfStream(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(packetOf(10, 0)))
	require.NoError(t, s.PacketIn(packetOf(10, 1)))
	eos := packetOf(10, 2)
	eos.EOS = true
	require.NoError(t, s.PacketIn(eos))
	assert.True(t, s.EOS())

	var pages []*Page
	for {
		page, err := s.PageOut()
		require.NoError(t, err)
		if page == nil {
			break
		}
		pages = append(pages, page)
	}

	require.Len(t, pages, 2)
	assert.True(t, pages[0].IsBOS())
	assert.False(t, pages[0].IsEOS())
	assert.True(t, pages[1].IsEOS())
	assert.Equal(t, int64(2), pages[1].GranulePos())

	err := s.PacketIn(packetOf(1, 3))
	assert.ErrorIs(t, err, av.ErrContainerState)
}

func TestEOSFlagOnlyWhenAllLacingConsumed(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(packetOf(10, 0)))
	_, err := s.Flush()
	require.NoError(t, err)

	eos := packetOf(300*255, 7)
	eos.EOS = true
	require.NoError(t, s.PacketIn(eos))

	page, err := s.PageOut()
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.False(t, page.IsEOS())

	page, err = s.PageOut()
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.True(t, page.IsEOS())
	assert.Equal(t, 0, s.Pending())
}

func TestPagesOwnTheirBuffers(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(av.Packet{Payload: []byte("first")}))
	first, err := s.Flush()
	require.NoError(t, err)

	require.NoError(t, s.PacketIn(av.Packet{Payload: []byte("XXXXX")}))
	_, err = s.Flush()
	require.NoError(t, err)

	assert.Equal(t, []byte("first"), first.Body)
	assert.NoError(t, first.Verify())
}

func TestParsePageDetectsCorruption(t *testing.T) {
	s := newTestStream(t)
	require.NoError(t, s.PacketIn(av.Packet{Payload: []byte("hello ogg")}))
	page, err := s.Flush()
	require.NoError(t, err)

	raw := page.Bytes()
	parsed, n, err := ParsePage(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, page.Header, parsed.Header)
	assert.Equal(t, page.Body, parsed.Body)

	raw[len(raw)-1] ^= 0xFF
	_, _, err = ParsePage(raw)
	assert.ErrorIs(t, err, ErrBadCRC)

	_, _, err = ParsePage([]byte("NotOgg at all, definitely not a page"))
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, _, err = ParsePage(raw[:10])
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestPacketReaderReassemblesInterleavedStreams(t *testing.T) {
	a, err := NewStreamState(1)
	require.NoError(t, err)
	b, err := NewStreamState(2)
	require.NoError(t, err)

	var buf bytes.Buffer
	write := func(p *Page) {
		if p != nil {
			buf.Write(p.Bytes())
		}
	}

	sizes := []int{5, 300, 70000, 0, 255, 12}
	for i, size := range sizes {
		pa := packetOf(size, int64(i))
		pb := packetOf(size+1, int64(i))
		if i == len(sizes)-1 {
			pa.EOS, pb.EOS = true, true
		}
		require.NoError(t, a.PacketIn(pa))
		require.NoError(t, b.PacketIn(pb))
		for _, fr := range []*StreamState{a, b} {
			for {
				p, err := fr.PageOut()
				require.NoError(t, err)
				if p == nil {
					break
				}
				write(p)
			}
		}
	}

	got := map[int32][]StreamPacket{}
	pr := NewPacketReader(&buf)
	for {
		p, err := pr.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got[p.Serial] = append(got[p.Serial], p)
	}

	for serial, extra := range map[int32]int{1: 0, 2: 1} {
		packets := got[serial]
		require.Len(t, packets, len(sizes), "serial %d", serial)
		for i, p := range packets {
			assert.Equal(t, int64(i), p.Sequence)
			assert.Len(t, p.Payload, sizes[i]+extra)
			assert.Equal(t, i == 0, p.BOS)
			assert.Equal(t, i == len(sizes)-1, p.EOS)
		}
		assert.Equal(t, int64(len(sizes)-1), packets[len(packets)-1].GranulePos)
	}
}

func TestReaderRejectsGarbage(t *testing.T) {
	r := NewReader(bytes.NewReader(bytes.Repeat([]byte{'x'}, 64)))
	_, err := r.ReadPage()
	assert.ErrorIs(t, err, ErrInvalidPage)

	r = NewReader(bytes.NewReader(nil))
	_, err = r.ReadPage()
	assert.Equal(t, io.EOF, err)
}
