package audio

import "github.com/opd-ai/mediakit/av"

// Engine is an audio CodecEngine backend.
//
// EncodeSamples consumes interleaved 16-bit samples and returns zero or more
// packets with granule positions set; when last is true the engine flushes
// its internal buffer and returns at least one packet so the caller can mark
// end of stream. DecodePacket returns av.ErrNeedMoreData for packets that
// produce no samples on their own, header packets included.
type Engine interface {
	av.Engine

	SampleRate() int
	Channels() int

	EncodeSamples(pcm []int16, last bool) ([]av.Packet, error)
	DecodePacket(p av.Packet) ([]int16, error)
}
