package video

import "github.com/opd-ai/mediakit/av"

// Engine is a video CodecEngine backend. EncodeImage returns the packets
// for one frame; with last set it may be called with a nil image to obtain
// a terminating packet. DecodePacket returns av.ErrNeedMoreData for header
// packets. Subsampling reports the chroma layout EncodeImage expects.
type Engine interface {
	av.Engine

	Subsampling() Subsampling
	EncodeImage(img *Image, last bool) ([]av.Packet, error)
	DecodePacket(p av.Packet) (*Image, error)
}
