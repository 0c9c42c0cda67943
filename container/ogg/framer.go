package ogg

import "github.com/opd-ai/mediakit/av"

// Framer turns a sequence of packets for one logical stream into pages.
// PageOut and Flush return a nil page and nil error when there is nothing
// to emit; that is not a failure.
type Framer interface {
	// PacketIn queues a packet. The first packet becomes the BOS packet;
	// a packet with EOS set ends the stream.
	PacketIn(p av.Packet) error

	// PageOut emits a page if the page-size heuristic allows it, or
	// unconditionally for the initial BOS page and once EOS is pending.
	PageOut() (*Page, error)

	// Flush emits a page of whatever is pending regardless of size. A
	// single Flush emits at most one page.
	Flush() (*Page, error)

	// Pending reports the number of queued lacing values not yet paged.
	Pending() int

	// Serial returns the logical stream serial number.
	Serial() int32
}
