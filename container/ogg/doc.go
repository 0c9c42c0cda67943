// Package ogg implements Ogg bitstream framing (RFC 3533) on top of gopus's page codec.
//
// StreamState is the Framer for one logical stream: packets go in with
// PacketIn, pages come out of PageOut or Flush. Reader and PacketReader
// parse a physical stream back into verified pages and reassembled
// packets.
//
//	fr, err := ogg.NewStreamState(serial)
//	if err != nil {
//	    return err
//	}
//	if err := fr.PacketIn(av.Packet{Payload: header}); err != nil {
//	    return err
//	}
//	page, err := fr.PageOut()
//	if page != nil {
//	    w.Write(page.Bytes())
//	}
//
// Page serialization and checksum verification go through gopus's
// container/ogg Page, which computes Ogg's CRC-32 (polynomial 0x04C11DB7,
// zero initial value) over the header with its CRC field zeroed followed by
// the body.
package ogg
