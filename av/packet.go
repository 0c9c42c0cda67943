package av

// Packet is one unit of compressed data handed from a CodecEngine to a
// container. Sequence is assigned by the logical stream; BOS is set by the
// stream on its first packet; exactly one packet per stream carries EOS and
// it is the last one accepted.
type Packet struct {
	Payload    []byte
	GranulePos int64
	Sequence   int64
	BOS        bool
	EOS        bool
}

// Clone returns a copy of p that does not share its payload.
func (p Packet) Clone() Packet {
	c := p
	if p.Payload != nil {
		c.Payload = append([]byte(nil), p.Payload...)
	}
	return c
}
