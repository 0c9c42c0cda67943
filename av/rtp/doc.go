// Package rtp reads G.711 RTP captures and turns them into linear PCM.
//
// It uses the pion/rtp library for standards-compliant RTP packet
// handling.
//
// # Captures
//
// ReadDump parses rtpdump files written by rtptools (rtpdump -F dump) and
// returns their RTP packets in capture order:
//
//	dump, err := rtp.ReadDump(f)
//	if err != nil {
//	    return err
//	}
//	for {
//	    pkt, err := dump.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// DumpWriter produces the same format.
//
// # Depacketization
//
// The Depacketizer accepts payload types 0 (PCMU) and 8 (PCMA), locks to
// the first SSRC it sees and expands each payload with the matching
// companding law:
//
//	d, _ := rtp.NewDepacketizer(0)
//	pcm, err := d.ProcessPacket(pkt)
//
// Lost packets are replaced by silence sized from the RTP timestamp gap,
// bounded by the configured maximum. Late or duplicate packets are dropped
// and counted in Stats.
//
// # Packetization
//
// Packetizer performs the reverse: it compands linear PCM and emits
// marshaled RTP packets with a random SSRC and consecutive sequence
// numbers and timestamps.
//
// # Thread Safety
//
// Packetizer and Depacketizer are safe for concurrent use. DumpReader and
// DumpWriter are not.
package rtp
