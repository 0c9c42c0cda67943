// Package mux sequences codec packets from one or more logical streams into
// Ogg pages written to a shared sink.
//
// A LogicalStream numbers packets from 0, marks the first one BOS, flushes
// its header packets into their own pages, and drains itself when the EOS
// packet arrives. A Multiplexer creates streams with random serials and
// drains each one every FlushInterval packets so that tracks encoded on
// separate goroutines stay interleaved in the output.
//
//	m, _ := mux.New(sink.New(f))
//	audio, _ := m.NewStream(2)
//	video, _ := m.NewStream(1)
//	// feed packets from one goroutine per stream
//	if err := m.Close(); err != nil {
//	    // some stream never received EOS
//	}
package mux
