// Package mediakit writes Ogg and RIFF/WAVE media files from raw audio
// samples and RGB video frames.
//
// The packages underneath do the work: av/audio holds the G.711 companding
// codec and the audio engines, av/video the RGB/YCbCr converter and the raw
// video engine, container/ogg the page framer, container/mux the
// multiplexing policy, container/wave the WAVE writer and
// container/skeleton the stream description header. This package wires
// them together.
//
// # Getting Started
//
// Create an OggWriter, add one track per engine, write the headers with
// Start, feed each track, then Close:
//
//	opts := mediakit.NewOptions()
//	opts.Skeleton = true
//
//	w, err := mediakit.NewOggWriter(f, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pcm, _ := audio.NewPCMEngine(audio.PCMConfig{SampleRate: 48000, Channels: 2})
//	at, _ := w.AddAudioTrack(pcm)
//	raw, _ := video.NewRawEngine(video.RawConfig{Width: 320, Height: 240, FrameRateNum: 25, FrameRateDen: 1})
//	vt, _ := w.AddVideoTrack(raw)
//
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	// at.WriteSamples and vt.WriteRGB may run on separate goroutines
//	if err := w.Close(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Interleaving
//
// Every track drains its pending pages after Options.FlushInterval packets
// (4 by default). Page writes from different tracks are serialized on the
// output, so a page is never torn by a concurrent writer.
//
// # Termination
//
// There is no cancellation. A track that is never closed leaves its
// logical stream without an EOS page and the file invalid; Close ends
// every track and returns av.ErrContainerState if a stream could not be
// terminated.
//
// # WAVE
//
// WriteWave wraps raw PCM in a canonical 44-byte WAVE header:
//
//	n, err := mediakit.WriteWave(f, wave.Config{Channels: 1, SampleRate: 8000, BitsPerSample: 16}, pcm)
//
// # Configuration
//
// NewOptions reads MEDIAKIT_FLUSH_INTERVAL, MEDIAKIT_PAGE_SIZE and
// MEDIAKIT_SKELETON from the environment.
package mediakit
