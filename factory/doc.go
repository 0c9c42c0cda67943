// Package factory creates codec engines by name for the mediakit facade and
// CLI.
//
// The factory centralizes engine parameters so callers pick an engine with
// a string ("pcm", "opus", "raw") and get a configured instance back.
//
// # Configuration
//
// The factory supports configuration via environment variables:
//   - MEDIAKIT_SAMPLE_RATE: PCM sample rate in Hz (8000-192000)
//   - MEDIAKIT_CHANNELS: PCM channel count (1-8)
//   - MEDIAKIT_FRAMES_PER_PACKET: sample frames per PCM packet
//   - MEDIAKIT_OPUS_RATE: output rate of the Opus decoder in Hz
//   - MEDIAKIT_FRAME_RATE: video frames per second (1-240)
//   - MEDIAKIT_SUBSAMPLING: "420" or "444"
//
// Unparseable or out-of-range values are logged and ignored.
//
// # Usage
//
//	f := factory.NewEngineFactory()
//	enc, err := f.CreateAudioEngine("pcm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer enc.Close()
//
//	vid, err := f.CreateVideoEngine("raw", 320, 240)
package factory
