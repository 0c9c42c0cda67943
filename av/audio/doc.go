// Package audio provides the audio side of mediakit: G.711 companding,
// sample rate conversion and the audio CodecEngine backends.
//
// # G.711
//
// ULawToLinear, ALawToLinear, LinearToULaw and LinearToALaw convert single
// samples between 16-bit linear PCM and 8-bit companded codes. They are
// pure, allocation-free and total; the slice helpers and the Companding
// type build on them:
//
//	codes := audio.ULaw.Encode(pcm)
//	pcm = audio.ULaw.Decode(codes)
//
// # Engines
//
// Engine extends av.Engine with sample encoding and packet decoding:
//
//   - PCMEngine: uncompressed 16-bit PCM with OggPCM headers
//   - OpusEngine: decode-only Opus backend over github.com/pion/opus
//
// # Resampler
//
// Resampler performs stateful linear interpolation between sample rates and
// is used to normalise decoded output to a single rate:
//
//	r, err := audio.NewResampler(audio.ResamplerConfig{
//	    InputRate: 8000, OutputRate: 48000, Channels: 1,
//	})
//	out, err := r.Resample(chunk)
package audio
