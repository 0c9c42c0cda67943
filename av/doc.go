// Package av holds the media model shared by the mediakit codec and
// container packages.
//
// It defines the compressed Packet exchanged between a codec backend and a
// container, the Engine interface common to audio and video backends, and
// the error kinds every package wraps.
//
// # Sub-Packages
//
//   - av/audio: G.711 companding, resampling, PCM and Opus engines
//   - av/video: RGB to YCbCr conversion and the raw video engine
//   - av/rtp: G.711 RTP packetization, depacketization and rtpdump captures
//
// # Error Handling
//
// Failures are classified with errors.Is against the sentinels in this
// package:
//
//	img, err := video.FromRGB24(pixels, w, h, video.Subsampling420)
//	if errors.Is(err, av.ErrInvalidArgument) {
//	    // reject the frame
//	}
//
// Backend failures carry their status code in an *EngineError:
//
//	var engErr *av.EngineError
//	if errors.As(err, &engErr) {
//	    log.Printf("engine %s returned %d", engErr.Engine, engErr.Code)
//	}
package av
