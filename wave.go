package mediakit

import (
	"fmt"
	"io"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/opd-ai/mediakit/container/wave"
	"github.com/sirupsen/logrus"
)

// WriteWave copies raw PCM from pcm into a WAVE file on w and returns the
// number of bytes written to w. When cfg.DataLength is nil and w cannot
// seek, the file is assembled in memory and copied out once the length is
// known.
func WriteWave(w io.Writer, cfg wave.Config, pcm io.Reader) (int64, error) {
	if w == nil || pcm == nil {
		return 0, fmt.Errorf("%w: nil writer or reader", av.ErrInvalidArgument)
	}

	out := sink.New(w)
	var staging *sink.Buffer
	if cfg.DataLength == nil && !out.Seekable() {
		staging = sink.NewBuffer()
		out = sink.New(staging)
	}

	ww, err := wave.NewWriter(out, cfg)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(ww, pcm)
	if err != nil {
		return 0, fmt.Errorf("copy pcm: %w", err)
	}
	if err := ww.Close(); err != nil {
		return 0, err
	}

	written := out.Written()
	if staging != nil {
		if written, err = staging.WriteTo(w); err != nil {
			return written, fmt.Errorf("write wave: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "WriteWave",
		"pcm_bytes":   n,
		"file_bytes":  written,
		"staged":      staging != nil,
		"sample_rate": cfg.SampleRate,
		"channels":    cfg.Channels,
	}).Info("Wrote WAVE file")
	return written, nil
}
