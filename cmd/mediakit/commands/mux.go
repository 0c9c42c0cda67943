package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/mediakit"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/av/video"
	"github.com/opd-ai/mediakit/factory"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var muxCmd = &cobra.Command{
	Use:   "mux",
	Short: "Multiplex raw PCM and RGB frames into an Ogg file",
	Long: `Multiplex a raw 16-bit PCM file and/or a file of bottom-up RGB frames
into one Ogg file. Each input is encoded on its own goroutine.

Zero-valued engine flags fall back to the factory defaults, which honor
MEDIAKIT_SAMPLE_RATE, MEDIAKIT_CHANNELS, MEDIAKIT_FRAMES_PER_PACKET,
MEDIAKIT_FRAME_RATE and MEDIAKIT_SUBSAMPLING.

Examples:
  mediakit mux -o out.ogg --audio voice.raw --sample-rate 8000 --channels 1
  mediakit mux -o out.ogg --video frames.rgb --width 320 --height 240 --skeleton`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		audioPath, videoPath := v.GetString("audio"), v.GetString("video")
		if audioPath == "" && videoPath == "" {
			return fmt.Errorf("at least one of --audio or --video is required")
		}

		f := factory.NewEngineFactory()
		config := f.GetCurrentConfig()
		overrideInt(&config.SampleRate, v.GetInt("sample-rate"))
		overrideInt(&config.Channels, v.GetInt("channels"))
		overrideInt(&config.FramesPerPacket, v.GetInt("frames-per-packet"))
		overrideInt(&config.FrameRateNum, v.GetInt("frame-rate"))
		if s := v.GetString("subsampling"); s != "" {
			if config.Subsampling, err = video.ParseSubsampling(s); err != nil {
				return err
			}
		}
		if err := f.UpdateConfig(config); err != nil {
			return err
		}

		opts := mediakit.NewOptions()
		overrideInt(&opts.FlushInterval, v.GetInt("flush-interval"))
		overrideInt(&opts.NominalPageSize, v.GetInt("page-size"))
		opts.Skeleton = opts.Skeleton || v.GetBool("skeleton")

		out, err := createOutput(cmd, v.GetString("output"))
		if err != nil {
			return err
		}
		defer closeOutput(out, &err)

		w, err := mediakit.NewOggWriter(out, opts)
		if err != nil {
			return err
		}

		var jobs []func() error
		if audioPath != "" {
			job, err := addAudioJob(cmd, w, f, audioPath)
			if err != nil {
				return errors.Join(err, w.Close())
			}
			jobs = append(jobs, job)
		}
		if videoPath != "" {
			job, err := addVideoJob(cmd, w, f, videoPath)
			if err != nil {
				return errors.Join(err, w.Close())
			}
			jobs = append(jobs, job)
		}

		if err := w.Start(); err != nil {
			return errors.Join(err, w.Close())
		}
		var g errgroup.Group
		for _, job := range jobs {
			g.Go(job)
		}
		err = g.Wait()
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		printInfo(cmd, "wrote %d tracks", len(jobs))
		return nil
	},
}

func overrideInt(dst *int, n int) {
	if n != 0 {
		*dst = n
	}
}

func addAudioJob(cmd *cobra.Command, w *mediakit.OggWriter, f *factory.EngineFactory, path string) (func() error, error) {
	engine, err := f.CreateAudioEngine(v.GetString("audio-engine"))
	if err != nil {
		return nil, err
	}
	track, err := w.AddAudioTrack(engine)
	if err != nil {
		return nil, errors.Join(err, engine.Close())
	}
	chunk := f.GetCurrentConfig().FramesPerPacket * engine.Channels() * 2

	return func() error {
		in, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer in.Close()

		buf := make([]byte, chunk)
		for {
			n, err := io.ReadFull(in, buf)
			if n > 0 {
				pcm, serr := audio.SamplesFromBytes(buf[:n&^1], 16)
				if serr != nil {
					return serr
				}
				// a trailing partial frame cannot be encoded
				pcm = pcm[:len(pcm)-len(pcm)%engine.Channels()]
				if werr := track.WriteSamples(pcm); werr != nil {
					return werr
				}
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return track.Close()
			}
			if err != nil {
				return fmt.Errorf("failed to read audio: %w", err)
			}
		}
	}, nil
}

func addVideoJob(cmd *cobra.Command, w *mediakit.OggWriter, f *factory.EngineFactory, path string) (func() error, error) {
	width, height, depth := v.GetInt("width"), v.GetInt("height"), v.GetInt("bit-depth")
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("--bit-depth must be 24 or 32, got %d", depth)
	}
	engine, err := f.CreateVideoEngine(v.GetString("video-engine"), width, height)
	if err != nil {
		return nil, err
	}
	track, err := w.AddVideoTrack(engine)
	if err != nil {
		return nil, errors.Join(err, engine.Close())
	}
	frameSize := width * height * depth / 8

	return func() error {
		in, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer in.Close()

		frame := make([]byte, frameSize)
		for {
			_, err := io.ReadFull(in, frame)
			if errors.Is(err, io.EOF) {
				return track.Close()
			}
			if err != nil {
				return fmt.Errorf("failed to read video frame: %w", err)
			}
			if err := track.WriteRGB(frame, width, height, depth); err != nil {
				return err
			}
		}
	}, nil
}

func init() {
	muxCmd.Flags().StringP("output", "o", "", "Ogg output file (- for stdout)")
	muxCmd.Flags().String("audio", "", "raw 16-bit little-endian PCM input")
	muxCmd.Flags().String("audio-engine", factory.EnginePCM, "audio engine")
	muxCmd.Flags().Int("sample-rate", 0, "audio sample rate in Hz")
	muxCmd.Flags().Int("channels", 0, "audio channel count")
	muxCmd.Flags().Int("frames-per-packet", 0, "sample frames per audio packet")
	muxCmd.Flags().String("video", "", "bottom-up RGB frame input")
	muxCmd.Flags().String("video-engine", factory.EngineRaw, "video engine")
	muxCmd.Flags().Int("width", 0, "frame width in pixels")
	muxCmd.Flags().Int("height", 0, "frame height in pixels")
	muxCmd.Flags().Int("bit-depth", 24, "RGB bits per pixel (24 or 32)")
	muxCmd.Flags().Int("frame-rate", 0, "frames per second")
	muxCmd.Flags().String("subsampling", "", "chroma subsampling (420 or 444)")
	muxCmd.Flags().Int("flush-interval", 0, "packets between forced page flushes")
	muxCmd.Flags().Int("page-size", 0, "nominal Ogg page body size")
	muxCmd.Flags().Bool("skeleton", false, "add an Ogg Skeleton stream")
	rootCmd.AddCommand(muxCmd)
}
