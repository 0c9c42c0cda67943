package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/mediakit"
	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/container/ogg"
	"github.com/opd-ai/mediakit/container/wave"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var opus2wavCmd = &cobra.Command{
	Use:   "opus2wav",
	Short: "Decode an Ogg Opus file to WAVE",
	Long: `Decode the first Opus stream of an Ogg file to 16-bit WAVE.

The decoder honors the OpusHead pre-skip and resamples to --rate.

Examples:
  mediakit opus2wav -i speech.opus -o speech.wav
  mediakit opus2wav -i speech.opus -o - --rate 16000 > speech.wav`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		in, err := openInput(cmd, v.GetString("input"))
		if err != nil {
			return err
		}
		defer in.Close()

		engine, err := audio.NewOpusEngine(v.GetInt("rate"))
		if err != nil {
			return err
		}
		defer engine.Close()

		dec := &opusDecoder{packets: ogg.NewPacketReader(in), engine: engine}
		if err := dec.readHead(); err != nil {
			return err
		}

		out, err := createOutput(cmd, v.GetString("output"))
		if err != nil {
			return err
		}
		defer closeOutput(out, &err)

		cfg := wave.Config{Channels: engine.Channels(), SampleRate: engine.SampleRate(), BitsPerSample: 16}
		pr, pw := io.Pipe()
		var g errgroup.Group
		g.Go(func() error {
			err := dec.decode(pw)
			pw.CloseWithError(err)
			return err
		})
		var n int64
		g.Go(func() error {
			var err error
			n, err = mediakit.WriteWave(out, cfg, pr)
			pr.CloseWithError(err)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
		printInfo(cmd, "decoded %d packets, wrote %d bytes", dec.decoded, n)
		return nil
	},
}

type opusDecoder struct {
	packets *ogg.PacketReader
	engine  *audio.OpusEngine
	serial  int32
	decoded int
}

// readHead finds the first Opus stream and feeds its OpusHead to the engine.
func (d *opusDecoder) readHead() error {
	for {
		p, err := d.packets.ReadPacket()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: no Opus stream found", av.ErrInvalidArgument)
		}
		if err != nil {
			return err
		}
		if !p.BOS || identifyCodec(p.Payload) != "opus" {
			continue
		}
		d.serial = p.Serial
		if _, err := d.engine.DecodePacket(p.Packet); err != nil {
			return err
		}
		return nil
	}
}

// decode writes the stream's samples as little-endian PCM to w.
func (d *opusDecoder) decode(w io.Writer) error {
	skip := d.engine.PreSkip() * d.engine.SampleRate() / 48000 * d.engine.Channels()
	for {
		p, err := d.packets.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if p.Serial != d.serial {
			continue
		}

		pcm, err := d.engine.DecodePacket(p.Packet)
		if errors.Is(err, av.ErrNeedMoreData) {
			continue
		}
		if err != nil {
			return err
		}
		d.decoded++
		if skip > 0 {
			drop := min(skip, len(pcm))
			pcm = pcm[drop:]
			skip -= drop
		}
		if _, err := w.Write(audio.SamplesToBytes(pcm)); err != nil {
			return err
		}
	}
}

func init() {
	opus2wavCmd.Flags().StringP("input", "i", "", "Ogg Opus input file (- for stdin)")
	opus2wavCmd.Flags().StringP("output", "o", "", "WAVE output file (- for stdout)")
	opus2wavCmd.Flags().Int("rate", 48000, "output sample rate in Hz")
	rootCmd.AddCommand(opus2wavCmd)
}
