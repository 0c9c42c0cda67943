package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/mediakit"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/av/rtp"
	"github.com/opd-ai/mediakit/container/wave"
	"github.com/spf13/cobra"
)

var rtp2wavCmd = &cobra.Command{
	Use:   "rtp2wav",
	Short: "Decode a G.711 rtpdump capture to WAVE",
	Long: `Decode the PCMU or PCMA stream of an rtpdump capture to 8 kHz mono WAVE.

Lost packets are replaced by silence up to --max-gap samples; late
packets are dropped.

Examples:
  mediakit rtp2wav -i call.rtpdump -o call.wav`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		in, err := openInput(cmd, v.GetString("input"))
		if err != nil {
			return err
		}
		defer in.Close()

		dump, err := rtp.ReadDump(in)
		if err != nil {
			return err
		}
		depack, err := rtp.NewDepacketizer(v.GetInt("max-gap"))
		if err != nil {
			return err
		}

		var pcm []int16
		for {
			data, err := dump.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			samples, err := depack.ProcessPacket(data)
			if err != nil {
				return fmt.Errorf("packet %d: %w", depack.Stats().Packets+1, err)
			}
			pcm = append(pcm, samples...)
		}

		out, err := createOutput(cmd, v.GetString("output"))
		if err != nil {
			return err
		}
		defer closeOutput(out, &err)

		cfg := wave.Config{Channels: 1, SampleRate: rtp.ClockRate, BitsPerSample: 16}
		if _, err := mediakit.WriteWave(out, cfg, bytes.NewReader(audio.SamplesToBytes(pcm))); err != nil {
			return err
		}

		stats := depack.Stats()
		printInfo(cmd, "%d packets, %d lost, %d late, %d samples of silence",
			stats.Packets, stats.Lost, stats.Late, stats.SilenceInserted)
		return nil
	},
}

func init() {
	rtp2wavCmd.Flags().StringP("input", "i", "", "rtpdump input file (- for stdin)")
	rtp2wavCmd.Flags().StringP("output", "o", "", "WAVE output file (- for stdout)")
	rtp2wavCmd.Flags().Int("max-gap", rtp.DefaultMaxGap, "largest silence inserted for one gap, in samples")
	rootCmd.AddCommand(rtp2wavCmd)
}
