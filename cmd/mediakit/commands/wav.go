package commands

import (
	"fmt"

	"github.com/opd-ai/mediakit"
	"github.com/opd-ai/mediakit/container/wave"
	"github.com/spf13/cobra"
)

var wavCmd = &cobra.Command{
	Use:   "wav",
	Short: "Wrap raw PCM in a WAVE header",
	Long: `Wrap raw little-endian PCM in a canonical 44-byte RIFF/WAVE header.

When the output cannot seek (for example stdout) the file is assembled
in memory so the size fields are correct.

Examples:
  mediakit wav -i voice.raw -o voice.wav --rate 8000 --channels 1
  mediakit wav -i samples.f32 -o samples.wav --bits 32 --float`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg := wave.Config{
			Channels:      v.GetInt("channels"),
			SampleRate:    v.GetInt("rate"),
			BitsPerSample: v.GetInt("bits"),
			FloatingPoint: v.GetBool("float"),
		}

		in, err := openInput(cmd, v.GetString("input"))
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := createOutput(cmd, v.GetString("output"))
		if err != nil {
			return err
		}
		defer closeOutput(out, &err)

		n, err := mediakit.WriteWave(out, cfg, in)
		if err != nil {
			return fmt.Errorf("failed to write WAVE: %w", err)
		}
		printInfo(cmd, "wrote %d bytes", n)
		return nil
	},
}

func init() {
	wavCmd.Flags().StringP("input", "i", "", "raw PCM input file (- for stdin)")
	wavCmd.Flags().StringP("output", "o", "", "WAVE output file (- for stdout)")
	wavCmd.Flags().Int("rate", 48000, "sample rate in Hz")
	wavCmd.Flags().Int("channels", 2, "channel count")
	wavCmd.Flags().Int("bits", 16, "bits per sample")
	wavCmd.Flags().Bool("float", false, "samples are IEEE floating point")
	rootCmd.AddCommand(wavCmd)
}
