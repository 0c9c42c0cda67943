package commands

import (
	"fmt"
	"io"

	"github.com/opd-ai/mediakit/av/audio"
	"github.com/spf13/cobra"
)

var g711Cmd = &cobra.Command{
	Use:   "g711",
	Short: "Compand or expand G.711 audio",
	Long: `Convert between 16-bit little-endian PCM and 8-bit G.711 codes.

Examples:
  mediakit g711 encode --law alaw -i voice.raw -o voice.al
  mediakit g711 decode --law ulaw -i voice.ul -o voice.raw`,
}

var g711EncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Compand 16-bit PCM to G.711",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runG711(cmd, func(law audio.Companding, data []byte) ([]byte, error) {
			pcm, err := audio.SamplesFromBytes(data, 16)
			if err != nil {
				return nil, err
			}
			return law.Encode(pcm), nil
		})
	},
}

var g711DecodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Expand G.711 to 16-bit PCM",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runG711(cmd, func(law audio.Companding, data []byte) ([]byte, error) {
			return audio.SamplesToBytes(law.Decode(data)), nil
		})
	},
}

func runG711(cmd *cobra.Command, convert func(audio.Companding, []byte) ([]byte, error)) (err error) {
	law, err := audio.ParseCompanding(v.GetString("law"))
	if err != nil {
		return err
	}

	in, err := openInput(cmd, v.GetString("input"))
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	converted, err := convert(law, data)
	if err != nil {
		return err
	}

	out, err := createOutput(cmd, v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeOutput(out, &err)
	if _, err := out.Write(converted); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printInfo(cmd, "%s: %d bytes in, %d bytes out", law, len(data), len(converted))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{g711EncodeCmd, g711DecodeCmd} {
		c.Flags().StringP("input", "i", "", "input file (- for stdin)")
		c.Flags().StringP("output", "o", "", "output file (- for stdout)")
		c.Flags().String("law", "ulaw", "companding law (ulaw or alaw)")
		g711Cmd.AddCommand(c)
	}
	rootCmd.AddCommand(g711Cmd)
}
