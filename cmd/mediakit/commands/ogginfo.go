package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/opd-ai/mediakit/container/ogg"
	"github.com/opd-ai/mediakit/container/skeleton"
	"github.com/spf13/cobra"
)

var codecMagic = []struct {
	prefix string
	name   string
}{
	{"fishead\x00", "skeleton"},
	{"OpusHead", "opus"},
	{"PCM     ", "pcm"},
	{"\x80ycbcr", "raw"},
}

func identifyCodec(bos []byte) string {
	for _, m := range codecMagic {
		if bytes.HasPrefix(bos, []byte(m.prefix)) {
			return m.name
		}
	}
	return "unknown"
}

type streamInfo struct {
	serial  int32
	codec   string
	pages   int
	packets int
	granule int64
	eos     bool
	bytes   int
}

var oggInfoCmd = &cobra.Command{
	Use:   "ogg-info FILE",
	Short: "Describe the logical streams of an Ogg file",
	Long: `Verify every page checksum of an Ogg file and list its logical streams.

Skeleton fisbones are listed under the stream they describe.

Examples:
  mediakit ogg-info movie.ogg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(cmd, args[0])
		if err != nil {
			return err
		}
		defer in.Close()
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		streams, order, err := scanPages(data)
		if err != nil {
			return err
		}
		bones, err := scanPackets(data, streams)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERIAL\tCODEC\tPAGES\tPACKETS\tBYTES\tGRANULE\tEOS\tCONTENT-TYPE")
		for _, serial := range order {
			s := streams[serial]
			contentType := "-"
			if b, ok := bones[serial]; ok {
				if ct, ok := b.Header("Content-Type"); ok {
					contentType = ct
				}
			}
			fmt.Fprintf(tw, "%08x\t%s\t%d\t%d\t%d\t%d\t%t\t%s\n",
				uint32(s.serial), s.codec, s.pages, s.packets, s.bytes, s.granule, s.eos, contentType)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		var missing []string
		for _, serial := range order {
			if !streams[serial].eos {
				missing = append(missing, fmt.Sprintf("%08x", uint32(serial)))
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("streams without EOS: %s", strings.Join(missing, ", "))
		}
		return nil
	},
}

func scanPages(data []byte) (map[int32]*streamInfo, []int32, error) {
	streams := make(map[int32]*streamInfo)
	var order []int32
	r := ogg.NewReader(bytes.NewReader(data))
	for {
		page, err := r.ReadPage()
		if errors.Is(err, io.EOF) {
			return streams, order, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", pageCount(streams), err)
		}

		s, ok := streams[page.Serial()]
		if !ok {
			s = &streamInfo{serial: page.Serial(), codec: identifyCodec(page.Body)}
			streams[page.Serial()] = s
			order = append(order, page.Serial())
		}
		s.pages++
		s.bytes += page.Len()
		if gp := page.GranulePos(); gp != -1 {
			s.granule = gp
		}
		s.eos = s.eos || page.IsEOS()
	}
}

func pageCount(streams map[int32]*streamInfo) int {
	n := 0
	for _, s := range streams {
		n += s.pages
	}
	return n
}

// scanPackets counts packets per stream and collects skeleton fisbones
// keyed by the serial they describe.
func scanPackets(data []byte, streams map[int32]*streamInfo) (map[int32]*skeleton.Bone, error) {
	bones := make(map[int32]*skeleton.Bone)
	pr := ogg.NewPacketReader(bytes.NewReader(data))
	for {
		p, err := pr.ReadPacket()
		if errors.Is(err, io.EOF) {
			return bones, nil
		}
		if err != nil {
			return nil, err
		}
		s := streams[p.Serial]
		s.packets++
		if s.codec == "skeleton" && !p.BOS && len(p.Payload) > 0 {
			b, err := skeleton.ParseBone(p.Payload)
			if err != nil {
				return nil, fmt.Errorf("skeleton %08x: %w", uint32(p.Serial), err)
			}
			bones[b.Serial] = b
		}
	}
}

func init() {
	rootCmd.AddCommand(oggInfoCmd)
}
