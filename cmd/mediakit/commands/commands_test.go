package commands

import (
	"bytes"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/av/rtp"
	"github.com/opd-ai/mediakit/container/wave"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI and resets every flag afterwards so tests do not
// leak values into each other.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func testPCM(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16((i*331)%20000 - 10000)
	}
	return out
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestWavCommand(t *testing.T) {
	raw := audio.SamplesToBytes(testPCM(800))
	in := writeFile(t, "in.raw", raw)
	out := filepath.Join(t.TempDir(), "out.wav")

	_, err := run(t, "wav", "-i", in, "-o", out, "--rate", "8000", "--channels", "1")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	h, err := wave.ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(len(raw)), h.DataLength)
	assert.Equal(t, uint32(8000), h.SampleRate)
	assert.Equal(t, uint16(1), h.Channels)
	assert.Equal(t, raw, data[44:])
}

func TestWavCommandToStdout(t *testing.T) {
	raw := audio.SamplesToBytes(testPCM(100))
	in := writeFile(t, "in.raw", raw)

	stdout, err := run(t, "wav", "-i", in, "-o", "-", "--rate", "16000", "--channels", "2")
	require.NoError(t, err)
	require.Len(t, stdout, 44+len(raw))
	assert.Equal(t, uint32(len(raw)), binary.LittleEndian.Uint32([]byte(stdout[40:44])))
}

func TestG711RoundTrip(t *testing.T) {
	for _, law := range []string{"ulaw", "alaw"} {
		t.Run(law, func(t *testing.T) {
			pcm := testPCM(400)
			in := writeFile(t, "in.raw", audio.SamplesToBytes(pcm))
			coded := filepath.Join(t.TempDir(), "coded")
			decoded := filepath.Join(t.TempDir(), "decoded.raw")

			_, err := run(t, "g711", "encode", "--law", law, "-i", in, "-o", coded)
			require.NoError(t, err)
			_, err = run(t, "g711", "decode", "--law", law, "-i", coded, "-o", decoded)
			require.NoError(t, err)

			codes, err := os.ReadFile(coded)
			require.NoError(t, err)
			assert.Len(t, codes, len(pcm))

			c, err := audio.ParseCompanding(law)
			require.NoError(t, err)
			got, err := os.ReadFile(decoded)
			require.NoError(t, err)
			assert.Equal(t, audio.SamplesToBytes(c.Decode(c.Encode(pcm))), got)
		})
	}
}

func TestG711RejectsUnknownLaw(t *testing.T) {
	in := writeFile(t, "in.raw", []byte{0, 0})
	_, err := run(t, "g711", "encode", "--law", "gsm", "-i", in, "-o", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}

func TestMuxAndOggInfo(t *testing.T) {
	const width, height = 32, 16
	audioIn := writeFile(t, "in.raw", audio.SamplesToBytes(testPCM(8000)))
	frames := make([]byte, 5*width*height*3)
	for i := range frames {
		frames[i] = byte(i)
	}
	videoIn := writeFile(t, "in.rgb", frames)
	out := filepath.Join(t.TempDir(), "out.ogg")

	_, err := run(t, "mux", "-o", out,
		"--audio", audioIn, "--sample-rate", "8000", "--channels", "1", "--frames-per-packet", "160",
		"--video", videoIn, "--width", "32", "--height", "16",
		"--skeleton", "--flush-interval", "2")
	require.NoError(t, err)

	stdout, err := run(t, "ogg-info", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "skeleton")
	assert.Contains(t, stdout, "audio/pcm")
	assert.Contains(t, stdout, "video/x-raw-ycbcr")
	assert.NotContains(t, stdout, "false")
}

func TestMuxRequiresInput(t *testing.T) {
	_, err := run(t, "mux", "-o", filepath.Join(t.TempDir(), "out.ogg"))
	assert.Error(t, err)
}

func TestOggInfoRejectsGarbage(t *testing.T) {
	in := writeFile(t, "bad.ogg", []byte("this is not an ogg file at all, not even close"))
	_, err := run(t, "ogg-info", in)
	assert.Error(t, err)
}

func TestRTP2Wav(t *testing.T) {
	pcm := testPCM(1600)
	p, err := rtp.NewPacketizer(audio.ALaw, 160)
	require.NoError(t, err)
	packets, err := p.Packetize(pcm)
	require.NoError(t, err)

	var dump bytes.Buffer
	dw, err := rtp.NewDumpWriter(&dump, time.Unix(1700000000, 0), net.IPv4(10, 0, 0, 1), 5004)
	require.NoError(t, err)
	for i, pkt := range packets {
		if i == 4 {
			continue
		}
		require.NoError(t, dw.WritePacket(time.Duration(i)*20*time.Millisecond, pkt))
	}
	in := writeFile(t, "call.rtpdump", dump.Bytes())
	out := filepath.Join(t.TempDir(), "call.wav")

	_, err = run(t, "rtp2wav", "-i", in, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	h, err := wave.ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(rtp.ClockRate), h.SampleRate)
	// the dropped packet comes back as 160 samples of silence
	assert.Equal(t, uint32(len(pcm)*2), h.DataLength)
	assert.Equal(t, make([]byte, 320), data[44+4*320:44+5*320])
}

func TestOpus2WavNeedsOpusStream(t *testing.T) {
	audioIn := writeFile(t, "in.raw", audio.SamplesToBytes(testPCM(320)))
	ogg := filepath.Join(t.TempDir(), "pcm.ogg")
	_, err := run(t, "mux", "-o", ogg, "--audio", audioIn, "--sample-rate", "8000", "--channels", "1")
	require.NoError(t, err)

	_, err = run(t, "opus2wav", "-i", ogg, "-o", filepath.Join(t.TempDir(), "out.wav"))
	assert.ErrorIs(t, err, av.ErrInvalidArgument)
}

func TestOpus2WavDecodesSilk(t *testing.T) {
	// 960 decoded samples less the 312-sample pre-skip, scaled to rate
	tests := []struct {
		name      string
		rate      string
		wantRate  uint32
		wantBytes uint32
	}{
		{"native", "48000", 48000, 2 * (960 - 312)},
		{"16k", "16000", 16000, 2 * (320 - 104)},
	}

	in := filepath.Join("..", "..", "..", "av", "audio", "testdata", "tiny.ogg")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "tiny.wav")
			_, err := run(t, "opus2wav", "-i", in, "-o", out, "--rate", tt.rate)
			require.NoError(t, err)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			h, err := wave.ReadHeader(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantRate, h.SampleRate)
			assert.Equal(t, uint16(1), h.Channels)
			assert.Equal(t, tt.wantBytes, h.DataLength)
		})
	}
}
