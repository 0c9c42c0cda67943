// Package main provides the mediakit CLI tool.
//
// Usage:
//
//	mediakit [flags] <command> [args]
//
// Commands:
//
//	wav       - Wrap raw PCM in a WAVE header
//	g711      - Compand or expand G.711 audio
//	mux       - Multiplex raw PCM and RGB frames into an Ogg file
//	ogg-info  - Describe the logical streams of an Ogg file
//	opus2wav  - Decode an Ogg Opus file to WAVE
//	rtp2wav   - Decode a G.711 rtpdump capture to WAVE
//
// Configuration:
//
//	Flags may also be set through MEDIAKIT_* environment variables or a
//	mediakit.yaml file in the working directory or ~/.mediakit.
package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/mediakit/cmd/mediakit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
