package mediakit

import (
	"github.com/opd-ai/mediakit/container/mux"
	"github.com/opd-ai/mediakit/factory"
	"github.com/opd-ai/mediakit/limits"
)

// MaxFlushInterval bounds MEDIAKIT_FLUSH_INTERVAL.
const MaxFlushInterval = 1024

// Options contains configuration options for creating an OggWriter.
type Options struct {
	// FlushInterval is the number of packets a track accepts between
	// forced page flushes.
	FlushInterval int
	// NominalPageSize is the page body size past which pages are emitted
	// without an explicit flush.
	NominalPageSize int
	// Skeleton adds an Ogg Skeleton stream describing every track.
	Skeleton bool
}

// NewOptions creates a new default Options with MEDIAKIT_FLUSH_INTERVAL,
// MEDIAKIT_PAGE_SIZE and MEDIAKIT_SKELETON applied. Invalid environment
// values are logged and ignored.
func NewOptions() *Options {
	opts := &Options{
		FlushInterval:   mux.DefaultFlushInterval,
		NominalPageSize: limits.DefaultNominalPageSize,
		Skeleton:        false,
	}
	opts.FlushInterval = factory.ParseIntSetting("MEDIAKIT_FLUSH_INTERVAL", opts.FlushInterval, 1, MaxFlushInterval)
	opts.NominalPageSize = factory.ParseIntSetting("MEDIAKIT_PAGE_SIZE", opts.NominalPageSize, 1, limits.MaxPageBody)
	opts.Skeleton = factory.ParseBoolSetting("MEDIAKIT_SKELETON", opts.Skeleton)
	return opts
}
