package mediakit

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/av/video"
	"github.com/opd-ai/mediakit/container/mux"
	"github.com/opd-ai/mediakit/container/sink"
	"github.com/opd-ai/mediakit/container/skeleton"
	"github.com/sirupsen/logrus"
)

var contentTypes = map[string]string{
	"pcm":  "audio/pcm",
	"opus": "audio/opus",
	"raw":  "video/x-raw-ycbcr",
}

// OggWriter multiplexes audio and video tracks into one Ogg file.
//
// Tracks are added before Start. Start writes every BOS page (the Skeleton
// fishead first when enabled), the Skeleton fisbones and the remaining
// header pages. After Start each track may be written from its own
// goroutine. Close ends every track and reports any stream left
// unterminated.
type OggWriter struct {
	mu      sync.Mutex
	id      uuid.UUID
	opts    Options
	mux     *mux.Multiplexer
	tracks  []*track
	started bool
	closed  bool
}

// NewOggWriter creates a writer over w. A nil opts selects NewOptions().
func NewOggWriter(w io.Writer, opts *Options) (*OggWriter, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil writer", av.ErrInvalidArgument)
	}
	if opts == nil {
		opts = NewOptions()
	}

	m, err := mux.New(sink.New(w),
		mux.WithFlushInterval(opts.FlushInterval),
		mux.WithNominalPageSize(opts.NominalPageSize))
	if err != nil {
		return nil, err
	}

	ow := &OggWriter{
		id:   uuid.New(),
		opts: *opts,
		mux:  m,
	}

	logrus.WithFields(logrus.Fields{
		"function":       "NewOggWriter",
		"session":        ow.id.String(),
		"flush_interval": opts.FlushInterval,
		"page_size":      opts.NominalPageSize,
		"skeleton":       opts.Skeleton,
	}).Info("Created Ogg writer")
	return ow, nil
}

// ID returns the session identifier used in log fields.
func (ow *OggWriter) ID() uuid.UUID { return ow.id }

// AddAudioTrack registers an audio engine. The writer owns the engine and
// closes it when the track ends.
func (ow *OggWriter) AddAudioTrack(e audio.Engine) (*AudioTrack, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil engine", av.ErrInvalidArgument)
	}
	t, err := ow.addTrack(e, "audio", func() ([]av.Packet, error) {
		return e.EncodeSamples(nil, true)
	})
	if err != nil {
		return nil, err
	}
	return &AudioTrack{track: t, engine: e}, nil
}

// AddVideoTrack registers a video engine. The writer owns the engine and
// closes it when the track ends.
func (ow *OggWriter) AddVideoTrack(e video.Engine) (*VideoTrack, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil engine", av.ErrInvalidArgument)
	}
	t, err := ow.addTrack(e, "video", func() ([]av.Packet, error) {
		return e.EncodeImage(nil, true)
	})
	if err != nil {
		return nil, err
	}
	return &VideoTrack{track: t, engine: e}, nil
}

func (ow *OggWriter) addTrack(e av.Engine, kind string, final func() ([]av.Packet, error)) (*track, error) {
	ow.mu.Lock()
	defer ow.mu.Unlock()

	if ow.started || ow.closed {
		return nil, fmt.Errorf("%w: track added after Start", av.ErrContainerState)
	}

	headers, err := e.HeaderPackets()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: engine %s produced no header packets", av.ErrInvalidArgument, e.Name())
	}
	ls, err := ow.mux.NewStream(len(headers))
	if err != nil {
		return nil, err
	}

	t := &track{
		writer:  ow,
		engine:  e,
		stream:  ls,
		headers: headers,
		kind:    kind,
		final:   final,
	}
	ow.tracks = append(ow.tracks, t)

	logrus.WithFields(logrus.Fields{
		"function":       "OggWriter.addTrack",
		"session":        ow.id.String(),
		"kind":           kind,
		"engine":         e.Name(),
		"serial":         ls.Serial(),
		"header_packets": len(headers),
	}).Info("Added track")
	return t, nil
}

// Start writes the header section of the file.
func (ow *OggWriter) Start() error {
	ow.mu.Lock()
	defer ow.mu.Unlock()

	if ow.started || ow.closed {
		return fmt.Errorf("%w: writer already started", av.ErrContainerState)
	}
	if len(ow.tracks) == 0 {
		return fmt.Errorf("%w: no tracks", av.ErrInvalidArgument)
	}

	var skel *skeleton.Encoder
	if ow.opts.Skeleton {
		var err error
		if skel, err = skeleton.NewEncoder(ow.mux, len(ow.tracks)); err != nil {
			return err
		}
	}

	for _, t := range ow.tracks {
		if err := t.stream.PacketIn(t.headers[0]); err != nil {
			return err
		}
		if _, err := t.stream.Flush(); err != nil {
			return err
		}
	}

	if skel != nil {
		for _, t := range ow.tracks {
			if err := skel.AddBone(t.bone()); err != nil {
				return err
			}
		}
	}

	for _, t := range ow.tracks {
		for _, h := range t.headers[1:] {
			if err := t.stream.PacketIn(h); err != nil {
				return err
			}
		}
	}

	if skel != nil {
		if err := skel.EndOfStream(); err != nil {
			return err
		}
	}

	ow.started = true
	logrus.WithFields(logrus.Fields{
		"function": "OggWriter.Start",
		"session":  ow.id.String(),
		"tracks":   len(ow.tracks),
		"skeleton": skel != nil,
	}).Info("Wrote Ogg headers")
	return nil
}

// Close ends every open track and reports streams left unterminated.
func (ow *OggWriter) Close() error {
	ow.mu.Lock()
	if ow.closed {
		ow.mu.Unlock()
		return nil
	}
	ow.closed = true
	started := ow.started
	tracks := append([]*track(nil), ow.tracks...)
	ow.mu.Unlock()

	var errs []error
	for _, t := range tracks {
		if !started {
			errs = append(errs, t.release())
			continue
		}
		errs = append(errs, t.end())
	}
	if !started && len(tracks) > 0 {
		errs = append(errs, fmt.Errorf("%w: writer closed before Start", av.ErrContainerState))
	} else {
		errs = append(errs, ow.mux.Close())
	}

	err := errors.Join(errs...)
	logrus.WithFields(logrus.Fields{
		"function": "OggWriter.Close",
		"session":  ow.id.String(),
		"tracks":   len(tracks),
		"clean":    err == nil,
	}).Info("Closed Ogg writer")
	return err
}

func (ow *OggWriter) isStarted() bool {
	ow.mu.Lock()
	defer ow.mu.Unlock()
	return ow.started
}
