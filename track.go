package mediakit

import (
	"fmt"
	"sync"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/av/video"
	"github.com/opd-ai/mediakit/container/mux"
	"github.com/opd-ai/mediakit/container/skeleton"
	"github.com/sirupsen/logrus"
)

// track is the per-engine state shared by AudioTrack and VideoTrack. Its
// mutex serializes the engine and the logical stream, which are not safe
// for concurrent use on their own.
type track struct {
	mu       sync.Mutex
	writer   *OggWriter
	engine   av.Engine
	stream   *mux.LogicalStream
	headers  []av.Packet
	kind     string
	final    func() ([]av.Packet, error)
	released bool
	lastGran int64
}

func (t *track) bone() skeleton.Bone {
	num, den := t.engine.GranuleRate()
	ct, ok := contentTypes[t.engine.Name()]
	if !ok {
		ct = "application/octet-stream"
	}
	return skeleton.Bone{
		Serial:        t.stream.Serial(),
		HeaderPackets: uint32(len(t.headers)),
		GranuleNum:    num,
		GranuleDen:    den,
		GranuleShift:  t.engine.GranuleShift(),
		MessageHeaders: []skeleton.MessageHeader{
			{Name: "Content-Type", Value: ct},
			{Name: "Role", Value: t.kind + "/main"},
		},
	}
}

// submit hands packets to the stream and writes whatever pages are ready.
// Callers hold t.mu.
func (t *track) submit(packets []av.Packet) error {
	for _, p := range packets {
		if err := t.stream.PacketIn(p); err != nil {
			return err
		}
		t.lastGran = p.GranulePos
		for {
			wrote, err := t.stream.PageOut()
			if err != nil {
				return err
			}
			if !wrote {
				break
			}
		}
	}
	return nil
}

func (t *track) checkWritable() error {
	if !t.writer.isStarted() {
		return fmt.Errorf("%w: write before Start", av.ErrContainerState)
	}
	if t.released {
		return fmt.Errorf("%w: write after track end", av.ErrContainerState)
	}
	return nil
}

// finish submits the final packets with EOS on the last one and releases
// the engine. Callers hold t.mu.
func (t *track) finish(final []av.Packet) error {
	if len(final) == 0 {
		final = []av.Packet{{GranulePos: t.lastGran}}
	}
	final[len(final)-1].EOS = true
	err := t.submit(final)
	if rerr := t.releaseLocked(); err == nil {
		err = rerr
	}

	logrus.WithFields(logrus.Fields{
		"function": "track.finish",
		"session":  t.writer.id.String(),
		"serial":   t.stream.Serial(),
		"packets":  t.stream.Packets(),
		"pages":    t.stream.Pages(),
	}).Info("Track ended")
	return err
}

// end asks the engine for its final packets and ends the stream.
func (t *track) end() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.released {
		return nil
	}
	if !t.writer.isStarted() {
		_ = t.releaseLocked()
		return fmt.Errorf("%w: track closed before Start", av.ErrContainerState)
	}
	final, err := t.final()
	if err != nil {
		_ = t.releaseLocked()
		return err
	}
	return t.finish(final)
}

func (t *track) release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.releaseLocked()
}

func (t *track) releaseLocked() error {
	if t.released {
		return nil
	}
	t.released = true
	return t.engine.Close()
}

// AudioTrack encodes PCM into one logical stream.
type AudioTrack struct {
	*track
	engine audio.Engine
}

// Serial returns the logical stream serial.
func (a *AudioTrack) Serial() int32 { return a.stream.Serial() }

// WriteSamples encodes interleaved samples and submits the packets.
func (a *AudioTrack) WriteSamples(pcm []int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkWritable(); err != nil {
		return err
	}
	packets, err := a.engine.EncodeSamples(pcm, false)
	if err != nil {
		return err
	}
	return a.submit(packets)
}

// Close flushes the engine and ends the stream.
func (a *AudioTrack) Close() error {
	return a.end()
}

// VideoTrack encodes frames into one logical stream.
type VideoTrack struct {
	*track
	engine video.Engine
}

// Serial returns the logical stream serial.
func (v *VideoTrack) Serial() int32 { return v.stream.Serial() }

// WriteImage encodes one frame and submits its packets.
func (v *VideoTrack) WriteImage(img *video.Image) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkWritable(); err != nil {
		return err
	}
	packets, err := v.engine.EncodeImage(img, false)
	if err != nil {
		return err
	}
	return v.submit(packets)
}

// WriteRGB converts a bottom-up RGB frame to the engine's chroma layout and
// writes it.
func (v *VideoTrack) WriteRGB(pixels []byte, width, height, bitDepth int) error {
	img, err := video.FromRGB(pixels, width, height, bitDepth, v.engine.Subsampling())
	if err != nil {
		return err
	}
	return v.WriteImage(img)
}

// Close ends the stream.
func (v *VideoTrack) Close() error {
	return v.end()
}
