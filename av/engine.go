package av

// Engine is the part of a CodecEngine shared by audio and video backends.
// Media-specific encode and decode methods live in the audio and video
// packages.
//
// Every Engine must be released with Close on all exit paths; engines do
// not rely on finalizers.
type Engine interface {
	// Name identifies the backend, e.g. "pcm" or "opus".
	Name() string

	// HeaderPackets returns the codec header packets that must precede any
	// data packet in the container. The count is fixed per engine instance.
	HeaderPackets() ([]Packet, error)

	// GranuleRate reports granule units per second as a rational.
	GranuleRate() (num, den int64)

	// GranuleShift reports the keyframe shift packed into granule
	// positions; zero for audio.
	GranuleShift() uint8

	// Close releases backend resources. Calling Close twice is harmless.
	Close() error
}
