package audio

import (
	"fmt"

	"github.com/opd-ai/mediakit/av"
	"github.com/sirupsen/logrus"
)

// Resampler converts interleaved 16-bit PCM between sample rates with
// linear interpolation. State carries across calls so a stream can be
// resampled chunk by chunk without seams.
type Resampler struct {
	inputRate   uint32
	outputRate  uint32
	channels    int
	lastSamples []int16 // final frame of the previous chunk
	position    float64 // fractional read position relative to the current chunk
}

// ResamplerConfig holds configuration for creating a resampler.
type ResamplerConfig struct {
	InputRate  uint32 // Input sample rate in Hz
	OutputRate uint32 // Output sample rate in Hz
	Channels   int    // Interleaved channel count
}

// NewResampler creates a new linear-interpolation resampler.
//
// Rejects zero sample rates and channel counts outside 1..255.
//
// Parameters:
//   - config: Input rate, output rate and interleaved channel count
//
// Returns:
//   - *Resampler: New resampler with empty carry state
//   - error: av.ErrInvalidArgument when config is out of range
func NewResampler(config ResamplerConfig) (*Resampler, error) {
	if config.InputRate == 0 || config.OutputRate == 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewResampler",
			"input_rate":  config.InputRate,
			"output_rate": config.OutputRate,
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: sample rates input=%d output=%d", av.ErrInvalidArgument, config.InputRate, config.OutputRate)
	}
	if config.Channels < 1 || config.Channels > 255 {
		logrus.WithFields(logrus.Fields{
			"function": "NewResampler",
			"channels": config.Channels,
		}).Error("Channel count validation failed")
		return nil, fmt.Errorf("%w: channel count %d", av.ErrInvalidArgument, config.Channels)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewResampler",
		"input_rate":  config.InputRate,
		"output_rate": config.OutputRate,
		"channels":    config.Channels,
	}).Debug("Created resampler")

	return &Resampler{
		inputRate:   config.InputRate,
		outputRate:  config.OutputRate,
		channels:    config.Channels,
		lastSamples: make([]int16, config.Channels),
	}, nil
}

// Resample converts one chunk of interleaved samples.
//
// The final frame of each chunk is carried into the next call, so a stream
// split into chunks resamples the same as one contiguous buffer.
//
// Parameters:
//   - input: Interleaved samples; the length must be a whole number of frames
//
// Returns:
//   - []int16: Resampled interleaved samples, nil for empty input
//   - error: av.ErrInvalidArgument when input is not frame aligned
func (r *Resampler) Resample(input []int16) ([]int16, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if len(input)%r.channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not aligned to %d channels", av.ErrInvalidArgument, len(input), r.channels)
	}

	if r.inputRate == r.outputRate {
		out := make([]int16, len(input))
		copy(out, input)
		return out, nil
	}

	step := float64(r.inputRate) / float64(r.outputRate)
	inputFrames := len(input) / r.channels
	output := make([]int16, 0, int(float64(inputFrames)/step+1)*r.channels)

	// Position -1 addresses the last frame of the previous chunk, so the
	// first interpolation of each chunk bridges the boundary.
	for r.position < float64(inputFrames-1) {
		idx := int(r.position + 1) // floor for position >= -1
		idx--
		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			a := r.frameSample(input, idx, ch)
			b := r.frameSample(input, idx+1, ch)
			output = append(output, int16(float64(a)*(1-frac)+float64(b)*frac))
		}
		r.position += step
	}

	r.position -= float64(inputFrames)
	copy(r.lastSamples, input[len(input)-r.channels:])
	return output, nil
}

func (r *Resampler) frameSample(input []int16, frame, ch int) int16 {
	if frame < 0 {
		return r.lastSamples[ch]
	}
	return input[frame*r.channels+ch]
}

// InputRate returns the configured input sample rate.
func (r *Resampler) InputRate() uint32 { return r.inputRate }

// OutputRate returns the configured output sample rate.
func (r *Resampler) OutputRate() uint32 { return r.outputRate }

// Channels returns the interleaved channel count.
func (r *Resampler) Channels() int { return r.channels }

// Reset discards carried state, for use at a stream discontinuity.
func (r *Resampler) Reset() {
	r.position = 0
	for i := range r.lastSamples {
		r.lastSamples[i] = 0
	}
}
