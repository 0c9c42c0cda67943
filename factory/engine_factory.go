package factory

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/opd-ai/mediakit/av"
	"github.com/opd-ai/mediakit/av/audio"
	"github.com/opd-ai/mediakit/av/video"
	"github.com/sirupsen/logrus"
)

// Validation constants for configuration bounds checking.
const (
	// MinSampleRate is the lowest accepted audio sample rate in Hz.
	MinSampleRate = 8000
	// MaxSampleRate is the highest accepted audio sample rate in Hz.
	MaxSampleRate = 192000
	// MaxChannels is the highest accepted audio channel count.
	MaxChannels = 8
	// MaxFramesPerPacket is the largest PCM packet in sample frames.
	MaxFramesPerPacket = 0xFFFF
	// MaxFrameRate is the highest accepted video frame rate.
	MaxFrameRate = 240
)

// Engine names.
const (
	EnginePCM  = "pcm"
	EngineOpus = "opus"
	EngineRaw  = "raw"
)

// EngineConfig holds the parameters the factory passes to engine
// constructors.
type EngineConfig struct {
	SampleRate      int
	Channels        int
	FramesPerPacket int
	OpusOutputRate  int
	FrameRateNum    int
	FrameRateDen    int
	Subsampling     video.Subsampling
	KeyframeShift   uint8
}

// EngineFactory creates codec engines by name. It is safe for concurrent
// use; all methods are protected by an internal mutex.
type EngineFactory struct {
	mu            sync.RWMutex
	defaultConfig *EngineConfig
}

// NewEngineFactory creates a factory with the default configuration and
// MEDIAKIT_* environment overrides applied.
func NewEngineFactory() *EngineFactory {
	config := DefaultEngineConfig()
	applyEnvironmentOverrides(config)

	logrus.WithFields(logrus.Fields{
		"function":          "NewEngineFactory",
		"sample_rate":       config.SampleRate,
		"channels":          config.Channels,
		"frames_per_packet": config.FramesPerPacket,
		"frame_rate":        fmt.Sprintf("%d/%d", config.FrameRateNum, config.FrameRateDen),
		"subsampling":       config.Subsampling.String(),
	}).Info("Created engine factory with configuration")

	return &EngineFactory{defaultConfig: config}
}

// DefaultEngineConfig returns the built-in defaults: 48 kHz stereo PCM in
// 1024-frame packets, Opus decoded at 48 kHz, 25 fps 4:2:0 video.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		SampleRate:      48000,
		Channels:        2,
		FramesPerPacket: 1024,
		OpusOutputRate:  48000,
		FrameRateNum:    25,
		FrameRateDen:    1,
		Subsampling:     video.Subsampling420,
		KeyframeShift:   6,
	}
}

func applyEnvironmentOverrides(config *EngineConfig) {
	config.SampleRate = ParseIntSetting("MEDIAKIT_SAMPLE_RATE", config.SampleRate, MinSampleRate, MaxSampleRate)
	config.Channels = ParseIntSetting("MEDIAKIT_CHANNELS", config.Channels, 1, MaxChannels)
	config.FramesPerPacket = ParseIntSetting("MEDIAKIT_FRAMES_PER_PACKET", config.FramesPerPacket, 1, MaxFramesPerPacket)
	config.OpusOutputRate = ParseIntSetting("MEDIAKIT_OPUS_RATE", config.OpusOutputRate, MinSampleRate, MaxSampleRate)
	config.FrameRateNum = ParseIntSetting("MEDIAKIT_FRAME_RATE", config.FrameRateNum, 1, MaxFrameRate)
	parseSubsamplingSetting(config)
}

// ParseIntSetting returns the value of env when it parses and lies within
// [min, max]; otherwise it logs a warning and returns current.
func ParseIntSetting(env string, current, min, max int) int {
	str := os.Getenv(env)
	if str == "" {
		return current
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "ParseIntSetting",
			"env_var":     env,
			"value":       str,
			"error":       err.Error(),
			"using_value": current,
		}).Warn("Failed to parse environment variable, using default")
		return current
	}
	if v < min || v > max {
		logrus.WithFields(logrus.Fields{
			"function":    "ParseIntSetting",
			"env_var":     env,
			"value":       v,
			"min":         min,
			"max":         max,
			"using_value": current,
		}).Warn("Environment variable out of bounds, using default")
		return current
	}
	return v
}

// ParseBoolSetting is the boolean counterpart of ParseIntSetting.
func ParseBoolSetting(env string, current bool) bool {
	str := os.Getenv(env)
	if str == "" {
		return current
	}
	v, err := strconv.ParseBool(str)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "ParseBoolSetting",
			"env_var":     env,
			"value":       str,
			"error":       err.Error(),
			"using_value": current,
		}).Warn("Failed to parse environment variable, using default")
		return current
	}
	return v
}

func parseSubsamplingSetting(config *EngineConfig) {
	str := os.Getenv("MEDIAKIT_SUBSAMPLING")
	if str == "" {
		return
	}
	sub, err := video.ParseSubsampling(str)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseSubsamplingSetting",
			"env_var":     "MEDIAKIT_SUBSAMPLING",
			"value":       str,
			"error":       err.Error(),
			"using_value": config.Subsampling.String(),
		}).Warn("Failed to parse MEDIAKIT_SUBSAMPLING environment variable, using default")
		return
	}
	config.Subsampling = sub
}

// AudioEngines lists the audio engine names the factory knows.
func AudioEngines() []string {
	names := []string{EnginePCM, EngineOpus}
	sort.Strings(names)
	return names
}

// VideoEngines lists the video engine names the factory knows.
func VideoEngines() []string {
	return []string{EngineRaw}
}

// CreateAudioEngine creates the named audio engine with the default
// configuration.
func (f *EngineFactory) CreateAudioEngine(name string) (audio.Engine, error) {
	return f.CreateAudioEngineWithConfig(name, nil)
}

// CreateAudioEngineWithConfig creates the named audio engine. A nil config
// selects the factory default.
func (f *EngineFactory) CreateAudioEngineWithConfig(name string, config *EngineConfig) (audio.Engine, error) {
	config = f.resolve(config)

	logrus.WithFields(logrus.Fields{
		"function":    "CreateAudioEngineWithConfig",
		"engine":      name,
		"sample_rate": config.SampleRate,
		"channels":    config.Channels,
	}).Info("Creating audio engine")

	switch name {
	case EnginePCM:
		e, err := audio.NewPCMEngine(audio.PCMConfig{
			SampleRate:      config.SampleRate,
			Channels:        config.Channels,
			FramesPerPacket: config.FramesPerPacket,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineOpus:
		e, err := audio.NewOpusEngine(config.OpusOutputRate)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unknown audio engine %q (have %v)", av.ErrUnsupportedConfiguration, name, AudioEngines())
	}
}

// CreateVideoEngine creates the named video engine for frames of the given
// picture size.
func (f *EngineFactory) CreateVideoEngine(name string, width, height int) (video.Engine, error) {
	config := f.resolve(nil)

	logrus.WithFields(logrus.Fields{
		"function": "CreateVideoEngine",
		"engine":   name,
		"width":    width,
		"height":   height,
	}).Info("Creating video engine")

	switch name {
	case EngineRaw:
		e, err := video.NewRawEngine(video.RawConfig{
			Width:         width,
			Height:        height,
			Subsampling:   config.Subsampling,
			FrameRateNum:  config.FrameRateNum,
			FrameRateDen:  config.FrameRateDen,
			KeyframeShift: config.KeyframeShift,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unknown video engine %q (have %v)", av.ErrUnsupportedConfiguration, name, VideoEngines())
	}
}

func (f *EngineFactory) resolve(config *EngineConfig) *EngineConfig {
	if config != nil {
		return config
	}
	return f.GetCurrentConfig()
}

// GetCurrentConfig returns a copy of the current default configuration.
func (f *EngineFactory) GetCurrentConfig() *EngineConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := *f.defaultConfig
	return &c
}

// ValidateConfig checks every field of config against the bounds the
// MEDIAKIT_* overrides enforce.
func ValidateConfig(config *EngineConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config cannot be nil", av.ErrInvalidArgument)
	}
	switch {
	case config.SampleRate < MinSampleRate || config.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d", av.ErrInvalidArgument, config.SampleRate)
	case config.Channels < 1 || config.Channels > MaxChannels:
		return fmt.Errorf("%w: channel count %d", av.ErrInvalidArgument, config.Channels)
	case config.FramesPerPacket < 1 || config.FramesPerPacket > MaxFramesPerPacket:
		return fmt.Errorf("%w: frames per packet %d", av.ErrInvalidArgument, config.FramesPerPacket)
	case config.OpusOutputRate < MinSampleRate || config.OpusOutputRate > MaxSampleRate:
		return fmt.Errorf("%w: opus output rate %d", av.ErrInvalidArgument, config.OpusOutputRate)
	case config.FrameRateNum < 1 || config.FrameRateNum > MaxFrameRate:
		return fmt.Errorf("%w: frame rate numerator %d", av.ErrInvalidArgument, config.FrameRateNum)
	case config.FrameRateDen < 1:
		return fmt.Errorf("%w: frame rate denominator %d", av.ErrInvalidArgument, config.FrameRateDen)
	case config.Subsampling != video.Subsampling420 && config.Subsampling != video.Subsampling444:
		return fmt.Errorf("%w: subsampling %s", av.ErrInvalidArgument, config.Subsampling)
	case config.KeyframeShift > 31:
		return fmt.Errorf("%w: keyframe shift %d", av.ErrInvalidArgument, config.KeyframeShift)
	}
	return nil
}

// UpdateConfig validates config and replaces the factory's default
// configuration. An invalid config leaves the current one in place.
func (f *EngineFactory) UpdateConfig(config *EngineConfig) error {
	if err := ValidateConfig(config); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "UpdateConfig",
			"error":    err.Error(),
		}).Warn("Rejected factory configuration")
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":        "UpdateConfig",
		"old_sample_rate": f.defaultConfig.SampleRate,
		"new_sample_rate": config.SampleRate,
		"old_channels":    f.defaultConfig.Channels,
		"new_channels":    config.Channels,
	}).Info("Updating factory configuration")

	c := *config
	f.defaultConfig = &c
	return nil
}
