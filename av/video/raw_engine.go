package video

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/mediakit/av"
	"github.com/sirupsen/logrus"
)

// Raw video identification header:
//
//	[0]     0x80 packet type
//	[1:6]   "ycbcr"
//	[6]     version
//	[7]     subsampling
//	[8:10]  picture width, big-endian
//	[10:12] picture height, big-endian
//	[12:16] frame rate numerator, big-endian
//	[16:20] frame rate denominator, big-endian
//	[20]    keyframe granule shift
const (
	rawHeaderType   = 0x80
	rawDataType     = 0x00
	rawMagic        = "ycbcr"
	rawVersion      = 1
	rawHeaderSize   = 21
	defaultRawShift = 6
)

// RawConfig configures a RawEngine.
type RawConfig struct {
	Width         int
	Height        int
	Subsampling   Subsampling
	FrameRateNum  int
	FrameRateDen  int
	KeyframeShift uint8 // zero selects 6
}

// RawEngine carries uncompressed planar YCbCr frames, one packet per
// frame. Every frame is a keyframe, so granule positions advance in the
// keyframe field.
type RawEngine struct {
	cfg    RawConfig
	frames int64
	seen   int
	closed bool
}

// NewRawEngine validates cfg and creates an engine.
func NewRawEngine(cfg RawConfig) (*RawEngine, error) {
	if cfg.KeyframeShift == 0 {
		cfg.KeyframeShift = defaultRawShift
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > 0xFFFF || cfg.Height > 0xFFFF ||
		cfg.FrameRateNum <= 0 || cfg.FrameRateDen <= 0 || cfg.KeyframeShift > 31 ||
		(cfg.Subsampling != Subsampling420 && cfg.Subsampling != Subsampling444) {
		logrus.WithFields(logrus.Fields{
			"function":    "NewRawEngine",
			"width":       cfg.Width,
			"height":      cfg.Height,
			"fps_num":     cfg.FrameRateNum,
			"fps_den":     cfg.FrameRateDen,
			"subsampling": cfg.Subsampling.String(),
		}).Error("Raw video engine configuration rejected")
		return nil, fmt.Errorf("%w: raw video %dx%d@%d/%d %s", av.ErrInvalidArgument,
			cfg.Width, cfg.Height, cfg.FrameRateNum, cfg.FrameRateDen, cfg.Subsampling)
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewRawEngine",
		"width":        cfg.Width,
		"height":       cfg.Height,
		"frame_width":  PaddedSize(cfg.Width),
		"frame_height": PaddedSize(cfg.Height),
		"subsampling":  cfg.Subsampling.String(),
	}).Info("Created raw video engine")

	return &RawEngine{cfg: cfg}, nil
}

// Name implements av.Engine.
func (e *RawEngine) Name() string { return "raw" }

// GranuleRate implements av.Engine; granules count frames.
func (e *RawEngine) GranuleRate() (int64, int64) {
	return int64(e.cfg.FrameRateNum), int64(e.cfg.FrameRateDen)
}

// GranuleShift implements av.Engine.
func (e *RawEngine) GranuleShift() uint8 { return e.cfg.KeyframeShift }

// Subsampling implements Engine.
func (e *RawEngine) Subsampling() Subsampling { return e.cfg.Subsampling }

// Config returns the engine configuration, updated from the header when
// decoding.
func (e *RawEngine) Config() RawConfig { return e.cfg }

// HeaderPackets returns the single identification packet.
func (e *RawEngine) HeaderPackets() ([]av.Packet, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}

	h := make([]byte, rawHeaderSize)
	h[0] = rawHeaderType
	copy(h[1:], rawMagic)
	h[6] = rawVersion
	h[7] = byte(e.cfg.Subsampling)
	binary.BigEndian.PutUint16(h[8:], uint16(e.cfg.Width))
	binary.BigEndian.PutUint16(h[10:], uint16(e.cfg.Height))
	binary.BigEndian.PutUint32(h[12:], uint32(e.cfg.FrameRateNum))
	binary.BigEndian.PutUint32(h[16:], uint32(e.cfg.FrameRateDen))
	h[20] = e.cfg.KeyframeShift
	return []av.Packet{{Payload: h}}, nil
}

// EncodeImage packs the three padded planes of img into one packet.
func (e *RawEngine) EncodeImage(img *Image, last bool) ([]av.Packet, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}
	if img == nil {
		if !last {
			return nil, fmt.Errorf("%w: nil image", av.ErrInvalidArgument)
		}
		return []av.Packet{{GranulePos: e.granule()}}, nil
	}
	if img.Width != e.cfg.Width || img.Height != e.cfg.Height || img.Subsampling != e.cfg.Subsampling {
		logrus.WithFields(logrus.Fields{
			"function":        "RawEngine.EncodeImage",
			"expected_width":  e.cfg.Width,
			"expected_height": e.cfg.Height,
			"actual_width":    img.Width,
			"actual_height":   img.Height,
		}).Error("Frame geometry validation failed")
		return nil, fmt.Errorf("%w: frame %dx%d %s, engine expects %dx%d %s", av.ErrInvalidArgument,
			img.Width, img.Height, img.Subsampling, e.cfg.Width, e.cfg.Height, e.cfg.Subsampling)
	}

	data := make([]byte, 0, 1+len(img.Y.Data)+len(img.Cb.Data)+len(img.Cr.Data))
	data = append(data, rawDataType)
	data = appendPlane(data, &img.Y)
	data = appendPlane(data, &img.Cb)
	data = appendPlane(data, &img.Cr)

	e.frames++
	return []av.Packet{{Payload: data, GranulePos: e.granule()}}, nil
}

func (e *RawEngine) granule() int64 {
	return e.frames << e.cfg.KeyframeShift
}

func appendPlane(dst []byte, p *Plane) []byte {
	if p.Stride == p.Width {
		return append(dst, p.Data[:p.Width*p.Height]...)
	}
	for y := 0; y < p.Height; y++ {
		dst = append(dst, p.Data[y*p.Stride:y*p.Stride+p.Width]...)
	}
	return dst
}

// DecodePacket parses the identification header, then returns one image
// per data packet.
func (e *RawEngine) DecodePacket(p av.Packet) (*Image, error) {
	if e.closed {
		return nil, av.ErrEngineClosed
	}
	defer func() { e.seen++ }()

	if e.seen == 0 {
		return nil, e.parseHeader(p.Payload)
	}
	if len(p.Payload) == 0 {
		return nil, av.ErrNeedMoreData
	}
	if p.Payload[0] != rawDataType {
		return nil, av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, fmt.Errorf("packet type 0x%02X", p.Payload[0]))
	}

	img, err := NewImage(e.cfg.Width, e.cfg.Height, e.cfg.Subsampling)
	if err != nil {
		return nil, err
	}
	body := p.Payload[1:]
	if want := len(img.Y.Data) + len(img.Cb.Data) + len(img.Cr.Data); len(body) != want {
		return nil, av.NewEngineError(e.Name(), "decode", av.EngineBadPacket,
			fmt.Errorf("frame payload %d bytes, want %d", len(body), want))
	}
	n := copy(img.Y.Data, body)
	n += copy(img.Cb.Data, body[n:])
	copy(img.Cr.Data, body[n:])
	return img, nil
}

func (e *RawEngine) parseHeader(h []byte) error {
	if len(h) < rawHeaderSize || h[0] != rawHeaderType || string(h[1:6]) != rawMagic {
		return av.NewEngineError(e.Name(), "decode", av.EngineBadPacket, fmt.Errorf("not a raw video header"))
	}
	if h[6] != rawVersion {
		return av.NewEngineError(e.Name(), "decode", av.EngineUnsupported, fmt.Errorf("version %d", h[6]))
	}
	e.cfg = RawConfig{
		Subsampling:   Subsampling(h[7]),
		Width:         int(binary.BigEndian.Uint16(h[8:])),
		Height:        int(binary.BigEndian.Uint16(h[10:])),
		FrameRateNum:  int(binary.BigEndian.Uint32(h[12:])),
		FrameRateDen:  int(binary.BigEndian.Uint32(h[16:])),
		KeyframeShift: h[20],
	}
	return av.ErrNeedMoreData
}

// Close implements av.Engine.
func (e *RawEngine) Close() error {
	e.closed = true
	return nil
}
