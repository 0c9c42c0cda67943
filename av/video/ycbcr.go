package video

import (
	"fmt"

	"github.com/opd-ai/mediakit/av"
)

// Subsampling selects the chroma plane geometry of an Image.
type Subsampling int

const (
	// Subsampling420 halves chroma horizontally and vertically.
	Subsampling420 Subsampling = iota
	// Subsampling444 keeps chroma at full resolution.
	Subsampling444
)

// String returns "420" or "444".
func (s Subsampling) String() string {
	switch s {
	case Subsampling420:
		return "420"
	case Subsampling444:
		return "444"
	default:
		return fmt.Sprintf("Subsampling(%d)", int(s))
	}
}

// ParseSubsampling parses "420" or "444".
func ParseSubsampling(s string) (Subsampling, error) {
	switch s {
	case "420", "4:2:0":
		return Subsampling420, nil
	case "444", "4:4:4":
		return Subsampling444, nil
	default:
		return 0, fmt.Errorf("%w: subsampling %q", av.ErrInvalidArgument, s)
	}
}

const (
	blockAlign = 16
	blackLuma  = 16
	neutralC   = 128
)

// Plane is one row-major component plane. len(Data) == Stride*Height.
type Plane struct {
	Width  int
	Height int
	Stride int
	Data   []byte
}

func newPlane(width, height int, fill byte) Plane {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = fill
	}
	return Plane{Width: width, Height: height, Stride: width, Data: data}
}

// At returns the sample at column x, row y.
func (p *Plane) At(x, y int) byte {
	return p.Data[y*p.Stride+x]
}

// Image is a planar YCbCr frame. The picture occupies the top-left
// Width x Height corner of the luma plane; luma dimensions are padded to a
// multiple of 16 and the padding is black.
type Image struct {
	Width       int
	Height      int
	Subsampling Subsampling
	Y           Plane
	Cb          Plane
	Cr          Plane
}

// PaddedSize rounds a picture dimension up to the 16-pixel block grid.
func PaddedSize(n int) int {
	return ((n + blockAlign - 1) / blockAlign) * blockAlign
}

// NewImage allocates a black image for a width x height picture.
func NewImage(width, height int, sub Subsampling) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: picture size %dx%d", av.ErrInvalidArgument, width, height)
	}
	if sub != Subsampling420 && sub != Subsampling444 {
		return nil, fmt.Errorf("%w: subsampling %s", av.ErrInvalidArgument, sub)
	}

	fw, fh := PaddedSize(width), PaddedSize(height)
	cw, ch := fw, fh
	if sub == Subsampling420 {
		cw, ch = fw/2, fh/2
	}

	return &Image{
		Width:       width,
		Height:      height,
		Subsampling: sub,
		Y:           newPlane(fw, fh, blackLuma),
		Cb:          newPlane(cw, ch, neutralC),
		Cr:          newPlane(cw, ch, neutralC),
	}, nil
}

// ChromaAt returns the Cb and Cr samples covering picture pixel (x, y).
func (img *Image) ChromaAt(x, y int) (cb, cr byte) {
	if img.Subsampling == Subsampling420 {
		x, y = x/2, y/2
	}
	return img.Cb.At(x, y), img.Cr.At(x, y)
}

// rgbSource reads pixels from a bottom-up RGB buffer.
type rgbSource struct {
	pix    []byte
	width  int
	height int
	bpp    int
	stride int
}

// rgb returns the pixel at picture column x, destination row y. Rows are
// stored bottom-up, so destination row y is source row height-1-y.
// Coordinates beyond the picture replicate the nearest edge pixel.
func (s *rgbSource) rgb(x, y int) (r, g, b int) {
	if x >= s.width {
		x = s.width - 1
	}
	if y >= s.height {
		y = s.height - 1
	}
	i := (s.height-1-y)*s.stride + x*s.bpp
	return int(s.pix[i]), int(s.pix[i+1]), int(s.pix[i+2])
}

func lumaBT601(r, g, b int) byte {
	return byte(((66*r + 129*g + 25*b + 128) >> 8) + 16)
}

func cbBT601(r, g, b int) int {
	return ((-38*r - 74*g + 112*b + 128) >> 8) + 128
}

func crBT601(r, g, b int) int {
	return ((112*r - 94*g - 18*b + 128) >> 8) + 128
}

// FromRGB converts a bottom-up RGB buffer with 24 or 32 bits per pixel
// into a YCbCr image. Pixel bytes are R, G, B; a fourth byte is ignored.
func FromRGB(pixels []byte, width, height, bitDepth int, sub Subsampling) (*Image, error) {
	var bpp int
	switch bitDepth {
	case 24:
		bpp = 3
	case 32:
		bpp = 4
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", av.ErrInvalidArgument, bitDepth)
	}

	img, err := NewImage(width, height, sub)
	if err != nil {
		return nil, err
	}
	if need := width * height * bpp; len(pixels) < need {
		return nil, fmt.Errorf("%w: pixel buffer has %d bytes, need %d", av.ErrInvalidArgument, len(pixels), need)
	}

	src := &rgbSource{pix: pixels, width: width, height: height, bpp: bpp, stride: width * bpp}
	if sub == Subsampling420 {
		convert420(src, img)
	} else {
		convert444(src, img)
	}
	return img, nil
}

// FromRGB24 converts a bottom-up packed 24-bit RGB buffer.
func FromRGB24(pixels []byte, width, height int, sub Subsampling) (*Image, error) {
	return FromRGB(pixels, width, height, 24, sub)
}

// FromRGB32 converts a bottom-up packed 32-bit RGBX buffer.
func FromRGB32(pixels []byte, width, height int, sub Subsampling) (*Image, error) {
	return FromRGB(pixels, width, height, 32, sub)
}

// convert420 walks 2x2 blocks. Chroma is the integer mean of the four
// per-pixel chroma values, not chroma of the mean colour.
func convert420(src *rgbSource, img *Image) {
	for y := 0; y < img.Height; y += 2 {
		for x := 0; x < img.Width; x += 2 {
			cb, cr := 0, 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					r, g, b := src.rgb(x+dx, y+dy)
					if x+dx < img.Width && y+dy < img.Height {
						img.Y.Data[(y+dy)*img.Y.Stride+x+dx] = lumaBT601(r, g, b)
					}
					cb += cbBT601(r, g, b)
					cr += crBT601(r, g, b)
				}
			}
			ci := (y/2)*img.Cb.Stride + x/2
			img.Cb.Data[ci] = byte(cb / 4)
			img.Cr.Data[ci] = byte(cr / 4)
		}
	}
}

func convert444(src *rgbSource, img *Image) {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := src.rgb(x, y)
			img.Y.Data[y*img.Y.Stride+x] = byte((65481*r + 128553*g + 24966*b + 4207500) / 255000)
			img.Cb.Data[y*img.Cb.Stride+x] = byte((-33488*r - 65744*g + 99232*b + 29032005) / 225930)
			img.Cr.Data[y*img.Cr.Stride+x] = byte((157024*r - 131488*g - 25536*b + 45940035) / 357510)
		}
	}
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// ToRGB24 converts the picture area back to packed 24-bit RGB. Rows are
// emitted top to bottom; the bottom-up flip applied by FromRGB is not
// undone. For 4:2:0 each chroma sample is replicated across its block.
func (img *Image) ToRGB24() ([]byte, error) {
	if img.Width <= 0 || img.Height <= 0 ||
		img.Width > img.Y.Width || img.Height > img.Y.Height {
		return nil, fmt.Errorf("%w: picture %dx%d in %dx%d plane", av.ErrInvalidArgument,
			img.Width, img.Height, img.Y.Width, img.Y.Height)
	}
	if img.Subsampling != Subsampling420 && img.Subsampling != Subsampling444 {
		return nil, fmt.Errorf("%w: subsampling %s", av.ErrInvalidArgument, img.Subsampling)
	}

	out := make([]byte, 0, img.Width*img.Height*3)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := 298 * (int(img.Y.At(x, y)) - 16)
			cbb, crb := img.ChromaAt(x, y)
			d := int(cbb) - 128
			e := int(crb) - 128
			out = append(out,
				clamp8((c+409*e+128)>>8),
				clamp8((c-100*d-208*e+128)>>8),
				clamp8((c+516*d+128)>>8),
			)
		}
	}
	return out, nil
}
