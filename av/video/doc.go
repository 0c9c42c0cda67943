// Package video converts RGB frames to planar YCbCr and carries them
// through the raw video CodecEngine.
//
// FromRGB reads bottom-up RGB24 or RGB32 buffers (device-independent
// bitmap layout) and writes top-down planes padded to the 16-pixel block
// grid:
//
//	img, err := video.FromRGB24(pixels, 640, 480, video.Subsampling420)
//	if err != nil {
//	    return err
//	}
//	rgb, err := img.ToRGB24()
//
// 4:2:0 conversion uses BT.601 integer coefficients with per-block chroma
// averaging; 4:4:4 uses higher precision rational coefficients.
package video
