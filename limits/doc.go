// Package limits provides centralized size constants and validation
// functions for the mediakit containers.
//
// # Ogg
//
// An Ogg page carries at most MaxSegmentsPerPage lacing values of at most
// MaxSegmentSize bytes each, so a page body never exceeds MaxPageBody. The
// framer emits a page once its body passes the nominal page size
// (DefaultNominalPageSize unless configured) and at least four packets have
// completed on it:
//
//	if err := limits.ValidateNominalPageSize(size); err != nil {
//	    return err
//	}
//
// # WAVE
//
// The RIFF size field is 32 bits and counts the data chunk plus 36 header
// bytes, which bounds the data chunk at MaxWaveDataLength.
//
// # Error Types
//
// Validation errors wrap both av.ErrInvalidArgument and one of:
//
//   - ErrTooLarge: the size exceeds its limit
//   - ErrTooSmall: the size is below its minimum
package limits
