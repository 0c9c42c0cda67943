package ogg

import "errors"

// Errors for Ogg page parsing.
var (
	// ErrInvalidPage indicates a malformed page: missing "OggS" capture
	// pattern, unknown version, or truncated data.
	ErrInvalidPage = errors.New("ogg: invalid page structure")

	// ErrBadCRC indicates the page checksum does not match its contents.
	ErrBadCRC = errors.New("ogg: CRC mismatch")

	// ErrUnexpectedEOF indicates the input ended inside a page.
	ErrUnexpectedEOF = errors.New("ogg: unexpected end of input")
)
