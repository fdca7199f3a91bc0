package domain

import "errors"

// Configuration errors abort a run before any output is written.
var (
	ErrUnknownNetwork    = errors.New("unknown network")
	ErrUnsupportedUnit   = errors.New("unsupported unit")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// ErrMalformedInput marks an input file that cannot be read as a wide table at all.
// Row and cell level defects are counted in Warnings instead.
var ErrMalformedInput = errors.New("malformed input")

// ErrIO wraps filesystem failures on the input or output path.
var ErrIO = errors.New("io error")
