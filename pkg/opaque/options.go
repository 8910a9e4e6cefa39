package opaque

import (
	"io"

	"github.com/joshuapare/opaquekit/internal/walker"
)

// Verbosity levels for Options.Verbosity.
const (
	VerbosityQuiet    = walker.VerbosityQuiet
	VerbosityProgress = walker.VerbosityProgress
	VerbositySegments = walker.VerbositySegments
	VerbosityRaw      = walker.VerbosityRaw
)

// Options controls scanning.
type Options struct {
	// Stdout receives the chunk dump and problem lines.
	// If nil, os.Stdout is used.
	Stdout io.Writer

	// Stderr receives warnings and debug output.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	// Program prefixes debug lines, e.g. "opaquectl:".
	Program string

	// Verbosity selects debug output (0-3).
	Verbosity int

	// Quiet suppresses the chunk dump. Problems and warnings still print.
	Quiet bool

	// Digest hashes every chunk body and counts duplicate bodies.
	Digest bool

	// Raw disables decompression of compressed inputs.
	Raw bool
}
