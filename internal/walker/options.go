package walker

// Verbosity levels for Options.Verbosity.
const (
	VerbosityQuiet    = 0 // no debug output
	VerbosityProgress = 1 // one line per structure read
	VerbositySegments = 2 // also every empty bitmap segment
	VerbosityRaw      = 3 // also a hex dump of every chunk header
)

// Options configures a Walker. It is built once and never modified while
// streams are being walked.
type Options struct {
	// Program prefixes debug lines (e.g. "opaquectl:").
	Program string

	// Verbosity selects how much debug output goes to the diagnostic stream.
	Verbosity int

	// Quiet suppresses the per-chunk dump; problems and warnings still print.
	Quiet bool

	// Digest hashes every chunk body with xxhash64 and counts duplicates.
	Digest bool
}
