// Package diag collects the problems and warnings found while walking a dump
// so they can be rendered after the stream has been processed.
package diag

// Severity classifies how serious a diagnostic issue is.
type Severity int

const (
	SevInfo     Severity = iota // Informational (unusual but valid)
	SevWarning                  // Consistency problem, processing continued
	SevError                    // Stream could not be fully verified
	SevCritical                 // Structural violation, stream abandoned
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity by name in JSON output.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Category classifies the type of issue found.
type Category int

const (
	DiagStructure   Category = iota // Bad flags, bad magic
	DiagConsistency                 // Declared vs. computed sizes and counts
	DiagTruncation                  // Stream ended inside a structure
	DiagCoverage                    // Structure present but not verified
)

func (c Category) String() string {
	switch c {
	case DiagStructure:
		return "STRUCTURE"
	case DiagConsistency:
		return "CONSISTENCY"
	case DiagTruncation:
		return "TRUNCATION"
	case DiagCoverage:
		return "COVERAGE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the category by name in JSON output.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Structure names used in diagnostics.
const (
	StructChunk  = "OCH"
	StructRLE    = "RLE"
	StructEBM    = "EBM"
	StructStream = "STREAM"
)

// Diagnostic represents a single issue found in a stream.
type Diagnostic struct {
	// Classification
	Severity Severity `json:"severity"`
	Category Category `json:"category"`

	// Location
	Offset    int64  `json:"offset"`    // Absolute byte offset in the stream
	Structure string `json:"structure"` // "OCH", "RLE", "EBM", "STREAM"

	// Description
	Issue    string      `json:"issue"`
	Expected interface{} `json:"expected,omitempty"`
	Actual   interface{} `json:"actual,omitempty"`

	// Context (optional)
	Context *Context `json:"context,omitempty"`
}

// Context locates a diagnostic within the chunk sequence.
type Context struct {
	Chunk       int   `json:"chunk"`        // zero-based chunk number
	ChunkOffset int64 `json:"chunk_offset"` // offset of the chunk's header
}
