package opaque

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/opaquekit/internal/format"
	"github.com/joshuapare/opaquekit/internal/input"
	"github.com/joshuapare/opaquekit/internal/walker"
)

// ErrStructuralViolation is wrapped by errors for streams that had to be
// abandoned at a malformed chunk header.
var ErrStructuralViolation = format.ErrStructuralViolation

// Result summarizes one scanned stream.
type Result = walker.Result

// Outcome describes how a scan ended.
type Outcome = walker.Outcome

const (
	OutcomeDone    = walker.OutcomeDone
	OutcomeAborted = walker.OutcomeAborted
	OutcomeFailed  = walker.OutcomeFailed
)

// StdinName is the name under which standard input is reported.
const StdinName = input.StdinName

// Scanner scans streams with one fixed configuration.
type Scanner struct {
	w   *walker.Walker
	raw bool

	stderr    io.Writer
	program   string
	verbosity int
}

// NewScanner creates a Scanner. opts may be nil.
func NewScanner(opts *Options) *Scanner {
	if opts == nil {
		opts = &Options{}
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Scanner{
		w: walker.New(stdout, stderr, walker.Options{
			Program:   opts.Program,
			Verbosity: opts.Verbosity,
			Quiet:     opts.Quiet,
			Digest:    opts.Digest,
		}),
		raw:       opts.Raw,
		stderr:    stderr,
		program:   opts.Program,
		verbosity: opts.Verbosity,
	}
}

// ScanFile scans the dump at path.
func (s *Scanner) ScanFile(path string) (*Result, error) {
	src, err := input.Open(path, input.Options{Raw: s.raw})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := s.opened(src); err != nil {
		return nil, err
	}
	return s.w.Walk(src.Reader(), src.Name)
}

// ScanReader reads r to the end and scans it. r is not closed.
func (s *Scanner) ScanReader(name string, r io.Reader) (*Result, error) {
	src, err := input.FromReader(name, r, input.Options{Raw: s.raw})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := s.opened(src); err != nil {
		return nil, err
	}
	return s.w.Walk(src.Reader(), src.Name)
}

// opened reports the acquired stream at progress verbosity.
func (s *Scanner) opened(src *input.Source) error {
	if s.verbosity < VerbosityProgress {
		return nil
	}
	prefix := ""
	if s.program != "" {
		prefix = s.program + " "
	}
	_, err := fmt.Fprintf(s.stderr, "%sOpened %s: %d bytes, compression %s\n",
		prefix, src.Name, src.Size(), src.Compression)
	return err
}

// ScanFile scans the dump at path.
//
// Example:
//
//	res, err := opaque.ScanFile("chunks.dump", &opaque.Options{Quiet: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(res.Report.FormatText())
func ScanFile(path string, opts *Options) (*Result, error) {
	return NewScanner(opts).ScanFile(path)
}

// ScanReader scans everything r yields, reporting it under name.
func ScanReader(name string, r io.Reader, opts *Options) (*Result, error) {
	return NewScanner(opts).ScanReader(name, r)
}
