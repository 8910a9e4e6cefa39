// Package walker walks an opaque chunk dump chunk by chunk, decoding every
// header and payload it meets and reporting where declared and computed sizes
// disagree. The stream is only ever read.
//
// Each chunk goes through three steps:
//
//	ReadHeader  read and decode the 32-byte chunk header
//	Dispatch    for RLE-flagged chunks, read the chunk position and decode the
//	            payload as RLE, or as an empty bitmap when the RLE magic does
//	            not match; both attempts restore the cursor afterwards
//	Advance     skip the chunk body by the header's declared size and compare
//	            the new position with the one the payload analysis predicted
//
// A clean end of input ends the stream. A truncated header or position ends
// it with a warning; a chunk header with a bad magic or unknown flags ends it
// with an error wrapping format.ErrStructuralViolation.
package walker

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/joshuapare/opaquekit/internal/diag"
	"github.com/joshuapare/opaquekit/internal/format"
	"github.com/joshuapare/opaquekit/internal/stats"
)

// Outcome describes how the walk over one stream ended.
type Outcome int

const (
	OutcomeDone    Outcome = iota // clean end of stream
	OutcomeAborted                // stream ended inside a structure
	OutcomeFailed                 // structural violation in a chunk header
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Recognition is the result of trying to decode a chunk payload.
type Recognition int

const (
	Unrecognized Recognition = iota
	RecognizedRLE
	RecognizedEBM
)

func (r Recognition) String() string {
	switch r {
	case RecognizedRLE:
		return "rle"
	case RecognizedEBM:
		return "ebm"
	default:
		return "unrecognized"
	}
}

// Result summarizes one stream.
type Result struct {
	Name    string
	Outcome Outcome

	Chunks             int
	ArrayChunks        int
	RLEChunks          int
	EBMChunks          int
	UnrecognizedChunks int

	// GapBytes is the signed sum of the differences between where payload
	// analysis expected the next chunk and where its header put it.
	GapBytes int64

	// DuplicateBodies counts chunk bodies whose digest was already seen.
	// Only maintained with Options.Digest.
	DuplicateBodies int

	Report *diag.Report
}

// Walker walks dump streams one after another.
type Walker struct {
	opts Options
	out  *printer // dump, problems
	errw *printer // warnings, debug
}

// New returns a Walker writing the dump to stdout and warnings and debug
// output to stderr.
func New(stdout, stderr io.Writer, opts Options) *Walker {
	return &Walker{
		opts: opts,
		out:  &printer{w: stdout},
		errw: &printer{w: stderr},
	}
}

// Walk processes r from its current position to the end. name is used in
// messages only. The returned error is either a structural violation, which
// ends this stream only, or a read, seek or write failure.
func (w *Walker) Walk(r io.ReadSeeker, name string) (*Result, error) {
	started := time.Now()

	start, err := tell(r)
	if err != nil {
		return nil, err
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	s := &stream{
		w:    w,
		r:    r,
		name: name,
		size: size,
		res: &Result{
			Name:   name,
			Report: diag.NewReport(name),
		},
		chunk: -1,
	}
	if w.opts.Digest {
		s.digests = make(map[uint64]int)
	}
	s.res.Report.StreamSize = size

	err = s.run()

	s.res.Report.ScanTime = time.Since(started)
	s.res.Report.Finalize()
	if err == nil {
		err = w.outputErr()
	}
	return s.res, err
}

// outputErr returns the first failed write on either output.
func (w *Walker) outputErr() error {
	if w.out.err != nil {
		return w.out.err
	}
	return w.errw.err
}

type printer struct {
	w   io.Writer
	err error // first write error; later writes are dropped
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// stream is the state of one walk.
type stream struct {
	w    *Walker
	r    io.ReadSeeker
	name string
	size int64
	res  *Result

	chunk    int   // number of the chunk being processed, -1 before the first
	chunkOff int64 // offset of its header
	digests  map[uint64]int
}

func (s *stream) run() error {
	for {
		done, err := s.step()
		if err != nil {
			return err
		}
		if err := s.w.outputErr(); err != nil {
			return err
		}
		if done {
			break
		}
	}

	if s.res.Outcome == OutcomeDone && s.res.GapBytes != 0 {
		s.problem(diag.SevWarning, diag.DiagConsistency, diag.StructStream, s.size,
			fmt.Sprintf("%d bytes unaccounted for!", s.res.GapBytes), int64(0), s.res.GapBytes)
	}
	s.summary()
	return nil
}

// step processes one chunk. It returns done when the stream has ended.
func (s *stream) step() (bool, error) {
	offset, err := tell(s.r)
	if err != nil {
		return false, err
	}
	s.debugf("Read next OCH in %s at offset %d", s.name, offset)

	raw, err := readFull(s.r, format.ChunkHeaderSize)
	if errors.Is(err, format.ErrTruncated) {
		if len(raw) == 0 {
			s.res.Outcome = OutcomeDone
			return true, nil
		}
		s.abort(offset, fmt.Sprintf("Short header found at %d in %s (quitting)", offset, s.name),
			format.ChunkHeaderSize, len(raw))
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if s.w.opts.Verbosity >= VerbosityRaw {
		s.debugf("OCH bytes:\n%s", strings.TrimRight(hex.Dump(raw), "\n"))
	}

	hdr, err := format.DecodeChunkHeader(raw)
	if err != nil {
		s.res.Outcome = OutcomeFailed
		s.record(diag.SevCritical, diag.DiagStructure, diag.StructChunk, offset, firstLine(err.Error()), nil, nil)
		return true, fmt.Errorf("%s at offset %d: %w", s.name, offset, err)
	}
	s.debugf("Read %s OCH: %s", hdr.FlagLabel(), oneLine(hdr.String()))

	s.chunk++
	s.chunkOff = offset
	s.res.Chunks++

	// The chunk position is not included in hdr.Size.
	var position []int64
	if !hdr.IsArray() {
		at, err := tell(s.r)
		if err != nil {
			return false, err
		}
		raw, err := readFull(s.r, hdr.PositionSize())
		if errors.Is(err, format.ErrTruncated) {
			s.abort(at, fmt.Sprintf("Short chunk position found at %d in %s (quitting)", at, s.name),
				hdr.PositionSize(), len(raw))
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if position, err = format.DecodePosition(raw); err != nil {
			return false, err
		}
	}

	if hdr.IsArray() {
		s.dumpf("== Chunk at %s:%d\n", s.name, offset)
	} else {
		s.dumpf("== Chunk at %s:%d %v\n", s.name, offset, position)
	}
	s.dumpf("%s\n", hdr)

	var (
		expected     int64
		haveExpected bool
		according    string
	)
	if hdr.IsArray() {
		s.res.ArrayChunks++
	} else {
		at, err := tell(s.r)
		if err != nil {
			return false, err
		}
		s.debugf("Read RLE header at offset %d", at)
		a, err := s.attemptPayload()
		if err != nil {
			return false, err
		}
		expected, haveExpected, according = s.reportAttempt(a, at)
	}

	// On to the next chunk header, as far as this one says.
	bodyStart, err := tell(s.r)
	if err != nil {
		return false, err
	}
	next := bodyStart + int64(hdr.Size)
	if s.digests != nil && hdr.Size > 0 {
		if err := s.digestBody(int64(hdr.Size)); err != nil {
			return false, err
		}
	}
	if _, err := s.r.Seek(next, io.SeekStart); err != nil {
		return false, err
	}
	if next > s.size {
		s.problem(diag.SevError, diag.DiagTruncation, diag.StructChunk, bodyStart,
			fmt.Sprintf("Chunk body at %d extends %d bytes past end of stream", bodyStart, next-s.size),
			int64(hdr.Size), s.size-bodyStart)
	}

	// Was there a gap between where the payload analysis left off and where
	// the next chunk begins?
	if haveExpected && next != expected {
		gap := next - expected
		s.problem(diag.SevWarning, diag.DiagConsistency, diag.StructStream, expected,
			fmt.Sprintf("Expected next chunk at %d according to %s but it starts at %d", expected, according, next),
			expected, next)
		s.problemf("Gap: %d", gap)
		s.res.GapBytes += gap
	}
	return false, nil
}

// attempt is the outcome of decoding one payload under an excursion.
type attempt struct {
	kind  Recognition
	rle   *rleAnalysis
	ebm   *ebmAnalysis
	end   int64  // cursor when the diagnostic decode stopped
	err   error  // truncation inside the recognized payload
	magic uint64 // the RLE-position magic when unrecognized
}

// attemptPayload decodes the payload at the cursor as RLE and, on a magic
// mismatch, as an empty bitmap. The cursor is unchanged afterwards. Only
// read and seek failures are returned as errors.
func (s *stream) attemptPayload() (attempt, error) {
	var a attempt

	var rleErr error
	err := excursion(s.r, func() error {
		var err error
		a.rle, rleErr = analyzeRLE(s.r, s.size)
		a.end, err = tell(s.r)
		return err
	})
	if err != nil {
		return a, err
	}

	var rleMagic *format.MagicError
	if !errors.As(rleErr, &rleMagic) {
		if rleErr != nil && !errors.Is(rleErr, format.ErrTruncated) {
			return a, rleErr
		}
		a.kind = RecognizedRLE
		a.err = rleErr
		return a, nil
	}

	var ebmErr error
	err = excursion(s.r, func() error {
		var err error
		a.ebm, ebmErr = analyzeEBM(s.r, s.size)
		a.end, err = tell(s.r)
		return err
	})
	if err != nil {
		return a, err
	}

	var ebmMagic *format.MagicError
	if errors.As(ebmErr, &ebmMagic) {
		a.kind = Unrecognized
		a.magic = rleMagic.Actual
		return a, nil
	}
	if ebmErr != nil && !errors.Is(ebmErr, format.ErrTruncated) {
		return a, ebmErr
	}
	a.kind = RecognizedEBM
	a.err = ebmErr
	return a, nil
}

// reportAttempt prints what the payload decode found and returns where the
// next chunk is expected, if the payload lets us tell.
func (s *stream) reportAttempt(a attempt, at int64) (int64, bool, string) {
	switch a.kind {
	case RecognizedRLE:
		s.res.RLEChunks++
		return s.reportRLE(a, at)
	case RecognizedEBM:
		s.res.EBMChunks++
		return s.reportEBM(a, at)
	default:
		s.res.UnrecognizedChunks++
		s.problem(diag.SevWarning, diag.DiagStructure, diag.StructChunk, at,
			fmt.Sprintf("Payload at %d is neither RLE nor EBM (magic 0x%x)", at, a.magic),
			nil, fmt.Sprintf("0x%x", a.magic))
		return 0, false, ""
	}
}

func (s *stream) reportRLE(a attempt, at int64) (int64, bool, string) {
	rle := a.rle
	if rle == nil {
		// Header itself was cut short.
		s.problem(diag.SevError, diag.DiagTruncation, diag.StructRLE, at, a.err.Error(), nil, nil)
		return 0, false, ""
	}

	s.dumpf("-- RLE Header:\n%s\n", rle.header)
	if rle.unverified {
		s.warn(diag.DiagCoverage, diag.StructRLE, at,
			"This tool has not (yet) been tested for chunks of variable length attributes")
		return 0, false, ""
	}

	prev := format.RleSegment{}
	for i, seg := range rle.segments {
		suffix := ""
		if prev.Bits.IsRun() {
			suffix = fmt.Sprintf(" {prev_run:%d}", int64(seg.Start-prev.Start))
		}
		s.dumpf("{seg:%d %s}%s\n", i, seg, suffix)
		prev = seg
	}
	for _, i := range rle.backwards {
		segOff := at + format.RleHeaderSize + int64(i)*format.RleSegmentSize
		s.problem(diag.SevWarning, diag.DiagConsistency, diag.StructRLE, segOff,
			fmt.Sprintf("Segment %d start %d precedes previous start %d",
				i, rle.segments[i].Start, rle.segments[i-1].Start),
			nil, nil)
	}
	if a.err != nil {
		s.problem(diag.SevError, diag.DiagTruncation, diag.StructRLE, a.end, a.err.Error(), nil, nil)
		return 0, false, ""
	}

	runs := stats.Summarize(rle.runLengths)
	s.dumpf("Run stats: segs=%d runs=%d mean=%s stdev=%s\n",
		rle.header.NSegs, runs.Count, runs.MeanString(), runs.StdevString())

	if rle.overflow {
		s.dumpf("Data size, estimated: (overflow) Actual: %d\n", rle.header.DataSize)
		s.problem(diag.SevWarning, diag.DiagConsistency, diag.StructRLE, at,
			fmt.Sprintf("DATA SIZE MISMATCH, estimate overflowed, actual %d", rle.header.DataSize),
			rle.header.DataSize, nil)
	} else {
		s.dumpf("Data size, estimated: %d Actual: %d\n", rle.estimated, rle.header.DataSize)
		if !rle.sizeMatches() {
			s.problem(diag.SevWarning, diag.DiagConsistency, diag.StructRLE, at,
				fmt.Sprintf("DATA SIZE MISMATCH, est %d != actual %d", rle.estimated, rle.header.DataSize),
				rle.header.DataSize, rle.estimated)
		}
	}

	if rle.header.DataSize > math.MaxInt64-uint64(a.end) {
		return 0, false, ""
	}
	return a.end + int64(rle.header.DataSize), true, "RLE header"
}

func (s *stream) reportEBM(a attempt, at int64) (int64, bool, string) {
	ebm := a.ebm
	if ebm == nil {
		s.problem(diag.SevError, diag.DiagTruncation, diag.StructEBM, at, a.err.Error(), nil, nil)
		return 0, false, ""
	}

	s.dumpf("-- EBM Header:\n%s\n", ebm.header)
	if s.w.opts.Verbosity >= VerbositySegments {
		for i, seg := range ebm.segments {
			s.dumpf("{ebmseg:%d %s}\n", i, seg)
		}
	}
	if a.err != nil {
		s.problem(diag.SevError, diag.DiagTruncation, diag.StructEBM, a.end, a.err.Error(), nil, nil)
		return 0, false, ""
	}

	lengths := stats.Summarize(ebm.lengths)
	s.dumpf("EBM stats: segs=%d mean=%s stdev=%s\n",
		ebm.header.NSegs, lengths.MeanString(), lengths.StdevString())
	if !ebm.countMatches() {
		counted := ebm.nonEmpty()
		s.problem(diag.SevWarning, diag.DiagConsistency, diag.StructEBM, at,
			fmt.Sprintf("Expected %d non-empty cells but counted only %s cells", ebm.header.NElems, counted),
			ebm.header.NElems, counted.String())
	}

	// The bitmap does not declare its own length; the segment scan is the
	// only measure of where it ends.
	return a.end, true, "EBM header"
}

func (s *stream) digestBody(n int64) error {
	h := xxhash.New()
	got, err := io.CopyN(h, s.r, n)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	sum := h.Sum64()
	s.digests[sum]++
	if s.digests[sum] > 1 {
		s.res.DuplicateBodies++
	}

	note := ""
	if got < n {
		note = " (truncated)"
	}
	s.dumpf("Body xxh64:%016x bytes:%d%s\n", sum, got, note)
	return nil
}

// abort ends the stream after a short read.
func (s *stream) abort(offset int64, msg string, want, got int) {
	s.res.Outcome = OutcomeAborted
	s.w.errw.printf("Warning: %s\n", msg)
	s.record(diag.SevError, diag.DiagTruncation, diag.StructStream, offset, msg, want, got)
}

func (s *stream) summary() {
	line := fmt.Sprintf("Summary: chunks=%d array=%d rle=%d ebm=%d unrecognized=%d gap_bytes=%d outcome=%s",
		s.res.Chunks, s.res.ArrayChunks, s.res.RLEChunks, s.res.EBMChunks,
		s.res.UnrecognizedChunks, s.res.GapBytes, s.res.Outcome)
	if s.digests != nil {
		line += fmt.Sprintf(" duplicate_bodies=%d", s.res.DuplicateBodies)
	}
	s.dumpf("%s\n", line)
}

// ---- output helpers ----

// dumpf prints the chunk dump unless quiet.
func (s *stream) dumpf(format string, args ...interface{}) {
	if s.w.opts.Quiet {
		return
	}
	s.w.out.printf(format, args...)
}

// problemf prints a consistency problem line without recording it.
func (s *stream) problemf(format string, args ...interface{}) {
	s.w.out.printf("Problem: "+format+"\n", args...)
}

// problem prints and records a problem found in the stream.
func (s *stream) problem(sev diag.Severity, cat diag.Category, structure string, offset int64,
	issue string, expected, actual interface{},
) {
	s.problemf("%s", issue)
	s.record(sev, cat, structure, offset, issue, expected, actual)
}

// warn prints a warning to the diagnostic stream and records it.
func (s *stream) warn(cat diag.Category, structure string, offset int64, msg string) {
	s.w.errw.printf("Warning: %s\n", msg)
	sev := diag.SevWarning
	if cat == diag.DiagCoverage {
		sev = diag.SevInfo
	}
	s.record(sev, cat, structure, offset, msg, nil, nil)
}

func (s *stream) debugf(format string, args ...interface{}) {
	if s.w.opts.Verbosity < VerbosityProgress {
		return
	}
	prefix := ""
	if s.w.opts.Program != "" {
		prefix = s.w.opts.Program + " "
	}
	s.w.errw.printf(prefix+format+"\n", args...)
}

func (s *stream) record(sev diag.Severity, cat diag.Category, structure string, offset int64,
	issue string, expected, actual interface{},
) {
	d := diag.Diagnostic{
		Severity:  sev,
		Category:  cat,
		Offset:    offset,
		Structure: structure,
		Issue:     issue,
		Expected:  expected,
		Actual:    actual,
	}
	if s.chunk >= 0 {
		d.Context = &diag.Context{Chunk: s.chunk, ChunkOffset: s.chunkOff}
	}
	s.res.Report.Add(d)
}

func oneLine(s string) string { return strings.ReplaceAll(s, "\n", " ") }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
