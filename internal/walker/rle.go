package walker

import (
	"fmt"
	"io"
	"math"

	"github.com/joshuapare/opaquekit/internal/buf"
	"github.com/joshuapare/opaquekit/internal/format"
)

// rleAnalysis is what a diagnostic pass over one RLE payload found.
type rleAnalysis struct {
	header     format.RleHeader
	unverified bool                // variable-length offsets, segments skipped
	segments   []format.RleSegment // NSegs+1 entries when complete
	runLengths []int64             // one per run segment
	backwards  []int               // segment numbers whose start precedes their predecessor
	estimated  int64               // reconstructed data size
	overflow   bool                // estimate left the int64 range
}

// sizeMatches reports whether the reconstructed size equals the declared one.
func (a *rleAnalysis) sizeMatches() bool {
	return !a.overflow && a.estimated >= 0 && uint64(a.estimated) == a.header.DataSize
}

// analyzeRLE decodes an RLE payload at the cursor of r, which holds limit
// bytes in total. A magic mismatch is returned as-is so the caller can try
// the empty bitmap instead. On truncation the partial analysis is returned
// with an error wrapping format.ErrTruncated.
func analyzeRLE(r io.ReadSeeker, limit int64) (*rleAnalysis, error) {
	raw, err := readFull(r, format.RleHeaderSize)
	if err != nil {
		// A short empty bitmap at the end of the stream is not a short RLE header.
		want, _ := format.RleHeaderLayout.Magic()
		if got := buf.U64LE(raw); len(raw) >= 8 && got != want {
			return nil, &format.MagicError{
				Layout:   format.RleHeaderLayout.Name(),
				Expected: want,
				Actual:   got,
			}
		}
		return nil, fmt.Errorf("RLE header: %w", err)
	}
	hdr, err := format.DecodeRleHeader(raw)
	if err != nil {
		return nil, err
	}

	a := &rleAnalysis{header: hdr}
	if hdr.HasVarOffsets() {
		a.unverified = true
		return a, nil
	}

	// +1 for the trailing guardian segment.
	if hdr.NSegs >= math.MaxInt64 {
		return a, fmt.Errorf("RLE segment count %d: %w", hdr.NSegs, format.ErrTruncated)
	}
	count := int64(hdr.NSegs) + 1
	pos, err := tell(r)
	if err != nil {
		return a, err
	}
	if _, err := buf.CheckTableBounds(limit, pos, count, format.RleSegmentSize); err != nil {
		return a, fmt.Errorf("RLE segment table (%d segments at %d): %v: %w", count, pos, err, format.ErrTruncated)
	}

	elemSize := int64(hdr.ElemSize)
	if hdr.ElemSize > math.MaxInt64 {
		a.overflow = true
	}

	prev := format.RleSegment{}
	a.segments = make([]format.RleSegment, 0, count)
	for i := int64(0); i < count; i++ {
		raw, err := readFull(r, format.RleSegmentSize)
		if err != nil {
			return a, fmt.Errorf("RLE segment %d: %w", i, err)
		}
		seg, err := format.DecodeRleSegment(raw)
		if err != nil {
			return a, err
		}
		a.segments = append(a.segments, seg)

		delta := int64(seg.Start - prev.Start)
		if seg.Start < prev.Start {
			a.backwards = append(a.backwards, int(i))
		}
		if prev.Bits.IsRun() {
			// A run stores one value however many cells it covers.
			a.runLengths = append(a.runLengths, delta)
			a.add(elemSize)
		} else {
			cells, ok := buf.MulOverflowSafe(elemSize, delta)
			if !ok {
				a.overflow = true
			}
			a.add(cells)
		}
		prev = seg
	}
	return a, nil
}

func (a *rleAnalysis) add(n int64) {
	if a.overflow {
		return
	}
	sum, ok := buf.AddOverflowSafe(a.estimated, n)
	if !ok {
		a.overflow = true
		return
	}
	a.estimated = sum
}
