package walker

import (
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/joshuapare/opaquekit/internal/buf"
	"github.com/joshuapare/opaquekit/internal/format"
)

// ebmAnalysis is what a diagnostic pass over one empty bitmap found.
type ebmAnalysis struct {
	header   format.EbmHeader
	segments []format.EbmSegment
	lengths  []int64
}

// nonEmpty returns the sum of the segment lengths. Lengths are signed 64-bit
// values, so the sum is kept exact rather than wrapped.
func (a *ebmAnalysis) nonEmpty() *big.Int {
	n := new(big.Int)
	for _, l := range a.lengths {
		n.Add(n, big.NewInt(l))
	}
	return n
}

// countMatches reports whether the segments cover exactly the declared cells.
func (a *ebmAnalysis) countMatches() bool {
	return a.nonEmpty().Cmp(new(big.Int).SetUint64(a.header.NElems)) == 0
}

// analyzeEBM decodes an empty bitmap at the cursor of r, which holds limit
// bytes in total. There is no guardian segment.
func analyzeEBM(r io.ReadSeeker, limit int64) (*ebmAnalysis, error) {
	raw, err := readFull(r, format.EbmHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("EBM header: %w", err)
	}
	hdr, err := format.DecodeEbmHeader(raw)
	if err != nil {
		return nil, err
	}

	a := &ebmAnalysis{header: hdr}
	if hdr.NSegs > math.MaxInt64 {
		return a, fmt.Errorf("EBM segment count %d: %w", hdr.NSegs, format.ErrTruncated)
	}
	count := int64(hdr.NSegs)
	pos, err := tell(r)
	if err != nil {
		return a, err
	}
	if _, err := buf.CheckTableBounds(limit, pos, count, format.EbmSegmentSize); err != nil {
		return a, fmt.Errorf("EBM segment table (%d segments at %d): %v: %w", count, pos, err, format.ErrTruncated)
	}

	a.segments = make([]format.EbmSegment, 0, count)
	a.lengths = make([]int64, 0, count)
	for i := int64(0); i < count; i++ {
		raw, err := readFull(r, format.EbmSegmentSize)
		if err != nil {
			return a, fmt.Errorf("EBM segment %d: %w", i, err)
		}
		seg, err := format.DecodeEbmSegment(raw)
		if err != nil {
			return a, err
		}
		a.segments = append(a.segments, seg)
		a.lengths = append(a.lengths, seg.Length)
	}
	return a, nil
}
