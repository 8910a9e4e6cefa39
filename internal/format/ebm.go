package format

import "fmt"

// EbmHeaderLayout is the ConstRLEEmptyBitmap header.
var EbmHeaderLayout = MustLayout("EbmHdr", EbmHeaderSize, []Field{
	U64("magic").AsHex(),
	U64("nsegs"),
	U64("nelems"),
}, WithMagic(EbmHeaderMagic))

// EbmSegmentLayout is ConstRLEEmptyBitmap::Segment.
var EbmSegmentLayout = MustLayout("EbmSeg", EbmSegmentSize, []Field{
	I64("lpos"),
	I64("length"),
	I64("ppos"),
})

// EbmHeader is a decoded empty bitmap header.
type EbmHeader struct {
	Magic  uint64
	NSegs  uint64
	NElems uint64 // non-empty cells covered by the bitmap

	rec Record
}

// DecodeEbmHeader decodes b (EbmHeaderSize bytes).
func DecodeEbmHeader(b []byte) (EbmHeader, error) {
	rec, err := Decode(EbmHeaderLayout, b)
	if err != nil {
		return EbmHeader{}, err
	}
	return EbmHeader{
		Magic:  rec.Uint("magic"),
		NSegs:  rec.Uint("nsegs"),
		NElems: rec.Uint("nelems"),
		rec:    rec,
	}, nil
}

// Record returns the generic record the header was decoded from.
func (h EbmHeader) Record() Record { return h.rec }

func (h EbmHeader) String() string { return h.rec.Render() }

// EbmSegment is one run of non-empty cells.
type EbmSegment struct {
	LPos   int64 // logical position of the first cell
	Length int64
	PPos   int64 // physical position in the data area
}

// DecodeEbmSegment decodes b (EbmSegmentSize bytes).
func DecodeEbmSegment(b []byte) (EbmSegment, error) {
	rec, err := Decode(EbmSegmentLayout, b)
	if err != nil {
		return EbmSegment{}, err
	}
	return EbmSegment{
		LPos:   rec.Int("lpos"),
		Length: rec.Int("length"),
		PPos:   rec.Int("ppos"),
	}, nil
}

func (s EbmSegment) String() string {
	return fmt.Sprintf("lpos:%d length:%d ppos:%d", s.LPos, s.Length, s.PPos)
}
