package format

import (
	"fmt"

	"github.com/joshuapare/opaquekit/internal/buf"
)

// RleHeaderLayout is ConstRLEPayload::Header.
var RleHeaderLayout = MustLayout("RleHdr", RoundUp(41, StructAlignment), []Field{
	U64("magic").AsHex(),
	U64("nsegs"),
	U64("elem_size"),
	U64("data_size"),
	U64("var_offs"),
	U8("is_bool"),
	Pad(7),
}, WithMagic(RleHeaderMagic))

// RleSegmentLayout is rle::Segment. It is already packed, no rounding.
var RleSegmentLayout = MustLayout("RleSeg", RleSegmentSize, []Field{
	U64("start"),
	U32("allbits").AsHex(),
})

// RleHeader is a decoded RLE payload header.
type RleHeader struct {
	Magic    uint64
	NSegs    uint64
	ElemSize uint64
	DataSize uint64
	VarOffs  uint64
	IsBool   uint8

	rec Record
}

// DecodeRleHeader decodes b (RleHeaderSize bytes). A bad magic returns a
// *MagicError, which usually means the payload is an empty bitmap.
func DecodeRleHeader(b []byte) (RleHeader, error) {
	rec, err := Decode(RleHeaderLayout, b)
	if err != nil {
		return RleHeader{}, err
	}
	return RleHeader{
		Magic:    rec.Uint("magic"),
		NSegs:    rec.Uint("nsegs"),
		ElemSize: rec.Uint("elem_size"),
		DataSize: rec.Uint("data_size"),
		VarOffs:  rec.Uint("var_offs"),
		IsBool:   uint8(rec.Uint("is_bool")),
		rec:      rec,
	}, nil
}

// HasVarOffsets reports whether the payload belongs to a variable-length attribute.
func (h RleHeader) HasVarOffsets() bool { return h.VarOffs != 0 }

// Record returns the generic record the header was decoded from.
func (h RleHeader) Record() Record { return h.rec }

func (h RleHeader) String() string { return h.rec.Render() }

// SegmentBits is the packed word of an rle::Segment:
// bits 0..29 data index, bit 30 is-run, bit 31 is-null.
type SegmentBits uint32

// MakeSegmentBits packs the three sub-fields. index is masked to 30 bits.
func MakeSegmentBits(index uint32, run, null bool) SegmentBits {
	b := SegmentBits(index & segDataIndexMask)
	if run {
		b |= segRunBit
	}
	if null {
		b |= segNullBit
	}
	return b
}

// DataIndex returns the index of the segment's first value in the data area.
func (b SegmentBits) DataIndex() uint32 { return uint32(b) & segDataIndexMask }

// IsRun reports whether one stored value covers every cell of the segment.
func (b SegmentBits) IsRun() bool { return uint32(b)&segRunBit != 0 }

// IsNull reports whether the segment holds null cells.
func (b SegmentBits) IsNull() bool { return uint32(b)&segNullBit != 0 }

// RleSegment is a decoded rle::Segment.
type RleSegment struct {
	Start uint64
	Bits  SegmentBits
}

// DecodeRleSegment decodes b (RleSegmentSize bytes).
func DecodeRleSegment(b []byte) (RleSegment, error) {
	rec, err := Decode(RleSegmentLayout, b)
	if err != nil {
		return RleSegment{}, err
	}
	return RleSegment{Start: rec.Uint("start"), Bits: SegmentBits(rec.Uint("allbits"))}, nil
}

// Bytes encodes the segment.
func (s RleSegment) Bytes() []byte {
	out := make([]byte, RleSegmentSize)
	buf.PutU64LE(out, s.Start)
	buf.PutU32LE(out[8:], uint32(s.Bits))
	return out
}

func (s RleSegment) String() string {
	return fmt.Sprintf("start:%d index:%d run:%d null:%d",
		s.Start, s.Bits.DataIndex(), b2i(s.Bits.IsRun()), b2i(s.Bits.IsNull()))
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}
