// Package format houses low-level decoders for the opaque chunk dump format
// written by the array storage manager. The goal is to keep the parsing
// focused and independent from the stream walker so higher-level packages
// can orchestrate the structures in whatever order the file dictates.
//
// All structures are little-endian and fixed-size. Variable-length regions
// (chunk positions, segment tables, element data) are sized by fields of the
// fixed structures and read by the caller.
package format

const (
	// ChunkHeaderMagic identifies an opaque chunk header (OCH).
	ChunkHeaderMagic uint64 = 0x5AC00E

	// RleHeaderMagic identifies a run-length encoded payload header.
	RleHeaderMagic uint64 = 0xDDDDAAAA000EAAAC

	// EbmHeaderMagic identifies an empty bitmap payload header.
	EbmHeaderMagic uint64 = 0xEEEEAAAA00EEBAAC
)

const (
	// ChunkHeaderSize is the on-disk size of an OCH: 27 bytes of fields
	// padded to an 8-byte boundary.
	ChunkHeaderSize = 32

	// RleHeaderSize is the on-disk size of an RLE payload header: 41 bytes
	// of fields padded to an 8-byte boundary.
	RleHeaderSize = 48

	// RleSegmentSize is the size of one packed RLE segment (no padding).
	RleSegmentSize = 12

	// EbmHeaderSize is the on-disk size of an empty bitmap header.
	EbmHeaderSize = 24

	// EbmSegmentSize is the size of one empty bitmap segment.
	EbmSegmentSize = 24

	// PositionEntrySize is the size of one chunk coordinate.
	PositionEntrySize = 8

	// StructAlignment is the alignment the storage manager pads structures to.
	StructAlignment = 8
)

const (
	// FlagRLE marks a chunk whose body is an RLE or empty bitmap payload.
	FlagRLE uint8 = 2

	// FlagArray marks a chunk whose body is raw array-encoded bytes.
	FlagArray uint8 = 8
)

// RleSegment bit layout within the packed 32-bit word.
const (
	segDataIndexMask = 0x3FFFFFFF // bits 0..29
	segRunBit        = 1 << 30
	segNullBit       = 1 << 31
)

// RoundUp rounds x up to the next multiple of y.
func RoundUp(x, y int) int {
	return ((x + y - 1) / y) * y
}
