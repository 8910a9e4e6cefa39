package format

import (
	"errors"
	"strconv"

	"github.com/joshuapare/opaquekit/internal/buf"
)

// ChunkHeaderLayout is the opaque chunk header (OCH):
//
//	Offset  Size  Field
//	0x00    4     magic (0x5AC00E)
//	0x04    4     version
//	0x08    4     size of the chunk body that follows (excludes the position)
//	0x0C    4     signature
//	0x10    8     attribute id
//	0x18    1     compression method (signed)
//	0x19    1     flags (FlagArray or FlagRLE)
//	0x1A    1     number of dimensions
//	0x1B    5     padding
var ChunkHeaderLayout = MustLayout("OpaqueChunkHdr", RoundUp(27, StructAlignment), []Field{
	U32("magic").AsHex(),
	U32("version"),
	U32("size"),
	U32("sig").AsHex(),
	U64("attr"),
	I8("comp"),
	U8("flags").AsHex(),
	U8("ndims"),
	Pad(5),
}, WithMagic(ChunkHeaderMagic))

// ChunkHeader is a decoded OCH.
type ChunkHeader struct {
	Magic       uint32
	Version     uint32
	Size        uint32
	Signature   uint32
	AttrID      uint64
	Compression int8
	Flags       uint8
	NDims       uint8

	rec Record
}

// DecodeChunkHeader decodes b (ChunkHeaderSize bytes) and checks the flags.
// Both a bad magic and an unknown flag value yield a *StructuralError.
func DecodeChunkHeader(b []byte) (ChunkHeader, error) {
	rec, err := Decode(ChunkHeaderLayout, b)
	if err != nil {
		var me *MagicError
		if errors.As(err, &me) {
			return ChunkHeader{}, &StructuralError{
				Structure: "OpaqueChunkHeader",
				Field:     "magic",
				Value:     me.Actual,
			}
		}
		return ChunkHeader{}, err
	}

	h := ChunkHeader{
		Magic:       uint32(rec.Uint("magic")),
		Version:     uint32(rec.Uint("version")),
		Size:        uint32(rec.Uint("size")),
		Signature:   uint32(rec.Uint("sig")),
		AttrID:      rec.Uint("attr"),
		Compression: int8(rec.Int("comp")),
		Flags:       uint8(rec.Uint("flags")),
		NDims:       uint8(rec.Uint("ndims")),
		rec:         rec,
	}
	if h.Flags != FlagArray && h.Flags != FlagRLE {
		return ChunkHeader{}, &StructuralError{
			Structure: "OpaqueChunkHeader",
			Field:     "flags",
			Value:     uint64(h.Flags),
			Detail:    rec.Render(),
		}
	}
	return h, nil
}

// IsArray reports whether the chunk body is raw array data.
func (h ChunkHeader) IsArray() bool { return h.Flags == FlagArray }

// FlagLabel returns the label for the header's flags.
func (h ChunkHeader) FlagLabel() string { return FlagLabel(h.Flags) }

// PositionSize returns the number of bytes of chunk position that follow the
// header. Array chunks carry no position.
func (h ChunkHeader) PositionSize() int {
	if h.IsArray() {
		return 0
	}
	return int(h.NDims) * PositionEntrySize
}

// Record returns the generic record the header was decoded from.
func (h ChunkHeader) Record() Record { return h.rec }

func (h ChunkHeader) String() string { return h.rec.Render() }

// FlagLabel maps chunk flags to "array" or "rle"; other values render as hex.
func FlagLabel(flags uint8) string {
	switch flags {
	case FlagArray:
		return "array"
	case FlagRLE:
		return "rle"
	default:
		return "0x" + strconv.FormatUint(uint64(flags), 16)
	}
}

// DecodePosition decodes a chunk position of len(b)/8 signed coordinates.
func DecodePosition(b []byte) ([]int64, error) {
	if len(b)%PositionEntrySize != 0 {
		return nil, ErrTruncated
	}
	pos := make([]int64, len(b)/PositionEntrySize)
	for i := range pos {
		pos[i] = buf.I64LE(b[i*PositionEntrySize:])
	}
	return pos, nil
}
