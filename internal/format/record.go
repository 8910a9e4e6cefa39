package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/opaquekit/internal/buf"
)

// Kind is the binary encoding of one field.
type Kind uint8

const (
	KindU8 Kind = iota + 1
	KindI8
	KindU32
	KindU64
	KindI64
	KindPad
)

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindI8:
		return "i8"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindPad:
		return "pad"
	default:
		return "unknown"
	}
}

// renderWidth is the column limit for Record.Render.
const renderWidth = 70

// Field describes one field of a fixed layout.
type Field struct {
	Name string
	Kind Kind
	Hex  bool // render as 0x... instead of decimal
	pad  int  // byte count, KindPad only
}

// U8 returns an unsigned byte field.
func U8(name string) Field { return Field{Name: name, Kind: KindU8} }

// I8 returns a signed byte field.
func I8(name string) Field { return Field{Name: name, Kind: KindI8} }

// U32 returns an unsigned 32-bit field.
func U32(name string) Field { return Field{Name: name, Kind: KindU32} }

// U64 returns an unsigned 64-bit field.
func U64(name string) Field { return Field{Name: name, Kind: KindU64} }

// I64 returns a signed 64-bit field.
func I64(name string) Field { return Field{Name: name, Kind: KindI64} }

// Pad returns n bytes of ignored padding.
func Pad(n int) Field { return Field{Kind: KindPad, pad: n} }

// AsHex marks the field for hexadecimal rendering.
func (f Field) AsHex() Field {
	f.Hex = true
	return f
}

// Width returns the encoded size of the field in bytes.
func (f Field) Width() int {
	switch f.Kind {
	case KindU8, KindI8:
		return 1
	case KindU32:
		return 4
	case KindU64, KindI64:
		return 8
	case KindPad:
		return f.pad
	default:
		return 0
	}
}

func (f Field) signed() bool { return f.Kind == KindI8 || f.Kind == KindI64 }

// Layout is an immutable fixed-size record schema.
type Layout struct {
	name     string
	fields   []Field
	size     int
	index    map[string]int
	magic    uint64
	hasMagic bool
}

// LayoutOption customizes a Layout at construction time.
type LayoutOption func(*Layout)

// WithMagic requires the field named "magic" to hold v after decoding.
func WithMagic(v uint64) LayoutOption {
	return func(l *Layout) {
		l.magic = v
		l.hasMagic = true
	}
}

// NewLayout builds a layout and checks that its fields fill exactly size bytes.
func NewLayout(name string, size int, fields []Field, opts ...LayoutOption) (*Layout, error) {
	l := &Layout{
		name:   name,
		fields: append([]Field(nil), fields...),
		size:   size,
		index:  make(map[string]int, len(fields)),
	}
	for _, opt := range opts {
		opt(l)
	}

	computed := 0
	for i, f := range l.fields {
		w := f.Width()
		if w <= 0 {
			return nil, &LayoutError{Layout: name, Reason: fmt.Sprintf("field %d has no width", i)}
		}
		computed += w
		if f.Kind == KindPad {
			continue
		}
		if f.Name == "" {
			return nil, &LayoutError{Layout: name, Reason: fmt.Sprintf("field %d has no name", i)}
		}
		if _, dup := l.index[f.Name]; dup {
			return nil, &LayoutError{Layout: name, Reason: fmt.Sprintf("duplicate field %q", f.Name)}
		}
		l.index[f.Name] = i
	}
	if computed != size {
		return nil, &LayoutError{Layout: name, Declared: size, Computed: computed}
	}
	if l.hasMagic {
		if _, ok := l.index["magic"]; !ok {
			return nil, &LayoutError{Layout: name, Reason: "magic required but no magic field"}
		}
	}
	return l, nil
}

// MustLayout is like NewLayout but panics on error. It is meant for the
// package-level layouts, where a mismatch is a programming error.
func MustLayout(name string, size int, fields []Field, opts ...LayoutOption) *Layout {
	l, err := NewLayout(name, size, fields, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Name returns the layout's type name.
func (l *Layout) Name() string { return l.name }

// Size returns the encoded size in bytes.
func (l *Layout) Size() int { return l.size }

// Magic returns the required magic and whether one is required.
func (l *Layout) Magic() (uint64, bool) { return l.magic, l.hasMagic }

// Decode applies l to b, which must be exactly l.Size() bytes long.
// A magic mismatch returns a *MagicError.
func Decode(l *Layout, b []byte) (Record, error) {
	if len(b) != l.size {
		return Record{}, fmt.Errorf("%s: got %d bytes, want %d: %w", l.name, len(b), l.size, ErrTruncated)
	}

	vals := make([]uint64, len(l.fields))
	off := 0
	for i, f := range l.fields {
		w := f.Width()
		p := b[off : off+w]
		switch f.Kind {
		case KindU8:
			vals[i] = uint64(buf.U8(p))
		case KindI8:
			vals[i] = uint64(int64(buf.I8(p)))
		case KindU32:
			vals[i] = uint64(buf.U32LE(p))
		case KindU64:
			vals[i] = buf.U64LE(p)
		case KindI64:
			vals[i] = uint64(buf.I64LE(p))
		}
		off += w
	}

	rec := Record{layout: l, vals: vals}
	if l.hasMagic {
		if got := rec.Uint("magic"); got != l.magic {
			return Record{}, &MagicError{Layout: l.name, Expected: l.magic, Actual: got}
		}
	}
	return rec, nil
}

// Pack encodes values, one per non-padding field in layout order.
func (l *Layout) Pack(values ...uint64) ([]byte, error) {
	want := len(l.index)
	if len(values) != want {
		return nil, fmt.Errorf("%s: got %d values, want %d", l.name, len(values), want)
	}

	out := make([]byte, l.size)
	off, vi := 0, 0
	for _, f := range l.fields {
		w := f.Width()
		if f.Kind != KindPad {
			v := values[vi]
			vi++
			p := out[off : off+w]
			switch f.Kind {
			case KindU8, KindI8:
				p[0] = byte(v)
			case KindU32:
				buf.PutU32LE(p, uint32(v))
			case KindU64, KindI64:
				buf.PutU64LE(p, v)
			}
		}
		off += w
	}
	return out, nil
}

// Record is the decoded value of one Layout over one buffer.
type Record struct {
	layout *Layout
	vals   []uint64 // aligned with layout.fields; signed kinds sign-extended
}

// Layout returns the layout the record was decoded with.
func (r Record) Layout() *Layout { return r.layout }

// Has reports whether the record has a field called name.
func (r Record) Has(name string) bool {
	if r.layout == nil {
		return false
	}
	_, ok := r.layout.index[name]
	return ok
}

// Uint returns the raw value of field name, or 0 when there is no such field.
func (r Record) Uint(name string) uint64 {
	if r.layout == nil {
		return 0
	}
	i, ok := r.layout.index[name]
	if !ok {
		return 0
	}
	return r.vals[i]
}

// Int returns field name as a signed value.
func (r Record) Int(name string) int64 { return int64(r.Uint(name)) }

// Render formats every field as name:value, wrapped to renderWidth columns.
func (r Record) Render() string {
	if r.layout == nil {
		return ""
	}
	words := make([]string, 0, len(r.layout.index))
	for i, f := range r.layout.fields {
		if f.Kind == KindPad {
			continue
		}
		words = append(words, f.Name+":"+formatValue(f, r.vals[i]))
	}
	return wrapWords(words, renderWidth)
}

func (r Record) String() string { return r.Render() }

func formatValue(f Field, v uint64) string {
	switch {
	case f.Hex && f.signed() && int64(v) < 0:
		return "-0x" + strconv.FormatUint(uint64(-int64(v)), 16)
	case f.Hex:
		return "0x" + strconv.FormatUint(v, 16)
	case f.signed():
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatUint(v, 10)
	}
}

// wrapWords joins words with single spaces, breaking lines before width is exceeded.
// A word longer than width gets a line of its own.
func wrapWords(words []string, width int) string {
	var b strings.Builder
	lineLen := 0
	for _, w := range words {
		switch {
		case lineLen == 0:
		case lineLen+1+len(w) > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}
