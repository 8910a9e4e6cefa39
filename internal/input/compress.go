package input

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the container a dump was stored in.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionGzip
	CompressionLZ4
	CompressionS2 // S2 or Snappy framed stream
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionGzip:
		return "gzip"
	case CompressionLZ4:
		return "lz4"
	case CompressionS2:
		return "s2"
	default:
		return "unknown"
	}
}

var (
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic   = []byte{0x1F, 0x8B}
	lz4Magic    = []byte{0x04, 0x22, 0x4D, 0x18}
	s2Magic     = []byte("\xff\x06\x00\x00S2sTwO")
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// Sniff identifies the compression container from the leading bytes of data.
// The chunk header magic (0E C0 5A 00) never collides with these.
func Sniff(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(data, s2Magic), bytes.HasPrefix(data, snappyMagic):
		return CompressionS2
	default:
		return CompressionNone
	}
}

// Decompressor expands a whole compressed dump.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

type zstdDecompressor struct{}

func (zstdDecompressor) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}

type gzipDecompressor struct{}

func (gzipDecompressor) Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}
	return out, nil
}

type lz4Decompressor struct{}

func (lz4Decompressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	return out, nil
}

type s2Decompressor struct{}

func (s2Decompressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(s2.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	return out, nil
}

var builtinDecompressors = map[Compression]Decompressor{
	CompressionZstd: zstdDecompressor{},
	CompressionGzip: gzipDecompressor{},
	CompressionLZ4:  lz4Decompressor{},
	CompressionS2:   s2Decompressor{},
}

// GetDecompressor retrieves the built-in Decompressor for c.
func GetDecompressor(c Compression) (Decompressor, error) {
	if d, ok := builtinDecompressors[c]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unsupported compression type: %s", c)
}
