package input

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

// payload starts like a chunk header so sniffing must leave it alone.
var payload = append([]byte{0x0e, 0xc0, 0x5a, 0x00}, bytes.Repeat([]byte("opaque"), 64)...)

func compressZstd(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := gzip.NewWriter(&b)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := lz4.NewWriter(&b)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

func compressS2(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := s2.NewWriter(&b)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

func TestSniff(t *testing.T) {
	require.Equal(t, CompressionNone, Sniff(payload))
	require.Equal(t, CompressionNone, Sniff(nil))
	require.Equal(t, CompressionZstd, Sniff(compressZstd(t, payload)))
	require.Equal(t, CompressionGzip, Sniff(compressGzip(t, payload)))
	require.Equal(t, CompressionLZ4, Sniff(compressLZ4(t, payload)))
	require.Equal(t, CompressionS2, Sniff(compressS2(t, payload)))
	require.Equal(t, CompressionS2, Sniff(append([]byte("\xff\x06\x00\x00sNaPpY"), 0)))
}

func TestFromReader_Decompresses(t *testing.T) {
	tests := []struct {
		name     string
		compress func(*testing.T, []byte) []byte
		want     Compression
	}{
		{"zstd", compressZstd, CompressionZstd},
		{"gzip", compressGzip, CompressionGzip},
		{"lz4", compressLZ4, CompressionLZ4},
		{"s2", compressS2, CompressionS2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := FromReader(StdinName, bytes.NewReader(tt.compress(t, payload)), Options{})
			require.NoError(t, err)
			defer src.Close()

			require.Equal(t, tt.want, src.Compression)
			require.Equal(t, int64(len(payload)), src.Size())
			got, err := io.ReadAll(src.Reader())
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

func TestFromReader_Raw(t *testing.T) {
	compressed := compressZstd(t, payload)
	src, err := FromReader("x", bytes.NewReader(compressed), Options{Raw: true})
	require.NoError(t, err)
	require.Equal(t, CompressionNone, src.Compression)
	require.Equal(t, int64(len(compressed)), src.Size())
}

func TestFromReader_CorruptCompressed(t *testing.T) {
	bad := append([]byte{0x28, 0xB5, 0x2F, 0xFD}, 0xde, 0xad)
	_, err := FromReader("bad", bytes.NewReader(bad), Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestFromReader_LeavesReaderOpen(t *testing.T) {
	rc := &closeTracker{Reader: bytes.NewReader(payload)}
	src, err := FromReader(StdinName, rc, Options{})
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.False(t, rc.closed)
}

func TestOpen_RegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.opaque")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	src, err := Open(path, Options{})
	require.NoError(t, err)
	require.Equal(t, path, src.Name)

	got, err := io.ReadAll(src.Reader())
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestOpen_CompressedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.opaque.gz")
	require.NoError(t, os.WriteFile(path, compressGzip(t, payload), 0o644))

	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, CompressionGzip, src.Compression)
	require.Equal(t, int64(len(payload)), src.Size())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetDecompressor_Unsupported(t *testing.T) {
	_, err := GetDecompressor(CompressionNone)
	require.Error(t, err)
	require.Equal(t, "unknown", Compression(99).String())
}
