package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/opaquekit/internal/format"
)

// arrayChunk returns an array chunk header followed by size body bytes.
func arrayChunk(t *testing.T, size uint32) []byte {
	t.Helper()
	return chunk(t, format.ChunkHeaderMagic, size, format.FlagArray, bytes.Repeat([]byte{0x33}, int(size)))
}

// ebmChunk returns an RLE-flagged chunk holding an empty bitmap whose single
// segment covers length of nelems declared cells.
func ebmChunk(t *testing.T, nelems uint64, length int64) []byte {
	t.Helper()
	hdr, err := format.EbmHeaderLayout.Pack(format.EbmHeaderMagic, 1, nelems)
	if err != nil {
		t.Fatalf("pack EBM header: %v", err)
	}
	seg, err := format.EbmSegmentLayout.Pack(0, uint64(length), 0)
	if err != nil {
		t.Fatalf("pack EBM segment: %v", err)
	}
	body := append(hdr, seg...)

	raw, err := format.ChunkHeaderLayout.Pack(format.ChunkHeaderMagic, 1, uint64(len(body)), 0, 0, 0, uint64(format.FlagRLE), 1)
	if err != nil {
		t.Fatalf("pack chunk header: %v", err)
	}
	raw = append(raw, make([]byte, format.PositionEntrySize)...)
	return append(raw, body...)
}

// badFlagsChunk returns a chunk header with flags the format does not allow.
func badFlagsChunk(t *testing.T) []byte {
	t.Helper()
	return chunk(t, format.ChunkHeaderMagic, 0, 0x7, nil)
}

func chunk(t *testing.T, magic uint64, size uint32, flags uint8, body []byte) []byte {
	t.Helper()
	raw, err := format.ChunkHeaderLayout.Pack(magic, 1, uint64(size), 0, 0, 0, uint64(flags), 0)
	if err != nil {
		t.Fatalf("pack chunk header: %v", err)
	}
	return append(raw, body...)
}

// writeDump writes data to a file in a temporary directory.
func writeDump(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}
	return path
}

// runCLI runs the command line with the given stdin and captures both outputs.
func runCLI(t *testing.T, stdinData []byte, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, bytes.NewReader(stdinData), &out, &errOut)
	return out.String(), errOut.String(), code
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
