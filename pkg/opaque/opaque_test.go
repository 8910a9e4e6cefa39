package opaque_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/joshuapare/opaquekit/internal/format"
	"github.com/joshuapare/opaquekit/pkg/opaque"
)

// arrayChunk returns an array chunk header followed by size body bytes.
func arrayChunk(t *testing.T, size uint32) []byte {
	t.Helper()
	raw, err := format.ChunkHeaderLayout.Pack(format.ChunkHeaderMagic, 1, uint64(size), 0, 0, 0, uint64(format.FlagArray), 0)
	if err != nil {
		t.Fatalf("pack chunk header: %v", err)
	}
	return append(raw, bytes.Repeat([]byte{0x5A}, int(size))...)
}

func badChunk(t *testing.T) []byte {
	t.Helper()
	raw, err := format.ChunkHeaderLayout.Pack(format.ChunkHeaderMagic, 1, 0, 0, 0, 0, 3, 0)
	if err != nil {
		t.Fatalf("pack chunk header: %v", err)
	}
	return raw
}

func writeDump(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunks.dump")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	return path
}

// TestScanFile scans a two-chunk dump from disk.
func TestScanFile(t *testing.T) {
	data := append(arrayChunk(t, 8), arrayChunk(t, 4)...)
	path := writeDump(t, data)

	var stdout, stderr bytes.Buffer
	res, err := opaque.ScanFile(path, &opaque.Options{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("ScanFile failed: %v", err)
	}
	if res.Outcome != opaque.OutcomeDone {
		t.Errorf("Outcome = %v, want done", res.Outcome)
	}
	if res.Chunks != 2 || res.ArrayChunks != 2 {
		t.Errorf("Chunks = %d (array %d), want 2 (array 2)", res.Chunks, res.ArrayChunks)
	}
	if !strings.Contains(stdout.String(), "== Chunk at "+path+":40\n") {
		t.Errorf("second chunk missing from dump:\n%s", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected diagnostics: %s", stderr.String())
	}
}

// TestScanFile_Missing reports an open failure as a plain error.
func TestScanFile_Missing(t *testing.T) {
	_, err := opaque.ScanFile(filepath.Join(t.TempDir(), "nope"), &opaque.Options{Stdout: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, opaque.ErrStructuralViolation) {
		t.Errorf("missing file reported as structural violation: %v", err)
	}
}

// TestScanReader_Compressed scans a zstd-compressed dump.
func TestScanReader_Compressed(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	compressed := enc.EncodeAll(arrayChunk(t, 16), nil)
	enc.Close()

	var stdout bytes.Buffer
	res, err := opaque.ScanReader(opaque.StdinName, bytes.NewReader(compressed), &opaque.Options{Stdout: &stdout})
	if err != nil {
		t.Fatalf("ScanReader failed: %v", err)
	}
	if res.Chunks != 1 {
		t.Errorf("Chunks = %d, want 1", res.Chunks)
	}
	if !strings.Contains(stdout.String(), "== Chunk at (stdin):0\n") {
		t.Errorf("unexpected dump:\n%s", stdout.String())
	}

	// Raw mode walks the compressed bytes, which are no chunk header.
	stdout.Reset()
	res, err = opaque.ScanReader(opaque.StdinName, bytes.NewReader(compressed),
		&opaque.Options{Stdout: &stdout, Stderr: &bytes.Buffer{}, Raw: true})
	if err != nil && !errors.Is(err, opaque.ErrStructuralViolation) {
		t.Fatalf("raw scan error = %v", err)
	}
	if res.Chunks != 0 || res.Outcome == opaque.OutcomeDone {
		t.Errorf("raw scan = %v/%d chunks, want no chunks", res.Outcome, res.Chunks)
	}
}

// TestScanner_ContinuesAfterViolation scans a bad stream and then a good one.
func TestScanner_ContinuesAfterViolation(t *testing.T) {
	var stdout bytes.Buffer
	sc := opaque.NewScanner(&opaque.Options{Stdout: &stdout, Stderr: &bytes.Buffer{}, Quiet: true})

	res, err := sc.ScanReader("bad", bytes.NewReader(badChunk(t)))
	if !errors.Is(err, opaque.ErrStructuralViolation) {
		t.Fatalf("err = %v, want structural violation", err)
	}
	if res == nil || res.Outcome != opaque.OutcomeFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if !res.Report.HasCriticalIssues() {
		t.Error("violation missing from report")
	}

	res, err = sc.ScanReader("good", bytes.NewReader(arrayChunk(t, 0)))
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if res.Outcome != opaque.OutcomeDone || res.Chunks != 1 {
		t.Errorf("second scan = %v/%d chunks", res.Outcome, res.Chunks)
	}
	if stdout.Len() != 0 {
		t.Errorf("quiet scan printed:\n%s", stdout.String())
	}
}

// TestScanReader_NilOptions falls back to the process streams.
func TestScanReader_NilOptions(t *testing.T) {
	res, err := opaque.ScanReader("empty", bytes.NewReader(nil), nil)
	if err != nil {
		t.Fatalf("ScanReader failed: %v", err)
	}
	if res.Chunks != 0 || res.Outcome != opaque.OutcomeDone {
		t.Errorf("empty stream = %v/%d chunks", res.Outcome, res.Chunks)
	}
}

// TestScanReader_ReportsOpenedStream names the sniffed compression at -v.
func TestScanReader_ReportsOpenedStream(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	compressed := enc.EncodeAll(arrayChunk(t, 16), nil)
	enc.Close()

	var stderr bytes.Buffer
	opts := &opaque.Options{
		Stdout:    &bytes.Buffer{},
		Stderr:    &stderr,
		Program:   "scan:",
		Verbosity: opaque.VerbosityProgress,
	}
	if _, err := opaque.ScanReader("dump.zst", bytes.NewReader(compressed), opts); err != nil {
		t.Fatalf("ScanReader failed: %v", err)
	}
	want := "scan: Opened dump.zst: 48 bytes, compression zstd\n"
	if !strings.Contains(stderr.String(), want) {
		t.Errorf("stderr missing %q:\n%s", want, stderr.String())
	}

	// Nothing at the default verbosity.
	stderr.Reset()
	opts.Verbosity = 0
	if _, err := opaque.ScanReader("dump.zst", bytes.NewReader(compressed), opts); err != nil {
		t.Fatalf("ScanReader failed: %v", err)
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr at default verbosity: %s", stderr.String())
	}
}
