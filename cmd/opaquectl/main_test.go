//go:build unix

package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

// pipeWriter fails every write the way a closed pipe does.
type pipeWriter struct{}

func (pipeWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("write /dev/stdout: %w", unix.EPIPE)
}

func TestBrokenPipe(t *testing.T) {
	path := writeDump(t, "chunks.dump", arrayChunk(t, 4))

	var errOut bytes.Buffer
	code := run([]string{path}, bytes.NewReader(nil), pipeWriter{}, &errOut)

	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
	if errOut.String() != "Broken pipe\n" {
		t.Errorf("stderr = %q, want %q", errOut.String(), "Broken pipe\n")
	}
}

// summaryPipe accepts the scan output and fails once the run summary is written.
type summaryPipe struct{ bytes.Buffer }

func (p *summaryPipe) Write(b []byte) (int, error) {
	if bytes.Contains(b, []byte("Scanned ")) {
		return 0, fmt.Errorf("write /dev/stdout: %w", unix.EPIPE)
	}
	return p.Buffer.Write(b)
}

func TestBrokenPipeOnSummary(t *testing.T) {
	first := writeDump(t, "first.dump", arrayChunk(t, 4))
	second := writeDump(t, "second.dump", arrayChunk(t, 8))

	var out summaryPipe
	var errOut bytes.Buffer
	code := run([]string{first, second}, bytes.NewReader(nil), &out, &errOut)

	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
	if !strings.HasSuffix(errOut.String(), "Broken pipe\n") {
		t.Errorf("stderr = %q, want Broken pipe", errOut.String())
	}
	if !strings.Contains(out.String(), "== Chunk at ") {
		t.Errorf("scan output missing before the summary:\n%s", out.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"violations", fmt.Errorf("2 stream(s) abandoned: %w", errViolations), exitFailure},
		{"usage", &usageError{err: fmt.Errorf("bad flag")}, exitFailure},
		{"broken pipe", fmt.Errorf("write: %w", unix.EPIPE), exitFailure},
		{"io", fmt.Errorf("read chunks.dump: %w", unix.EIO), exitIOError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr = &bytes.Buffer{}
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
