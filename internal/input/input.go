// Package input turns dump files and standard input into seekable, read-only
// byte streams for the walker. Regular files are memory-mapped; anything else
// is read into memory. Compressed dumps are expanded transparently.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/opaquekit/internal/mmfile"
)

// StdinName is the display name used for standard input.
const StdinName = "(stdin)"

// Options controls how sources are acquired.
type Options struct {
	// Raw disables compression sniffing; the bytes are walked as-is.
	Raw bool
}

// Source is an acquired input stream. Close releases whatever Open acquired;
// a Source built from a caller's reader never closes that reader.
type Source struct {
	Name        string
	Compression Compression

	data    []byte
	reader  *bytes.Reader
	release func() error
}

// Open acquires the file at path. The caller must Close the Source.
func Open(path string, opts Options) (*Source, error) {
	data, release, err := mmfile.Map(path)
	if errors.Is(err, mmfile.ErrNotRegular) {
		return openStream(path, opts)
	}
	if err != nil {
		return nil, err
	}

	src, err := newSource(path, data, release, opts)
	if err != nil {
		_ = release()
		return nil, err
	}
	return src, nil
}

// openStream reads a named pipe or device to the end.
func openStream(path string, opts Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return newSource(path, data, nil, opts)
}

// FromReader reads r to the end and wraps the bytes. r is left open.
func FromReader(name string, r io.Reader, opts Options) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return newSource(name, data, nil, opts)
}

func newSource(name string, data []byte, release func() error, opts Options) (*Source, error) {
	src := &Source{Name: name, release: release}
	if !opts.Raw {
		src.Compression = Sniff(data)
	}
	if src.Compression != CompressionNone {
		dec, err := GetDecompressor(src.Compression)
		if err != nil {
			return nil, err
		}
		expanded, err := dec.Decompress(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		// The compressed bytes are no longer needed.
		if release != nil {
			if err := release(); err != nil {
				return nil, err
			}
			src.release = nil
		}
		data = expanded
	}
	src.data = data
	src.reader = bytes.NewReader(data)
	return src, nil
}

// Reader returns the stream positioned wherever the last reader left it.
func (s *Source) Reader() io.ReadSeeker { return s.reader }

// Size returns the (decompressed) stream length.
func (s *Source) Size() int64 { return int64(len(s.data)) }

// Close releases the mapping, if any. It is safe to call more than once.
func (s *Source) Close() error {
	if s.release == nil {
		return nil
	}
	err := s.release()
	s.release = nil
	return err
}
