package walker

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/opaquekit/internal/format"
)

// excursion runs fn and then seeks r back to where it was before fn, on every
// exit path. Diagnostic decoding never moves the real cursor.
func excursion(r io.Seeker, fn func() error) (err error) {
	saved, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	defer func() {
		if _, serr := r.Seek(saved, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
	}()
	return fn()
}

// tell returns the current offset of r.
func tell(r io.Seeker) (int64, error) {
	return r.Seek(0, io.SeekCurrent)
}

// readFull reads exactly n bytes. At end of input it returns the bytes it
// got and an error wrapping format.ErrTruncated.
func readFull(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	got, err := io.ReadFull(r, b)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return b[:got], fmt.Errorf("need %d bytes, got %d: %w", n, got, format.ErrTruncated)
	}
	if err != nil {
		return b[:got], err
	}
	return b, nil
}
