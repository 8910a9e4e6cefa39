//go:build unix

package main

import (
	"errors"
	"os/signal"

	"golang.org/x/sys/unix"
)

// ignoreSIGPIPE turns writes to a closed pipe into EPIPE errors instead of
// killing the process.
func ignoreSIGPIPE() { signal.Ignore(unix.SIGPIPE) }

func isBrokenPipe(err error) bool { return errors.Is(err, unix.EPIPE) }
