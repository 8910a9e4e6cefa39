// Command opaquectl checks opaque chunk dumps for structural and
// consistency problems.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1 // structural violation, bad usage, broken pipe
	exitIOError = 2 // I/O failure or unexpected error
)

func main() {
	ignoreSIGPIPE()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and maps the outcome to an exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) (code int) {
	stdin, stdout, stderr = in, out, errOut
	writeErr = nil

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(errOut, "%s: unexpected error: %v\n%s", progName, r, debug.Stack())
			code = exitIOError
		}
	}()

	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return exitCode(cmd.Execute())
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitOK
	case isBrokenPipe(err):
		fmt.Fprintln(stderr, "Broken pipe")
		return exitFailure
	case errors.Is(err, errViolations):
		return exitFailure
	case errors.As(err, &ue):
		printError("%v\n", err)
		return exitFailure
	default:
		printError("%v\n", err)
		return exitIOError
	}
}
