package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/opaquekit/internal/logger"
	"github.com/joshuapare/opaquekit/pkg/opaque"
)

const progName = "opaquectl"

var (
	// Global flags
	verbose    int
	quiet      bool
	digest     bool
	raw        bool
	reportMode string
	logEnabled bool
	logDir     string

	// Streams, replaced by run.
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// errViolations marks a run in which at least one stream was abandoned. The
// individual violations have already been printed.
var errViolations = errors.New("structural violations found")

// usageError is a bad flag or flag value.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   progName + " [flags] [file ...]",
		Short: "Check opaque chunk dumps",
		Long: `opaquectl walks opaque chunk dumps chunk by chunk. It decodes every chunk
header and every RLE or empty bitmap payload, prints what it found and
reports where declared sizes and counts disagree with the data.

With no file, or when file is -, standard input is read. Dumps compressed
with zstd, gzip, lz4 or s2 are expanded first unless --raw is given.

Example:
  opaquectl chunks.dump
  opaquectl -q --report compact a.dump b.dump
  zstdcat chunks.dump.zst | opaquectl -vv -`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args)
		},
	}
	cmd.SetVersionTemplate(versionTemplate())
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	// Global flags
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "Debug output on stderr (repeat for more)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the chunk dump; problems and warnings still print")
	cmd.Flags().BoolVar(&digest, "digest", false, "Hash every chunk body and count duplicate bodies")
	cmd.Flags().BoolVar(&raw, "raw", false, "Do not decompress compressed inputs")
	cmd.Flags().StringVar(&reportMode, "report", "none", "Diagnostics report after each stream (none, text, compact, json)")
	cmd.Flags().BoolVar(&logEnabled, "log", false, "Keep a JSON run log")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for the run log (default ~/.opaquectl/logs)")
	return cmd
}

func runScan(args []string) error {
	switch reportMode {
	case "none", "text", "compact", "json":
	default:
		return &usageError{err: fmt.Errorf("unknown report format: %s (must be none, text, compact, or json)", reportMode)}
	}
	if verbose > opaque.VerbosityRaw {
		verbose = opaque.VerbosityRaw
	}
	if len(args) == 0 {
		args = []string{"-"}
	}

	// Diagnostics are logged at debug level, one record each.
	closeLog, err := logger.Init(logger.Options{
		Enabled: logEnabled || logDir != "",
		LogDir:  logDir,
		Level:   slog.LevelDebug,
	})
	if err != nil {
		return &usageError{err: fmt.Errorf("run log: %w", err)}
	}
	defer closeLog()
	logger.Info("scan started", "streams", len(args), "digest", digest, "raw", raw)

	sc := opaque.NewScanner(&opaque.Options{
		Stdout:    stdout,
		Stderr:    stderr,
		Program:   progName + ":",
		Verbosity: verbose,
		Quiet:     quiet,
		Digest:    digest,
		Raw:       raw,
	})

	violations := 0
	for _, path := range args {
		printVerbose("Scanning %s\n", path)

		var (
			res *opaque.Result
			err error
		)
		if path == "-" {
			res, err = sc.ScanReader(opaque.StdinName, stdin)
		} else {
			res, err = sc.ScanFile(path)
		}
		switch {
		case errors.Is(err, opaque.ErrStructuralViolation):
			logger.Error("stream abandoned", "stream", path, "error", err)
			printError("%v\n", err)
			violations++
		case err != nil:
			logger.Error("scan failed", "stream", path, "error", err)
			return err
		}
		logResult(res)

		if err := printReport(res); err != nil {
			return err
		}
	}

	if len(args) > 1 {
		printInfo("Scanned %d streams, %d abandoned\n", len(args), violations)
	}
	if writeErr != nil {
		return writeErr
	}
	if violations > 0 {
		return fmt.Errorf("%d stream(s) abandoned: %w", violations, errViolations)
	}
	return nil
}

func logResult(res *opaque.Result) {
	if res.Outcome == opaque.OutcomeAborted {
		logger.Warn("stream truncated", "stream", res.Name, "chunks", res.Chunks)
	}
	logger.Info("stream scanned",
		"stream", res.Name,
		"outcome", res.Outcome.String(),
		"chunks", res.Chunks,
		"rle", res.RLEChunks,
		"ebm", res.EBMChunks,
		"unrecognized", res.UnrecognizedChunks,
		"gap_bytes", res.GapBytes,
		"critical", res.Report.Summary.Critical,
		"errors", res.Report.Summary.Errors,
		"warnings", res.Report.Summary.Warnings,
	)
	for _, d := range res.Report.Diagnostics {
		logger.Debug("diagnostic",
			"stream", res.Name,
			"severity", d.Severity.String(),
			"structure", d.Structure,
			"offset", d.Offset,
			"issue", d.Issue,
		)
	}
}

// printReport renders the collected diagnostics in the selected format.
func printReport(res *opaque.Result) error {
	var out string
	switch reportMode {
	case "text":
		out = res.Report.FormatText()
	case "compact":
		out = res.Report.FormatTextCompact()
	case "json":
		s, err := res.Report.FormatJSON()
		if err != nil {
			return err
		}
		out = s + "\n"
	default:
		return nil
	}
	_, err := io.WriteString(stdout, out)
	return err
}

// Helper functions for output. The first failed write is kept in writeErr and
// returned when the scan finishes; later writes still go out.

var writeErr error

func write(w io.Writer, format string, args ...interface{}) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil && writeErr == nil {
		writeErr = err
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		write(stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	write(stderr, progName+": "+format, args...)
}

// printVerbose prints a debug message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose > 0 {
		write(stderr, progName+": "+format, args...)
	}
}
