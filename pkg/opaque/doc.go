/*
Package opaque provides a high-level API for checking opaque chunk dumps.

A dump is a sequence of chunks, each a fixed 32-byte header followed by an
optional chunk position and a body. Bodies of RLE-flagged chunks carry either
a run-length encoded payload or an empty bitmap. Scanning decodes every
header and payload, prints a dump of what it found and reports where the
sizes and counts declared by the payload disagree with the data.

# Quick Start

Scan a file and print the dump to standard output:

	res, err := opaque.ScanFile("chunks.dump", nil)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(res.GapBytes, "bytes unaccounted for")

# Several Streams

A Scanner keeps one configuration across streams:

	sc := opaque.NewScanner(&opaque.Options{Quiet: true, Digest: true})
	for _, path := range paths {
	    res, err := sc.ScanFile(path)
	    if errors.Is(err, opaque.ErrStructuralViolation) {
	        continue // the next stream may still be fine
	    }
	    if err != nil {
	        return err
	    }
	    fmt.Print(res.Report.FormatTextCompact())
	}

# Compressed Dumps

Inputs compressed with zstd, gzip, lz4 or s2 are recognized by their magic
and expanded before scanning. Set Options.Raw to scan the bytes as they are.

# Error Handling

A structural violation (bad chunk magic, unknown chunk flags) ends the stream
with an error wrapping ErrStructuralViolation; the partial Result is still
returned. Consistency problems are not errors: they are printed and recorded
in Result.Report. Any other error is an I/O failure.
*/
package opaque
