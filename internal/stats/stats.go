// Package stats computes the descriptive statistics printed for segment runs.
package stats

import (
	"fmt"
	"math"
	"strconv"

	"github.com/joshuapare/opaquekit/internal/buf"
)

// noData is printed in place of a statistic over an empty sample.
const noData = "(no data)"

// Summary describes a sample of integer observations.
type Summary struct {
	Count    int
	Sum      int64 // valid unless Overflow
	Overflow bool  // Sum left the int64 range
	Mean     float64
	Stdev    float64 // sample standard deviation; 0 when Count < 2
	first    int64
}

// Summarize computes count, sum, mean and sample standard deviation of xs.
func Summarize(xs []int64) Summary {
	s := Summary{Count: len(xs)}
	if len(xs) == 0 {
		return s
	}
	s.first = xs[0]

	var total float64
	for _, x := range xs {
		total += float64(x)
		if s.Overflow {
			continue
		}
		sum, ok := buf.AddOverflowSafe(s.Sum, x)
		if !ok {
			s.Overflow = true
			s.Sum = 0
			continue
		}
		s.Sum = sum
	}
	if s.Overflow {
		s.Mean = total / float64(len(xs))
	} else {
		s.Mean = float64(s.Sum) / float64(len(xs))
	}
	if len(xs) < 2 {
		return s
	}

	// Two-pass variance keeps precision for large, tightly clustered values.
	var ss float64
	for _, x := range xs {
		d := float64(x) - s.Mean
		ss += d * d
	}
	s.Stdev = math.Sqrt(ss / float64(len(xs)-1))
	return s
}

// MeanString renders the mean, or "(no data)" for an empty sample.
func (s Summary) MeanString() string {
	if s.Count == 0 {
		return noData
	}
	return formatFloat(s.Mean)
}

// StdevString renders the standard deviation. A single observation has none,
// so the datum itself is shown instead.
func (s Summary) StdevString() string {
	switch s.Count {
	case 0:
		return noData
	case 1:
		return fmt.Sprintf("(one datum: %d)", s.first)
	default:
		return formatFloat(s.Stdev)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
