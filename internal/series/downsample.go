package series

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinPoints is the smallest usable downsampling budget: the two endpoints
// plus one interior bucket. Configuration should reject anything smaller
// (see config.Validate); Downsample itself clamps rather than misindex.
const MinPoints = 3

// DefaultMaxPoints bounds rendered series when no override is configured.
const DefaultMaxPoints = 2000

// Downsample reduces an equal-length (times, values) pair to at most
// maxPoints samples while keeping visually significant excursions.
//
// When len(values) <= maxPoints both inputs are returned unchanged. Otherwise
// the first and last samples are always kept and the interior index range is
// split into maxPoints-2 contiguous buckets; each bucket contributes the one
// sample with the greatest absolute deviation from the bucket mean, so spikes
// and transients survive where uniform decimation would erase them. The
// result is a strict subsequence of the input with exactly maxPoints samples.
func Downsample(times, values []float64, maxPoints int) ([]float64, []float64) {
	if maxPoints < MinPoints {
		maxPoints = MinPoints
	}
	n := len(values)
	if n <= maxPoints || n != len(times) {
		return times, values
	}

	step := float64(n) / float64(maxPoints)
	indices := make([]int, 0, maxPoints)
	indices = append(indices, 0)
	for i := 1; i < maxPoints-1; i++ {
		start := int(float64(i) * step)
		end := int(float64(i+1) * step)
		if end > n {
			end = n
		}
		if start >= end {
			// Bucket collapsed to nothing; keep its start index so the
			// output budget is still met.
			indices = append(indices, start)
			continue
		}
		bucket := values[start:end]
		mean := stat.Mean(bucket, nil)
		best := 0
		bestDev := math.Abs(bucket[0] - mean)
		for j := 1; j < len(bucket); j++ {
			if dev := math.Abs(bucket[j] - mean); dev > bestDev {
				bestDev = dev
				best = j
			}
		}
		indices = append(indices, start+best)
	}
	indices = append(indices, n-1)

	ts := make([]float64, len(indices))
	vs := make([]float64, len(indices))
	for i, idx := range indices {
		ts[i] = times[idx]
		vs[i] = values[idx]
	}
	return ts, vs
}
