package stats

import (
	"math"
	"slices"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return slices.Min(xs), slices.Max(xs)
}

// percentile interpolates linearly between the closest ranks of sorted, p in [0,100].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// pearson returns nil when fewer than two pairs exist or either side is constant.
func pearson(xs, ys []float64) *float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return nil
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return nil
	}
	r := sxy / math.Sqrt(sxx*syy)
	r = math.Max(-1, math.Min(1, r))
	return &r
}

// movingAverage is a trailing sliding-window mean. Positions with less than a
// full window of history are nil; nil inputs are skipped inside a window and
// a window with no values yields nil.
func movingAverage(xs []*float64, window int) []*float64 {
	out := make([]*float64, len(xs))
	if window <= 0 {
		return out
	}
	var (
		sum float64
		n   int
	)
	for i, x := range xs {
		if x != nil {
			sum += *x
			n++
		}
		if i >= window {
			if old := xs[i-window]; old != nil {
				sum -= *old
				n--
			}
		}
		if i >= window-1 && n > 0 {
			v := sum / float64(n)
			out[i] = &v
		}
	}
	return out
}
