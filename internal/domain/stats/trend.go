package stats

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Periods are the accepted bucket sizes for trends.
var Periods = []string{"day", "week", "month", "quarter"}

const maxWindow = 7

// bucketStart truncates t (in UTC) to the start of its period. Weeks start on Monday.
func bucketStart(t time.Time, period string) (time.Time, string, error) {
	t = t.UTC()
	y, m, d := t.Date()
	switch period {
	case "day":
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006-01-02"), nil
	case "week":
		offset := (int(t.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
		wy, wk := start.ISOWeek()
		return start, fmt.Sprintf("%d-W%02d", wy, wk), nil
	case "month":
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006-01"), nil
	case "quarter":
		q := (int(m) - 1) / 3
		start := time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, fmt.Sprintf("%d-Q%d", y, q+1), nil
	}
	return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}

// BuildTrend buckets responses by submission time. Only periods with at least one
// response produce a bucket.
func BuildTrend(ctx context.Context, ds *Dataset, period string) (Trend, error) {
	if _, _, err := bucketStart(time.Time{}, period); err != nil {
		return Trend{}, err
	}

	type acc struct {
		label       string
		count       int
		completions []float64
	}
	byStart := map[time.Time]*acc{}
	for _, r := range ds.Responses {
		start, label, _ := bucketStart(r.SubmittedAt, period)
		a, ok := byStart[start]
		if !ok {
			a = &acc{label: label}
			byStart[start] = a
		}
		a.count++
		if r.CompletionSeconds != nil {
			a.completions = append(a.completions, *r.CompletionSeconds)
		}
	}

	starts := make([]time.Time, 0, len(byStart))
	for s := range byStart {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	tr := Trend{Period: period, Buckets: make([]TrendBucket, 0, len(starts))}
	for _, s := range starts {
		if err := ctx.Err(); err != nil {
			return Trend{}, err
		}
		a := byStart[s]
		b := TrendBucket{Label: a.label, Start: s, Count: a.count}
		if len(a.completions) > 0 {
			avg := mean(a.completions)
			b.AvgCompletion = &avg
		}
		tr.Buckets = append(tr.Buckets, b)
	}

	fillSeries(tr.Buckets)
	tr.Summary = summarizeTrend(tr.Buckets)
	return tr, nil
}

// fillSeries sets moving averages and growth rates on ordered buckets.
func fillSeries(buckets []TrendBucket) {
	window := min(maxWindow, len(buckets))
	counts := make([]*float64, len(buckets))
	completions := make([]*float64, len(buckets))
	for i := range buckets {
		c := float64(buckets[i].Count)
		counts[i] = &c
		completions[i] = buckets[i].AvgCompletion
	}
	maCount := movingAverage(counts, window)
	maCompletion := movingAverage(completions, window)

	for i := range buckets {
		buckets[i].MovingAvgCount = maCount[i]
		buckets[i].MovingAvgCompletion = maCompletion[i]
		if i > 0 && buckets[i-1].Count > 0 {
			prev := float64(buckets[i-1].Count)
			buckets[i].GrowthRate = (float64(buckets[i].Count) - prev) / prev * 100
		}
	}
}

func summarizeTrend(buckets []TrendBucket) TrendSummary {
	var sum TrendSummary
	if len(buckets) == 0 {
		return sum
	}

	counts := make([]float64, len(buckets))
	var growth, completions []float64
	for i, b := range buckets {
		counts[i] = float64(b.Count)
		sum.TotalResponses += b.Count
		if i > 0 {
			growth = append(growth, b.GrowthRate)
		}
		if b.AvgCompletion != nil {
			completions = append(completions, *b.AvgCompletion)
		}
	}
	lo, hi := minMax(counts)
	sum.MeanCount = mean(counts)
	sum.MinCount, sum.MaxCount = int(lo), int(hi)
	sum.StdCount = stdDev(counts)
	sum.MeanGrowthRate = mean(growth)

	if len(completions) > 0 {
		m, s := mean(completions), stdDev(completions)
		clo, chi := minMax(completions)
		sum.MeanCompletion, sum.StdCompletion = &m, &s
		sum.MinCompletion, sum.MaxCompletion = &clo, &chi
	}
	return sum
}
