package stats

import (
	"context"

	"survey-insights/internal/domain/question"
)

// Summaries describes every question of the dataset in display order.
func Summaries(ctx context.Context, ds *Dataset) ([]QuestionSummary, error) {
	qs := ds.Survey.OrderedQuestions()
	out := make([]QuestionSummary, 0, len(qs))
	for _, q := range qs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, summarize(q, ds.Responses))
	}
	return out, nil
}

func summarize(q question.Question, responses []Record) QuestionSummary {
	sum := QuestionSummary{QuestionID: q.ID, Text: q.Text, Type: q.Type}

	var values []question.Value
	for _, r := range responses {
		if v, ok := r.Answers[q.ID]; ok {
			values = append(values, v)
		}
	}
	sum.Answered = len(values)
	if len(responses) > 0 {
		sum.ResponseRate = float64(sum.Answered) / float64(len(responses)) * 100
	}

	switch q.Type {
	case question.TypeSingleChoice, question.TypeMultipleChoice:
		sum.Options, sum.MostCommon = optionCounts(configuredOptions(q), values)
	case question.TypeRating:
		sum.Rating = ratingStats(values)
	}
	return sum
}

func configuredOptions(q question.Question) []string {
	switch s := q.Settings.(type) {
	case question.SingleChoiceSettings:
		return s.Options
	case question.MultipleChoiceSettings:
		return s.Options
	}
	return nil
}

// optionCounts counts labels in first-seen order and appends configured
// options nobody picked. Percentages are relative to the answers given.
func optionCounts(configured []string, values []question.Value) ([]OptionCount, *string) {
	counts := map[string]int{}
	var order []string
	for _, v := range values {
		for _, l := range labels(v) {
			if _, ok := counts[l]; !ok {
				order = append(order, l)
			}
			counts[l]++
		}
	}

	var mostCommon *string
	best := 0
	for _, l := range order {
		if counts[l] > best {
			best = counts[l]
			label := l
			mostCommon = &label
		}
	}

	for _, opt := range configured {
		if _, ok := counts[opt]; !ok {
			counts[opt] = 0
			order = append(order, opt)
		}
	}

	out := make([]OptionCount, 0, len(order))
	for _, l := range order {
		oc := OptionCount{Option: l, Count: counts[l]}
		if len(values) > 0 {
			oc.Percentage = float64(counts[l]) / float64(len(values)) * 100
		}
		out = append(out, oc)
	}
	return out, mostCommon
}

func ratingStats(values []question.Value) *RatingStats {
	var xs []float64
	dist := map[string]int{}
	for _, v := range values {
		if x, ok := ratingOf(v); ok {
			xs = append(xs, x)
			dist[formatNumber(x)]++
		}
	}
	if len(xs) == 0 {
		return nil
	}
	lo, hi := minMax(xs)
	return &RatingStats{
		Average:      mean(xs),
		Min:          lo,
		Max:          hi,
		Count:        len(xs),
		StdDev:       stdDev(xs),
		Distribution: dist,
	}
}
