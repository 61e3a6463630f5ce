package stats

import (
	"context"
	"fmt"

	"survey-insights/internal/domain/question"
)

// correlatable are the question types included in the all-pairs pass.
var correlatable = map[question.Type]bool{
	question.TypeRating:         true,
	question.TypeSingleChoice:   true,
	question.TypeMultipleChoice: true,
}

type pair struct {
	a, b question.Value
}

// commonAnswers returns the answer pairs of respondents who answered both questions.
func commonAnswers(responses []Record, q1, q2 int64) []pair {
	var out []pair
	for _, r := range responses {
		a, ok1 := r.Answers[q1]
		b, ok2 := r.Answers[q2]
		if ok1 && ok2 {
			out = append(out, pair{a, b})
		}
	}
	return out
}

// Correlate relates two questions over the respondents who answered both.
// Two ratings get a Pearson coefficient; a rating paired with a choice
// question gets the rating's mean and deviation per choice.
func Correlate(q1, q2 question.Question, responses []Record) Correlation {
	pairs := commonAnswers(responses, q1.ID, q2.ID)
	c := Correlation{
		Questions:         [2]string{q1.Text, q2.Text},
		QuestionTypes:     [2]question.Type{q1.Type, q2.Type},
		CommonRespondents: len(pairs),
		Data:              CorrelationData{JointDistribution: map[string]int{}},
	}

	for _, p := range pairs {
		for _, l1 := range labels(p.a) {
			for _, l2 := range labels(p.b) {
				c.Data.JointDistribution[l1+"_"+l2]++
			}
		}
	}

	switch {
	case q1.Type == question.TypeRating && q2.Type == question.TypeRating:
		xs := make([]float64, 0, len(pairs))
		ys := make([]float64, 0, len(pairs))
		for _, p := range pairs {
			x, _ := ratingOf(p.a)
			y, _ := ratingOf(p.b)
			xs = append(xs, x)
			ys = append(ys, y)
		}
		c.Data.Strength = pearson(xs, ys)
	case q1.Type.IsChoice() && q2.Type == question.TypeRating:
		c.Data.RatingByChoice = ratingByChoice(pairs, false)
	case q1.Type == question.TypeRating && q2.Type.IsChoice():
		c.Data.RatingByChoice = ratingByChoice(pairs, true)
	}
	return c
}

func ratingByChoice(pairs []pair, ratingFirst bool) map[string]MeanStd {
	byChoice := map[string][]float64{}
	for _, p := range pairs {
		choice, rating := p.a, p.b
		if ratingFirst {
			choice, rating = p.b, p.a
		}
		x, ok := ratingOf(rating)
		if !ok {
			continue
		}
		for _, l := range labels(choice) {
			byChoice[l] = append(byChoice[l], x)
		}
	}
	out := make(map[string]MeanStd, len(byChoice))
	for l, xs := range byChoice {
		out[l] = MeanStd{Mean: mean(xs), Std: stdDev(xs)}
	}
	return out
}

// CorrelateAll correlates every unordered pair of rating and choice questions,
// keyed "<id1>_<id2>" in display order. Pairs without common respondents are skipped.
func CorrelateAll(ctx context.Context, ds *Dataset) (map[string]Correlation, error) {
	var qs []question.Question
	for _, q := range ds.Survey.OrderedQuestions() {
		if correlatable[q.Type] {
			qs = append(qs, q)
		}
	}

	out := map[string]Correlation{}
	for i := range qs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(qs); j++ {
			c := Correlate(qs[i], qs[j], ds.Responses)
			if c.CommonRespondents == 0 {
				continue
			}
			out[fmt.Sprintf("%d_%d", qs[i].ID, qs[j].ID)] = c
		}
	}
	return out, nil
}
