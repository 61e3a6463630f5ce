package stats

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"survey-insights/internal/domain/question"
)

// GroupFields are the respondent attributes responses can be grouped by.
var GroupFields = []string{"location", "gender", "age"}

// GroupBy partitions identified respondents by field and computes metrics for
// every rating and choice question inside each group. Anonymous responses and
// respondents without a value for field are left out.
func GroupBy(ctx context.Context, ds *Dataset, field string) (Pattern, error) {
	assign, order, err := grouping(ds.Responses, field)
	if err != nil {
		return Pattern{}, err
	}

	members := make(map[string][]Record, len(order))
	for i, r := range ds.Responses {
		if label, ok := assign[i]; ok {
			members[label] = append(members[label], r)
		}
	}

	questions := ds.Survey.OrderedQuestions()
	p := Pattern{Field: field, Groups: make([]Group, 0, len(order))}
	for _, label := range order {
		if err := ctx.Err(); err != nil {
			return Pattern{}, err
		}
		rs := members[label]
		if len(rs) == 0 {
			continue
		}
		g := Group{Label: label, Respondents: len(rs), Questions: map[string]GroupMetrics{}}
		for _, q := range questions {
			if m, ok := groupMetrics(q, rs); ok {
				g.Questions[strconv.FormatInt(q.ID, 10)] = m
			}
		}
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}

// grouping maps response indexes to a group label and returns the labels in
// presentation order.
func grouping(responses []Record, field string) (map[int]string, []string, error) {
	assign := map[int]string{}
	switch field {
	case "location", "gender":
		seen := map[string]bool{}
		var order []string
		for i, r := range responses {
			if r.Respondent == nil {
				continue
			}
			v := r.Respondent.Location
			if field == "gender" {
				v = r.Respondent.Gender
			}
			if v == "" {
				continue
			}
			assign[i] = v
			if !seen[v] {
				seen[v] = true
				order = append(order, v)
			}
		}
		slices.Sort(order)
		return assign, order, nil
	case "age":
		ages := map[int]float64{}
		for i, r := range responses {
			if r.Respondent == nil || r.Respondent.DateOfBirth == nil {
				continue
			}
			ages[i] = float64(ageAt(*r.Respondent.DateOfBirth, r.SubmittedAt))
		}
		brackets := ageBrackets(ages)
		order := make([]string, len(brackets))
		for i, b := range brackets {
			order[i] = b.label
		}
		for i, a := range ages {
			assign[i] = bracketFor(brackets, a)
		}
		return assign, order, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
}

func ageAt(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	return years
}

type bracket struct {
	label string
	upper float64
}

// ageBrackets uses quartile boundaries with four or more data points and three
// equal-width bands over the observed range otherwise.
func ageBrackets(ages map[int]float64) []bracket {
	if len(ages) == 0 {
		return nil
	}
	sorted := make([]float64, 0, len(ages))
	for _, a := range ages {
		sorted = append(sorted, a)
	}
	slices.Sort(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	var bounds []float64
	if len(sorted) >= 4 {
		bounds = []float64{lo, percentile(sorted, 25), percentile(sorted, 50), percentile(sorted, 75), hi}
	} else {
		if lo == hi {
			return []bracket{{label: formatAge(lo), upper: hi}}
		}
		w := (hi - lo) / 3
		bounds = []float64{lo, lo + w, lo + 2*w, hi}
	}

	out := make([]bracket, 0, len(bounds)-1)
	for i := 1; i < len(bounds); i++ {
		label := fmt.Sprintf("%s-%s", formatAge(bounds[i-1]), formatAge(bounds[i]))
		if len(out) > 0 && out[len(out)-1].label == label {
			continue
		}
		out = append(out, bracket{label: label, upper: bounds[i]})
	}
	return out
}

func formatAge(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// bracketFor picks the first bracket whose upper bound holds a.
func bracketFor(brackets []bracket, a float64) string {
	for _, b := range brackets {
		if a <= b.upper {
			return b.label
		}
	}
	return brackets[len(brackets)-1].label
}

func groupMetrics(q question.Question, rs []Record) (GroupMetrics, bool) {
	m := GroupMetrics{Type: q.Type}
	switch q.Type {
	case question.TypeRating:
		var xs []float64
		for _, r := range rs {
			if x, ok := ratingOf(r.Answers[q.ID]); ok {
				xs = append(xs, x)
			}
		}
		if len(xs) == 0 {
			return m, false
		}
		lo, hi := minMax(xs)
		m.Rating = &RangeStats{Mean: mean(xs), Std: stdDev(xs), Min: lo, Max: hi, Count: len(xs)}
	case question.TypeSingleChoice, question.TypeMultipleChoice:
		freq := map[string]int{}
		for _, r := range rs {
			if v, ok := r.Answers[q.ID]; ok {
				for _, l := range labels(v) {
					freq[l]++
				}
			}
		}
		if len(freq) == 0 {
			return m, false
		}
		m.Frequencies = freq
	default:
		return m, false
	}
	return m, true
}
