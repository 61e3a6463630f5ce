package stats

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/survey"
)

var (
	ErrSurveyActive  = errors.New("survey still active")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidField  = errors.New("invalid grouping field")
	ErrNotOwner      = errors.New("only the survey creator may view statistics")
)

// Dataset is a committed snapshot of one survey and everything answered on it.
type Dataset struct {
	Survey    survey.Survey
	Responses []Record
}

type Record struct {
	ID                uuid.UUID
	SubmittedAt       time.Time
	CompletionSeconds *float64
	Respondent        *Respondent
	Answers           map[int64]question.Value
}

// Respondent carries the profile attributes used for demographic grouping.
type Respondent struct {
	ID          int64
	Location    string
	Gender      string
	DateOfBirth *time.Time
}

type Repository interface {
	LoadDataset(ctx context.Context, surveyID int64) (*Dataset, error)
}

// Cache stores finished reports per survey generation. Version returns the
// current generation; a report must be stored under the generation read before
// its dataset was loaded. A miss is (nil, false, nil).
type Cache interface {
	Version(ctx context.Context, surveyID int64) (int64, error)
	GetReport(ctx context.Context, surveyID, version int64, key string) (*Report, bool, error)
	SetReport(ctx context.Context, surveyID, version int64, key string, r *Report) error
}

type Report struct {
	SurveyID       int64                  `json:"survey_id"`
	Title          string                 `json:"title"`
	TotalResponses int                    `json:"total_responses"`
	Questions      []QuestionSummary      `json:"questions"`
	Correlations   map[string]Correlation `json:"correlations"`
	Patterns       map[string]Pattern     `json:"patterns"`
	Trends         map[string]Trend       `json:"trends"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

type QuestionSummary struct {
	QuestionID   int64         `json:"question_id"`
	Text         string        `json:"question_text"`
	Type         question.Type `json:"question_type"`
	Answered     int           `json:"answered"`
	ResponseRate float64       `json:"response_rate"`
	Options      []OptionCount `json:"options,omitempty"`
	MostCommon   *string       `json:"most_common,omitempty"`
	Rating       *RatingStats  `json:"rating,omitempty"`
}

type OptionCount struct {
	Option     string  `json:"option"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type RatingStats struct {
	Average      float64        `json:"average"`
	Min          float64        `json:"min"`
	Max          float64        `json:"max"`
	Count        int            `json:"count"`
	StdDev       float64        `json:"std_dev"`
	Distribution map[string]int `json:"distribution"`
}

type Correlation struct {
	Questions         [2]string        `json:"questions"`
	QuestionTypes     [2]question.Type `json:"question_types"`
	CommonRespondents int              `json:"common_respondents"`
	Data              CorrelationData  `json:"data"`
}

type CorrelationData struct {
	JointDistribution map[string]int     `json:"joint_distribution"`
	Strength          *float64           `json:"correlation_strength"`
	RatingByChoice    map[string]MeanStd `json:"rating_by_choice,omitempty"`
}

type MeanStd struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

type Pattern struct {
	Field  string  `json:"field"`
	Groups []Group `json:"groups"`
}

type Group struct {
	Label       string                  `json:"group"`
	Respondents int                     `json:"respondents"`
	Questions   map[string]GroupMetrics `json:"questions"`
}

type GroupMetrics struct {
	Type        question.Type  `json:"question_type"`
	Rating      *RangeStats    `json:"rating,omitempty"`
	Frequencies map[string]int `json:"frequencies,omitempty"`
}

type RangeStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

type Trend struct {
	Period  string        `json:"period"`
	Buckets []TrendBucket `json:"buckets"`
	Summary TrendSummary  `json:"summary"`
}

type TrendBucket struct {
	Label               string    `json:"period"`
	Start               time.Time `json:"period_start"`
	Count               int       `json:"count"`
	AvgCompletion       *float64  `json:"avg_completion_time"`
	MovingAvgCount      *float64  `json:"moving_avg_count"`
	MovingAvgCompletion *float64  `json:"moving_avg_completion_time"`
	GrowthRate          float64   `json:"growth_rate"`
}

type TrendSummary struct {
	TotalResponses int      `json:"total_responses"`
	MeanCount      float64  `json:"mean_count"`
	MaxCount       int      `json:"max_count"`
	MinCount       int      `json:"min_count"`
	StdCount       float64  `json:"std_count"`
	MeanGrowthRate float64  `json:"mean_growth_rate"`
	MeanCompletion *float64 `json:"mean_completion_time"`
	MaxCompletion  *float64 `json:"max_completion_time"`
	MinCompletion  *float64 `json:"min_completion_time"`
	StdCompletion  *float64 `json:"std_completion_time"`
}

// labels renders a value as the option labels it contributes to counts.
func labels(v question.Value) []string {
	switch x := v.(type) {
	case question.ChoiceValue:
		return []string{x.Choice}
	case question.MultiChoiceValue:
		return x.Choices
	case question.RatingValue:
		return []string{formatNumber(float64(x))}
	case question.TextValue:
		return []string{string(x)}
	case question.FileValue:
		return []string{x.MimeType}
	}
	return nil
}

func ratingOf(v question.Value) (float64, bool) {
	r, ok := v.(question.RatingValue)
	return float64(r), ok
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
