package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"survey-insights/internal/domain/stats"
	"survey-insights/internal/metrics"
	"survey-insights/internal/platform/apperr"
)

// statsCall runs one statistics operation under the configured deadline and
// records how long it took.
func (h *Handler) statsCall(r *http.Request, op string, fn func(ctx context.Context, surveyID int64) (any, error)) (any, error) {
	surveyID, err := parseIDParam(r, "id")
	if err != nil {
		return nil, apperr.BadRequest("invalid_input", "invalid survey id", err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.statsTimeout)
	defer cancel()

	start := time.Now()
	out, err := fn(ctx, surveyID)
	metrics.ObserveStats(op, time.Since(start))
	return out, err
}

func (h *Handler) writeStats(w http.ResponseWriter, out any, err error) {
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReport serves the full statistics report. ?period and ?group_by narrow
// the trend and pattern sections.
//
// @Summary     Survey statistics report
// @Tags        statistics
// @Security    BearerAuth
// @Produce     json
// @Param       id        path      int64   true   "Survey ID"
// @Param       period    query     string  false  "day, week, month or quarter"
// @Param       group_by  query     string  false  "location, gender or age"
// @Success     200       {object}  stats.Report
// @Failure     400       {object}  errorBody  "invalid period or field"
// @Failure     403       {object}  errorBody  "not the creator or survey still active"
// @Failure     404       {object}  errorBody  "not found"
// @Router      /surveys/{id}/statistics/ [get]
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	opts := stats.ReportOptions{
		Period:  r.URL.Query().Get("period"),
		GroupBy: r.URL.Query().Get("group_by"),
	}
	out, err := h.statsCall(r, "report", func(ctx context.Context, surveyID int64) (any, error) {
		return h.statsSvc.Report(ctx, callerFromCtx(r), surveyID, opts)
	})
	h.writeStats(w, out, err)
}

// @Summary     Per-question summaries
// @Tags        statistics
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Survey ID"
// @Success     200  {array}   stats.QuestionSummary
// @Failure     403  {object}  errorBody  "not the creator or survey still active"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /surveys/{id}/statistics/questions [get]
func (h *Handler) handleQuestionSummaries(w http.ResponseWriter, r *http.Request) {
	out, err := h.statsCall(r, "summaries", func(ctx context.Context, surveyID int64) (any, error) {
		list, err := h.statsSvc.Summaries(ctx, callerFromCtx(r), surveyID)
		if list == nil {
			list = []stats.QuestionSummary{}
		}
		return list, err
	})
	h.writeStats(w, out, err)
}

// handleCorrelation correlates one pair when q1 and q2 are given, every pair
// otherwise.
//
// @Summary     Question correlations
// @Tags        statistics
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true   "Survey ID"
// @Param       q1   query     int64  false  "First question ID"
// @Param       q2   query     int64  false  "Second question ID"
// @Success     200  {object}  stats.Correlation
// @Failure     400  {object}  errorBody  "invalid question pair"
// @Failure     403  {object}  errorBody  "not the creator or survey still active"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /surveys/{id}/statistics/correlation [get]
func (h *Handler) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q1") == "" && q.Get("q2") == "" {
		out, err := h.statsCall(r, "correlation", func(ctx context.Context, surveyID int64) (any, error) {
			return h.statsSvc.CorrelateAll(ctx, callerFromCtx(r), surveyID)
		})
		h.writeStats(w, out, err)
		return
	}

	q1, err1 := strconv.ParseInt(q.Get("q1"), 10, 64)
	q2, err2 := strconv.ParseInt(q.Get("q2"), 10, 64)
	if err1 != nil || err2 != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "q1 and q2 must both be question ids", nil))
		return
	}
	out, err := h.statsCall(r, "correlation", func(ctx context.Context, surveyID int64) (any, error) {
		return h.statsSvc.Correlate(ctx, callerFromCtx(r), surveyID, q1, q2)
	})
	h.writeStats(w, out, err)
}

// @Summary     Response trend
// @Tags        statistics
// @Security    BearerAuth
// @Produce     json
// @Param       id      path      int64   true   "Survey ID"
// @Param       period  query     string  false  "day, week, month or quarter"
// @Success     200     {object}  stats.Trend
// @Failure     400     {object}  errorBody  "invalid period"
// @Failure     403     {object}  errorBody  "not the creator or survey still active"
// @Failure     404     {object}  errorBody  "not found"
// @Router      /surveys/{id}/statistics/trend [get]
func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "day"
	}
	out, err := h.statsCall(r, "trend", func(ctx context.Context, surveyID int64) (any, error) {
		return h.statsSvc.Trend(ctx, callerFromCtx(r), surveyID, period)
	})
	h.writeStats(w, out, err)
}

// @Summary     Demographic patterns
// @Tags        statistics
// @Security    BearerAuth
// @Produce     json
// @Param       id     path      int64   true  "Survey ID"
// @Param       field  query     string  true  "location, gender or age"
// @Success     200    {object}  stats.Pattern
// @Failure     400    {object}  errorBody  "invalid field"
// @Failure     403    {object}  errorBody  "not the creator or survey still active"
// @Failure     404    {object}  errorBody  "not found"
// @Router      /surveys/{id}/statistics/patterns [get]
func (h *Handler) handlePatterns(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		errorResponse(w, apperr.BadRequest("invalid_field", "field must be one of location, gender, age", nil))
		return
	}
	out, err := h.statsCall(r, "patterns", func(ctx context.Context, surveyID int64) (any, error) {
		return h.statsSvc.GroupBy(ctx, callerFromCtx(r), surveyID, field)
	})
	h.writeStats(w, out, err)
}
