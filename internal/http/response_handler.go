package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/response"
	"survey-insights/internal/metrics"
	"survey-insights/internal/platform/apperr"
	"survey-insights/internal/worker"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// @Summary     Submit response
// @Tags        responses
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64                 true  "Survey ID"
// @Param       request  body      response.SubmitInput  true  "Answers"
// @Success     201      {object}  response.Response
// @Failure     400      {object}  errorBody  "invalid answers"
// @Failure     401      {object}  errorBody  "authentication required"
// @Failure     403      {object}  errorBody  "survey closed"
// @Failure     404      {object}  errorBody  "not found"
// @Failure     429      {object}  errorBody  "too many submissions"
// @Router      /surveys/{id}/responses [post]
func (h *Handler) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	surveyID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid survey id", err))
		return
	}

	var req response.SubmitInput
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.IncRejected("invalid_input")
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	resp, err := h.responseSvc.Submit(r.Context(), callerFromCtx(r), surveyID, req)
	if err != nil {
		appErr := mapError(err)
		metrics.IncRejected(appErr.Code)
		errorResponse(w, appErr)
		return
	}
	h.publish(r, worker.ResponseSubmitted, surveyID)

	writeJSON(w, http.StatusCreated, resp)
}

// @Summary     Get response
// @Tags        responses
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      string  true  "Response ID"
// @Success     200  {object}  response.Response
// @Failure     400  {object}  errorBody  "invalid response id"
// @Failure     401  {object}  errorBody  "unauthorized"
// @Failure     403  {object}  errorBody  "forbidden"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /responses/{id} [get]
func (h *Handler) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid response id", err))
		return
	}

	resp, err := h.responseSvc.Get(r.Context(), callerFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// @Summary     Delete response
// @Tags        responses
// @Security    BearerAuth
// @Param       id   path  string  true  "Response ID"
// @Success     204
// @Failure     400  {object}  errorBody  "invalid response id"
// @Failure     401  {object}  errorBody  "unauthorized"
// @Failure     403  {object}  errorBody  "forbidden or survey closed"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /responses/{id} [delete]
func (h *Handler) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid response id", err))
		return
	}

	c := callerFromCtx(r)
	resp, err := h.responseSvc.Get(r.Context(), c, id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if err := h.responseSvc.Delete(r.Context(), c, id); err != nil {
		errorResponse(w, err)
		return
	}
	h.publish(r, worker.ResponseChanged, resp.SurveyID)

	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Update answer
// @Tags        responses
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64                 true  "Answer ID"
// @Param       request  body      response.AnswerInput  true  "New value"
// @Success     200      {object}  response.Answer
// @Failure     400      {object}  errorBody  "invalid id or answer"
// @Failure     401      {object}  errorBody  "unauthorized"
// @Failure     403      {object}  errorBody  "forbidden or survey closed"
// @Failure     404      {object}  errorBody  "not found"
// @Router      /answers/{id} [patch]
func (h *Handler) handleUpdateAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid answer id", err))
		return
	}

	var req response.AnswerInput
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	c := callerFromCtx(r)
	a, err := h.responseSvc.UpdateAnswer(r.Context(), c, id, req)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if resp, err := h.responseSvc.Get(r.Context(), c, a.ResponseID); err == nil {
		h.publish(r, worker.ResponseChanged, resp.SurveyID)
	}

	writeJSON(w, http.StatusOK, a)
}

// handleAnswerFile streams the stored upload of a file answer.
//
// @Summary     Download answer file
// @Tags        responses
// @Security    BearerAuth
// @Produce     octet-stream
// @Param       id   path  int64  true  "Answer ID"
// @Success     200  {file}    binary
// @Failure     400  {object}  errorBody  "invalid answer id or not a file answer"
// @Failure     403  {object}  errorBody  "forbidden"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /answers/{id}/file [get]
func (h *Handler) handleAnswerFile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid answer id", err))
		return
	}

	started := false
	err = h.responseSvc.ReadFile(r.Context(), callerFromCtx(r), id, func(fv question.FileValue, body io.Reader) error {
		w.Header().Set("Content-Type", fv.MimeType)
		w.Header().Set("Content-Length", strconv.FormatInt(fv.Size, 10))
		w.WriteHeader(http.StatusOK)
		started = true
		_, err := io.Copy(w, body)
		return err
	})
	if err == nil {
		return
	}
	if started {
		h.log.Warn("answer file stream interrupted", zap.Int64("answer_id", id), zap.Error(err))
		return
	}
	errorResponse(w, err)
}
