package api

import (
	"net/http"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/survey"
	"survey-insights/internal/platform/apperr"
	"survey-insights/internal/worker"
)

// @Summary     Create survey
// @Tags        surveys
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      survey.CreateInput  true  "Survey with questions"
// @Success     201      {object}  survey.Survey
// @Failure     400      {object}  errorBody  "invalid body or fields"
// @Failure     401      {object}  errorBody  "unauthorized"
// @Failure     500      {object}  errorBody  "server error"
// @Router      /surveys [post]
func (h *Handler) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req survey.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	sv, err := h.surveySvc.Create(r.Context(), callerFromCtx(r), req)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sv)
}

// handleListSurveys lists open surveys, or the caller's own with ?mine=true.
//
// @Summary     List surveys
// @Tags        surveys
// @Security    BearerAuth
// @Produce     json
// @Param       mine  query     bool  false  "Only surveys created by the caller"
// @Success     200   {array}   survey.Survey
// @Failure     401   {object}  errorBody  "unauthorized"
// @Failure     500   {object}  errorBody  "server error"
// @Router      /surveys [get]
func (h *Handler) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	mine := r.URL.Query().Get("mine") == "true"

	list, err := h.surveySvc.List(r.Context(), callerFromCtx(r), mine)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if list == nil {
		list = []survey.Survey{}
	}

	writeJSON(w, http.StatusOK, list)
}

// @Summary     Get survey
// @Tags        surveys
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Survey ID"
// @Success     200  {object}  survey.Survey
// @Failure     400  {object}  errorBody  "invalid survey id"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /surveys/{id} [get]
func (h *Handler) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid survey id", err))
		return
	}

	sv, err := h.surveySvc.Get(r.Context(), callerFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sv)
}

// @Summary     Update survey
// @Tags        surveys
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64               true  "Survey ID"
// @Param       request  body      survey.UpdateInput  true  "Fields to change"
// @Success     200      {object}  survey.Survey
// @Failure     400      {object}  errorBody  "invalid id or body"
// @Failure     401      {object}  errorBody  "unauthorized"
// @Failure     403      {object}  errorBody  "not the creator"
// @Failure     404      {object}  errorBody  "not found"
// @Router      /surveys/{id} [patch]
func (h *Handler) handleUpdateSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid survey id", err))
		return
	}

	var req survey.UpdateInput
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	sv, err := h.surveySvc.Update(r.Context(), callerFromCtx(r), id, req)
	if err != nil {
		errorResponse(w, err)
		return
	}
	h.publish(r, worker.SurveyUpdated, sv.ID)

	writeJSON(w, http.StatusOK, sv)
}

// @Summary     Add question
// @Tags        questions
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64           true  "Survey ID"
// @Param       request  body      question.Input  true  "Question definition"
// @Success     201      {object}  question.Question
// @Failure     400      {object}  errorBody  "invalid id, body or settings"
// @Failure     401      {object}  errorBody  "unauthorized"
// @Failure     403      {object}  errorBody  "not the creator"
// @Failure     404      {object}  errorBody  "not found"
// @Router      /surveys/{id}/questions [post]
func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid survey id", err))
		return
	}

	var req question.Input
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	q, err := h.surveySvc.AddQuestion(r.Context(), callerFromCtx(r), id, req)
	if err != nil {
		errorResponse(w, err)
		return
	}
	h.publish(r, worker.QuestionChanged, q.SurveyID)

	writeJSON(w, http.StatusCreated, q)
}

// @Summary     Update question
// @Tags        questions
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64                  true  "Question ID"
// @Param       request  body      survey.QuestionUpdate  true  "Fields to change"
// @Success     200      {object}  question.Question
// @Failure     400      {object}  errorBody  "invalid id, body or settings"
// @Failure     401      {object}  errorBody  "unauthorized"
// @Failure     403      {object}  errorBody  "not the creator"
// @Failure     404      {object}  errorBody  "not found"
// @Router      /questions/{id} [patch]
func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid question id", err))
		return
	}

	var req survey.QuestionUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	q, err := h.surveySvc.UpdateQuestion(r.Context(), callerFromCtx(r), id, req)
	if err != nil {
		errorResponse(w, err)
		return
	}
	h.publish(r, worker.QuestionChanged, q.SurveyID)

	writeJSON(w, http.StatusOK, q)
}
