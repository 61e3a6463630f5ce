package api

import (
	"context"
	"errors"
	"net/http"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/response"
	"survey-insights/internal/domain/stats"
	"survey-insights/internal/domain/survey"
	"survey-insights/internal/domain/user"
	"survey-insights/internal/platform/apperr"
)

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), errorBody{
		Error:   appErr.Code,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	mapped := mapDomainError(err)

	var fe *question.FieldError
	if errors.As(err, &fe) {
		mapped.Message = fe.Message
		mapped.WithField(fe.Field, fe.Message)
	}
	var missing *response.MissingAnswersError
	if errors.As(err, &missing) {
		mapped.WithField("not_answered_required_questions", missing.QuestionIDs)
	}
	var ae *response.AnswerError
	if errors.As(err, &ae) {
		mapped.WithField("question_id", ae.QuestionID)
	}
	return mapped
}

func mapDomainError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, question.ErrSchema):
		return apperr.BadRequest("schema_error", "question settings are invalid", err)
	case errors.Is(err, question.ErrAnswerFormat):
		return apperr.BadRequest("answer_format_error", "answer value is invalid", err)
	case errors.Is(err, question.ErrFileValidation):
		return apperr.BadRequest("file_validation_error", "file was rejected", err)
	case errors.Is(err, survey.ErrInvalidSurvey):
		return apperr.BadRequest("invalid_survey", "survey is invalid", err)
	case errors.Is(err, survey.ErrNoQuestions):
		return apperr.BadRequest("no_questions", "survey must have at least one question", err)
	case errors.Is(err, survey.ErrTypeImmutable):
		return apperr.BadRequest("type_immutable", "question type cannot be changed", err)
	case errors.Is(err, response.ErrRequiredAnswerMissing):
		return apperr.BadRequest("required_answer_missing", "required questions were not answered", err)
	case errors.Is(err, response.ErrCrossSurvey):
		return apperr.BadRequest("cross_survey", "question does not belong to this survey", err)
	case errors.Is(err, response.ErrDuplicateAnswer):
		return apperr.BadRequest("duplicate_answer", "question answered more than once", err)
	case errors.Is(err, stats.ErrInvalidPeriod):
		return apperr.BadRequest("invalid_period", "period must be one of day, week, month, quarter", err)
	case errors.Is(err, stats.ErrInvalidField):
		return apperr.BadRequest("invalid_field", "field must be one of location, gender, age", err)
	case errors.Is(err, user.ErrInvalidInput):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, user.ErrInvalidCode):
		return apperr.BadRequest("invalid_code", "invalid verification code", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already taken", err)

	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "unable to login with provided credentials", err)
	case errors.Is(err, user.ErrInactiveUser):
		return apperr.Unauthorized("inactive_user", "user account not active", err)

	case errors.Is(err, survey.ErrNotOwner), errors.Is(err, stats.ErrNotOwner):
		return apperr.Forbidden("not_owner", "only the survey creator may do this", err)
	case errors.Is(err, survey.ErrNotVerified):
		return apperr.Forbidden("not_verified", "a verified account is required", err)
	case errors.Is(err, response.ErrNotEligible):
		return apperr.Forbidden("not_eligible", "this survey requires a different kind of account", err)
	case errors.Is(err, response.ErrForbidden):
		return apperr.Forbidden("forbidden", "you may not access this response", err)

	case errors.Is(err, survey.ErrSurveyNotFound):
		return apperr.NotFound("survey_not_found", "survey not found", err)
	case errors.Is(err, survey.ErrQuestionNotFound):
		return apperr.NotFound("question_not_found", "question not found", err)
	case errors.Is(err, response.ErrResponseNotFound):
		return apperr.NotFound("response_not_found", "response not found", err)
	case errors.Is(err, response.ErrAnswerNotFound):
		return apperr.NotFound("answer_not_found", "answer not found", err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("user_not_found", "user not found", err)

	case errors.Is(err, survey.ErrSurveyClosed):
		return apperr.Conflict("survey_closed", "survey is closed", err)
	case errors.Is(err, stats.ErrSurveyActive):
		return apperr.Conflict("survey_active", "survey still active", err)

	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable("timeout", "request took too long", err)
	case errors.Is(err, response.ErrStorage):
		return apperr.Internal("storage_error", "could not store the response", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
