package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/response"
)

type ResponseRepo struct {
	db *sql.DB
}

var _ response.Repository = (*ResponseRepo)(nil)

func NewResponseRepo(db *sql.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Create inserts the response and its answers atomically. A second answer to
// the same question surfaces as response.ErrDuplicateAnswer.
func (r *ResponseRepo) Create(ctx context.Context, resp *response.Response) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO responses (id, survey_id, respondent_id, submitted_at, completion_time)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING submitted_at
    `, resp.ID, resp.SurveyID, resp.RespondentID, resp.SubmittedAt, resp.CompletionSeconds).
		Scan(&resp.SubmittedAt)
	if err != nil {
		return err
	}

	for i := range resp.Answers {
		a := &resp.Answers[i]
		value, err := json.Marshal(a.Value)
		if err != nil {
			return fmt.Errorf("encode answer to question %d: %w", a.QuestionID, err)
		}
		err = tx.QueryRowContext(ctx, `
            INSERT INTO answers (response_id, question_id, value)
            VALUES ($1, $2, $3)
            RETURNING id, updated_at
        `, resp.ID, a.QuestionID, value).Scan(&a.ID, &a.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return response.ErrDuplicateAnswer
			}
			return err
		}
		a.ResponseID = resp.ID
	}

	return tx.Commit()
}

func (r *ResponseRepo) GetByID(ctx context.Context, id uuid.UUID) (*response.Response, error) {
	resp := &response.Response{}
	var (
		respondent sql.NullInt64
		completion sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
        SELECT id, survey_id, respondent_id, submitted_at, completion_time
        FROM responses WHERE id = $1
    `, id).Scan(&resp.ID, &resp.SurveyID, &respondent, &resp.SubmittedAt, &completion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, response.ErrResponseNotFound
	}
	if err != nil {
		return nil, err
	}
	if respondent.Valid {
		resp.RespondentID = &respondent.Int64
	}
	if completion.Valid {
		resp.CompletionSeconds = &completion.Float64
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT a.id, a.response_id, a.question_id, q.question_type, a.value, a.updated_at
        FROM answers a
        JOIN questions q ON q.id = a.question_id
        WHERE a.response_id = $1
        ORDER BY q.display_order, q.id
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		resp.Answers = append(resp.Answers, *a)
	}
	return resp, rows.Err()
}

func (r *ResponseRepo) GetAnswer(ctx context.Context, id int64) (*response.Answer, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT a.id, a.response_id, a.question_id, q.question_type, a.value, a.updated_at
        FROM answers a
        JOIN questions q ON q.id = a.question_id
        WHERE a.id = $1
    `, id)
	a, err := scanAnswer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, response.ErrAnswerNotFound
	}
	return a, err
}

func (r *ResponseRepo) UpdateAnswer(ctx context.Context, a *response.Answer) error {
	value, err := json.Marshal(a.Value)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
        UPDATE answers SET value = $1, updated_at = now()
        WHERE id = $2
        RETURNING updated_at
    `, value, a.ID).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return response.ErrAnswerNotFound
	}
	return err
}

func (r *ResponseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, response.ErrResponseNotFound)
}

func scanAnswer(row scanner) (*response.Answer, error) {
	a := &response.Answer{}
	var (
		qtype string
		value []byte
	)
	if err := row.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &qtype, &value, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = question.Type(qtype)
	v, err := question.DecodeValue(a.Type, value)
	if err != nil {
		return nil, fmt.Errorf("answer %d value: %w", a.ID, err)
	}
	a.Value = v
	return a, nil
}
