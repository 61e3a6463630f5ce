package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/survey"
)

const (
	surveyColumns = `id, title, description, creator_id, created_at, closes_at, is_active,
        respondent_auth_requirement`
	questionColumns = `id, survey_id, question_text, question_type, required, display_order,
        settings, created_at`
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SurveyRepo struct {
	db *sql.DB
}

var _ survey.Repository = (*SurveyRepo)(nil)

func NewSurveyRepo(db *sql.DB) *SurveyRepo {
	return &SurveyRepo{db: db}
}

// Create stores a survey together with its questions.
func (r *SurveyRepo) Create(ctx context.Context, s *survey.Survey) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO surveys (title, description, creator_id, closes_at, is_active, respondent_auth_requirement)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `, s.Title, s.Description, s.CreatorID, s.ClosesAt, s.IsActive, string(s.AuthRequirement)).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return err
	}

	for i := range s.Questions {
		s.Questions[i].SurveyID = s.ID
		if err := insertQuestion(ctx, tx, &s.Questions[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SurveyRepo) GetByID(ctx context.Context, id int64) (*survey.Survey, error) {
	return getSurvey(ctx, r.db, id)
}

func (r *SurveyRepo) List(ctx context.Context, f survey.ListFilter) ([]survey.Survey, error) {
	var (
		where []string
		args  []any
	)
	if f.CreatorID != nil {
		args = append(args, *f.CreatorID)
		where = append(where, fmt.Sprintf("creator_id = $%d", len(args)))
	}
	if f.OpenAt != nil {
		args = append(args, *f.OpenAt)
		where = append(where, fmt.Sprintf("is_active AND closes_at > $%d", len(args)))
	}
	query := `SELECT ` + surveyColumns + ` FROM surveys`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []survey.Survey
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *SurveyRepo) Update(ctx context.Context, s *survey.Survey) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE surveys
        SET title = $1, description = $2, closes_at = $3, is_active = $4, respondent_auth_requirement = $5
        WHERE id = $6
    `, s.Title, s.Description, s.ClosesAt, s.IsActive, string(s.AuthRequirement), s.ID)
	if err != nil {
		return err
	}
	return expectRow(res, survey.ErrSurveyNotFound)
}

func (r *SurveyRepo) AddQuestion(ctx context.Context, q *question.Question) error {
	err := insertQuestion(ctx, r.db, q)
	if isForeignKeyViolation(err) {
		return survey.ErrSurveyNotFound
	}
	return err
}

func (r *SurveyRepo) GetQuestion(ctx context.Context, id int64) (*question.Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, survey.ErrQuestionNotFound
	}
	return q, err
}

func (r *SurveyRepo) UpdateQuestion(ctx context.Context, q *question.Question) error {
	settings, err := q.MarshalSettings()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE questions
        SET question_text = $1, required = $2, display_order = $3, settings = $4
        WHERE id = $5
    `, q.Text, q.Required, q.Order, settings, q.ID)
	if err != nil {
		return err
	}
	return expectRow(res, survey.ErrQuestionNotFound)
}

func insertQuestion(ctx context.Context, db querier, q *question.Question) error {
	settings, err := q.MarshalSettings()
	if err != nil {
		return err
	}
	return db.QueryRowContext(ctx, `
        INSERT INTO questions (survey_id, question_text, question_type, required, display_order, settings)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `, q.SurveyID, q.Text, string(q.Type), q.Required, q.Order, settings).
		Scan(&q.ID, &q.CreatedAt)
}

// getSurvey loads a survey and its questions through db, which may be a
// transaction.
func getSurvey(ctx context.Context, db querier, id int64) (*survey.Survey, error) {
	row := db.QueryRowContext(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE id = $1`, id)
	s, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, survey.ErrSurveyNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT `+questionColumns+`
        FROM questions WHERE survey_id = $1
        ORDER BY display_order, id
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		s.Questions = append(s.Questions, *q)
	}
	return s, rows.Err()
}

func scanSurvey(row scanner) (*survey.Survey, error) {
	s := &survey.Survey{}
	var auth string
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.CreatorID, &s.CreatedAt, &s.ClosesAt,
		&s.IsActive, &auth)
	if err != nil {
		return nil, err
	}
	s.AuthRequirement = survey.AuthRequirement(auth)
	return s, nil
}

func scanQuestion(row scanner) (*question.Question, error) {
	q := &question.Question{}
	var (
		qtype    string
		settings []byte
	)
	err := row.Scan(&q.ID, &q.SurveyID, &q.Text, &qtype, &q.Required, &q.Order, &settings, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Type = question.Type(qtype)
	if q.Settings, err = question.DecodeSettings(q.Type, settings); err != nil {
		return nil, fmt.Errorf("question %d settings: %w", q.ID, err)
	}
	return q, nil
}
