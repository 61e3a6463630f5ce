package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/stats"
)

type StatsRepo struct {
	db *sql.DB
}

var _ stats.Repository = (*StatsRepo)(nil)

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// LoadDataset reads a survey, its responses, their respondents and answers from
// one committed snapshot.
func (r *StatsRepo) LoadDataset(ctx context.Context, surveyID int64) (*stats.Dataset, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sv, err := getSurvey(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	ds := &stats.Dataset{Survey: *sv}

	index, err := loadRecords(ctx, tx, ds)
	if err != nil {
		return nil, err
	}
	if err := loadAnswers(ctx, tx, ds, index); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ds, nil
}

func loadRecords(ctx context.Context, tx *sql.Tx, ds *stats.Dataset) (map[uuid.UUID]int, error) {
	rows, err := tx.QueryContext(ctx, `
        SELECT r.id, r.submitted_at, r.completion_time,
               u.id, u.location, u.gender, u.date_of_birth
        FROM responses r
        LEFT JOIN users u ON u.id = r.respondent_id
        WHERE r.survey_id = $1
        ORDER BY r.submitted_at, r.id
    `, ds.Survey.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			rec        stats.Record
			completion sql.NullFloat64
			userID     sql.NullInt64
			location   sql.NullString
			gender     sql.NullString
			dob        sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.SubmittedAt, &completion, &userID, &location, &gender, &dob); err != nil {
			return nil, err
		}
		if completion.Valid {
			rec.CompletionSeconds = &completion.Float64
		}
		if userID.Valid {
			rec.Respondent = &stats.Respondent{ID: userID.Int64, Location: location.String, Gender: gender.String}
			if dob.Valid {
				rec.Respondent.DateOfBirth = &dob.Time
			}
		}
		rec.Answers = map[int64]question.Value{}
		index[rec.ID] = len(ds.Responses)
		ds.Responses = append(ds.Responses, rec)
	}
	return index, rows.Err()
}

func loadAnswers(ctx context.Context, tx *sql.Tx, ds *stats.Dataset, index map[uuid.UUID]int) error {
	rows, err := tx.QueryContext(ctx, `
        SELECT a.response_id, a.question_id, q.question_type, a.value
        FROM answers a
        JOIN responses r ON r.id = a.response_id
        JOIN questions q ON q.id = a.question_id
        WHERE r.survey_id = $1
    `, ds.Survey.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			responseID uuid.UUID
			questionID int64
			qtype      string
			value      []byte
		)
		if err := rows.Scan(&responseID, &questionID, &qtype, &value); err != nil {
			return err
		}
		i, ok := index[responseID]
		if !ok {
			continue
		}
		v, err := question.DecodeValue(question.Type(qtype), value)
		if err != nil {
			return fmt.Errorf("response %s question %d: %w", responseID, questionID, err)
		}
		ds.Responses[i].Answers[questionID] = v
	}
	return rows.Err()
}
