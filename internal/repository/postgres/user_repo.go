package postgres

import (
	"context"
	"database/sql"

	"survey-insights/internal/domain/user"
)

const userColumns = `id, email, password_hash, first_name, last_name, date_of_birth,
        location, gender, is_verified, is_active, created_at`

type UserRepo struct {
	db *sql.DB
}

var _ user.Repository = (*UserRepo)(nil)

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
        INSERT INTO users (email, password_hash, first_name, last_name, date_of_birth,
                           location, gender, is_verified, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.DateOfBirth,
		u.Location, u.Gender, u.IsVerified, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE users
        SET password_hash = $1, first_name = $2, last_name = $3, date_of_birth = $4,
            location = $5, gender = $6, is_verified = $7, is_active = $8
        WHERE id = $9
    `, u.PasswordHash, u.FirstName, u.LastName, u.DateOfBirth,
		u.Location, u.Gender, u.IsVerified, u.IsActive, u.ID)
	if err != nil {
		return err
	}
	return expectRow(res, sql.ErrNoRows)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) SetVerified(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, sql.ErrNoRows)
}

func scanUser(row scanner) (*user.User, error) {
	u := &user.User{}
	var dob sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &dob,
		&u.Location, &u.Gender, &u.IsVerified, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		u.DateOfBirth = &dob.Time
	}
	return u, nil
}
