package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInactiveUser       = errors.New("user account not active")
	ErrInvalidInput       = errors.New("invalid signup data")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrUserNotFound       = errors.New("user not found")
)

var genders = map[string]bool{"male": true, "female": true, "other": true}

type Options struct {
	// EmailVerification off marks every new account verified at signup.
	EmailVerification bool
	Cost              int
}

type Service struct {
	repo     Repository
	verifier Verifier
	notifier Notifier
	opts     Options
	log      *zap.Logger
}

func NewService(repo Repository, verifier Verifier, notifier Notifier, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, verifier: verifier, notifier: notifier, opts: opts, log: log}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func (in RegisterInput) normalize() (RegisterInput, *time.Time, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.Location = strings.TrimSpace(in.Location)
	if in.SignupType == "" {
		in.SignupType = SignupQuick
	}
	if in.SignupType != SignupQuick && in.SignupType != SignupFull {
		return in, nil, invalid("signup_type must be quick or full")
	}
	if in.Email == "" || in.Password == "" {
		return in, nil, invalid("email and password required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, nil, invalid("email is malformed")
	}
	if in.Gender != "" && !genders[in.Gender] {
		return in, nil, invalid("gender must be male, female or other")
	}
	if in.DateOfBirth == "" {
		return in, nil, nil
	}
	dob, err := time.Parse("2006-01-02", in.DateOfBirth)
	if err != nil {
		return in, nil, invalid("date_of_birth must use YYYY-MM-DD")
	}
	return in, &dob, nil
}

// Register creates an account or refreshes an unverified one with the same
// email. Full signups receive a verification code through the notifier.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in, dob, err := in.normalize()
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.IsVerified:
		return nil, ErrEmailTaken
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.Cost)
	if err != nil {
		return nil, err
	}

	u := existing
	if u == nil {
		u = &User{Email: in.Email, IsActive: true}
	}
	u.PasswordHash = string(hash)
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.DateOfBirth = dob
	u.Location = in.Location
	u.Gender = in.Gender
	u.IsVerified = !s.opts.EmailVerification

	if existing == nil {
		err = s.repo.Create(ctx, u)
	} else {
		err = s.repo.Update(ctx, u)
	}
	if err != nil {
		return nil, err
	}

	if s.opts.EmailVerification && in.SignupType == SignupFull {
		code, err := s.verifier.GenerateVerification(u.ID)
		if err != nil {
			return nil, err
		}
		if err := s.notifier.SendVerification(ctx, u, code); err != nil {
			s.log.Warn("verification delivery failed", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
	s.log.Info("user registered",
		zap.Int64("user_id", u.ID),
		zap.String("signup_type", string(in.SignupType)),
		zap.Bool("verified", u.IsVerified),
	)
	return u, nil
}

// Verify marks the account behind a verification code as verified.
func (s *Service) Verify(ctx context.Context, code string) (*User, error) {
	id, err := s.verifier.ParseVerification(code)
	if err != nil {
		return nil, ErrInvalidCode
	}
	if err := s.repo.SetVerified(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// LogNotifier writes verification codes to the log instead of mailing them.
// Codes are logged at debug level only.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) SendVerification(ctx context.Context, u *User, code string) error {
	n.Log.Debug("verification code issued", zap.Int64("user_id", u.ID), zap.String("email", u.Email), zap.String("code", code))
	return nil
}
