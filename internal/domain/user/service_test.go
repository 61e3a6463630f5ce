package user

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*User
	byMail map[string]int64
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:  make(map[int64]*User),
		byMail: make(map[string]int64),
		nextID: 1,
	}
}

func (r *memoryUserRepo) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	copyUser := *u
	r.users[u.ID] = &copyUser
	r.byMail[u.Email] = u.ID
	return nil
}

func (r *memoryUserRepo) Update(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return sql.ErrNoRows
	}
	copyUser := *u
	r.users[u.ID] = &copyUser
	return nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byMail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyUser := *r.users[id]
	return &copyUser, nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyUser := *u
	return &copyUser, nil
}

func (r *memoryUserRepo) SetVerified(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsVerified = true
	return nil
}

func (r *memoryUserRepo) deactivate(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].IsActive = false
}

type fakeVerifier struct{}

func (fakeVerifier) GenerateVerification(userID int64) (string, error) {
	return "code-" + strconv.FormatInt(userID, 10), nil
}

func (fakeVerifier) ParseVerification(code string) (int64, error) {
	if len(code) < 6 || code[:5] != "code-" {
		return 0, errors.New("bad code")
	}
	return strconv.ParseInt(code[5:], 10, 64)
}

type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *captureNotifier) SendVerification(ctx context.Context, u *User, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[u.Email] = code
	return nil
}

func newTestService(verify bool) (*Service, *memoryUserRepo, *captureNotifier) {
	repo := newMemoryUserRepo()
	notifier := &captureNotifier{codes: map[string]string{}}
	svc := NewService(repo, fakeVerifier{}, notifier, Options{EmailVerification: verify, Cost: bcrypt.MinCost}, nil)
	return svc, repo, notifier
}

func TestRegisterAndLogin(t *testing.T) {
	svc, repo, _ := newTestService(true)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "John@Example.com", Password: "s3cret", Gender: "Male", DateOfBirth: "1990-04-12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "john@example.com" || u.Gender != "male" {
		t.Fatalf("expected normalized email and gender, got %s %s", u.Email, u.Gender)
	}
	if u.IsVerified {
		t.Fatalf("quick signup should stay unverified")
	}
	if u.DateOfBirth == nil || u.DateOfBirth.Year() != 1990 {
		t.Fatalf("expected date of birth, got %v", u.DateOfBirth)
	}
	if u.PasswordHash == "s3cret" || u.PasswordHash == "" {
		t.Fatalf("password should be hashed")
	}

	if _, err := svc.Login(ctx, "john@example.com", "s3cret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := svc.Login(ctx, "john@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials error")
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email")
	}

	repo.deactivate(u.ID)
	if _, err := svc.Login(ctx, "john@example.com", "s3cret"); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected inactive user error")
	}
}

func TestFullSignupVerification(t *testing.T) {
	svc, _, notifier := newTestService(true)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "pw", SignupType: SignupFull})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	code, ok := notifier.codes["ana@example.com"]
	if !ok {
		t.Fatalf("expected a verification code to be sent")
	}

	if _, err := svc.Verify(ctx, "garbage"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := svc.Verify(ctx, "code-99"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for unknown user, got %v", err)
	}

	verified, err := svc.Verify(ctx, code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.ID != u.ID || !verified.IsVerified {
		t.Fatalf("expected user %d verified, got %+v", u.ID, verified)
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "other"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken error, got %v", err)
	}
}

func TestRegisterRefreshesUnverifiedAccount(t *testing.T) {
	svc, _, _ := newTestService(true)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Email: "bo@example.com", Password: "one", Location: "Oslo"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := svc.Register(ctx, RegisterInput{Email: "bo@example.com", Password: "two", Location: "Bergen"})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if second.ID != first.ID || second.Location != "Bergen" {
		t.Fatalf("expected the same account refreshed, got %+v", second)
	}
	if _, err := svc.Login(ctx, "bo@example.com", "two"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestRegisterWithoutEmailVerification(t *testing.T) {
	svc, _, notifier := newTestService(false)

	u, err := svc.Register(context.Background(), RegisterInput{Email: "cy@example.com", Password: "pw", SignupType: SignupFull})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !u.IsVerified {
		t.Fatalf("expected account verified at signup")
	}
	if len(notifier.codes) != 0 {
		t.Fatalf("no code should be sent, got %v", notifier.codes)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService(true)
	cases := []RegisterInput{
		{Email: "", Password: "pw"},
		{Email: "a@example.com", Password: ""},
		{Email: "not-an-email", Password: "pw"},
		{Email: "a@example.com", Password: "pw", SignupType: "slow"},
		{Email: "a@example.com", Password: "pw", Gender: "robot"},
		{Email: "a@example.com", Password: "pw", DateOfBirth: "12/04/1990"},
	}
	for i, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestLogNotifierKeepsCodeOutOfInfoLogs(t *testing.T) {
	u := &User{ID: 7, Email: "a@b.io"}

	core, logs := observer.New(zapcore.InfoLevel)
	if err := (LogNotifier{Log: zap.New(core)}).SendVerification(context.Background(), u, "secret-code"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("expected nothing at info level, got %v", logs.All())
	}

	core, logs = observer.New(zapcore.DebugLevel)
	if err := (LogNotifier{Log: zap.New(core)}).SendVerification(context.Background(), u, "secret-code"); err != nil {
		t.Fatalf("send: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected one debug entry, got %v", entries)
	}
	if entries[0].ContextMap()["code"] != "secret-code" {
		t.Fatalf("debug entry should carry the code, got %v", entries[0].ContextMap())
	}
}
