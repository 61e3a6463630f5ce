package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	_ "survey-insights/docs"
	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/response"
	"survey-insights/internal/domain/stats"
	"survey-insights/internal/domain/survey"
	"survey-insights/internal/domain/user"
	"survey-insights/internal/platform/blob"
	jwtpkg "survey-insights/internal/platform/jwt"
	"survey-insights/internal/worker"
)

type testUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*user.User
	byMail map[string]int64
	nextID int64
}

func newTestUserRepo() *testUserRepo {
	return &testUserRepo{
		users:  make(map[int64]*user.User),
		byMail: make(map[string]int64),
		nextID: 1,
	}
}

func (r *testUserRepo) Create(ctx context.Context, u *user.User) error {
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

func (r *testUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return sql.ErrNoRows
	}
	copyUser := *u
	r.users[u.ID] = &copyUser
	return nil
}

func (r *testUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byMail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyUser := *r.users[id]
	return &copyUser, nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyUser := *u
	return &copyUser, nil
}

func (r *testUserRepo) SetVerified(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsVerified = true
	return nil
}

type testSurveyRepo struct {
	mu      sync.Mutex
	surveys map[int64]*survey.Survey
	nextID  int64
	nextQID int64
}

func newTestSurveyRepo() *testSurveyRepo {
	return &testSurveyRepo{surveys: make(map[int64]*survey.Survey), nextID: 1, nextQID: 1}
}

func cloneSurvey(s *survey.Survey) *survey.Survey {
	c := *s
	c.Questions = append([]question.Question(nil), s.Questions...)
	return &c
}

func (r *testSurveyRepo) Create(ctx context.Context, s *survey.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	s.CreatedAt = time.Now()
	for i := range s.Questions {
		s.Questions[i].ID = r.nextQID
		s.Questions[i].SurveyID = s.ID
		r.nextQID++
	}
	r.surveys[s.ID] = cloneSurvey(s)
	return nil
}

func (r *testSurveyRepo) GetByID(ctx context.Context, id int64) (*survey.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, survey.ErrSurveyNotFound
	}
	return cloneSurvey(s), nil
}

func (r *testSurveyRepo) List(ctx context.Context, f survey.ListFilter) ([]survey.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []survey.Survey
	for id := int64(1); id < r.nextID; id++ {
		s, ok := r.surveys[id]
		if !ok {
			continue
		}
		if f.CreatorID != nil && s.CreatorID != *f.CreatorID {
			continue
		}
		if f.OpenAt != nil && s.IsClosed(*f.OpenAt) {
			continue
		}
		out = append(out, *cloneSurvey(s))
	}
	return out, nil
}

func (r *testSurveyRepo) Update(ctx context.Context, s *survey.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.surveys[s.ID]
	if !ok {
		return survey.ErrSurveyNotFound
	}
	c := cloneSurvey(s)
	c.Questions = old.Questions
	r.surveys[s.ID] = c
	return nil
}

func (r *testSurveyRepo) AddQuestion(ctx context.Context, q *question.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[q.SurveyID]
	if !ok {
		return survey.ErrSurveyNotFound
	}
	q.ID = r.nextQID
	r.nextQID++
	s.Questions = append(s.Questions, *q)
	return nil
}

func (r *testSurveyRepo) GetQuestion(ctx context.Context, id int64) (*question.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.surveys {
		for _, q := range s.Questions {
			if q.ID == id {
				copyQ := q
				return &copyQ, nil
			}
		}
	}
	return nil, survey.ErrQuestionNotFound
}

func (r *testSurveyRepo) UpdateQuestion(ctx context.Context, q *question.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[q.SurveyID]
	if !ok {
		return survey.ErrQuestionNotFound
	}
	for i := range s.Questions {
		if s.Questions[i].ID == q.ID {
			s.Questions[i] = *q
			return nil
		}
	}
	return survey.ErrQuestionNotFound
}

// close moves a survey's deadline into the past so statistics become available.
func (r *testSurveyRepo) close(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surveys[id].ClosesAt = time.Now().Add(-time.Minute)
}

type testResponseRepo struct {
	mu        sync.Mutex
	responses map[uuid.UUID]*response.Response
	order     []uuid.UUID
	nextAID   int64
}

func newTestResponseRepo() *testResponseRepo {
	return &testResponseRepo{responses: make(map[uuid.UUID]*response.Response), nextAID: 1}
}

func cloneResponse(r *response.Response) *response.Response {
	c := *r
	c.Answers = append([]response.Answer(nil), r.Answers...)
	return &c
}

func (r *testResponseRepo) Create(ctx context.Context, resp *response.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[int64]bool{}
	for i := range resp.Answers {
		if seen[resp.Answers[i].QuestionID] {
			return response.ErrDuplicateAnswer
		}
		seen[resp.Answers[i].QuestionID] = true
		resp.Answers[i].ID = r.nextAID
		resp.Answers[i].UpdatedAt = time.Now()
		r.nextAID++
	}
	r.responses[resp.ID] = cloneResponse(resp)
	r.order = append(r.order, resp.ID)
	return nil
}

func (r *testResponseRepo) GetByID(ctx context.Context, id uuid.UUID) (*response.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[id]
	if !ok {
		return nil, response.ErrResponseNotFound
	}
	return cloneResponse(resp), nil
}

func (r *testResponseRepo) GetAnswer(ctx context.Context, id int64) (*response.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.responses {
		for _, a := range resp.Answers {
			if a.ID == id {
				copyA := a
				return &copyA, nil
			}
		}
	}
	return nil, response.ErrAnswerNotFound
}

func (r *testResponseRepo) UpdateAnswer(ctx context.Context, a *response.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[a.ResponseID]
	if !ok {
		return response.ErrAnswerNotFound
	}
	for i := range resp.Answers {
		if resp.Answers[i].ID == a.ID {
			a.UpdatedAt = time.Now()
			resp.Answers[i] = *a
			return nil
		}
	}
	return response.ErrAnswerNotFound
}

func (r *testResponseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.responses[id]; !ok {
		return response.ErrResponseNotFound
	}
	delete(r.responses, id)
	return nil
}

// testStatsRepo assembles datasets from the in-memory survey and response repos.
type testStatsRepo struct {
	surveys   *testSurveyRepo
	responses *testResponseRepo
}

func (r *testStatsRepo) LoadDataset(ctx context.Context, surveyID int64) (*stats.Dataset, error) {
	sv, err := r.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	ds := &stats.Dataset{Survey: *sv}

	r.responses.mu.Lock()
	defer r.responses.mu.Unlock()
	for _, id := range r.responses.order {
		resp, ok := r.responses.responses[id]
		if !ok || resp.SurveyID != surveyID {
			continue
		}
		rec := stats.Record{
			ID:                resp.ID,
			SubmittedAt:       resp.SubmittedAt,
			CompletionSeconds: resp.CompletionSeconds,
			Answers:           map[int64]question.Value{},
		}
		for _, a := range resp.Answers {
			rec.Answers[a.QuestionID] = a.Value
		}
		ds.Responses = append(ds.Responses, rec)
	}
	return ds, nil
}

type testServer struct {
	*httptest.Server
	users     *testUserRepo
	surveys   *testSurveyRepo
	responses *testResponseRepo
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	userRepo := newTestUserRepo()
	surveyRepo := newTestSurveyRepo()
	responseRepo := newTestResponseRepo()

	store, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	jwtMgr := jwtpkg.NewManager("secret", "test-issuer")
	userSvc := user.NewService(userRepo, jwtMgr, nil, user.Options{EmailVerification: true, Cost: bcrypt.MinCost}, nil)
	surveySvc := survey.NewService(surveyRepo, nil)
	responseSvc := response.NewService(responseRepo, surveyRepo, store, blob.NewKeyedMutex(), nil)
	statsSvc := stats.NewService(&testStatsRepo{surveys: surveyRepo, responses: responseRepo}, nil, nil)
	events := worker.NewSurveyWorker(16, nil, nil)

	server := httptest.NewServer(NewRouter(Deps{
		Users:       userSvc,
		Surveys:     surveySvc,
		Responses:   responseSvc,
		Stats:       statsSvc,
		JWT:         jwtMgr,
		Events:      events,
		SubmitLimit: rate.Inf,
	}))
	t.Cleanup(server.Close)

	return &testServer{Server: server, users: userRepo, surveys: surveyRepo, responses: responseRepo}
}

func seedUserWithPassword(t *testing.T, repo *testUserRepo, email, password string, verified bool) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &user.User{
		Email:        email,
		PasswordHash: string(hash),
		IsVerified:   verified,
		IsActive:     true,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func loginAndToken(t *testing.T, serverURL, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(authRequest{Email: email, Password: password})
	resp, err := http.Post(serverURL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("token missing")
	}
	return token
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, url, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var payload errorBody
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return payload
}

func feedbackSurvey(auth string) survey.CreateInput {
	return survey.CreateInput{
		Title:           "Team feedback",
		ClosesAt:        time.Now().Add(24 * time.Hour),
		AuthRequirement: auth,
		Questions: []question.Input{
			{
				Text:     "Favourite colour",
				Type:     "single_choice",
				Required: true,
				Order:    1,
				Settings: map[string]any{"options": []string{"red", "green"}},
			},
			{
				Text:     "Rate the sprint",
				Type:     "rating",
				Order:    2,
				Settings: map[string]any{"min_value": 1, "max_value": 5, "step": 1},
			},
		},
	}
}

// surveyBody and responseBody decode the parts of API payloads the tests look at.
type surveyBody struct {
	ID        int64 `json:"id"`
	Questions []struct {
		ID int64 `json:"id"`
	} `json:"questions"`
}

type responseBody struct {
	ID           uuid.UUID `json:"id"`
	RespondentID *int64    `json:"respondent_id"`
	Answers      []struct {
		ID         int64 `json:"id"`
		QuestionID int64 `json:"question_id"`
	} `json:"answers"`
}

func createSurveyViaAPI(t *testing.T, serverURL, token string, in survey.CreateInput) surveyBody {
	t.Helper()
	resp := doJSON(t, http.MethodPost, serverURL+"/api/v1/surveys", token, in)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create survey status: %d (%+v)", resp.StatusCode, decodeError(t, resp))
	}
	var sv surveyBody
	if err := json.NewDecoder(resp.Body).Decode(&sv); err != nil {
		t.Fatalf("decode survey: %v", err)
	}
	return sv
}

func submission(colour string, rating int) map[string]any {
	answers := []map[string]any{
		{"question_id": 1, "value": map[string]string{"choice": colour}},
	}
	if rating > 0 {
		answers = append(answers, map[string]any{"question_id": 2, "value": rating})
	}
	return map[string]any{"answers": answers, "completion_time": 42.5}
}

func TestCreateAndListSurveys(t *testing.T) {
	srv := setupServer(t)

	seedUserWithPassword(t, srv.users, "owner@test.com", "pass123", true)
	seedUserWithPassword(t, srv.users, "fresh@test.com", "pass123", false)
	ownerToken := loginAndToken(t, srv.URL, "owner@test.com", "pass123")
	freshToken := loginAndToken(t, srv.URL, "fresh@test.com", "pass123")

	sv := createSurveyViaAPI(t, srv.URL, ownerToken, feedbackSurvey("NONE"))
	if len(sv.Questions) != 2 || sv.Questions[0].ID != 1 {
		t.Fatalf("expected two stored questions, got %+v", sv.Questions)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/surveys", freshToken, feedbackSurvey("NONE"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for unverified creator, got %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Error != "not_verified" {
		t.Fatalf("expected not_verified, got %s", body.Error)
	}

	listResp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/surveys", "", nil)
	defer listResp.Body.Close()
	var list []surveyBody
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listResp.StatusCode != http.StatusOK || len(list) != 1 {
		t.Fatalf("expected one open survey for anonymous caller, got %d %d", listResp.StatusCode, len(list))
	}
}

func TestCreateSurveyRejectsBadSettings(t *testing.T) {
	srv := setupServer(t)
	seedUserWithPassword(t, srv.users, "owner@test.com", "pass123", true)
	token := loginAndToken(t, srv.URL, "owner@test.com", "pass123")

	in := feedbackSurvey("NONE")
	in.Questions[1].Settings = map[string]any{"min_value": 5, "max_value": 1, "step": 1}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/surveys", token, in)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeError(t, resp)
	if body.Error != "schema_error" {
		t.Fatalf("expected schema_error, got %s", body.Error)
	}
	if _, ok := body.Fields["questions[1].settings"]; !ok {
		t.Fatalf("expected indexed field detail, got %v", body.Fields)
	}
}

func TestSubmitResponse(t *testing.T) {
	srv := setupServer(t)
	seedUserWithPassword(t, srv.users, "owner@test.com", "pass123", true)
	token := loginAndToken(t, srv.URL, "owner@test.com", "pass123")
	sv := createSurveyViaAPI(t, srv.URL, token, feedbackSurvey("NONE"))
	url := srv.URL + "/api/v1/surveys/" + itoa(sv.ID) + "/responses"

	resp := doJSON(t, http.MethodPost, url, "", submission("red", 4))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created responseBody
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.RespondentID != nil || len(created.Answers) != 2 {
		t.Fatalf("expected anonymous response with two answers, got %+v", created)
	}

	missing := doJSON(t, http.MethodPost, url, "", map[string]any{
		"answers": []map[string]any{{"question_id": 2, "value": 3}},
	})
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing required answer, got %d", missing.StatusCode)
	}
	body := decodeError(t, missing)
	if body.Error != "required_answer_missing" {
		t.Fatalf("expected required_answer_missing, got %s", body.Error)
	}
	ids, _ := body.Fields["not_answered_required_questions"].([]any)
	if len(ids) != 1 || ids[0].(float64) != 1 {
		t.Fatalf("expected question 1 reported missing, got %v", body.Fields)
	}

	invalid := doJSON(t, http.MethodPost, url, "", submission("purple", 0))
	defer invalid.Body.Close()
	if invalid.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown option, got %d", invalid.StatusCode)
	}
	if body := decodeError(t, invalid); body.Error != "answer_format_error" {
		t.Fatalf("expected answer_format_error, got %s", body.Error)
	}
}

func TestSubmitRespectsAuthRequirement(t *testing.T) {
	srv := setupServer(t)
	seedUserWithPassword(t, srv.users, "owner@test.com", "pass123", true)
	seedUserWithPassword(t, srv.users, "quick@test.com", "pass123", false)
	ownerToken := loginAndToken(t, srv.URL, "owner@test.com", "pass123")
	quickToken := loginAndToken(t, srv.URL, "quick@test.com", "pass123")
	sv := createSurveyViaAPI(t, srv.URL, ownerToken, feedbackSurvey("FULL"))
	url := srv.URL + "/api/v1/surveys/" + itoa(sv.ID) + "/responses"

	anon := doJSON(t, http.MethodPost, url, "", submission("red", 4))
	defer anon.Body.Close()
	if anon.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous caller, got %d", anon.StatusCode)
	}

	quick := doJSON(t, http.MethodPost, url, quickToken, submission("red", 4))
	defer quick.Body.Close()
	if quick.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for unverified caller, got %d", quick.StatusCode)
	}
	if body := decodeError(t, quick); body.Error != "not_eligible" {
		t.Fatalf("expected not_eligible, got %s", body.Error)
	}

	full := doJSON(t, http.MethodPost, url, ownerToken, submission("green", 5))
	defer full.Body.Close()
	if full.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for verified caller, got %d", full.StatusCode)
	}
}

func TestResponseAccessAndUpdate(t *testing.T) {
	srv := setupServer(t)
	seedUserWithPassword(t, srv.users, "owner@test.com", "pass123", true)
	seedUserWithPassword(t, srv.users, "resp@test.com", "pass123", false)
	seedUserWithPassword(t, srv.users, "other@test.com", "pass123", false)
	ownerToken := loginAndToken(t, srv.URL, "owner@test.com", "pass123")
	respToken := loginAndToken(t, srv.URL, "resp@test.com", "pass123")
	otherToken := loginAndToken(t, srv.URL, "other@test.com", "pass123")
	sv := createSurveyViaAPI(t, srv.URL, ownerToken, feedbackSurvey("QUICK"))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/surveys/"+itoa(sv.ID)+"/responses", respToken, submission("red", 2))
	defer resp.Body.Close()
	var created responseBody
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	url := srv.URL + "/api/v1/responses/" + created.ID.String()

	for _, tc := range []struct {
		token  string
		status int
	}{
		{respToken, http.StatusOK},
		{ownerToken, http.StatusOK},
		{otherToken, http.StatusForbidden},
	} {
		got := doJSON(t, http.MethodGet, url, tc.token, nil)
		got.Body.Close()
		if got.StatusCode != tc.status {
			t.Fatalf("expected %d, got %d", tc.status, got.StatusCode)
		}
	}

	bad := doJSON(t, http.MethodGet, srv.URL+"/api/v1/responses/not-a-uuid", respToken, nil)
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", bad.StatusCode)
	}

	var ratingAnswerID int64
	for _, a := range created.Answers {
		if a.QuestionID == 2 {
			ratingAnswerID = a.ID
		}
	}
	upd := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/answers/"+itoa(ratingAnswerID), respToken, map[string]any{"value": 5})
	defer upd.Body.Close()
	if upd.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for answer update, got %d", upd.StatusCode)
	}
	stored, _ := srv.responses.GetAnswer(context.Background(), ratingAnswerID)
	if v, ok := stored.Value.(question.RatingValue); !ok || float64(v) != 5 {
		t.Fatalf("expected rating updated to 5, got %v", stored.Value)
	}

	del := doJSON(t, http.MethodDelete, url, otherToken, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 deleting someone else's response, got %d", del.StatusCode)
	}
	del = doJSON(t, http.MethodDelete, url, respToken, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.StatusCode)
	}
}

func TestStatisticsGating(t *testing.T) {
	srv := setupServer(t)
	seedUserWithPassword(t, srv.users, "owner@test.com", "pass123", true)
	seedUserWithPassword(t, srv.users, "other@test.com", "pass123", true)
	ownerToken := loginAndToken(t, srv.URL, "owner@test.com", "pass123")
	otherToken := loginAndToken(t, srv.URL, "other@test.com", "pass123")
	sv := createSurveyViaAPI(t, srv.URL, ownerToken, feedbackSurvey("NONE"))
	base := srv.URL + "/api/v1/surveys/" + itoa(sv.ID)

	for _, s := range []map[string]any{submission("red", 4), submission("red", 2), submission("green", 5)} {
		r := doJSON(t, http.MethodPost, base+"/responses", "", s)
		r.Body.Close()
		if r.StatusCode != http.StatusCreated {
			t.Fatalf("submit status: %d", r.StatusCode)
		}
	}

	open := doJSON(t, http.MethodGet, base+"/statistics/", ownerToken, nil)
	defer open.Body.Close()
	if open.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while survey is open, got %d", open.StatusCode)
	}
	if body := decodeError(t, open); body.Error != "survey_active" {
		t.Fatalf("expected survey_active, got %s", body.Error)
	}

	srv.surveys.close(sv.ID)

	foreign := doJSON(t, http.MethodGet, base+"/statistics/", otherToken, nil)
	foreign.Body.Close()
	if foreign.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", foreign.StatusCode)
	}

	report := doJSON(t, http.MethodGet, base+"/statistics/?period=day&group_by=gender", ownerToken, nil)
	defer report.Body.Close()
	if report.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", report.StatusCode)
	}
	var rep stats.Report
	if err := json.NewDecoder(report.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.TotalResponses != 3 || len(rep.Questions) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	badPeriod := doJSON(t, http.MethodGet, base+"/statistics/trend?period=year", ownerToken, nil)
	defer badPeriod.Body.Close()
	if badPeriod.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown period, got %d", badPeriod.StatusCode)
	}
	if body := decodeError(t, badPeriod); body.Error != "invalid_period" {
		t.Fatalf("expected invalid_period, got %s", body.Error)
	}

	pair := doJSON(t, http.MethodGet, base+"/statistics/correlation?q1=1&q2=2", ownerToken, nil)
	pair.Body.Close()
	if pair.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for correlation, got %d", pair.StatusCode)
	}
	badPair := doJSON(t, http.MethodGet, base+"/statistics/correlation?q1=1&q2=x", ownerToken, nil)
	badPair.Body.Close()
	if badPair.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed question id, got %d", badPair.StatusCode)
	}
}

func TestRegisterQuickReturnsToken(t *testing.T) {
	srv := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]any{
		"email":    "new@test.com",
		"password": "pass123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if out.Token == "" || out.User == nil || out.User.IsVerified {
		t.Fatalf("expected unverified user with token, got %+v", out)
	}

	me := doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", out.Token, nil)
	me.Body.Close()
	if me.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", me.StatusCode)
	}

	full := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]any{
		"email":       "full@test.com",
		"password":    "pass123",
		"signup_type": "full",
	})
	defer full.Body.Close()
	var fullOut authResponse
	if err := json.NewDecoder(full.Body).Decode(&fullOut); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if full.StatusCode != http.StatusCreated || fullOut.Token != "" {
		t.Fatalf("full signup should not return a token, got %d %+v", full.StatusCode, fullOut)
	}
}

func TestBadTokenRejected(t *testing.T) {
	srv := setupServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/surveys", "garbage", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}

	anon := doJSON(t, http.MethodPost, srv.URL+"/api/v1/surveys", "", feedbackSurvey("NONE"))
	defer anon.Body.Close()
	if anon.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", anon.StatusCode)
	}
}

func TestReadyWithoutDatabase(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without database, got %d", resp.StatusCode)
	}
}

func TestSwaggerServesAPIDocument(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/swagger/index.html")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for swagger ui, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/swagger/doc.json")
	if err != nil {
		t.Fatalf("get doc: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for doc.json, got %d", resp.StatusCode)
	}

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode doc: %v", err)
	}
	if doc.Info.Title != "Survey Insights API" || doc.BasePath != "/api/v1" {
		t.Fatalf("unexpected doc header: %+v", doc)
	}
	for path, method := range map[string]string{
		"/auth/register":                 "post",
		"/surveys/{id}/responses":        "post",
		"/answers/{id}":                  "patch",
		"/surveys/{id}/statistics/":      "get",
		"/surveys/{id}/statistics/trend": "get",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Fatalf("doc is missing %s %s", method, path)
		}
	}
}
