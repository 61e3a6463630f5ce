package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"survey-insights/internal/domain/response"
	"survey-insights/internal/domain/stats"
	"survey-insights/internal/domain/survey"
	"survey-insights/internal/domain/user"
	jwtpkg "survey-insights/internal/platform/jwt"
	"survey-insights/internal/worker"
)

// maxBodyBytes bounds request bodies; file answers travel base64 encoded inside JSON.
const maxBodyBytes = 64 << 20

type Pinger interface {
	PingContext(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev worker.SurveyEvent)
}

type Deps struct {
	Users        *user.Service
	Surveys      *survey.Service
	Responses    *response.Service
	Stats        *stats.Service
	JWT          *jwtpkg.Manager
	TokenTTL     time.Duration
	StatsTimeout time.Duration
	Events       EventPublisher
	DB           Pinger
	Log          *zap.Logger
	// SubmitLimit and SubmitBurst throttle response submissions per client IP.
	SubmitLimit rate.Limit
	SubmitBurst int
}

type Handler struct {
	userSvc      *user.Service
	surveySvc    *survey.Service
	responseSvc  *response.Service
	statsSvc     *stats.Service
	jwtMgr       *jwtpkg.Manager
	tokenTTL     time.Duration
	statsTimeout time.Duration
	events       EventPublisher
	db           Pinger
	log          *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.TokenTTL == 0 {
		d.TokenTTL = 24 * time.Hour
	}
	if d.StatsTimeout == 0 {
		d.StatsTimeout = 30 * time.Second
	}
	if d.SubmitLimit == 0 {
		d.SubmitLimit, d.SubmitBurst = rate.Every(time.Minute/10), 3
	}
	h := &Handler{
		userSvc:      d.Users,
		surveySvc:    d.Surveys,
		responseSvc:  d.Responses,
		statsSvc:     d.Stats,
		jwtMgr:       d.JWT,
		tokenTTL:     d.TokenTTL,
		statsTimeout: d.StatsTimeout,
		events:       d.Events,
		db:           d.DB,
		log:          d.Log,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger(d.Log))
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)
		r.Get("/auth/verify", h.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(d.JWT))

			r.Get("/surveys", h.handleListSurveys)
			r.Get("/surveys/{id}", h.handleGetSurvey)
			r.With(RateLimitSubmissions(d.SubmitLimit, d.SubmitBurst)).Post("/surveys/{id}/responses", h.handleSubmitResponse)

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)
				r.Get("/auth/me", h.handleMe)

				r.Post("/surveys", h.handleCreateSurvey)
				r.Patch("/surveys/{id}", h.handleUpdateSurvey)
				r.Post("/surveys/{id}/questions", h.handleAddQuestion)
				r.Patch("/questions/{id}", h.handleUpdateQuestion)

				r.Get("/responses/{id}", h.handleGetResponse)
				r.Delete("/responses/{id}", h.handleDeleteResponse)
				r.Patch("/answers/{id}", h.handleUpdateAnswer)
				r.Get("/answers/{id}/file", h.handleAnswerFile)

				r.Route("/surveys/{id}/statistics", func(r chi.Router) {
					r.Get("/", h.handleReport)
					r.Get("/questions", h.handleQuestionSummaries)
					r.Get("/correlation", h.handleCorrelation)
					r.Get("/trend", h.handleTrend)
					r.Get("/patterns", h.handlePatterns)
				})
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func (h *Handler) publish(r *http.Request, kind worker.EventKind, surveyID int64) {
	if h.events == nil {
		return
	}
	h.events.Publish(r.Context(), worker.SurveyEvent{Kind: kind, SurveyID: surveyID})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
