package api

import (
	"net/http"

	"survey-insights/internal/domain/user"
	"survey-insights/internal/platform/apperr"
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token,omitempty"`
}

// handleRegister returns a token right away for quick signups. Full signups
// get their token at login after following the verification code.
//
// @Summary     Register a user
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      user.RegisterInput  true  "Signup payload"
// @Success     201      {object}  authResponse
// @Failure     400      {object}  errorBody  "invalid body or fields"
// @Failure     409      {object}  errorBody  "email already registered"
// @Failure     500      {object}  errorBody  "server error"
// @Router      /auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Register(r.Context(), req)
	if err != nil {
		errorResponse(w, err)
		return
	}

	out := authResponse{User: u}
	if req.SignupType != user.SignupFull {
		token, err := h.jwtMgr.Generate(u.ID, u.IsVerified, h.tokenTTL)
		if err != nil {
			errorResponse(w, err)
			return
		}
		out.Token = token
	}

	writeJSON(w, http.StatusCreated, out)
}

// @Summary     Log in
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      authRequest  true  "Credentials"
// @Success     200      {object}  authResponse
// @Failure     400      {object}  errorBody  "invalid body"
// @Failure     401      {object}  errorBody  "invalid credentials"
// @Failure     403      {object}  errorBody  "email not verified"
// @Failure     500      {object}  errorBody  "server error"
// @Router      /auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	token, err := h.jwtMgr.Generate(u.ID, u.IsVerified, h.tokenTTL)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: u, Token: token})
}

// @Summary     Verify email
// @Tags        auth
// @Produce     json
// @Param       code  query     string  true  "Verification code"
// @Success     200   {object}  map[string]any
// @Failure     400   {object}  errorBody  "missing or invalid code"
// @Failure     500   {object}  errorBody  "server error"
// @Router      /auth/verify [get]
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "code is required", nil))
		return
	}

	u, err := h.userSvc.Verify(r.Context(), code)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detail": "email verification successful",
		"user":   u,
	})
}

// @Summary     Current user
// @Tags        auth
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  user.User
// @Failure     401  {object}  errorBody  "unauthorized"
// @Failure     404  {object}  errorBody  "not found"
// @Router      /auth/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.userSvc.GetByID(r.Context(), callerFromCtx(r).UserID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
