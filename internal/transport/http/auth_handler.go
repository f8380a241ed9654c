package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/auth"
	"quiz-session-service/internal/domain"
)

// Authenticator is the credential check the handlers depend on.
type Authenticator interface {
	Login(username, password string) (domain.AuthSession, error)
	Validate(token string) (domain.AuthSession, error)
	Logout(token string) (domain.AuthSession, error)
}

type AuthHandler struct {
	auth    Authenticator
	service *app.QuizService
}

func NewAuthHandler(authenticator Authenticator, service *app.QuizService) *AuthHandler {
	return &AuthHandler{auth: authenticator, service: service}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	LoginAt   time.Time   `json:"loginAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	session, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		User:      session.User,
		LoginAt:   session.LoginAt,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout ends the login and wipes the user's quiz progress.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Logout(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.service.Logout(r.Context(), auth.UserKey(session.User))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the user behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Validate(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
