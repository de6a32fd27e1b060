package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// AuthHandler serves registration, login, and session endpoints.
type AuthHandler struct {
	users    service.UserService
	logger   *slog.Logger
	isSecure bool
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users service.UserService, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		users:    users,
		logger:   logger,
		isSecure: isSecure,
	}
}

// userResponse is the public shape of a user account.
type userResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          string     `json:"role"`
	Phone         string     `json:"phone,omitempty"`
	Country       string     `json:"country,omitempty"`
	Plan          string     `json:"plan"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          string(u.Role),
		Phone:         u.Phone,
		Country:       u.Country,
		Plan:          string(u.EffectivePlan()),
		PlanExpiresAt: u.PlanExpiresAt,
		CreatedAt:     u.CreatedAt,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
		Phone    string `json:"phone"`
		Country  string `json:"country"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), domain.RegisterParams{
		Email:    strings.TrimSpace(input.Email),
		Password: input.Password,
		FullName: strings.TrimSpace(input.FullName),
		Role:     input.Role,
		Phone:    strings.TrimSpace(input.Phone),
		Country:  strings.TrimSpace(input.Country),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, envelope{"user": newUserResponse(user)})
}

// Login handles POST /api/auth/login. The session token is returned in the
// body for API clients and set as a cookie for browsers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), strings.TrimSpace(input.Email), input.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.isSecure)
	WriteJSON(w, http.StatusOK, envelope{
		"user":  newUserResponse(result.User),
		"token": result.Token,
	})
}

// Logout handles POST /api/auth/logout. Idempotent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if header := r.Header.Get("Authorization"); header != "" {
		token, _ = strings.CutPrefix(header, "Bearer ")
	}
	if token == "" {
		if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
			token = cookie.Value
		}
	}

	if token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	auth.ClearSessionCookie(w, h.isSecure)
	WriteJSON(w, http.StatusOK, envelope{"message": "logged out"})
}

// Me handles GET /api/auth/me. Requires authentication.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, envelope{"user": newUserResponse(user)})
}
