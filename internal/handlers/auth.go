package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

const maxAuthRequestBody = 8 * 1024

// AuthHandlers exposes registration and login.
type AuthHandlers struct {
	users services.UserService
}

// NewAuthHandlers constructs auth handlers.
func NewAuthHandlers(users services.UserService) *AuthHandlers {
	return &AuthHandlers{users: users}
}

// Routes registers auth endpoints under the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      userPayload `json:"user"`
}

type userPayload struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	Favorites       []string `json:"favorites,omitempty"`
	Downloads       []string `json:"downloads,omitempty"`
	PurchasedAssets []string `json:"purchasedAssets,omitempty"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSONBody(r, maxAuthRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.users.Register(ctx, services.RegisterCommand{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSONBody(r, maxAuthRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.users.Login(ctx, services.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func toSessionResponse(session services.AuthSession) sessionResponse {
	return sessionResponse{
		Token:     session.Token,
		ExpiresAt: formatTime(session.ExpiresAt),
		User: userPayload{
			ID:              session.User.ID,
			Email:           session.User.Email,
			Name:            session.User.Name,
			Role:            string(session.User.Role),
			Favorites:       session.User.Favorites,
			Downloads:       session.User.Downloads,
			PurchasedAssets: session.User.PurchasedAssets,
		},
	}
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrUserEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "email is already registered", http.StatusConflict))
	case errors.Is(err, services.ErrUserBadCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("bad_credentials", "email or password is incorrect", http.StatusUnauthorized))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("users_unavailable", "user service is temporarily unavailable", http.StatusServiceUnavailable))
	}
}
