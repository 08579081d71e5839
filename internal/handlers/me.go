package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

// MeHandlers exposes the caller's profile and favorites.
type MeHandlers struct {
	users services.UserService
}

// NewMeHandlers constructs profile handlers.
func NewMeHandlers(users services.UserService) *MeHandlers {
	return &MeHandlers{users: users}
}

// Routes registers profile endpoints under the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/me", h.profile)
	r.Put("/me/favorites/{assetId}", h.addFavorite)
	r.Delete("/me/favorites/{assetId}", h.removeFavorite)
}

func (h *MeHandlers) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	user, err := h.users.Profile(ctx, identity.UID)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userPayload{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Role:            string(user.Role),
		Favorites:       user.Favorites,
		Downloads:       user.Downloads,
		PurchasedAssets: user.PurchasedAssets,
	})
}

func (h *MeHandlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	h.favoriteOp(w, r, h.users.AddFavorite)
}

func (h *MeHandlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	h.favoriteOp(w, r, h.users.RemoveFavorite)
}

func (h *MeHandlers) favoriteOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, assetID string) error) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	if err := op(ctx, identity.UID, chi.URLParam(r, "assetId")); err != nil {
		writeUserError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
