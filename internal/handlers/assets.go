package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

const maxAssetRequestBody = 32 * 1024

// AssetHandlers exposes the public catalog, the ownership-gated download
// endpoint, and the admin catalog management endpoints.
type AssetHandlers struct {
	assets services.AssetService
}

// NewAssetHandlers constructs asset handlers.
func NewAssetHandlers(assets services.AssetService) *AssetHandlers {
	return &AssetHandlers{assets: assets}
}

// PublicRoutes registers unauthenticated catalog reads.
func (h *AssetHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/assets", h.listAssets)
	r.Get("/assets/{assetId}", h.getAsset)
}

// AuthedRoutes registers endpoints requiring an authenticated caller.
func (h *AssetHandlers) AuthedRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/assets/{assetId}/download", h.download)
}

// AdminRoutes registers catalog management endpoints.
func (h *AssetHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/assets", h.createAsset)
	r.Patch("/assets/{assetId}", h.updateAsset)
	r.Delete("/assets/{assetId}", h.deleteAsset)
}

type assetPayload struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category"`
	Price         int64    `json:"price"`
	Currency      string   `json:"currency"`
	IsPremium     bool     `json:"isPremium"`
	IsTrending    bool     `json:"isTrending"`
	IsBestSelling bool     `json:"isBestSelling"`
	IsFeatured    bool     `json:"isFeatured"`
	Downloads     int64    `json:"downloads"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	AuthorID      string   `json:"authorId,omitempty"`
	AuthorName    string   `json:"authorName,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

type createAssetRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	FileObject  string   `json:"fileObject"`
	ImageURL    string   `json:"imageUrl"`
	AuthorID    string   `json:"authorId"`
	AuthorName  string   `json:"authorName"`
	Tags        []string `json:"tags"`
	IsTrending  bool     `json:"isTrending"`
	IsFeatured  bool     `json:"isFeatured"`
}

type updateAssetRequest struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Price         *int64   `json:"price"`
	FileObject    *string  `json:"fileObject"`
	ImageURL      *string  `json:"imageUrl"`
	Tags          []string `json:"tags"`
	IsTrending    *bool    `json:"isTrending"`
	IsFeatured    *bool    `json:"isFeatured"`
	IsBestSelling *bool    `json:"isBestSelling"`
}

type downloadResponse struct {
	AssetID   string `json:"assetId"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

func (h *AssetHandlers) listAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := services.ListAssetsQuery{
		Category:    strings.TrimSpace(r.URL.Query().Get("category")),
		AuthorID:    strings.TrimSpace(r.URL.Query().Get("author")),
		Trending:    r.URL.Query().Get("trending") == "true",
		Featured:    r.URL.Query().Get("featured") == "true",
		BestSelling: r.URL.Query().Get("bestSelling") == "true",
		Limit:       queryInt(r, "limit", 50),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("premium")); raw != "" {
		premium, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "premium must be a boolean", http.StatusBadRequest))
			return
		}
		query.Premium = &premium
	}

	assets, err := h.assets.ListAssets(ctx, query)
	if err != nil {
		writeAssetError(w, r, err)
		return
	}

	payload := make([]assetPayload, 0, len(assets))
	for _, asset := range assets {
		payload = append(payload, toAssetPayload(asset))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"assets": payload})
}

func (h *AssetHandlers) getAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asset, err := h.assets.GetAsset(ctx, chi.URLParam(r, "assetId"))
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAssetPayload(asset))
}

func (h *AssetHandlers) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	grant, err := h.assets.Download(ctx, identity.UID, chi.URLParam(r, "assetId"))
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, downloadResponse{
		AssetID:   grant.AssetID,
		URL:       grant.URL,
		ExpiresAt: formatTime(grant.ExpiresAt),
	})
}

func (h *AssetHandlers) createAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAssetRequest
	if err := decodeJSONBody(r, maxAssetRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	asset, err := h.assets.CreateAsset(ctx, services.CreateAssetCommand{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Currency:    req.Currency,
		FileObject:  req.FileObject,
		ImageURL:    req.ImageURL,
		AuthorID:    req.AuthorID,
		AuthorName:  req.AuthorName,
		Tags:        req.Tags,
		IsTrending:  req.IsTrending,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAssetPayload(asset))
}

func (h *AssetHandlers) updateAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateAssetRequest
	if err := decodeJSONBody(r, maxAssetRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	asset, err := h.assets.UpdateAsset(ctx, services.UpdateAssetCommand{
		AssetID:       chi.URLParam(r, "assetId"),
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		FileObject:    req.FileObject,
		ImageURL:      req.ImageURL,
		Tags:          req.Tags,
		IsTrending:    req.IsTrending,
		IsFeatured:    req.IsFeatured,
		IsBestSelling: req.IsBestSelling,
	})
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAssetPayload(asset))
}

func (h *AssetHandlers) deleteAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.assets.DeleteAsset(ctx, chi.URLParam(r, "assetId")); err != nil {
		writeAssetError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAssetPayload(asset domain.Asset) assetPayload {
	return assetPayload{
		ID:            asset.ID,
		Title:         asset.Title,
		Description:   asset.Description,
		Category:      string(asset.Category),
		Price:         asset.Price,
		Currency:      asset.Currency,
		IsPremium:     asset.IsPremium,
		IsTrending:    asset.IsTrending,
		IsBestSelling: asset.IsBestSelling,
		IsFeatured:    asset.IsFeatured,
		Downloads:     asset.Downloads,
		ImageURL:      asset.ImageURL,
		AuthorID:      asset.AuthorID,
		AuthorName:    asset.AuthorName,
		Tags:          asset.Tags,
		CreatedAt:     formatTime(asset.CreatedAt),
		UpdatedAt:     formatTime(asset.UpdatedAt),
	}
}

func writeAssetError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrAssetInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "asset request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrAssetNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("asset_not_found", "asset not found", http.StatusNotFound))
	case errors.Is(err, services.ErrAssetNotOwned):
		httpx.WriteError(ctx, w, httpx.NewError("not_owned", "asset has not been purchased", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("assets_unavailable", "assets are temporarily unavailable", http.StatusServiceUnavailable))
	}
}
