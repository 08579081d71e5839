package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

const maxContentRequestBody = 256 * 1024

// ContentHandlers exposes public content reads and moderator-gated writes.
type ContentHandlers struct {
	content services.ContentService
}

// NewContentHandlers constructs content handlers.
func NewContentHandlers(content services.ContentService) *ContentHandlers {
	return &ContentHandlers{content: content}
}

// PublicRoutes registers unauthenticated content reads. Public listings only
// surface published entries.
func (h *ContentHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/content", h.listPublished)
	r.Get("/content/{entryId}", h.getEntry)
}

// ModeratorRoutes registers content management endpoints.
func (h *ContentHandlers) ModeratorRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/content", h.createEntry)
	r.Patch("/content/{entryId}", h.updateEntry)
	r.Delete("/content/{entryId}", h.deleteEntry)
}

type contentPayload struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Category   string `json:"category,omitempty"`
	Status     string `json:"status"`
	ImageURL   string `json:"imageUrl,omitempty"`
	AuthorID   string `json:"authorId,omitempty"`
	AuthorName string `json:"authorName,omitempty"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type createContentRequest struct {
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
	Publish  bool   `json:"publish"`
}

type updateContentRequest struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	Category *string `json:"category"`
	ImageURL *string `json:"imageUrl"`
	Status   *string `json:"status"`
}

func (h *ContentHandlers) listPublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.content.ListContent(ctx, services.ListContentQuery{
		Kind:   domain.ContentKind(strings.TrimSpace(r.URL.Query().Get("kind"))),
		Status: domain.ContentStatusPublished,
		Limit:  queryInt(r, "limit", 50),
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}

	payload := make([]contentPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, toContentPayload(entry))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"content": payload})
}

func (h *ContentHandlers) getEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.content.GetContent(ctx, chi.URLParam(r, "entryId"))
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentPayload(entry))
}

func (h *ContentHandlers) createEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createContentRequest
	if err := decodeJSONBody(r, maxContentRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	entry, err := h.content.CreateContent(ctx, services.CreateContentCommand{
		Kind:       domain.ContentKind(strings.TrimSpace(req.Kind)),
		Title:      req.Title,
		Body:       req.Body,
		Category:   req.Category,
		ImageURL:   req.ImageURL,
		AuthorID:   identity.UID,
		AuthorName: identity.Email,
		Publish:    req.Publish,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toContentPayload(entry))
}

func (h *ContentHandlers) updateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateContentRequest
	if err := decodeJSONBody(r, maxContentRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.UpdateContentCommand{
		EntryID:  chi.URLParam(r, "entryId"),
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		ImageURL: req.ImageURL,
	}
	if req.Status != nil {
		status := domain.ContentStatus(strings.TrimSpace(*req.Status))
		cmd.Status = &status
	}

	entry, err := h.content.UpdateContent(ctx, cmd)
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentPayload(entry))
}

func (h *ContentHandlers) deleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.content.DeleteContent(ctx, chi.URLParam(r, "entryId")); err != nil {
		writeContentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toContentPayload(entry domain.ContentEntry) contentPayload {
	return contentPayload{
		ID:         entry.ID,
		Kind:       string(entry.Kind),
		Title:      entry.Title,
		Body:       entry.Body,
		Category:   entry.Category,
		Status:     string(entry.Status),
		ImageURL:   entry.ImageURL,
		AuthorID:   entry.AuthorID,
		AuthorName: entry.AuthorName,
		CreatedAt:  formatTime(entry.CreatedAt),
		UpdatedAt:  formatTime(entry.UpdatedAt),
	}
}

func writeContentError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrContentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "content request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrContentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("content_not_found", "content not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "content is temporarily unavailable", http.StatusServiceUnavailable))
	}
}
