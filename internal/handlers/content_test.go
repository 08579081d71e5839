package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/services"
)

func TestContentHandlersPublicListOnlyPublished(t *testing.T) {
	router := chi.NewRouter()
	var captured services.ListContentQuery
	handler := NewContentHandlers(&stubContentService{
		listFunc: func(_ context.Context, query services.ListContentQuery) ([]domain.ContentEntry, error) {
			captured = query
			return []domain.ContentEntry{{ID: "entry-1", Status: domain.ContentStatusPublished}}, nil
		},
	})
	handler.PublicRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/content?kind=blog", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	// Public listings pin status to published regardless of the query string.
	if captured.Status != domain.ContentStatusPublished {
		t.Fatalf("expected published filter forced, got %s", captured.Status)
	}
	if captured.Kind != domain.ContentKindBlog {
		t.Fatalf("unexpected kind filter %s", captured.Kind)
	}
}

func TestContentHandlersGetEntryNotFound(t *testing.T) {
	router := chi.NewRouter()
	handler := NewContentHandlers(&stubContentService{
		getFunc: func(context.Context, string) (domain.ContentEntry, error) {
			return domain.ContentEntry{}, services.ErrContentNotFound
		},
	})
	handler.PublicRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/content/ghost", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestContentHandlersCreateEntryAttributesAuthor(t *testing.T) {
	router := chi.NewRouter()
	var captured services.CreateContentCommand
	handler := NewContentHandlers(&stubContentService{
		createFunc: func(_ context.Context, cmd services.CreateContentCommand) (domain.ContentEntry, error) {
			captured = cmd
			return domain.ContentEntry{ID: "entry-new", Kind: cmd.Kind, Title: cmd.Title}, nil
		},
	})
	handler.ModeratorRoutes(router)

	payload := `{"kind":"blog","title":"Launch notes","body":"<p>hello</p>","publish":true}`
	req := httptest.NewRequest(http.MethodPost, "/content", bytes.NewBufferString(payload))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "mod-1", Email: "mod@example.com", Role: domain.RoleModerator}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if captured.AuthorID != "mod-1" {
		t.Fatalf("expected author from identity, got %q", captured.AuthorID)
	}
	if !captured.Publish || captured.Kind != domain.ContentKindBlog {
		t.Fatalf("unexpected command %#v", captured)
	}
}

func TestContentHandlersUpdateEntryStatus(t *testing.T) {
	router := chi.NewRouter()
	var captured services.UpdateContentCommand
	handler := NewContentHandlers(&stubContentService{
		updateFunc: func(_ context.Context, cmd services.UpdateContentCommand) (domain.ContentEntry, error) {
			captured = cmd
			return domain.ContentEntry{ID: cmd.EntryID, Status: *cmd.Status}, nil
		},
	})
	handler.ModeratorRoutes(router)

	req := httptest.NewRequest(http.MethodPatch, "/content/entry-1", bytes.NewBufferString(`{"status":"published"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.EntryID != "entry-1" || captured.Status == nil || *captured.Status != domain.ContentStatusPublished {
		t.Fatalf("unexpected command %#v", captured)
	}

	var resp contentPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "published" {
		t.Fatalf("unexpected payload %#v", resp)
	}
}

func TestContentHandlersDeleteEntry(t *testing.T) {
	router := chi.NewRouter()
	var deleted string
	handler := NewContentHandlers(&stubContentService{
		deleteFunc: func(_ context.Context, entryID string) error {
			deleted = entryID
			return nil
		},
	})
	handler.ModeratorRoutes(router)

	req := httptest.NewRequest(http.MethodDelete, "/content/entry-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deleted != "entry-1" {
		t.Fatalf("expected entry-1 deleted, got %q", deleted)
	}
}

type stubContentService struct {
	createFunc func(ctx context.Context, cmd services.CreateContentCommand) (domain.ContentEntry, error)
	updateFunc func(ctx context.Context, cmd services.UpdateContentCommand) (domain.ContentEntry, error)
	deleteFunc func(ctx context.Context, entryID string) error
	getFunc    func(ctx context.Context, entryID string) (domain.ContentEntry, error)
	listFunc   func(ctx context.Context, query services.ListContentQuery) ([]domain.ContentEntry, error)
}

func (s *stubContentService) CreateContent(ctx context.Context, cmd services.CreateContentCommand) (domain.ContentEntry, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return domain.ContentEntry{}, errors.New("not implemented")
}

func (s *stubContentService) UpdateContent(ctx context.Context, cmd services.UpdateContentCommand) (domain.ContentEntry, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return domain.ContentEntry{}, errors.New("not implemented")
}

func (s *stubContentService) DeleteContent(ctx context.Context, entryID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, entryID)
	}
	return errors.New("not implemented")
}

func (s *stubContentService) GetContent(ctx context.Context, entryID string) (domain.ContentEntry, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, entryID)
	}
	return domain.ContentEntry{}, errors.New("not implemented")
}

func (s *stubContentService) ListContent(ctx context.Context, query services.ListContentQuery) ([]domain.ContentEntry, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, query)
	}
	return nil, errors.New("not implemented")
}
