package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/repositories"
)

var (
	// ErrContentInvalidInput indicates the caller supplied invalid parameters.
	ErrContentInvalidInput = errors.New("content: invalid input")
	// ErrContentNotFound indicates the content entry does not exist.
	ErrContentNotFound = errors.New("content: not found")
	// ErrContentUnavailable indicates content dependencies are currently unavailable.
	ErrContentUnavailable = errors.New("content: unavailable")
)

// ContentServiceDeps wires the dependencies required by the content service.
type ContentServiceDeps struct {
	Content repositories.ContentRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type contentService struct {
	content   repositories.ContentRepository
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewContentService constructs a ContentService validating required
// dependencies. Bodies pass through an HTML sanitizer before persistence so
// stored markup is always safe to render.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	if deps.Content == nil {
		return nil, errors.New("content service: content repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &contentService{
		content:   deps.Content,
		sanitizer: bluemonday.UGCPolicy(),
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateContent stores a new entry with a sanitized body.
func (s *contentService) CreateContent(ctx context.Context, cmd CreateContentCommand) (domain.ContentEntry, error) {
	if s == nil || s.content == nil {
		return domain.ContentEntry{}, ErrContentUnavailable
	}

	title := strings.TrimSpace(cmd.Title)
	body := strings.TrimSpace(cmd.Body)
	if title == "" || body == "" || !validContentKind(cmd.Kind) {
		return domain.ContentEntry{}, ErrContentInvalidInput
	}

	status := domain.ContentStatusDraft
	if cmd.Publish {
		status = domain.ContentStatusPublished
	}

	now := s.now()
	entry := domain.ContentEntry{
		ID:         ulid.Make().String(),
		Kind:       cmd.Kind,
		Title:      title,
		Body:       s.sanitizer.Sanitize(body),
		Category:   strings.TrimSpace(cmd.Category),
		Status:     status,
		ImageURL:   strings.TrimSpace(cmd.ImageURL),
		AuthorID:   strings.TrimSpace(cmd.AuthorID),
		AuthorName: strings.TrimSpace(cmd.AuthorName),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.content.Insert(ctx, entry); err != nil {
		return domain.ContentEntry{}, s.translate(ctx, "content.create_failed", entry.ID, err)
	}
	return entry, nil
}

// UpdateContent applies a partial update, re-sanitizing the body if replaced.
func (s *contentService) UpdateContent(ctx context.Context, cmd UpdateContentCommand) (domain.ContentEntry, error) {
	if s == nil || s.content == nil {
		return domain.ContentEntry{}, ErrContentUnavailable
	}
	entryID := strings.TrimSpace(cmd.EntryID)
	if entryID == "" {
		return domain.ContentEntry{}, ErrContentInvalidInput
	}

	entry, err := s.content.FindByID(ctx, entryID)
	if err != nil {
		return domain.ContentEntry{}, s.translate(ctx, "content.load_failed", entryID, err)
	}

	if cmd.Title != nil {
		if strings.TrimSpace(*cmd.Title) == "" {
			return domain.ContentEntry{}, ErrContentInvalidInput
		}
		entry.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Body != nil {
		if strings.TrimSpace(*cmd.Body) == "" {
			return domain.ContentEntry{}, ErrContentInvalidInput
		}
		entry.Body = s.sanitizer.Sanitize(strings.TrimSpace(*cmd.Body))
	}
	if cmd.Category != nil {
		entry.Category = strings.TrimSpace(*cmd.Category)
	}
	if cmd.ImageURL != nil {
		entry.ImageURL = strings.TrimSpace(*cmd.ImageURL)
	}
	if cmd.Status != nil {
		if !validContentStatus(*cmd.Status) {
			return domain.ContentEntry{}, ErrContentInvalidInput
		}
		entry.Status = *cmd.Status
	}
	entry.UpdatedAt = s.now()

	if err := s.content.Update(ctx, entry); err != nil {
		return domain.ContentEntry{}, s.translate(ctx, "content.update_failed", entryID, err)
	}
	return entry, nil
}

// DeleteContent removes the entry.
func (s *contentService) DeleteContent(ctx context.Context, entryID string) error {
	if s == nil || s.content == nil {
		return ErrContentUnavailable
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return ErrContentInvalidInput
	}
	if err := s.content.Delete(ctx, entryID); err != nil {
		return s.translate(ctx, "content.delete_failed", entryID, err)
	}
	return nil
}

// GetContent loads a single entry.
func (s *contentService) GetContent(ctx context.Context, entryID string) (domain.ContentEntry, error) {
	if s == nil || s.content == nil {
		return domain.ContentEntry{}, ErrContentUnavailable
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return domain.ContentEntry{}, ErrContentInvalidInput
	}
	entry, err := s.content.FindByID(ctx, entryID)
	if err != nil {
		return domain.ContentEntry{}, s.translate(ctx, "content.get_failed", entryID, err)
	}
	return entry, nil
}

// ListContent returns entries matching the query.
func (s *contentService) ListContent(ctx context.Context, query ListContentQuery) ([]domain.ContentEntry, error) {
	if s == nil || s.content == nil {
		return nil, ErrContentUnavailable
	}
	if query.Kind != "" && !validContentKind(query.Kind) {
		return nil, ErrContentInvalidInput
	}
	if query.Status != "" && !validContentStatus(query.Status) {
		return nil, ErrContentInvalidInput
	}

	entries, err := s.content.List(ctx, repositories.ContentListFilter{
		Kind:     query.Kind,
		Status:   query.Status,
		AuthorID: query.AuthorID,
		Limit:    query.Limit,
	})
	if err != nil {
		s.logger(ctx, "content.list_failed", map[string]any{"error": err.Error()})
		return nil, ErrContentUnavailable
	}
	return entries, nil
}

func (s *contentService) translate(ctx context.Context, event, entryID string, err error) error {
	if repositories.IsNotFound(err) {
		return ErrContentNotFound
	}
	s.logger(ctx, event, map[string]any{
		"entryId": entryID,
		"error":   err.Error(),
	})
	return ErrContentUnavailable
}

func validContentKind(kind domain.ContentKind) bool {
	switch kind {
	case domain.ContentKindBlog, domain.ContentKindPortfolio, domain.ContentKindService:
		return true
	}
	return false
}

func validContentStatus(status domain.ContentStatus) bool {
	switch status {
	case domain.ContentStatusDraft, domain.ContentStatusPublished, domain.ContentStatusArchived:
		return true
	}
	return false
}
