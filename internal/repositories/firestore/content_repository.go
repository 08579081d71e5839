package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/assetdeck/api/internal/domain"
	pfirestore "github.com/assetdeck/api/internal/platform/firestore"
	"github.com/assetdeck/api/internal/repositories"
)

const contentCollection = "content"

// ContentRepository persists editorial content entries in Firestore. Blog
// posts, portfolio pieces, and service offerings share one collection
// discriminated by the kind field.
type ContentRepository struct {
	base *pfirestore.BaseRepository[domain.ContentEntry]
}

// NewContentRepository constructs a Firestore-backed content repository.
func NewContentRepository(provider *pfirestore.Provider) (*ContentRepository, error) {
	if provider == nil {
		return nil, errors.New("content repository requires firestore provider")
	}
	return &ContentRepository{
		base: pfirestore.NewBaseRepository[domain.ContentEntry](provider, contentCollection),
	}, nil
}

// Insert stores a new content entry.
func (r *ContentRepository) Insert(ctx context.Context, entry domain.ContentEntry) error {
	if r == nil || r.base == nil {
		return errors.New("content repository not initialised")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("content id is required")
	}
	_, err := r.base.Create(ctx, entry.ID, entry)
	return err
}

// Update rewrites the content entry.
func (r *ContentRepository) Update(ctx context.Context, entry domain.ContentEntry) error {
	if r == nil || r.base == nil {
		return errors.New("content repository not initialised")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("content id is required")
	}
	_, err := r.base.Set(ctx, entry.ID, entry)
	return err
}

// Delete removes the content entry.
func (r *ContentRepository) Delete(ctx context.Context, entryID string) error {
	if r == nil || r.base == nil {
		return errors.New("content repository not initialised")
	}
	return r.base.Delete(ctx, entryID)
}

// FindByID loads a content entry by id.
func (r *ContentRepository) FindByID(ctx context.Context, entryID string) (domain.ContentEntry, error) {
	if r == nil || r.base == nil {
		return domain.ContentEntry{}, errors.New("content repository not initialised")
	}
	doc, err := r.base.Get(ctx, entryID)
	if err != nil {
		return domain.ContentEntry{}, err
	}
	entry := doc.Data
	entry.ID = doc.ID
	return entry, nil
}

// List returns content entries matching the filter, newest first.
func (r *ContentRepository) List(ctx context.Context, filter repositories.ContentListFilter) ([]domain.ContentEntry, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("content repository not initialised")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Kind != "" {
			q = q.Where("kind", "==", string(filter.Kind))
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if author := strings.TrimSpace(filter.AuthorID); author != "" {
			q = q.Where("authorId", "==", author)
		}
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ContentEntry, 0, len(docs))
	for _, doc := range docs {
		entry := doc.Data
		entry.ID = doc.ID
		entries = append(entries, entry)
	}
	return entries, nil
}
