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

const assetCollection = "assets"

// AssetRepository persists catalog assets in Firestore.
type AssetRepository struct {
	base     *pfirestore.BaseRepository[domain.Asset]
	provider *pfirestore.Provider
}

// NewAssetRepository constructs a Firestore-backed asset repository.
func NewAssetRepository(provider *pfirestore.Provider) (*AssetRepository, error) {
	if provider == nil {
		return nil, errors.New("asset repository requires firestore provider")
	}
	return &AssetRepository{
		base:     pfirestore.NewBaseRepository[domain.Asset](provider, assetCollection),
		provider: provider,
	}, nil
}

// Insert stores a new asset.
func (r *AssetRepository) Insert(ctx context.Context, asset domain.Asset) error {
	if r == nil || r.base == nil {
		return errors.New("asset repository not initialised")
	}
	if strings.TrimSpace(asset.ID) == "" {
		return errors.New("asset id is required")
	}
	_, err := r.base.Create(ctx, asset.ID, asset)
	return err
}

// Update rewrites the asset document.
func (r *AssetRepository) Update(ctx context.Context, asset domain.Asset) error {
	if r == nil || r.base == nil {
		return errors.New("asset repository not initialised")
	}
	if strings.TrimSpace(asset.ID) == "" {
		return errors.New("asset id is required")
	}
	_, err := r.base.Set(ctx, asset.ID, asset)
	return err
}

// Delete removes the asset document.
func (r *AssetRepository) Delete(ctx context.Context, assetID string) error {
	if r == nil || r.base == nil {
		return errors.New("asset repository not initialised")
	}
	return r.base.Delete(ctx, assetID)
}

// FindByID loads an asset by id.
func (r *AssetRepository) FindByID(ctx context.Context, assetID string) (domain.Asset, error) {
	if r == nil || r.base == nil {
		return domain.Asset{}, errors.New("asset repository not initialised")
	}
	doc, err := r.base.Get(ctx, assetID)
	if err != nil {
		return domain.Asset{}, err
	}
	asset := doc.Data
	asset.ID = doc.ID
	return asset, nil
}

// FindByIDs loads the named assets. Missing ids are reported as not-found so
// checkout can reject carts referencing removed catalog entries.
func (r *AssetRepository) FindByIDs(ctx context.Context, assetIDs []string) ([]domain.Asset, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("asset repository not initialised")
	}

	ids := uniqueNonEmpty(assetIDs)
	if len(ids) == 0 {
		return nil, errors.New("at least one asset id is required")
	}

	assets := make([]domain.Asset, 0, len(ids))
	for _, id := range ids {
		asset, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// List returns assets matching the filter, newest first.
func (r *AssetRepository) List(ctx context.Context, filter repositories.AssetListFilter) ([]domain.Asset, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("asset repository not initialised")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if category := strings.TrimSpace(filter.Category); category != "" {
			q = q.Where("category", "==", strings.ToLower(category))
		}
		if author := strings.TrimSpace(filter.AuthorID); author != "" {
			q = q.Where("authorId", "==", author)
		}
		if filter.Premium != nil {
			q = q.Where("isPremium", "==", *filter.Premium)
		}
		if filter.Trending {
			q = q.Where("isTrending", "==", true)
		}
		if filter.Featured {
			q = q.Where("isFeatured", "==", true)
		}
		if filter.BestSelling {
			q = q.Where("isBestSelling", "==", true)
		}
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	assets := make([]domain.Asset, 0, len(docs))
	for _, doc := range docs {
		asset := doc.Data
		asset.ID = doc.ID
		assets = append(assets, asset)
	}
	return assets, nil
}

// IncrementDownloads bumps the aggregate download counter.
func (r *AssetRepository) IncrementDownloads(ctx context.Context, assetID string) error {
	if r == nil || r.base == nil {
		return errors.New("asset repository not initialised")
	}
	_, err := r.base.Update(ctx, assetID, []firestore.Update{
		{Path: "downloads", Value: firestore.Increment(1)},
	})
	return err
}
