package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/storage"
	"github.com/assetdeck/api/internal/repositories"
)

var (
	// ErrAssetInvalidInput indicates the caller supplied invalid parameters.
	ErrAssetInvalidInput = errors.New("assets: invalid input")
	// ErrAssetNotFound indicates the asset does not exist.
	ErrAssetNotFound = errors.New("assets: not found")
	// ErrAssetNotOwned indicates the caller has not purchased the premium asset.
	ErrAssetNotOwned = errors.New("assets: not owned")
	// ErrAssetUnavailable indicates asset dependencies are currently unavailable.
	ErrAssetUnavailable = errors.New("assets: unavailable")
)

// downloadSigner abstracts the storage client for easier testing.
type downloadSigner interface {
	SignedDownloadURL(ctx context.Context, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error)
}

// AssetServiceDeps wires the dependencies required by the asset service.
type AssetServiceDeps struct {
	Assets       repositories.AssetRepository
	Users        repositories.UserRepository
	Storage      downloadSigner
	SignedURLTTL time.Duration
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type assetService struct {
	assets  repositories.AssetRepository
	users   repositories.UserRepository
	storage downloadSigner
	urlTTL  time.Duration
	now     func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewAssetService constructs an AssetService validating required dependencies.
func NewAssetService(deps AssetServiceDeps) (AssetService, error) {
	if deps.Assets == nil {
		return nil, errors.New("asset service: asset repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("asset service: user repository is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("asset service: storage client is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	ttl := deps.SignedURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &assetService{
		assets:  deps.Assets,
		users:   deps.Users,
		storage: deps.Storage,
		urlTTL:  ttl,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateAsset adds a new catalog entry. IsPremium is derived from the price.
func (s *assetService) CreateAsset(ctx context.Context, cmd CreateAssetCommand) (domain.Asset, error) {
	if s == nil || s.assets == nil {
		return domain.Asset{}, ErrAssetUnavailable
	}

	title := strings.TrimSpace(cmd.Title)
	category := strings.ToLower(strings.TrimSpace(cmd.Category))
	if title == "" || !domain.ValidAssetCategory(category) || cmd.Price < 0 {
		return domain.Asset{}, ErrAssetInvalidInput
	}
	if strings.TrimSpace(cmd.FileObject) == "" {
		return domain.Asset{}, ErrAssetInvalidInput
	}

	currency := strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if currency == "" {
		currency = defaultCheckoutCurrency
	}

	now := s.now()
	asset := domain.Asset{
		ID:          ulid.Make().String(),
		Title:       title,
		Description: strings.TrimSpace(cmd.Description),
		Category:    domain.AssetCategory(category),
		Price:       cmd.Price,
		Currency:    currency,
		IsPremium:   cmd.Price > 0,
		IsTrending:  cmd.IsTrending,
		IsFeatured:  cmd.IsFeatured,
		FileObject:  strings.TrimSpace(cmd.FileObject),
		ImageURL:    strings.TrimSpace(cmd.ImageURL),
		AuthorID:    strings.TrimSpace(cmd.AuthorID),
		AuthorName:  strings.TrimSpace(cmd.AuthorName),
		Tags:        dedupeIDs(cmd.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.assets.Insert(ctx, asset); err != nil {
		return domain.Asset{}, s.translate(ctx, "assets.create_failed", asset.ID, err)
	}

	s.logger(ctx, "assets.created", map[string]any{
		"assetId":  asset.ID,
		"category": category,
		"premium":  asset.IsPremium,
	})
	return asset, nil
}

// UpdateAsset applies a partial update. IsPremium is re-derived whenever the
// price changes.
func (s *assetService) UpdateAsset(ctx context.Context, cmd UpdateAssetCommand) (domain.Asset, error) {
	if s == nil || s.assets == nil {
		return domain.Asset{}, ErrAssetUnavailable
	}
	assetID := strings.TrimSpace(cmd.AssetID)
	if assetID == "" {
		return domain.Asset{}, ErrAssetInvalidInput
	}

	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return domain.Asset{}, s.translate(ctx, "assets.load_failed", assetID, err)
	}

	if cmd.Title != nil {
		if strings.TrimSpace(*cmd.Title) == "" {
			return domain.Asset{}, ErrAssetInvalidInput
		}
		asset.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Description != nil {
		asset.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*cmd.Category))
		if !domain.ValidAssetCategory(category) {
			return domain.Asset{}, ErrAssetInvalidInput
		}
		asset.Category = domain.AssetCategory(category)
	}
	if cmd.Price != nil {
		if *cmd.Price < 0 {
			return domain.Asset{}, ErrAssetInvalidInput
		}
		asset.Price = *cmd.Price
	}
	if cmd.FileObject != nil {
		asset.FileObject = strings.TrimSpace(*cmd.FileObject)
	}
	if cmd.ImageURL != nil {
		asset.ImageURL = strings.TrimSpace(*cmd.ImageURL)
	}
	if cmd.Tags != nil {
		asset.Tags = dedupeIDs(cmd.Tags)
	}
	if cmd.IsTrending != nil {
		asset.IsTrending = *cmd.IsTrending
	}
	if cmd.IsFeatured != nil {
		asset.IsFeatured = *cmd.IsFeatured
	}
	if cmd.IsBestSelling != nil {
		asset.IsBestSelling = *cmd.IsBestSelling
	}

	asset.IsPremium = asset.Price > 0
	asset.UpdatedAt = s.now()

	if err := s.assets.Update(ctx, asset); err != nil {
		return domain.Asset{}, s.translate(ctx, "assets.update_failed", assetID, err)
	}
	return asset, nil
}

// DeleteAsset removes the catalog entry. Purchased copies remain granted.
func (s *assetService) DeleteAsset(ctx context.Context, assetID string) error {
	if s == nil || s.assets == nil {
		return ErrAssetUnavailable
	}
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return ErrAssetInvalidInput
	}
	if err := s.assets.Delete(ctx, assetID); err != nil {
		return s.translate(ctx, "assets.delete_failed", assetID, err)
	}
	return nil
}

// GetAsset loads a single asset.
func (s *assetService) GetAsset(ctx context.Context, assetID string) (domain.Asset, error) {
	if s == nil || s.assets == nil {
		return domain.Asset{}, ErrAssetUnavailable
	}
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return domain.Asset{}, ErrAssetInvalidInput
	}
	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return domain.Asset{}, s.translate(ctx, "assets.get_failed", assetID, err)
	}
	return asset, nil
}

// ListAssets returns catalog entries matching the query.
func (s *assetService) ListAssets(ctx context.Context, query ListAssetsQuery) ([]domain.Asset, error) {
	if s == nil || s.assets == nil {
		return nil, ErrAssetUnavailable
	}
	if category := strings.TrimSpace(query.Category); category != "" && !domain.ValidAssetCategory(category) {
		return nil, ErrAssetInvalidInput
	}

	assets, err := s.assets.List(ctx, repositories.AssetListFilter{
		Category:    query.Category,
		AuthorID:    query.AuthorID,
		Premium:     query.Premium,
		Trending:    query.Trending,
		Featured:    query.Featured,
		BestSelling: query.BestSelling,
		Limit:       query.Limit,
	})
	if err != nil {
		s.logger(ctx, "assets.list_failed", map[string]any{"error": err.Error()})
		return nil, ErrAssetUnavailable
	}
	return assets, nil
}

// Download gates premium files on ownership and returns a short-lived signed
// URL. Free assets download without a purchase.
func (s *assetService) Download(ctx context.Context, userID, assetID string) (DownloadGrant, error) {
	if s == nil || s.assets == nil || s.storage == nil {
		return DownloadGrant{}, ErrAssetUnavailable
	}
	userID = strings.TrimSpace(userID)
	assetID = strings.TrimSpace(assetID)
	if userID == "" || assetID == "" {
		return DownloadGrant{}, ErrAssetInvalidInput
	}

	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return DownloadGrant{}, s.translate(ctx, "assets.download_load_failed", assetID, err)
	}

	if asset.IsPremium {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return DownloadGrant{}, s.translate(ctx, "assets.download_user_failed", assetID, err)
		}
		if !user.Owns(assetID) {
			return DownloadGrant{}, ErrAssetNotOwned
		}
	}

	result, err := s.storage.SignedDownloadURL(ctx, asset.FileObject, storage.DownloadOptions{
		ExpiresIn:   s.urlTTL,
		Disposition: "attachment",
	})
	if err != nil {
		s.logger(ctx, "assets.sign_url_failed", map[string]any{
			"assetId": assetID,
			"error":   err.Error(),
		})
		return DownloadGrant{}, ErrAssetUnavailable
	}

	// Counters are best effort; a failed bump never blocks the download.
	if err := s.assets.IncrementDownloads(ctx, assetID); err != nil {
		s.logger(ctx, "assets.count_failed", map[string]any{"assetId": assetID, "error": err.Error()})
	}
	if err := s.users.RecordDownload(ctx, userID, assetID); err != nil {
		s.logger(ctx, "assets.history_failed", map[string]any{"assetId": assetID, "error": err.Error()})
	}

	return DownloadGrant{
		AssetID:   assetID,
		URL:       result.URL,
		ExpiresAt: result.ExpiresAt,
	}, nil
}

func (s *assetService) translate(ctx context.Context, event, assetID string, err error) error {
	if repositories.IsNotFound(err) {
		return ErrAssetNotFound
	}
	s.logger(ctx, event, map[string]any{
		"assetId": assetID,
		"error":   err.Error(),
	})
	return ErrAssetUnavailable
}
