package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/storage"
	"github.com/assetdeck/api/internal/repositories"
)

func newAssetServiceForTest(t *testing.T, assets *stubAssetRepository, users *stubUserRepository, signer *stubDownloadSigner) AssetService {
	t.Helper()
	if assets == nil {
		assets = &stubAssetRepository{}
	}
	if users == nil {
		users = &stubUserRepository{}
	}
	if signer == nil {
		signer = &stubDownloadSigner{}
	}
	service, err := NewAssetService(AssetServiceDeps{
		Assets:       assets,
		Users:        users,
		Storage:      signer,
		SignedURLTTL: 10 * time.Minute,
		Clock:        func() time.Time { return time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewAssetService returned error: %v", err)
	}
	return service
}

func TestAssetServiceCreateAssetDerivesPremiumFromPrice(t *testing.T) {
	var inserted domain.Asset
	service := newAssetServiceForTest(t, &stubAssetRepository{
		insertFunc: func(_ context.Context, asset domain.Asset) error {
			inserted = asset
			return nil
		},
	}, nil, nil)

	asset, err := service.CreateAsset(context.Background(), CreateAssetCommand{
		Title:      "Brush Set",
		Category:   "Graphics",
		Price:      2500,
		FileObject: "assets/brush-set.zip",
		Tags:       []string{"brush", "brush", "paint"},
	})
	if err != nil {
		t.Fatalf("CreateAsset returned error: %v", err)
	}
	if !asset.IsPremium {
		t.Fatal("expected priced asset to be premium")
	}
	if asset.Category != domain.AssetCategoryGraphics {
		t.Fatalf("expected normalised category, got %s", asset.Category)
	}
	if asset.Currency != "USD" {
		t.Fatalf("expected default currency USD, got %s", asset.Currency)
	}
	if len(asset.Tags) != 2 {
		t.Fatalf("expected deduped tags, got %#v", asset.Tags)
	}
	if inserted.ID == "" || inserted.ID != asset.ID {
		t.Fatalf("expected generated id persisted, got %#v", inserted)
	}

	free, err := service.CreateAsset(context.Background(), CreateAssetCommand{
		Title:      "Free Icons",
		Category:   "icons",
		Price:      0,
		FileObject: "assets/free-icons.zip",
	})
	if err != nil {
		t.Fatalf("CreateAsset returned error: %v", err)
	}
	if free.IsPremium {
		t.Fatal("expected zero-price asset to be free")
	}
}

func TestAssetServiceCreateAssetValidation(t *testing.T) {
	service := newAssetServiceForTest(t, nil, nil, nil)

	cases := []CreateAssetCommand{
		{Title: "", Category: "icons", FileObject: "f"},
		{Title: "A", Category: "unknown", FileObject: "f"},
		{Title: "A", Category: "icons", Price: -1, FileObject: "f"},
		{Title: "A", Category: "icons", FileObject: "  "},
	}
	for _, cmd := range cases {
		if _, err := service.CreateAsset(context.Background(), cmd); !errors.Is(err, ErrAssetInvalidInput) {
			t.Fatalf("expected ErrAssetInvalidInput for %#v, got %v", cmd, err)
		}
	}
}

func TestAssetServiceUpdateAssetRederivesPremium(t *testing.T) {
	existing := domain.Asset{ID: "asset-1", Title: "Pack", Category: domain.AssetCategoryFonts, Price: 900, IsPremium: true, FileObject: "f"}

	var updated domain.Asset
	service := newAssetServiceForTest(t, &stubAssetRepository{
		findByIDFunc: func(context.Context, string) (domain.Asset, error) {
			return existing, nil
		},
		updateFunc: func(_ context.Context, asset domain.Asset) error {
			updated = asset
			return nil
		},
	}, nil, nil)

	zero := int64(0)
	asset, err := service.UpdateAsset(context.Background(), UpdateAssetCommand{
		AssetID: "asset-1",
		Price:   &zero,
	})
	if err != nil {
		t.Fatalf("UpdateAsset returned error: %v", err)
	}
	if asset.IsPremium {
		t.Fatal("expected premium flag cleared when price drops to zero")
	}
	if updated.Price != 0 {
		t.Fatalf("expected persisted price 0, got %d", updated.Price)
	}
}

func TestAssetServiceDownloadFreeAssetSkipsOwnershipCheck(t *testing.T) {
	free := domain.Asset{ID: "asset-free", FileObject: "assets/free.zip", IsPremium: false}

	var signedObject string
	users := &stubUserRepository{
		findByIDFunc: func(context.Context, string) (domain.User, error) {
			t.Fatal("free downloads must not load the user")
			return domain.User{}, nil
		},
	}
	service := newAssetServiceForTest(t, &stubAssetRepository{
		findByIDFunc: func(context.Context, string) (domain.Asset, error) {
			return free, nil
		},
	}, users, &stubDownloadSigner{
		signFunc: func(_ context.Context, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error) {
			signedObject = object
			if opts.Disposition != "attachment" {
				t.Fatalf("expected attachment disposition, got %q", opts.Disposition)
			}
			return storage.SignedURLResult{URL: "https://signed.example/free.zip", ExpiresAt: time.Date(2026, 3, 3, 9, 10, 0, 0, time.UTC)}, nil
		},
	})

	grant, err := service.Download(context.Background(), "user-1", "asset-free")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if signedObject != "assets/free.zip" {
		t.Fatalf("expected file object signed, got %q", signedObject)
	}
	if grant.URL == "" || grant.AssetID != "asset-free" {
		t.Fatalf("unexpected grant %#v", grant)
	}
}

func TestAssetServiceDownloadPremiumRequiresOwnership(t *testing.T) {
	premium := domain.Asset{ID: "asset-1", FileObject: "assets/p.zip", Price: 900, IsPremium: true}

	service := newAssetServiceForTest(t, &stubAssetRepository{
		findByIDFunc: func(context.Context, string) (domain.Asset, error) {
			return premium, nil
		},
	}, &stubUserRepository{
		findByIDFunc: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "user-1"}, nil
		},
	}, nil)

	if _, err := service.Download(context.Background(), "user-1", "asset-1"); !errors.Is(err, ErrAssetNotOwned) {
		t.Fatalf("expected ErrAssetNotOwned, got %v", err)
	}
}

func TestAssetServiceDownloadCounterFailureDoesNotBlock(t *testing.T) {
	premium := domain.Asset{ID: "asset-1", FileObject: "assets/p.zip", Price: 900, IsPremium: true}

	service := newAssetServiceForTest(t, &stubAssetRepository{
		findByIDFunc: func(context.Context, string) (domain.Asset, error) {
			return premium, nil
		},
		incrementsFunc: func(context.Context, string) error {
			return errors.New("counter down")
		},
	}, &stubUserRepository{
		findByIDFunc: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "user-1", PurchasedAssets: []string{"asset-1"}}, nil
		},
		recordDownloadFunc: func(context.Context, string, string) error {
			return errors.New("history down")
		},
	}, nil)

	if _, err := service.Download(context.Background(), "user-1", "asset-1"); err != nil {
		t.Fatalf("expected download to succeed despite counter failures, got %v", err)
	}
}

func TestAssetServiceGetAssetNotFound(t *testing.T) {
	service := newAssetServiceForTest(t, &stubAssetRepository{
		findByIDFunc: func(context.Context, string) (domain.Asset, error) {
			return domain.Asset{}, errStubNotFound
		},
	}, nil, nil)

	if _, err := service.GetAsset(context.Background(), "ghost"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestAssetServiceListAssetsValidatesCategory(t *testing.T) {
	service := newAssetServiceForTest(t, nil, nil, nil)
	if _, err := service.ListAssets(context.Background(), ListAssetsQuery{Category: "bogus"}); !errors.Is(err, ErrAssetInvalidInput) {
		t.Fatalf("expected ErrAssetInvalidInput, got %v", err)
	}
}

func TestAssetServiceListAssetsPassesFilter(t *testing.T) {
	var captured repositories.AssetListFilter
	service := newAssetServiceForTest(t, &stubAssetRepository{
		listFunc: func(_ context.Context, filter repositories.AssetListFilter) ([]domain.Asset, error) {
			captured = filter
			return []domain.Asset{{ID: "asset-1"}}, nil
		},
	}, nil, nil)

	premium := true
	assets, err := service.ListAssets(context.Background(), ListAssetsQuery{
		Category: "icons",
		Premium:  &premium,
		Trending: true,
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("ListAssets returned error: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}
	if captured.Category != "icons" || captured.Premium == nil || !*captured.Premium || !captured.Trending || captured.Limit != 5 {
		t.Fatalf("unexpected filter %#v", captured)
	}
}
